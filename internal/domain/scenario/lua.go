package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Shopify/go-lua"

	"github.com/swehq/corona-game/internal/core/calendar"
	"github.com/swehq/corona-game/internal/domain/mitigation"
)

const scenarioTypeName = "scenario"

// LoadFile runs a Lua scenario script and returns the Scenario it builds.
//
//	local s = Scenario.new("spring")
//	s:dates{rampUpStart = "2020-03-01", rampUpEnd = "2020-03-10", finish = "2020-06-30"}
//	s:population(10690000)
//	s:initial(5)
//	s:force("2020-04-01", "2020-04-30", {schools = "all"})
//	return s
func LoadFile(path string) (Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return Scenario{}, fmt.Errorf("load lua: %w", err)
	}
	return run(state, path)
}

// LoadString runs a Lua scenario script held in memory.
func LoadString(name, script string) (Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerLuaTypes(state)

	if err := lua.LoadString(state, script); err != nil {
		return Scenario{}, fmt.Errorf("load lua: %w", err)
	}
	return run(state, name)
}

// LoadDir registers every *.lua script in dir into c and returns the names
// it loaded.
func (c *Catalogue) LoadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".lua") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	names := make([]string, 0, len(files))
	for _, file := range files {
		s, err := LoadFile(file)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", filepath.Base(file), err)
		}
		if err := c.Register(s); err != nil {
			return nil, err
		}
		names = append(names, s.Name)
	}
	return names, nil
}

// OpenCatalogue returns the built-in scenarios plus the scripts in dir, when
// dir is set. Scripts may replace built-ins of the same name.
func OpenCatalogue(dir string) (*Catalogue, error) {
	c := DefaultCatalogue()
	if strings.TrimSpace(dir) == "" {
		return c, nil
	}
	if _, err := c.LoadDir(dir); err != nil {
		return nil, err
	}
	return c, nil
}

func run(state *lua.State, source string) (Scenario, error) {
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return Scenario{}, fmt.Errorf("run lua: %w", err)
	}
	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return Scenario{}, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	built, ok := ud.(*Scenario)
	if !ok || built == nil {
		return Scenario{}, fmt.Errorf("scenario script returned invalid Scenario")
	}
	s := *built
	if strings.TrimSpace(s.Name) == "" {
		s.Name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

func registerLuaTypes(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "dates", Function: scenarioDates},
	{Name: "population", Function: scenarioPopulation},
	{Name: "initial", Function: scenarioInitial},
	{Name: "force", Function: scenarioForce},
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	state.PushUserData(&Scenario{Name: name, InitialInfections: defaultInitialInfections})
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

func scenarioDates(state *lua.State) int {
	s := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	fields := map[string]*time.Time{
		"rampUpStart": &s.RampUpStartDate,
		"rampUpEnd":   &s.RampUpEndDate,
		"finish":      &s.EndDate,
	}
	for key, target := range fields {
		state.Field(2, key)
		if state.IsNoneOrNil(-1) {
			state.Pop(1)
			continue
		}
		value, _ := state.ToString(-1)
		state.Pop(1)
		*target = checkDate(state, value)
	}
	return 0
}

func scenarioPopulation(state *lua.State) int {
	s := checkScenario(state)
	s.Population = lua.CheckNumber(state, 2)
	return 0
}

func scenarioInitial(state *lua.State) int {
	s := checkScenario(state)
	s.InitialInfections = lua.CheckNumber(state, 2)
	return 0
}

func scenarioForce(state *lua.State) int {
	s := checkScenario(state)
	from := checkDate(state, lua.CheckString(state, 2))
	to := checkDate(state, lua.CheckString(state, 3))
	lua.CheckType(state, 4, lua.TypeTable)
	s.Forced = append(s.Forced, Forced{From: from, To: to, Config: tableToConfiguration(state, 4)})
	return 0
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if s, ok := ud.(*Scenario); ok && s != nil {
		return s
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func checkDate(state *lua.State, value string) time.Time {
	day, err := calendar.Parse(value)
	if err != nil {
		lua.Errorf(state, "%s", err.Error())
	}
	return day
}

func tableToConfiguration(state *lua.State, index int) mitigation.Configuration {
	cfg := mitigation.Configuration{}
	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			id, _ := state.ToString(-2)
			level, _ := state.ToString(-1)
			cfg[id] = level
		}
		state.Pop(1)
	}
	return cfg
}
