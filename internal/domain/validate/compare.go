package validate

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/tidwall/gjson"
)

// DefaultEpsilon is the comparison tolerance for numeric leaves.
const DefaultEpsilon = 1e-9

// Close reports whether x and y agree within eps. The tolerance is relative
// when the larger magnitude is at least 1 and absolute below that.
func Close(x, y, eps float64) bool {
	if x == y {
		return true
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	diff := math.Abs(x - y)
	scale := math.Max(math.Abs(x), math.Abs(y))
	if scale >= 1 {
		return diff <= eps*scale
	}
	return diff <= eps
}

// Equal compares the JSON forms of want and got leaf by leaf. On mismatch it
// returns the dotted path of the first differing leaf.
func Equal(want, got any, eps float64) (string, bool, error) {
	a, err := json.Marshal(want)
	if err != nil {
		return "", false, fmt.Errorf("encode expected value: %w", err)
	}
	b, err := json.Marshal(got)
	if err != nil {
		return "", false, fmt.Errorf("encode submitted value: %w", err)
	}
	path, ok := EqualJSON(a, b, eps)
	return path, ok, nil
}

// EqualJSON compares two JSON documents: numbers within eps, everything
// else structurally.
func EqualJSON(want, got []byte, eps float64) (string, bool) {
	return compare("", gjson.ParseBytes(want), gjson.ParseBytes(got), eps)
}

func compare(path string, want, got gjson.Result, eps float64) (string, bool) {
	if want.Type != got.Type {
		return pathOrRoot(path), false
	}
	switch want.Type {
	case gjson.Number:
		return pathOrRoot(path), Close(want.Num, got.Num, eps)
	case gjson.String:
		return pathOrRoot(path), want.Str == got.Str
	case gjson.JSON:
		if want.IsArray() != got.IsArray() {
			return pathOrRoot(path), false
		}
		if want.IsArray() {
			return compareArrays(path, want.Array(), got.Array(), eps)
		}
		return compareObjects(path, want.Map(), got.Map(), eps)
	default:
		// Null, True and False are fully described by their type.
		return pathOrRoot(path), true
	}
}

func compareArrays(path string, want, got []gjson.Result, eps float64) (string, bool) {
	if len(want) != len(got) {
		return pathOrRoot(path), false
	}
	for i := range want {
		if p, ok := compare(join(path, fmt.Sprint(i)), want[i], got[i], eps); !ok {
			return p, false
		}
	}
	return "", true
}

func compareObjects(path string, want, got map[string]gjson.Result, eps float64) (string, bool) {
	for key := range got {
		if _, ok := want[key]; !ok {
			return join(path, key), false
		}
	}
	for _, key := range slices.Sorted(maps.Keys(want)) {
		other, ok := got[key]
		if !ok {
			return join(path, key), false
		}
		if p, ok := compare(join(path, key), want[key], other, eps); !ok {
			return p, false
		}
	}
	return "", true
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func pathOrRoot(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
