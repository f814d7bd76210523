package event

import (
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/swehq/corona-game/internal/domain/epidemic"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// scopeDocument is what placeholders resolve against: the day's fields at
// the top level plus the accumulated data under eventData.
type scopeDocument struct {
	epidemic.DayState
	EventData Data `json:"eventData"`
}

func newScope(ctx Context) []byte {
	doc := scopeDocument{DayState: ctx.Day, EventData: ctx.Data}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	return encoded
}

// Interpolate replaces {{dotted.path}} placeholders in template with values
// from day and data. Unresolved placeholders are left as written.
func Interpolate(template string, day epidemic.DayState, data Data, formatter Formatter) string {
	return interpolate(template, newScope(Context{Input: Input{Day: day}, Data: data}), formatter)
}

func interpolate(template string, scope []byte, formatter Formatter) string {
	if template == "" || scope == nil {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		value := gjson.GetBytes(scope, path)
		if !value.Exists() {
			return match
		}
		switch value.Type {
		case gjson.Number:
			if formatter == nil {
				return strconv.FormatFloat(value.Float(), 'f', -1, 64)
			}
			return formatter.Format(value.Float())
		case gjson.String:
			return value.String()
		case gjson.True, gjson.False:
			return strconv.FormatBool(value.Bool())
		default:
			return match
		}
	})
}
