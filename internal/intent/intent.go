package intent

import "strings"

// Intent is the closed classification result steering plugin dispatch.
type Intent int

const (
	// IntentOther means no deterministic plugin applies.
	IntentOther Intent = iota
	IntentWeather
	IntentMath
	IntentDate
)

func (i Intent) String() string {
	switch i {
	case IntentWeather:
		return "WEATHER"
	case IntentMath:
		return "MATH"
	case IntentDate:
		return "DATE"
	default:
		return "OTHER"
	}
}

// Parse normalizes a raw classifier output (trim, uppercase) and maps it onto
// the closed intent set. Anything outside the set becomes IntentOther.
func Parse(raw string) Intent {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "WEATHER":
		return IntentWeather
	case "MATH":
		return IntentMath
	case "DATE":
		return IntentDate
	default:
		return IntentOther
	}
}
