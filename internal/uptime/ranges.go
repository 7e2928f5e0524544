package uptime

// DefaultRange is used when an uptime request carries no range label.
const DefaultRange = "24h"

var uptimeRanges = map[string]int64{
	"24h": 86400,
	"7d":  604800,
	"30d": 2592000,
}

// ResolveRange maps an uptime range label to its lookback in seconds.
// Unknown labels fall back to 24h but are returned unchanged for echoing.
func ResolveRange(label string) (string, int64) {
	if label == "" {
		label = DefaultRange
	}
	if seconds, ok := uptimeRanges[label]; ok {
		return label, seconds
	}
	return label, uptimeRanges[DefaultRange]
}
