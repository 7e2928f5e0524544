package metrics

// DefaultRange is used when a history request carries no range label.
const DefaultRange = "1h"

// DefaultMaxPoints caps the length of a history series.
const DefaultMaxPoints = 300

var historyRanges = map[string]int64{
	"1h":  3600,
	"6h":  21600,
	"24h": 86400,
	"30d": 2592000,
	"all": 0,
}

// ResolveRange maps a history range label to its lookback in seconds, where 0
// means "all time". An empty label is treated as DefaultRange. Unknown labels
// fall back to the 1h lookback; the returned label is always the one the
// caller supplied (or DefaultRange when empty) so responses can echo it.
func ResolveRange(label string) (string, int64) {
	if label == "" {
		label = DefaultRange
	}
	if seconds, ok := historyRanges[label]; ok {
		return label, seconds
	}
	return label, historyRanges[DefaultRange]
}

// BucketWidth returns the aggregation bucket width in seconds for a lookback.
func BucketWidth(rangeSeconds int64) int64 {
	switch {
	case rangeSeconds == 0:
		return 900
	case rangeSeconds > 86400:
		return 300
	default:
		return 30
	}
}

// BucketStart floors ts to the start of its bucket.
func BucketStart(ts, width int64) int64 {
	b := ts / width
	if ts%width != 0 && ts < 0 {
		b--
	}
	return b * width
}
