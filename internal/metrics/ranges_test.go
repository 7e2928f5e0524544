package metrics

import "testing"

func TestResolveRange(t *testing.T) {
	tests := []struct {
		in        string
		wantLabel string
		wantSecs  int64
	}{
		{"1h", "1h", 3600},
		{"6h", "6h", 21600},
		{"24h", "24h", 86400},
		{"30d", "30d", 2592000},
		{"all", "all", 0},
		{"", "1h", 3600},
		{"invalid", "invalid", 3600},
	}
	for _, tt := range tests {
		label, secs := ResolveRange(tt.in)
		if label != tt.wantLabel || secs != tt.wantSecs {
			t.Errorf("ResolveRange(%q) = (%q, %d), want (%q, %d)", tt.in, label, secs, tt.wantLabel, tt.wantSecs)
		}
	}
}

func TestBucketWidth(t *testing.T) {
	tests := map[int64]int64{
		0:       900,
		3600:    30,
		86400:   30,
		86401:   300,
		2592000: 300,
	}
	for rangeSecs, want := range tests {
		if got := BucketWidth(rangeSecs); got != want {
			t.Errorf("BucketWidth(%d) = %d, want %d", rangeSecs, got, want)
		}
	}
}

func TestBucketStart_ContainsTimestamp(t *testing.T) {
	for _, width := range []int64{30, 300, 900} {
		for _, ts := range []int64{-901, -1, 0, 1, 29, 30, 299, 1718452800, 1718452817} {
			b := BucketStart(ts, width)
			if !(b <= ts && ts < b+width) {
				t.Errorf("BucketStart(%d, %d) = %d, want b <= ts < b+width", ts, width, b)
			}
			if b%width != 0 {
				t.Errorf("BucketStart(%d, %d) = %d is not aligned", ts, width, b)
			}
		}
	}
}
