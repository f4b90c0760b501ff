package enums

import "fmt"

// VideoDuration is the clip length in seconds. The provider only accepts a
// fixed set of values, so the duration is an enum rather than a free integer.
type VideoDuration int

const (
	VideoDurationShort  VideoDuration = 4
	VideoDurationMedium VideoDuration = 8
	VideoDurationLong   VideoDuration = 12
)

var validVideoDurations = []VideoDuration{
	VideoDurationShort,
	VideoDurationMedium,
	VideoDurationLong,
}

// Seconds returns the duration as a plain integer.
func (v VideoDuration) Seconds() int {
	return int(v)
}

// IsValid reports whether the value is a provider-supported duration.
func (v VideoDuration) IsValid() bool {
	for _, candidate := range validVideoDurations {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVideoDuration converts the raw integer to VideoDuration.
func ParseVideoDuration(value int) (VideoDuration, error) {
	for _, candidate := range validVideoDurations {
		if int(candidate) == value {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("invalid video duration %d", value)
}
