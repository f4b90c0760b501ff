package enums

import "fmt"

// VideoSize is the output resolution sent to the generation provider.
type VideoSize string

const (
	VideoSizeLandscape VideoSize = "1280x720"
	VideoSizePortrait  VideoSize = "720x1280"
)

var validVideoSizes = []VideoSize{
	VideoSizeLandscape,
	VideoSizePortrait,
}

// String implements fmt.Stringer.
func (v VideoSize) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VideoSize.
func (v VideoSize) IsValid() bool {
	for _, candidate := range validVideoSizes {
		if candidate == v {
			return true
		}
	}
	return false
}

// Width returns the horizontal pixel count for the size.
func (v VideoSize) Width() int {
	if v == VideoSizePortrait {
		return 720
	}
	return 1280
}

// Height returns the vertical pixel count for the size.
func (v VideoSize) Height() int {
	if v == VideoSizePortrait {
		return 1280
	}
	return 720
}

// ParseVideoSize converts the raw string to VideoSize.
func ParseVideoSize(value string) (VideoSize, error) {
	for _, candidate := range validVideoSizes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid video size %q", value)
}
