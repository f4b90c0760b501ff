package enums

import "fmt"

// VideoModel identifies the generation model tier requested by the user.
type VideoModel string

const (
	VideoModelSora2      VideoModel = "sora-2"
	VideoModelSora2Pro   VideoModel = "sora-2-pro"
	VideoModelSora2ProHD VideoModel = "sora-2-pro-HD"
)

var validVideoModels = []VideoModel{
	VideoModelSora2,
	VideoModelSora2Pro,
	VideoModelSora2ProHD,
}

// String implements fmt.Stringer.
func (v VideoModel) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VideoModel.
func (v VideoModel) IsValid() bool {
	for _, candidate := range validVideoModels {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVideoModel converts the raw string to VideoModel.
func ParseVideoModel(value string) (VideoModel, error) {
	for _, candidate := range validVideoModels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid video model %q", value)
}
