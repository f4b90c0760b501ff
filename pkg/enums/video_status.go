package enums

import "fmt"

// VideoStatus describes the allowed values for the `status` column in video_history.
type VideoStatus string

const (
	VideoStatusProcessing VideoStatus = "processing"
	// VideoStatusQueued is a historical pending label that still appears in
	// older rows. New rows always start as processing.
	VideoStatusQueued    VideoStatus = "queued"
	VideoStatusCompleted VideoStatus = "completed"
	VideoStatusFailed    VideoStatus = "failed"
)

var validVideoStatuses = []VideoStatus{
	VideoStatusProcessing,
	VideoStatusQueued,
	VideoStatusCompleted,
	VideoStatusFailed,
}

// String implements fmt.Stringer.
func (v VideoStatus) String() string {
	return string(v)
}

// IsValid reports whether the value matches the canonical video status enum.
func (v VideoStatus) IsValid() bool {
	for _, candidate := range validVideoStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (v VideoStatus) IsTerminal() bool {
	return v == VideoStatusCompleted || v == VideoStatusFailed
}

// ParseVideoStatus converts the raw string to VideoStatus.
func ParseVideoStatus(value string) (VideoStatus, error) {
	for _, candidate := range validVideoStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid video status %q", value)
}
