package sora

// Provider-side job statuses. Anything that is not completed or failed is
// still in flight.
const (
	StatusQueued     = "queued"
	StatusInProgress = "in_progress"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Video is the provider's job object as returned by create and status calls.
type Video struct {
	ID       string      `json:"id"`
	Status   string      `json:"status"`
	Model    string      `json:"model,omitempty"`
	Progress int         `json:"progress,omitempty"`
	Seconds  string      `json:"seconds,omitempty"`
	Size     string      `json:"size,omitempty"`
	Error    *VideoError `json:"error,omitempty"`
}

// VideoError carries the provider's failure details for a job.
type VideoError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Terminal reports whether the provider will make no further progress.
func (v *Video) Terminal() bool {
	return v.Status == StatusCompleted || v.Status == StatusFailed
}

// FailureMessage returns a human-readable failure reason.
func (v *Video) FailureMessage() string {
	if v.Error != nil && v.Error.Message != "" {
		return v.Error.Message
	}
	return "video generation failed"
}

// CreateRequest describes one generation submission. When ImageData is
// present the request goes out as multipart with the image attached as
// input_reference, otherwise as JSON.
type CreateRequest struct {
	Prompt  string
	Model   string
	Size    string
	Seconds int

	ImageData     []byte
	ImageFileName string
	ImageMIMEType string
}

// WebhookEvent is the inbound completion notification payload.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

const (
	EventVideoCompleted = "video.completed"
	EventVideoFailed    = "video.failed"
)
