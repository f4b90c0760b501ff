package sora

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cctvmagic/videomagic-backend/pkg/config"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
)

const defaultTimeout = 60 * time.Second

// Client talks to the video generation provider over its REST surface.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient validates the provider credentials and returns a ready client.
func NewClient(ctx context.Context, cfg config.SoraConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("sora api key is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if baseURL == "" {
		return nil, errors.New("sora api url is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if logg != nil {
		logg.Info(ctx, "sora client initialized")
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}, nil
}

// Create submits a generation job. The provider expects seconds as a string
// in both encodings.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Video, error) {
	if c == nil {
		return nil, errors.New("sora client not initialized")
	}

	var (
		body        io.Reader
		contentType string
		err         error
	)
	if len(req.ImageData) > 0 {
		body, contentType, err = encodeMultipart(req)
	} else {
		body, contentType, err = encodeJSON(req)
	}
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return nil, fmt.Errorf("building create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", contentType)

	return c.doVideo(httpReq)
}

// GetVideo fetches the current job state.
func (c *Client) GetVideo(ctx context.Context, videoID string) (*Video, error) {
	if c == nil {
		return nil, errors.New("sora client not initialized")
	}
	if videoID == "" {
		return nil, errors.New("video id is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+videoID, nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.doVideo(httpReq)
}

// DownloadContent streams the finished video bytes. The caller owns the
// returned body and must close it.
func (c *Client) DownloadContent(ctx context.Context, videoID string) (io.ReadCloser, string, error) {
	if c == nil {
		return nil, "", errors.New("sora client not initialized")
	}
	if videoID == "" {
		return nil, "", errors.New("video id is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+videoID+"/content", nil)
	if err != nil {
		return nil, "", fmt.Errorf("building content request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("fetching video content: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, "", decodeAPIError(resp)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	return resp.Body, contentType, nil
}

func (c *Client) doVideo(req *http.Request) (*Video, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling sora api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	var video Video
	if err := json.NewDecoder(resp.Body).Decode(&video); err != nil {
		return nil, fmt.Errorf("decoding sora response: %w", err)
	}
	if video.ID == "" {
		return nil, errors.New("sora response missing video id")
	}
	return &video, nil
}

func encodeJSON(req CreateRequest) (io.Reader, string, error) {
	payload := map[string]string{
		"prompt":  req.Prompt,
		"model":   req.Model,
		"size":    req.Size,
		"seconds": strconv.Itoa(req.Seconds),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("encoding create payload: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

func encodeMultipart(req CreateRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"prompt":  req.Prompt,
		"model":   req.Model,
		"size":    req.Size,
		"seconds": strconv.Itoa(req.Seconds),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", name, err)
		}
	}

	fileName := req.ImageFileName
	if fileName == "" {
		fileName = "reference.jpg"
	}
	mimeType := req.ImageMIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{
		fmt.Sprintf(`form-data; name="input_reference"; filename=%q`, fileName),
	}
	header["Content-Type"] = []string{mimeType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("creating image part: %w", err)
	}
	if _, err := part.Write(req.ImageData); err != nil {
		return nil, "", fmt.Errorf("writing image bytes: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalizing multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// APIError is a non-2xx provider response with its message extracted.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sora api error (status %d): %s", e.StatusCode, e.Message)
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	message := strings.TrimSpace(string(raw))
	var envelope struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		switch {
		case envelope.Error != nil && envelope.Error.Message != "":
			message = envelope.Error.Message
		case envelope.Message != "":
			message = envelope.Message
		}
	}
	if message == "" {
		message = "request failed"
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
