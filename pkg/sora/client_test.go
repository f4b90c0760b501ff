package sora

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cctvmagic/videomagic-backend/pkg/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), config.SoraConfig{
		APIURL:         server.URL,
		APIKey:         "sk-test",
		RequestTimeout: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("client init failed: %v", err)
	}
	return client, server
}

func TestCreateJSONRequest(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("bad auth header %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected json content type, got %q", got)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["seconds"] != "8" {
			t.Errorf("seconds must be encoded as string, got %q", payload["seconds"])
		}
		if payload["model"] != "sora-2" || payload["size"] != "1280x720" {
			t.Errorf("unexpected payload %v", payload)
		}
		json.NewEncoder(w).Encode(Video{ID: "video_abc", Status: StatusQueued})
	})

	client, _ := newTestClient(t, handler)
	video, err := client.Create(context.Background(), CreateRequest{
		Prompt:  "a cat on patrol",
		Model:   "sora-2",
		Size:    "1280x720",
		Seconds: 8,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if video.ID != "video_abc" || video.Terminal() {
		t.Fatalf("unexpected video %+v", video)
	}
}

func TestCreateMultipartWithImage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Fatalf("expected multipart, got %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("seconds"); got != "4" {
			t.Errorf("seconds field wrong: %q", got)
		}
		file, header, err := r.FormFile("input_reference")
		if err != nil {
			t.Fatalf("missing input_reference part: %v", err)
		}
		defer file.Close()
		if header.Filename != "frame.jpg" {
			t.Errorf("unexpected filename %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "jpegbytes" {
			t.Errorf("image bytes mangled: %q", data)
		}
		json.NewEncoder(w).Encode(Video{ID: "video_img", Status: StatusInProgress})
	})

	client, _ := newTestClient(t, handler)
	video, err := client.Create(context.Background(), CreateRequest{
		Prompt:        "a snowy street",
		Model:         "sora-2-pro",
		Size:          "720x1280",
		Seconds:       4,
		ImageData:     []byte("jpegbytes"),
		ImageFileName: "frame.jpg",
		ImageMIMEType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if video.ID != "video_img" {
		t.Fatalf("unexpected video %+v", video)
	}
}

func TestCreateSurfacesProviderError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"prompt rejected by moderation"}}`)
	})

	client, _ := newTestClient(t, handler)
	_, err := client.Create(context.Background(), CreateRequest{Prompt: "x", Model: "sora-2", Size: "1280x720", Seconds: 8})
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "prompt rejected by moderation" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestGetVideo(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video_abc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Video{ID: "video_abc", Status: StatusCompleted})
	})

	client, _ := newTestClient(t, handler)
	video, err := client.GetVideo(context.Background(), "video_abc")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !video.Terminal() || video.Status != StatusCompleted {
		t.Fatalf("unexpected video %+v", video)
	}
}

func TestDownloadContent(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video_abc/content" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "video/mp4")
		io.WriteString(w, "mp4bytes")
	})

	client, _ := newTestClient(t, handler)
	body, contentType, err := client.DownloadContent(context.Background(), "video_abc")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	defer body.Close()
	if contentType != "video/mp4" {
		t.Fatalf("unexpected content type %q", contentType)
	}
	data, _ := io.ReadAll(body)
	if string(data) != "mp4bytes" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestFailureMessageFallback(t *testing.T) {
	v := &Video{Status: StatusFailed}
	if got := v.FailureMessage(); got != "video generation failed" {
		t.Fatalf("unexpected fallback %q", got)
	}
	v.Error = &VideoError{Message: "internal capacity error"}
	if got := v.FailureMessage(); got != "internal capacity error" {
		t.Fatalf("unexpected message %q", got)
	}
}
