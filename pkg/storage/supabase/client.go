package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	storage_go "github.com/supabase-community/storage-go"

	"github.com/cctvmagic/videomagic-backend/pkg/config"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
)

const videoContentType = "video/mp4"

// uploader is the slice of the storage SDK the client needs. Narrowed so
// tests can substitute a fake.
type uploader interface {
	UploadFile(bucketID string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketID string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse
}

// Client stores finished renders in the hosted object store and hands back
// public playback URLs.
type Client struct {
	storage uploader
	bucket  string
}

// NewClient wires the storage SDK against the project's storage endpoint
// using the service role key. Uploads bypass row-level security, so the
// anon key is not accepted here.
func NewClient(ctx context.Context, cfg config.SupabaseConfig, storageCfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	projectURL := strings.TrimRight(strings.TrimSpace(cfg.ProjectURL), "/")
	if projectURL == "" {
		return nil, errors.New("supabase project url is required")
	}
	if cfg.ServiceRoleKey == "" {
		return nil, errors.New("supabase service role key is required for storage")
	}
	bucket := storageCfg.VideosBucket
	if bucket == "" {
		return nil, errors.New("videos bucket name is required")
	}

	storageClient := storage_go.NewClient(projectURL+"/storage/v1", cfg.ServiceRoleKey, nil)

	if logg != nil {
		logg.Info(ctx, "supabase storage client initialized")
	}

	return &Client{storage: storageClient, bucket: bucket}, nil
}

// VideoObjectPath returns the canonical object key for a finished render.
func VideoObjectPath(userID, videoID string) string {
	return fmt.Sprintf("%s/%s.mp4", userID, videoID)
}

// UploadVideo writes the video bytes to {userID}/{videoID}.mp4 in the videos
// bucket and returns the public playback URL.
func (c *Client) UploadVideo(ctx context.Context, userID, videoID string, content io.Reader) (string, error) {
	if c == nil || c.storage == nil {
		return "", errors.New("storage client not initialized")
	}
	if userID == "" || videoID == "" {
		return "", errors.New("user id and video id are required")
	}

	path := VideoObjectPath(userID, videoID)
	contentType := videoContentType
	upsert := true
	_, err := c.storage.UploadFile(c.bucket, path, content, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("uploading video %s: %w", path, err)
	}

	return c.PublicURL(path), nil
}

// PublicURL resolves the public URL for an object in the videos bucket.
func (c *Client) PublicURL(path string) string {
	if c == nil || c.storage == nil {
		return ""
	}
	resp := c.storage.GetPublicUrl(c.bucket, path)
	return resp.SignedURL
}

// Bucket reports the configured videos bucket.
func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}
