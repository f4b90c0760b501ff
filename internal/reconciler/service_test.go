package reconciler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cctvmagic/videomagic-backend/internal/videos"
	"github.com/cctvmagic/videomagic-backend/pkg/config"
	"github.com/cctvmagic/videomagic-backend/pkg/db/models"
	"github.com/cctvmagic/videomagic-backend/pkg/enums"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
	"github.com/cctvmagic/videomagic-backend/pkg/sora"
)

type fakeVideos struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.VideoJob
}

func newFakeVideos() *fakeVideos {
	return &fakeVideos{rows: make(map[uuid.UUID]*models.VideoJob)}
}

func (f *fakeVideos) add(job *models.VideoJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.rows[job.ID] = &cp
}

func (f *fakeVideos) CreateProcessing(ctx context.Context, input videos.CreateJobInput) (*models.VideoJob, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeVideos) Get(ctx context.Context, id uuid.UUID) (*models.VideoJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "video not found")
	}
	cp := *row
	return &cp, nil
}

func (f *fakeVideos) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.VideoJob, error) {
	return f.Get(ctx, id)
}

func (f *fakeVideos) FindActiveByJobID(ctx context.Context, jobID string) (*models.VideoJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.JobID != nil && *row.JobID == jobID && !row.Status.IsTerminal() {
			cp := *row
			return &cp, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active job")
}

func (f *fakeVideos) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.VideoJob, error) {
	return nil, nil
}

func (f *fakeVideos) ListRecentByUser(ctx context.Context, userID uuid.UUID) ([]models.VideoJob, error) {
	return nil, nil
}

func (f *fakeVideos) ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.VideoJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.VideoJob
	for _, row := range f.rows {
		if !row.Status.IsTerminal() && row.CreatedAt.Before(olderThan) {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeVideos) AttachJobID(ctx context.Context, id uuid.UUID, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[id]; ok {
		row.JobID = &jobID
	}
	return nil
}

func (f *fakeVideos) Complete(ctx context.Context, id uuid.UUID, videoURL string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.Status.IsTerminal() {
		return false, nil
	}
	row.Status = enums.VideoStatusCompleted
	row.VideoURL = &videoURL
	return true, nil
}

func (f *fakeVideos) Fail(ctx context.Context, id uuid.UUID, errorMessage string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.Status.IsTerminal() {
		return false, nil
	}
	row.Status = enums.VideoStatusFailed
	row.ErrorMessage = &errorMessage
	return true, nil
}

type fakeCredits struct {
	mu       sync.Mutex
	refunded map[uuid.UUID]int
}

func newFakeCredits() *fakeCredits {
	return &fakeCredits{refunded: make(map[uuid.UUID]int)}
}

func (f *fakeCredits) Debit(ctx context.Context, userID uuid.UUID, amount int) error { return nil }
func (f *fakeCredits) Grant(ctx context.Context, userID uuid.UUID, amount int) error { return nil }
func (f *fakeCredits) Balance(ctx context.Context, userID uuid.UUID) (int, error)    { return 0, nil }

func (f *fakeCredits) Refund(ctx context.Context, userID uuid.UUID, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunded[userID] += amount
	return nil
}

type fakeProvider struct {
	video       *sora.Video
	getErr      error
	content     []byte
	downloadErr error
}

func (f *fakeProvider) GetVideo(ctx context.Context, videoID string) (*sora.Video, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.video, nil
}

func (f *fakeProvider) DownloadContent(ctx context.Context, videoID string) (io.ReadCloser, string, error) {
	if f.downloadErr != nil {
		return nil, "", f.downloadErr
	}
	return io.NopCloser(bytes.NewReader(f.content)), "video/mp4", nil
}

type fakeUploader struct {
	uploadErr error
	gotBytes  []byte
}

func (f *fakeUploader) UploadVideo(ctx context.Context, userID, videoID string, content io.Reader) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	f.gotBytes = data
	return fmt.Sprintf("https://cdn.example/videos/%s/%s.mp4", userID, videoID), nil
}

func processingJob(userID uuid.UUID, jobID string) *models.VideoJob {
	id := jobID
	return &models.VideoJob{
		ID:         uuid.New(),
		UserID:     userID,
		Prompt:     "santa on a rooftop",
		Duration:   enums.VideoDurationShort.Seconds(),
		Model:      enums.VideoModelSora2,
		Size:       enums.VideoSizeLandscape,
		CreditCost: 1,
		Status:     enums.VideoStatusProcessing,
		JobID:      &id,
		CreatedAt:  time.Now(),
	}
}

func newTestService(t *testing.T, vids *fakeVideos, creds *fakeCredits, prov *fakeProvider, up uploader) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Videos:  vids,
		Credits: creds,
		Sora:    prov,
		Storage: up,
		Logger:  logger.New(logger.Options{Output: io.Discard}),
		Config:  config.GenerationConfig{PollInterval: time.Millisecond, PollMaxAttempts: 3},
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestResolveCompletedRelocatesVideo(t *testing.T) {
	vids := newFakeVideos()
	creds := newFakeCredits()
	job := processingJob(uuid.New(), "video_abc")
	vids.add(job)

	up := &fakeUploader{}
	svc := newTestService(t, vids, creds, &fakeProvider{
		video:   &sora.Video{ID: "video_abc", Status: sora.StatusCompleted},
		content: []byte("mp4-bytes"),
	}, up)

	got, err := svc.Resolve(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got.Status != enums.VideoStatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.VideoURL == nil || !strings.HasPrefix(*got.VideoURL, "https://cdn.example/videos/") {
		t.Fatalf("expected storage url, got %v", got.VideoURL)
	}
	if string(up.gotBytes) != "mp4-bytes" {
		t.Fatalf("uploaded content mismatch: %q", up.gotBytes)
	}
	if len(creds.refunded) != 0 {
		t.Fatal("completed jobs must not refund")
	}
}

func TestResolveCompletedFallsBackToProxy(t *testing.T) {
	vids := newFakeVideos()
	job := processingJob(uuid.New(), "video_abc")
	vids.add(job)

	svc := newTestService(t, vids, newFakeCredits(), &fakeProvider{
		video: &sora.Video{ID: "video_abc", Status: sora.StatusCompleted},
	}, &fakeUploader{uploadErr: fmt.Errorf("bucket unavailable")})

	got, err := svc.Resolve(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	want := ContentProxyPath(job.ID)
	if got.VideoURL == nil || *got.VideoURL != want {
		t.Fatalf("expected proxy path %s, got %v", want, got.VideoURL)
	}
	if got.Status != enums.VideoStatusCompleted {
		t.Fatalf("storage trouble must not block completion, got %s", got.Status)
	}
}

func TestResolveFailedRefundsOnce(t *testing.T) {
	vids := newFakeVideos()
	creds := newFakeCredits()
	userID := uuid.New()
	job := processingJob(userID, "video_abc")
	job.CreditCost = 3
	vids.add(job)

	svc := newTestService(t, vids, creds, &fakeProvider{
		video: &sora.Video{
			ID:     "video_abc",
			Status: sora.StatusFailed,
			Error:  &sora.VideoError{Message: "content policy violation"},
		},
	}, &fakeUploader{})

	got, err := svc.Resolve(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got.Status != enums.VideoStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != "content policy violation" {
		t.Fatalf("provider message lost: %v", got.ErrorMessage)
	}
	if creds.refunded[userID] != 3 {
		t.Fatalf("expected refund of 3, got %d", creds.refunded[userID])
	}

	// A second resolve loses the transition race and must not refund again.
	if _, err := svc.Resolve(context.Background(), job.ID); err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if creds.refunded[userID] != 3 {
		t.Fatalf("refund applied twice: %d", creds.refunded[userID])
	}
}

func TestResolveInFlightLeavesRowAlone(t *testing.T) {
	vids := newFakeVideos()
	job := processingJob(uuid.New(), "video_abc")
	vids.add(job)

	svc := newTestService(t, vids, newFakeCredits(), &fakeProvider{
		video: &sora.Video{ID: "video_abc", Status: sora.StatusInProgress},
	}, &fakeUploader{})

	got, err := svc.Resolve(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got.Status != enums.VideoStatusProcessing {
		t.Fatalf("in-flight row must stay processing, got %s", got.Status)
	}
}

func TestResolveByJobIDUnknownJob(t *testing.T) {
	svc := newTestService(t, newFakeVideos(), newFakeCredits(), &fakeProvider{}, &fakeUploader{})
	_, err := svc.ResolveByJobID(context.Background(), "video_missing")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSweepAbandonsAncientRows(t *testing.T) {
	vids := newFakeVideos()
	creds := newFakeCredits()
	userID := uuid.New()
	job := processingJob(userID, "video_old")
	job.CreatedAt = time.Now().Add(-48 * time.Hour)
	vids.add(job)

	svc := newTestService(t, vids, creds, &fakeProvider{
		video: &sora.Video{ID: "video_old", Status: sora.StatusInProgress},
	}, &fakeUploader{})

	if err := svc.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	got, err := vids.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != enums.VideoStatusFailed {
		t.Fatalf("ancient row must be abandoned, got %s", got.Status)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != timeoutMessage {
		t.Fatalf("expected timeout message, got %v", got.ErrorMessage)
	}
	if creds.refunded[userID] != job.CreditCost {
		t.Fatalf("abandoned row must refund, got %d", creds.refunded[userID])
	}
}
