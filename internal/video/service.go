package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/make-video-api/internal/fetch"
	"github.com/maauso/make-video-api/internal/media"
	"github.com/maauso/make-video-api/internal/storage"
	"github.com/maauso/make-video-api/internal/video/id"
)

// Static errors for render failures. Callers match them with errors.Is.
var (
	// ErrDownloadFailed is returned when either source could not be fetched.
	ErrDownloadFailed = errors.New("download failed")
	// ErrEncodeFailed is returned when the encoder could not produce the video.
	ErrEncodeFailed = errors.New("encode failed")
	// ErrReadOutput is returned when the finished video could not be read back.
	ErrReadOutput = errors.New("read output failed")
)

// Result is a rendered video held in memory.
type Result struct {
	// RequestID identifies the render in logs and temp file names.
	RequestID string
	// Filename is the attachment name for the download.
	Filename string
	// ContentType is always ContentType.
	ContentType string
	// Data is the complete MP4 file.
	Data []byte
	// ArchiveURL is the S3 URL of the archived copy, if archiving is enabled
	// and the upload succeeded.
	ArchiveURL string
}

// Service renders videos. It keeps no state between calls.
type Service struct {
	fetcher fetch.Fetcher
	encoder media.Encoder
	store   storage.Storage
	logger  *slog.Logger
	archive bool
	newID   func() string
}

// ServiceOption is a function that configures a Service.
type ServiceOption func(*Service)

// WithArchive uploads every rendered video to S3 when enabled.
// Upload failures are logged and never fail the render.
func WithArchive(enabled bool) ServiceOption {
	return func(s *Service) {
		s.archive = enabled
	}
}

// WithIDGenerator overrides how request IDs are generated for requests
// that arrive without one.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates a new Service.
func NewService(fetcher fetch.Fetcher, encoder media.Encoder, store storage.Storage, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		fetcher: fetcher,
		encoder: encoder,
		store:   store,
		logger:  logger,
		newID:   id.Generate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Render runs Fetch, Encode and Read for req and returns the video bytes.
// All temp files are removed before Render returns, whatever the outcome.
func (s *Service) Render(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.WithDefaults()

	item := &WorkItem{ID: req.ID}
	if item.ID == "" {
		item.ID = s.newID()
	}
	logger := s.logger.With(slog.String("request_id", item.ID))
	start := time.Now()

	defer s.cleanup(ctx, logger, item)

	logger.Info("downloading files",
		slog.String("image_url", req.ImageURL),
		slog.String("audio_url", req.AudioURL),
	)
	if err := s.fetchSources(ctx, req, item); err != nil {
		logger.Error("download failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	logger.Info("files downloaded, starting video generation",
		slog.Float64("duration", req.Duration),
	)
	if err := s.encode(ctx, req, item); err != nil {
		logger.Error("video generation failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}

	data, err := s.readOutput(ctx, item.OutputPath)
	if err != nil {
		logger.Error("failed to read output video", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrReadOutput, err)
	}

	result := &Result{
		RequestID:   item.ID,
		Filename:    req.Filename(),
		ContentType: ContentType,
		Data:        data,
	}

	if s.archive {
		result.ArchiveURL = s.archiveVideo(ctx, logger, item.ID+"/"+result.Filename, data)
	}

	logger.Info("video rendered",
		slog.String("filename", result.Filename),
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// fetchSources downloads the image and audio concurrently. If one fails the
// other is cancelled, and both goroutines have returned before it does.
func (s *Service) fetchSources(ctx context.Context, req Request, item *WorkItem) error {
	var imagePath, audioPath string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.fetcher.Fetch(gctx, req.ImageURL, item.ID+"_image")
		if err != nil {
			return fmt.Errorf("image: %w", err)
		}
		imagePath = p
		return nil
	})
	g.Go(func() error {
		p, err := s.fetcher.Fetch(gctx, req.AudioURL, item.ID+"_audio")
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		audioPath = p
		return nil
	})

	err := g.Wait()
	// Record whatever landed on disk so cleanup sees it even on failure.
	item.ImagePath = imagePath
	item.AudioPath = audioPath
	return err
}

func (s *Service) encode(ctx context.Context, req Request, item *WorkItem) error {
	out, err := s.store.ReserveTemp(ctx, item.ID+"_video", ".mp4")
	if err != nil {
		return fmt.Errorf("reserve output: %w", err)
	}
	item.OutputPath = out

	return s.encoder.Encode(ctx, media.EncodeParams{
		ImagePath:  item.ImagePath,
		AudioPath:  item.AudioPath,
		OutputPath: item.OutputPath,
		Duration:   req.Duration,
	})
}

func (s *Service) readOutput(ctx context.Context, path string) ([]byte, error) {
	rc, err := s.store.LoadTemp(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("read %s: output is empty", path)
	}
	return data, nil
}

func (s *Service) archiveVideo(ctx context.Context, logger *slog.Logger, key string, data []byte) string {
	url, err := s.store.UploadToS3(ctx, key, ContentType, bytes.NewReader(data))
	if err != nil {
		logger.Warn("failed to archive video",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return ""
	}
	logger.Info("video archived", slog.String("url", url))
	return url
}

// cleanup removes every temp file of item. It ignores cancellation of ctx
// so an aborted request still cleans up; failures are only logged.
func (s *Service) cleanup(ctx context.Context, logger *slog.Logger, item *WorkItem) {
	paths := item.Paths()
	if len(paths) == 0 {
		return
	}
	if err := s.store.CleanupTemp(context.WithoutCancel(ctx), paths); err != nil {
		logger.Warn("failed to cleanup temp files",
			slog.Any("paths", paths),
			slog.String("error", err.Error()),
		)
	}
}
