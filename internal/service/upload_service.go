package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/portfolio-api/internal/dto"
	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/observability"
	"github.com/noah-isme/portfolio-api/internal/repository"
	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/workflow"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates validation of the file failed.
	ErrUploadScanFailed = errors.New("file scanning failed")
	// ErrUploadMissing indicates the request carried no file.
	ErrUploadMissing = errors.New("file is required")
	// ErrStorageUnavailable indicates the artifact store failed; the upload may be retried.
	ErrStorageUnavailable = errors.New("artifact storage unavailable")
)

// BlobStore abstracts the artifact storage backend.
type BlobStore interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// UploadService handles validation and persistence of artifact uploads.
type UploadService interface {
	ArtifactRemover
	Upload(ctx context.Context, user session.User, file *multipart.FileHeader, processDocumentation bool) (dto.UploadResponse, error)
}

type uploadService struct {
	storage BlobStore
	repo    repository.UploadRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
	now     func() time.Time
}

// NewUploadService constructs an upload service.
func NewUploadService(storage BlobStore, repo repository.UploadRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		storage: storage,
		repo:    repo,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/portfolio-api/internal/service/upload"),
		now:     time.Now,
	}
}

func (s *uploadService) Upload(ctx context.Context, user session.User, file *multipart.FileHeader, processDocumentation bool) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store", trace.WithAttributes(
		attribute.Int64("upload.max_bytes", s.maxSize),
		attribute.Bool("upload.process_documentation", processDocumentation),
	))
	defer span.End()

	start := time.Now()
	defer func() { observability.UploadLatency().Observe(time.Since(start).Seconds()) }()

	// reject records why an upload was refused; reason is empty for failures
	// that are not counted as rejections.
	reject := func(reason string, err error) (dto.UploadResponse, error) {
		if reason != "" {
			observability.UploadRejected().WithLabelValues(reason).Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dto.UploadResponse{}, err
	}

	if !user.Authenticated() {
		return reject("", ErrForbidden)
	}
	if file == nil {
		return reject("", ErrUploadMissing)
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
		attribute.Int("upload.user_id", int(user.ID)),
	)
	if file.Size > s.maxSize {
		return reject("size", ErrUploadTooLarge)
	}

	payload, err := s.read(file)
	if err != nil {
		if errors.Is(err, ErrUploadTooLarge) {
			return reject("size", err)
		}
		return reject("", err)
	}

	detected := mimetype.Detect(payload)
	fileType := normalizeMime(detected.String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !isAllowedType(fileType) {
		return reject("type", ErrUploadTypeNotAllowed)
	}
	if err := s.scan(payload, fileType); err != nil {
		return reject("scan", err)
	}

	sum := sha256.Sum256(payload)
	checksum := hex.EncodeToString(sum[:])
	name := sanitizeFileName(file.Filename)
	span.SetAttributes(
		attribute.String("upload.sanitized_name", name),
		attribute.Int64("upload.size_bytes", int64(len(payload))),
	)

	existing, err := s.repo.FindByChecksum(ctx, user.ID, checksum)
	switch {
	case err == nil:
		span.SetAttributes(attribute.Bool("upload.deduplicated", true))
		span.SetStatus(codes.Ok, "deduplicated")
		s.logger.Debug().Uint("user_id", user.ID).Str("url", existing.URL).Msg("reusing identical upload")
		return s.response(existing, file.Filename, detected.String(), processDocumentation), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Warn().Err(err).Msg("upload dedupe lookup failed")
	}

	url, err := s.storage.Upload(ctx, name, bytes.NewReader(payload))
	if err != nil {
		return reject("storage", fmt.Errorf("%w: %v", ErrStorageUnavailable, err))
	}

	owner := user.ID
	record := models.UploadRecord{
		UserID:    &owner,
		FileName:  name,
		URL:       url,
		MimeType:  fileType,
		SizeBytes: int64(len(payload)),
		Checksum:  checksum,
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		return reject("", err)
	}

	observability.UploadRequests().WithLabelValues(fileType).Inc()
	span.SetStatus(codes.Ok, "stored")
	s.logger.Info().Uint("user_id", user.ID).Str("type", fileType).Int64("bytes", record.SizeBytes).Msg("artifact stored")

	return s.response(record, file.Filename, detected.String(), processDocumentation), nil
}

// read loads the upload into memory, refusing payloads larger than the limit
// even when the multipart header understated the size.
func (s *uploadService) read(file *multipart.FileHeader) ([]byte, error) {
	handle, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	payload, err := io.ReadAll(io.LimitReader(handle, s.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > s.maxSize {
		return nil, ErrUploadTooLarge
	}
	return payload, nil
}

func (s *uploadService) response(record models.UploadRecord, originalName, mimeType string, processDocumentation bool) dto.UploadResponse {
	now := s.now().UTC()
	return dto.UploadResponse{
		URL:       record.URL,
		SizeBytes: record.SizeBytes,
		MimeType:  record.MimeType,
		Checksum:  record.Checksum,
		FileName:  record.FileName,
		File: workflow.FileRef{
			URL:                    record.URL,
			Name:                   strings.TrimSpace(originalName),
			Type:                   mimeType,
			Size:                   record.SizeBytes,
			CreatedAt:              now,
			UpdatedAt:              now,
			IsProcessDocumentation: processDocumentation,
		},
	}
}

// Remove deletes an artifact from blob storage and forgets its upload record.
func (s *uploadService) Remove(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "upload.remove", trace.WithAttributes(attribute.String("upload.url", url)))
	defer span.End()

	if err := s.storage.Delete(ctx, url); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage delete failed")
		return err
	}
	if err := s.repo.DeleteByURL(ctx, url); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *uploadService) scan(payload []byte, mime string) error {
	if strings.Contains(mime, "zip") {
		reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
		if err != nil {
			return ErrUploadScanFailed
		}
		var totalUncompressed uint64
		for _, f := range reader.File {
			totalUncompressed += f.UncompressedSize64
			if totalUncompressed > uint64(s.maxSize*20) {
				return fmt.Errorf("zip archive uncompressed size too large: %w", ErrUploadScanFailed)
			}
		}
	}
	return nil
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	switch {
	case strings.HasPrefix(lower, "image/"):
		return "image"
	case strings.HasPrefix(lower, "video/"):
		return "video"
	case strings.HasPrefix(lower, "audio/"):
		return "audio"
	}
	switch lower {
	case "application/pdf":
		return "application/pdf"
	case "application/zip", "application/x-zip-compressed":
		return "application/zip"
	default:
		return lower
	}
}

func isAllowedType(m string) bool {
	switch m {
	case "image", "video", "audio", "text/plain", "application/pdf", "application/zip",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return true
	default:
		return false
	}
}
