package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
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

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/observability"
	"github.com/noah-isme/school-portal-api/internal/repository"
	"github.com/noah-isme/school-portal-api/pkg/cloudinary"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the payload is not an image.
	ErrUploadTypeNotAllowed = errors.New("only image files are accepted")
	// ErrUploadMissing indicates no file part was sent.
	ErrUploadMissing = errors.New("file is required")
)

const fallbackWarning = "image host unavailable; the photo was not saved"

// AssetHost stores images and returns their public location.
type AssetHost interface {
	Upload(ctx context.Context, subfolder, name string, reader io.Reader) (cloudinary.Asset, error)
	Destroy(ctx context.Context, publicID string) error
}

// UploadService validates images and hands them to the asset host. When the
// host is missing or failing the caller receives an unsaved preview instead.
type UploadService interface {
	UploadImage(ctx context.Context, file *multipart.FileHeader, subfolder, userID string) (dto.PhotoUploadResponse, error)
	Discard(ctx context.Context, assetID string)
}

type uploadService struct {
	host    AssetHost
	repo    repository.UploadRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewUploadService constructs an upload service. host may be nil.
func NewUploadService(host AssetHost, repo repository.UploadRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &uploadService{
		host:    host,
		repo:    repo,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/school-portal-api/internal/service/upload"),
	}
}

func (s *uploadService) UploadImage(ctx context.Context, file *multipart.FileHeader, subfolder, userID string) (dto.PhotoUploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.image")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("upload.max_bytes", s.maxSize),
		attribute.String("upload.subfolder", subfolder),
	)

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if file == nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.PhotoUploadResponse{}, ErrUploadMissing
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return dto.PhotoUploadResponse{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return dto.PhotoUploadResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.PhotoUploadResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return dto.PhotoUploadResponse{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes()).String()
	mimeType := strings.ToLower(strings.TrimSpace(strings.Split(detected, ";")[0]))
	span.SetAttributes(attribute.String("upload.detected_mime", mimeType))
	if !strings.HasPrefix(mimeType, "image/") {
		observability.UploadRejected().WithLabelValues("type").Inc()
		span.SetStatus(codes.Error, "type not allowed")
		return dto.PhotoUploadResponse{}, ErrUploadTypeNotAllowed
	}

	sum := sha256.Sum256(buf.Bytes())
	resp := dto.PhotoUploadResponse{
		MimeType:  mimeType,
		SizeBytes: int64(buf.Len()),
		Checksum:  hex.EncodeToString(sum[:]),
		FileName:  sanitizeFileName(file.Filename),
	}

	if userID != "" && s.repo != nil {
		if existing, err := s.repo.FindByChecksum(ctx, userID, resp.Checksum); err == nil {
			span.SetAttributes(attribute.Bool("upload.deduplicated", true))
			resp.URL = existing.URL
			resp.AssetID = existing.AssetID
			resp.Persisted = true
			return resp, nil
		}
	}

	if s.host == nil {
		return s.fallback(span, resp, buf.Bytes(), nil), nil
	}

	asset, err := s.host.Upload(ctx, subfolder, resp.FileName, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return s.fallback(span, resp, buf.Bytes(), err), nil
	}

	resp.URL = asset.URL
	resp.AssetID = asset.PublicID
	resp.Width = asset.Width
	resp.Height = asset.Height
	resp.Persisted = true

	if s.repo != nil {
		record := models.UploadRecord{
			UserID:    userID,
			FileName:  resp.FileName,
			URL:       resp.URL,
			AssetID:   resp.AssetID,
			MimeType:  resp.MimeType,
			SizeBytes: resp.SizeBytes,
			Checksum:  resp.Checksum,
		}
		if err := s.repo.Create(ctx, &record); err != nil {
			s.logger.Warn().Err(err).Str("asset_id", resp.AssetID).Msg("failed to persist upload record")
		}
	}

	observability.UploadRequests().WithLabelValues(mimeType).Inc()
	span.SetStatus(codes.Ok, "stored")
	return resp, nil
}

// Discard removes an asset that is no longer referenced. Failures are logged.
func (s *uploadService) Discard(ctx context.Context, assetID string) {
	if s.host == nil || strings.TrimSpace(assetID) == "" {
		return
	}
	if err := s.host.Destroy(ctx, assetID); err != nil {
		s.logger.Warn().Err(err).Str("asset_id", assetID).Msg("failed to remove asset")
	}
}

func (s *uploadService) fallback(span trace.Span, resp dto.PhotoUploadResponse, payload []byte, cause error) dto.PhotoUploadResponse {
	if cause != nil {
		span.RecordError(cause)
		s.logger.Warn().Err(cause).Str("file_name", resp.FileName).Msg("asset host failed, returning preview")
	} else {
		s.logger.Warn().Str("file_name", resp.FileName).Msg("asset host not configured, returning preview")
	}
	observability.UploadRejected().WithLabelValues("host").Inc()
	span.SetAttributes(attribute.Bool("upload.fallback", true))

	resp.Persisted = false
	resp.Preview = fmt.Sprintf("data:%s;base64,%s", resp.MimeType, base64.StdEncoding.EncodeToString(payload))
	resp.Warning = fallbackWarning
	return resp
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
		base = fmt.Sprintf("photo-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".img"
	}
	return base + ext
}
