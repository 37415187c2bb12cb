package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/config"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
)

// Sentinel errors for supporting-document uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Supporting documents: a letter scan or a photo of one.
var allowedMIMETypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// MediaService stores supporting documents attached to requests.
type MediaService struct {
	cfg   *config.Config
	authz Authorizer
	log   zerolog.Logger
}

// NewMediaService creates a new MediaService.
func NewMediaService(cfg *config.Config, authz Authorizer, log zerolog.Logger) *MediaService {
	return &MediaService{
		cfg:   cfg,
		authz: authz,
		log:   log.With().Str("component", "media_service").Logger(),
	}
}

// SaveDocument stores an uploaded document under a random name and returns
// the URL to put into a request's documentUrl field.
func (s *MediaService) SaveDocument(actor model.Role, file multipart.File, header *multipart.FileHeader) (string, error) {
	if err := authorize(s.authz, actor, policy.ObjectMedia, policy.ActionUpload); err != nil {
		return "", err
	}

	contentType := header.Header.Get("Content-Type")
	ext, ok := allowedMIMETypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, contentType, strings.Join(allowedTypes(), ", "))
	}

	if header.Size > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	filename := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(s.cfg.UploadDir, filename))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	// Size from the header is client-reported; cap the copy as well.
	n, err := io.Copy(dst, io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	if n > s.cfg.MaxUploadBytes {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, s.cfg.MaxUploadBytes)
	}

	s.log.Info().Str("file", filename).Int64("bytes", n).Msg("Document uploaded")
	return "/uploads/" + filename, nil
}

func allowedTypes() []string {
	types := make([]string, 0, len(allowedMIMETypes))
	for t := range allowedMIMETypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
