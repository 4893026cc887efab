package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service stores portfolio artifacts in Cloudinary.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload sends the file to Cloudinary and returns a secure URL.
func (s *Service) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	folder := strings.Trim(s.folder, "/")
	publicID := buildPublicID(name)

	params := uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "auto",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("file uploaded to cloudinary")

	return result.SecureURL, nil
}

// Delete destroys the asset behind a URL previously returned by Upload.
func (s *Service) Delete(ctx context.Context, assetURL string) error {
	resourceType, publicID, err := parseAssetURL(assetURL)
	if err != nil {
		return err
	}

	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("failed to destroy asset: %w", err)
	}
	if result != nil && result.Error.Message != "" {
		return fmt.Errorf("failed to destroy asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", publicID).Msg("file removed from cloudinary")
	return nil
}

// parseAssetURL extracts the resource type and public id from a delivery URL
// such as https://res.cloudinary.com/<cloud>/image/upload/v17/folder/name.png.
func parseAssetURL(assetURL string) (string, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(assetURL))
	if err != nil || parsed.Path == "" {
		return "", "", errors.New("invalid asset url")
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	uploadIdx := -1
	for i, segment := range segments {
		if segment == "upload" {
			uploadIdx = i
			break
		}
	}
	if uploadIdx < 1 || uploadIdx == len(segments)-1 {
		return "", "", errors.New("invalid asset url")
	}

	resourceType := segments[uploadIdx-1]
	rest := segments[uploadIdx+1:]
	if len(rest) > 1 && strings.HasPrefix(rest[0], "v") && isDigits(rest[0][1:]) {
		rest = rest[1:]
	}
	publicID := strings.Join(rest, "/")
	if resourceType != "raw" {
		publicID = strings.TrimSuffix(publicID, filepath.Ext(publicID))
	}
	if publicID == "" {
		return "", "", errors.New("invalid asset url")
	}
	return resourceType, publicID, nil
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func buildPublicID(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}

	return fmt.Sprintf("%s-%d", base, time.Now().Unix())
}
