package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/oklog/ulid/v2"

	"github.com/FACorreiaa/learnhub-api/config"
	"github.com/FACorreiaa/learnhub-api/internal/api"
)

var ErrNotConfigured = errors.New("object storage is not configured")

// Object is a stored file: Key is the provider public id, URL its https
// delivery address.
type Object struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Cloudinary stores uploads under <folder>/<prefix>/<ulid>.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	upload uploadAPI
	folder string
	logger *slog.Logger
}

func NewCloudinary(cfg config.CloudinaryConfig, logger *slog.Logger) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrNotConfigured
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &Cloudinary{
		cld:    cld,
		upload: &cld.Upload,
		folder: cfg.Folder,
		logger: logger,
	}, nil
}

// NewKey returns a fresh, time-ordered object key under prefix.
func (c *Cloudinary) NewKey(prefix string) string {
	return path.Join(c.folder, strings.Trim(prefix, "/"), strings.ToLower(ulid.Make().String()))
}

// Put uploads r under a new key below prefix and returns its public URL.
func (c *Cloudinary) Put(ctx context.Context, prefix string, r io.Reader) (*Object, error) {
	l := c.logger.With(slog.String("method", "Put"), slog.String("prefix", prefix))
	key := c.NewKey(prefix)

	overwrite := false
	resp, err := c.upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     key,
		ResourceType: "auto",
		Overwrite:    &overwrite,
	})
	if err != nil {
		l.ErrorContext(ctx, "Upload failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		l.ErrorContext(ctx, "Upload rejected", slog.String("reason", resp.Error.Message))
		return nil, fmt.Errorf("cloudinary rejected upload: %s", resp.Error.Message)
	}

	l.DebugContext(ctx, "Object stored", slog.String("key", resp.PublicID))
	return &Object{Key: resp.PublicID, URL: resp.SecureURL}, nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (c *Cloudinary) Delete(ctx context.Context, key string) error {
	resp, err := c.upload.Destroy(ctx, uploader.DestroyParams{PublicID: key})
	if err != nil {
		return fmt.Errorf("failed to delete %s from Cloudinary: %w", key, err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("cloudinary rejected delete of %s: %s", key, resp.Error.Message)
	}
	return nil
}

// SignedURL returns a delivery URL carrying a signature so transformations
// cannot be tampered with.
func (c *Cloudinary) SignedURL(key string) (string, error) {
	img, err := c.cld.Image(key)
	if err != nil {
		return "", fmt.Errorf("failed to build asset for %s: %w", key, err)
	}
	img.Config.URL.SignURL = true
	img.Config.URL.Secure = true
	return img.String()
}

// Unavailable answers every upload with 503 when no provider is configured.
type Unavailable struct{}

func (Unavailable) Put(context.Context, string, io.Reader) (*Object, error) {
	return nil, api.WrapError(http.StatusServiceUnavailable, "File storage is not configured", ErrNotConfigured)
}
