// Package storage keeps post thumbnails on the local filesystem.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/slug"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMaxDimension = 1280
	DefaultMaxBytes     = 5 * 1024 * 1024
	JPEGQuality         = 82
	WebPQuality         = 70

	// PublicPrefix is the URL path under which thumbnails are served.
	PublicPrefix  = "/uploads/thumbnails/"
	thumbnailsDir = "thumbnails"
)

// Config configures Thumbnails.
type Config struct {
	// Dir is the upload root; files land in Dir/thumbnails.
	Dir          string
	MaxBytes     int64
	MaxDimension int
}

// Upload is one received thumbnail file.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Thumbnails validates, downsizes and stores post thumbnails.
type Thumbnails struct {
	dir          string
	maxBytes     int64
	maxDimension int
	now          func() time.Time
}

// NewThumbnails creates a thumbnail store.
func NewThumbnails(cfg Config) *Thumbnails {
	t := &Thumbnails{
		dir:          cfg.Dir,
		maxBytes:     cfg.MaxBytes,
		maxDimension: cfg.MaxDimension,
		now:          time.Now,
	}
	if t.dir == "" {
		t.dir = "uploads"
	}
	if t.maxBytes <= 0 {
		t.maxBytes = DefaultMaxBytes
	}
	if t.maxDimension <= 0 {
		t.maxDimension = DefaultMaxDimension
	}
	return t
}

// Dir returns the upload root served at /uploads.
func (t *Thumbnails) Dir() string {
	return t.dir
}

// MaxBytes returns the upload size cap.
func (t *Thumbnails) MaxBytes() int64 {
	return t.maxBytes
}

// Save stores the upload and returns its public path, e.g.
// "/uploads/thumbnails/cover-1700000000000-1a2b3c4d.png".
func (t *Thumbnails) Save(ctx context.Context, in Upload) (path string, err error) {
	_, end := observability.StartSpan(ctx, "thumbnails.save",
		attribute.Int("thumbnail.upload_bytes", len(in.Content)),
	)
	defer func() { end(err) }()

	if len(in.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > t.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", t.maxBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return "", models.NewValidationError("Only JPEG, PNG and WebP images are allowed")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	sourceMimeType := decodedFormatToMime(format)
	if sourceMimeType == "" {
		return "", models.NewValidationError("Only JPEG, PNG and WebP images are allowed")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, sourceMimeType) {
		return "", models.NewValidationError("Image content type mismatch")
	}

	resized := resizeToFit(decoded, t.maxDimension, t.maxDimension)
	encoded, ext, err := encodeAs(resized, sourceMimeType)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	name := t.fileName(in.Filename, ext)
	if err := writeBytesToFile(filepath.Join(t.dir, thumbnailsDir, name), encoded); err != nil {
		return "", models.NewInternalError(err)
	}

	observability.ThumbnailBytes.Observe(float64(len(encoded)))
	return PublicPrefix + name, nil
}

// Remove deletes the file behind a thumbnail URL or path. URLs that do not
// point into the thumbnail directory are ignored.
func (t *Thumbnails) Remove(publicURL string) error {
	idx := strings.LastIndex(publicURL, PublicPrefix)
	if idx < 0 {
		return nil
	}
	name := publicURL[idx+len(PublicPrefix):]
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(t.dir, thumbnailsDir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (t *Thumbnails) fileName(original, ext string) string {
	base := slug.Derive(strings.TrimSuffix(filepath.Base(original), filepath.Ext(original)))
	if base == "" {
		base = "thumbnail"
	}
	if len(base) > 64 {
		base = strings.TrimSuffix(base[:64], "-")
	}
	return fmt.Sprintf("%s-%d-%s%s", base, t.now().UnixMilli(), uuid.New().String()[:8], ext)
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeAs(img image.Image, mimeType string) ([]byte, string, error) {
	buf := bytes.NewBuffer(nil)
	switch mimeType {
	case "image/png":
		if err := png.Encode(buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ".png", nil
	case "image/webp":
		if err := webp.Encode(buf, img, &webp.Options{Quality: float32(WebPQuality)}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ".webp", nil
	default:
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ".jpg", nil
	}
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
