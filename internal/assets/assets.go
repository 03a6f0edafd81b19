package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

const DefaultPublicPrefix = "/static/images/products"

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrEmptyUpload      = errors.New("empty upload")
)

var allowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Backend stores image objects under flat keys.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Manager struct {
	backend  Backend
	prefix   string
	maxWidth uint
}

// NewManager serves stored files under prefix. maxWidth > 0 enables
// down-scaling of wider JPEG and PNG uploads.
func NewManager(backend Backend, prefix string, maxWidth uint) *Manager {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultPublicPrefix
	}
	return &Manager{backend: backend, prefix: prefix, maxWidth: maxWidth}
}

func (m *Manager) Prefix() string { return m.prefix }

// Save stores the upload under a fresh name and returns its public path.
func (m *Manager) Save(ctx context.Context, up Upload) (string, error) {
	if up.Body == nil {
		return "", ErrEmptyUpload
	}
	ext := strings.ToLower(filepath.Ext(up.Filename))
	contentType, ok := allowedExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, ext)
	}

	data, err := io.ReadAll(up.Body)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	if sniffed := http.DetectContentType(data); !strings.HasPrefix(sniffed, "image/") {
		return "", fmt.Errorf("%w: content is %s", ErrUnsupportedImage, sniffed)
	}

	data, err = m.downscale(data, contentType)
	if err != nil {
		return "", err
	}

	key := uuid.NewString() + ext
	if err := m.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return m.prefix + "/" + key, nil
}

func (m *Manager) downscale(data []byte, contentType string) ([]byte, error) {
	if m.maxWidth == 0 || (contentType != "image/jpeg" && contentType != "image/png") {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if uint(img.Bounds().Dx()) <= m.maxWidth {
		return data, nil
	}

	scaled := resize.Resize(m.maxWidth, 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	if contentType == "image/png" {
		err = png.Encode(&buf, scaled)
	} else {
		err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Discard removes a previously saved file. Failures are logged only.
func (m *Manager) Discard(ctx context.Context, publicPath string) {
	if publicPath == "" {
		return
	}
	l := logging.FromContext(ctx).With("svc", "assets.discard", "path", publicPath)

	key, ok := strings.CutPrefix(publicPath, m.prefix+"/")
	if !ok || key == "" || key != path.Base(key) {
		l.Warn("discard_skipped", "reason", "path is not managed by this store")
		return
	}
	if err := m.backend.Delete(ctx, key); err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			l.Info("discard_skipped", "reason", "file already gone")
			return
		}
		l.Error("discard_failed", "error", err)
	}
}
