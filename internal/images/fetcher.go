package images

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes caps downloaded images
const DefaultMaxBytes = 20 << 20

// Fetcher turns image references into bytes
type Fetcher struct {
	HTTPClient *http.Client
	MaxBytes   int64
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxBytes: DefaultMaxBytes,
	}
}

// ValidateRef checks that ref is an image data URL or an http(s) URL
func ValidateRef(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return fmt.Errorf("image reference is empty")
	}

	if strings.HasPrefix(ref, "data:") {
		mediaType, _, _, ok := splitDataURL(ref)
		if !ok {
			return fmt.Errorf("malformed data URL")
		}
		if !strings.HasPrefix(mediaType, "image/") {
			return fmt.Errorf("data URL is not an image: %s", mediaType)
		}
		return nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return fmt.Errorf("invalid image URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("image URL must be http(s) or a data URL")
	}
	return nil
}

// Resolve returns the raw bytes and MIME type behind ref
func (f *Fetcher) Resolve(ctx context.Context, ref string) ([]byte, string, error) {
	if strings.HasPrefix(ref, "data:") {
		return DecodeDataURL(ref)
	}
	if err := ValidateRef(ref); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("image exceeds %d bytes", limit)
	}

	mimeType := headerImageType(resp.Header.Get("Content-Type"))
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("URL did not return an image: %s", mimeType)
	}

	slog.Debug("Fetched image", "url", ref, "bytes", len(data), "mime", mimeType)
	return data, mimeType, nil
}

// DecodeDataURL decodes a base64 or percent-encoded data URL
func DecodeDataURL(ref string) ([]byte, string, error) {
	mediaType, payload, isBase64, ok := splitDataURL(ref)
	if !ok {
		return nil, "", fmt.Errorf("malformed data URL")
	}

	var data []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("failed to decode data URL: %w", err)
		}
		data = decoded
	} else {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("failed to decode data URL: %w", err)
		}
		data = []byte(decoded)
	}
	if mediaType == "" {
		mediaType = mimetype.Detect(data).String()
	}
	return data, mediaType, nil
}

// DataURL encodes data as a base64 data URL
func DataURL(data []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// FileToDataURL reads an image file and encodes it as a data URL
func FileToDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image file: %w", err)
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, mtype.String())
	}
	return DataURL(data, mtype.String()), nil
}

// ToRef accepts a URL or data URL as-is and converts anything else, treated
// as a local path, into a data URL.
func ToRef(arg string) (string, error) {
	if strings.HasPrefix(arg, "data:") || strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return arg, ValidateRef(arg)
	}
	return FileToDataURL(arg)
}

// splitDataURL parses data:<type>[;params][;base64],<payload>
func splitDataURL(ref string) (mediaType, payload string, isBase64, ok bool) {
	rest, found := strings.CutPrefix(ref, "data:")
	if !found {
		return "", "", false, false
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found || payload == "" {
		return "", "", false, false
	}
	meta, isBase64 = strings.CutSuffix(meta, ";base64")
	if i := strings.Index(meta, ";"); i >= 0 {
		meta = meta[:i]
	}
	return strings.ToLower(strings.TrimSpace(meta)), payload, isBase64, true
}

func headerImageType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return ""
	}
	return mediaType
}
