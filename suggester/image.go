package suggester

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const maxImageBytes = 8 << 20

var errUnsupportedImage = errors.New("unsupported image reference")

// loadImage resolves a listing image to bytes and a MIME type. src is a data URI or an
// http(s) URL.
func loadImage(ctx context.Context, client *http.Client, src string) ([]byte, string, error) {
	src = strings.TrimSpace(src)
	switch {
	case strings.HasPrefix(src, "data:"):
		return decodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return fetchImage(ctx, client, src)
	default:
		return nil, "", errUnsupportedImage
	}
}

// decodeDataURI handles data:[<mime>][;base64],<data>. The declared type is checked
// against the sniffed one because older builds always labelled images as PNG.
func decodeDataURI(src string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: malformed data URI", errUnsupportedImage)
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, "", fmt.Errorf("%w: data URI is not base64", errUnsupportedImage)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
			return nil, "", fmt.Errorf("decode data URI: %w", err)
		}
	}
	return data, imageMIME(data, strings.TrimSuffix(header, ";base64")), nil
}

func fetchImage(ctx context.Context, client *http.Client, src string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code %d when fetching image", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	return data, imageMIME(data, resp.Header.Get("Content-Type")), nil
}

func imageMIME(data []byte, declared string) string {
	sniffed := mimetype.Detect(data)
	if strings.HasPrefix(sniffed.String(), "image/") {
		return sniffed.String()
	}
	if declared = strings.TrimSpace(declared); strings.HasPrefix(declared, "image/") {
		if i := strings.Index(declared, ";"); i >= 0 {
			declared = declared[:i]
		}
		return declared
	}
	return "image/png"
}
