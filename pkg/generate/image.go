package generate

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": "image/heic",
}

// mimeType guesses the MIME type from the extension, defaulting to JPEG.
func mimeType(path string) string {
	if m, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return m
	}
	return "image/jpeg"
}

// LoadImage returns the bytes to upload for path and their MIME type. Images whose longest
// edge exceeds maxEdge are downscaled and re-encoded as JPEG; anything else, including
// formats that cannot be decoded locally, is sent as-is.
func LoadImage(path string, maxEdge int) ([]byte, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read: %w", err)
	}
	if maxEdge <= 0 {
		return raw, mimeType(path), nil
	}

	img, err := imgio.Open(path)
	if err != nil {
		klog.V(1).Infof("unable to decode %s locally, sending original: %v", path, err)
		return raw, mimeType(path), nil
	}

	b := img.Bounds()
	x, y := b.Dx(), b.Dy()
	if x == 0 || y == 0 {
		return nil, "", fmt.Errorf("%s has no pixels", path)
	}
	if x <= maxEdge && y <= maxEdge {
		return raw, mimeType(path), nil
	}

	if x >= y {
		y = y * maxEdge / x
		x = maxEdge
	} else {
		x = x * maxEdge / y
		y = maxEdge
	}
	klog.V(1).Infof("downscaling %s from %dx%d to %dx%d", path, b.Dx(), b.Dy(), x, y)

	rimg := transform.Resize(img, max(x, 1), max(y, 1), transform.Lanczos)
	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(85)(&buf, rimg); err != nil {
		return nil, "", fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// dataURL encodes bs as a base64 data URL.
func dataURL(bs []byte, mime string) string {
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(bs))
}
