// Package embed writes sidecar metadata into a copy of the image itself.
package embed

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/barasher/go-exiftool"
	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

// Embedder writes a record into an image, returning the path of the file it wrote.
type Embedder interface {
	Embed(imagePath string, record map[string]any) (string, error)
}

// Suffix is appended to the stem of the image copy that receives the metadata.
const Suffix = "_with_meta"

// fieldTags maps record fields to the tags they are written to.
var fieldTags = map[string][]string{
	"title":       {"Title", "Headline"},
	"description": {"ImageDescription", "Description"},
	"caption":     {"Caption-Abstract"},
}

// listTags receive list-valued fields as multiple values instead of a joined string.
var listTags = map[string][]string{
	"tags": {"Keywords", "Subject"},
}

// OutputPath returns where the embedded copy of image is written.
func OutputPath(image string) string {
	ext := filepath.Ext(image)
	return strings.TrimSuffix(image, ext) + Suffix + ext
}

// IsOutput reports whether path is an embedded copy written by Embed.
func IsOutput(path string) bool {
	return strings.HasSuffix(strings.TrimSuffix(path, filepath.Ext(path)), Suffix)
}

// Exif embeds metadata with exiftool.
type Exif struct {
	et *exiftool.Exiftool
}

// NewExif starts an exiftool process. Callers must Close it.
func NewExif() (*Exif, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &Exif{et: et}, nil
}

// Close stops the exiftool process.
func (e *Exif) Close() error {
	return e.et.Close()
}

// Embed copies image to OutputPath and writes record's descriptive fields into the copy.
func (e *Exif) Embed(image string, record map[string]any) (string, error) {
	out := OutputPath(image)
	if err := copy.Copy(image, out); err != nil {
		return "", fmt.Errorf("copy: %w", err)
	}

	fms := e.et.ExtractMetadata(out)
	if len(fms) == 0 {
		return "", fmt.Errorf("no metadata for %s", out)
	}
	if fms[0].Err != nil {
		return "", fmt.Errorf("extract %s: %w", out, fms[0].Err)
	}

	values, lists := Tags(record)
	for tag, v := range values {
		klog.V(1).Infof("%s: %s=%q", out, tag, v)
		fms[0].SetString(tag, v)
	}
	for tag, v := range lists {
		klog.V(1).Infof("%s: %s=%v", out, tag, v)
		fms[0].SetStrings(tag, v)
	}

	e.et.WriteMetadata(fms)
	if fms[0].Err != nil {
		return "", fmt.Errorf("write metadata to %s: %w", out, fms[0].Err)
	}
	klog.Infof("metadata embedded in %s", out)
	return out, nil
}

// Tags returns the single-valued and list-valued tags for record. Null and blank fields
// are skipped; list values bound for single-valued tags are joined with ", ".
func Tags(record map[string]any) (map[string]string, map[string][]string) {
	values := map[string]string{}
	lists := map[string][]string{}

	for field, tags := range fieldTags {
		s := flatten(record[field])
		if s == "" {
			continue
		}
		for _, t := range tags {
			values[t] = s
		}
	}

	for field, tags := range listTags {
		l := list(record[field])
		if len(l) == 0 {
			continue
		}
		for _, t := range tags {
			lists[t] = l
		}
	}

	return values, lists
}

func flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any, []string:
		return strings.Join(list(t), ", ")
	default:
		return fmt.Sprint(t)
	}
}

func list(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s := flatten(e); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, e := range t {
			if s := strings.TrimSpace(e); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, e := range strings.Split(t, ",") {
			if s := strings.TrimSpace(e); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
