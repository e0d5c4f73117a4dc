// Package safeio reads and writes whole JSON documents without ever leaving a partial file behind.
package safeio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadJSON decodes the JSON object stored at path. Numbers are kept as json.Number so that
// rewriting a document never changes the precision of values it did not touch.
func ReadJSON(path string) (map[string]any, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeObject(bs)
}

// DecodeObject decodes a single JSON object.
func DecodeObject(bs []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(bs))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("decode: not a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode: trailing data after JSON object")
	}
	return m, nil
}

// Marshal renders v the way documents are stored on disk: two-space indent, trailing newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON replaces path with the JSON encoding of v.
func WriteJSON(path string, v any) error {
	bs, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return WriteFile(path, bs)
}

// WriteFile writes data to a temp file beside path and renames it into place, so readers
// observe either the old content or the new content, never a mix.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	mode := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil && st.Mode().Perm() != 0 {
		mode = st.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	success = true
	return nil
}

// AppendLine appends a single line to path, creating it (and its parents) if needed.
// Existing content is never truncated.
func AppendLine(path string, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line += "\n"
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("write: %w", err)
	}
	return f.Close()
}

// DeepCopy returns a copy of a JSON value tree that shares no maps or slices with v.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = DeepCopy(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = DeepCopy(vv)
		}
		return s
	default:
		return v
	}
}
