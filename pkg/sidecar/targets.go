package sidecar

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"
)

// resolver accumulates targets in first-seen order, deduplicated by absolute path.
type resolver struct {
	recursive bool
	targets   []string
	warnings  []string
	seen      map[string]bool
	csvs      map[string]bool
}

// ResolveTargets expands batch inputs (directories, sidecars, images and CSV lists) into the
// sidecar files to migrate. When batch is empty, or resolves to nothing, every sidecar under
// gallery is used instead. Problems with individual inputs are returned as warnings.
func ResolveTargets(gallery string, batch []string, recursive bool) ([]string, []string) {
	r := &resolver{recursive: recursive, seen: map[string]bool{}, csvs: map[string]bool{}}

	for _, b := range batch {
		r.resolve(absPath(b))
	}

	if len(r.targets) == 0 && gallery != "" {
		if len(batch) > 0 {
			klog.Infof("no sidecars found for batch inputs; falling back to %s", gallery)
		}
		r.dir(absPath(gallery))
	}

	return r.targets, r.warnings
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func (r *resolver) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	klog.Warning(msg)
	r.warnings = append(r.warnings, msg)
}

func (r *resolver) add(path string) {
	path = absPath(path)
	if r.seen[path] {
		return
	}
	r.seen[path] = true
	r.targets = append(r.targets, path)
}

func (r *resolver) resolve(path string) {
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		r.dir(path)
		return
	}

	switch ext := strings.ToLower(filepath.Ext(path)); {
	case ext == Ext:
		if !Exists(path) {
			r.warn("sidecar file not found: %s", path)
			return
		}
		r.add(path)
	case IsImage(path):
		sc := PathFor(path)
		if !Exists(sc) {
			r.warn("no sidecar found for image %s", path)
			return
		}
		r.add(sc)
	case ext == ".csv":
		r.csv(path)
	default:
		r.warn("unsupported batch item: %s", path)
	}
}

func (r *resolver) dir(path string) {
	found, err := FindSidecars(path, r.recursive)
	if err != nil {
		r.warn("unable to list %s: %v", path, err)
		return
	}
	for _, f := range found {
		r.add(f)
	}
}

// csv resolves each path in the first column relative to the CSV's directory.
func (r *resolver) csv(path string) {
	if r.csvs[path] {
		r.warn("skipping already visited CSV: %s", path)
		return
	}
	r.csvs[path] = true

	rows, err := readFirstColumn(path)
	if err != nil {
		r.warn("failed to read CSV %s: %v", path, err)
		return
	}

	base := filepath.Dir(path)
	for _, row := range rows {
		if !filepath.IsAbs(row) {
			row = filepath.Join(base, row)
		}
		r.resolve(filepath.Clean(row))
	}
}

// readFirstColumn returns the trimmed, non-empty first field of every record in a CSV file.
func readFirstColumn(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		if len(rec) == 0 {
			continue
		}
		if v := strings.TrimSpace(rec[0]); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}
