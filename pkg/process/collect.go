package process

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tstromberg/picmeta/pkg/sidecar"
)

// csvColumns are the header names recognized as holding image paths, in priority order.
var csvColumns = []string{"image_path", "path", "file", "filepath"}

// ErrNoPathColumn is returned for a CSV with a header but no recognized path column.
var ErrNoPathColumn = errors.New("CSV must include an 'image_path' column or be a single-column list of paths")

// Collect gathers images from every input source, deduplicated in first-seen order.
func Collect(single string, batch []string, csvPath, dir string, recursive bool) ([]string, error) {
	var images []string
	seen := map[string]bool{}
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			images = append(images, p)
		}
	}

	if single != "" {
		add(single)
	}
	for _, b := range batch {
		add(b)
	}

	if csvPath != "" {
		rows, err := ParseCSV(csvPath)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			add(r)
		}
	}

	if dir != "" {
		st, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("directory not found: %s", dir)
		}
		if !st.IsDir() {
			return nil, fmt.Errorf("not a directory: %s", dir)
		}
		found, err := sidecar.FindImages(dir, recursive)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}

	return images, nil
}

// ParseCSV reads image paths from a CSV file. A first row naming an image_path, path, file or
// filepath column is a header, and paths are read from that column. A multi-column first row
// with nothing resembling a path is a header too, and an error since it names no path column.
// Otherwise the first column holds the paths.
func ParseCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("CSV file not found: %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse CSV %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := 0
	if header := rows[0]; isHeader(header) {
		col = column(header)
		if col < 0 {
			return nil, fmt.Errorf("%s: %w", path, ErrNoPathColumn)
		}
		rows = rows[1:]
	}

	var out []string
	for _, rec := range rows {
		if col >= len(rec) {
			continue
		}
		if v := strings.TrimSpace(rec[col]); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

func isHeader(row []string) bool {
	if column(row) >= 0 {
		return true
	}
	if len(row) < 2 {
		return false
	}
	for _, c := range row {
		if looksLikePath(strings.TrimSpace(c)) {
			return false
		}
	}
	return true
}

func looksLikePath(s string) bool {
	return sidecar.IsImage(s) || strings.ContainsAny(s, `/\`) || filepath.Ext(s) != ""
}

func column(header []string) int {
	idx := map[string]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	for _, c := range csvColumns {
		if i, ok := idx[c]; ok {
			return i
		}
	}
	return -1
}
