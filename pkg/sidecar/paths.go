// Package sidecar locates, migrates and validates the JSON metadata files that sit beside images.
package sidecar

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Ext is the extension of every sidecar file.
const Ext = ".json"

// ImageExts are the recognized image extensions, in the order companions are searched.
var ImageExts = []string{".png", ".jpg", ".jpeg", ".webp", ".gif", ".bmp", ".tif", ".tiff", ".heic"}

// ErrNoCompanionImage is returned when a sidecar has no image beside it.
var ErrNoCompanionImage = errors.New("no companion image")

// IsImage reports whether path has a recognized image extension.
func IsImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range ImageExts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsSidecar reports whether path has the sidecar extension.
func IsSidecar(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Ext)
}

// PathFor returns the sidecar path for an image: same directory and stem, .json extension.
func PathFor(image string) string {
	return strings.TrimSuffix(image, filepath.Ext(image)) + Ext
}

// ImageFor returns the first existing image with the sidecar's stem.
func ImageFor(sidecar string) (string, error) {
	stem := strings.TrimSuffix(sidecar, filepath.Ext(sidecar))
	for _, ext := range ImageExts {
		for _, candidate := range []string{stem + ext, stem + strings.ToUpper(ext)} {
			if Exists(candidate) {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("%s: %w", sidecar, ErrNoCompanionImage)
}

// Exists reports whether path exists and is a regular file.
func Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
