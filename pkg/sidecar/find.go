package sidecar

import (
	"fmt"
	"path/filepath"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

// FindImages returns every image under dir, in lexical order.
func FindImages(dir string, recursive bool) ([]string, error) {
	return find(dir, recursive, IsImage)
}

// FindSidecars returns every sidecar under dir, in lexical order.
func FindSidecars(dir string, recursive bool) ([]string, error) {
	return find(dir, recursive, IsSidecar)
}

// find walks dir, skipping hidden entries. Without recursive, only direct children are visited.
func find(dir string, recursive bool, match func(string) bool) ([]string, error) {
	found := []string{}
	root := filepath.Clean(dir)

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == root {
				return nil
			}
			if filepath.Base(path)[0] == '.' {
				return godirwalk.SkipThis
			}

			isDir, err := de.IsDirOrSymlinkToDir()
			if err != nil {
				return err
			}
			if isDir {
				if !recursive {
					return godirwalk.SkipThis
				}
				return nil
			}

			if match(path) {
				klog.V(2).Infof("found %s", path)
				found = append(found, path)
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	return found, nil
}
