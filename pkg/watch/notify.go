package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"

	"github.com/tstromberg/picmeta/pkg/sidecar"
)

// Notifier turns filesystem events into wake-ups for Run, so new images start their
// debounce period without waiting for the next poll.
type Notifier struct {
	w         *fsnotify.Watcher
	recursive bool
	wake      chan struct{}
}

// NewNotifier watches dir, and its subdirectories when recursive.
func NewNotifier(dir string, recursive bool) (*Notifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new watcher: %w", err)
	}
	n := &Notifier{w: w, recursive: recursive, wake: make(chan struct{}, 1)}

	if err := n.add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return n, nil
}

// Wake delivers at most one pending nudge at a time.
func (n *Notifier) Wake() <-chan struct{} {
	return n.wake
}

// Close stops watching.
func (n *Notifier) Close() error {
	return n.w.Close()
}

// Run forwards events until ctx is cancelled or the watcher is closed.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-n.w.Events:
			if !ok {
				return
			}
			klog.V(2).Infof("event: %v", event)
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}
			if n.recursive && event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := n.add(event.Name); err != nil {
					klog.V(1).Infof("not watching %s: %v", event.Name, err)
				}
			}
			if sidecar.IsImage(event.Name) || sidecar.IsSidecar(event.Name) {
				n.nudge()
			}
		case err, ok := <-n.w.Errors:
			if !ok {
				return
			}
			klog.Warningf("watch error: %v", err)
		}
	}
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func (n *Notifier) nudge() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// add watches path if it is a directory, along with its visible subdirectories when recursive.
func (n *Notifier) add(path string) error {
	if !n.recursive {
		return n.w.Add(path)
	}

	root := filepath.Clean(path)
	return godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(p string, de *godirwalk.Dirent) error {
			if p != root && filepath.Base(p)[0] == '.' {
				return godirwalk.SkipThis
			}
			if !de.IsDir() {
				return nil
			}
			if err := n.w.Add(p); err != nil {
				return fmt.Errorf("watch %s: %w", p, err)
			}
			return nil
		},
	})
}
