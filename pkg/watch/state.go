// Package watch polls a directory for images that have no sidecar yet and hands each one
// to a handler once it has sat untouched for a debounce period.
package watch

import (
	"context"
	"sort"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/picmeta/pkg/sidecar"
)

const (
	// DefaultDebounce is how long an image must lack a sidecar before it is handled.
	DefaultDebounce = 60 * time.Second
	// DefaultInterval is the pause between polls.
	DefaultInterval = 5 * time.Second
)

// State tracks images across polls. It lives for the lifetime of one watch.
type State struct {
	// Pending maps an image to when it was first seen without a sidecar, or when its last
	// attempt failed.
	Pending map[string]time.Time
	// Processed holds images that have been handled or already had a sidecar.
	Processed map[string]bool
}

// NewState returns an empty State.
func NewState() *State {
	return &State{Pending: map[string]time.Time{}, Processed: map[string]bool{}}
}

// Env holds the collaborators a poll needs.
type Env struct {
	Now        func() time.Time
	List       func() ([]string, error)
	HasSidecar func(image string) bool
	Handle     func(ctx context.Context, image string) error
}

// DirEnv watches the images in dir.
func DirEnv(dir string, recursive bool, handle func(ctx context.Context, image string) error) Env {
	return Env{
		Now: time.Now,
		List: func() ([]string, error) {
			return sidecar.FindImages(dir, recursive)
		},
		HasSidecar: func(image string) bool {
			return sidecar.Exists(sidecar.PathFor(image))
		},
		Handle: handle,
	}
}

// Stats summarizes one poll.
type Stats struct {
	Seen      int
	Pending   int
	Attempted int
	Succeeded int
	Failed    int
}

// Poll runs one cycle: it lists images, settles those that gained a sidecar, starts tracking
// new ones, and handles each pending image whose debounce period has elapsed. A failed image
// stays pending with a fresh timestamp, so it is retried after another full debounce period.
func Poll(ctx context.Context, st *State, env Env, debounce time.Duration) (Stats, error) {
	var stats Stats

	images, err := env.List()
	if err != nil {
		return stats, err
	}
	stats.Seen = len(images)

	observed := make(map[string]bool, len(images))
	for _, img := range images {
		observed[img] = true
	}
	forget(st, observed)

	now := env.Now()
	for _, img := range images {
		if st.Processed[img] {
			continue
		}
		if env.HasSidecar(img) {
			settle(st, img)
			continue
		}
		if _, ok := st.Pending[img]; !ok {
			klog.Infof("detected new image: %s", img)
			st.Pending[img] = now
		}
	}

	for _, img := range ready(st, now, debounce) {
		if ctx.Err() != nil {
			break
		}
		if env.HasSidecar(img) {
			settle(st, img)
			continue
		}

		stats.Attempted++
		klog.Infof("processing %s after wait period", img)
		if err := env.Handle(ctx, img); err != nil {
			klog.Warningf("failed to process %s, will retry: %v", img, err)
			st.Pending[img] = env.Now()
			stats.Failed++
			continue
		}
		settle(st, img)
		stats.Succeeded++
	}

	stats.Pending = len(st.Pending)
	return stats, nil
}

func settle(st *State, img string) {
	st.Processed[img] = true
	delete(st.Pending, img)
}

// forget drops state for images that are no longer present.
func forget(st *State, observed map[string]bool) {
	for img := range st.Pending {
		if !observed[img] {
			klog.V(1).Infof("%s disappeared; no longer tracking", img)
			delete(st.Pending, img)
		}
	}
	for img := range st.Processed {
		if !observed[img] {
			delete(st.Processed, img)
		}
	}
}

// ready returns pending images whose debounce period has elapsed, in path order.
func ready(st *State, now time.Time, debounce time.Duration) []string {
	var out []string
	for img, first := range st.Pending {
		if now.Sub(first) >= debounce {
			out = append(out, img)
		}
	}
	sort.Strings(out)
	return out
}
