package watch

import (
	"context"
	"time"

	"k8s.io/klog/v2"
)

// Options control Run.
type Options struct {
	Debounce time.Duration
	Interval time.Duration
	// Wake, if set, cuts the pause between polls short.
	Wake <-chan struct{}
}

// Run polls until ctx is cancelled. Cancellation is the only way it stops, and it is not
// reported as an error.
func Run(ctx context.Context, st *State, env Env, opts Options) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	for {
		if ctx.Err() != nil {
			klog.Infof("watch stopped")
			return nil
		}

		stats, err := Poll(ctx, st, env, opts.Debounce)
		if err != nil {
			klog.Warningf("poll failed: %v", err)
		} else if stats.Attempted > 0 {
			klog.Infof("poll: %d attempted, %d succeeded, %d still pending", stats.Attempted, stats.Succeeded, stats.Pending)
		}

		t := time.NewTimer(opts.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			klog.Infof("watch stopped")
			return nil
		case <-opts.Wake:
			t.Stop()
		case <-t.C:
		}
	}
}

// RunDir polls env, which lists the images under dir, until ctx is cancelled. Filesystem
// notifications on dir shorten the wait between polls when available; polling alone is used
// otherwise.
func RunDir(ctx context.Context, dir string, recursive bool, env Env, opts Options) error {
	n, err := NewNotifier(dir, recursive)
	if err != nil {
		klog.Warningf("filesystem notifications unavailable, polling only: %v", err)
	} else {
		defer n.Close()
		go n.Run(ctx)
		opts.Wake = n.Wake()
	}

	klog.Infof("watching %s for new images (debounce %s)", dir, opts.Debounce)
	return Run(ctx, NewState(), env, opts)
}
