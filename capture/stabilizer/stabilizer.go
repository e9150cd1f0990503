// Package stabilizer implements the Page Stabilizer (component A, §4.1.1):
// it prepares a live page for deterministic capture before the Traverser
// ever reads a node.
package stabilizer

import (
	"context"
	"math"
	"time"

	"domcast/capture"
	"domcast/common"
)

// IframePolicy controls how the capture agent treats <iframe> boundaries;
// the Traverser (not this package) reads it when deciding descend-vs-skip,
// but it is threaded through StabilizeOptions because it is set once per
// capture alongside the rest of the options (§6.4 capture options).
type IframePolicy string

const (
	IframeSameOrigin IframePolicy = "same-origin"
	IframeSkip       IframePolicy = "skip"
)

// Options is the `options` argument of §4.1.1's `stabilize(page, options)`.
type Options struct {
	ScrollSweep        bool
	DisableAnimations  bool
	ReducedMotion      bool
	IframePolicy       IframePolicy
	NavigationGuard    bool
	QuietWindow        time.Duration
	Timeout            time.Duration
	ViewportStepsLimit int // safety cap on scroll-sweep step count; 0 = unlimited
}

// DefaultOptions mirrors config.yaml.tmpl's capture defaults.
func DefaultOptions() Options {
	return Options{
		ScrollSweep:       true,
		DisableAnimations: true,
		IframePolicy:      IframeSameOrigin,
		NavigationGuard:   true,
		QuietWindow:       500 * time.Millisecond,
		Timeout:           8 * time.Second,
	}
}

// StableMark is the opaque result of a successful Stabilize call: nothing
// more than proof the page reached quiescence, plus the uninstall hooks the
// caller must run once capture finishes.
type StableMark struct {
	ScrollStepsTaken int
	Cleanup          func()
}

const animationKillCSS = `*, *::before, *::after {
  transition-duration: 0s !important;
  transition-delay: 0s !important;
  animation-duration: 0s !important;
  animation-delay: 0s !important;
  scroll-behavior: auto !important;
}`

// Stabilize performs the scroll sweep, animation neutralization, and
// navigation guard of §4.1.1. It returns ErrStabilizationTimeout if
// quiescence isn't reached within opts.Timeout, and ErrRestrictedDocument if
// page can't be captured at all.
func Stabilize(ctx context.Context, page capture.Page, opts Options) (StableMark, error) {
	if page.IsRestricted() {
		return StableMark{}, common.NewError(common.ErrRestrictedDocument, "document is a browser-internal page the agent cannot run in")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cleanups []func()
	mark := StableMark{}
	mark.Cleanup = func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if opts.NavigationGuard {
		uninstall, err := page.InstallNavigationGuard(ctx)
		if err != nil {
			return StableMark{}, common.WrapError(common.ErrRestrictedDocument, "failed to install navigation guard", err)
		}
		cleanups = append(cleanups, uninstall)
	}

	if opts.DisableAnimations {
		remove, err := page.InjectStylesheet(ctx, animationKillCSS)
		if err != nil {
			mark.Cleanup()
			return StableMark{}, common.WrapError(common.ErrStabilizationTimeout, "failed to inject animation-kill stylesheet", err)
		}
		cleanups = append(cleanups, func() { _ = remove() })
	}

	if opts.ScrollSweep {
		steps, err := scrollSweep(ctx, page, opts)
		if err != nil {
			mark.Cleanup()
			return StableMark{}, err
		}
		mark.ScrollStepsTaken = steps
	}

	if err := page.WaitNetworkQuiescence(ctx, quietWindow(opts)); err != nil {
		mark.Cleanup()
		if ctx.Err() != nil {
			return StableMark{}, common.WrapError(common.ErrStabilizationTimeout, "page did not reach network quiescence within budget", err)
		}
		return StableMark{}, common.WrapError(common.ErrStabilizationTimeout, "failed waiting for network quiescence", err)
	}

	return mark, nil
}

func quietWindow(opts Options) time.Duration {
	if opts.QuietWindow <= 0 {
		return 500 * time.Millisecond
	}
	return opts.QuietWindow
}

// scrollSweep performs at most one complete top-to-bottom sweep in
// viewport-sized steps, pausing for network quiescence each step, then
// restores scroll position to the origin. It must never trigger a
// navigation — the caller's InstallNavigationGuard already defends against
// that for script-initiated navigation, but the sweep itself only ever uses
// ScrollTo, never an anchor/href navigation.
func scrollSweep(ctx context.Context, page capture.Page, opts Options) (int, error) {
	_, viewportH, _ := page.Viewport()
	if viewportH <= 0 {
		viewportH = 1
	}
	scrollHeight, err := page.ScrollHeight()
	if err != nil {
		return 0, common.WrapError(common.ErrStabilizationTimeout, "failed to read scroll height", err)
	}

	steps := int(math.Ceil(scrollHeight / viewportH))
	if steps < 1 {
		steps = 1
	}
	if opts.ViewportStepsLimit > 0 && steps > opts.ViewportStepsLimit {
		steps = opts.ViewportStepsLimit
	}

	taken := 0
	for i := 0; i < steps; i++ {
		if ctx.Err() != nil {
			return taken, common.WrapError(common.ErrStabilizationTimeout, "stabilization budget exhausted during scroll sweep", ctx.Err())
		}
		y := float64(i) * viewportH
		if err := page.ScrollTo(ctx, 0, y); err != nil {
			return taken, common.WrapError(common.ErrStabilizationTimeout, "scroll step failed", err)
		}
		if err := page.WaitNetworkQuiescence(ctx, quietWindow(opts)); err != nil {
			return taken, common.WrapError(common.ErrStabilizationTimeout, "quiescence window not reached during scroll sweep", err)
		}
		taken++
	}

	// Restore to origin without navigating — ScrollTo(0,0) is a scroll
	// operation, never a history/location change.
	if err := page.ScrollTo(ctx, 0, 0); err != nil {
		return taken, common.WrapError(common.ErrStabilizationTimeout, "failed to restore scroll position", err)
	}
	return taken, nil
}
