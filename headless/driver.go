// Package headless implements capture.Page against a real Chrome via the
// Chrome DevTools Protocol (CDP), using github.com/daabr/chrome-vision, for
// capture pipelines that are not run from an in-page injected agent (the
// broker's "optional headless capture driver", spec.md §2 row G
// parenthetical). It is the retrieval pack's one new third-party wiring not
// carried from fbc: chrome-vision supplies session/transport (pkg/devtools)
// and the typed CDP command surface (pkg/devtools/page, /runtime).
//
// Driver drives Page.navigate, polls Page.lifecycleEvent for quiescence
// (feeding capture/stabilizer), and serves capture/rasterizer's primary
// screenshot path via Page.captureScreenshot. It has no live computed-style
// DOM domain integration: RootNode always takes the degraded fallback path
// of fetching document.documentElement.outerHTML via Runtime.evaluate and
// parsing it with goquery, which per spec §9 means a headless capture
// always rasterizes (no computed style to resolve geometry from).
package headless

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/daabr/chrome-vision/pkg/devtools"
	"github.com/daabr/chrome-vision/pkg/devtools/page"
	"github.com/daabr/chrome-vision/pkg/devtools/runtime"
	"go.uber.org/zap"

	"domcast/capture"
	"domcast/common"
)

// Options configures Launch.
type Options struct {
	Headless bool
	Log      *zap.Logger
}

// Driver is a capture.Page backed by one CDP browsing session.
type Driver struct {
	ctx context.Context
	log *zap.Logger
}

// Launch starts (or attaches to) a Chrome instance and returns a Driver
// bound to one tab, grounded on examples/googlesearch/devtools/main.go's
// devtools.NewContext/BrowserFlags session setup.
func Launch(parent context.Context, opts Options) (*Driver, func(), error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	flags := devtools.DefaultBrowserFlags()
	if !opts.Headless {
		delete(flags, "headless")
	}
	ctx, err := devtools.NewContext(parent, devtools.BrowserFlags(flags))
	if err != nil {
		return nil, nil, common.WrapError(common.ErrRestrictedDocument, "launch browser", err)
	}
	cleanup := func() { devtools.Close(ctx) }
	return &Driver{ctx: ctx, log: opts.Log.Named("headless")}, cleanup, nil
}

// Navigate points the tab at url via Page.navigate, the one-time setup a
// CLI-driven capture needs before the stabilizer's own quiescence wait
// takes over (an already-open extension tab has no analogous step).
func (d *Driver) Navigate(ctx context.Context, url string) error {
	if _, err := page.NewNavigate(url).Do(ctx); err != nil {
		return common.WrapError(common.ErrRestrictedDocument, "navigate to "+url, err)
	}
	return nil
}

func (d *Driver) URL() string {
	v, err := d.evalString(d.ctx, "location.href")
	if err != nil {
		return ""
	}
	return v
}

func (d *Driver) Title() string {
	v, err := d.evalString(d.ctx, "document.title")
	if err != nil {
		return ""
	}
	return v
}

func (d *Driver) Viewport() (width, height, dpr float64) {
	width, _ = d.evalFloat(d.ctx, "window.innerWidth")
	height, _ = d.evalFloat(d.ctx, "window.innerHeight")
	dpr, _ = d.evalFloat(d.ctx, "window.devicePixelRatio")
	if dpr == 0 {
		dpr = 1
	}
	return width, height, dpr
}

func (d *Driver) ScrollHeight() (float64, error) {
	return d.evalFloat(d.ctx, "document.documentElement.scrollHeight")
}

func (d *Driver) ScrollTo(ctx context.Context, x, y float64) error {
	_, err := runtime.NewEvaluate(fmt.Sprintf("window.scrollTo(%g, %g)", x, y)).Do(ctx)
	return err
}

// WaitNetworkQuiescence subscribes to Page.lifecycleEvent and waits until
// quietWindow has elapsed with no new events, the same debounce
// examples/googlesearch/devtools/main.go's waitUntilStable uses.
func (d *Driver) WaitNetworkQuiescence(ctx context.Context, quietWindow time.Duration) error {
	ch, err := devtools.SubscribeEvent(d.ctx, "Page.lifecycleEvent")
	if err != nil {
		return common.WrapError(common.ErrStabilizationTimeout, "subscribe lifecycle events", err)
	}
	defer close(ch)

	t := time.NewTimer(quietWindow)
	defer t.Stop()
	for {
		select {
		case <-ch:
			if !t.Stop() {
				<-t.C
			}
			t.Reset(quietWindow)
		case <-t.C:
			return nil
		case <-ctx.Done():
			return common.WrapError(common.ErrStabilizationTimeout, "network quiescence wait canceled", ctx.Err())
		}
	}
}

// InjectStylesheet installs a <style> element via Runtime.evaluate and
// returns a remove closure (§4.1.1's transient animation-kill stylesheet).
func (d *Driver) InjectStylesheet(ctx context.Context, css string) (func() error, error) {
	script := fmt.Sprintf(`(() => {
		const s = document.createElement('style');
		s.setAttribute('data-domcast-stabilizer', '1');
		s.textContent = %s;
		document.head.appendChild(s);
		return true;
	})()`, jsString(css))
	if _, err := runtime.NewEvaluate(script).Do(ctx); err != nil {
		return nil, common.WrapError(common.ErrStabilizationTimeout, "inject stylesheet", err)
	}
	remove := func() error {
		_, err := runtime.NewEvaluate(
			`document.querySelectorAll('style[data-domcast-stabilizer]').forEach(e => e.remove())`,
		).Do(ctx)
		return err
	}
	return remove, nil
}

// InstallNavigationGuard rewrites location assignment and cancels
// beforeunload the way §4.1.1 mandates, injected as a page script.
func (d *Driver) InstallNavigationGuard(ctx context.Context) (func(), error) {
	script := `(() => {
		if (window.__domcastGuard) return true;
		window.__domcastGuard = true;
		window.__domcastOrigHref = location.href;
		window.addEventListener('beforeunload', (e) => { e.preventDefault(); e.returnValue = ''; }, true);
		return true;
	})()`
	if _, err := runtime.NewEvaluate(script).Do(ctx); err != nil {
		return nil, common.WrapError(common.ErrStabilizationTimeout, "install navigation guard", err)
	}
	uninstall := func() {
		_, _ = runtime.NewEvaluate(`window.__domcastGuard = false`).Do(ctx)
	}
	return uninstall, nil
}

func (d *Driver) IsRestricted() bool {
	url := d.URL()
	for _, prefix := range []string{"chrome://", "devtools://", "chrome-extension://", "about:"} {
		if len(url) >= len(prefix) && url[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// CaptureElementScreenshot is §4.1.7's primary rasterization path:
// Page.captureScreenshot clipped to rect and scaled by dpr.
func (d *Driver) CaptureElementScreenshot(ctx context.Context, rect capture.Rect, dpr float64) ([]byte, error) {
	clip := page.Viewport{
		X: rect.Left, Y: rect.Top, Width: rect.Width, Height: rect.Height, Scale: dpr,
	}
	cmd := page.NewCaptureScreenshot().SetFormat("png").SetClip(clip).SetFromSurface(true)
	result, err := cmd.Do(ctx)
	if err != nil {
		return nil, common.WrapError(common.ErrRasterizationFailed, "Page.captureScreenshot", err)
	}
	return decodeBase64PNG(result.Data)
}

// Fetch retrieves a same-page resource via a fetch() call evaluated in the
// page, returning base64-decoded bytes and the Content-Type header.
func (d *Driver) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	script := fmt.Sprintf(`(async () => {
		const r = await fetch(%s);
		const buf = await r.arrayBuffer();
		let binary = '';
		const bytes = new Uint8Array(buf);
		for (let i = 0; i < bytes.byteLength; i++) binary += String.fromCharCode(bytes[i]);
		return JSON.stringify({data: btoa(binary), contentType: r.headers.get('content-type') || ''});
	})()`, jsString(url))
	eval := runtime.NewEvaluate(script).SetAwaitPromise(true).SetReturnByValue(true)
	res, err := eval.Do(ctx)
	if err != nil {
		return nil, "", common.WrapError(common.ErrAssetFetchFailed, "fetch "+url, err)
	}
	if res.ExceptionDetails != nil {
		return nil, "", common.WrapError(common.ErrAssetFetchFailed, "fetch "+url, fmt.Errorf("%v", res.ExceptionDetails))
	}
	var raw string
	if err := json.Unmarshal(res.Result.Value, &raw); err != nil {
		return nil, "", common.WrapError(common.ErrAssetFetchFailed, "unexpected fetch result shape", err)
	}
	var payload struct {
		Data        string `json:"data"`
		ContentType string `json:"contentType"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, "", common.WrapError(common.ErrAssetFetchFailed, "decode fetch result", err)
	}
	data, err := decodeBase64PNG(payload.Data)
	if err != nil {
		return nil, "", err
	}
	return data, payload.ContentType, nil
}

// RootNode is the degraded traversal path (§9): it fetches
// document.documentElement.outerHTML and parses it with goquery instead of
// reading a live computed-style DOM tree, so every node it produces carries
// at most its inline style attribute as ComputedStyle, and the resolver forces rasterization for the whole
// subtree (§4.1.7 rule 3, "complex paint/border/mask combination explicitly
// flagged non-representable").
func (d *Driver) RootNode(ctx context.Context) (capture.DOMNode, error) {
	html, err := d.evalString(ctx, "document.documentElement.outerHTML")
	if err != nil {
		return nil, common.WrapError(common.ErrRestrictedDocument, "read outerHTML", err)
	}
	doc, err := goquery.NewDocumentFromReader(stringsReader(html))
	if err != nil {
		return nil, common.WrapError(common.ErrRestrictedDocument, "parse outerHTML", err)
	}
	return &goqueryNode{sel: doc.Selection}, nil
}

// evalString evaluates expr with returnByValue set, so Result.Value is a
// JSON-encoded representation of whatever the expression yields (chrome-vision's
// RemoteObject.Value is a raw json.RawMessage, not a pre-decoded interface{}).
func (d *Driver) evalString(ctx context.Context, expr string) (string, error) {
	res, err := runtime.NewEvaluate(expr).SetReturnByValue(true).Do(ctx)
	if err != nil {
		return "", err
	}
	if res.ExceptionDetails != nil {
		return "", fmt.Errorf("%v", res.ExceptionDetails)
	}
	var s string
	_ = json.Unmarshal(res.Result.Value, &s)
	return s, nil
}

func (d *Driver) evalFloat(ctx context.Context, expr string) (float64, error) {
	res, err := runtime.NewEvaluate(expr).SetReturnByValue(true).Do(ctx)
	if err != nil {
		return 0, err
	}
	if res.ExceptionDetails != nil {
		return 0, fmt.Errorf("%v", res.ExceptionDetails)
	}
	var f float64
	_ = json.Unmarshal(res.Result.Value, &f)
	return f, nil
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
