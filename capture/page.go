// Package capture defines the host contract the capture agent subsystems
// (A–F, spec §4.1) are built against: Page and DOMNode. Neither has a
// concrete implementation in this package — per spec §1, the browser/page
// the agent runs inside is an external collaborator whose interface is
// specified, not its internals. `headless` implements Page against a real
// Chrome via CDP; an injected in-page agent would implement it against the
// live DOM; tests implement it with fakes.
//
// This mirrors how fbc keeps `content.Content` (pure data, §3's analogue)
// separate from the thing that produces it (a parsed FB2 file) — the
// capture subpackages (stabilizer, traverser, resolver, assets, rasterizer,
// assembler) only ever see Page/DOMNode, never a browser binding.
package capture

import (
	"context"
	"time"
)

// Rect is a layout rectangle in CSS pixels, the host's native unit before
// any coordinate-system decision is applied (§4.1.3 "Coordinate system").
type Rect struct {
	Left, Top, Width, Height float64
}

// ComputedStyle is the subset of getComputedStyle(el) the Resolver needs,
// keyed by CSS property name with the browser's serialized value — e.g.
// ComputedStyle["transform"] == "matrix(0.7071, 0.7071, -0.7071, 0.7071, 0, 0)".
// Using a flat map instead of one struct field per CSS property keeps this
// contract append-only the same way scene.AnalyzedNode is (§3.2 invariant 8):
// a new CSS property the Resolver learns to read needs no Page-interface
// change.
type ComputedStyle map[string]string

// Get returns the computed value for prop, or "" if absent.
func (c ComputedStyle) Get(prop string) string {
	return c[prop]
}

// DOMNode is one element, text, or pseudo-element node as the Traverser and
// Resolver see it (§4.1.2, §4.1.3).
type DOMNode interface {
	// TagName is the lowercase HTML tag name, or "" for a text node.
	TagName() string
	// IsText reports whether this node is a text node (TagName() == "").
	IsText() bool
	TextContent() string
	// Attr returns the named attribute's value and whether it was present.
	Attr(name string) (string, bool)
	// ClassList returns the element's class names, in DOM order.
	ClassList() []string
	// ComputedStyle is this element's resolved style; nil for text nodes.
	ComputedStyle() ComputedStyle
	// BoundingRect is this node's client rect in CSS pixels.
	BoundingRect() Rect
	// Children returns direct DOM children in document order (light DOM
	// only; shadow roots are reached via ShadowRoot).
	Children() []DOMNode
	// ShadowRoot returns this element's shadow root, if it has one.
	ShadowRoot() (DOMNode, bool)
	// SameOriginFrameDocument returns the content document root of this
	// element if it is a same-origin <iframe>; ok is false for cross-origin
	// or non-iframe elements (§4.1.2 "Descend ... up to a configurable
	// depth. Cross-origin iframes become placeholder IMAGE nodes").
	SameOriginFrameDocument() (DOMNode, bool)
	// IsCrossOriginFrame reports whether this element is an <iframe> whose
	// content document this agent cannot access.
	IsCrossOriginFrame() bool
	// PseudoContent returns the resolved `content` value of ::before or
	// ::after ("before"/"after"), and whether it is non-empty (§4.1.6).
	PseudoContent(which string) (string, bool)
	// PseudoComputedStyle mirrors ComputedStyle but for a pseudo-element.
	PseudoComputedStyle(which string) ComputedStyle
}

// Page is the capturable document/browsing context (§4.1.1, §4.5's "Page
// Stabilizer" contract and the primary rasterization path of §4.1.7).
type Page interface {
	URL() string
	Title() string
	// Viewport returns the layout viewport size and device pixel ratio.
	Viewport() (width, height, dpr float64)
	// ScrollHeight is the full scrollable content height, used by the
	// stabilizer's scroll sweep to know how many steps to take.
	ScrollHeight() (float64, error)
	// ScrollTo scrolls the page to (x, y) in CSS pixels.
	ScrollTo(ctx context.Context, x, y float64) error
	// WaitNetworkQuiescence blocks until no network activity has been
	// observed for quietWindow, or ctx is done.
	WaitNetworkQuiescence(ctx context.Context, quietWindow time.Duration) error
	// InjectStylesheet installs a stylesheet and returns a function that
	// removes it (§4.1.1 "transient stylesheet").
	InjectStylesheet(ctx context.Context, css string) (remove func() error, err error)
	// InstallNavigationGuard installs the guard of §4.1.1 and returns a
	// function that uninstalls it.
	InstallNavigationGuard(ctx context.Context) (uninstall func(), err error)
	// RootNode returns the document's root element (<html>).
	RootNode(ctx context.Context) (DOMNode, error)
	// IsRestricted reports whether this is a browser-internal document the
	// agent cannot run in (chrome://, devtools://, the extension's own
	// pages, ...).
	IsRestricted() bool
	// CaptureElementScreenshot is the §4.1.7 primary rasterization path: a
	// native visible-tab screenshot cropped to rect and scaled by dpr.
	CaptureElementScreenshot(ctx context.Context, rect Rect, dpr float64) ([]byte, error)
	// Fetch retrieves bytes for a same-page resource (image, background,
	// font, CSS) — used by capture/assets.
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}
