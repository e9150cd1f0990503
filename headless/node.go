package headless

import (
	"encoding/base64"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"domcast/capture"
	"domcast/common"
)

// goqueryNode implements capture.DOMNode over a static goquery.Selection
// parsed from a single outerHTML snapshot (the RootNode degraded path).
// It never has a resolved computed style (only its inline style attribute),
// a BoundingRect beyond the zero value, or a shadow root, since none of
// those survive a serialize-then-reparse round trip — exactly the set of
// things §9 says this mode sacrifices.
type goqueryNode struct {
	sel *goquery.Selection
}

func (n *goqueryNode) TagName() string {
	if n.sel.Length() == 0 {
		return ""
	}
	return strings.ToLower(goquery.NodeName(n.sel))
}

// IsText is always false: goquery.Selection.Children only ever yields
// element nodes, so this DOMNode implementation never produces a text-node
// instance. Text reaches the Resolver through TextContent() on the
// enclosing element instead.
func (n *goqueryNode) IsText() bool {
	return false
}

func (n *goqueryNode) TextContent() string {
	return n.sel.Text()
}

func (n *goqueryNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n *goqueryNode) ClassList() []string {
	class, ok := n.sel.Attr("class")
	if !ok {
		return nil
	}
	return strings.Fields(class)
}

// ComputedStyle returns the declarations of the element's inline style
// attribute, or nil when it has none: a reparsed outerHTML string carries no
// resolved style, only whatever the inline style attribute says (§9).
func (n *goqueryNode) ComputedStyle() capture.ComputedStyle {
	style, ok := n.sel.Attr("style")
	if !ok || style == "" {
		return nil
	}
	return parseInlineStyle(style)
}

// BoundingRect is always the zero rect: layout geometry requires a live
// render tree this node does not have.
func (n *goqueryNode) BoundingRect() capture.Rect {
	return capture.Rect{}
}

func (n *goqueryNode) Children() []capture.DOMNode {
	children := n.sel.Children()
	out := make([]capture.DOMNode, 0, children.Length())
	children.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &goqueryNode{sel: s})
	})
	return out
}

func (n *goqueryNode) ShadowRoot() (capture.DOMNode, bool) {
	return nil, false
}

func (n *goqueryNode) SameOriginFrameDocument() (capture.DOMNode, bool) {
	return nil, false
}

func (n *goqueryNode) IsCrossOriginFrame() bool {
	return n.TagName() == "iframe"
}

func (n *goqueryNode) PseudoContent(string) (string, bool) {
	return "", false
}

func (n *goqueryNode) PseudoComputedStyle(string) capture.ComputedStyle {
	return nil
}

// parseInlineStyle splits a `style="..."` attribute value into the same
// flat property-name/value map ComputedStyle uses, so a degraded node's
// inline styles still flow through the Resolver's existing lookup path.
func parseInlineStyle(style string) capture.ComputedStyle {
	out := capture.ComputedStyle{}
	for _, decl := range strings.Split(style, ";") {
		parts := strings.SplitN(decl, ":", 2)
		if len(parts) != 2 {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(parts[0]))
		v := strings.TrimSpace(parts[1])
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func decodeBase64PNG(data string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, common.WrapError(common.ErrRasterizationFailed, "decode base64 payload", err)
	}
	return b, nil
}

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
