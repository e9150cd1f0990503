package traverser

import (
	"testing"

	"domcast/capture"
)

type fakeNode struct {
	tag      string
	text     string
	isText   bool
	rect     capture.Rect
	style    capture.ComputedStyle
	classes  []string
	children []capture.DOMNode
	shadow   capture.DOMNode
	pseudo   map[string]string
}

func (n *fakeNode) TagName() string                   { return n.tag }
func (n *fakeNode) IsText() bool                       { return n.isText }
func (n *fakeNode) TextContent() string                { return n.text }
func (n *fakeNode) Attr(string) (string, bool)         { return "", false }
func (n *fakeNode) ClassList() []string                { return n.classes }
func (n *fakeNode) ComputedStyle() capture.ComputedStyle { return n.style }
func (n *fakeNode) BoundingRect() capture.Rect          { return n.rect }
func (n *fakeNode) Children() []capture.DOMNode        { return n.children }
func (n *fakeNode) ShadowRoot() (capture.DOMNode, bool) {
	if n.shadow != nil {
		return n.shadow, true
	}
	return nil, false
}
func (n *fakeNode) SameOriginFrameDocument() (capture.DOMNode, bool) { return nil, false }
func (n *fakeNode) IsCrossOriginFrame() bool                         { return false }
func (n *fakeNode) PseudoContent(which string) (string, bool) {
	if n.pseudo == nil {
		return "", false
	}
	v, ok := n.pseudo[which]
	return v, ok && v != ""
}
func (n *fakeNode) PseudoComputedStyle(string) capture.ComputedStyle { return nil }

func box(w, h float64) capture.Rect { return capture.Rect{Width: w, Height: h} }

func TestWalkSkipsDisplayNoneAndZeroSize(t *testing.T) {
	hidden := &fakeNode{tag: "div", rect: box(100, 50), style: capture.ComputedStyle{"display": "none"}}
	zeroSize := &fakeNode{tag: "span", rect: box(0, 0)}
	visible := &fakeNode{tag: "p", rect: box(100, 20)}
	root := &fakeNode{tag: "html", rect: box(1000, 1000), children: []capture.DOMNode{hidden, zeroSize, visible}}

	seeder := NewIDSeeder()
	var tags []string
	for pair, err := range Walk(root, seeder, Options{}) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tags = append(tags, pair.Node.(*fakeNode).tag)
	}
	if len(tags) != 2 || tags[0] != "html" || tags[1] != "p" {
		t.Fatalf("expected [html p], got %v", tags)
	}
}

func TestWalkSkipsScriptStyleHead(t *testing.T) {
	script := &fakeNode{tag: "script", rect: box(10, 10)}
	head := &fakeNode{tag: "head", rect: box(10, 10), children: []capture.DOMNode{
		&fakeNode{tag: "meta", rect: box(10, 10)},
	}}
	visible := &fakeNode{tag: "div", rect: box(100, 100)}
	root := &fakeNode{tag: "html", rect: box(1000, 1000), children: []capture.DOMNode{head, script, visible}}

	seeder := NewIDSeeder()
	var tags []string
	for pair, _ := range Walk(root, seeder, Options{}) {
		tags = append(tags, pair.Node.(*fakeNode).tag)
	}
	if len(tags) != 2 || tags[0] != "html" || tags[1] != "div" {
		t.Fatalf("expected only [html div], got %v", tags)
	}
}

func TestWalkEmitsPseudoElements(t *testing.T) {
	el := &fakeNode{
		tag:  "div",
		rect: box(100, 100),
		pseudo: map[string]string{
			"before": "“",
			"after":  "",
		},
	}
	root := &fakeNode{tag: "html", rect: box(1000, 1000), children: []capture.DOMNode{el}}

	seeder := NewIDSeeder()
	var pseudoCount int
	for pair, _ := range Walk(root, seeder, Options{}) {
		if pair.IsPseudo {
			pseudoCount++
			if pair.Pseudo != "before" {
				t.Fatalf("expected only ::before to be emitted (content is empty for ::after), got %s", pair.Pseudo)
			}
		}
	}
	if pseudoCount != 1 {
		t.Fatalf("expected exactly one pseudo node, got %d", pseudoCount)
	}
}

func TestStableIDDeterministicAcrossIdenticalTrees(t *testing.T) {
	build := func() capture.DOMNode {
		return &fakeNode{tag: "html", rect: box(1000, 1000), children: []capture.DOMNode{
			&fakeNode{tag: "div", rect: box(100, 100), classes: []string{"card"}},
			&fakeNode{tag: "div", rect: box(100, 100), classes: []string{"card"}},
		}}
	}

	idsFor := func(root capture.DOMNode) []string {
		seeder := NewIDSeeder()
		var ids []string
		for pair, _ := range Walk(root, seeder, Options{}) {
			ids = append(ids, pair.NodeID)
		}
		return ids
	}

	a := idsFor(build())
	b := idsFor(build())
	if len(a) != len(b) {
		t.Fatalf("expected equal length id sequences")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("id %d differs across identical trees: %s vs %s", i, a[i], b[i])
		}
	}
	if a[1] == a[2] {
		t.Fatalf("expected sibling div.card nodes to get distinct ids via tag-local sequence, got %s twice", a[1])
	}
}

func TestWalkDescendsShadowRoot(t *testing.T) {
	shadowChild := &fakeNode{tag: "span", rect: box(50, 50)}
	shadowRoot := &fakeNode{tag: "", rect: box(50, 50), children: []capture.DOMNode{shadowChild}}
	host := &fakeNode{tag: "my-widget", rect: box(100, 100), shadow: shadowRoot}
	root := &fakeNode{tag: "html", rect: box(1000, 1000), children: []capture.DOMNode{host}}

	seeder := NewIDSeeder()
	var tags []string
	for pair, _ := range Walk(root, seeder, Options{}) {
		tags = append(tags, pair.Node.(*fakeNode).tag)
	}
	found := false
	for _, tag := range tags {
		if tag == "span" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected shadow root descendant to be walked, got %v", tags)
	}
}

func TestWalkRespectsMaxNodes(t *testing.T) {
	var children []capture.DOMNode
	for i := 0; i < 10; i++ {
		children = append(children, &fakeNode{tag: "div", rect: box(10, 10)})
	}
	root := &fakeNode{tag: "html", rect: box(1000, 1000), children: children}

	seeder := NewIDSeeder()
	count := 0
	for range Walk(root, seeder, Options{MaxNodes: 3}) {
		count++
	}
	if count != 3 {
		t.Fatalf("expected walk to stop at MaxNodes=3, got %d", count)
	}
}
