// Package importertest provides a fake NodeAPI for exercising
// importer.Build without a real design-tool host, grounded on fbc's own
// test-double pattern (fb2/test_helpers.go builds minimal in-memory
// stand-ins for the parts of the system a unit test doesn't need to be
// real).
package importertest

import (
	"fmt"

	"domcast/common"
	"domcast/scene"
)

// Node is the fake handle CreateNode returns: a plain recorder of every
// mutation the importer applies to it, so a test can assert on the final
// state without a real node-model backing it.
type Node struct {
	Kind         common.NodeType
	Name         string
	Parent       *Node
	Children     []*Node
	Width        float64
	Height       float64
	Transform    *scene.Matrix3x2
	BlendMode    common.BlendMode
	Fills        []scene.Paint
	FillImages   []any // parallel to Fills; the handle bound to each PaintImage slot
	Strokes      []scene.Stroke
	CornerRadius scene.CornerRadius
	Effects      []scene.Effect
	AutoLayout   *scene.AutoLayout
	X, Y         float64
	Positioned   bool
}

// Font is the fake font handle.
type Font struct {
	Family, Style string
}

// Image is the fake uploaded-image handle.
type Image struct {
	MimeType string
	Size     int
}

// API is an in-memory NodeAPI fake. FailCreate names nodes (matched exactly
// by Name) whose CreateNode call fails; FailUpload, when true, makes every
// UploadImage call fail. Both let a test exercise the §4.9
// per-node-failure recovery paths.
type API struct {
	Pages       []*Node
	FontLoads   int
	ImageLoads  int
	FailUpload  bool
	FailCreate  map[string]bool // by Name
}

func New() *API {
	return &API{FailCreate: make(map[string]bool)}
}

func (a *API) CreatePage(name string, width, height float64) (any, error) {
	n := &Node{Kind: common.NodeFrame, Name: name, Width: width, Height: height}
	a.Pages = append(a.Pages, n)
	return n, nil
}

func (a *API) CreateNode(kind common.NodeType, name string) (any, error) {
	if a.FailCreate[name] {
		return nil, fmt.Errorf("forced create failure for %q", name)
	}
	return &Node{Kind: kind, Name: name}, nil
}

func (a *API) Attach(child, parent any) error {
	c, p := child.(*Node), asNode(parent)
	c.Parent = p
	if p != nil {
		p.Children = append(p.Children, c)
	}
	return nil
}

func (a *API) Resize(node any, width, height float64) error {
	n := node.(*Node)
	n.Width, n.Height = width, height
	return nil
}

func (a *API) SetTransform(node any, m scene.Matrix3x2) error {
	n := node.(*Node)
	n.Transform = &m
	return nil
}

func (a *API) SetEffects(node any, effects []scene.Effect) error {
	node.(*Node).Effects = effects
	return nil
}

func (a *API) SetBlendMode(node any, mode common.BlendMode) error {
	node.(*Node).BlendMode = mode
	return nil
}

func (a *API) SetFills(node any, fills []scene.Paint, imageHandles []any) error {
	n := node.(*Node)
	n.Fills = fills
	n.FillImages = imageHandles
	return nil
}

func (a *API) SetStrokes(node any, strokes []scene.Stroke) error {
	node.(*Node).Strokes = strokes
	return nil
}

func (a *API) SetCornerRadius(node any, r scene.CornerRadius) error {
	node.(*Node).CornerRadius = r
	return nil
}

func (a *API) SetAutoLayout(node any, al *scene.AutoLayout) error {
	node.(*Node).AutoLayout = al
	return nil
}

func (a *API) Position(node any, x, y float64) error {
	n := node.(*Node)
	n.X, n.Y, n.Positioned = x, y, true
	return nil
}

func (a *API) LoadFont(family, style string) (any, error) {
	a.FontLoads++
	return &Font{Family: family, Style: style}, nil
}

func (a *API) UploadImage(data []byte, mimeType string) (any, error) {
	if a.FailUpload {
		return nil, fmt.Errorf("forced upload failure")
	}
	a.ImageLoads++
	return &Image{MimeType: mimeType, Size: len(data)}, nil
}

func asNode(v any) *Node {
	if v == nil {
		return nil
	}
	n, _ := v.(*Node)
	return n
}
