// Package assembler implements the final capture-agent stage (component F,
// §4.1's step 6): it takes every resolver.Result and acquired asset produced
// by the earlier stages, links nodes into a tree, patches in asset hashes,
// promotes repeated styles into scene.StyleRegistry (§4.3, the Style
// Deduper), runs optional component detection (§4.4), and validates the
// result before handing it to the broker.
package assembler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"domcast/capture"
	"domcast/capture/assets"
	"domcast/capture/component"
	"domcast/capture/resolver"
	"domcast/common"
	"domcast/scene"
)

// Options configures assembly (§6.4 subset relevant to the assembler).
type Options struct {
	// StyleDedupeThreshold is the usage count K at which a repeated fill
	// color or text style (family + size) is promoted into StyleRegistry.
	// Effects are not counted and never promoted.
	StyleDedupeThreshold int
	// ComponentMinNodes gates capture/component.Detect (§4.4); 0 disables
	// component detection entirely.
	ComponentMinNodes int
}

// DefaultOptions returns the assembler's built-in defaults: K = 3, and
// component detection for subtrees of at least 3 nodes (the subtree root
// included). config.yaml.tmpl has no settings for either.
func DefaultOptions() Options {
	return Options{StyleDedupeThreshold: 3, ComponentMinNodes: 3}
}

// Assemble links results into a tree rooted at a synthetic viewport FRAME,
// patches resolved asset hashes from acquired onto the nodes/fills that
// referenced them, runs the style deduper and component detector, and
// validates the result via scene.Validate.
func Assemble(results []resolver.Result, acquired []assets.Acquired, meta scene.Metadata, opts Options) (*scene.SceneSchema, error) {
	byID := make(map[string]*scene.AnalyzedNode)
	var order []string
	for _, r := range results {
		if r.Skipped || r.Node == nil {
			continue
		}
		byID[r.Node.ID] = r.Node
		order = append(order, r.Node.ID)
	}

	applyAssets(results, acquired)

	root := &scene.AnalyzedNode{
		ID:   "root",
		Type: common.NodeFrame,
		Name: "Viewport",
		AbsoluteLayout: scene.Rect{
			Width:  meta.Viewport.Width,
			Height: meta.Viewport.Height,
		},
	}
	byID["root"] = root

	for _, id := range order {
		n := byID[id]
		if n.ParentID == "" {
			continue
		}
		parent, ok := byID[n.ParentID]
		if !ok {
			parent = root
		}
		parent.Children = append(parent.Children, n)
	}

	styles := scene.StyleRegistry{
		Colors:     make(map[string]scene.ColorStyle),
		TextStyles: make(map[string]scene.TextStyleEntry),
		Effects:    make(map[string]scene.EffectStyle),
	}
	dedupeStyles(root, &styles, opts.StyleDedupeThreshold)

	s := &scene.SceneSchema{
		Version:  scene.SchemaVersion,
		Metadata: meta,
		Root:     root,
		Assets:   buildAssetRegistry(acquired),
		Styles:   styles,
	}

	if opts.ComponentMinNodes > 0 {
		s.Components = component.Detect(root, opts.ComponentMinNodes)
	}

	if err := scene.Validate(s); err != nil {
		return s, fmt.Errorf("assembled schema fails validation: %w", err)
	}
	return s, nil
}

// applyAssets patches each result's resolved asset hash back onto its node
// (node-level ImageHash) or fill (Fills[*PaintIndex].ImageHash), matching
// acquired[i] to the ref that produced it positionally — the caller is
// expected to have built acquired by calling assets.Acquirer.AcquireAll on
// the flattened ref list in the same order Flatten returns.
func applyAssets(results []resolver.Result, acquired []assets.Acquired) {
	flat := Flatten(results)
	for i, ref := range flat {
		if i >= len(acquired) {
			break
		}
		a := acquired[i]
		if a.Err != nil {
			continue
		}
		node, ok := findNode(results, ref.NodeID)
		if !ok {
			continue
		}
		if ref.PaintIndex == nil {
			node.ImageHash = a.ContentHash
			node.IntrinsicSize = &scene.IntrinsicSize{Width: a.Image.IntrinsicSize.Width, Height: a.Image.IntrinsicSize.Height}
		} else if *ref.PaintIndex < len(node.Fills) {
			node.Fills[*ref.PaintIndex].ImageHash = a.ContentHash
		}
	}
}

// Flatten returns every pending AssetRef across results, in a stable order
// callers can zip against assets.Acquirer.AcquireAll's result slice.
func Flatten(results []resolver.Result) []capture.AssetRef {
	var out []capture.AssetRef
	for _, r := range results {
		out = append(out, r.Assets...)
	}
	return out
}

func findNode(results []resolver.Result, id string) (*scene.AnalyzedNode, bool) {
	for _, r := range results {
		if r.Node != nil && r.Node.ID == id {
			return r.Node, true
		}
	}
	return nil, false
}

func buildAssetRegistry(acquired []assets.Acquired) scene.AssetRegistry {
	reg := scene.AssetRegistry{
		Images: make(map[string]scene.AssetImage),
		Fonts:  make(map[string]scene.AssetFont),
	}
	for _, a := range acquired {
		if a.Err != nil || a.ContentHash == "" {
			continue
		}
		reg.Images[a.ContentHash] = a.Image
	}
	return reg
}

// dedupeStyles walks the tree counting each fill color's occurrences and
// each text style's (font family + size) occurrences, and promotes one
// reaching threshold into StyleRegistry.colors or StyleRegistry.textStyles,
// keyed by a short hash of its fingerprint string; effects are not counted.
// This mirrors the usage-count merge fbc's
// convert/kfx style registry performs for shared CSS classes.
func dedupeStyles(n *scene.AnalyzedNode, reg *scene.StyleRegistry, threshold int) {
	counts := make(map[string]int)
	var walk func(*scene.AnalyzedNode)
	walk = func(n *scene.AnalyzedNode) {
		for _, f := range n.Fills {
			if f.Color != "" {
				counts[f.Color]++
			}
		}
		if n.TextStyle != nil {
			counts["text:"+n.TextStyle.FontFamily+":"+fmt.Sprint(n.TextStyle.FontSize)]++
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)

	if threshold <= 0 {
		return
	}
	for key, count := range counts {
		if count < threshold {
			continue
		}
		hash := shortHash(key)
		if len(key) > 5 && key[:5] == "text:" {
			reg.TextStyles[hash] = scene.TextStyleEntry{Name: key, UsageCount: count}
		} else {
			reg.Colors[hash] = scene.ColorStyle{Name: key, Paint: scene.Paint{Type: common.PaintSolid, Color: key, Opacity: 1, Visible: true}, UsageCount: count}
		}
	}
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
