// Package component implements the optional structural-signature detector
// of §4.4: subtrees that repeat with the same ordered child-tag shape and a
// coarse layout/fill fingerprint are grouped into scene.ComponentRegistry
// entries, the capture-side analogue of fbc's duplicate-binary detection in
// fb2/images.go generalized from "same content hash" to "same shape hash".
package component

import (
	"fmt"
	"hash/maphash"
	"strings"

	"domcast/scene"
)

// Detect groups root's descendant subtrees by structural signature and
// returns a ComponentRegistry with one ComponentDefinition per signature that
// occurs at least twice, its MasterNodeID set to the first occurrence in
// tree order; the other occurrences are not recorded. A subtree must have at
// least minNodes nodes, its own root included, to be considered (a single
// <div> repeating 50 times is structural noise, not a component).
func Detect(root *scene.AnalyzedNode, minNodes int) *scene.ComponentRegistry {
	if root == nil {
		return nil
	}
	seed := maphash.MakeSeed()
	seen := make(map[string][]*scene.AnalyzedNode)

	var walk func(n *scene.AnalyzedNode)
	walk = func(n *scene.AnalyzedNode) {
		if count(n) >= minNodes {
			sig := signature(n, seed)
			seen[sig] = append(seen[sig], n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)

	reg := &scene.ComponentRegistry{Definitions: make(map[string]scene.ComponentDefinition)}
	idx := 0
	for sig, nodes := range seen {
		if len(nodes) < 2 {
			continue // structural signature must repeat to count as a component
		}
		idx++
		id := fmt.Sprintf("component-%d", idx)
		reg.Definitions[id] = scene.ComponentDefinition{
			MasterNodeID: nodes[0].ID,
			Signature:    sig,
		}
	}
	return reg
}

func count(n *scene.AnalyzedNode) int {
	c := 1
	for _, child := range n.Children {
		c += count(child)
	}
	return c
}

// signature hashes the ordered child-tag list plus a coarse layout/fill
// fingerprint (rounded aspect ratio, fill count, corner-radius uniformity)
// so near-identical card/row/button repeats collapse to one signature even
// when their exact pixel rects differ (§4.4 "coarse layout/fill
// fingerprint").
func signature(n *scene.AnalyzedNode, seed maphash.Seed) string {
	var sb strings.Builder
	sb.WriteString(string(n.Type))
	sb.WriteByte('|')
	writeShape(&sb, n)

	var h maphash.Hash
	h.SetSeed(seed)
	h.WriteString(sb.String())
	return fmt.Sprintf("sig-%x", h.Sum64())
}

func writeShape(sb *strings.Builder, n *scene.AnalyzedNode) {
	sb.WriteString(n.HTMLTag)
	sb.WriteByte(':')
	fmt.Fprintf(sb, "%d,%v,%v;", len(n.Fills), roundRatio(n.AbsoluteLayout.Width, n.AbsoluteLayout.Height), n.CornerRadius.Uniform())
	sb.WriteByte('[')
	for _, c := range n.Children {
		writeShape(sb, c)
	}
	sb.WriteByte(']')
}

func roundRatio(w, h float64) float64 {
	if h == 0 {
		return 0
	}
	ratio := w / h
	return float64(int(ratio*10)) / 10
}

