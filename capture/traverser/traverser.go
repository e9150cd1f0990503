// Package traverser implements the DOM Traverser (component B, §4.1.2): a
// depth-first walk over the rendered element tree producing a lazy
// `(element, parentNodeId)` sequence for the Resolver, the same
// "pull-based sequence, no hidden traversal state" recast §9 calls for.
package traverser

import (
	"hash/maphash"
	"iter"
	"strconv"
	"strings"

	"domcast/capture"
)

// Pair is one yielded (element, parentNodeID) entry (§4.1.2).
type Pair struct {
	Node     capture.DOMNode
	ParentID string
	// NodeID is this node's derived stable id (§4.1.2 "Stable id derivation").
	NodeID string
	// IsPseudo marks a synthetic ::before/::after node so the Resolver
	// knows to read PseudoComputedStyle instead of ComputedStyle.
	IsPseudo bool
	Pseudo   string // "before" | "after", set iff IsPseudo
	// InheritedStyle is the nearest element ancestor's computed style, used
	// by the Resolver to derive a text node's typography (§4.1.3 "Text
	// nodes inherit typography from their rendered element") since a text
	// node's own ComputedStyle() is nil.
	InheritedStyle capture.ComputedStyle
}

// skippedTags are never descended into or emitted (§4.1.2 "Skip if ...
// script/meta/link/head descendant").
var skippedTags = map[string]bool{
	"script": true, "style": true, "meta": true, "link": true,
	"head": true, "title": true, "noscript": true, "template": true,
}

// Options configures the walk (§6.4 iframe policy, a depth cap for
// same-origin iframes/shadow roots per §4.1.2).
type Options struct {
	MaxFrameDepth int // max nesting of same-origin iframes descended into; 0 = unlimited
	MaxNodes      int // safety cap (config.CaptureConfig.MaxDOMNodes); 0 = unlimited
}

// idSeed is shared by a single capture so that re-walking the same document
// (e.g. for a hover-state variant pass, §6.4 captureHoverStates) produces
// identical ids — maphash.Hash needs one fixed Seed per document, matching
// §4.1.2's "same tree produces same ids" guarantee.
type IDSeeder struct {
	seed maphash.Seed
	seq  map[string]int // tag-local sequence counter, keyed by ancestor path + tag
}

// NewIDSeeder returns a seeder whose Seed is generated once and reused for
// every node of one capture.
func NewIDSeeder() *IDSeeder {
	return &IDSeeder{seed: maphash.MakeSeed(), seq: make(map[string]int)}
}

// deriveID hashes (tag, ancestorPath, classFingerprint, tag-local sequence)
// per §4.1.2.
func (s *IDSeeder) deriveID(tag, ancestorPath string, classes []string) string {
	classFingerprint := strings.Join(classes, ".")
	seqKey := ancestorPath + "/" + tag + "#" + classFingerprint
	s.seq[seqKey]++
	seq := s.seq[seqKey]

	var h maphash.Hash
	h.SetSeed(s.seed)
	h.WriteString(ancestorPath)
	h.WriteByte(0)
	h.WriteString(tag)
	h.WriteByte(0)
	h.WriteString(classFingerprint)
	h.WriteByte(0)
	h.WriteString(strconv.Itoa(seq))
	return "n" + strconv.FormatUint(h.Sum64(), 36)
}

// Walk returns a lazy depth-first sequence of Pair over root, implementing
// the skip/descend/pseudo-element rules of §4.1.2. It maintains a
// visited-set keyed by the DOMNode's own identity (via a pointer-stable
// wrapper the caller's DOMNode implementation is expected to provide
// consistently) to defend against pathological shadow-root back-references,
// aborting the branch on the first repeat rather than looping forever.
func Walk(root capture.DOMNode, seeder *IDSeeder, opts Options) iter.Seq2[Pair, error] {
	return func(yield func(Pair, error) bool) {
		visited := make(map[capture.DOMNode]bool)
		count := 0
		walk(root, "", "root", nil, visited, seeder, opts, 0, &count, yield)
	}
}

func walk(
	n capture.DOMNode,
	ancestorPath, parentID string,
	inheritedStyle capture.ComputedStyle,
	visited map[capture.DOMNode]bool,
	seeder *IDSeeder,
	opts Options,
	frameDepth int,
	count *int,
	yield func(Pair, error) bool,
) bool {
	if n == nil {
		return true
	}
	if visited[n] {
		return true // cycle guard: silently stop this branch
	}
	visited[n] = true

	if opts.MaxNodes > 0 && *count >= opts.MaxNodes {
		return true
	}

	if n.IsText() {
		id := seeder.deriveID("#text", ancestorPath, nil)
		*count++
		if !yield(Pair{Node: n, ParentID: parentID, NodeID: id, InheritedStyle: inheritedStyle}, nil) {
			return false
		}
		return true
	}

	tag := n.TagName()
	if skippedTags[tag] {
		return true
	}
	rect := n.BoundingRect()
	if rect.Width <= 0 && rect.Height <= 0 {
		return true // zero-size bounding box: skip (§4.1.2, §3.2 invariant 2)
	}
	style := n.ComputedStyle()
	if style != nil {
		if style.Get("display") == "none" || style.Get("visibility") == "hidden" {
			return true
		}
	}

	id := seeder.deriveID(tag, ancestorPath, n.ClassList())
	childPath := ancestorPath + "/" + tag
	*count++
	if !yield(Pair{Node: n, ParentID: parentID, NodeID: id, InheritedStyle: inheritedStyle}, nil) {
		return false
	}

	for _, which := range [2]string{"before", "after"} {
		if content, ok := n.PseudoContent(which); ok && content != "" {
			pseudoID := seeder.deriveID(tag+"::"+which, ancestorPath, nil)
			*count++
			if !yield(Pair{Node: n, ParentID: id, NodeID: pseudoID, IsPseudo: true, Pseudo: which, InheritedStyle: style}, nil) {
				return false
			}
		}
	}

	if shadow, ok := n.ShadowRoot(); ok {
		if !walk(shadow, childPath+"/shadow", id, style, visited, seeder, opts, frameDepth, count, yield) {
			return false
		}
	}

	if doc, ok := n.SameOriginFrameDocument(); ok {
		if opts.MaxFrameDepth == 0 || frameDepth < opts.MaxFrameDepth {
			if !walk(doc, childPath+"/frame", id, style, visited, seeder, opts, frameDepth+1, count, yield) {
				return false
			}
		}
		return true
	}

	for _, child := range n.Children() {
		if !walk(child, childPath, id, style, visited, seeder, opts, frameDepth, count, yield) {
			return false
		}
	}
	return true
}
