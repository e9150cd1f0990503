package importer

import (
	"fmt"
	"io"

	"domcast/scene"
)

// DumpTree writes a human-readable preview of schema's node tree, grounded
// on convert/kfx/debug_tree.go's indented fragment dump, for the CLI's
// --debug flag.
func DumpTree(w io.Writer, schema *scene.SceneSchema) {
	if schema == nil || schema.Root == nil {
		fmt.Fprintln(w, "(empty schema)")
		return
	}
	fmt.Fprintf(w, "SCHEMA version=%s\n", schema.Version)
	dumpNode(w, schema.Root, 1)
}

func dumpNode(w io.Writer, n *scene.AnalyzedNode, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	fmt.Fprintf(w, "%s%s id=%s tag=%s fills=%d effects=%d %gx%g\n",
		indent, n.Type, n.ID, n.HTMLTag, len(n.Fills), len(n.Effects),
		n.AbsoluteLayout.Width, n.AbsoluteLayout.Height)
	if n.Rasterize != nil {
		fmt.Fprintf(w, "%s  rasterize reason=%s hasData=%v\n", indent, n.Rasterize.Reason, n.Rasterize.DataURL != "")
	}
	for _, c := range n.Children {
		dumpNode(w, c, depth+1)
	}
}
