// schemadump dumps a SceneSchema for inspection: point it at either a raw
// scene.json or a `.scenebundle` zip and it prints a readable summary of
// the tree, its assets, and its style registry to stdout (or writes
// indented JSON with -json).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"domcast/bundle"
	"domcast/scene"
)

func main() {
	asJSON := flag.Bool("json", false, "dump the full schema as indented JSON instead of a summary")
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "usage: schemadump [-json] <file.scenebundle|scene.json>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	path := flag.Arg(0)
	s, err := load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "schemadump: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "schemadump: marshal: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		fmt.Println()
		return
	}

	printSummary(s)
}

func load(path string) (*scene.SceneSchema, error) {
	if strings.HasSuffix(path, ".scenebundle") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		fi, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		return bundle.Read(f, fi.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var s scene.SceneSchema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &s, nil
}

func printSummary(s *scene.SceneSchema) {
	fmt.Printf("version:       %s\n", s.Version)
	fmt.Printf("url:           %s\n", s.Metadata.URL)
	fmt.Printf("title:         %s\n", s.Metadata.Title)
	fmt.Printf("captured at:   %s\n", s.Metadata.CapturedAt)
	fmt.Printf("viewport:      %gx%g (dpr %g)\n", s.Metadata.Viewport.Width, s.Metadata.Viewport.Height, s.Metadata.Viewport.DevicePixelRatio)
	fmt.Printf("coord system:  %s (scale %g)\n", s.Metadata.CaptureCoordinateSystem, s.Metadata.ScreenshotScale)
	fmt.Printf("images:        %d\n", len(s.Assets.Images))
	fmt.Printf("fonts:         %d\n", len(s.Assets.Fonts))
	fmt.Printf("colors:        %d\n", len(s.Styles.Colors))
	fmt.Printf("text styles:   %d\n", len(s.Styles.TextStyles))
	fmt.Printf("effect styles: %d\n", len(s.Styles.Effects))
	fmt.Println("tree:")
	dumpNode(s.Root, 0)
}

func dumpNode(n *scene.AnalyzedNode, depth int) {
	if n == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	rasterFlag := ""
	if n.Rasterize != nil {
		rasterFlag = fmt.Sprintf(" [rasterized: %s]", n.Rasterize.Reason)
	}
	fmt.Printf("%s- %s %q %gx%g @ (%g,%g)%s\n", indent, n.Type, n.Name,
		n.AbsoluteLayout.Width, n.AbsoluteLayout.Height, n.AbsoluteLayout.Left, n.AbsoluteLayout.Top, rasterFlag)
	for _, c := range n.Children {
		dumpNode(c, depth+1)
	}
}
