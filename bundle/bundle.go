// Package bundle implements the `.scenebundle` zip transport (§8 of
// SPEC_FULL.md): a concrete, fully-specified sibling to the broker
// transport for the "optional headless capture driver" seam spec.md leaves
// as an external collaborator. A bundle holds one scene.json plus its
// referenced assets, so a capture can be archived, emailed, or fed to the
// importer without a running broker.
//
// Grounded on convert/epub/epub.go's container structure (mimetype-first
// stored entry, an OEBPS-style asset directory) and its use of
// github.com/hidez8891/zip for filename-encoding-correct output, plus
// beevik/etree for a human-diffable XML manifest sidecar next to
// scene.json.
package bundle

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"sort"

	"github.com/beevik/etree"
	fixzip "github.com/hidez8891/zip"

	"domcast/archive"
	"domcast/common"
	"domcast/scene"
)

const (
	// mimetypeName is a stored (uncompressed), first entry identifying the
	// archive format, the same trick epub.go's writeMimetype uses so a
	// byte-sniffing tool can identify the container without inflating it.
	mimetypeName    = "mimetype"
	mimetypeContent = "application/vnd.domcast.scenebundle"

	manifestName = "manifest.xml"
	schemaName   = "scene.json"
	assetsDir    = "assets"
)

// Write serializes schema and its referenced assets into a `.scenebundle`
// zip at w. Only AssetImage entries that hold Bytes are written under
// assets/; an entry that carries just a URL/DataURL gets no asset file.
func Write(w io.Writer, schema *scene.SceneSchema) error {
	if schema == nil {
		return common.NewError(common.ErrIncompatibleSchema, "nil schema")
	}

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	if err := writeStored(zw, mimetypeName, []byte(mimetypeContent)); err != nil {
		return fmt.Errorf("write mimetype: %w", err)
	}

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scene schema: %w", err)
	}
	if err := writeDeflated(zw, schemaName, schemaJSON); err != nil {
		return fmt.Errorf("write scene.json: %w", err)
	}

	hashes := make([]string, 0, len(schema.Assets.Images))
	for hash := range schema.Assets.Images {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)

	for _, hash := range hashes {
		img := schema.Assets.Images[hash]
		if len(img.Bytes) == 0 {
			continue
		}
		name := path.Join(assetsDir, hash+extensionFor(img.MimeType))
		if err := writeDeflated(zw, name, img.Bytes); err != nil {
			return fmt.Errorf("write asset %s: %w", hash, err)
		}
	}

	manifest := buildManifest(schema, hashes)
	manifestBytes, err := manifest.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize manifest: %w", err)
	}
	if err := writeDeflated(zw, manifestName, manifestBytes); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip writer: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// WriteFile is Write, through a FixZip pass (grounded on
// convert/epub/epub.go's copyZipWithoutDataDescriptors): hidez8891/zip
// rewrites the archive with data-descriptor flags cleared so strict zip
// readers that assume a central-directory-only layout can open a bundle.
func WriteFile(outputPath string, schema *scene.SceneSchema) error {
	var buf bytes.Buffer
	if err := Write(&buf, schema); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(path.Dir(outputPath), ".scenebundle-*")
	if err != nil {
		return fmt.Errorf("create temp bundle: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp bundle: %w", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create bundle %s: %w", outputPath, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(tmpName)
	if err != nil {
		return fmt.Errorf("reopen temp bundle: %w", err)
	}
	defer r.Close()

	fw := fixzip.NewWriter(out)
	defer fw.Close()
	for _, file := range r.File {
		file.Flags &= ^fixzip.FlagDataDescriptor
		if err := fw.CopyFile(file); err != nil {
			return fmt.Errorf("copy bundle entry %s: %w", file.Name, err)
		}
	}
	return nil
}

// Read parses a `.scenebundle` zip, inlining every referenced asset's bytes
// back into schema.Assets.Images[hash].Bytes so the result is a
// self-contained scene.SceneSchema identical in meaning to the one Write
// was given (§3.3 "Transported opaquely ... never rewrite semantic fields").
func Read(r io.ReaderAt, size int64) (*scene.SceneSchema, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}

	var schemaJSON []byte
	for _, f := range zr.File {
		if f.Name == schemaName {
			if schemaJSON, err = readAll(f); err != nil {
				return nil, fmt.Errorf("read scene.json: %w", err)
			}
			break
		}
	}
	if schemaJSON == nil {
		return nil, common.NewError(common.ErrIncompatibleSchema, "bundle missing scene.json")
	}

	var schema scene.SceneSchema
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		return nil, fmt.Errorf("unmarshal scene.json: %w", err)
	}

	walkErr := archive.Walk(zr, assetsDir+"/", func(f *zip.File) error {
		data, err := readAll(f)
		if err != nil {
			return fmt.Errorf("read asset %s: %w", f.Name, err)
		}
		hash := stripExtension(path.Base(f.Name))
		if img, ok := schema.Assets.Images[hash]; ok {
			img.Bytes = data
			schema.Assets.Images[hash] = img
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return &schema, nil
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func writeStored(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func writeDeflated(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// buildManifest writes a human-diffable XML sidecar summarizing what the
// bundle contains, grounded on convert/epub/epub.go's writeContainer/
// writeOPF use of beevik/etree for structured XML generation.
func buildManifest(schema *scene.SceneSchema, assetHashes []string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("scenebundle")
	root.CreateAttr("version", schema.Version)
	root.CreateAttr("url", schema.Metadata.URL)
	root.CreateAttr("title", schema.Metadata.Title)
	root.CreateAttr("capturedAt", schema.Metadata.CapturedAt)

	assetsEl := root.CreateElement("assets")
	for _, hash := range assetHashes {
		img := schema.Assets.Images[hash]
		e := assetsEl.CreateElement("image")
		e.CreateAttr("hash", hash)
		e.CreateAttr("mimeType", img.MimeType)
		e.CreateAttr("width", fmt.Sprintf("%g", img.IntrinsicSize.Width))
		e.CreateAttr("height", fmt.Sprintf("%g", img.IntrinsicSize.Height))
	}
	return doc
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/svg+xml":
		return ".svg"
	default:
		return ".bin"
	}
}

func stripExtension(name string) string {
	ext := path.Ext(name)
	return name[:len(name)-len(ext)]
}
