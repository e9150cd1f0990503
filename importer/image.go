package importer

import (
	"encoding/base64"
	"net/url"
	"strings"

	"domcast/common"
)

// imageCache is an imageHash -> host image handle cache, grounded on
// convert/kfx/frag_resource.go's resource-fragment cache but keyed by the
// scene's content hash instead of an FB2 image ID.
type imageCache struct {
	api   NodeAPI
	cache map[string]any
}

func newImageCache(api NodeAPI) *imageCache {
	return &imageCache{api: api, cache: make(map[string]any)}
}

// upload uploads data once per hash, caching the returned handle (§4.7.3
// "bytes are uploaded to the design tool once and the returned image handle
// is cached").
func (c *imageCache) upload(hash string, data []byte, mimeType string) (any, error) {
	if h, ok := c.cache[hash]; ok {
		return h, nil
	}
	h, err := c.api.UploadImage(data, mimeType)
	if err != nil {
		return nil, common.WrapError(common.ErrNodeBuildFailed, "upload image "+hash, err)
	}
	c.cache[hash] = h
	return h, nil
}

// uploadRasterized decodes a rasterize.dataUrl and uploads it uncached:
// rasterized elements are pixel-unique by construction, so there is no
// fingerprint worth deduping on (§4.7.3 "no dedup across rasterized
// elements").
func (c *imageCache) uploadRasterized(dataURL string) (any, error) {
	mime, data, err := decodeDataURL(dataURL)
	if err != nil {
		return nil, common.WrapError(common.ErrRasterizationFailed, "decode rasterize dataUrl", err)
	}
	h, err := c.api.UploadImage(data, mime)
	if err != nil {
		return nil, common.WrapError(common.ErrNodeBuildFailed, "upload rasterized image", err)
	}
	return h, nil
}

func decodeDataURL(dataURL string) (mime string, data []byte, err error) {
	const prefix = "data:"
	if !strings.HasPrefix(dataURL, prefix) {
		return "", nil, common.NewError(common.ErrRasterizationFailed, "not a data URL")
	}
	rest := dataURL[len(prefix):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", nil, common.NewError(common.ErrRasterizationFailed, "malformed data URL")
	}
	meta, payload := rest[:comma], rest[comma+1:]
	mime = strings.TrimSuffix(meta, ";base64")
	if strings.HasSuffix(meta, ";base64") {
		data, err = base64.StdEncoding.DecodeString(payload)
	} else {
		var s string
		s, err = url.QueryUnescape(payload)
		data = []byte(s)
	}
	if err != nil {
		return "", nil, common.WrapError(common.ErrRasterizationFailed, "decode data URL payload", err)
	}
	return mime, data, nil
}
