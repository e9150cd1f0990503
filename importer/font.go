package importer

import (
	"fmt"

	"go.uber.org/zap"

	"domcast/common"
	"domcast/scene"
)

// fallbackFamily is the guaranteed-available family every font load chain
// ends at (§4.7.2 "finally to a guaranteed-available family").
const fallbackFamily = "Arial"

// fontCache is a per-schema (family, style) -> host font handle cache,
// grounded on convert/kfx/frag_font.go's FontInfo cache but resolving real
// font availability through NodeAPI.LoadFont instead of emitting a KFX font
// fragment.
type fontCache struct {
	api   NodeAPI
	log   *zap.Logger
	cache map[string]any
}

func newFontCache(api NodeAPI, log *zap.Logger) *fontCache {
	return &fontCache{api: api, log: log, cache: make(map[string]any)}
}

// preload loads every (family, style) pair referenced by a TEXT node's
// textStyle before any node is built (§4.7.2 "before any TEXT node is
// built"), so a mid-build font-load stall never interleaves with partially
// built siblings.
func (f *fontCache) preload(root *scene.AnalyzedNode) error {
	var firstErr error
	var walk func(*scene.AnalyzedNode)
	walk = func(n *scene.AnalyzedNode) {
		if n.Type == common.NodeText && n.TextStyle != nil {
			if _, err := f.load(n.TextStyle.FontFamily, n.TextStyle.FontFallbacks, n.TextStyle.FontStyle); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return firstErr
}

// load returns a cached font handle for (family, style), walking the
// fallback stack and finally fallbackFamily on failure (§4.7.2).
func (f *fontCache) load(family string, fallbacks []string, style string) (any, error) {
	key := cacheKey(family, style)
	if h, ok := f.cache[key]; ok {
		return h, nil
	}

	candidates := append([]string{family}, fallbacks...)
	candidates = append(candidates, fallbackFamily)

	var lastErr error
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		h, err := f.api.LoadFont(candidate, style)
		if err == nil {
			f.cache[key] = h
			if candidate != family {
				f.log.Debug("font fallback used", zap.String("requested", family), zap.String("loaded", candidate))
			}
			return h, nil
		}
		lastErr = err
	}
	return nil, common.WrapError(common.ErrFontLoadFailed, fmt.Sprintf("no candidate available for family=%q style=%q", family, style), lastErr)
}

func cacheKey(family, style string) string {
	return family + "\x00" + style
}
