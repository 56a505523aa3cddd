// File: internal/media/extract.go
package media

import (
	"sort"

	"github.com/xkilldash9x/birdclip/internal/faults"
	"github.com/xkilldash9x/birdclip/internal/structural"
)

// ExtractVariants walks a decoded TweetDetail payload for video media nodes
// and returns their mp4 variants, highest bitrate first. A payload in which
// the structural search finds nothing at all means the response envelope
// changed shape; zero variants under an intact envelope is a normal empty
// result, not an error.
func ExtractVariants(payload any) ([]VideoVariant, error) {
	matches := structural.Find(payload, structural.ObjectWhere(func(obj map[string]any) bool {
		t, ok := obj["type"].(string)
		return ok && t == "video"
	}))
	if matches == nil {
		// No video nodes at all. A tweet without videos is normal; a payload
		// without even its timeline entries means the envelope changed shape.
		if !envelopeIntact(payload) {
			return nil, faults.AppStructureChanged("no video-typed nodes findable in TweetDetail payload")
		}
		return []VideoVariant{}, nil
	}

	var variants []VideoVariant
	for _, node := range matches {
		obj, ok := node.(map[string]any)
		if !ok {
			continue
		}
		nodeVariants, err := variantsOfNode(obj)
		if err != nil {
			return nil, err
		}
		variants = append(variants, nodeVariants...)
	}

	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].BitrateBps > variants[j].BitrateBps
	})
	return variants, nil
}

// envelopeIntact checks for the timeline entry objects every TweetDetail
// response carries regardless of media content.
func envelopeIntact(payload any) bool {
	marker := structural.FindOne(payload, structural.ObjectWhere(func(obj map[string]any) bool {
		_, ok := obj["entryId"]
		return ok
	}))
	return marker != nil
}

// variantsOfNode reads one media node. A node without video_info is skipped;
// a node whose video_info has the wrong shape is a structural break.
func variantsOfNode(node map[string]any) ([]VideoVariant, error) {
	rawInfo, ok := node["video_info"]
	if !ok {
		return nil, nil
	}
	info, ok := rawInfo.(map[string]any)
	if !ok {
		return nil, faults.AppStructureChanged("video_info is %T, want object", rawInfo)
	}

	ratio, err := aspectRatioOf(info)
	if err != nil {
		return nil, err
	}
	poster, _ := node["media_url_https"].(string)

	rawVariants, ok := info["variants"].([]any)
	if !ok {
		return nil, faults.AppStructureChanged("video_info.variants is %T, want array", info["variants"])
	}

	var out []VideoVariant
	for _, rv := range rawVariants {
		v, ok := rv.(map[string]any)
		if !ok {
			return nil, faults.AppStructureChanged("variant entry is %T, want object", rv)
		}
		contentType, _ := v["content_type"].(string)
		if contentType != mp4ContentType {
			continue
		}
		url, ok := v["url"].(string)
		if !ok {
			return nil, faults.AppStructureChanged("mp4 variant lacks a string url")
		}
		out = append(out, VideoVariant{
			BitrateBps:  intField(v["bitrate"]),
			ContentType: contentType,
			URL:         url,
			PosterURL:   poster,
			AspectRatio: ratio,
		})
	}
	return out, nil
}

func aspectRatioOf(info map[string]any) (AspectRatio, error) {
	raw, ok := info["aspect_ratio"].([]any)
	if !ok || len(raw) != 2 {
		return AspectRatio{}, faults.AppStructureChanged("video_info.aspect_ratio is not a 2-element array")
	}
	return AspectRatio{X: intField(raw[0]), Y: intField(raw[1])}, nil
}

// intField tolerates the numeric types a JSON decoder may hand back.
func intField(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case int32:
		return int(n)
	default:
		return 0
	}
}
