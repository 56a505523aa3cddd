package media

import (
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/birdclip/internal/faults"
)

func decodeAny(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestExtractVariantsFiltersAndSorts(t *testing.T) {
	payload := decodeAny(t, `{
		"data": {"entries": [{"entryId": "tweet-1", "media": {
			"type": "video",
			"media_url_https": "https://pbs.twimg.com/poster.jpg",
			"video_info": {
				"aspect_ratio": [16, 9],
				"variants": [
					{"content_type": "video/mp4", "bitrate": 500000, "url": "https://video/500k.mp4"},
					{"content_type": "application/x-mpegURL", "url": "https://video/playlist.m3u8"},
					{"content_type": "video/mp4", "bitrate": 2000000, "url": "https://video/2m.mp4"}
				]
			}
		}}]}
	}`)

	variants, err := ExtractVariants(payload)
	require.NoError(t, err)
	require.Len(t, variants, 2)

	assert.Equal(t, 2000000, variants[0].BitrateBps)
	assert.Equal(t, "https://video/2m.mp4", variants[0].URL)
	assert.Equal(t, 500000, variants[1].BitrateBps)
	for _, v := range variants {
		assert.Equal(t, "video/mp4", v.ContentType)
		assert.Equal(t, AspectRatio{X: 16, Y: 9}, v.AspectRatio)
		assert.Equal(t, "https://pbs.twimg.com/poster.jpg", v.PosterURL)
	}
}

func TestExtractVariantsAcrossNodes(t *testing.T) {
	payload := decodeAny(t, `{
		"entries": [
			{"entryId": "tweet-1", "m": {"type": "video", "video_info": {
				"aspect_ratio": [1, 1],
				"variants": [{"content_type": "video/mp4", "bitrate": 100, "url": "https://video/a.mp4"}]
			}}},
			{"entryId": "tweet-2", "m": {"type": "video", "video_info": {
				"aspect_ratio": [4, 3],
				"variants": [{"content_type": "video/mp4", "bitrate": 900, "url": "https://video/b.mp4"}]
			}}},
			{"entryId": "tweet-3", "m": {"type": "photo"}}
		]
	}`)

	variants, err := ExtractVariants(payload)
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, "https://video/b.mp4", variants[0].URL)
	assert.Equal(t, "https://video/a.mp4", variants[1].URL)
}

func TestExtractVariantsStableOnTies(t *testing.T) {
	payload := decodeAny(t, `{
		"entries": [{"entryId": "tweet-1", "m": {"type": "video", "video_info": {
			"aspect_ratio": [1, 1],
			"variants": [
				{"content_type": "video/mp4", "bitrate": 100, "url": "https://video/first.mp4"},
				{"content_type": "video/mp4", "bitrate": 100, "url": "https://video/second.mp4"}
			]
		}}}]
	}`)

	variants, err := ExtractVariants(payload)
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, "https://video/first.mp4", variants[0].URL)
	assert.Equal(t, "https://video/second.mp4", variants[1].URL)
}

func TestExtractVariantsNoVideosIntactEnvelope(t *testing.T) {
	payload := decodeAny(t, `{
		"data": {"entries": [
			{"entryId": "tweet-1", "m": {"type": "photo"}},
			{"entryId": "cursor-bottom"}
		]}
	}`)

	variants, err := ExtractVariants(payload)
	require.NoError(t, err)
	assert.NotNil(t, variants)
	assert.Empty(t, variants)
}

func TestExtractVariantsBrokenEnvelope(t *testing.T) {
	payload := decodeAny(t, `{"errors": [{"message": "upstream reshaped everything"}]}`)

	_, err := ExtractVariants(payload)
	require.Error(t, err)
	assert.Equal(t, faults.KindAppStructureChanged, faults.KindOf(err))
}

func TestExtractVariantsNodeWithoutVideoInfoSkipped(t *testing.T) {
	payload := decodeAny(t, `{
		"entries": [{"entryId": "tweet-1",
			"a": {"type": "video"},
			"b": {"type": "video", "video_info": {
				"aspect_ratio": [9, 16],
				"variants": [{"content_type": "video/mp4", "bitrate": 50, "url": "https://video/only.mp4"}]
			}}
		}]
	}`)

	variants, err := ExtractVariants(payload)
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "https://video/only.mp4", variants[0].URL)
}

func TestExtractVariantsMalformedVideoInfo(t *testing.T) {
	for name, raw := range map[string]string{
		"video_info not object": `{"entries": [{"entryId": "t", "m": {"type": "video", "video_info": "nope"}}]}`,
		"aspect_ratio wrong":    `{"entries": [{"entryId": "t", "m": {"type": "video", "video_info": {"aspect_ratio": [1], "variants": []}}}]}`,
		"variants not array":    `{"entries": [{"entryId": "t", "m": {"type": "video", "video_info": {"aspect_ratio": [1, 1], "variants": 3}}}]}`,
		"mp4 without url":       `{"entries": [{"entryId": "t", "m": {"type": "video", "video_info": {"aspect_ratio": [1, 1], "variants": [{"content_type": "video/mp4", "bitrate": 1}]}}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractVariants(decodeAny(t, raw))
			require.Error(t, err)
			assert.Equal(t, faults.KindAppStructureChanged, faults.KindOf(err))
		})
	}
}
