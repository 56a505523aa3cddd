// File: internal/media/media.go

// Package media calls the TweetDetail endpoint with a scraped environment
// and digs mp4 variants out of whatever envelope the response wraps them in.
package media

import (
	json "github.com/json-iterator/go"
)

// mp4ContentType is the only variant content type kept. Streaming playlist
// variants (application/x-mpegURL) are useless as downloadable files.
const mp4ContentType = "video/mp4"

// AspectRatio is the two-element pair the API reports per video.
type AspectRatio struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// VideoVariant is one downloadable rendition of one video.
type VideoVariant struct {
	BitrateBps  int         `json:"bitrate"`
	ContentType string      `json:"contentType"`
	URL         string      `json:"url"`
	PosterURL   string      `json:"posterUrl,omitempty"`
	AspectRatio AspectRatio `json:"aspectRatio"`
}

// decode is shared by the fetcher and tests so both read JSON through the
// same library configuration.
func decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}
