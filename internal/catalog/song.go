// Package catalog talks to the iTunes Search API and decodes its results
// into Song records.
package catalog

import (
	"net/url"
	"path"
	"strings"
)

// highResArtwork replaces the 100x100 thumbnail filename.
const highResArtwork = "632x632bb-60.jpg"

// Song is a single catalog entry. Values are never modified after decoding.
type Song struct {
	ID         int64  `json:"trackId"`
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
	ArtworkURL string `json:"artworkUrl100"`
	PreviewURL string `json:"previewUrl"`
}

// SearchResults is the response envelope. Results keep server order.
type SearchResults struct {
	Results []Song `json:"results"`
}

// HighResArtworkURL swaps the last path segment of the thumbnail URL for the
// large artwork filename. Returns "" when the artwork URL is missing or unparsable.
func (s Song) HighResArtworkURL() string {
	if s.ArtworkURL == "" {
		return ""
	}
	u, err := url.Parse(s.ArtworkURL)
	if err != nil || u.Host == "" {
		return ""
	}

	dir := path.Dir(strings.TrimSuffix(u.Path, "/"))
	u.Path = path.Join(dir, highResArtwork)
	u.RawPath = ""
	return u.String()
}

// IndexOf returns the position of the song with the given ID, or -1.
func IndexOf(songs []Song, id int64) int {
	for i, s := range songs {
		if s.ID == id {
			return i
		}
	}
	return -1
}
