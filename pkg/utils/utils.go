package utils

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Supported audio file extensions
var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".m4p":  true,
	".aac":  true,
	".flac": true,
	".opus": true,
	".ogg":  true,
	".wav":  true,
}

// DefaultAudioExtension is used when a URL carries no recognisable extension.
// Catalog previews are AAC in an MPEG-4 container.
const DefaultAudioExtension = ".m4a"

// CreateTempDir creates a temporary folder for downloaded previews
func CreateTempDir() (string, error) {
	dir, err := os.MkdirTemp("", "songpreview-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary directory: %w", err)
	}
	return dir, nil
}

// Cleanup removes the temporary folder.
// Safety check: only deletes directories in /tmp
func Cleanup(dir string) error {
	if dir == "" {
		return nil
	}

	if !strings.HasPrefix(filepath.Clean(dir), filepath.Clean(os.TempDir())) {
		return fmt.Errorf("refusing to delete directory outside temp folder: %s", dir)
	}

	return os.RemoveAll(dir)
}

// IsAudioFile reports whether name has a supported audio extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// AudioExtension returns the audio file extension of a URL's path, falling
// back to DefaultAudioExtension. Tag readers pick the container format from it.
func AudioExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DefaultAudioExtension
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if audioExtensions[ext] {
		return ext
	}
	return DefaultAudioExtension
}
