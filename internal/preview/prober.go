// Package preview inspects preview clips: it downloads a clip and reads its
// audio properties and tags.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.senan.xyz/taglib"

	"songpreview/internal/logger"
	"songpreview/pkg/utils"
)

// maxClipSize bounds a preview download. Catalog previews are ~30s AAC clips
// well under a megabyte.
const maxClipSize = 20 << 20

// ErrClipTooLarge is returned when a clip exceeds maxClipSize.
var ErrClipTooLarge = errors.New("preview clip too large")

// Info describes a downloaded preview clip.
type Info struct {
	Duration   time.Duration
	Bitrate    int // kbit/s
	SampleRate int // Hz
	Channels   int
	Title      string
	Artist     string
}

// Prober downloads preview clips and reads them with taglib.
type Prober struct {
	httpClient *http.Client
	logger     *logger.Logger
}

// NewProber creates a Prober.
func NewProber(log *logger.Logger) *Prober {
	return &Prober{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     log,
	}
}

// Probe downloads the clip at clipURL to a temporary file and reads its
// properties and tags. The temporary file is always removed.
func (p *Prober) Probe(ctx context.Context, clipURL string) (Info, error) {
	dir, err := utils.CreateTempDir()
	if err != nil {
		return Info{}, err
	}
	defer func() {
		if err := utils.Cleanup(dir); err != nil {
			p.logger.Warn("failed to remove %s: %v", dir, err)
		}
	}()

	path := filepath.Join(dir, "clip"+utils.AudioExtension(clipURL))
	if err := p.download(ctx, clipURL, path); err != nil {
		return Info{}, err
	}

	props, err := taglib.ReadProperties(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to read audio properties: %w", err)
	}

	info := Info{
		Duration:   props.Length,
		Bitrate:    int(props.Bitrate),
		SampleRate: int(props.SampleRate),
		Channels:   int(props.Channels),
	}

	tags, err := taglib.ReadTags(path)
	if err != nil {
		p.logger.Debug("no tags in %s: %v", clipURL, err)
	} else {
		info.Title = firstTag(tags, taglib.Title)
		info.Artist = firstTag(tags, taglib.Artist)
	}

	p.logger.Debug("probed %s: %s, %d kbit/s", clipURL, info.Duration, info.Bitrate)
	return info, nil
}

// ProbeDuration returns the clip duration only.
func (p *Prober) ProbeDuration(ctx context.Context, clipURL string) (time.Duration, error) {
	info, err := p.Probe(ctx, clipURL)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

func (p *Prober) download(ctx context.Context, clipURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, clipURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create preview request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download preview: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("preview download returned %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(resp.Body, maxClipSize+1))
	if err != nil {
		return fmt.Errorf("failed to write preview data: %w", err)
	}
	if n > maxClipSize {
		return ErrClipTooLarge
	}
	return f.Close()
}

func firstTag(tags map[string][]string, key string) string {
	if vals, ok := tags[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}
