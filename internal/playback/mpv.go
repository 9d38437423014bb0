//go:build mpv

package playback

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/wildeyedskies/go-mpv/mpv"
)

// mpvPlayer plays a single preview through libmpv.
type mpvPlayer struct {
	*mpv.Mpv
}

// NewMPVOpener returns an Opener backed by libmpv.
func NewMPVOpener() (Opener, error) {
	return func(ctx context.Context) (Player, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := createMPVInstance()
		if err != nil {
			return nil, fmt.Errorf("failed to create MPV instance: %w", err)
		}
		return &mpvPlayer{Mpv: m}, nil
	}, nil
}

func createMPVInstance() (*mpv.Mpv, error) {
	m := mpv.Create()

	m.SetOptionString("audio-display", "no")
	m.SetOptionString("video", "no")
	m.SetOptionString("pause", "yes")

	if err := m.Initialize(); err != nil {
		m.TerminateDestroy()
		return nil, err
	}
	return m, nil
}

func (p *mpvPlayer) Load(url string) error {
	return p.Command([]string{"loadfile", url})
}

func (p *mpvPlayer) Play() error {
	return p.Command([]string{"set", "pause", "no"})
}

func (p *mpvPlayer) Pause() error {
	return p.Command([]string{"set", "pause", "yes"})
}

func (p *mpvPlayer) Seek(pos time.Duration) error {
	secs := strconv.FormatFloat(pos.Seconds(), 'f', 3, 64)
	return p.Command([]string{"seek", secs, "absolute"})
}

func (p *mpvPlayer) Position() (time.Duration, error) {
	return p.seconds("time-pos")
}

func (p *mpvPlayer) Duration() (time.Duration, error) {
	return p.seconds("duration")
}

func (p *mpvPlayer) seconds(property string) (time.Duration, error) {
	v, err := p.GetProperty(property, mpv.FORMAT_DOUBLE)
	if err != nil {
		return 0, err
	}
	secs, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected %s value %v", property, v)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (p *mpvPlayer) Close() error {
	p.Command([]string{"stop"})
	p.TerminateDestroy()
	return nil
}
