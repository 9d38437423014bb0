// Package playback drives preview playback for one listening session: it
// owns the player, tracks progress and steps through the song list.
package playback

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmptyList       = errors.New("song list is empty")
	ErrIndexOutOfRange = errors.New("song index out of range")
	ErrAlreadyOpen     = errors.New("playback session already open")
	ErrNotOpen         = errors.New("no playback session open")
	ErrUnknownDuration = errors.New("track duration unknown")
	ErrNoBackend       = errors.New("no audio backend compiled in (build with -tags mpv)")
)

// Player is a single-track audio player. Load leaves it paused at the start
// of the track.
type Player interface {
	Load(url string) error
	Play() error
	Pause() error
	Seek(pos time.Duration) error
	Position() (time.Duration, error)
	// Duration returns 0 while the duration is not known yet.
	Duration() (time.Duration, error)
	Close() error
}

// Opener creates a fresh Player for each track.
type Opener func(ctx context.Context) (Player, error)

// Prober reports the duration of a preview clip before playback starts.
type Prober interface {
	ProbeDuration(ctx context.Context, url string) (time.Duration, error)
}
