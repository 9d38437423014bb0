package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"songpreview/internal/catalog"
	"songpreview/internal/logger"
)

// State is the controller's session state.
type State int

const (
	Idle State = iota
	Ready
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Status is a snapshot of the playback session.
type Status struct {
	State     State
	Index     int
	Song      catalog.Song
	Playing   bool
	Progress  float64
	Elapsed   time.Duration
	Remaining time.Duration
	Duration  time.Duration
	SessionID string
}

// Options configures a Controller.
type Options struct {
	// Interval is the progress sampling period. Defaults to one second.
	Interval time.Duration
	// Prober, when set, supplies the track duration once a track is loaded.
	// It runs outside the controller lock.
	Prober Prober
	// OnUpdate is called with a fresh Status after every sample and every
	// transport change. It runs outside the controller lock.
	OnUpdate func(Status)
}

// Controller owns one player at a time and the song list it was opened with.
type Controller struct {
	open   Opener
	opts   Options
	logger *logger.Logger

	mu        sync.Mutex
	state     State
	songs     []catalog.Song
	index     int
	player    Player
	duration  time.Duration
	elapsed   time.Duration
	sessionID string
	// load counts player loads so a late duration lookup only applies to its own track.
	load uint64

	stopSampler chan struct{}
	samplerDone chan struct{}
}

// NewController creates an idle Controller.
func NewController(open Opener, opts Options, log *logger.Logger) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	return &Controller{
		open:   open,
		opts:   opts,
		logger: log,
	}
}

// Open starts a session on songs[index], leaving it loaded and paused. The
// list is copied. A negative index looks song up by ID and falls back to the
// first entry.
func (c *Controller) Open(ctx context.Context, song catalog.Song, index int, songs []catalog.Song) error {
	if len(songs) == 0 {
		return ErrEmptyList
	}
	if index < 0 {
		index = catalog.IndexOf(songs, song.ID)
		if index < 0 {
			index = 0
		}
	}
	if index >= len(songs) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(songs))
	}

	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}

	c.songs = append([]catalog.Song(nil), songs...)
	c.sessionID = uuid.NewString()
	err := c.loadLocked(ctx, index)
	if err != nil {
		c.songs = nil
		c.sessionID = ""
	}
	st, load := c.statusLocked(), c.load
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.logger.Debug("session %s opened on %q", st.SessionID, st.Song.TrackName)
	c.notify(st)
	c.refineDuration(ctx, load, st.Song.PreviewURL)
	return nil
}

// TogglePlayPause plays from Ready or Paused and pauses from Playing.
func (c *Controller) TogglePlayPause() error {
	c.mu.Lock()
	var err error
	switch c.state {
	case Idle:
		err = ErrNotOpen
	case Ready, Paused:
		if err = c.player.Play(); err == nil {
			c.state = Playing
		}
	case Playing:
		if err = c.player.Pause(); err == nil {
			c.state = Paused
		}
	}
	st := c.statusLocked()
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.notify(st)
	return nil
}

// Seek moves to fraction of the track duration. The fraction is clamped to
// [0,1] and the play state is unchanged.
func (c *Controller) Seek(fraction float64) error {
	c.mu.Lock()
	if c.state == Idle {
		c.mu.Unlock()
		return ErrNotOpen
	}
	if c.duration <= 0 {
		c.mu.Unlock()
		return ErrUnknownDuration
	}

	target := time.Duration(clamp(fraction) * float64(c.duration))
	err := c.player.Seek(target)
	if err == nil {
		c.elapsed = target
	}
	st := c.statusLocked()
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("seek failed: %w", err)
	}
	c.notify(st)
	return nil
}

// Next switches to the following song, wrapping to the first, and plays it.
func (c *Controller) Next(ctx context.Context) error {
	return c.step(ctx, NextIndex)
}

// Previous switches to the preceding song, wrapping to the last, and plays it.
func (c *Controller) Previous(ctx context.Context) error {
	return c.step(ctx, PreviousIndex)
}

func (c *Controller) step(ctx context.Context, move func(i, n int) int) error {
	c.mu.Lock()
	if c.state == Idle {
		c.mu.Unlock()
		return ErrNotOpen
	}
	return c.switchTo(ctx, move(c.index, len(c.songs)))
}

// PlayIndex switches to songs[index] of the session list and plays it.
func (c *Controller) PlayIndex(ctx context.Context, index int) error {
	c.mu.Lock()
	if c.state == Idle {
		c.mu.Unlock()
		return ErrNotOpen
	}
	if index < 0 || index >= len(c.songs) {
		n := len(c.songs)
		c.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, n)
	}
	return c.switchTo(ctx, index)
}

// switchTo is called with c.mu held and releases it.
func (c *Controller) switchTo(ctx context.Context, index int) error {
	wait := c.teardownLocked()
	err := c.loadLocked(ctx, index)
	if err == nil {
		if err = c.player.Play(); err == nil {
			c.state = Playing
		}
	}
	if err != nil {
		c.logger.Error("failed to switch to track %d: %v", index, err)
		wait = joinWaits(wait, c.teardownLocked())
		c.state = Idle
	}
	st, load := c.statusLocked(), c.load
	c.mu.Unlock()

	wait()
	c.notify(st)
	if err == nil {
		c.refineDuration(ctx, load, st.Song.PreviewURL)
	}
	return err
}

// Close pauses and releases the player and ends the session. It stops the
// sampler before returning.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.state == Idle {
		c.mu.Unlock()
		return nil
	}
	id := c.sessionID
	wait := c.teardownLocked()
	c.state = Idle
	c.songs = nil
	c.index = 0
	c.sessionID = ""
	st := c.statusLocked()
	c.mu.Unlock()

	wait()
	c.logger.Debug("session %s closed", id)
	c.notify(st)
	return nil
}

// Status returns the current session snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// loadLocked opens a player on songs[index] and starts the sampler. On
// success the state is Ready.
func (c *Controller) loadLocked(ctx context.Context, index int) error {
	song := c.songs[index]

	p, err := c.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open player: %w", err)
	}
	if err := p.Load(song.PreviewURL); err != nil {
		p.Close()
		return fmt.Errorf("failed to load %s: %w", song.PreviewURL, err)
	}

	c.player = p
	c.index = index
	c.elapsed = 0
	c.duration = 0
	if d, err := p.Duration(); err == nil && d > 0 {
		c.duration = d
	}
	c.load++
	c.state = Ready
	c.startSamplerLocked()
	return nil
}

// refineDuration asks the Prober for the duration of the track loaded as
// load and applies it if that track is still current. It must be called
// without c.mu held.
func (c *Controller) refineDuration(ctx context.Context, load uint64, url string) {
	if c.opts.Prober == nil {
		return
	}
	d, err := c.opts.Prober.ProbeDuration(ctx, url)
	if err != nil {
		c.logger.Warn("failed to probe %s: %v", url, err)
		return
	}
	if d <= 0 {
		return
	}

	c.mu.Lock()
	if c.state == Idle || c.load != load {
		c.mu.Unlock()
		return
	}
	c.duration = d
	st := c.statusLocked()
	c.mu.Unlock()

	c.notify(st)
}

// teardownLocked stops the sampler and releases the player. The returned
// func waits for the sampler goroutine and must be called without c.mu held.
func (c *Controller) teardownLocked() func() {
	wait := func() {}
	if c.stopSampler != nil {
		close(c.stopSampler)
		done := c.samplerDone
		wait = func() { <-done }
		c.stopSampler = nil
		c.samplerDone = nil
	}

	if c.player != nil {
		if err := c.player.Pause(); err != nil {
			c.logger.Debug("pause on teardown: %v", err)
		}
		if err := c.player.Close(); err != nil {
			c.logger.Warn("failed to release player: %v", err)
		}
		c.player = nil
	}
	c.elapsed = 0
	c.duration = 0
	return wait
}

func (c *Controller) startSamplerLocked() {
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stopSampler = stop
	c.samplerDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if st, ok := c.sample(stop); ok {
					c.notify(st)
				}
			}
		}
	}()
}

// sample reads the player position and duration. It reports false once the
// sampler has been stopped.
func (c *Controller) sample(stop <-chan struct{}) (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-stop:
		return Status{}, false
	default:
	}

	if d, err := c.player.Duration(); err == nil && d > 0 {
		c.duration = d
	}
	pos, err := c.player.Position()
	if err != nil {
		c.logger.Debug("position not available: %v", err)
		return Status{}, false
	}
	c.elapsed = pos
	return c.statusLocked(), true
}

func (c *Controller) statusLocked() Status {
	st := Status{
		State:     c.state,
		Index:     c.index,
		Playing:   c.state == Playing,
		Elapsed:   c.elapsed,
		Duration:  c.duration,
		Progress:  Fraction(c.elapsed, c.duration),
		SessionID: c.sessionID,
	}
	if c.state != Idle && c.index < len(c.songs) {
		st.Song = c.songs[c.index]
	}
	if c.duration > c.elapsed {
		st.Remaining = c.duration - c.elapsed
	}
	return st
}

func (c *Controller) notify(st Status) {
	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate(st)
	}
}

func joinWaits(a, b func()) func() {
	return func() {
		a()
		b()
	}
}
