// Package viewmodel holds the observable application state: the current song
// list, the selected song and the last search keyword.
package viewmodel

import (
	"context"
	"strconv"
	"sync"

	"songpreview/internal/catalog"
	"songpreview/internal/logger"
)

// Source fetches song lists. *catalog.Service satisfies it.
type Source interface {
	SearchSongs(ctx context.Context, keyword string) ([]catalog.Song, error)
	FetchTopSongs(ctx context.Context) ([]catalog.Song, error)
}

// Options configures a Model.
type Options struct {
	// SupersedeStale cancels the previous list fetch when a new one starts and
	// drops any completion that is not the most recent. When false, overlapping
	// fetches race and the last one to complete wins.
	SupersedeStale bool
}

// State is an immutable snapshot of the application state.
type State struct {
	Songs         []catalog.Song
	Selected      *catalog.Song
	LastSearch    string
	HasLastSearch bool
	// Err is the error of the last failed fetch. The next success clears it.
	Err     error
	Version uint64
	Loading bool
}

// update mutates the state on the update goroutine and reports whether
// anything changed.
type update func(*State) bool

const (
	subscriberBuffer = 10
	updateQueueSize  = 64
)

// Model is the song list view model. All state mutations are applied on a
// single update goroutine; fetches run on their own goroutines and hand their
// results back through the update queue.
type Model struct {
	source Source
	opts   Options
	logger *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	updates chan update
	quit    chan struct{}
	done    chan struct{}
	closed  sync.Once

	mu        sync.RWMutex
	state     State
	listeners []chan State

	// Owned by the update goroutine.
	inflight   int
	seq        uint64
	cancelPrev context.CancelFunc

	fetches sync.WaitGroup
}

// New creates a Model and starts its update goroutine. Call Close to stop it.
func New(source Source, opts Options, log *logger.Logger) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		source:  source,
		opts:    opts,
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
		updates: make(chan update, updateQueueSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Model) run() {
	defer close(m.done)
	for {
		select {
		case fn := <-m.updates:
			m.apply(fn)
		case <-m.quit:
			return
		}
	}
}

func (m *Model) apply(fn update) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state
	if !fn(&next) {
		return
	}
	next.Version++
	m.state = next
	m.notifyListeners(next)
}

// notifyListeners delivers the snapshot to every subscriber. A full buffer
// loses its oldest snapshot so the newest one always gets through.
func (m *Model) notifyListeners(s State) {
	for _, ch := range m.listeners {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// enqueue schedules fn on the update goroutine. Returns false once the model
// is closed.
func (m *Model) enqueue(fn update) bool {
	select {
	case <-m.quit:
		return false
	default:
	}
	select {
	case m.updates <- fn:
		return true
	case <-m.quit:
		return false
	}
}

// do runs fn on the update goroutine and waits for it to be applied.
func (m *Model) do(fn update) bool {
	applied := make(chan struct{})
	ok := m.enqueue(func(s *State) bool {
		defer close(applied)
		return fn(s)
	})
	if !ok {
		return false
	}
	select {
	case <-applied:
		return true
	case <-m.quit:
		return false
	}
}

// SearchSongs records keyword as the last search and fetches matching songs
// in the background. On failure the current list is kept and State.Err is set.
func (m *Model) SearchSongs(keyword string) {
	record := func(s *State) {
		s.LastSearch = keyword
		s.HasLastSearch = true
	}
	m.startFetch("search "+strconv.Quote(keyword), record, func(ctx context.Context) ([]catalog.Song, error) {
		return m.source.SearchSongs(ctx, keyword)
	})
}

// FetchTopSongs fetches the landing list in the background. The last search
// keyword is left untouched.
func (m *Model) FetchTopSongs() {
	m.startFetch("top songs", nil, m.source.FetchTopSongs)
}

// SelectSong sets the selected song.
func (m *Model) SelectSong(song catalog.Song) {
	m.do(func(s *State) bool {
		s.Selected = &song
		return true
	})
}

// Resume re-runs the last search if there is one and fetches the top songs
// otherwise.
func (m *Model) Resume() {
	s := m.Snapshot()
	if s.HasLastSearch {
		m.logger.Debug("resuming last search %q", s.LastSearch)
		m.SearchSongs(s.LastSearch)
		return
	}
	m.FetchTopSongs()
}

// startFetch records the intent, takes a sequence number and launches the
// fetch in one step on the update goroutine, so the newest keyword always
// owns the newest sequence number.
func (m *Model) startFetch(name string, record func(*State), fetch func(context.Context) ([]catalog.Song, error)) {
	m.do(func(s *State) bool {
		if record != nil {
			record(s)
		}
		m.inflight++
		s.Loading = true

		m.seq++
		seq := m.seq
		ctx := m.ctx
		if m.opts.SupersedeStale {
			if m.cancelPrev != nil {
				m.cancelPrev()
			}
			var cancel context.CancelFunc
			ctx, cancel = context.WithCancel(m.ctx)
			m.cancelPrev = cancel
		}

		m.fetches.Add(1)
		go m.runFetch(ctx, name, seq, fetch)
		return true
	})
}

func (m *Model) runFetch(ctx context.Context, name string, seq uint64, fetch func(context.Context) ([]catalog.Song, error)) {
	defer m.fetches.Done()

	songs, err := fetch(ctx)
	m.enqueue(func(s *State) bool {
		m.inflight--
		s.Loading = m.inflight > 0

		if m.opts.SupersedeStale && seq != m.seq {
			m.logger.Debug("dropping stale %s result", name)
			return true
		}
		if err != nil {
			m.logger.Error("%s failed: %v", name, err)
			s.Err = err
			return true
		}
		m.logger.Debug("%s returned %d songs", name, len(songs))
		s.Songs = songs
		s.Err = nil
		return true
	})
}

// Snapshot returns the current state.
func (m *Model) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe returns a channel receiving a snapshot after every applied change.
func (m *Model) Subscribe() <-chan State {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan State, subscriberBuffer)
	m.listeners = append(m.listeners, ch)
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (m *Model) Unsubscribe(ch <-chan State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, listener := range m.listeners {
		if listener == ch {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			close(listener)
			break
		}
	}
}

// Wait blocks until every started fetch has completed and its result has
// been applied. It must not race with starting new fetches.
func (m *Model) Wait() {
	m.fetches.Wait()
	m.do(func(*State) bool { return false })
}

// Close cancels in-flight fetches, stops the update goroutine and closes all
// subscriber channels. It is safe to call more than once.
func (m *Model) Close() {
	m.closed.Do(func() {
		m.cancel()
		close(m.quit)
		<-m.done
		// Fetches are only started on the update goroutine, which is gone.
		m.fetches.Wait()

		m.mu.Lock()
		defer m.mu.Unlock()
		for _, ch := range m.listeners {
			close(ch)
		}
		m.listeners = nil
	})
}
