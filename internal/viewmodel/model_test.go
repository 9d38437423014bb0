package viewmodel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"songpreview/internal/catalog"
	"songpreview/internal/logger"
)

type fakeSource struct {
	mu       sync.Mutex
	results  map[string][]catalog.Song
	errs     map[string]error
	gates    map[string]chan struct{}
	top      []catalog.Song
	topErr   error
	searches []string
	topCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		results: make(map[string][]catalog.Song),
		errs:    make(map[string]error),
		gates:   make(map[string]chan struct{}),
	}
}

func (f *fakeSource) SearchSongs(ctx context.Context, keyword string) ([]catalog.Song, error) {
	f.mu.Lock()
	f.searches = append(f.searches, keyword)
	gate := f.gates[keyword]
	songs, err := f.results[keyword], f.errs[keyword]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return songs, err
}

func (f *fakeSource) FetchTopSongs(ctx context.Context) ([]catalog.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topCalls++
	return f.top, f.topErr
}

func (f *fakeSource) searchLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

func newTestModel(t *testing.T, src Source, opts Options) *Model {
	t.Helper()
	m := New(src, opts, logger.New(false))
	t.Cleanup(m.Close)
	return m
}

func waitFor(t *testing.T, ch <-chan State, pred func(State) bool) State {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				t.Fatal("subscription closed")
			}
			if pred(s) {
				return s
			}
		case <-timeout:
			t.Fatal("timed out waiting for state")
		}
	}
}

func songs(ids ...int64) []catalog.Song {
	out := make([]catalog.Song, len(ids))
	for i, id := range ids {
		out[i] = catalog.Song{ID: id, TrackName: "track", ArtistName: "artist"}
	}
	return out
}

func sameIDs(got []catalog.Song, want ...int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i].ID != want[i] {
			return false
		}
	}
	return true
}

func TestSearchSongs(t *testing.T) {
	src := newFakeSource()
	src.results["deftones"] = songs(1, 2)

	m := newTestModel(t, src, Options{})
	m.SearchSongs("deftones")
	m.Wait()

	s := m.Snapshot()
	if !sameIDs(s.Songs, 1, 2) {
		t.Errorf("Songs = %+v, want ids [1 2]", s.Songs)
	}
	if !s.HasLastSearch || s.LastSearch != "deftones" {
		t.Errorf("LastSearch = %q (%v), want deftones", s.LastSearch, s.HasLastSearch)
	}
	if s.Loading {
		t.Error("Loading should be false after Wait")
	}
	if s.Err != nil {
		t.Errorf("Err = %v, want nil", s.Err)
	}
}

func TestSearchRecordsKeywordImmediately(t *testing.T) {
	src := newFakeSource()
	gate := make(chan struct{})
	src.gates["slow"] = gate

	m := newTestModel(t, src, Options{})
	m.SearchSongs("slow")

	s := m.Snapshot()
	if s.LastSearch != "slow" || !s.HasLastSearch {
		t.Errorf("LastSearch = %q, want slow before the fetch completes", s.LastSearch)
	}
	if !s.Loading {
		t.Error("Loading should be true while the fetch is in flight")
	}

	close(gate)
	m.Wait()
	if m.Snapshot().Loading {
		t.Error("Loading should be false after the fetch completes")
	}
}

func TestFetchTopSongsKeepsLastSearch(t *testing.T) {
	src := newFakeSource()
	src.results["korn"] = songs(7)
	src.top = songs(1, 2, 3)

	m := newTestModel(t, src, Options{})
	m.SearchSongs("korn")
	m.Wait()
	m.FetchTopSongs()
	m.Wait()

	s := m.Snapshot()
	if !sameIDs(s.Songs, 1, 2, 3) {
		t.Errorf("Songs = %+v, want top list", s.Songs)
	}
	if s.LastSearch != "korn" {
		t.Errorf("LastSearch = %q, want korn", s.LastSearch)
	}
}

func TestFailureKeepsStaleSongs(t *testing.T) {
	src := newFakeSource()
	src.results["good"] = songs(1, 2)
	src.errs["bad"] = errors.New("network down")

	m := newTestModel(t, src, Options{})
	m.SearchSongs("good")
	m.Wait()
	m.SearchSongs("bad")
	m.Wait()

	s := m.Snapshot()
	if !sameIDs(s.Songs, 1, 2) {
		t.Errorf("Songs = %+v, want previous list kept", s.Songs)
	}
	if s.Err == nil || s.Err.Error() != "network down" {
		t.Errorf("Err = %v, want network down", s.Err)
	}
	if s.LastSearch != "bad" {
		t.Errorf("LastSearch = %q, want bad", s.LastSearch)
	}

	m.SearchSongs("good")
	m.Wait()
	if err := m.Snapshot().Err; err != nil {
		t.Errorf("Err = %v, want cleared after success", err)
	}
}

func TestSelectSong(t *testing.T) {
	m := newTestModel(t, newFakeSource(), Options{})

	song := catalog.Song{ID: 42, TrackName: "Sextape"}
	m.SelectSong(song)

	s := m.Snapshot()
	if s.Selected == nil || *s.Selected != song {
		t.Errorf("Selected = %+v, want %+v", s.Selected, song)
	}
}

func TestResume(t *testing.T) {
	t.Run("no last search fetches top songs", func(t *testing.T) {
		src := newFakeSource()
		src.top = songs(1)

		m := newTestModel(t, src, Options{})
		m.Resume()
		m.Wait()

		if src.topCalls != 1 {
			t.Errorf("top calls = %d, want 1", src.topCalls)
		}
		if len(src.searchLog()) != 0 {
			t.Errorf("unexpected searches: %v", src.searchLog())
		}
	})

	t.Run("last search is replayed", func(t *testing.T) {
		src := newFakeSource()
		src.results["tool"] = songs(5)

		m := newTestModel(t, src, Options{})
		m.SearchSongs("tool")
		m.Wait()
		m.Resume()
		m.Wait()

		if got := src.searchLog(); len(got) != 2 || got[1] != "tool" {
			t.Errorf("searches = %v, want [tool tool]", got)
		}
		if src.topCalls != 0 {
			t.Errorf("top calls = %d, want 0", src.topCalls)
		}
	})
}

func TestOverlappingSearches(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantIDs []int64
	}{
		{name: "last completion wins", opts: Options{}, wantIDs: []int64{1}},
		{name: "supersede stale", opts: Options{SupersedeStale: true}, wantIDs: []int64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource()
			gate := make(chan struct{})
			src.gates["a"] = gate
			src.results["a"] = songs(1)
			src.results["b"] = songs(2)

			m := newTestModel(t, src, tt.opts)
			updates := m.Subscribe()

			m.SearchSongs("a")
			m.SearchSongs("b")
			waitFor(t, updates, func(s State) bool { return sameIDs(s.Songs, 2) })

			close(gate)
			m.Wait()

			s := m.Snapshot()
			if !sameIDs(s.Songs, tt.wantIDs...) {
				t.Errorf("Songs = %+v, want ids %v", s.Songs, tt.wantIDs)
			}
			if s.Err != nil {
				t.Errorf("Err = %v, want nil", s.Err)
			}
			if s.LastSearch != "b" {
				t.Errorf("LastSearch = %q, want b", s.LastSearch)
			}
		})
	}
}

func TestConcurrentSearchesKeepKeywordAndListInStep(t *testing.T) {
	src := newFakeSource()
	keywords := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for i, kw := range keywords {
		src.results[kw] = songs(int64(i + 1))
	}

	m := newTestModel(t, src, Options{SupersedeStale: true})

	var wg sync.WaitGroup
	for _, kw := range keywords {
		wg.Add(1)
		go func(kw string) {
			defer wg.Done()
			m.SearchSongs(kw)
		}(kw)
	}
	wg.Wait()
	m.Wait()

	s := m.Snapshot()
	if s.Err != nil {
		t.Fatalf("Err = %v", s.Err)
	}
	want := src.results[s.LastSearch]
	if !sameIDs(s.Songs, want[0].ID) {
		t.Errorf("LastSearch = %q but Songs = %+v", s.LastSearch, s.Songs)
	}
}

func TestSubscribe(t *testing.T) {
	src := newFakeSource()
	src.results["x"] = songs(1, 2, 3)

	m := newTestModel(t, src, Options{})
	updates := m.Subscribe()

	m.SearchSongs("x")
	s := waitFor(t, updates, func(s State) bool { return len(s.Songs) == 3 })
	if s.Version == 0 {
		t.Error("Version should advance with each change")
	}

	m.Unsubscribe(updates)
	for range updates {
	}
}

func TestSlowSubscriberGetsNewest(t *testing.T) {
	m := newTestModel(t, newFakeSource(), Options{})
	updates := m.Subscribe()

	for i := 0; i < subscriberBuffer*3; i++ {
		m.SelectSong(catalog.Song{ID: int64(i)})
	}

	var last State
	for len(updates) > 0 {
		last = <-updates
	}
	want := int64(subscriberBuffer*3 - 1)
	if last.Selected == nil || last.Selected.ID != want {
		t.Errorf("last delivered selection = %+v, want id %d", last.Selected, want)
	}
}

func TestVersionMonotonic(t *testing.T) {
	m := newTestModel(t, newFakeSource(), Options{})

	prev := m.Snapshot().Version
	for i := 0; i < 5; i++ {
		m.SelectSong(catalog.Song{ID: int64(i)})
		v := m.Snapshot().Version
		if v <= prev {
			t.Fatalf("Version did not advance: %d -> %d", prev, v)
		}
		prev = v
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	m := New(newFakeSource(), Options{}, logger.New(false))
	updates := m.Subscribe()
	m.Close()
	m.Close()

	select {
	case _, ok := <-updates:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed")
	}

	// Operations after Close are no-ops.
	m.SearchSongs("late")
	m.SelectSong(catalog.Song{ID: 1})
	if m.Snapshot().Selected != nil {
		t.Error("SelectSong after Close should not apply")
	}
}
