package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"songpreview/internal/catalog"
	"songpreview/internal/logger"
	"songpreview/internal/playback"
	"songpreview/internal/preview"
	"songpreview/internal/progress"
	"songpreview/internal/viewmodel"
)

type stubSource struct {
	songs []catalog.Song
}

func (s stubSource) SearchSongs(context.Context, string) ([]catalog.Song, error) {
	return s.songs, nil
}

func (s stubSource) FetchTopSongs(context.Context) ([]catalog.Song, error) {
	return s.songs, nil
}

type stubPlayer struct {
	mu      sync.Mutex
	url     string
	playing bool
}

func (p *stubPlayer) Load(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	return nil
}

func (p *stubPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	return nil
}

func (p *stubPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	return nil
}

func (p *stubPlayer) Seek(time.Duration) error { return nil }
func (p *stubPlayer) Position() (time.Duration, error) { return 0, nil }
func (p *stubPlayer) Duration() (time.Duration, error) { return 30 * time.Second, nil }
func (p *stubPlayer) Close() error { return nil }

func newTestShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()
	log := logger.New(false)

	songs := []catalog.Song{
		{ID: 1, TrackName: "Change", ArtistName: "Deftones", ArtworkURL: "https://example.com/a/100x100bb.jpg", PreviewURL: "https://example.com/1.m4a"},
		{ID: 2, TrackName: "Sextape", ArtistName: "Deftones", PreviewURL: "https://example.com/2.m4a"},
		{ID: 3, TrackName: "Diamond Eyes", ArtistName: "Deftones", PreviewURL: "https://example.com/3.m4a"},
	}
	model := viewmodel.New(stubSource{songs: songs}, viewmodel.Options{}, log)
	t.Cleanup(model.Close)

	open := func(context.Context) (playback.Player, error) { return &stubPlayer{}, nil }
	player := playback.NewController(open, playback.Options{Interval: time.Hour}, log)
	t.Cleanup(func() { player.Close() })

	var out bytes.Buffer
	shell := newShell(model, player, preview.NewProber(log), progress.New(&out), log, &out)
	return shell, &out
}

func TestShellSearchAndList(t *testing.T) {
	shell, out := newTestShell(t)
	ctx := context.Background()

	if err := shell.Exec(ctx, "search deftones"); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{" 1. Deftones - Change", " 2. Deftones - Sextape", " 3. Deftones - Diamond Eyes"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	if got := shell.model.Snapshot().LastSearch; got != "deftones" {
		t.Errorf("LastSearch = %q, want deftones", got)
	}
}

func TestShellSelectAndPlay(t *testing.T) {
	shell, _ := newTestShell(t)
	ctx := context.Background()

	shell.Exec(ctx, "top")
	if err := shell.Exec(ctx, "select 2"); err != nil {
		t.Fatal(err)
	}
	if sel := shell.model.Snapshot().Selected; sel == nil || sel.ID != 2 {
		t.Fatalf("Selected = %+v, want id 2", sel)
	}

	if err := shell.Exec(ctx, "play"); err != nil {
		t.Fatal(err)
	}
	st := shell.player.Status()
	if st.State != playback.Playing || st.Index != 1 {
		t.Errorf("State = %s, Index = %d, want playing / 1", st.State, st.Index)
	}

	shell.Exec(ctx, "pause")
	if st := shell.player.Status(); st.State != playback.Paused {
		t.Errorf("State = %s, want paused", st.State)
	}

	shell.Exec(ctx, "next")
	shell.Exec(ctx, "next")
	if st := shell.player.Status(); st.Index != 0 || st.State != playback.Playing {
		t.Errorf("after next x2: Index = %d, State = %s, want 0 / playing", st.Index, st.State)
	}

	shell.Exec(ctx, "prev")
	if st := shell.player.Status(); st.Index != 2 {
		t.Errorf("after prev: Index = %d, want 2", st.Index)
	}

	if err := shell.Exec(ctx, "seek 0.5"); err != nil {
		t.Errorf("seek: %v", err)
	}
	if err := shell.Exec(ctx, "stop"); err != nil {
		t.Fatal(err)
	}
	if st := shell.player.Status(); st.State != playback.Idle {
		t.Errorf("State = %s, want idle after stop", st.State)
	}
}

func TestShellPlayNumber(t *testing.T) {
	shell, _ := newTestShell(t)
	ctx := context.Background()

	shell.Exec(ctx, "top")
	if err := shell.Exec(ctx, "play 3"); err != nil {
		t.Fatal(err)
	}
	if st := shell.player.Status(); st.Index != 2 || !st.Playing {
		t.Errorf("Index = %d, Playing = %v, want 2 / true", st.Index, st.Playing)
	}

	if err := shell.Exec(ctx, "play 1"); err != nil {
		t.Fatal(err)
	}
	if st := shell.player.Status(); st.Index != 0 || !st.Playing {
		t.Errorf("Index = %d, Playing = %v, want 0 / true", st.Index, st.Playing)
	}
}

func TestShellArtAndStatus(t *testing.T) {
	shell, out := newTestShell(t)
	ctx := context.Background()

	shell.Exec(ctx, "top")
	out.Reset()

	if err := shell.Exec(ctx, "art 1"); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "https://example.com/a/632x632bb-60.jpg" {
		t.Errorf("art = %q", got)
	}

	out.Reset()
	shell.Exec(ctx, "status")
	if !strings.Contains(out.String(), "Nothing playing.") {
		t.Errorf("status while idle = %q", out.String())
	}
}

func TestShellErrors(t *testing.T) {
	shell, _ := newTestShell(t)
	ctx := context.Background()

	tests := []string{
		"search",
		"select",
		"select x",
		"select 9",
		"seek",
		"seek half",
		"frobnicate",
		"pause",
		"play",
	}
	for _, line := range tests {
		if err := shell.Exec(ctx, line); err == nil {
			t.Errorf("Exec(%q) should fail", line)
		}
	}

	if err := shell.Exec(ctx, "quit"); err != errQuit {
		t.Errorf("quit: err = %v, want errQuit", err)
	}
	if err := shell.Exec(ctx, "   "); err != nil {
		t.Errorf("blank line: err = %v", err)
	}
}

func TestShellRun(t *testing.T) {
	shell, out := newTestShell(t)

	in := strings.NewReader("top\nselect 1\nhelp\nquit\nlist\n")
	if err := shell.Run(context.Background(), in); err != nil {
		t.Fatal(err)
	}

	text := out.String()
	if !strings.Contains(text, "Selected 1. Deftones - Change") {
		t.Errorf("missing selection output:\n%s", text)
	}
	if !strings.Contains(text, "Commands:") {
		t.Errorf("missing help output:\n%s", text)
	}
}

func TestParseArgs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, opts, err := parseArgs([]string{"-v", "--supersede", "--no-cache", "korn", "freak", "on", "a", "leash"})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Verbose || !cfg.SupersedeStale {
		t.Errorf("flags not applied: verbose=%v supersede=%v", cfg.Verbose, cfg.SupersedeStale)
	}
	if cfg.Cache.DiskPath != "" {
		t.Errorf("DiskPath = %q, want empty", cfg.Cache.DiskPath)
	}
	if opts.keyword != "korn freak on a leash" {
		t.Errorf("keyword = %q", opts.keyword)
	}

	if _, _, err := parseArgs([]string{"--bogus"}); err == nil {
		t.Error("expected error for unknown flag")
	}
	if _, _, err := parseArgs([]string{"--config"}); err == nil {
		t.Error("expected error for missing config path")
	}
}

func TestShellPlayNumberDuringSession(t *testing.T) {
	shell, _ := newTestShell(t)
	ctx := context.Background()

	shell.Exec(ctx, "top")
	if err := shell.Exec(ctx, "play 1"); err != nil {
		t.Fatal(err)
	}
	if err := shell.Exec(ctx, "play 3"); err != nil {
		t.Fatal(err)
	}
	st := shell.player.Status()
	if st.Index != 2 || st.Song.TrackName != "Diamond Eyes" || !st.Playing {
		t.Errorf("Index = %d, Song = %q, Playing = %v, want 2 / Diamond Eyes / true", st.Index, st.Song.TrackName, st.Playing)
	}

	if err := shell.Exec(ctx, "play 4"); err == nil {
		t.Error("play past the end of the list should fail")
	}
}

func TestSongArgBoundsFollowGivenList(t *testing.T) {
	shell, _ := newTestShell(t)
	shell.Exec(context.Background(), "top")

	short := shell.model.Snapshot().Songs[:2]
	if _, _, err := shell.songArg([]string{"3"}, short); err == nil {
		t.Error("expected an error for a position past the shorter list")
	}
	i, song, err := shell.songArg([]string{"2"}, short)
	if err != nil {
		t.Fatal(err)
	}
	if i != 1 || song.ID != 2 {
		t.Errorf("songArg = %d / %d, want 1 / 2", i, song.ID)
	}
}
