package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"songpreview/internal/catalog"
	"songpreview/internal/logger"
	"songpreview/internal/playback"
	"songpreview/internal/preview"
	"songpreview/internal/progress"
	"songpreview/internal/viewmodel"
)

const prompt = "> "

var errQuit = errors.New("quit")

// Shell is the interactive front end over the view model and the playback
// controller.
type Shell struct {
	model  *viewmodel.Model
	player *playback.Controller
	prober *preview.Prober
	bar    *progress.Bar
	logger *logger.Logger
	out    io.Writer
}

func newShell(model *viewmodel.Model, player *playback.Controller, prober *preview.Prober, bar *progress.Bar, log *logger.Logger, out io.Writer) *Shell {
	return &Shell{
		model:  model,
		player: player,
		prober: prober,
		bar:    bar,
		logger: log,
		out:    out,
	}
}

// Run reads commands from in until EOF, quit or ctx is cancelled.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprint(s.out, prompt)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			s.endBar()
			if err := s.Exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(s.out, "error: %v\n", err)
			}
			fmt.Fprint(s.out, prompt)
		}
	}
}

// Exec runs a single command line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "search", "s":
		if len(args) == 0 {
			return fmt.Errorf("usage: search <keyword>")
		}
		s.model.SearchSongs(strings.Join(args, " "))
		return s.waitAndList()

	case "top":
		s.model.FetchTopSongs()
		return s.waitAndList()

	case "list", "ls":
		s.printSongs(s.model.Snapshot())
		return nil

	case "select":
		i, song, err := s.songArg(args, s.model.Snapshot().Songs)
		if err != nil {
			return err
		}
		s.model.SelectSong(song)
		fmt.Fprintf(s.out, "Selected %d. %s - %s\n", i+1, song.ArtistName, song.TrackName)
		return nil

	case "play", "p":
		return s.play(ctx, args)

	case "pause", "toggle", "space":
		return s.player.TogglePlayPause()

	case "next", "n":
		return s.player.Next(ctx)

	case "prev", "previous":
		return s.player.Previous(ctx)

	case "seek":
		if len(args) != 1 {
			return fmt.Errorf("usage: seek <0..1>")
		}
		f, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid position %q", args[0])
		}
		return s.player.Seek(f)

	case "stop":
		return s.player.Close()

	case "art":
		_, song, err := s.songArg(args, s.model.Snapshot().Songs)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, song.HighResArtworkURL())
		return nil

	case "info":
		_, song, err := s.songArg(args, s.model.Snapshot().Songs)
		if err != nil {
			return err
		}
		info, err := s.prober.Probe(ctx, song.PreviewURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s - %s\n", song.ArtistName, song.TrackName)
		fmt.Fprintf(s.out, "  duration:    %s\n", playback.FormatTime(info.Duration))
		fmt.Fprintf(s.out, "  bitrate:     %d kbit/s\n", info.Bitrate)
		fmt.Fprintf(s.out, "  sample rate: %d Hz\n", info.SampleRate)
		fmt.Fprintf(s.out, "  channels:    %d\n", info.Channels)
		return nil

	case "status":
		fmt.Fprintln(s.out, statusLine(s.player.Status()))
		return nil

	case "help", "?":
		printShellHelp(s.out)
		return nil

	case "quit", "exit", "q":
		return errQuit
	}

	return fmt.Errorf("unknown command %q (try help)", cmd)
}

// play opens a session on the chosen song, or resumes the current one.
func (s *Shell) play(ctx context.Context, args []string) error {
	st := s.model.Snapshot()

	status := s.player.Status()
	if status.State != playback.Idle {
		if len(args) == 0 {
			if status.Playing {
				return nil
			}
			return s.player.TogglePlayPause()
		}
		i, song, err := s.songArg(args, st.Songs)
		if err != nil {
			return err
		}
		// The session list may be stale; start over on the current one.
		s.player.Close()
		return s.open(ctx, song, i, st.Songs)
	}

	if len(args) > 0 {
		i, song, err := s.songArg(args, st.Songs)
		if err != nil {
			return err
		}
		s.model.SelectSong(song)
		return s.open(ctx, song, i, st.Songs)
	}

	if st.Selected != nil {
		return s.open(ctx, *st.Selected, -1, st.Songs)
	}
	if len(st.Songs) == 0 {
		return fmt.Errorf("nothing to play, search first")
	}
	return s.open(ctx, st.Songs[0], 0, st.Songs)
}

func (s *Shell) open(ctx context.Context, song catalog.Song, index int, songs []catalog.Song) error {
	if err := s.player.Open(ctx, song, index, songs); err != nil {
		return err
	}
	return s.player.TogglePlayPause()
}

func (s *Shell) waitAndList() error {
	s.model.Wait()
	st := s.model.Snapshot()
	if st.Err != nil {
		return st.Err
	}
	s.printSongs(st)
	return nil
}

func (s *Shell) printSongs(st viewmodel.State) {
	if len(st.Songs) == 0 {
		fmt.Fprintln(s.out, "No songs.")
		return
	}
	for i, song := range st.Songs {
		marker := " "
		if st.Selected != nil && *st.Selected == song {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s%2d. %s - %s\n", marker, i+1, song.ArtistName, song.TrackName)
	}
}

// songArg resolves a 1-based position in songs.
func (s *Shell) songArg(args []string, songs []catalog.Song) (int, catalog.Song, error) {
	if len(args) != 1 {
		return 0, catalog.Song{}, fmt.Errorf("expected a song number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, catalog.Song{}, fmt.Errorf("invalid song number %q", args[0])
	}

	if n < 1 || n > len(songs) {
		return 0, catalog.Song{}, fmt.Errorf("song number must be between 1 and %d", len(songs))
	}
	return n - 1, songs[n-1], nil
}

// onPlayback renders the transport bar while a track is playing.
func (s *Shell) onPlayback(st playback.Status) {
	if !st.Playing {
		return
	}
	s.logger.SetProgressBar(true)
	s.bar.Update(trackLabel(st), st.Progress, playback.FormatTime(st.Elapsed), playback.FormatTime(st.Remaining), false)
}

func (s *Shell) endBar() {
	if s.bar.Active() {
		s.bar.Finish()
		s.logger.SetProgressBar(false)
	}
}

func trackLabel(st playback.Status) string {
	icon := "⏸"
	if st.Playing {
		icon = "▶"
	}
	return fmt.Sprintf("%s %s - %s", icon, st.Song.ArtistName, st.Song.TrackName)
}

func statusLine(st playback.Status) string {
	if st.State == playback.Idle {
		return "Nothing playing."
	}
	return progress.Line(trackLabel(st), st.Progress, playback.FormatTime(st.Elapsed), playback.FormatTime(st.Remaining))
}

func printShellHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  search <keyword>   Search the catalog")
	fmt.Fprintln(w, "  top                List the top songs")
	fmt.Fprintln(w, "  list               Show the current list")
	fmt.Fprintln(w, "  select <n>         Select song n")
	fmt.Fprintln(w, "  play [n]           Play song n, the selection, or resume")
	fmt.Fprintln(w, "  pause              Toggle play/pause")
	fmt.Fprintln(w, "  next, prev         Skip forward or back (wraps around)")
	fmt.Fprintln(w, "  seek <0..1>        Jump to a position in the track")
	fmt.Fprintln(w, "  stop               End playback")
	fmt.Fprintln(w, "  art <n>            Print the large artwork URL of song n")
	fmt.Fprintln(w, "  info <n>           Download song n's preview and show its properties")
	fmt.Fprintln(w, "  status             Show the transport line")
	fmt.Fprintln(w, "  quit               Exit")
}
