package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"DevAmp/config"
	"DevAmp/core/ingest"
	"DevAmp/core/keys"
	"DevAmp/core/utils"
	"DevAmp/logger"
	"DevAmp/model"
)

var playCmd = &cobra.Command{
	Use:   "play [files...]",
	Short: "Play files in the terminal",
	Long: `Play audio files in the terminal with keyboard shortcuts:
  space  play/pause      n/p  next/previous
  ←/→    seek 5s         ↑/↓  volume
  s      shuffle         r    repeat
  f      favorite        q    quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd.Context(), loadConfig(), args)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}

// spectrumRunes draws the status line spectrum, quietest first.
var spectrumRunes = []rune(" ▁▂▃▄▅▆▇█")

const spectrumWidth = 16

func runPlay(ctx context.Context, cfg *config.Config, args []string) error {
	if err := initLogger(cfg, true); err != nil {
		return err
	}
	defer logger.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracks := ingest.FilterAudio(args)
	if cfg.MusicDir != "" {
		scanned, err := ingest.Scan(cfg.MusicDir)
		if err != nil {
			logger.Warn("music directory unavailable", logger.ErrorField(err))
		}
		tracks = append(tracks, scanned...)
	}
	if len(tracks) == 0 {
		return errors.New("no playable audio files given")
	}

	rt := newRuntime(cfg)
	defer rt.Close()
	rt.session.AddTracks(tracks...)
	rt.session.TogglePlay()

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw terminal: %w", err)
		}
		defer term.Restore(fd, state)
	}
	defer fmt.Print("\r\n")

	codes := make(chan string)
	go readKeys(ctx, os.Stdin, codes)

	snaps, cancel := rt.session.Subscribe()
	defer cancel()
	printStatus(rt.session.Snapshot(), rt.session.FrequencyBytes())

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-snaps:
			printStatus(snap, rt.session.FrequencyBytes())
		case code, ok := <-codes:
			if !ok || !applyKey(rt, code) {
				return nil
			}
		}
	}
}

func readKeys(ctx context.Context, r io.Reader, codes chan<- string) {
	defer close(codes)
	d := keys.NewDecoder(r)
	for {
		code, err := d.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("read keyboard", logger.ErrorField(err))
			}
			return
		}
		if code == "" {
			continue
		}
		select {
		case codes <- code:
		case <-ctx.Done():
			return
		}
	}
}

// applyKey reports false when the player should quit.
func applyKey(rt *runtime, code string) bool {
	if keys.Handle(rt.session, keys.Event{Code: code}) {
		return true
	}
	switch code {
	case "KeyQ", keys.CodeInterrupt:
		return false
	case "KeyS":
		rt.session.ToggleShuffle()
	case "KeyR":
		rt.session.ToggleRepeat()
	case "KeyF":
		rt.session.ToggleFavorite()
	case "KeyV":
		rt.session.CycleVisualizerMode()
	}
	return true
}

func printStatus(snap model.Snapshot, freq []byte) {
	fmt.Print("\r\x1b[K" + statusLine(snap, freq))
}

func statusLine(snap model.Snapshot, freq []byte) string {
	if snap.CurrentIndex < 0 || snap.CurrentIndex >= len(snap.Tracks) {
		return "no tracks"
	}
	t := snap.Tracks[snap.CurrentIndex]

	var b strings.Builder
	switch snap.State {
	case model.Playing:
		b.WriteString("▶ ")
	case model.Paused:
		b.WriteString("⏸ ")
	default:
		b.WriteString("■ ")
	}
	fmt.Fprintf(&b, "%d/%d %s  %s / %s  vol %d%%",
		snap.CurrentIndex+1, len(snap.Tracks), t.Title(),
		utils.FormatTime(snap.Position), utils.FormatTime(snap.Duration),
		int(snap.Volume*100+0.5))
	if snap.Shuffle {
		b.WriteString("  [shuffle]")
	}
	if snap.Repeat {
		b.WriteString("  [repeat]")
	}
	if snap.IsFavorite(t) {
		b.WriteString("  ♥")
	}
	if len(freq) > 0 {
		b.WriteString("  ")
		b.WriteString(spectrum(freq, spectrumWidth))
	}
	return b.String()
}

// spectrum folds frequency bytes into width block characters.
func spectrum(freq []byte, width int) string {
	per := len(freq) / width
	if per == 0 {
		per, width = 1, len(freq)
	}
	out := make([]rune, width)
	for i := range out {
		peak := 0
		for _, v := range freq[i*per : (i+1)*per] {
			peak = max(peak, int(v))
		}
		out[i] = spectrumRunes[peak*(len(spectrumRunes)-1)/255]
	}
	return string(out)
}
