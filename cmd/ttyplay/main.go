// Command ttyplay is a navigable player for ttyrec recordings: it
// indexes one or more recording files for clear-screen-based seeking,
// then replays them to stdout at their original pace (or faster/slower,
// paused, or jumped around), reading single-key commands from the
// controlling terminal. With no file arguments it reads a single
// recording from stdin with navigation disabled, since stdin is neither
// seekable nor indexable.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/sergeknystautas/ttyplay/internal/config"
	"github.com/sergeknystautas/ttyplay/internal/index"
	"github.com/sergeknystautas/ttyplay/internal/input"
	"github.com/sergeknystautas/ttyplay/internal/playback"
	"github.com/sergeknystautas/ttyplay/internal/status"
	"github.com/sergeknystautas/ttyplay/internal/termadapt"
	"github.com/sergeknystautas/ttyplay/internal/ttytime"
	"github.com/sergeknystautas/ttyplay/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin *os.File, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("ttyplay", flag.ContinueOnError)
	fs.SetOutput(stderr)

	speedFlag := fs.Float64("s", 0, "initial speed multiplier (default 1.0, or config)")
	noWait := fs.Bool("n", false, "no-wait mode: emit records back-to-back with no pacing")
	peek := fs.Bool("p", false, "peek mode: skip existing records, then tail-follow the last file")
	utf8Flag := fs.Bool("u", false, "select UTF-8 terminal character set")
	legacyFlag := fs.Bool("8", false, "select 8-bit terminal character set")
	help1 := fs.Bool("h", false, "print this help text")
	help2 := fs.Bool("?", false, "print this help text")
	configPath := fs.String("config", "", "path to config file (default ~/.ttyplayrc)")
	fs.Usage = func() { printUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help1 || *help2 {
		printUsage(stdout)
		return 0
	}

	if os.Getenv("TERM") == "" {
		fmt.Fprintln(stderr, "ttyplay: TERM unset, defaulting to xterm for diagnostics")
		os.Setenv("TERM", "xterm")
	}

	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(stderr, "ttyplay: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	speed := cfg.Speed
	if *speedFlag > 0 {
		speed = *speedFlag
	}
	charset := cfg.Charset
	switch {
	case *utf8Flag:
		charset = "utf8"
	case *legacyFlag:
		charset = "8bit"
	}

	files := fs.Args()

	term := termadapt.New(int(stdin.Fd()))
	if err := term.EnterRaw(); err != nil {
		fmt.Fprintf(stderr, "ttyplay: %v\n", err)
		return 1
	}
	stop := termadapt.RestoreOnSignal(term, os.Exit, os.Interrupt)
	defer stop()
	defer term.Restore()

	if charset != "" {
		_ = termadapt.SelectCharset(stdout, charset == "utf8")
	}

	statusPrinter := status.NewPrinter(stderr)

	opts := playback.Options{
		InitialSpeed:  speed,
		SwitchLatency: ttytime.FromSeconds(cfg.SwitchLatencySeconds),
		Status:        statusPrinter,
	}

	keys := bufio.NewReader(stdin)
	// Built only on the paced paths: a RealWaiter starts reading keys as
	// soon as it exists, which would compete with peek mode's watchForQuit.
	newWaiter := func() playback.Waiter {
		if *noWait {
			return playback.NewNoWaitWaiter(keys, cfg.JumpBase, cfg.JumpScale)
		}
		return playback.NewRealWaiter(keys, cfg.JumpBase, cfg.JumpScale)
	}

	if len(files) == 0 {
		opts.DisableNavigation = true
		idx := &index.Index{}
		p := playback.New(idx, []string{playback.StdinFilename}, stdout, newWaiter(), opts)
		if err := p.Run(); err != nil {
			fmt.Fprintf(stderr, "ttyplay: %v\n", err)
			return 1
		}
		return 0
	}

	idx, err := index.Build(files)
	if err != nil {
		fmt.Fprintf(stderr, "ttyplay: %v\n", err)
		return 1
	}
	printBanner(stderr, files, idx)

	if *peek {
		// §9's resolved open question: peek mode follows only the last
		// listed file; earlier files are still indexed above so the
		// navigation chain is complete once the tail begins, but the
		// tail itself has no pacing to race against, so no Waiter is
		// involved at all.
		last := files[len(files)-1]
		stopCh := watchForQuit(keys)
		if err := playback.PeekFollow(last, stdout, playback.DefaultPeekPollInterval, stopCh); err != nil {
			fmt.Fprintf(stderr, "ttyplay: %v\n", err)
			return 1
		}
		return 0
	}

	p := playback.New(idx, files, stdout, newWaiter(), opts)
	if err := p.Run(); err != nil {
		fmt.Fprintf(stderr, "ttyplay: %v\n", err)
		return 1
	}
	return 0
}

// watchForQuit reads keys from the controlling terminal in the
// background and closes the returned channel on 'q' or a read error,
// giving peek mode (which has no pacing loop of its own to interleave
// key reads with) a way to exit on the same quit key normal playback
// honors.
func watchForQuit(keys *bufio.Reader) <-chan struct{} {
	stop := make(chan struct{})
	go func() {
		defer close(stop)
		for {
			cmd, err := input.Decode(keys, 1.0)
			if err != nil {
				return
			}
			if cmd.Kind == input.Quit {
				return
			}
		}
	}()
	return stop
}

// printBanner prints the one-line post-index summary: how many files,
// how many clear-screen navigation points, and total duration.
func printBanner(stderr *os.File, files []string, idx *index.Index) {
	dur := ttytime.Value{}
	if len(idx.Files) > 0 {
		dur = idx.Files[len(idx.Files)-1].ElapsedAtEnd
	}
	fmt.Fprintf(stderr, "ttyplay %s: %s, %s, %s\n",
		version.Version,
		humanize.Comma(int64(len(files)))+" file(s)",
		humanize.Comma(int64(len(idx.Clears)))+" clear-screen(s)",
		humanizeElapsed(dur),
	)
}

func humanizeElapsed(v ttytime.Value) string {
	return fmt.Sprintf("%s elapsed", v.String())
}

func printUsage(w *os.File) {
	fmt.Fprintln(w, "ttyplay - navigable ttyrec player")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: ttyplay [OPTIONS] [FILE ...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "With no FILE arguments, reads a single recording from stdin and")
	fmt.Fprintln(w, "disables seek/jump navigation (stdin is neither seekable nor indexable).")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  -s SPEED    initial speed multiplier (default 1.0)")
	fmt.Fprintln(w, "  -n          no-wait mode: emit records back-to-back with no pacing")
	fmt.Fprintln(w, "  -p          peek mode: tail-follow the last file, no pacing")
	fmt.Fprintln(w, "  -u          select UTF-8 terminal character set")
	fmt.Fprintln(w, "  -8          select 8-bit terminal character set")
	fmt.Fprintln(w, "  -config P   load config from P instead of ~/.ttyplayrc")
	fmt.Fprintln(w, "  -h, -?      print this help text")
}
