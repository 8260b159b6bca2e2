package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/abrezinsky/jackpot/internal/logger"
	"github.com/abrezinsky/jackpot/internal/services"
)

const ctrlC = 0x03

type urlOpener interface {
	Open(url string) error
}

type statusReader interface {
	Status(ctx context.Context) (*services.Status, error)
}

type cranker interface {
	Tick(ctx context.Context) *services.CrankResult
}

// keyboard maps single key presses to operator actions
type keyboard struct {
	out          io.Writer
	log          *logger.SlogLogger
	opener       urlOpener
	dashboardURL string
	lottery      statusReader
	scheduler    cranker
	quit         context.CancelFunc
}

// crlfWriter restores the carriage returns raw mode stops adding
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// listenForKeyboard puts the terminal in raw mode and dispatches key
// presses until ctx is done or the quit key is pressed.
func listenForKeyboard(ctx context.Context, kb *keyboard) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		kb.log.Warn("Keyboard shortcuts unavailable", "error", err)
		return
	}
	defer term.Restore(fd, oldState)

	keys := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}
			select {
			case keys <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case key := <-keys:
			if !kb.handleKey(ctx, key) {
				return
			}
		}
	}
}

// handleKey runs the action bound to key. It returns false once the
// operator asked to quit.
func (kb *keyboard) handleKey(ctx context.Context, key byte) bool {
	if key == ctrlC {
		return kb.shutdown()
	}

	switch strings.ToLower(string(key)) {
	case "d":
		kb.crank(ctx)
	case "s":
		kb.printStatus(ctx)
	case "o":
		fmt.Fprintf(kb.out, "%sOpening dashboard in browser...%s\n", cyan, reset)
		if err := kb.opener.Open(kb.dashboardURL); err != nil {
			fmt.Fprintf(kb.out, "%sError opening browser: %v%s\n", red, err, reset)
		}
	case "h":
		if kb.log.IsHTTPLoggingEnabled() {
			kb.log.DisableHTTPLogging()
			fmt.Fprintf(kb.out, "%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			kb.log.EnableHTTPLogging()
			fmt.Fprintf(kb.out, "%sHTTP logging enabled%s\n", green, reset)
		}
	case "l":
		next := logger.NextLevel(kb.log.GetLevel())
		kb.log.SetLevel(next)
		fmt.Fprintf(kb.out, "%sLog level: %s%s%s\n", green, yellow, strings.ToLower(next.String()), reset)
	case "q":
		return kb.shutdown()
	case "?":
		kb.printHelp()
	}
	return true
}

func (kb *keyboard) shutdown() bool {
	fmt.Fprintf(kb.out, "%sShutting down server...%s\n", yellow, reset)
	kb.quit()
	return false
}

func (kb *keyboard) crank(ctx context.Context) {
	res := kb.scheduler.Tick(ctx)
	switch {
	case res == nil:
		fmt.Fprintf(kb.out, "%sCrank failed, see log%s\n", red, reset)
	case res.Draw != nil:
		fmt.Fprintf(kb.out, "%sDraw #%d: %d balls, %s%s\n", green, res.Draw.DrawNumber, res.Draw.BallCount, res.Draw.Outcome, reset)
	case res.Payout != nil:
		fmt.Fprintf(kb.out, "%sDraw #%d paid out %s SOL to %d recipients%s\n", green, res.Payout.DrawNumber,
			formatSOL(res.Payout.Distribution.Total), len(res.Payout.Payments), reset)
	default:
		fmt.Fprintf(kb.out, "%sNothing to do: %s%s\n", yellow, res.Skipped, reset)
	}
}

func (kb *keyboard) printStatus(ctx context.Context) {
	st, err := kb.lottery.Status(ctx)
	if err != nil {
		fmt.Fprintf(kb.out, "%sStatus unavailable: %v%s\n", red, err, reset)
		return
	}
	fmt.Fprintln(kb.out)
	printStatus(kb.out, st, false)
	fmt.Fprintln(kb.out)
}

// printHelp displays all available keyboard shortcuts
func (kb *keyboard) printHelp() {
	fmt.Fprintf(kb.out, "\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	fmt.Fprintf(kb.out, "    %sd%s      - Run the draw crank now\n", cyan, reset)
	fmt.Fprintf(kb.out, "    %ss%s      - Print lottery status\n", cyan, reset)
	fmt.Fprintf(kb.out, "    %so%s      - Open dashboard in browser\n", cyan, reset)
	fmt.Fprintf(kb.out, "    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Fprintf(kb.out, "    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Fprintf(kb.out, "    %sq%s      - Quit server\n", cyan, reset)
	fmt.Fprintf(kb.out, "    %s?%s      - Show this help\n\n", cyan, reset)
}
