package protocol

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"
	"lib.kevinlin.info/aperture/lib"

	"chronometer/internal/log"
	"chronometer/internal/timer"
)

// errQuit signals the end of a session.
var errQuit = errors.New("protocol: quit")

const helpText = `start                 start the timer
restart               reset and start the timer
stop                  stop the timer
lap [description]     record a lap
started               print the start time
stopped               print the stop time
elapsed               print the elapsed seconds
last                  print the last lap
laps                  print every lap
state                 print the timer state
reset                 reset the timer
quit                  end the session`

// ErrorReporter forwards an error, with descriptive tags, to an external error tracker.
type ErrorReporter func(err error, tags map[string]string)

// CommandHandler serves the command protocol against a single timer.
type CommandHandler struct {
	Timer  *timer.Timer
	Logger log.Logger
	// Reporter receives every failed command. Defaults to reporting to Sentry.
	Reporter ErrorReporter
}

// ConsumeError logs a failed command and reports it.
func (h *CommandHandler) ConsumeError(ctx context.Context, command string, err error) {
	h.Logger.Error("%v", err)

	tags := map[string]string{"command": command}
	if code := timer.ErrorCode(err); code != 0 {
		tags["code"] = code.String()
	}

	if h.Reporter != nil {
		h.Reporter(err, tags)
		return
	}

	raven.CaptureError(err, tags)
}

// Serve reads commands from r until EOF, a quit command, or cancellation of ctx, writing replies
// to w. Cancellation is observed while waiting for input; the goroutine reading r is released
// once r is closed or yields its next line.
func (h *CommandHandler) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines, readErr, done := scanLines(r)
	defer close(done)

	for {
		// Checked before the select so that a cancelled context always wins over buffered input.
		if err := ctx.Err(); err != nil {
			return err
		}

		var line string
		select {
		case <-ctx.Done():
			h.Logger.Debug("protocol: session cancelled: err=%v", ctx.Err())
			return ctx.Err()
		case next, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return errors.Wrap(err, "protocol: error reading command")
				}

				return nil
			}

			line = strings.TrimSpace(next)
		}

		if line == "" {
			continue
		}

		commandTimer := lib.NewStopwatch()
		reply, err := h.Handle(line)

		if err == errQuit {
			h.Logger.Debug("protocol: session ended by client")
			return nil
		}

		if err != nil {
			h.ConsumeError(ctx, verb(line), err)
			reply = fmt.Sprintf("error: %v", err)
		}

		if _, err := fmt.Fprintln(w, reply); err != nil {
			return errors.Wrap(err, "protocol: error writing reply")
		}

		h.Logger.Debug(
			"protocol: served command: command=%s latency=%v",
			verb(line),
			commandTimer.Elapsed(),
		)
	}
}

// scanLines reads r line by line on a separate goroutine. The lines channel is closed at EOF or
// on a read error, after the error (possibly nil) has been sent on the buffered error channel.
// Closing done abandons the read loop.
func scanLines(r io.Reader) (<-chan string, <-chan error, chan<- struct{}) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}

		readErr <- scanner.Err()
	}()

	return lines, readErr, done
}

// Handle executes a single command line and returns its reply, without a trailing newline.
func (h *CommandHandler) Handle(line string) (string, error) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", errors.New("protocol: empty command")
	}

	switch strings.ToLower(fields[0]) {
	case "start":
		started, err := h.Timer.Start()
		if err != nil {
			return "", err
		}

		return "started " + timer.FormatTimestamp(started), nil

	case "restart":
		return "started " + timer.FormatTimestamp(h.Timer.Restart()), nil

	case "stop":
		stopped, err := h.Timer.Stop()
		if err != nil {
			return "", err
		}

		return "stopped " + timer.FormatTimestamp(stopped), nil

	case "lap":
		// The description keeps the caller's inner spacing.
		description := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

		idx, lap, err := h.Timer.AddLapWithIndex(description)
		if err != nil {
			return "", err
		}

		return "lap " + formatLap(idx, lap), nil

	case "started":
		started, err := h.Timer.Started()
		if err != nil {
			return "", err
		}

		return timer.FormatTimestamp(started), nil

	case "stopped":
		stopped, err := h.Timer.Stopped()
		if err != nil {
			return "", err
		}

		return timer.FormatTimestamp(stopped), nil

	case "elapsed":
		elapsed, err := h.Timer.Elapsed()
		if err != nil {
			return "", err
		}

		return formatSeconds(elapsed.Seconds()), nil

	case "last":
		idx, lap, err := h.Timer.LastLapWithIndex()
		if err != nil {
			return "", err
		}

		return formatLap(idx, lap), nil

	case "laps":
		laps, err := h.Timer.Laps()
		if err != nil {
			return "", err
		}

		lines := make([]string, len(laps))
		for idx, lap := range laps {
			lines[idx] = formatLap(idx, lap)
		}

		return strings.Join(lines, "\n"), nil

	case "state":
		return h.Timer.State().String(), nil

	case "reset":
		h.Timer.Reset()
		return "ok", nil

	case "help":
		return helpText, nil

	case "quit", "exit":
		return "", errQuit

	default:
		return "", errors.Errorf("protocol: unknown command: %s", fields[0])
	}
}

// formatLap renders a lap as "<index> <timestamp> <seconds>[ <description>]".
func formatLap(idx int, lap timer.Lap) string {
	line := fmt.Sprintf("%d %s %s", idx, timer.FormatTimestamp(lap.Time), formatSeconds(lap.Seconds()))
	if lap.Description != "" {
		line += " " + lap.Description
	}

	return line
}

// formatSeconds renders seconds with microsecond precision.
func formatSeconds(seconds float64) string {
	return fmt.Sprintf("%.6f", seconds)
}

// verb extracts the lowercased command name from a line.
func verb(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}

	return strings.ToLower(fields[0])
}
