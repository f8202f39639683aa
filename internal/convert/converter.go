package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrConversionActive is returned when Start is called while a conversion
// worker is already in flight. The orchestrator never triggers this.
var ErrConversionActive = errors.New("conversion already in flight")

// ErrToolUnavailable is returned when no ffmpeg tool is configured.
var ErrToolUnavailable = errors.New("ffmpeg tool unavailable")

// gracefulStopWait bounds how long a cancelled ffmpeg process may keep
// running after the interrupt before it is killed.
const gracefulStopWait = 5 * time.Second

// Outcome is the asynchronous result of one conversion.
type Outcome struct {
	OK         bool
	Cancelled  bool
	OutputPath string
	Message    string
}

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec with interrupt-then-kill stop.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code. On
// context cancellation the process receives an interrupt and is killed
// after the graceful wait.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = gracefulStopWait

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// Converter re-encodes one input file at a time into a target format using
// the external ffmpeg tool. The worker runs on its own goroutine and
// reports completion on the Done channel.
type Converter struct {
	ffmpegPath string
	runner     commandRunner
	stat       func(name string) (os.FileInfo, error)
	remove     func(name string) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan Outcome
}

// New constructs a converter around the configured ffmpeg binary path.
// An empty path means the tool is not installed.
func New(ffmpegPath string) *Converter {
	return &Converter{
		ffmpegPath: strings.TrimSpace(ffmpegPath),
		runner:     &execRunner{},
		stat:       os.Stat,
		remove:     os.Remove,
	}
}

// Available reports whether a conversion tool is configured.
func (c *Converter) Available() bool {
	return c.ffmpegPath != ""
}

// TargetPath returns the conversion output path for a source file:
// <dir>/<base>.<format>, or <base>_converted.<format> when that name would
// collide with the source under case-insensitive comparison.
func TargetPath(sourcePath, targetFormat string) string {
	dir := filepath.Dir(sourcePath)
	base := filepath.Base(sourcePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	out := name + "." + targetFormat
	if strings.EqualFold(out, base) {
		out = name + "_converted." + targetFormat
	}
	return filepath.Join(dir, out)
}

// Start begins an asynchronous conversion of sourcePath into targetFormat.
// It returns immediately; completion is delivered on Done. Start fails when
// no tool is configured or a conversion is already in flight.
func (c *Converter) Start(sourcePath, targetFormat string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return ErrConversionActive
	}
	if c.ffmpegPath == "" {
		return ErrToolUnavailable
	}

	outPath := TargetPath(sourcePath, targetFormat)
	args := buildFFmpegArgs(sourcePath, outPath, targetFormat)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan Outcome, 1)

	go c.convert(ctx, args, outPath)
	return nil
}

// Done returns the completion channel of the in-flight conversion.
func (c *Converter) Done() <-chan Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// RequestCancel interrupts the in-flight ffmpeg process, if any. The
// worker reports a cancelled outcome once the process has stopped.
func (c *Converter) RequestCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Shutdown tears down any in-flight worker handle. Idempotent.
func (c *Converter) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// convert runs ffmpeg and delivers the outcome. A failed or cancelled
// attempt removes its partial output file so a later probe cannot mistake
// it for a completed conversion.
func (c *Converter) convert(ctx context.Context, args []string, outPath string) {
	result, runErr := c.runner.Run(ctx, c.ffmpegPath, args...)

	outcome := Outcome{OutputPath: outPath}
	switch {
	case ctx.Err() != nil:
		outcome.Cancelled = true
		outcome.Message = "conversion cancelled"
		c.removePartial(outPath)
	case runErr != nil:
		outcome.Message = conversionFailureMessage(result, runErr)
		c.removePartial(outPath)
	default:
		if _, err := c.stat(outPath); err != nil {
			outcome.Message = "conversion completed but output file is missing"
		} else {
			outcome.OK = true
		}
	}

	c.mu.Lock()
	c.cancel = nil
	done := c.done
	c.mu.Unlock()

	done <- outcome
}

// removePartial deletes a half-written output file, ignoring absence.
func (c *Converter) removePartial(outPath string) {
	if _, err := c.stat(outPath); err == nil {
		_ = c.remove(outPath)
	}
}

// conversionFailureMessage normalizes an ffmpeg failure into one
// human-readable line, preferring the last stderr line.
func conversionFailureMessage(result commandResult, runErr error) string {
	lines := strings.Split(strings.TrimSpace(result.Stderr), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last != "" {
		return fmt.Sprintf("ffmpeg conversion failed: %s", last)
	}
	return fmt.Sprintf("ffmpeg conversion failed: %v", runErr)
}

// buildFFmpegArgs builds the ffmpeg invocation for the target format. WAV
// output uses the canonical 16 kHz mono 16-bit PCM parameters.
func buildFFmpegArgs(sourcePath, outPath, targetFormat string) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", sourcePath,
	}

	switch strings.ToLower(targetFormat) {
	case "mp3":
		args = append(args, "-f", "mp3", "-ab", "128000", "-ac", "1", "-vn")
	default:
		args = append(args, "-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le")
	}

	return append(args, outPath)
}

// NewForTests constructs a converter with injectable dependencies.
func NewForTests(
	ffmpegPath string,
	runner commandRunner,
	stat func(name string) (os.FileInfo, error),
	remove func(name string) error,
) *Converter {
	return &Converter{
		ffmpegPath: ffmpegPath,
		runner:     runner,
		stat:       stat,
		remove:     remove,
	}
}
