package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/waltervanheuven/speech2text/internal/domain"
)

// NativeBinary drives the whisper.cpp command line tool (whisper-cli). It
// is the only backend that can write all six output formats and the only
// one whose tool accepts nothing but canonical WAV input.
type NativeBinary struct {
	binary      string
	runner      commandRunner
	ensureModel func(ctx context.Context, modelID, modelDir string, progress func(string)) (string, error)
	onProgress  func(string)
	worker      worker
}

// NewNativeBinary constructs the whisper.cpp adapter.
func NewNativeBinary(onProgress func(string)) *NativeBinary {
	return &NativeBinary{
		binary:      "whisper-cli",
		runner:      &execRunner{},
		ensureModel: EnsureModel,
		onProgress:  onProgress,
	}
}

// Kind identifies the backend.
func (a *NativeBinary) Kind() domain.EngineKind {
	return domain.EngineNativeBinary
}

// SupportedOutputFormats lists every format whisper.cpp can write. TSV and
// LRC exist only here.
func (a *NativeBinary) SupportedOutputFormats() []domain.OutputFormat {
	return domain.EngineNativeBinary.SupportedOutputFormats()
}

// RequiresExternalConverter reports that non-WAV input must be converted
// before this tool can accept it.
func (a *NativeBinary) RequiresExternalConverter() bool {
	return true
}

// SupportsTranslate reports translate-to-English support.
func (a *NativeBinary) SupportsTranslate() bool {
	return true
}

// Run begins asynchronous processing and returns immediately.
func (a *NativeBinary) Run(req Request, done func(Result)) error {
	ctx, err := a.worker.begin()
	if err != nil {
		return err
	}

	go func() {
		result := a.execute(ctx, req)
		a.worker.finish()
		done(result)
	}()
	return nil
}

// RequestCancel interrupts the in-flight worker at its next checkpoint.
func (a *NativeBinary) RequestCancel() {
	a.worker.requestCancel()
}

// Shutdown tears down any held worker handle.
func (a *NativeBinary) Shutdown() {
	a.worker.shutdown()
}

// execute downloads the model if absent, runs whisper-cli, and classifies
// the outcome. The tool writes the output artifact itself.
func (a *NativeBinary) execute(ctx context.Context, req Request) Result {
	modelPath, err := a.ensureModel(ctx, req.Model, req.ModelDir, a.onProgress)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Cancelled: true}
		}
		return Result{ErrorMessage: err.Error()}
	}
	if ctx.Err() != nil {
		return Result{Cancelled: true}
	}

	outBase := strings.TrimSuffix(req.OutputPath, filepath.Ext(req.OutputPath))
	args := buildNativeArgs(req, modelPath, outBase)

	cmdResult, runErr := a.runner.Run(ctx, a.binary, args, a.onProgress)
	if ctx.Err() != nil {
		return Result{Cancelled: true}
	}
	if runErr != nil {
		return Result{ErrorMessage: nativeFailureMessage(cmdResult, runErr)}
	}
	if strings.Contains(cmdResult.Stderr, "error:") || strings.Contains(cmdResult.Stderr, "failed to load") {
		return Result{ErrorMessage: nativeFailureMessage(cmdResult, fmt.Errorf("recognition failed"))}
	}

	return Result{Succeeded: true, OutputPath: req.OutputPath}
}

// buildNativeArgs builds the whisper-cli invocation.
func buildNativeArgs(req Request, modelPath, outBase string) []string {
	threads := req.Threads
	if threads <= 0 {
		threads = 4
	}

	args := []string{
		"-t", strconv.Itoa(threads),
		"-of", outBase,
		nativeFormatFlag(req.OutputFormat),
		"-l", req.Language,
		"-m", modelPath,
	}
	if req.Task == domain.TaskTranslate {
		args = append(args, "--translate")
	}
	return append(args, "-f", req.InputPath)
}

// nativeFormatFlag maps an output format to its whisper-cli flag.
func nativeFormatFlag(format domain.OutputFormat) string {
	switch format {
	case domain.FormatVTT:
		return "-ovtt"
	case domain.FormatSRT:
		return "-osrt"
	case domain.FormatJSON:
		return "-oj"
	case domain.FormatTSV:
		return "-ocsv"
	case domain.FormatLRC:
		return "-olrc"
	default:
		return "-otxt"
	}
}

// nativeFailureMessage normalizes a whisper-cli failure into one
// human-readable line.
func nativeFailureMessage(result commandResult, runErr error) string {
	lines := strings.Split(strings.TrimSpace(result.Stderr), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last != "" {
		return fmt.Sprintf("whisper-cli failed: %s", last)
	}
	return fmt.Sprintf("whisper-cli failed: %v", runErr)
}
