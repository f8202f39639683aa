package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/waltervanheuven/speech2text/internal/domain"
)

// maxCloudUploadBytes is the upload size limit imposed by the OpenAI API.
const maxCloudUploadBytes = 25 * 1024 * 1024

// CloudAPI sends audio to the OpenAI transcription API (whisper-1).
// Server processing cannot be interrupted; cancellation aborts the
// request client-side and discards the response.
type CloudAPI struct {
	client     *http.Client
	baseURL    string
	onProgress func(string)
	worker     worker
}

// NewCloudAPI constructs the OpenAI API adapter.
func NewCloudAPI(onProgress func(string)) *CloudAPI {
	return &CloudAPI{
		client:     &http.Client{Timeout: 30 * time.Minute},
		baseURL:    "https://api.openai.com",
		onProgress: onProgress,
	}
}

// Kind identifies the backend.
func (a *CloudAPI) Kind() domain.EngineKind {
	return domain.EngineCloudAPI
}

// SupportedOutputFormats lists the response formats the API can return.
func (a *CloudAPI) SupportedOutputFormats() []domain.OutputFormat {
	return domain.EngineCloudAPI.SupportedOutputFormats()
}

// RequiresExternalConverter reports that the source file is uploaded
// as-is; the server transcodes.
func (a *CloudAPI) RequiresExternalConverter() bool {
	return false
}

// SupportsTranslate reports translate-to-English support.
func (a *CloudAPI) SupportsTranslate() bool {
	return true
}

// Run begins asynchronous processing and returns immediately.
func (a *CloudAPI) Run(req Request, done func(Result)) error {
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

// RequestCancel aborts the in-flight request client-side.
func (a *CloudAPI) RequestCancel() {
	a.worker.requestCancel()
}

// Shutdown tears down any held worker handle.
func (a *CloudAPI) Shutdown() {
	a.worker.shutdown()
}

// execute validates credentials and size, uploads the audio file, and
// writes the response to OutputPath.
func (a *CloudAPI) execute(ctx context.Context, req Request) Result {
	if strings.TrimSpace(req.APIKey) == "" {
		return Result{ErrorMessage: "Whisper API key missing."}
	}

	info, err := os.Stat(req.InputPath)
	if err != nil {
		return Result{ErrorMessage: fmt.Sprintf("cannot open audio file: %s", req.InputPath)}
	}
	if info.Size() > maxCloudUploadBytes {
		megabytes := float64(info.Size()) / (1024 * 1024)
		return Result{ErrorMessage: fmt.Sprintf("Filesize (%.0f MB) exceeds maximum upload size (25 MB) allowed by OpenAI API.", megabytes)}
	}

	audio, err := os.Open(req.InputPath)
	if err != nil {
		return Result{ErrorMessage: fmt.Sprintf("cannot open audio file: %s", req.InputPath)}
	}
	defer audio.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", req.BaseName)
	if err != nil {
		return Result{ErrorMessage: fmt.Sprintf("build upload: %v", err)}
	}
	if _, err := io.Copy(part, audio); err != nil {
		return Result{ErrorMessage: fmt.Sprintf("read audio file: %v", err)}
	}
	_ = form.WriteField("model", "whisper-1")
	_ = form.WriteField("response_format", apiResponseFormat(req.OutputFormat))
	_ = form.WriteField("temperature", "0")
	if !strings.EqualFold(req.Language, "auto") && req.Language != "" {
		_ = form.WriteField("language", req.Language)
	}
	if err := form.Close(); err != nil {
		return Result{ErrorMessage: fmt.Sprintf("build upload: %v", err)}
	}

	endpoint := a.baseURL + "/v1/audio/transcriptions"
	if req.Task == domain.TaskTranslate {
		endpoint = a.baseURL + "/v1/audio/translations"
	}

	if a.onProgress != nil {
		a.onProgress(fmt.Sprintf("Sending file (%s) to OpenAI servers, waiting...", fileSizeLabel(req.InputPath)))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return Result{ErrorMessage: fmt.Sprintf("build request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return Result{Cancelled: true}
		}
		return Result{ErrorMessage: "Failed to connect to OpenAI API"}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if ctx.Err() != nil {
		return Result{Cancelled: true}
	}
	if err != nil {
		return Result{ErrorMessage: "Failed to connect to OpenAI API"}
	}

	if msg, ok := cloudErrorMessage(resp.StatusCode); ok {
		return Result{ErrorMessage: msg}
	}

	if err := os.WriteFile(req.OutputPath, text, 0o644); err != nil {
		return Result{ErrorMessage: fmt.Sprintf("cannot write output file: %s", req.OutputPath)}
	}

	return Result{Succeeded: true, OutputPath: req.OutputPath}
}

// apiResponseFormat maps the selected output format onto the values the
// OpenAI API accepts: plain text is "text", not the ".txt" extension.
func apiResponseFormat(format domain.OutputFormat) string {
	if format == domain.FormatText {
		return "text"
	}
	return string(format)
}

// cloudErrorMessage classifies API error statuses into the messages shown
// to the user.
func cloudErrorMessage(status int) (string, bool) {
	switch {
	case status == http.StatusUnauthorized:
		return "Incorrect API key provided", true
	case status == http.StatusTooManyRequests:
		return "OpenAI API request exceeded rate limit", true
	case status == http.StatusForbidden:
		return "No permission to access the requested resource", true
	case status < 200 || status > 299:
		return fmt.Sprintf("OpenAI API request failed with status %d", status), true
	default:
		return "", false
	}
}
