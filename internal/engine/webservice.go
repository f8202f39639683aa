package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/waltervanheuven/speech2text/internal/domain"
)

// webServiceTimeout is a generous ceiling on one upload-and-transcribe
// round trip; recognition may legitimately run for a long time.
const webServiceTimeout = 30 * time.Minute

// WebService sends audio to a whisper ASR webservice over HTTP. Server
// processing cannot be interrupted once the upload is in flight;
// cancellation aborts the request client-side and discards the response.
type WebService struct {
	client     *http.Client
	onProgress func(string)
	worker     worker
}

// NewWebService constructs the remote webservice adapter.
func NewWebService(onProgress func(string)) *WebService {
	return &WebService{
		client:     &http.Client{Timeout: webServiceTimeout},
		onProgress: onProgress,
	}
}

// NormalizeServiceURL validates the configured webservice URL and appends
// the /asr endpoint when missing.
func NormalizeServiceURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("webservice URL is not configured")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("webservice URL %q is not valid", raw)
	}

	if !strings.HasSuffix(strings.ToLower(parsed.Path), "/asr") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/asr"
	}
	return parsed.String(), nil
}

// Kind identifies the backend.
func (a *WebService) Kind() domain.EngineKind {
	return domain.EngineRemoteWebservice
}

// SupportedOutputFormats lists the formats the webservice can return.
func (a *WebService) SupportedOutputFormats() []domain.OutputFormat {
	return domain.EngineRemoteWebservice.SupportedOutputFormats()
}

// RequiresExternalConverter reports that the source file is uploaded
// as-is; the server transcodes.
func (a *WebService) RequiresExternalConverter() bool {
	return false
}

// SupportsTranslate reports translate-to-English support.
func (a *WebService) SupportsTranslate() bool {
	return true
}

// Run begins asynchronous processing and returns immediately.
func (a *WebService) Run(req Request, done func(Result)) error {
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
func (a *WebService) RequestCancel() {
	a.worker.requestCancel()
}

// Shutdown tears down any held worker handle.
func (a *WebService) Shutdown() {
	a.worker.shutdown()
}

// execute uploads the audio file and writes the response to OutputPath.
func (a *WebService) execute(ctx context.Context, req Request) Result {
	audio, err := os.Open(req.InputPath)
	if err != nil {
		return Result{ErrorMessage: fmt.Sprintf("cannot open audio file: %s", req.InputPath)}
	}
	defer audio.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("audio_file", req.BaseName)
	if err != nil {
		return Result{ErrorMessage: fmt.Sprintf("build upload: %v", err)}
	}
	if _, err := io.Copy(part, audio); err != nil {
		return Result{ErrorMessage: fmt.Sprintf("read audio file: %v", err)}
	}
	if err := form.Close(); err != nil {
		return Result{ErrorMessage: fmt.Sprintf("build upload: %v", err)}
	}

	endpoint, err := serviceRequestURL(req)
	if err != nil {
		return Result{ErrorMessage: err.Error()}
	}

	if a.onProgress != nil {
		a.onProgress(fmt.Sprintf("Sending file (%s) to: '%s', waiting...", fileSizeLabel(req.InputPath), req.ServiceURL))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return Result{ErrorMessage: fmt.Sprintf("build request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("accept", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return Result{Cancelled: true}
		}
		return Result{ErrorMessage: "Unable to access server. Please check URL and internet connection."}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if ctx.Err() != nil {
		return Result{Cancelled: true}
	}
	if err != nil {
		return Result{ErrorMessage: "Unable to read server response. Please check URL and internet connection."}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{ErrorMessage: fmt.Sprintf("Error posting request: %d. Please check URL.", resp.StatusCode)}
	}

	lower := strings.ToLower(strings.TrimSpace(string(text)))
	if strings.HasPrefix(lower, "<!doctype html>") || strings.HasPrefix(lower, "<html>") {
		return Result{ErrorMessage: "Unexpected response. Please check URL."}
	}

	if err := os.WriteFile(req.OutputPath, text, 0o644); err != nil {
		return Result{ErrorMessage: fmt.Sprintf("cannot write output file: %s", req.OutputPath)}
	}

	return Result{Succeeded: true, OutputPath: req.OutputPath}
}

// serviceRequestURL attaches the query parameters to the normalized
// webservice URL. Language is omitted for auto detection.
func serviceRequestURL(req Request) (string, error) {
	parsed, err := url.Parse(req.ServiceURL)
	if err != nil {
		return "", fmt.Errorf("webservice URL %q is not valid", req.ServiceURL)
	}

	query := parsed.Query()
	query.Set("task", string(req.Task))
	if !strings.EqualFold(req.Language, "auto") && req.Language != "" {
		query.Set("language", req.Language)
	}
	query.Set("encode", "true")
	query.Set("output", strings.TrimPrefix(req.OutputFormat.Extension(), "."))
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

// fileSizeLabel formats a file size for user feedback.
func fileSizeLabel(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown size"
	}

	megabytes := float64(info.Size()) / (1024 * 1024)
	if megabytes > 1 {
		return fmt.Sprintf("%.0f MB", megabytes)
	}
	return fmt.Sprintf("%.0f KB", float64(info.Size())/1024)
}
