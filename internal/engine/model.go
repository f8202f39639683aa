package engine

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/waltervanheuven/speech2text/internal/domain"
)

// EnsureModel makes sure the whisper.cpp model file for the catalog preset
// exists in modelDir, downloading it when absent. Downloads are verified
// against the published SHA-1 digest; a mismatched file is deleted and
// reported as an error so a retry starts clean.
func EnsureModel(ctx context.Context, modelID, modelDir string, progress func(string)) (string, error) {
	model, found := domain.WhisperModelByID(modelID)
	if !found {
		return "", fmt.Errorf("unknown model id: %s", modelID)
	}

	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return "", fmt.Errorf("prepare model directory: %w", err)
	}

	target := filepath.Join(modelDir, model.FileName)
	if info, err := os.Stat(target); err == nil && !info.IsDir() && info.Size() > 0 {
		return target, nil
	}

	if progress != nil {
		progress("Downloading model...")
	}
	if err := DownloadVerified(ctx, model.URL, target, model.SHA1); err != nil {
		return "", fmt.Errorf("download model %s: %w", model.Name, err)
	}
	if progress != nil {
		progress("Download completed.")
	}

	return target, nil
}

// DownloadVerified fetches sourceURL into destinationPath through a
// temporary file, checking the SHA-1 digest while copying. An empty
// wantSHA1 skips verification.
func DownloadVerified(ctx context.Context, sourceURL, destinationPath, wantSHA1 string) error {
	tmpPath := destinationPath + ".download"
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale temp file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "speech2text")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	digest := sha1.New()
	_, copyErr := io.Copy(file, io.TeeReader(resp.Body, digest))
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write destination file: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close destination file: %w", closeErr)
	}

	if wantSHA1 != "" {
		got := hex.EncodeToString(digest.Sum(nil))
		if got != wantSHA1 {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, wantSHA1)
		}
	}

	if err := os.Remove(destinationPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("remove old destination file: %w", err)
	}
	if err := os.Rename(tmpPath, destinationPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move downloaded file into place: %w", err)
	}

	return nil
}
