package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

func (h *HTTP) upload(ctx context.Context, url, name, path string) (*http.Response, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return h.do(req, name)
}

// Transcode uploads an audio file and reads back mono float32 PCM at
// 22050 Hz.
func (h *HTTP) Transcode(ctx context.Context, url, path string) ([]float64, error) {
	resp, err := h.upload(ctx, url+"/transcode", "transcode", path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	pcm, err := readF32LE(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transcode decode: %w", err)
	}
	return pcm, nil
}

// SheetNote is one recognized note; the duration is informational.
type SheetNote struct {
	Pitch    string  `json:"pitch"`
	Duration float64 `json:"duration"`
}
type SheetResp struct {
	Notes []SheetNote `json:"notes"`
}

// RecognizeSheet uploads a sheet-music image and returns the note names in
// reading order.
func (h *HTTP) RecognizeSheet(ctx context.Context, url, path string) ([]string, error) {
	resp, err := h.upload(ctx, url+"/recognize", "sheet music", path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out SheetResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("sheet music decode: %w", err)
	}
	notes := make([]string, 0, len(out.Notes))
	for _, n := range out.Notes {
		if n.Pitch != "" {
			notes = append(notes, n.Pitch)
		}
	}
	return notes, nil
}

// Decode implements the orchestrator decoder over the transcoding service.
func (e *Endpoint) Decode(ctx context.Context, path string) ([]float64, error) {
	return e.h.Transcode(ctx, e.URL, path)
}

// Notes implements the orchestrator note provider over the recognizer.
func (e *Endpoint) Notes(ctx context.Context, sheetPath string) ([]string, error) {
	return e.h.RecognizeSheet(ctx, e.URL, sheetPath)
}
