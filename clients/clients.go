// Package clients talks to the external collaborators of the analysis:
// transcoding, sheet-music recognition, coaching advice and rendering.
package clients

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

type HTTP struct{ c *http.Client }

func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTP{c: &http.Client{Timeout: timeout}}
}

// Endpoint binds a service base URL to the shared client.
type Endpoint struct {
	h   *HTTP
	URL string
}

// Endpoint returns nil for an empty URL so disabled collaborators stay nil.
func (h *HTTP) Endpoint(url string) *Endpoint {
	if url == "" {
		return nil
	}
	return &Endpoint{h: h, URL: url}
}

func (h *HTTP) do(req *http.Request, name string) (*http.Response, error) {
	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s %s: %s", name, resp.Status, string(body))
	}
	return resp, nil
}

func (h *HTTP) postJSON(ctx context.Context, url, name string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.do(req, name)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", name, err)
	}
	return nil
}

// readF32LE decodes raw little-endian float32 PCM.
func readF32LE(r io.Reader) ([]float64, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("pcm stream length %d is not a multiple of 4", len(raw))
	}
	out := make([]float64, len(raw)/4)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:])))
	}
	return out, nil
}
