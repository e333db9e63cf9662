package clients

import (
	"context"
	"fmt"
)

// --- Renderer (/render) ---
type RenderReq struct {
	AnalysisID string             `json:"analysis_id"`
	Scores     map[string]float64 `json:"scores"`
	Series     any                `json:"series"`
	OutputDir  string             `json:"output_dir,omitempty"`
}
type RenderResp struct {
	Status string   `json:"status"`
	Paths  []string `json:"paths"`
}

func (h *HTTP) Render(ctx context.Context, url string, req RenderReq) (*RenderResp, error) {
	var out RenderResp
	if err := h.postJSON(ctx, url+"/render", "render", req, &out); err != nil {
		return nil, err
	}
	if out.Status != "" && out.Status != "ok" {
		return nil, fmt.Errorf("render status %q", out.Status)
	}
	return &out, nil
}

// Render implements the orchestrator renderer and returns image paths.
func (e *Endpoint) Render(ctx context.Context, req RenderReq) ([]string, error) {
	out, err := e.h.Render(ctx, e.URL, req)
	if err != nil {
		return nil, err
	}
	return out.Paths, nil
}
