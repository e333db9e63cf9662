package clients

import (
	"context"

	"github.com/maastricht-university/vocal-eval/scoring"
)

// --- Advisor (/advise) ---
type AdviceReq struct {
	AnalysisID     string             `json:"analysis_id"`
	Scores         map[string]float64 `json:"scores"`
	Feedback       map[string]string  `json:"feedback"`
	DetailedScores any                `json:"detailed_scores"`
	ReferenceNotes []string           `json:"reference_notes"`
}

func (h *HTTP) Advise(ctx context.Context, url string, req AdviceReq) (*scoring.Coaching, error) {
	var out scoring.Coaching
	if err := h.postJSON(ctx, url+"/advise", "advisor", req, &out); err != nil {
		return nil, err
	}
	out.Source = "advisor"
	return &out, nil
}

// Advise implements the orchestrator advisor.
func (e *Endpoint) Advise(ctx context.Context, req AdviceReq) (*scoring.Coaching, error) {
	return e.h.Advise(ctx, e.URL, req)
}
