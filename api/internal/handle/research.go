package handle

import (
	"context"
	"net/http"

	"seo-proxy/api/internal/content"
	"seo-proxy/api/internal/llm"
)

// KeywordSuggestions returns up to 10 related keyword ideas.
func (h *Handle) KeywordSuggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req content.ResearchRequest
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, "keyword_suggestions", "Failed to generate suggestions.", req.LLMName,
		content.ValidateKeywordSuggestions(req),
		func(ctx context.Context, eng llm.Engine) (any, error) {
			return h.svc.KeywordSuggestions(ctx, eng, req)
		})
}

// Titles returns up to 10 title candidates, one of them recommended.
func (h *Handle) Titles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req content.ResearchRequest
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, "titles_only", "Failed to generate titles.", req.LLMName,
		content.ValidateTitles(req),
		func(ctx context.Context, eng llm.Engine) (any, error) {
			return h.svc.Titles(ctx, eng, req)
		})
}

// Health reports liveness only; it never calls an engine.
func (h *Handle) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
