package handle

import (
	"context"
	"net/http"

	"seo-proxy/api/internal/content"
	"seo-proxy/api/internal/llm"
)

// Generate serves the full content package: a single video or a 3-video funnel.
func (h *Handle) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req content.GenerateRequest
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, "generate", "Failed to generate content.", req.LLMName,
		content.ValidateGenerate(req),
		func(ctx context.Context, eng llm.Engine) (any, error) {
			return h.svc.Generate(ctx, eng, req)
		})
}
