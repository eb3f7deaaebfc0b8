package handle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"seo-proxy/api/internal/content"
	"seo-proxy/api/internal/llm"
	"seo-proxy/api/internal/normalize"
	"seo-proxy/api/internal/store"
)

const (
	maxBodyBytes   = 1 << 20
	defaultTimeout = 120 * time.Second
	auditTimeout   = 3 * time.Second
)

// AuditLog receives one entry per handled generation request.
type AuditLog interface {
	Insert(ctx context.Context, l store.GenerationLog) error
}

type Handle struct {
	engs    *llm.Engines
	svc     *content.Service
	audit   AuditLog
	log     *zap.Logger
	timeout time.Duration
}

func New(engs *llm.Engines, svc *content.Service, log *zap.Logger) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handle{
		engs:    engs,
		svc:     svc,
		log:     log,
		timeout: defaultTimeout,
	}
}

// WithAudit enables the generation log.
func (h *Handle) WithAudit(a AuditLog) *Handle {
	h.audit = a
	return h
}

// WithTimeout bounds each engine call.
func (h *Handle) WithTimeout(d time.Duration) *Handle {
	if d > 0 {
		h.timeout = d
	}
	return h
}

// Register mounts every route on mux, including the /api aliases.
func (h *Handle) Register(mux *http.ServeMux) {
	for _, p := range []string{"/generate", "/api/generate"} {
		mux.HandleFunc(p, h.Generate)
	}
	for _, p := range []string{"/keyword_suggestions", "/api/keyword_suggest"} {
		mux.HandleFunc(p, h.KeywordSuggestions)
	}
	for _, p := range []string{"/titles_only", "/api/titles_only"} {
		mux.HandleFunc(p, h.Titles)
	}
	for _, p := range []string{"/health", "/api/health"} {
		mux.HandleFunc(p, h.Health)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// decode reads a JSON body into v. An empty body leaves v zero so the
// required-field check reports what is missing.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
	return false
}

// run executes one generation operation: validation, engine lookup, the call
// under the request timeout, error mapping and the audit entry.
func (h *Handle) run(
	w http.ResponseWriter,
	r *http.Request,
	op, failMsg, llmName string,
	invalid error,
	call func(ctx context.Context, eng llm.Engine) (any, error),
) {
	start := time.Now()
	entry := store.GenerationLog{RequestID: RequestID(r.Context()), Operation: op}
	defer h.record(r.Context(), &entry, start)

	if invalid != nil {
		entry.Outcome = store.OutcomeValidationError
		writeError(w, http.StatusBadRequest, invalid.Error())
		return
	}

	eng, err := h.engs.GetEngine(llmName)
	if err != nil {
		entry.Outcome = store.OutcomeValidationError
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry.Engine, entry.Model = eng.Name(), eng.GetModel()

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	out, err := call(ctx, eng)
	entry.Outcome = outcome(err)
	if err != nil {
		h.log.Warn("generation failed",
			zap.String("request_id", entry.RequestID),
			zap.String("op", op),
			zap.String("engine", entry.Engine),
			zap.String("outcome", entry.Outcome),
			zap.Error(err))
		code, body := errorBody(failMsg, err)
		writeJSON(w, code, body)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// errorBody maps an operation error to a status code and response body.
func errorBody(failMsg string, err error) (int, map[string]any) {
	var ve *content.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, map[string]any{"error": ve.Error()}
	}

	var ne *normalize.Error
	if errors.As(err, &ne) {
		switch ne.Kind {
		case normalize.MalformedOutput:
			return http.StatusInternalServerError, map[string]any{
				"error": "Response was not valid JSON.",
				"raw":   ne.Raw,
			}
		case normalize.UnexpectedShape:
			return http.StatusInternalServerError, map[string]any{
				"error": "Invalid format returned by the AI.",
				"raw":   ne.Raw,
			}
		}
	}

	return http.StatusInternalServerError, map[string]any{
		"error":  failMsg,
		"detail": err.Error(),
	}
}

func outcome(err error) string {
	var ve *content.ValidationError
	switch {
	case err == nil:
		return store.OutcomeOK
	case errors.As(err, &ve):
		return store.OutcomeValidationError
	case normalize.IsKind(err, normalize.MalformedOutput):
		return store.OutcomeMalformedOutput
	case normalize.IsKind(err, normalize.UnexpectedShape):
		return store.OutcomeUnexpectedShape
	default:
		return store.OutcomeUpstreamError
	}
}

func (h *Handle) record(ctx context.Context, e *store.GenerationLog, start time.Time) {
	if h.audit == nil {
		return
	}
	e.DurationMs = time.Since(start).Milliseconds()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := h.audit.Insert(ctx, *e); err != nil {
		h.log.Warn("audit insert failed",
			zap.String("request_id", e.RequestID),
			zap.String("op", e.Operation),
			zap.Error(err))
	}
}
