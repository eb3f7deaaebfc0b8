package handle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"seo-proxy/api/internal/content"
	"seo-proxy/api/internal/llm"
	"seo-proxy/api/internal/prompt"
	"seo-proxy/api/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeEngine struct {
	name  string
	out   string
	err   error
	mu    sync.Mutex
	calls int
}

func (f *fakeEngine) Name() string     { return f.name }
func (f *fakeEngine) GetModel() string { return f.name + "-model" }
func (f *fakeEngine) Generate(context.Context, string, string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.out, f.err
}

type memAudit struct {
	mu      sync.Mutex
	entries []store.GenerationLog
	err     error
}

func (m *memAudit) Insert(_ context.Context, l store.GenerationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, l)
	return m.err
}

func newServer(t *testing.T, gpt, gemini *fakeEngine, audit AuditLog) http.Handler {
	t.Helper()
	engs := &llm.Engines{Default: "gpt"}
	if gpt != nil {
		engs.OpenAI = gpt
	}
	if gemini != nil {
		engs.Gemini = gemini
	}
	h := New(engs, content.NewService(prompt.New(""), nil), nil)
	if audit != nil {
		h.WithAudit(audit)
	}
	mux := http.NewServeMux()
	h.Register(mux)
	return Middleware(nil, mux)
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestTitlesOnly_EndToEnd(t *testing.T) {
	gpt := &fakeEngine{name: "gpt", out: `{"titles":[{"text":"Z tutorial","recommended":true}]}`}
	srv := newServer(t, gpt, nil, nil)

	rec := do(t, srv, http.MethodPost, "/titles_only", `{"tema":"X","publico":"Y","keyword":"Z"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"titles":[{"text":"Z tutorial","recommended":true}]}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestAliasesRouteToSameHandlers(t *testing.T) {
	gpt := &fakeEngine{name: "gpt", out: `{"suggestions":["a","b"]}`}
	srv := newServer(t, gpt, nil, nil)

	for _, path := range []string{"/keyword_suggestions", "/api/keyword_suggest"} {
		rec := do(t, srv, http.MethodPost, path, `{"keyword":"k"}`)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"suggestions":["a","b"]}`, rec.Body.String(), path)
	}
	for _, path := range []string{"/health", "/api/health"} {
		rec := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"ok":true}`, rec.Body.String(), path)
	}
	assert.Equal(t, 2, gpt.calls)
}

func TestHealthDoesNotCallEngine(t *testing.T) {
	gpt := &fakeEngine{name: "gpt", err: errors.New("down")}
	srv := newServer(t, gpt, nil, nil)

	rec := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, gpt.calls)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newServer(t, &fakeEngine{name: "gpt"}, nil, nil)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodGet, "/generate", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodPost, "/health", "").Code)
}

func TestBadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"empty body", "/generate", "", `{"error":"required fields: tema, publico, keyword"}`},
		{"missing keyword", "/keyword_suggestions", `{"tema":"x"}`, `{"error":"required field: keyword"}`},
		{"blank publico", "/titles_only", `{"tema":"x","publico":"  ","keyword":"k"}`, `{"error":"required field: publico"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gpt := &fakeEngine{name: "gpt", out: `{}`}
			srv := newServer(t, gpt, nil, nil)

			rec := do(t, srv, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.Zero(t, gpt.calls)
		})
	}

	t.Run("bad json", func(t *testing.T) {
		srv := newServer(t, &fakeEngine{name: "gpt"}, nil, nil)
		rec := do(t, srv, http.MethodPost, "/generate", `{"tema":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "bad json")
	})

	t.Run("too large", func(t *testing.T) {
		srv := newServer(t, &fakeEngine{name: "gpt"}, nil, nil)
		body := `{"tema":"` + strings.Repeat("a", maxBodyBytes) + `"}`
		rec := do(t, srv, http.MethodPost, "/generate", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestEngineSelection(t *testing.T) {
	gpt := &fakeEngine{name: "gpt", out: `{"suggestions":["from gpt"]}`}
	gemini := &fakeEngine{name: "gemini", out: `{"suggestions":["from gemini"]}`}
	srv := newServer(t, gpt, gemini, nil)

	rec := do(t, srv, http.MethodPost, "/keyword_suggestions", `{"keyword":"k","llm_name":"gemini"}`)
	assert.JSONEq(t, `{"suggestions":["from gemini"]}`, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/keyword_suggestions", `{"keyword":"k"}`)
	assert.JSONEq(t, `{"suggestions":["from gpt"]}`, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/keyword_suggestions", `{"keyword":"k","llm_name":"claude"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown llm_name")
}

func TestUnconfiguredEngineIsBadRequest(t *testing.T) {
	srv := newServer(t, &fakeEngine{name: "gpt"}, nil, nil)

	rec := do(t, srv, http.MethodPost, "/keyword_suggestions", `{"keyword":"k","llm_name":"gemini"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")
}

func TestFailureBodies(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		eng  *fakeEngine
		want string
	}{
		{
			name: "malformed output carries raw text",
			path: "/generate",
			body: `{"tema":"a","publico":"b","keyword":"c"}`,
			eng:  &fakeEngine{name: "gpt", out: "no json here"},
			want: `{"error":"Response was not valid JSON.","raw":"no json here"}`,
		},
		{
			name: "wrong key carries parsed value",
			path: "/keyword_suggestions",
			body: `{"keyword":"k"}`,
			eng:  &fakeEngine{name: "gpt", out: `{"wrong_key":[]}`},
			want: `{"error":"Invalid format returned by the AI.","raw":{"wrong_key":[]}}`,
		},
		{
			name: "upstream failure carries detail",
			path: "/titles_only",
			body: `{"tema":"a","publico":"b","keyword":"c"}`,
			eng:  &fakeEngine{name: "gpt", err: errors.New("rate limited")},
			want: `{"error":"Failed to generate titles.","detail":"gpt (gpt-model): rate limited"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.eng, nil, nil)
			rec := do(t, srv, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestTruncatesToTen(t *testing.T) {
	gpt := &fakeEngine{name: "gpt", out: `{"suggestions":[1,2,3,4,5,6,7,8,9,10,11,12,13,14,15]}`}
	srv := newServer(t, gpt, nil, nil)

	rec := do(t, srv, http.MethodPost, "/keyword_suggestions", `{"keyword":"k"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"suggestions":[1,2,3,4,5,6,7,8,9,10]}`, rec.Body.String())
}

func TestAuditEntries(t *testing.T) {
	audit := &memAudit{err: errors.New("db down")}
	gpt := &fakeEngine{name: "gpt", out: `{"titles":[]}`}
	srv := newServer(t, gpt, nil, audit)

	req := httptest.NewRequest(http.MethodPost, "/titles_only", strings.NewReader(`{"tema":"a","publico":"b","keyword":"c"}`))
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	// audit failures never change the response
	assert.Equal(t, http.StatusOK, rec.Code)

	do(t, srv, http.MethodPost, "/generate", `{}`)

	require.Len(t, audit.entries, 2)
	first := audit.entries[0]
	assert.Equal(t, "req-1", first.RequestID)
	assert.Equal(t, "titles_only", first.Operation)
	assert.Equal(t, "gpt", first.Engine)
	assert.Equal(t, "gpt-model", first.Model)
	assert.Equal(t, store.OutcomeOK, first.Outcome)

	second := audit.entries[1]
	assert.Equal(t, "generate", second.Operation)
	assert.Equal(t, store.OutcomeValidationError, second.Outcome)
	assert.Empty(t, second.Engine)
}

func TestPanicRecovered(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	Middleware(nil, mux).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
