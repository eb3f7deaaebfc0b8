package gpt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Engine talks to the OpenAI Responses API.
type Engine struct {
	APIKey string
	Model  string
	client *resty.Client
}

func New(key, model, baseURL string) *Engine {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		// long generations keep the first byte waiting for a while
		ResponseHeaderTimeout: 180 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}

	c := resty.New().
		SetTransport(tr).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json")

	return &Engine{
		APIKey: strings.TrimSpace(key),
		Model:  strings.TrimSpace(model),
		client: c,
	}
}

// WithHTTPClient swaps the underlying HTTP client (tests, tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.client = resty.NewWithClient(c).
			SetBaseURL(e.client.BaseURL).
			SetHeader("Content-Type", "application/json")
	}
	return e
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

// Generate sends system as `instructions` and prompt as `input`.
func (e *Engine) Generate(ctx context.Context, system, prompt string) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("OPENAI_API_KEY is empty")
	}

	body := map[string]any{
		"model":        e.Model,
		"instructions": system,
		"input":        prompt,
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetAuthToken(e.APIKey).
		SetBody(body).
		Post("/responses")
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	raw := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode(), Body: truncateBytes(raw, 1024)}
	}

	out := extractResponsesText(raw)
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("openai generate: empty output; body=%s", truncateBytes(raw, 1024))
	}
	return out, nil
}

// StatusError is a non-200 reply from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openai generate %d: %s", e.Code, strings.TrimSpace(e.Body))
}

// extractResponsesText pulls model text out of the Responses API envelope.
// It prefers `output_text` and otherwise joins the text segments of
// `output[i].content[j]` whose type is `output_text` or `text`.
func extractResponsesText(raw []byte) string {
	type content struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	type output struct {
		Type    string    `json:"type"`
		Role    string    `json:"role,omitempty"`
		Content []content `json:"content"`
	}
	var env struct {
		Object     string   `json:"object"`
		Status     string   `json:"status"`
		Output     []output `json:"output"`
		OutputText string   `json:"output_text"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}

	if s := strings.TrimSpace(env.OutputText); s != "" {
		return env.OutputText
	}

	var b strings.Builder
	for _, o := range env.Output {
		for _, c := range o.Content {
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			if c.Type == "output_text" || c.Type == "text" || c.Type == "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(c.Text)
			}
		}
	}
	return b.String()
}

func truncateBytes(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
