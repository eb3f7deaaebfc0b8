// Package content runs the three generation operations: it validates input, renders
// the prompt, calls the engine and normalizes what comes back.
package content

import (
	"context"

	"go.uber.org/zap"

	"seo-proxy/api/internal/llm"
	"seo-proxy/api/internal/normalize"
	"seo-proxy/api/internal/prompt"
)

// GenerateRequest is the body of the full content package operation.
type GenerateRequest struct {
	LLMName   string `json:"llm_name,omitempty"`
	Tema      string `json:"tema"`
	Publico   string `json:"publico"`
	Keyword   string `json:"keyword"`
	Mode      string `json:"mode,omitempty"` // "single" | "funnel3"
	OfferName string `json:"offer_name,omitempty"`
	OfferLink string `json:"offer_link,omitempty"`
	OfferCTA  string `json:"offer_cta,omitempty"`
}

// ResearchRequest is the body of the keyword-suggestion and titles-only operations.
type ResearchRequest struct {
	LLMName          string `json:"llm_name,omitempty"`
	Keyword          string `json:"keyword"`
	Tema             string `json:"tema,omitempty"`
	Publico          string `json:"publico,omitempty"`
	ChannelLevel     string `json:"channel_level,omitempty"`
	VideoType        string `json:"video_type,omitempty"`
	CompetitionLevel string `json:"competition_level,omitempty"`
}

func (r ResearchRequest) input() prompt.ResearchInput {
	return prompt.ResearchInput{
		Keyword:          r.Keyword,
		Tema:             r.Tema,
		Publico:          r.Publico,
		ChannelLevel:     r.ChannelLevel,
		VideoType:        r.VideoType,
		CompetitionLevel: r.CompetitionLevel,
	}
}

type Service struct {
	prompts *prompt.Builder
	log     *zap.Logger
}

func NewService(prompts *prompt.Builder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{prompts: prompts, log: log}
}

// ValidateGenerate checks the fields Generate needs before any engine call.
func ValidateGenerate(req GenerateRequest) error {
	return requireFields("tema", req.Tema, "publico", req.Publico, "keyword", req.Keyword)
}

func ValidateKeywordSuggestions(req ResearchRequest) error {
	return requireFields("keyword", req.Keyword)
}

func ValidateTitles(req ResearchRequest) error {
	return requireFields("tema", req.Tema, "publico", req.Publico, "keyword", req.Keyword)
}

// Generate produces the single-video package or the 3-video funnel. The parsed
// model output is returned as-is since its shape depends on the mode.
func (s *Service) Generate(ctx context.Context, eng llm.Engine, req GenerateRequest) (any, error) {
	if err := ValidateGenerate(req); err != nil {
		return nil, err
	}
	user := s.prompts.Video(prompt.VideoInput{
		Tema:      req.Tema,
		Publico:   req.Publico,
		Keyword:   req.Keyword,
		Mode:      req.Mode,
		OfferName: req.OfferName,
		OfferLink: req.OfferLink,
		OfferCTA:  req.OfferCTA,
	})
	raw, err := s.call(ctx, eng, "generate", user)
	if err != nil {
		return nil, err
	}
	return normalize.Parse(raw)
}

// KeywordSuggestions returns {"suggestions": [...]} with at most 10 entries.
func (s *Service) KeywordSuggestions(ctx context.Context, eng llm.Engine, req ResearchRequest) (map[string]any, error) {
	if err := ValidateKeywordSuggestions(req); err != nil {
		return nil, err
	}
	raw, err := s.call(ctx, eng, "keyword_suggestions", s.prompts.KeywordSuggestions(req.input()))
	if err != nil {
		return nil, err
	}
	return normalize.List(raw, "suggestions", normalize.MaxItems)
}

// Titles returns {"titles": [...]} with at most 10 entries.
func (s *Service) Titles(ctx context.Context, eng llm.Engine, req ResearchRequest) (map[string]any, error) {
	if err := ValidateTitles(req); err != nil {
		return nil, err
	}
	raw, err := s.call(ctx, eng, "titles_only", s.prompts.Titles(req.input()))
	if err != nil {
		return nil, err
	}
	return normalize.List(raw, "titles", normalize.MaxItems)
}

func (s *Service) call(ctx context.Context, eng llm.Engine, op, user string) (string, error) {
	s.log.Debug("engine call",
		zap.String("op", op),
		zap.String("engine", eng.Name()),
		zap.String("model", eng.GetModel()),
		zap.Int("prompt_len", len(user)))

	raw, err := eng.Generate(ctx, s.prompts.System(), user)
	if err != nil {
		return "", &UpstreamError{Engine: eng.Name(), Model: eng.GetModel(), Err: err}
	}
	return raw, nil
}
