package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"seo-proxy/api/internal/content"
	"seo-proxy/api/internal/llm"
	"seo-proxy/api/internal/normalize"
)

const maxMessageLen = 3900

// Sender is the part of *tgbotapi.BotAPI the router uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// StatsSource reports generation outcomes recorded by the HTTP service.
type StatsSource interface {
	OutcomeCounts(ctx context.Context, since time.Time) (map[string]int, error)
}

type Router struct {
	Bot        Sender
	Service    *content.Service
	Engines    *llm.Engines
	EngManager *llm.Manager
	Timeout    time.Duration
	Log        *zap.Logger

	// Stats is optional; /stats is disabled without it.
	Stats StatsSource
}

func (r *Router) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// HandleUpdate dispatches one update. Only commands are understood.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	cid := upd.Message.Chat.ID
	if !upd.Message.IsCommand() {
		r.send(cid, helpText)
		return
	}

	args := strings.TrimSpace(upd.Message.CommandArguments())
	switch upd.Message.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "health":
		r.send(cid, "✅ OK")
	case "engine":
		r.handleEngine(cid, args)
	case "keywords":
		r.handleKeywords(ctx, cid, args)
	case "titles":
		r.handleTitles(ctx, cid, args)
	case "stats":
		r.handleStats(ctx, cid)
	default:
		r.send(cid, "Comando desconhecido. Use /start para ver os comandos.")
	}
}

const helpText = `Gerador de SEO para YouTube.
Comandos:
/keywords <palavra-chave> sugestões de palavras-chave long-tail
/titles <tema> | <público> | <palavra-chave> 10 títulos, o recomendado marcado com ⭐
/engine [gpt|gemini] mostra ou troca o motor
/stats gerações das últimas 24h
/health`

func (r *Router) handleEngine(cid int64, args string) {
	if args == "" {
		cur := r.EngManager.Get(cid)
		r.send(cid, fmt.Sprintf("Motor atual: %s (%s)\nUso: /engine gpt | /engine gemini", cur.Name(), cur.GetModel()))
		return
	}
	eng, err := r.Engines.GetEngine(strings.Fields(args)[0])
	if err != nil {
		r.send(cid, "Motor indisponível: "+err.Error())
		return
	}
	r.EngManager.Set(cid, eng)
	r.send(cid, fmt.Sprintf("✅ Motor: %s (%s)", eng.Name(), eng.GetModel()))
}

func (r *Router) handleKeywords(ctx context.Context, cid int64, args string) {
	req := content.ResearchRequest{Keyword: args}
	if err := content.ValidateKeywordSuggestions(req); err != nil {
		r.send(cid, "Uso: /keywords <palavra-chave>")
		return
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	out, err := r.Service.KeywordSuggestions(ctx, r.EngManager.Get(cid), req)
	if err != nil {
		r.sendError(cid, "keywords", err)
		return
	}
	r.send(cid, FormatSuggestions(out["suggestions"]))
}

func (r *Router) handleTitles(ctx context.Context, cid int64, args string) {
	req, ok := ParseTitlesArgs(args)
	if !ok {
		r.send(cid, "Uso: /titles <tema> | <público> | <palavra-chave>")
		return
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	out, err := r.Service.Titles(ctx, r.EngManager.Get(cid), req)
	if err != nil {
		r.sendError(cid, "titles", err)
		return
	}
	r.send(cid, FormatTitles(out["titles"]))
}

func (r *Router) handleStats(ctx context.Context, cid int64) {
	if r.Stats == nil {
		r.send(cid, "Estatísticas indisponíveis (AUDIT_ENABLED desligado).")
		return
	}
	counts, err := r.Stats.OutcomeCounts(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		r.logger().Warn("stats query failed", zap.Error(err))
		r.send(cid, "⚠️ Erro ao consultar estatísticas.")
		return
	}
	r.send(cid, FormatStats(counts))
}

func (r *Router) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.Timeout)
}

// ParseTitlesArgs splits "tema | publico | keyword".
func ParseTitlesArgs(args string) (content.ResearchRequest, bool) {
	parts := strings.Split(args, "|")
	if len(parts) != 3 {
		return content.ResearchRequest{}, false
	}
	req := content.ResearchRequest{
		Tema:    strings.TrimSpace(parts[0]),
		Publico: strings.TrimSpace(parts[1]),
		Keyword: strings.TrimSpace(parts[2]),
	}
	if content.ValidateTitles(req) != nil {
		return content.ResearchRequest{}, false
	}
	return req, true
}

func (r *Router) send(chatID int64, text string) {
	if len(text) > maxMessageLen {
		text = truncateUTF8(text, maxMessageLen) + "…"
	}
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.logger().Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) sendError(chatID int64, op string, err error) {
	r.logger().Warn("bot generation failed", zap.String("op", op), zap.Int64("chat_id", chatID), zap.Error(err))

	var ue *content.UpstreamError
	switch {
	case normalize.IsKind(err, normalize.MalformedOutput):
		r.send(chatID, "⚠️ A resposta do modelo não era JSON válido. Tente novamente.")
	case normalize.IsKind(err, normalize.UnexpectedShape):
		r.send(chatID, "⚠️ O modelo devolveu um formato inesperado. Tente novamente.")
	case errors.As(err, &ue):
		r.send(chatID, fmt.Sprintf("⚠️ Falha no motor %s: %v", ue.Engine, ue.Err))
	default:
		r.send(chatID, "⚠️ Erro: "+err.Error())
	}
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
