package telegram

import (
	"fmt"
	"sort"
	"strings"

	"seo-proxy/api/internal/normalize"
)

// FormatSuggestions renders a suggestions list as a numbered message.
func FormatSuggestions(v any) string {
	items, _ := v.([]any)
	if len(items) == 0 {
		return "Nenhuma sugestão retornada."
	}
	var sb strings.Builder
	sb.WriteString("🔎 Sugestões de palavras-chave:\n")
	for i, it := range items {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, itemText(it, "keyword", "text"))
	}
	return sb.String()
}

// FormatTitles renders titles as a numbered message; recommended ones get a star.
func FormatTitles(v any) string {
	items, _ := v.([]any)
	if len(items) == 0 {
		return "Nenhum título retornado."
	}
	var sb strings.Builder
	sb.WriteString("🎬 Títulos:\n")
	for i, it := range items {
		mark := ""
		if m, ok := it.(map[string]any); ok {
			if rec, _ := m["recommended"].(bool); rec {
				mark = " ⭐"
			}
		}
		fmt.Fprintf(&sb, "\n%d. %s%s", i+1, itemText(it, "text", "title"), mark)
	}
	return sb.String()
}

// itemText picks the first string field named in keys, else the compact JSON.
func itemText(it any, keys ...string) string {
	switch x := it.(type) {
	case string:
		return x
	case map[string]any:
		for _, k := range keys {
			if s, ok := x[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return normalize.Compact(it)
}

// FormatStats renders outcome counts for the last 24h, sorted by outcome.
func FormatStats(counts map[string]int) string {
	if len(counts) == 0 {
		return "📊 Nenhuma geração nas últimas 24h."
	}
	keys := make([]string, 0, len(counts))
	total := 0
	for k, n := range counts {
		keys = append(keys, k)
		total += n
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Últimas 24h: %d gerações\n", total)
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n%s: %d", k, counts[k])
	}
	return sb.String()
}
