// Package prompt renders the instructions sent to the generation engines.
// Every builder is a pure function of its input.
package prompt

import (
	"fmt"
	"strings"
	"unicode"
)

// NotProvided replaces optional values the caller left empty.
const NotProvided = "NOT PROVIDED"

const (
	ModeSingle  = "single"
	ModeFunnel3 = "funnel3"
)

const (
	DefaultLanguage         = "PT-BR"
	DefaultChannelLevel     = "small"
	DefaultVideoType        = "tutorial"
	DefaultCompetitionLevel = "medium"
)

// ListSize is how many titles or suggestions the templates ask for.
const ListSize = 10

// VideoInput feeds the full content package (single video or 3-video funnel).
type VideoInput struct {
	Tema      string
	Publico   string
	Keyword   string
	Mode      string
	OfferName string
	OfferLink string
	OfferCTA  string
}

// ResearchInput feeds the keyword-suggestion and titles-only templates.
type ResearchInput struct {
	Keyword          string
	Tema             string
	Publico          string
	ChannelLevel     string
	VideoType        string
	CompetitionLevel string
}

// Builder holds the settings shared by all templates.
type Builder struct {
	Language string
}

func New(language string) *Builder {
	language = strings.TrimSpace(language)
	if language == "" {
		language = DefaultLanguage
	}
	return &Builder{Language: language}
}

// System is the persona instruction sent with every request.
func (b *Builder) System() string {
	return `You are a professional YouTube content engine specialised in SEO, audience retention and conversion.
You write titles, teleprompter scripts, descriptions and tags.
Write every piece of content in ` + b.Language + `.
Use natural, simple and direct language. Nothing robotic.
Never present invented specifics as facts.`
}

// IsFunnel reports whether mode selects the 3-video funnel.
func IsFunnel(mode string) bool {
	return strings.EqualFold(strings.TrimSpace(mode), ModeFunnel3)
}

// Video renders the primary prompt. Any mode other than funnel3 renders the
// single-video package.
func (b *Builder) Video(in VideoInput) string {
	var sb strings.Builder

	sb.WriteString("USER DATA\n")
	fmt.Fprintf(&sb, "- Video topic: %s\n", clean(in.Tema))
	fmt.Fprintf(&sb, "- Target audience: %s\n", clean(in.Publico))
	fmt.Fprintf(&sb, "- Main keyword: %s\n", clean(in.Keyword))
	sb.WriteString(`
GENERAL RULES
- Natural language, like talking to a friend.
- Target length per video: 4 to 7 minutes.
- Do not invent specific data; any number you use is an example and must read as one.
`)
	fmt.Fprintf(&sb, "- Write in %s.\n", b.Language)

	sb.WriteString("\nCRITICAL SEO RULE\n")
	fmt.Fprintf(&sb, "- The keyword %q must appear as often as possible without sounding forced.\n", in.Keyword)
	sb.WriteString(`- Spread it over the hook, the introduction, the start of each step, the explanations and the ending.
- The description must also repeat the keyword as often as reads naturally.
`)

	sb.WriteString("\nOFFER DATA\n")
	fmt.Fprintf(&sb, "- Offer name: %s\n", orNotProvided(in.OfferName))
	fmt.Fprintf(&sb, "- Offer link: %s\n", orNotProvided(in.OfferLink))
	fmt.Fprintf(&sb, "- Main CTA: %s\n", orNotProvided(in.OfferCTA))
	sb.WriteString(`
SALES RULES (CTAs)
- If the offer and link are provided, include natural sales CTAs.
- Do not sound like an ad; present the offer as a practical recommendation.
- Place a sales CTA at 3 moments:
  1) After step 1 (very light)
  2) In the middle (after delivering strong value)
  3) At the end (more direct)
- In the description, put the offer link in the first lines with a clear CTA.
- Never promise guaranteed results.
`)

	if IsFunnel(in.Mode) {
		sb.WriteString(funnelTask)
	} else {
		sb.WriteString(singleTask)
	}
	return sb.String()
}

// KeywordSuggestions renders the long-tail keyword research prompt.
func (b *Builder) KeywordSuggestions(in ResearchInput) string {
	var sb strings.Builder

	sb.WriteString("You are a YouTube SEO and keyword research specialist.\n")
	fmt.Fprintf(&sb, "Generate %d LONG-TAIL suggestions (easier to rank) that keep the original intent.\n", ListSize)
	sb.WriteString("\nDATA:\n")
	writeResearchData(&sb, in, "Base keyword")
	sb.WriteString("\nRULES:\n")
	fmt.Fprintf(&sb, "- %s.\n", b.Language)
	sb.WriteString(`- No duplicates.
- No exaggerated promises.
- Answer ONLY with JSON:
{ "suggestions": ["...", "..."] }
`)
	return sb.String()
}

// Titles renders the titles-only prompt.
func (b *Builder) Titles(in ResearchInput) string {
	var sb strings.Builder

	sb.WriteString("You are a YouTube SEO and title writing specialist.\n")
	sb.WriteString("\nDATA:\n")
	writeResearchData(&sb, in, "Keyword")
	sb.WriteString("\nRULES:\n")
	fmt.Fprintf(&sb, "- Generate %d titles in %s.\n", ListSize, b.Language)
	sb.WriteString(`- Put the keyword at the start whenever possible.
- No exaggerated clickbait.
- Mark exactly 1 title as recommended.
- Answer ONLY with JSON:
{ "titles": [ { "text": "...", "recommended": false } ] }
`)
	return sb.String()
}

func writeResearchData(sb *strings.Builder, in ResearchInput, keywordLabel string) {
	fmt.Fprintf(sb, "- %s: %q\n", keywordLabel, in.Keyword)
	fmt.Fprintf(sb, "- Topic: %q\n", orNotProvided(in.Tema))
	fmt.Fprintf(sb, "- Audience: %q\n", orNotProvided(in.Publico))
	fmt.Fprintf(sb, "- Channel level: %q\n", orDefault(in.ChannelLevel, DefaultChannelLevel))
	fmt.Fprintf(sb, "- Video type: %q\n", orDefault(in.VideoType, DefaultVideoType))
	fmt.Fprintf(sb, "- Competition: %q\n", orDefault(in.CompetitionLevel, DefaultCompetitionLevel))
}

func orNotProvided(s string) string {
	return orDefault(s, NotProvided)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return clean(s)
}

// clean turns control characters other than '\n' into spaces.
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		if r != '\n' && unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

const singleTask = `
TASK
Generate a complete package with:
1) 10 SEO titles (mark 1 as recommended)
2) A complete teleprompter script (with sections)
3) An SEO description (keyword repeated as naturally as possible)
4) 20 tags

OUTPUT FORMAT (JSON only):
{
  "titles": [{"text":"", "recommended": false}],
  "script": {
    "target_minutes": "",
    "teleprompter_text": "",
    "sections": [{"name":"", "content":""}]
  },
  "description": "",
  "tags": []
}
`

const funnelTask = `
TASK
Generate 3 VIDEOS AS A FUNNEL, each one linking to the next.

Funnel rules:
- Video 1: attract (top/middle). Strong promise + problem + overview.
- Video 2: deepen (middle). Step by step + proof/authority + objection handling.
- Video 3: close (bottom). Review/is it worth it/comparison + the most direct CTA.

Links between videos:
- At the end of Video 1, write a clear ready-made bridge sentence to Video 2.
- At the end of Video 2, write a clear ready-made bridge sentence to Video 3.
- At the start of Video 2, recall Video 1 in one line.
- At the start of Video 3, recall Video 2 in one line.
- In every video, include 2 light CTAs (subscribe/like/comment) and 1 CTA to watch the next video.

FUNNEL CTA RULES
- Video 1: light, curious CTA.
- Video 2: CTA built on logic and a shortcut.
- Video 3: direct CTA.

For EACH VIDEO deliver:
1) 10 SEO titles (mark 1 as recommended)
2) A complete teleprompter script (with sections)
3) An SEO description (keyword repeated as naturally as possible)
4) 20 tags

OUTPUT FORMAT
Answer ONLY with valid JSON:
{
  "funnel": [
    {
      "video_number": 1,
      "role": "top/middle",
      "titles": [{"text":"", "recommended": false}],
      "script": {
        "target_minutes": "",
        "teleprompter_text": "",
        "sections": [{"name":"", "content":""}],
        "bridge_to_next_video": ""
      },
      "description": "",
      "tags": []
    },
    {
      "video_number": 2,
      "role": "middle",
      "titles": [{"text":"", "recommended": false}],
      "script": {
        "target_minutes": "",
        "teleprompter_text": "",
        "sections": [{"name":"", "content":""}],
        "bridge_to_next_video": ""
      },
      "description": "",
      "tags": []
    },
    {
      "video_number": 3,
      "role": "bottom",
      "titles": [{"text":"", "recommended": false}],
      "script": {
        "target_minutes": "",
        "teleprompter_text": "",
        "sections": [{"name":"", "content":""}],
        "bridge_to_next_video": ""
      },
      "description": "",
      "tags": []
    }
  ]
}
`
