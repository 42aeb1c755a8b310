package ai

import (
	"fmt"
	"strings"

	"github.com/antoniopedrola/synthetic-research/internal/model/chat"
	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
	"github.com/antoniopedrola/synthetic-research/internal/model/persona"
)

// PromptConfig tunes the assembled system prompt.
type PromptConfig struct {
	// HistoryWindow is the number of past exchanges condensed into the system
	// prompt so the model keeps continuity.
	HistoryWindow int
	// LabelFallback separates unmatched fallback evidence under a background
	// heading instead of mixing it with threshold-matched quotes.
	LabelFallback bool
}

// DefaultPromptConfig mirrors the observed product behavior: three exchanges
// of summarized history, fallback evidence labeled.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{HistoryWindow: 3, LabelFallback: true}
}

// BuildSystemPrompt assembles the full grounding instruction for one turn:
// persona description, verbatim evidence block, condensed history, and the
// behavioral rules. Pure string composition; deterministic for fixed inputs.
func BuildSystemPrompt(p persona.Persona, items []evidence.Item, history []chat.Turn, cfg PromptConfig) string {
	var b strings.Builder

	b.WriteString(renderPersona(p))
	b.WriteString("\n\nIMPORTANT INSTRUCTIONS:\n")
	b.WriteString("1. Answer questions AS THIS PERSON in first person\n")
	b.WriteString("2. Be authentic and conversational (2-4 sentences)\n")
	b.WriteString(fmt.Sprintf("3. Use ONLY the evidence below - this is real research data from %s\n", strings.ToUpper(p.Segment)))
	b.WriteString("4. NEVER invent facts, ownership, or experiences not in the evidence\n")
	b.WriteString("5. If the evidence doesn't cover it, say you're not sure\n")
	b.WriteString("6. Remember the conversation history and stay consistent with what you've said before\n")

	b.WriteString("\n")
	b.WriteString(renderEvidence(items, p.Segment, cfg.LabelFallback))

	if summary := renderHistory(history, cfg.HistoryWindow); summary != "" {
		b.WriteString("\n")
		b.WriteString(summary)
	}

	b.WriteString(fmt.Sprintf("\nNow answer the current question naturally as a person from %s, using the evidence from your market.", strings.ToUpper(p.Segment)))
	return b.String()
}

// renderPersona prefers the lifestyle attribute set when the persona was
// loaded with one; legacy bio-style personas render their older fields.
func renderPersona(p persona.Persona) string {
	var b strings.Builder
	if p.Lifestyle {
		fmt.Fprintf(&b, "You are %s, a %d-year-old %s living in %s.\n\n", p.Name, p.Age, p.Occupation, p.Household)
		b.WriteString("Your situation:\n")
		if len(p.Devices) > 0 {
			fmt.Fprintf(&b, "- Devices and services you use: %s\n", strings.Join(p.Devices, ", "))
		}
		if len(p.Routines) > 0 {
			fmt.Fprintf(&b, "- Your routines: %s\n", strings.Join(p.Routines, ", "))
		}
		if len(p.Tensions) > 0 {
			fmt.Fprintf(&b, "- Your tensions: %s\n", strings.Join(p.Tensions, ", "))
		}
		if p.LanguageStyle != "" {
			fmt.Fprintf(&b, "\nSpeak in this style: %s", p.LanguageStyle)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	fmt.Fprintf(&b, "You are %s, a %d-year-old %s from %s.\n\n", p.Name, p.Age, p.Occupation, strings.ToUpper(p.Segment))
	fmt.Fprintf(&b, "Your background: %s\n", p.Bio)
	if len(p.PainPoints) > 0 {
		fmt.Fprintf(&b, "Your pain points: %s\n", strings.Join(p.PainPoints, ", "))
	}
	if len(p.Goals) > 0 {
		fmt.Fprintf(&b, "Your goals: %s\n", strings.Join(p.Goals, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderEvidence(items []evidence.Item, segment string, labelFallback bool) string {
	if len(items) == 0 {
		return "No specific research evidence was found for this question. Answer based only on your persona profile, and acknowledge uncertainty."
	}

	var matched, background []evidence.Item
	for _, item := range items {
		if item.Matched || !labelFallback {
			matched = append(matched, item)
		} else {
			background = append(background, item)
		}
	}

	var b strings.Builder
	if len(matched) > 0 {
		fmt.Fprintf(&b, "Evidence from %s research:\n", strings.ToUpper(segment))
		for _, item := range matched {
			fmt.Fprintf(&b, "Source: %s (%s)\nContent: %s\n---\n", item.SourceType, item.Segment, item.Content)
		}
	}
	if len(background) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Background evidence (not matched to this question, treat as loose context only):\n")
		for _, item := range background {
			fmt.Fprintf(&b, "Source: %s (%s)\nContent: %s\n---\n", item.SourceType, item.Segment, item.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderHistory(history []chat.Turn, window int) string {
	if len(history) == 0 || window <= 0 {
		return ""
	}
	start := 0
	if len(history) > window {
		start = len(history) - window
	}

	var b strings.Builder
	b.WriteString("Previous conversation context:\n")
	for _, turn := range history[start:] {
		fmt.Fprintf(&b, "User asked: %s\n", turn.Question)
		fmt.Fprintf(&b, "You responded: %s\n\n", turn.Answer)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
