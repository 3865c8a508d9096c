package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const maxExtractAttempts = 3

// ExtractRequest is what the structured-generation collaborator receives.
// KnownPeople and KnownTags bias the model toward reusing canonical names.
// PriorError carries the previous attempt's failure reason into the retry
// prompt so the model can correct itself.
type ExtractRequest struct {
	Text       string    `json:"text"`
	Reference  time.Time `json:"reference"`
	KnownPeople []string `json:"known_people,omitempty"`
	KnownTags   []string `json:"known_tags,omitempty"`
	PriorError  string   `json:"prior_error,omitempty"`
}

// ExtractedEntry is one event the extractor pulled out of a transcript.
// Mood and energy arrive as words from the shared vocabulary.
type ExtractedEntry struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	People      []string  `json:"people"`
	Tags        []string  `json:"tags"`
	Mood        string    `json:"mood"`
	Energy      string    `json:"energy"`
	Anniversary bool      `json:"anniversary"`
	HappenedAt  time.Time `json:"happened_at"`
}

// Extractor is the external structured-generation collaborator.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) ([]ExtractedEntry, error)
}

// validated is an extracted entry with mood/energy resolved to integers.
type validated struct {
	ExtractedEntry
	mood   int
	energy int
}

// runExtraction drives the extractor with up to three attempts, feeding each
// failure reason into the next prompt, and falls back to a deterministic
// stub when all attempts fail. It never returns an empty result.
func (p *Pipeline) runExtraction(ctx context.Context, req ExtractRequest) []validated {
	var priorErr string
	for attempt := 1; attempt <= maxExtractAttempts; attempt++ {
		req.PriorError = priorErr
		entries, err := p.extractor.Extract(ctx, req)
		if err == nil {
			valid, verr := validateEntries(entries, req.Reference)
			if verr == nil {
				return valid
			}
			err = verr
		}
		priorErr = err.Error()
		p.logger.Warn("extraction attempt failed", "attempt", attempt, "error", err)
	}

	p.logger.Warn("extraction exhausted retries, using stub entry")
	return []validated{stubEntry(req.Text, req.Reference)}
}

// validateEntries enforces the extractor's contract before anything is
// persisted: at least one entry, mood/energy from the vocabulary, and every
// participant name textually present in its entry's summary.
func validateEntries(entries []ExtractedEntry, ref time.Time) ([]validated, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("extractor returned no entries")
	}

	out := make([]validated, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Summary) == "" {
			return nil, fmt.Errorf("entry %d has an empty summary", i)
		}
		mood, err := MoodFromWord(e.Mood)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		energy, err := EnergyFromWord(e.Energy)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		for _, name := range e.People {
			if !strings.Contains(e.Summary, name) {
				return nil, fmt.Errorf("entry %d: participant %q does not appear in the summary", i, name)
			}
		}
		if e.Title == "" {
			e.Title = ref.Format("January 2, 2006")
		}
		if e.HappenedAt.IsZero() {
			e.HappenedAt = ref
		}
		out = append(out, validated{ExtractedEntry: e, mood: mood, energy: energy})
	}
	return out, nil
}

// stubEntry is the deterministic fallback: one diary entry carved straight
// from the raw text so a completed call always leaves a trace.
func stubEntry(text string, ref time.Time) validated {
	summary := strings.TrimSpace(text)
	if runes := []rune(summary); len(runes) > 100 {
		summary = string(runes[:100]) + "…"
	}
	if summary == "" {
		summary = "Checked in."
	}
	return validated{
		ExtractedEntry: ExtractedEntry{
			Title:      ref.Format("January 2, 2006"),
			Summary:    summary,
			Tags:       []string{"diary"},
			HappenedAt: ref,
		},
		mood:   MoodNeutral,
		energy: EnergyModerate,
	}
}
