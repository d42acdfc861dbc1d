// Package title derives an event title from a message by removing its
// date/time phrases.
package title

import (
	"sort"
	"strings"

	"msgcal/internal/model"
	"msgcal/internal/temporal"
)

// Fallback is used when nothing meaningful is left after stripping.
const Fallback = "Event"

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true,
	"at": true, "on": true, "in": true, "by": true,
}

// edgeTrim is the punctuation left behind by removed phrases.
const edgeTrim = " \t,;:.-–@"

// Extract removes every date/time phrase from text (not only the matched
// one), collapses whitespace and strips stopwords from both ends.
func Extract(text string, m model.TemporalMatch) string {
	spans := temporal.NoiseSpans(text)
	if m.Span.Length > 0 && m.Span.End() <= len(text) {
		spans = append(spans, m.Span)
	}
	var residue []string
	for _, w := range strings.Fields(removeSpans(text, spans)) {
		if strings.Trim(w, edgeTrim) != "" {
			residue = append(residue, w)
		}
	}

	for len(residue) > 0 {
		first := strings.Trim(residue[0], edgeTrim)
		if stopwords[strings.ToLower(first)] {
			residue = residue[1:]
			continue
		}
		last := strings.Trim(residue[len(residue)-1], edgeTrim)
		if stopwords[strings.ToLower(last)] {
			residue = residue[:len(residue)-1]
			continue
		}
		break
	}

	out := strings.Trim(strings.Join(residue, " "), edgeTrim)
	if len([]rune(out)) < 2 {
		return Fallback
	}
	return out
}

// removeSpans blanks out spans, which may overlap, keeping a space in
// their place so neighbouring words do not merge.
func removeSpans(text string, spans []model.Span) string {
	if len(spans) == 0 {
		return text
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Offset < spans[j].Offset })

	var b strings.Builder
	pos := 0
	for _, s := range spans {
		if s.Offset > pos {
			b.WriteString(text[pos:s.Offset])
		}
		b.WriteByte(' ')
		if s.End() > pos {
			pos = s.End()
		}
	}
	b.WriteString(text[pos:])
	return b.String()
}
