package services

import (
	"fmt"
	"strings"
)

const (
	// excerptLimit caps the source excerpts embedded in reports
	excerptLimit = 320

	// highlightLimit caps the analysis highlights in integrated reports
	highlightLimit = 400

	noDirective = "No directive provided."
)

// renderSegment bundles what the renderers need to know about a segment
type renderSegment struct {
	Index    int
	FileName string
	Text     string
	Analysis string
}

// trimExcerpt normalizes line endings and caps the text at max runes,
// marking the cut with an ellipsis.
func trimExcerpt(text string, max int) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimRight(string(runes[:max-3]), " \t\n") + "..."
}

func directiveOrDefault(directive string) string {
	if strings.TrimSpace(directive) == "" {
		return noDirective
	}
	return directive
}

// renderAnalysis produces the per-segment analysis document.
func renderAnalysis(index int, sourceName, directive, text string) string {
	return fmt.Sprintf(
		"# Segment %d Analysis\n\n_Source file_: `%s`\n_Directive context_:\n%s\n\n## Segment Metrics\n- Character count: %d\n- Word count: %d\n\n## Source Excerpt\n%s\n",
		index,
		sourceName,
		directiveOrDefault(directive),
		len([]rune(text)),
		len(strings.Fields(text)),
		trimExcerpt(text, excerptLimit),
	)
}

// renderIntegration produces the document integrating a pair of segments.
func renderIntegration(pairIndex int, first, second renderSegment) string {
	totalCharacters := len([]rune(first.Text)) + len([]rune(second.Text))
	totalWords := len(strings.Fields(first.Text)) + len(strings.Fields(second.Text))

	sections := []string{
		fmt.Sprintf("# Integrated Report %d", pairIndex),
		fmt.Sprintf("## Covered Segments\n- Segment %d (`%s`)\n- Segment %d (`%s`)",
			first.Index, first.FileName, second.Index, second.FileName),
		fmt.Sprintf("## Combined Metrics\n- Total characters: %d\n- Total words: %d",
			totalCharacters, totalWords),
		fmt.Sprintf("### Segment %d Excerpt\n%s", first.Index, trimExcerpt(first.Text, excerptLimit)),
		fmt.Sprintf("### Segment %d Excerpt\n%s", second.Index, trimExcerpt(second.Text, excerptLimit)),
		"## Analysis Summaries",
		fmt.Sprintf("### Segment %d Highlights\n%s", first.Index, trimExcerpt(first.Analysis, highlightLimit)),
		fmt.Sprintf("### Segment %d Highlights\n%s", second.Index, trimExcerpt(second.Analysis, highlightLimit)),
	}
	return strings.Join(sections, "\n\n") + "\n"
}

// renderFinal assembles the final report from integrated summaries and
// residual segment analyses.
func renderFinal(directive string, sections []string) string {
	parts := []string{
		"# Final Report",
		"_Directive context_:\n" + directiveOrDefault(directive),
	}
	parts = append(parts, sections...)
	return strings.Join(parts, "\n\n") + "\n"
}
