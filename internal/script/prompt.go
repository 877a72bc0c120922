package script

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/briefcast/internal/models"
)

// userPrompt is sent alongside the system prompt on every generation.
const userPrompt = "Generate the script based on the news provided."

var modeFocus = map[models.Mode]string{
	models.ModeMorning:   "Focus on Global/US market closes (S&P500, NASDAQ) from overnight and their specific implication for the ASX opening. Mention key commodities.",
	models.ModeAfternoon: "Focus on ASX market close, top winners/losers of the day, and local earnings results.",
}

var segmentGuide = []struct {
	Type models.SegmentType
	Desc string
}{
	{models.SegmentIntro, "Brief high-level summary of the market mood."},
	{models.SegmentMarketWrap, "Quantitative data: indices, currency, commodities."},
	{models.SegmentStockDeepdive, "Specific analysis of the most important stories."},
	{models.SegmentOutro, "Very short sign-off."},
}

// BuildContext renders items as numbered blocks separated by blank lines.
func BuildContext(items []models.NewsItem) string {
	blocks := make([]string, 0, len(items))
	for i, item := range items {
		blocks = append(blocks, fmt.Sprintf("ID: %d\nSource: %s\nTitle: %s\nSummary: %s",
			i+1, item.SourceID, item.Title, item.ContentSummary))
	}
	return strings.Join(blocks, "\n\n")
}

// SystemPrompt builds the analyst persona prompt for mode around the news context.
func SystemPrompt(mode models.Mode, context string) string {
	var b strings.Builder

	b.WriteString("You are a Senior Australian Financial Analyst hosting a short market podcast.\n")
	b.WriteString("Tone: professional, terse, no fluff. Use Australian English spelling.\n")
	b.WriteString("Spell out ASX tickers letter by letter for text-to-speech (e.g. B-H-P, C-S-L).\n\n")

	fmt.Fprintf(&b, "%s EDITION\n", strings.ToUpper(string(mode)))
	if focus, ok := modeFocus[mode]; ok {
		b.WriteString(focus)
		b.WriteString("\n")
	}

	b.WriteString("\nStructure the script into these segments, in order:\n")
	for _, s := range segmentGuide {
		fmt.Fprintf(&b, "- %s: %s\n", s.Type, s.Desc)
	}

	b.WriteString("\nRespond with a JSON object only, in this exact shape:\n")
	b.WriteString(`{"segments":[{"segment_type":"intro","text":"..."}]}`)
	b.WriteString("\nsegment_type must be one of: ")
	types := make([]string, len(models.SegmentTypes))
	for i, t := range models.SegmentTypes {
		types[i] = string(t)
	}
	b.WriteString(strings.Join(types, ", "))

	b.WriteString("\n\nNEWS:\n")
	b.WriteString(context)
	return b.String()
}
