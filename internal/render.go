package internal

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

var (
	renderTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212"))

	renderMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	renderRankStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	badgeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(lipgloss.Color("0"))
)

// ScoreBand classifies a D-Logic score for display
type ScoreBand struct {
	Label string
	Color lipgloss.Color
}

// BandFor returns the band of a D-Logic score
func BandFor(score float64) ScoreBand {
	switch {
	case score >= 130:
		return ScoreBand{Label: "legendary", Color: lipgloss.Color("220")}
	case score >= 120:
		return ScoreBand{Label: "excellent", Color: lipgloss.Color("201")}
	case score >= 110:
		return ScoreBand{Label: "strong", Color: lipgloss.Color("39")}
	case score >= 100:
		return ScoreBand{Label: "good", Color: lipgloss.Color("42")}
	default:
		return ScoreBand{Label: "average", Color: lipgloss.Color("245")}
	}
}

func confidenceColor(c Confidence) lipgloss.Color {
	switch c {
	case ConfidenceHigh:
		return lipgloss.Color("42")
	case ConfidenceMedium:
		return lipgloss.Color("214")
	default:
		return lipgloss.Color("196")
	}
}

// ConfidenceBadge renders a coloured confidence label
func ConfidenceBadge(c Confidence) string {
	return badgeStyle.Background(confidenceColor(c)).Render(strings.ToUpper(string(c)))
}

// RenderPrediction draws the ranked horses in the order the backend sent them
func RenderPrediction(p *PredictionResult) string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(renderTitleStyle.Render("🏇 D-Logic 予想"))
	b.WriteString(" ")
	b.WriteString(ConfidenceBadge(p.Confidence))
	b.WriteString("\n")

	if len(p.SelectedConditions) > 0 {
		b.WriteString(renderMetaStyle.Render("条件: " + conditionSummary(p.SelectedConditions)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	nameWidth := 0
	for _, h := range p.Horses {
		if w := runewidth.StringWidth(h.Name); w > nameWidth {
			nameWidth = w
		}
	}

	for _, h := range p.Horses {
		band := BandFor(h.FinalScore)
		scoreStyle := lipgloss.NewStyle().Foreground(band.Color).Bold(true)
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			renderRankStyle.Render(fmt.Sprintf("%2d.", h.Rank)),
			runewidth.FillRight(h.Name, nameWidth),
			scoreStyle.Render(fmt.Sprintf("%6.1f", h.FinalScore)),
			renderMetaStyle.Render(band.Label))
	}

	if p.Analysis != "" {
		b.WriteString("\n")
		b.WriteString(RenderMarkdown(p.Analysis, 80))
	}
	return b.String()
}

func conditionSummary(ids []string) string {
	parts := make([]string, 0, len(ids))
	for i, id := range ids {
		name := id
		if c, ok := LookupCondition(id); ok {
			name = c.Name
		}
		if i < MaxConditions {
			parts = append(parts, fmt.Sprintf("%s %s(%d%%)", PriorityLabel(i+1), name, PriorityWeights[i]))
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, " > ")
}

// RenderDLogic draws the score table attached to a chat reply
func RenderDLogic(r *DLogicResult) string {
	if r == nil || len(r.Horses) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(renderTitleStyle.Render("D-Logic指数"))
	b.WriteString("\n")
	for i, h := range r.Horses {
		band := BandFor(h.TotalScore)
		fmt.Fprintf(&b, "%s %s %s\n",
			renderRankStyle.Render(fmt.Sprintf("%2d.", i+1)),
			h.HorseName,
			lipgloss.NewStyle().Foreground(band.Color).Render(fmt.Sprintf("%.1f", h.TotalScore)))
	}
	return b.String()
}

// RenderMarkdown renders markdown for the terminal, falling back to the
// raw text when rendering fails.
func RenderMarkdown(md string, width int) string {
	style := "notty"
	if IsTerminal(os.Stdout) {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		LogDebug("Markdown renderer unavailable: %v", err)
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		LogDebug("Markdown render failed: %v", err)
		return md
	}
	return out
}

// RenderConditions lists the catalog, marking selected conditions with
// their priority and weight.
func RenderConditions(selected []WeightedCondition) string {
	return RenderConditionCatalog(Catalog, selected)
}

// RenderConditionCatalog lists catalog, marking the selected conditions
func RenderConditionCatalog(catalog []Condition, selected []WeightedCondition) string {
	bySelected := make(map[string]WeightedCondition, len(selected))
	for _, w := range selected {
		bySelected[w.ID] = w
	}

	var b strings.Builder
	for _, c := range catalog {
		mark := "  "
		suffix := ""
		if w, ok := bySelected[c.ID]; ok {
			mark = renderRankStyle.Render("✓ ")
			suffix = renderMetaStyle.Render(fmt.Sprintf("  [%s %d%%]", PriorityLabel(w.Priority), w.Weight))
		}
		fmt.Fprintf(&b, "%s%-20s %s%s\n    %s\n", mark, c.ID, c.Name, suffix, renderMetaStyle.Render(c.Description))
	}
	return b.String()
}

// RenderTodayRaces draws today's card grouped by racecourse
func RenderTodayRaces(t *TodayRaces) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", renderTitleStyle.Render("📅 本日のレース"), renderMetaStyle.Render(t.Date))
	if t.Source != "" && t.Source != SourceNetwork {
		b.WriteString(renderMetaStyle.Render("(source: " + t.Source + ")"))
		b.WriteString("\n")
	}

	for _, rc := range t.Racecourses {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s  %s\n",
			lipgloss.NewStyle().Bold(true).Render(rc.Name),
			renderMetaStyle.Render(fmt.Sprintf("%s / %s / %dR", rc.Weather, rc.TrackCondition, rc.RaceCount)))
		for _, r := range rc.Races {
			fmt.Fprintf(&b, "  %2dR %s  %s  %s %s  %d頭  %s\n",
				r.RaceNumber, r.Time, runewidth.FillRight(r.RaceName, 24), r.Track, r.Distance, r.EntryCount,
				renderMetaStyle.Render(r.RaceID))
		}
	}
	return b.String()
}

// RenderPastRaces draws the list of finished races
func RenderPastRaces(list *PastRaceList) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", renderTitleStyle.Render("🏆 過去のレース"),
		renderMetaStyle.Render(fmt.Sprintf("%d races", list.Total)))
	for _, r := range list.Races {
		grade := r.Grade
		if grade != "" {
			grade = "[" + grade + "] "
		}
		fmt.Fprintf(&b, "%s  %s%s  %s %s %s  winner: %s\n",
			renderMetaStyle.Render(r.RaceID), grade, r.RaceName, r.Date, r.Racecourse, r.Distance, r.Winner)
	}
	return b.String()
}

// RenderPastRaceHorses draws the runners of a finished race
func RenderPastRaceHorses(race PastRace, horses []PastRaceHorse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", renderTitleStyle.Render(race.RaceName))
	fmt.Fprintf(&b, "%s\n\n", renderMetaStyle.Render(fmt.Sprintf("%s %s %s %s %s/%s",
		race.Date, race.Racecourse, race.Track, race.Distance, race.Weather, race.TrackCondition)))

	for _, h := range horses {
		band := BandFor(h.DLogicScore)
		fmt.Fprintf(&b, "%2d着 %2d番 %s %s  D-Logic %s (#%d)  %.1f倍 %d人気\n",
			h.Result, h.Number, runewidth.FillRight(h.Name, 18), runewidth.FillRight(h.Jockey, 10),
			lipgloss.NewStyle().Foreground(band.Color).Render(fmt.Sprintf("%.1f", h.DLogicScore)),
			h.DLogicRank, h.Odds, h.Popularity)
	}
	return b.String()
}

// RenderAnalysis draws the D-Logic versus result comparison
func RenderAnalysis(a RaceAnalysis) string {
	hit := "✗"
	if a.FirstPlaceHit {
		hit = "✓"
	}
	return fmt.Sprintf("1着的中: %s  (D-Logic: %s / 実際: %s)\n的中率: %.1f%%  上位3頭精度: %.1f%%  出走: %d頭\n",
		hit, a.DLogicWinner, a.ActualWinner, a.Accuracy, a.Top3Accuracy, a.TotalHorses)
}

// RenderStats draws the database statistics
func RenderStats(s *DatabaseStatsResponse) string {
	st := s.DatabaseStats
	var b strings.Builder
	b.WriteString(renderTitleStyle.Render("📊 D-Logic データベース"))
	if s.Source != "" && s.Source != SourceNetwork {
		b.WriteString(" ")
		b.WriteString(renderMetaStyle.Render("(source: " + s.Source + ")"))
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  Records: %s\n", humanize.Comma(st.TotalRecords))
	fmt.Fprintf(&b, "  Horses:  %s\n", humanize.Comma(st.TotalHorses))
	fmt.Fprintf(&b, "  Races:   %s\n", humanize.Comma(st.TotalRaces))
	if st.Period != "" {
		fmt.Fprintf(&b, "  Period:  %s (%d years)\n", st.Period, st.YearsSpan)
	}
	if st.G1Races > 0 {
		fmt.Fprintf(&b, "  G1:      %s\n", humanize.Comma(st.G1Races))
	}
	if s.DisplayText.Summary != "" {
		b.WriteString("\n")
		b.WriteString(renderMetaStyle.Render(s.DisplayText.Summary))
		b.WriteString("\n")
	}
	return b.String()
}

// WrapText wraps text to width display columns, breaking on spaces where
// possible and anywhere for text without spaces.
func WrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if runewidth.StringWidth(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		current := ""
		for _, word := range strings.Fields(line) {
			for runewidth.StringWidth(word) > width {
				if current != "" {
					wrapped = append(wrapped, current)
					current = ""
				}
				head := runewidth.Truncate(word, width, "")
				if head == "" {
					head = string([]rune(word)[:1])
				}
				wrapped = append(wrapped, head)
				word = word[len(head):]
			}
			switch {
			case current == "":
				current = word
			case runewidth.StringWidth(current)+1+runewidth.StringWidth(word) > width:
				wrapped = append(wrapped, current)
				current = word
			default:
				current += " " + word
			}
		}
		if current != "" {
			wrapped = append(wrapped, current)
		}
	}

	return strings.Join(wrapped, "\n")
}
