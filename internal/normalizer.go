package internal

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// NormalizePrediction fills the fields the backend may omit. Horses keep
// the order the backend sent them in.
func NormalizePrediction(p *PredictionResult, requested []string) *PredictionResult {
	if p == nil {
		return nil
	}

	out := *p
	out.Horses = make([]Horse, len(p.Horses))
	for i, h := range p.Horses {
		if h.Rank <= 0 {
			h.Rank = i + 1
		}
		if h.FinalScore == 0 {
			h.FinalScore = h.BaseScore
		}
		if h.Name == "" {
			h.Name = fmt.Sprintf("#%d", i+1)
		}
		if h.Confidence != "" && !h.Confidence.Valid() {
			h.Confidence = ""
		}
		out.Horses[i] = h
	}

	if !out.Confidence.Valid() {
		out.Confidence = ConfidenceLow
	}
	if len(out.SelectedConditions) == 0 {
		out.SelectedConditions = append([]string(nil), requested...)
	}
	if out.CalculationTime == "" {
		out.CalculationTime = time.Now().Format(time.RFC3339)
	}
	return &out
}

// NormalizeChatReply defaults the status and guarantees a message
func NormalizeChatReply(r *ChatReply) *ChatReply {
	if r == nil {
		return nil
	}
	out := *r
	if out.Status == "" {
		out.Status = "success"
	}
	if out.DLogicResult != nil && len(out.DLogicResult.Horses) > 0 {
		out.HasDLogic = true
	}
	return &out
}

// NormalizeTodayRaces fills race counts from the race lists
func NormalizeTodayRaces(t *TodayRaces) *TodayRaces {
	if t == nil {
		return nil
	}
	out := *t
	out.Racecourses = make([]Racecourse, len(t.Racecourses))
	for i, rc := range t.Racecourses {
		if rc.RaceCount == 0 {
			rc.RaceCount = len(rc.Races)
		}
		out.Racecourses[i] = rc
	}
	if out.Source == "" {
		out.Source = SourceNetwork
	}
	return &out
}

// NormalizeDatabaseStats defaults the status and builds missing labels
func NormalizeDatabaseStats(s *DatabaseStatsResponse) *DatabaseStatsResponse {
	if s == nil {
		return nil
	}
	out := *s
	if out.Status == "" {
		out.Status = "success"
	}

	st := out.DatabaseStats
	if out.DisplayText.Records == "" {
		out.DisplayText.Records = humanize.Comma(st.TotalRecords)
	}
	if out.DisplayText.Horses == "" {
		out.DisplayText.Horses = humanize.Comma(st.TotalHorses)
	}
	if out.DisplayText.Races == "" {
		out.DisplayText.Races = humanize.Comma(st.TotalRaces)
	}
	if out.DisplayText.Years == "" && st.YearsSpan > 0 {
		out.DisplayText.Years = fmt.Sprintf("%d年", st.YearsSpan)
	}
	if out.DisplayText.Summary == "" {
		out.DisplayText.Summary = fmt.Sprintf("%sレコード、%s頭、%sレースの巨大データベース",
			out.DisplayText.Records, out.DisplayText.Horses, out.DisplayText.Races)
	}
	if out.Source == "" {
		out.Source = SourceNetwork
	}
	return &out
}
