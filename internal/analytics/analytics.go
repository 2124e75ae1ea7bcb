package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"recall-study/internal/logsink"
)

// DailyStats summarizes one day of study activity.
type DailyStats struct {
	Date               string                      `json:"date"`
	TotalTurns         int                         `json:"total_turns"`
	UniqueParticipants int                         `json:"unique_participants"`
	TurnsByKind        map[string]int              `json:"turns_by_kind"`
	ParticipantStats   map[string]ParticipantStats `json:"participant_stats"`
}

// ParticipantStats aggregates one participant's day.
type ParticipantStats struct {
	ParticipantID string `json:"participant_id"`
	Turns         int    `json:"turns"`
	PromptChars   int    `json:"prompt_chars"`
	ResponseChars int    `json:"response_chars"`
	TotalDuration int64  `json:"total_duration_ms"`
}

// AnalyzeDailyLogs aggregates the interaction records that fall on the
// target date.
func AnalyzeDailyLogs(entries []logsink.Entry, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:             startOfDay.Format("2006-01-02"),
		TurnsByKind:      make(map[string]int),
		ParticipantStats: make(map[string]ParticipantStats),
	}

	for _, e := range entries {
		if e.Timestamp.Before(startOfDay) || !e.Timestamp.Before(endOfDay) {
			continue
		}

		stats.TotalTurns++
		stats.TurnsByKind[e.AttachmentKind.String()]++

		ps, exists := stats.ParticipantStats[e.ParticipantID]
		if !exists {
			ps = ParticipantStats{ParticipantID: e.ParticipantID}
		}
		ps.Turns++
		ps.PromptChars += e.PromptLength
		ps.ResponseChars += e.ResponseLength
		ps.TotalDuration += e.DurationMS
		stats.ParticipantStats[e.ParticipantID] = ps
	}

	stats.UniqueParticipants = len(stats.ParticipantStats)
	return stats
}

// GenerateReportSummary renders a text summary for the operator channel.
func (ds *DailyStats) GenerateReportSummary() string {
	summary := fmt.Sprintf(`Study activity for %s:

Overall:
- Total turns: %d
- Unique participants: %d

`, ds.Date, ds.TotalTurns, ds.UniqueParticipants)

	if len(ds.TurnsByKind) > 0 {
		summary += "Turns by attachment kind:\n"
		kinds := make([]string, 0, len(ds.TurnsByKind))
		for kind := range ds.TurnsByKind {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			summary += fmt.Sprintf("- %s: %d\n", kind, ds.TurnsByKind[kind])
		}
		summary += "\n"
	}

	summary += fmt.Sprintf("Participant activity (%d participants):\n", len(ds.ParticipantStats))
	ids := make([]string, 0, len(ds.ParticipantStats))
	for id := range ds.ParticipantStats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ps := ds.ParticipantStats[id]
		summary += fmt.Sprintf("- %s: %d turns, %d prompt chars, %d response chars", id, ps.Turns, ps.PromptChars, ps.ResponseChars)
		if ps.Turns > 0 {
			summary += fmt.Sprintf(", avg %dms per call", ps.TotalDuration/int64(ps.Turns))
		}
		summary += "\n"
	}

	return summary
}

// ToJSON serializes the stats for detailed inspection.
func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
