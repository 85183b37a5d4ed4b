package assembler

import (
	"fmt"
	"strings"
	"time"

	"cortexmcp/internal/aging"
	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/ranker"
)

// dayKey formats nowMs as the daily_summaries primary key (spec.md §4.8 L0).
func dayKey(nowMs int64) string {
	return time.UnixMilli(nowMs).Format("2006-01-02")
}

// sectionSessionBoundary closes the previous day's summary implicitly (it
// is simply not touched again) and opens today's, keyed on topic (L0).
func (a *Assembler) sectionSessionBoundary(topic string, nowMs int64) string {
	day := dayKey(nowMs)
	summary := topic
	if summary == "" {
		summary = "(no topic given)"
	}
	if err := a.store.EnsureIdentity(a.workspaceRoot); err != nil {
		logging.Get(logging.CategoryAssembler).Warn("L0 ensure identity: %v", err)
	}
	if err := a.store.UpsertDailySummary(day, topic, summary); err != nil {
		logging.Get(logging.CategoryAssembler).Warn("L0 upsert daily summary: %v", err)
		return ""
	}
	return fmt.Sprintf("## Session %s\ntopic: %s", day, summary)
}

// sectionMaintenance runs the Aging Engine's cleanup, consolidation, and
// learning-rate passes (spec.md §4.7.1, §4.7.3, §4.7.4 via L1). All errors
// are swallowed; maintenance never blocks assembly.
func (a *Assembler) sectionMaintenance(nowMs int64) string {
	log := logging.Get(logging.CategoryAssembler)
	var lines []string

	if cleanupStats, err := a.agingEngine.Cleanup(a.store, nowMs); err != nil {
		log.Warn("L1 cleanup: %v", err)
	} else if cleanupStats.DeactivatedStale+cleanupStats.DeactivatedOverCap+cleanupStats.MergedDuplicates > 0 {
		lines = append(lines, fmt.Sprintf("maintenance: deactivated %d stale, %d over cap, merged %d duplicates",
			cleanupStats.DeactivatedStale, cleanupStats.DeactivatedOverCap, cleanupStats.MergedDuplicates))
	}

	if consStats, err := aging.Consolidate(a.store, newItemID, nowMs); err != nil {
		log.Warn("L1 consolidate: %v", err)
	} else if consStats.GroupsSynthesized > 0 {
		lines = append(lines, fmt.Sprintf("maintenance: synthesized %d consolidated pattern(s)", consStats.GroupsSynthesized))
	}

	if boosted, err := aging.LearningRateBoost(a.store); err != nil {
		log.Warn("L1 learning rate boost: %v", err)
	} else if boosted > 0 {
		lines = append(lines, fmt.Sprintf("maintenance: raised importance for %d recurring correction(s)", boosted))
	}

	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}

// sectionAttentionLabel reports the classified attention mode for topic
// (spec.md §4.6.1, surfaced in L2).
func (a *Assembler) sectionAttentionLabel(topic string) string {
	if topic == "" {
		return ""
	}
	mode := ranker.ClassifyAttention(topic)
	return fmt.Sprintf("mode: %s", mode)
}

// sectionRecentSessions lists up to 3 prior day headers (L3).
func (a *Assembler) sectionRecentSessions(nowMs int64) string {
	summaries, err := a.store.RecentDailySummaries(dayKey(nowMs), 3)
	if err != nil {
		logging.Get(logging.CategoryAssembler).Warn("L3 recent sessions: %v", err)
		return ""
	}
	if len(summaries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Recent sessions")
	for _, s := range summaries {
		topic := s.Topic
		if topic == "" {
			topic = "(no topic)"
		}
		b.WriteString(fmt.Sprintf("\n- %s: %s", s.Day, topic))
	}
	return b.String()
}

// sectionHotCorrections surfaces active corrections already boosted to the
// learning-rate floor (importance >= 0.85), i.e. recurring mistakes
// (spec.md §4.7.4 via L4).
func (a *Assembler) sectionHotCorrections() string {
	corrections, err := a.store.GetByKind(memtypes.KindCorrection, 50)
	if err != nil {
		logging.Get(logging.CategoryAssembler).Warn("L4 hot corrections: %v", err)
		return ""
	}
	var hot []memtypes.Item
	for _, c := range corrections {
		if c.Importance >= 0.85 {
			hot = append(hot, c)
		}
	}
	if len(hot) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Hot corrections")
	for _, c := range hot {
		b.WriteString(fmt.Sprintf("\n- %s", c.Intent))
	}
	return b.String()
}
