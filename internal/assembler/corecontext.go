package assembler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"cortexmcp/internal/aging"
	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
)

// coreContextCaps bounds how many items of each kind feed L5 (spec.md §4.8
// "per-kind caps").
var coreContextCaps = map[memtypes.Kind]int{
	memtypes.KindCorrection: 10,
	memtypes.KindDecision:   10,
	memtypes.KindConvention: 10,
	memtypes.KindBugFix:     5,
}

// sectionCoreContext pulls top corrections/decisions/conventions/bug-fixes
// by kind cap, then sorts the pooled set by effective importance (L5).
func (a *Assembler) sectionCoreContext(nowMs int64) string {
	log := logging.Get(logging.CategoryAssembler)
	var pool []memtypes.Item
	for kind, cap := range coreContextCaps {
		items, err := a.store.GetByKind(kind, cap)
		if err != nil {
			log.Warn("L5 get by kind %s: %v", kind, err)
			continue
		}
		pool = append(pool, items...)
	}
	if len(pool) == 0 {
		return ""
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return aging.EffectiveImportance(pool[i], nowMs) > aging.EffectiveImportance(pool[j], nowMs)
	})

	var b strings.Builder
	b.WriteString("## Core context")
	for _, item := range pool {
		b.WriteString(fmt.Sprintf("\n- [%s] %s", item.Kind, item.Intent))
	}
	return b.String()
}

// sectionAnticipation surfaces items touching currentFile, its sibling
// directory, or files sharing its extension (L6). Omitted if no current
// file is given.
func (a *Assembler) sectionAnticipation(currentFile string) string {
	if currentFile == "" {
		return ""
	}
	log := logging.Get(logging.CategoryAssembler)

	direct, err := a.store.GetByFile(currentFile, 10)
	if err != nil {
		log.Warn("L6 get by file: %v", err)
		return ""
	}

	dir := siblingDir(currentFile)
	var siblingItems []memtypes.Item
	if dir != "" {
		siblingItems, err = a.store.GetByFile(dir, 10)
		if err != nil {
			log.Warn("L6 get by sibling dir: %v", err)
		}
	}

	ext := fileExt(currentFile)
	var typeItems []memtypes.Item
	if ext != "" {
		typeItems, err = a.store.GetByFile(ext, 10)
		if err != nil {
			log.Warn("L6 get by file type: %v", err)
		}
	}

	combined := dedupeItems(direct, siblingItems, typeItems)
	if len(combined) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("## Anticipation (%s)", currentFile))
	for _, item := range combined {
		b.WriteString(fmt.Sprintf("\n- [%s] %s", item.Kind, item.Intent))
	}
	return b.String()
}

func siblingDir(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

func fileExt(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return ""
	}
	return path[idx:]
}

func dedupeItems(groups ...[]memtypes.Item) []memtypes.Item {
	seen := make(map[string]bool)
	var out []memtypes.Item
	for _, group := range groups {
		for _, item := range group {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			out = append(out, item)
		}
	}
	return out
}

// startOfDay returns midnight UTC for the day containing nowMs.
func startOfDay(nowMs int64) int64 {
	t := time.UnixMilli(nowMs).UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.UnixMilli()
}

// temporalBuckets are the four time windows of L7, in display order.
var temporalBuckets = []struct {
	label string
	since func(nowMs int64) int64
}{
	{"last hour", func(nowMs int64) int64 { return nowMs - int64(time.Hour/time.Millisecond) }},
	{"today", func(nowMs int64) int64 { return startOfDay(nowMs) }},
	{"yesterday", func(nowMs int64) int64 { return startOfDay(nowMs) - int64(24*time.Hour/time.Millisecond) }},
	{"this week", func(nowMs int64) int64 { return nowMs - 7*int64(24*time.Hour/time.Millisecond) }},
}

// sectionTemporal buckets active items into last-hour/today/yesterday/
// this-week windows, top 5 per bucket by effective importance (L7).
func (a *Assembler) sectionTemporal(nowMs int64) string {
	active, err := a.store.GetActive(500)
	if err != nil {
		logging.Get(logging.CategoryAssembler).Warn("L7 get active: %v", err)
		return ""
	}
	if len(active) == 0 {
		return ""
	}

	var b strings.Builder
	wrote := false
	for _, bucket := range temporalBuckets {
		since := bucket.since(nowMs)
		var matched []memtypes.Item
		for _, item := range active {
			if item.Timestamp >= since {
				matched = append(matched, item)
			}
		}
		if len(matched) == 0 {
			continue
		}
		sort.SliceStable(matched, func(i, j int) bool {
			return aging.EffectiveImportance(matched[i], nowMs) > aging.EffectiveImportance(matched[j], nowMs)
		})
		if len(matched) > 5 {
			matched = matched[:5]
		}
		if !wrote {
			b.WriteString("## Temporal")
			wrote = true
		}
		b.WriteString(fmt.Sprintf("\n%s:", bucket.label))
		for _, item := range matched {
			b.WriteString(fmt.Sprintf("\n- [%s] %s", item.Kind, item.Intent))
		}
	}
	return b.String()
}
