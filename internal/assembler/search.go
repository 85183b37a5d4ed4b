package assembler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
	"cortexmcp/internal/retriever"
)

// graphEnrichmentFactor discounts 1-hop graph neighbours relative to the
// direct search hits that seeded them (spec.md §4.8 L9).
const graphEnrichmentFactor = 0.7

// topicSearchLimit caps the direct hits fed into graph enrichment.
const topicSearchLimit = 10

// sectionTopicSearch runs the Hybrid Retriever against the topic, then
// enriches with 1-hop graph neighbours of the top results at a discounted
// score (L9). Omitted if topic is empty.
func (a *Assembler) sectionTopicSearch(ctx context.Context, req Request) string {
	if req.Topic == "" {
		return ""
	}
	log := logging.Get(logging.CategoryAssembler)

	hits, err := a.retriever.Search(ctx, retriever.Query{
		Text:        req.Topic,
		CurrentFile: req.CurrentFile,
		MaxResults:  topicSearchLimit,
	})
	if err != nil {
		log.Warn("L9 topic search: %v", err)
		return ""
	}
	if len(hits) == 0 {
		return ""
	}

	seen := make(map[string]bool)
	type scoredLine struct {
		item  memtypes.Item
		score float64
	}
	var lines []scoredLine
	for _, hit := range hits {
		seen[hit.Item.ID] = true
		lines = append(lines, scoredLine{hit.Item, hit.Score})
	}

	for _, hit := range hits {
		related, err := a.store.GetRelated(hit.Item.ID, 1, 5)
		if err != nil {
			log.Warn("L9 graph enrichment for %s: %v", hit.Item.ID, err)
			continue
		}
		for _, r := range related {
			if seen[r.Item.ID] {
				continue
			}
			seen[r.Item.ID] = true
			lines = append(lines, scoredLine{r.Item, hit.Score * graphEnrichmentFactor})
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("## Topic search: %s", req.Topic))
	for _, l := range lines {
		b.WriteString(fmt.Sprintf("\n- [%s] %s", l.item.Kind, l.item.Intent))
	}
	return b.String()
}

// sourceExtensions are the file extensions knowledge-gap scanning
// considers "source" (spec.md §4.8 L10, unspecified set — matches the
// languages the example corpus itself is written in).
var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".rs": true, ".java": true,
}

const knowledgeGapScanDepth = 2

// sectionKnowledgeGaps lists source directories with no active-item
// reference among their files (L10).
func (a *Assembler) sectionKnowledgeGaps() string {
	if a.workspaceRoot == "" {
		return ""
	}
	log := logging.Get(logging.CategoryAssembler)

	active, err := a.store.GetActive(500)
	if err != nil {
		log.Warn("L10 get active: %v", err)
		return ""
	}
	referenced := make(map[string]bool)
	for _, item := range active {
		for _, f := range item.RelatedFiles {
			referenced[filepath.Dir(f)] = true
		}
	}

	dirs := listSourceDirs(a.workspaceRoot, knowledgeGapScanDepth)
	var gaps []string
	for _, dir := range dirs {
		rel, err := filepath.Rel(a.workspaceRoot, dir)
		if err != nil {
			continue
		}
		if !referenced[rel] {
			gaps = append(gaps, rel)
		}
	}
	if len(gaps) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Knowledge gaps")
	for _, g := range gaps {
		b.WriteString(fmt.Sprintf("\n- %s (no memory references)", g))
	}
	return b.String()
}

// listSourceDirs walks root up to maxDepth and returns directories
// containing at least one file with a recognized source extension.
func listSourceDirs(root string, maxDepth int) []string {
	var dirs []string
	var walk func(dir string, depth int)
	walk = func(dir string, depth int) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		hasSource := false
		var subdirs []string
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			if e.IsDir() {
				subdirs = append(subdirs, filepath.Join(dir, name))
				continue
			}
			if sourceExtensions[filepath.Ext(name)] {
				hasSource = true
			}
		}
		if hasSource {
			dirs = append(dirs, dir)
		}
		if depth >= maxDepth {
			return
		}
		for _, sd := range subdirs {
			walk(sd, depth+1)
		}
	}
	walk(root, 0)
	return dirs
}
