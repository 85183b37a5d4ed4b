package assembler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"cortexmcp/internal/logging"
	"cortexmcp/internal/memtypes"
)

// runGit runs `git <args...>` in the workspace root with a bounded timeout
// (spec.md §5's 5s subprocess budget). Failure is reported to the caller,
// which treats it as silent per §4.8's "failure is silent".
func (a *Assembler) runGit(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = a.workspaceRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w (%s)", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// sectionWorkspaceState reports the current branch, last commits, and a
// short diff stat (L8). Any failure collapses the whole section to empty.
func (a *Assembler) sectionWorkspaceState(ctx context.Context) string {
	log := logging.Get(logging.CategoryAssembler)

	branch, err := a.runGit(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		log.Warn("L8 branch: %v", err)
		return ""
	}
	branch = strings.TrimSpace(branch)

	commitLog, err := a.runGit(ctx, "log", "--oneline", "-5", "--no-merges")
	if err != nil {
		log.Warn("L8 log: %v", err)
		commitLog = ""
	}

	diffstat, err := a.runGit(ctx, "diff", "--stat")
	if err != nil {
		log.Warn("L8 diffstat: %v", err)
		diffstat = ""
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("## Workspace state\nbranch: %s", branch))
	if commitLog != "" {
		b.WriteString(fmt.Sprintf("\nrecent commits:\n%s", strings.TrimSpace(commitLog)))
	}
	if diffstat != "" {
		b.WriteString(fmt.Sprintf("\nuncommitted changes:\n%s", strings.TrimSpace(diffstat)))
	}
	return b.String()
}

// classifyCommitSubject picks an item kind from the first keyword found
// anywhere in a commit subject, checked in the order fix; feat/add/
// implement; refactor/clean/lint; doc. A subject with none of them is a
// DECISION (spec.md §4.8.1).
func classifyCommitSubject(subject string) memtypes.Kind {
	lower := strings.ToLower(subject)
	switch {
	case strings.Contains(lower, "fix"):
		return memtypes.KindBugFix
	case strings.Contains(lower, "feat"), strings.Contains(lower, "add"), strings.Contains(lower, "implement"):
		return memtypes.KindDecision
	case strings.Contains(lower, "refactor"), strings.Contains(lower, "clean"), strings.Contains(lower, "lint"):
		return memtypes.KindConvention
	case strings.Contains(lower, "doc"):
		return memtypes.KindInsight
	default:
		return memtypes.KindDecision
	}
}

var commitTopicKeywords = []string{"auth", "database", "api", "ui", "testing", "devops", "security", "performance"}

// extractCommitTopicTags finds which of commitTopicKeywords appear in text.
func extractCommitTopicTags(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, kw := range commitTopicKeywords {
		if strings.Contains(lower, kw) {
			tags = append(tags, kw)
		}
	}
	return tags
}

// sectionGitMemory ingests new commits as items (§4.8.1) and reports
// uncommitted file deltas (L8.5).
func (a *Assembler) sectionGitMemory(ctx context.Context, nowMs int64) string {
	log := logging.Get(logging.CategoryAssembler)

	raw, err := a.runGit(ctx, "log", "--oneline", "--name-only", "-10", "--no-merges")
	if err != nil {
		log.Warn("L8.5 log: %v", err)
		return ""
	}

	ingested := a.ingestCommits(ctx, raw, nowMs)

	statusRaw, err := a.runGit(ctx, "status", "--porcelain")
	if err != nil {
		statusRaw = ""
	}
	var uncommitted []string
	for _, line := range strings.Split(strings.TrimSpace(statusRaw), "\n") {
		if line != "" {
			uncommitted = append(uncommitted, strings.TrimSpace(line))
		}
	}

	if ingested == 0 && len(uncommitted) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Git memory")
	if ingested > 0 {
		b.WriteString(fmt.Sprintf("\ncaptured %d new commit(s) as items", ingested))
	}
	if len(uncommitted) > 0 {
		b.WriteString("\nuncommitted files:")
		for _, line := range uncommitted {
			b.WriteString(fmt.Sprintf("\n- %s", line))
		}
	}
	return b.String()
}

// commitBlock is one `--oneline --name-only` entry: a hash+subject line
// followed by zero or more changed-file lines.
type commitBlock struct {
	hash    string
	subject string
	files   []string
}

func parseCommitBlocks(raw string) []commitBlock {
	var blocks []commitBlock
	var current *commitBlock

	for _, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}
		if idx := strings.Index(line, " "); idx > 0 && isHexHash(line[:idx]) {
			if current != nil {
				blocks = append(blocks, *current)
			}
			current = &commitBlock{hash: line[:idx], subject: line[idx+1:]}
			continue
		}
		if current != nil {
			current.files = append(current.files, line)
		}
	}
	if current != nil {
		blocks = append(blocks, *current)
	}
	return blocks
}

func isHexHash(s string) bool {
	if len(s) < 7 {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}

// ingestCommits implements §4.8.1: parse the oneline/name-only log,
// skip commits already stored (by short-hash tag), classify, tag, and
// store each new one. Returns the count of newly-stored commits.
func (a *Assembler) ingestCommits(ctx context.Context, raw string, nowMs int64) int {
	log := logging.Get(logging.CategoryAssembler)
	blocks := parseCommitBlocks(raw)
	if len(blocks) == 0 {
		return 0
	}

	active, err := a.store.GetActive(500)
	if err != nil {
		log.Warn("L8.5 load active for dedup: %v", err)
		return 0
	}
	knownHashes := make(map[string]bool)
	for _, item := range active {
		for _, tag := range item.Tags {
			knownHashes[tag] = true
		}
	}

	count := 0
	for _, block := range blocks {
		if knownHashes[block.hash] {
			continue
		}
		kind := classifyCommitSubject(block.subject)
		importance := 0.6
		if kind == memtypes.KindBugFix {
			importance = 0.85
		}
		tags := append([]string{block.hash}, extractCommitTopicTags(block.subject)...)

		_, err := a.store.Add(ctx, memtypes.Item{
			Kind:         kind,
			Intent:       block.subject,
			RelatedFiles: block.files,
			Tags:         tags,
			Timestamp:    nowMs,
			Confidence:   0.8,
			Importance:   importance,
		})
		if err != nil {
			log.Warn("L8.5 store commit %s: %v", block.hash, err)
			continue
		}
		count++
	}
	return count
}
