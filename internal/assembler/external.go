package assembler

import (
	"context"

	"cortexmcp/internal/logging"
)

// ProjectIndex is the external-scanner seam named in spec.md §1 and §4.8's
// L11/L12: "specified only by the interface they feed into the store."
// This repo never implements a project scanner; a caller wanting L11/L12
// populated wires its own ExportMap/ArchitectureGraph source.
type ProjectIndex interface {
	// ExportMap returns a digest of exported symbols per directory, or an
	// empty string if nothing to report.
	ExportMap(ctx context.Context) (string, error)
	// ArchitectureGraph returns layer/entry/leaf/circular-dependency/
	// API-endpoint analysis text, or an empty string if nothing to report.
	ArchitectureGraph(ctx context.Context) (string, error)
}

// sectionExportMap is silently omitted when no ProjectIndex is wired
// (L11).
func (a *Assembler) sectionExportMap(ctx context.Context) string {
	if a.projectIndex == nil {
		return ""
	}
	text, err := a.projectIndex.ExportMap(ctx)
	if err != nil {
		logging.Get(logging.CategoryAssembler).Warn("L11 export map: %v", err)
		return ""
	}
	return text
}

// sectionArchitectureGraph is silently omitted when no ProjectIndex is
// wired (L12).
func (a *Assembler) sectionArchitectureGraph(ctx context.Context) string {
	if a.projectIndex == nil {
		return ""
	}
	text, err := a.projectIndex.ArchitectureGraph(ctx)
	if err != nil {
		logging.Get(logging.CategoryAssembler).Warn("L12 architecture graph: %v", err)
		return ""
	}
	return text
}
