package modelseed

import (
	"fmt"
	"strconv"
	"strings"

	"seedtools/internal/workspace"
)

// ModelStats summarizes a model object, built from the metadata the services
// attach to the object.
type ModelStats struct {
	ID          string
	Name        string
	Ref         string
	GenomeRef   string
	TemplateRef string
	Source      string
	SourceID    string
	Type        string
	Rundate     string

	NumReactions            int
	NumCompounds            int
	NumCompartments         int
	NumBiomasses            int
	NumBiomassCompounds     int
	NumGenes                int
	GeneAssociatedReactions int
	GapfilledReactions      int
	IntegratedGapfills      int
	UnintegratedGapfills    int
	FBACount                int
}

func metaString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func metaInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

func metaFloat(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

// StatsFromMeta builds model statistics from workspace object metadata. The
// leading period on hidden model folder names is stripped from the ID.
func StatsFromMeta(meta *workspace.ObjectMeta) (*ModelStats, error) {
	if meta == nil {
		return nil, fmt.Errorf("model metadata is not available")
	}
	if len(meta.UserMeta) == 0 {
		return nil, fmt.Errorf("object %q has no model metadata", meta.Ref())
	}
	m := meta.UserMeta
	return &ModelStats{
		ID:                      strings.TrimPrefix(meta.Name, "."),
		Name:                    metaString(m, "name"),
		Ref:                     metaString(m, "ref"),
		GenomeRef:               metaString(m, "genome_ref"),
		TemplateRef:             metaString(m, "template_ref"),
		Source:                  metaString(m, "source"),
		SourceID:                metaString(m, "source_id"),
		Type:                    metaString(m, "type"),
		Rundate:                 meta.Created,
		NumReactions:            metaInt(m, "num_reactions"),
		NumCompounds:            metaInt(m, "num_compounds"),
		NumCompartments:         metaInt(m, "num_compartments"),
		NumBiomasses:            metaInt(m, "num_biomasses"),
		NumBiomassCompounds:     metaInt(m, "num_biomass_compounds"),
		NumGenes:                metaInt(m, "num_genes"),
		GeneAssociatedReactions: metaInt(m, "gene_associated_reactions"),
		GapfilledReactions:      metaInt(m, "gapfilled_reactions"),
		IntegratedGapfills:      metaInt(m, "integrated_gapfills"),
		UnintegratedGapfills:    metaInt(m, "unintegrated_gapfills"),
		FBACount:                metaInt(m, "fba_count"),
	}, nil
}

// Summary returns a one-line description of the model.
func (s *ModelStats) Summary() string {
	return fmt.Sprintf("model %s for organism %s with %d reactions and %d metabolites",
		s.ID, s.Name, s.NumReactions, s.NumCompounds)
}
