package modelseed

import (
	"strings"
	"testing"

	"seedtools/internal/workspace"
)

func TestStatsFromMeta(t *testing.T) {
	meta := &workspace.ObjectMeta{
		Name:    ".iMS101",
		Type:    "modelfolder",
		Path:    "/alice@patricbrc.org/home/models/",
		Created: "2017-04-10T12:00:00",
		UserMeta: map[string]interface{}{
			"name":          "Test organism",
			"source":        "ModelSEED",
			"type":          "ModelSEED",
			"num_reactions": "100",
			"num_compounds": float64(95),
			"num_genes":     "90",
			"fba_count":     float64(2),
		},
	}
	stats, err := StatsFromMeta(meta)
	if err != nil {
		t.Fatal(err)
	}
	if stats.ID != "iMS101" {
		t.Errorf("ID = %q", stats.ID)
	}
	if stats.Name != "Test organism" || stats.Rundate != "2017-04-10T12:00:00" {
		t.Errorf("stats = %+v", stats)
	}
	// Counts arrive as strings or numbers depending on the service.
	if stats.NumReactions != 100 || stats.NumCompounds != 95 {
		t.Errorf("counts = %d, %d", stats.NumReactions, stats.NumCompounds)
	}
	if stats.NumGenes != 90 || stats.FBACount != 2 {
		t.Errorf("counts = %d, %d", stats.NumGenes, stats.FBACount)
	}
	if stats.NumBiomasses != 0 {
		t.Errorf("missing count = %d", stats.NumBiomasses)
	}

	summary := stats.Summary()
	if !strings.Contains(summary, "iMS101") || !strings.Contains(summary, "100 reactions") {
		t.Errorf("summary = %q", summary)
	}
}

func TestStatsFromMetaErrors(t *testing.T) {
	if _, err := StatsFromMeta(nil); err == nil {
		t.Error("nil metadata was accepted")
	}
	meta := &workspace.ObjectMeta{Name: "empty", UserMeta: map[string]interface{}{}}
	if _, err := StatsFromMeta(meta); err == nil {
		t.Error("metadata without model fields was accepted")
	}
}
