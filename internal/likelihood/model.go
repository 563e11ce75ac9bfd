package likelihood

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"seedtools/internal/modelseed"
	"seedtools/internal/workspace"
)

// genomeObject is the portion of the genome object stored with a model that
// the calculation needs. Feature fields differ between annotation sources.
type genomeObject struct {
	Features []struct {
		ID                 string `json:"id"`
		ProteinTranslation string `json:"protein_translation"`
		PatricID           string `json:"patric_id"`
		AASequence         string `json:"aa_sequence"`
	} `json:"features"`
}

func (g *genomeObject) features() []Feature {
	features := make([]Feature, 0, len(g.Features))
	for _, f := range g.Features {
		switch {
		case f.ProteinTranslation != "":
			features = append(features, Feature{ID: f.ID, Sequence: f.ProteinTranslation})
		case f.AASequence != "":
			features = append(features, Feature{ID: f.PatricID, Sequence: f.AASequence})
		default:
			// Features without a protein sequence still count toward the
			// feature total.
			id := f.ID
			if id == "" {
				id = f.PatricID
			}
			features = append(features, Feature{ID: id})
		}
	}
	return features
}

// CalculateForModel computes reaction likelihoods for a model built by the
// reconstruction service and stores them as a rxnprobs object in the model's
// folder, where the service picks them up during gap fill. The genome stored
// with the model provides the query proteins and the template the model was
// built with provides the complex and reaction links.
func CalculateForModel(ctx context.Context, client *modelseed.Client, modelID string, config Config) error {
	stats, err := client.Stats(ctx, modelID)
	if err != nil {
		return err
	}

	var genome genomeObject
	if err := client.Workspace.GetJSON(ctx, stats.Ref+"/genome", &genome); err != nil {
		return err
	}
	var template modelseed.TemplateObject
	if err := client.Workspace.GetJSON(ctx, stats.TemplateRef, &template); err != nil {
		return err
	}

	result, err := Calculate(modelID, genome.features(),
		template.ComplexesToRoles(), template.ReactionsToComplexes(), config)
	if err != nil {
		return err
	}

	if _, err := StoreReactionProbabilities(ctx, client.Workspace, stats.Ref, result); err != nil {
		return err
	}
	config.logger().Info("stored reaction likelihoods with model", "model", modelID)
	return nil
}

// StoreReactionProbabilities writes the reaction likelihoods to a rxnprobs
// object in the model folder and returns its metadata. Each entry in the
// stored list is a tuple of reaction ID, likelihood, type, complex details,
// and GPR string, sorted by reaction ID.
func StoreReactionProbabilities(ctx context.Context, ws *workspace.Client, modelRef string,
	result *Result) (*workspace.ObjectMeta, error) {

	reactionIDs := make([]string, 0, len(result.Reactions))
	for reactionID := range result.Reactions {
		reactionIDs = append(reactionIDs, reactionID)
	}
	sort.Strings(reactionIDs)

	reactions := make([][]interface{}, 0, len(reactionIDs))
	for _, reactionID := range reactionIDs {
		value := result.Reactions[reactionID]
		reactions = append(reactions, []interface{}{
			reactionID, value.Likelihood, value.Type, value.ComplexString, value.GPR,
		})
	}
	data := map[string]interface{}{"reaction_probabilities": reactions}
	return ws.Put(ctx, strings.TrimRight(modelRef, "/")+"/rxnprobs", "rxnprobs", data)
}

// ReactionProbabilities reads a stored rxnprobs object and returns a map of
// reaction ID to likelihood, for use as gap fill input or conversion notes.
func ReactionProbabilities(ctx context.Context, ws *workspace.Client, modelRef string) (map[string]float64, error) {
	var stored struct {
		ReactionProbabilities [][]interface{} `json:"reaction_probabilities"`
	}
	ref := strings.TrimRight(modelRef, "/") + "/rxnprobs"
	if err := ws.GetJSON(ctx, ref, &stored); err != nil {
		return nil, err
	}
	likelihoods := make(map[string]float64, len(stored.ReactionProbabilities))
	for _, entry := range stored.ReactionProbabilities {
		if len(entry) < 2 {
			return nil, fmt.Errorf("entry in %s has %d fields, expected at least 2", ref, len(entry))
		}
		id, ok := entry[0].(string)
		if !ok {
			return nil, fmt.Errorf("reaction ID in %s is not a string: %v", ref, entry[0])
		}
		value, ok := entry[1].(float64)
		if !ok {
			return nil, fmt.Errorf("likelihood for reaction %s is not a number: %v", id, entry[1])
		}
		likelihoods[id] = value
	}
	return likelihoods, nil
}
