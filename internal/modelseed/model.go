// Package modelseed is a client for the ProbModelSEED reconstruction service
// and the PATRIC app service, plus converters from the service's model
// objects to the in-memory model representation.
package modelseed

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ID formats for converted models. The modelseed format uses a _c style
// compartment suffix and the bigg format uses a [c] style suffix.
const (
	IDTypeModelSEED = "modelseed"
	IDTypeBigg      = "bigg"
)

// suffixRe matches the compartment suffix on a ModelSEED ID, a compartment
// letter followed by a community index number, for example _c0.
var suffixRe = regexp.MustCompile(`_([a-z])\d*$`)

// ConvertSuffix converts an ID with a ModelSEED compartment suffix to the
// given ID format. rxn00001_c0 becomes rxn00001_c in modelseed format and
// rxn00001[c] in bigg format. IDs without a suffix are returned unchanged.
func ConvertSuffix(id, idType string) string {
	match := suffixRe.FindStringSubmatch(id)
	if match == nil {
		return id
	}
	base := id[:len(id)-len(match[0])]
	switch idType {
	case IDTypeModelSEED:
		return base + "_" + match[1]
	case IDTypeBigg:
		return base + "[" + match[1] + "]"
	}
	return id
}

// RemoveSuffix removes a ModelSEED compartment suffix from a string.
func RemoveSuffix(s string) string {
	return suffixRe.ReplaceAllString(s, "")
}

// convertCompartmentID reduces a model compartment ID like c0 to the single
// letter used in converted models.
func convertCompartmentID(id, idType string) string {
	if idType == IDTypeModelSEED || idType == IDTypeBigg {
		return id[:1]
	}
	return id
}

// lastRefElement returns the final element of a workspace style reference
// such as ~/modelcompounds/id/cpd00001_c0.
func lastRefElement(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// ModelCompartment is one compartment in a model object.
type ModelCompartment struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	PH        float64 `json:"pH"`
	Potential float64 `json:"potential"`
}

// ModelCompound is one compound in a model object.
type ModelCompound struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Formula        string  `json:"formula"`
	Charge         float64 `json:"charge"`
	CompartmentRef string  `json:"modelcompartment_ref"`
}

// ModelReagent links a reaction to a compound with a stoichiometric
// coefficient.
type ModelReagent struct {
	CompoundRef string  `json:"modelcompound_ref"`
	Coefficient float64 `json:"coefficient"`
}

// ModelSubunit is one subunit of a protein complex. A subunit with no
// feature references is not linked to the organism's genome.
type ModelSubunit struct {
	Role        string   `json:"role"`
	Triggering  int      `json:"triggering"`
	Optional    int      `json:"optionalSubunit"`
	FeatureRefs []string `json:"feature_refs"`
}

// ModelProtein is a protein complex that catalyzes a reaction.
type ModelProtein struct {
	ComplexRef string         `json:"complex_ref"`
	Note       string         `json:"note"`
	Subunits   []ModelSubunit `json:"modelReactionProteinSubunits"`
}

// ModelReaction is one reaction in a model object. GapfillData maps a gap
// fill solution ID to how the solution changed the reaction, for example
// "added:>".
type ModelReaction struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Direction   string            `json:"direction"`
	Protons     float64           `json:"protons"`
	Reagents    []ModelReagent    `json:"modelReactionReagents"`
	Proteins    []ModelProtein    `json:"modelReactionProteins"`
	GapfillData map[string]string `json:"gapfill_data"`
}

// ModelBiomassCompound is one compound in a biomass reaction.
type ModelBiomassCompound struct {
	CompoundRef string  `json:"modelcompound_ref"`
	Coefficient float64 `json:"coefficient"`
}

// ModelBiomass is a biomass reaction in a model object.
type ModelBiomass struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Compounds []ModelBiomassCompound `json:"biomasscompounds"`
}

// ModelData is the model object stored by the reconstruction services.
type ModelData struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Source       string             `json:"source"`
	SourceID     string             `json:"source_id"`
	Type         string             `json:"type"`
	GenomeRef    string             `json:"genome_ref"`
	TemplateRef  string             `json:"template_ref"`
	Compartments []ModelCompartment `json:"modelcompartments"`
	Compounds    []ModelCompound    `json:"modelcompounds"`
	Reactions    []ModelReaction    `json:"modelreactions"`
	Biomasses    []ModelBiomass     `json:"biomasses"`
}

// DecodeModelData decodes a model object. The get_model service method wraps
// the model in an envelope while workspace objects store it directly; both
// shapes are accepted.
func DecodeModelData(data []byte) (*ModelData, error) {
	var envelope struct {
		Model *ModelData `json:"model"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Model != nil && envelope.Model.ID != "" {
		return envelope.Model, nil
	}
	var model ModelData
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("decode model object: %w", err)
	}
	if model.ID == "" {
		return nil, fmt.Errorf("decoded model object has no ID")
	}
	return &model, nil
}
