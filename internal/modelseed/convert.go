package modelseed

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"seedtools/internal/metabolic"
)

var discardLogger = log.New(io.Discard)

// ConvertOptions control how a model object is converted.
type ConvertOptions struct {
	// IDType selects the ID format, IDTypeModelSEED or IDTypeBigg. An empty
	// value selects IDTypeModelSEED.
	IDType string

	// Likelihoods maps a model reaction ID (with its original suffix) to a
	// reaction likelihood recorded as a note on the converted reaction.
	Likelihoods map[string]float64

	// Validate runs the converted model through common problem checks and
	// logs what it finds.
	Validate bool

	Logger *log.Logger
}

func (o *ConvertOptions) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return discardLogger
}

// reactionBounds returns the flux bounds for a service direction code. A
// reverse only reaction is flipped to a forward reaction, so the returned
// factor multiplies every coefficient.
func reactionBounds(direction string) (lower, upper, factor float64) {
	switch direction {
	case "=":
		return -metabolic.DefaultBound, metabolic.DefaultBound, 1.0
	case ">":
		return 0, metabolic.DefaultBound, 1.0
	case "<":
		return 0, metabolic.DefaultBound, -1.0
	}
	return -metabolic.DefaultBound, metabolic.DefaultBound, 1.0
}

// buildGeneRule builds a boolean gene association from the proteins that
// catalyze a reaction and registers each feature as a gene on the model.
// Features within a subunit are alternatives, subunits within a protein act
// together, and separate proteins are alternatives.
func buildGeneRule(model *metabolic.Model, proteins []ModelProtein) string {
	var proteinList []string
	for _, protein := range proteins {
		// Spontaneous and universal reactions can carry a protein entry with
		// no subunits.
		var subunitList []string
		for _, subunit := range protein.Subunits {
			var featureList []string
			for _, ref := range subunit.FeatureRefs {
				geneID := strings.TrimPrefix(lastRefElement(ref), "fig|")
				model.AddGene(geneID, subunit.Role)
				featureList = append(featureList, geneID)
			}
			if len(featureList) == 0 {
				continue
			}
			if len(featureList) > 1 {
				sort.Strings(featureList)
				subunitList = append(subunitList, "( "+strings.Join(featureList, " or ")+" )")
			} else {
				subunitList = append(subunitList, featureList[0])
			}
		}
		if len(subunitList) == 0 {
			continue
		}
		if len(subunitList) > 1 {
			sort.Strings(subunitList)
			proteinList = append(proteinList, "( "+strings.Join(subunitList, " and ")+" )")
		} else {
			proteinList = append(proteinList, subunitList[0])
		}
	}
	if len(proteinList) == 0 {
		return ""
	}
	if len(proteinList) > 1 {
		return "( " + strings.Join(proteinList, " or ") + " )"
	}
	return proteinList[0]
}

// ToMetabolicModel converts a model object from the reconstruction services
// into an in-memory model. Exchange reactions are added for every
// extracellular metabolite, a sink is added for the special biomass
// metabolite, and the first biomass reaction becomes the objective.
func ToMetabolicModel(data *ModelData, opts ConvertOptions) (*metabolic.Model, error) {
	idType := opts.IDType
	if idType == "" {
		idType = IDTypeModelSEED
	}
	var cytosolSuffix string
	switch idType {
	case IDTypeModelSEED:
		cytosolSuffix = "_c"
	case IDTypeBigg:
		cytosolSuffix = "[c]"
	default:
		return nil, fmt.Errorf("ID type %q is not supported", idType)
	}
	logger := opts.logger()

	modelID := strings.TrimPrefix(data.ID, ".")
	model := metabolic.NewModel(modelID, data.Name)

	for _, compartment := range data.Compartments {
		id := convertCompartmentID(compartment.ID, idType)
		label := compartment.Label
		// Compartment labels carry a _0 suffix.
		if i := strings.LastIndex(label, "_"); i >= 0 {
			label = label[:i]
		}
		model.Compartments[id] = label
	}

	// The services can store the same compound twice. Exact duplicates are
	// dropped, mismatched duplicates are logged.
	numDuplicates := 0
	for _, compound := range data.Compounds {
		met := &metabolic.Metabolite{
			ID:          ConvertSuffix(compound.ID, idType),
			Name:        RemoveSuffix(compound.Name),
			Formula:     compound.Formula,
			Charge:      compound.Charge,
			Compartment: convertCompartmentID(lastRefElement(compound.CompartmentRef), idType),
		}
		if existing := model.Metabolite(met.ID); existing != nil {
			if met.Name != existing.Name {
				logger.Warn("duplicate compound ID has different name",
					"id", met.ID, "name", met.Name, "existing", existing.Name)
			}
			if met.Formula != existing.Formula {
				logger.Warn("duplicate compound ID has different formula",
					"id", met.ID, "formula", met.Formula, "existing", existing.Formula)
			}
			if met.Charge != existing.Charge {
				logger.Warn("duplicate compound ID has different charge",
					"id", met.ID, "charge", met.Charge, "existing", existing.Charge)
			}
			if met.Compartment != existing.Compartment {
				logger.Warn("duplicate compound ID has different compartment",
					"id", met.ID, "compartment", met.Compartment, "existing", existing.Compartment)
			}
			numDuplicates++
			continue
		}
		if err := model.AddMetabolite(met); err != nil {
			return nil, err
		}
	}
	if numDuplicates > 0 {
		logger.Warn("duplicate compounds were dropped from source model",
			"model", model.ID, "count", numDuplicates)
	}

	for _, source := range data.Reactions {
		lower, upper, factor := reactionBounds(source.Direction)
		if source.Direction != "=" && source.Direction != ">" && source.Direction != "<" {
			logger.Warn("reaction direction assumed to be reversible",
				"reaction", source.ID, "direction", source.Direction)
		}
		rxn := &metabolic.Reaction{
			ID:          ConvertSuffix(source.ID, idType),
			Name:        RemoveSuffix(source.Name),
			LowerBound:  lower,
			UpperBound:  upper,
			Metabolites: make(map[string]float64),
		}
		for _, reagent := range source.Reagents {
			metID := ConvertSuffix(lastRefElement(reagent.CompoundRef), idType)
			if model.Metabolite(metID) == nil {
				return nil, fmt.Errorf("reaction %s references compound %s which is not in model",
					source.ID, metID)
			}
			rxn.Metabolites[metID] += reagent.Coefficient * factor
		}
		rxn.GeneRule = buildGeneRule(model, source.Proteins)
		if len(source.GapfillData) > 0 {
			var entries []string
			for solution, change := range source.GapfillData {
				entries = append(entries, solution+"="+change)
			}
			sort.Strings(entries)
			rxn.SetNote("gapfill_data", strings.Join(entries, ";"))
		}
		if likelihood, ok := opts.Likelihoods[source.ID]; ok {
			rxn.SetNote("likelihood", fmt.Sprintf("%.6f", likelihood))
		} else {
			rxn.SetNote("likelihood", "unknown")
		}
		if err := model.AddReaction(rxn); err != nil {
			return nil, err
		}
	}

	for _, met := range model.MetabolitesInCompartment("e") {
		if _, err := model.AddExchange(met); err != nil {
			return nil, err
		}
	}

	// Models from the services must have a sink for the special biomass
	// metabolite.
	if met := model.Metabolite("cpd11416" + cytosolSuffix); met != nil {
		if _, err := model.AddSink(met); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("model has no biomass metabolite", "model", model.ID,
			"metabolite", "cpd11416"+cytosolSuffix)
	}

	// A model can have more than one biomass reaction but nothing identifies
	// which one to use as the objective, so the first one is selected.
	if len(data.Biomasses) > 1 {
		logger.Warn("model has multiple biomass reactions",
			"model", model.ID, "count", len(data.Biomasses), "objective", data.Biomasses[0].ID)
	}
	for i, biomass := range data.Biomasses {
		rxn := &metabolic.Reaction{
			ID:          biomass.ID,
			Name:        biomass.Name,
			LowerBound:  0,
			UpperBound:  metabolic.DefaultBound,
			Metabolites: make(map[string]float64),
		}
		for _, compound := range biomass.Compounds {
			metID := ConvertSuffix(lastRefElement(compound.CompoundRef), idType)
			if model.Metabolite(metID) == nil {
				return nil, fmt.Errorf("biomass %s references compound %s which is not in model",
					biomass.ID, metID)
			}
			rxn.Metabolites[metID] += compound.Coefficient
		}
		if err := model.AddReaction(rxn); err != nil {
			return nil, err
		}
		if i == 0 {
			model.Objective[rxn.ID] = 1.0
		}
	}

	if opts.Validate {
		for _, warning := range model.Validate() {
			logger.Warn(warning.String())
		}
	}
	logger.Info("converted source model", "model", model.ID,
		"reactions", model.NumReactions(), "metabolites", model.NumMetabolites(),
		"compartments", len(model.Compartments))
	return model, nil
}
