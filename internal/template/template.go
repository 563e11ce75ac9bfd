package template

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"seedtools/internal/metabolic"
)

// Template is the source for automated reconstruction of an organism model.
type Template struct {
	ID     string
	Name   string
	Type   string
	Domain string

	Compounds    *CompoundSet
	Reactions    *ReactionSet
	Roles        map[string]*Role
	Complexes    map[string]*Complex
	Compartments map[string]*Compartment
	Biomasses    map[string]*Biomass

	// Logger receives progress and warning output. When nil, logging is off.
	Logger *log.Logger

	searchIndex map[string]*Role
}

// New creates an empty template. modelType is usually "growth".
func New(id, name, modelType, domain string) *Template {
	return &Template{
		ID:           id,
		Name:         name,
		Type:         modelType,
		Domain:       domain,
		Compounds:    NewCompoundSet(),
		Reactions:    NewReactionSet(),
		Roles:        make(map[string]*Role),
		Complexes:    make(map[string]*Complex),
		Compartments: make(map[string]*Compartment),
		Biomasses:    make(map[string]*Biomass),
		searchIndex:  make(map[string]*Role),
	}
}

func (t *Template) logger() *log.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return discardLogger
}

var discardLogger = log.New(io.Discard)

// Load reads a complete template from source files. The universal folder
// must contain metabolites.tsv and reactions.tsv. The template folder must
// contain compartments.tsv, biomasses.tsv, biomass_metabolites.tsv,
// reactions.tsv, complexes.tsv, and roles.tsv.
func Load(id, name, modelType, domain, universalFolder, templateFolder string) (*Template, error) {
	universalCompounds, err := ReadUniversalMetabolites(filepath.Join(universalFolder, "metabolites.tsv"))
	if err != nil {
		return nil, err
	}
	universalReactions, err := ReadUniversalReactions(filepath.Join(universalFolder, "reactions.tsv"))
	if err != nil {
		return nil, err
	}
	if err := ResolveReactions(universalReactions, universalCompounds); err != nil {
		return nil, err
	}

	t := New(id, name, modelType, domain)
	if err := t.AddCompartments(filepath.Join(templateFolder, "compartments.tsv")); err != nil {
		return nil, err
	}
	if err := t.AddBiomasses(filepath.Join(templateFolder, "biomasses.tsv"),
		filepath.Join(templateFolder, "biomass_metabolites.tsv"), universalCompounds); err != nil {
		return nil, err
	}
	if err := t.AddReactions(filepath.Join(templateFolder, "reactions.tsv"),
		filepath.Join(templateFolder, "complexes.tsv"),
		filepath.Join(templateFolder, "roles.tsv"),
		universalReactions, universalCompounds); err != nil {
		return nil, err
	}
	return t, nil
}

// AddCompartments adds compartments from a source file.
func (t *Template) AddCompartments(filename string) error {
	compartments, err := ReadCompartments(filename)
	if err != nil {
		return err
	}
	for index, compartment := range compartments {
		t.Compartments[index] = compartment
	}
	return nil
}

// AddBiomasses adds biomass entities and their components from source files.
// Compounds used by the components are copied into the template.
func (t *Template) AddBiomasses(biomassFilename, componentFilename string, universalCompounds *CompoundSet) error {
	components, err := ReadBiomassComponents(componentFilename)
	if err != nil {
		return err
	}
	biomasses, err := ReadBiomasses(biomassFilename)
	if err != nil {
		return err
	}
	for _, biomass := range biomasses {
		if err := biomass.AddComponents(components, universalCompounds); err != nil {
			return err
		}
		for _, compound := range biomass.Compounds() {
			if t.Compounds.Get(compound.ID) == nil {
				if err := t.Compounds.Add(compound); err != nil {
					return err
				}
			}
		}
		t.Biomasses[biomass.ID] = biomass
	}
	return nil
}

// AddReactions adds reactions from a template reaction source file. Each
// line selects a resolved universal reaction and attaches the template
// fields. Conditional reactions link to complexes, which in turn link to
// roles; both are copied into the template.
func (t *Template) AddReactions(reactionFilename, complexFilename, roleFilename string,
	universalReactions *ReactionSet, universalCompounds *CompoundSet) error {

	universalComplexes, err := ReadComplexes(complexFilename)
	if err != nil {
		return err
	}
	universalRoles, err := ReadRoles(roleFilename)
	if err != nil {
		return err
	}

	notFound := 0
	_, err = readSourceFile(reactionFilename, reactionFields, func(rec sourceRecord) error {
		rxn := universalReactions.Get(rec.get("id"))
		if rxn == nil {
			notFound++
			return nil
		}
		if v := rec.get("complexes"); v != "null" {
			rxn.ComplexIDs = strings.Split(v, "|")
		}
		rxn.Type = rec.get("type")
		if v := rec.get("compartment"); v != "null" {
			rxn.CompartmentIDs = strings.Split(v, "|")
		}
		rxn.ModelDirection = rec.get("direction")
		rxn.GapfillDirection = rec.get("gfdir")
		rxn.BaseCost, _ = strconv.ParseFloat(rec.get("base_cost"), 64)
		rxn.ForwardCost, _ = strconv.ParseFloat(rec.get("forward_cost"), 64)
		rxn.ReverseCost, _ = strconv.ParseFloat(rec.get("reverse_cost"), 64)

		if err := t.Reactions.Add(rxn); err != nil {
			return err
		}
		for compoundID := range rxn.Metabolites {
			if t.Compounds.Get(compoundID) == nil {
				compound := universalCompounds.Get(compoundID)
				if compound == nil {
					return fmt.Errorf("reaction %s references unresolved compound %s", rxn.ID, compoundID)
				}
				if err := t.Compounds.Add(compound); err != nil {
					return err
				}
			}
		}

		if rxn.Type == "conditional" {
			for _, complexID := range rxn.ComplexIDs {
				cpx, ok := universalComplexes[complexID]
				if !ok {
					return fmt.Errorf("complex %s on line %d is not available", complexID, rec.line)
				}
				if _, ok := t.Complexes[complexID]; !ok {
					t.Complexes[complexID] = cpx
				}
				cpx.ReactionIDs = append(cpx.ReactionIDs, rxn.ID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if notFound > 0 {
		t.logger().Warn("template reactions not found in universal reactions", "count", notFound)
	}

	for _, cpx := range t.Complexes {
		for _, link := range cpx.Roles {
			role, ok := universalRoles[link.RoleID]
			if !ok {
				return fmt.Errorf("role %s referenced by complex %s is not available", link.RoleID, cpx.ID)
			}
			if _, present := t.Roles[role.ID]; !present {
				t.Roles[role.ID] = role
				t.searchIndex[role.SearchName] = role
			}
			role.ComplexIDs = append(role.ComplexIDs, cpx.ID)
		}
	}
	return nil
}

// ComplexesToRoles returns a map of complex ID to the role IDs that trigger
// the complex.
func (t *Template) ComplexesToRoles() map[string][]string {
	out := make(map[string][]string, len(t.Complexes))
	for id, cpx := range t.Complexes {
		for _, link := range cpx.Roles {
			out[id] = append(out[id], link.RoleID)
		}
	}
	return out
}

// ReactionsToComplexes returns a map of reaction ID to the complex IDs that
// catalyze the reaction.
func (t *Template) ReactionsToComplexes() map[string][]string {
	out := make(map[string][]string)
	for _, rxn := range t.Reactions.All() {
		if len(rxn.ComplexIDs) > 0 && rxn.Type == "conditional" {
			out[rxn.ID] = append([]string(nil), rxn.ComplexIDs...)
		}
	}
	return out
}

// modelCompartmentID converts a compartment index number to the single
// letter compartment ID used in an organism model.
func (t *Template) modelCompartmentID(index string) string {
	if compartment, ok := t.Compartments[index]; ok {
		return compartment.ModelID
	}
	return index
}

// modelCompoundID converts a compound ID with a compartment index suffix to
// the model form with a compartment letter suffix, e.g. cpd00001_0 becomes
// cpd00001_c.
func (t *Template) modelCompoundID(compoundID string) string {
	match := compartmentSuffixRe.FindStringSubmatch(compoundID)
	if match == nil {
		return compoundID
	}
	base := compoundID[:len(compoundID)-len(match[0])]
	return base + "_" + t.modelCompartmentID(match[1])
}

// addModelMetabolite ensures the model contains the metabolite for the
// compound, translated into model form.
func (t *Template) addModelMetabolite(model *metabolic.Model, compound *Compound) (*metabolic.Metabolite, error) {
	id := t.modelCompoundID(compound.ID)
	if met := model.Metabolite(id); met != nil {
		return met, nil
	}
	met := &metabolic.Metabolite{
		ID:          id,
		Name:        compound.Name,
		Formula:     compound.Formula,
		Charge:      compound.Charge,
		Compartment: t.modelCompartmentID(compound.Compartment),
	}
	if err := model.AddMetabolite(met); err != nil {
		return nil, err
	}
	return met, nil
}

// createModelReaction builds a model reaction from a template reaction. The
// reaction ID gets the primary compartment appended and the flux bounds come
// from the template direction.
func (t *Template) createModelReaction(model *metabolic.Model, rxn *Reaction) (*metabolic.Reaction, error) {
	modelRxn := &metabolic.Reaction{
		ID:          rxn.ID + "_" + rxn.Compartment(),
		Name:        rxn.Name,
		Metabolites: make(map[string]float64),
	}
	switch rxn.ModelDirection {
	case ">":
		modelRxn.LowerBound, modelRxn.UpperBound = 0, metabolic.DefaultBound
	case "<":
		modelRxn.LowerBound, modelRxn.UpperBound = -metabolic.DefaultBound, 0
	default:
		modelRxn.LowerBound, modelRxn.UpperBound = -metabolic.DefaultBound, metabolic.DefaultBound
	}
	for compoundID, coeff := range rxn.Metabolites {
		compound := t.Compounds.Get(compoundID)
		if compound == nil {
			return nil, fmt.Errorf("reaction %s references compound %s which is not in template", rxn.ID, compoundID)
		}
		met, err := t.addModelMetabolite(model, compound)
		if err != nil {
			return nil, err
		}
		modelRxn.Metabolites[met.ID] += coeff
	}
	return modelRxn, nil
}

// geneRule joins feature IDs into a boolean rule with an OR relationship.
func geneRule(features []*Feature) string {
	ids := make([]string, 0, len(features))
	seen := make(map[string]bool)
	for _, f := range features {
		if !seen[f.ID] {
			seen[f.ID] = true
			ids = append(ids, f.ID)
		}
	}
	sort.Strings(ids)
	return "(" + strings.Join(ids, " or ") + ")"
}

// Reconstruct builds a draft model for an organism from its annotated
// features. Roles from the features are matched by search name against the
// template roles; a matched role triggers its complexes and the complexes
// bring their reactions into the model. Exchange reactions are added for
// every extracellular metabolite and the biomass entity with the given ID
// becomes the objective. gcContent is a fraction between 0 and 1.
func (t *Template) Reconstruct(modelID string, features []*Feature, biomassID, modelName string,
	gcContent float64) (*metabolic.Model, error) {

	model := metabolic.NewModel(modelID, modelName)
	for _, compartment := range t.Compartments {
		model.Compartments[compartment.ModelID] = compartment.Name
	}

	biomass, ok := t.Biomasses[biomassID]
	if !ok {
		return nil, fmt.Errorf("biomass %q does not exist in template", biomassID)
	}

	// Match roles from the genome features against the template roles. The
	// matched features are recorded per compartment; most features are not
	// localized and match with the unknown compartment.
	matched := make(map[string]map[string][]*Feature)
	numMatched, numUnmatched := 0, 0
	for _, feature := range features {
		for _, searchRole := range feature.SearchRoles {
			role, ok := t.searchIndex[searchRole]
			if !ok {
				numUnmatched++
				continue
			}
			for _, compartment := range feature.Compartments {
				if matched[role.ID] == nil {
					matched[role.ID] = make(map[string][]*Feature)
				}
				matched[role.ID][compartment] = append(matched[role.ID][compartment], feature)
				numMatched++
			}
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("genome %s with %d features has no matches to roles in template %s",
			modelID, len(features), t.ID)
	}
	t.logger().Debug("matched roles from features",
		"matched", numMatched, "unmatched", numUnmatched, "roles", len(matched))

	// For every matched role, add the reactions triggered through the role's
	// complexes. A reaction already in the model gets its gene rule extended.
	roleIDs := make([]string, 0, len(matched))
	for id := range matched {
		roleIDs = append(roleIDs, id)
	}
	sort.Strings(roleIDs)
	for _, roleID := range roleIDs {
		role := t.Roles[roleID]
		compartments := make([]string, 0, len(matched[roleID]))
		for id := range matched[roleID] {
			compartments = append(compartments, id)
		}
		sort.Strings(compartments)

		for _, complexID := range role.ComplexIDs {
			cpx := t.Complexes[complexID]
			for _, reactionID := range cpx.ReactionIDs {
				rxn := t.Reactions.Get(reactionID)
				for _, compartment := range compartments {
					if compartment != "u" && compartment != rxn.Compartment() {
						continue
					}
					rule := geneRule(matched[roleID][compartment])
					rxnID := rxn.ID + "_" + rxn.Compartment()
					if existing := model.Reaction(rxnID); existing != nil {
						if !strings.Contains(existing.GeneRule, rule) {
							existing.GeneRule = existing.GeneRule + " and " + rule
						}
					} else {
						modelRxn, err := t.createModelReaction(model, rxn)
						if err != nil {
							return nil, err
						}
						modelRxn.GeneRule = rule
						if err := model.AddReaction(modelRxn); err != nil {
							return nil, err
						}
					}
					for _, feature := range matched[roleID][compartment] {
						model.AddGene(feature.ID, role.Name)
					}
				}
			}
		}
	}

	// Add exchange reactions for every metabolite in the extracellular
	// compartment.
	for _, met := range model.MetabolitesInCompartment("e") {
		if _, err := model.AddExchange(met); err != nil {
			return nil, err
		}
	}

	// ModelSEED models need a sink for the special biomass metabolite.
	if err := t.addBiomassReaction(model, biomass, gcContent); err != nil {
		return nil, err
	}
	if met := model.Metabolite("cpd11416_c"); met != nil {
		if model.Reaction("SK_cpd11416_c") == nil {
			if _, err := model.AddSink(met); err != nil {
				return nil, err
			}
		}
	}

	t.logger().Info("reconstructed draft model", "model", model.ID,
		"reactions", model.NumReactions(), "metabolites", model.NumMetabolites(), "genes", model.NumGenes())
	return model, nil
}

// addBiomassReaction creates the biomass objective reaction and adds it to
// the model.
func (t *Template) addBiomassReaction(model *metabolic.Model, biomass *Biomass, gcContent float64) error {
	coefficients, err := biomass.CreateObjective(gcContent)
	if err != nil {
		return err
	}
	rxn := &metabolic.Reaction{
		ID:          biomass.ID,
		Name:        fmt.Sprintf("%s (%s)", biomass.Name, biomass.Type),
		LowerBound:  0,
		UpperBound:  metabolic.DefaultBound,
		Metabolites: make(map[string]float64),
	}
	for compoundID, coeff := range coefficients {
		if coeff == 0 {
			continue
		}
		compound := biomass.Compound(compoundID)
		if compound == nil {
			return fmt.Errorf("biomass %s component compound %s is not available", biomass.ID, compoundID)
		}
		met, err := t.addModelMetabolite(model, compound)
		if err != nil {
			return err
		}
		rxn.Metabolites[met.ID] += coeff
	}
	if err := model.AddReaction(rxn); err != nil {
		return err
	}
	model.Objective[rxn.ID] = 1.0
	return nil
}

// ToModel converts the template to a model holding every template reaction.
// The result is used as the universal model input to gap fill.
func (t *Template) ToModel() (*metabolic.Model, error) {
	model := metabolic.NewModel(t.ID, t.Name)
	for _, compartment := range t.Compartments {
		model.Compartments[compartment.ModelID] = compartment.Name
	}
	for _, rxn := range t.Reactions.All() {
		modelRxn, err := t.createModelReaction(model, rxn)
		if err != nil {
			return nil, err
		}
		modelRxn.SetNote("type", rxn.Type)
		if err := model.AddReaction(modelRxn); err != nil {
			return nil, err
		}
	}
	return model, nil
}

// ReconstructFromLikelihoods builds a model containing every template
// reaction whose likelihood is at or above the cutoff. likelihoods is keyed
// by template reaction ID.
func (t *Template) ReconstructFromLikelihoods(modelID string, likelihoods map[string]float64,
	cutoff float64, biomassID, modelName string, gcContent float64) (*metabolic.Model, error) {

	model := metabolic.NewModel(modelID, modelName)
	for _, compartment := range t.Compartments {
		model.Compartments[compartment.ModelID] = compartment.Name
	}

	added := 0
	for _, rxn := range t.Reactions.All() {
		likelihood, ok := likelihoods[rxn.ID]
		if !ok || likelihood < cutoff {
			continue
		}
		modelRxn, err := t.createModelReaction(model, rxn)
		if err != nil {
			return nil, err
		}
		modelRxn.SetNote("likelihood", fmt.Sprintf("%.6f", likelihood))
		if err := model.AddReaction(modelRxn); err != nil {
			return nil, err
		}
		added++
	}
	if added == 0 {
		return nil, fmt.Errorf("there are no reactions with a likelihood greater than cutoff of %g", cutoff)
	}

	for _, met := range model.MetabolitesInCompartment("e") {
		if _, err := model.AddExchange(met); err != nil {
			return nil, err
		}
	}

	biomass, ok := t.Biomasses[biomassID]
	if !ok {
		return nil, fmt.Errorf("biomass %q does not exist in template", biomassID)
	}
	if err := t.addBiomassReaction(model, biomass, gcContent); err != nil {
		return nil, err
	}
	if met := model.Metabolite("cpd11416_c"); met != nil {
		if _, err := model.AddSink(met); err != nil {
			return nil, err
		}
	}
	return model, nil
}
