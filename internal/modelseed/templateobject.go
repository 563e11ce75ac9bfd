package modelseed

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"seedtools/internal/metabolic"
)

// TemplateCompartment is one compartment in a template model object.
type TemplateCompartment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Index     string    `json:"index"`
	Hierarchy int       `json:"hierarchy"`
	PH        flexFloat `json:"pH"`
	Aliases   []string  `json:"aliases"`
}

// TemplateCompound is compartment independent compound data in a template
// model object.
type TemplateCompound struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Formula string `json:"formula"`
}

// TemplateCompCompound is a compound placed in a compartment.
type TemplateCompCompound struct {
	ID             string    `json:"id"`
	Charge         flexFloat `json:"charge"`
	CompoundRef    string    `json:"templatecompound_ref"`
	CompartmentRef string    `json:"templatecompartment_ref"`
}

// TemplateReagent links a template reaction to a compound in a compartment.
type TemplateReagent struct {
	CompCompoundRef string    `json:"templatecompcompound_ref"`
	Coefficient     flexFloat `json:"coefficient"`
}

// TemplateModelReaction is one reaction in a template model object.
type TemplateModelReaction struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Direction        string            `json:"direction"`
	GapfillDirection string            `json:"GapfillDirection"`
	Type             string            `json:"type"`
	BaseCost         flexFloat         `json:"base_cost"`
	ForwardPenalty   flexFloat         `json:"forward_penalty"`
	ReversePenalty   flexFloat         `json:"reverse_penalty"`
	Reagents         []TemplateReagent `json:"templateReactionReagents"`
	ComplexRefs      []string          `json:"templatecomplex_refs"`
}

// TemplateComplexRole links a template complex to one of its roles.
type TemplateComplexRole struct {
	RoleRef    string `json:"templaterole_ref"`
	Optional   int    `json:"optional"`
	Triggering int    `json:"triggering"`
}

// TemplateModelComplex is one complex in a template model object.
type TemplateModelComplex struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Source     string                `json:"source"`
	Reference  string                `json:"reference"`
	Confidence flexFloat             `json:"confidence"`
	Roles      []TemplateComplexRole `json:"complexroles"`
}

// TemplateModelRole is one role in a template model object.
type TemplateModelRole struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Source   string   `json:"source"`
	Features []string `json:"features"`
}

// TemplateBiomassComponent is one component of a template biomass.
type TemplateBiomassComponent struct {
	CompCompoundRef    string      `json:"templatecompcompound_ref"`
	Class              string      `json:"class"`
	Coefficient        flexFloat   `json:"coefficient"`
	CoefficientType    string      `json:"coefficient_type"`
	LinkedCompoundRefs []string    `json:"linked_compound_refs"`
	LinkCoefficients   []flexFloat `json:"link_coefficients"`
}

// TemplateModelBiomass is one biomass entity in a template model object.
type TemplateModelBiomass struct {
	ID         string                     `json:"id"`
	Name       string                     `json:"name"`
	Type       string                     `json:"type"`
	Other      flexFloat                  `json:"other"`
	DNA        flexFloat                  `json:"dna"`
	RNA        flexFloat                  `json:"rna"`
	Protein    flexFloat                  `json:"protein"`
	Lipid      flexFloat                  `json:"lipid"`
	Cellwall   flexFloat                  `json:"cellwall"`
	Cofactor   flexFloat                  `json:"cofactor"`
	Energy     flexFloat                  `json:"energy"`
	Components []TemplateBiomassComponent `json:"templateBiomassComponents"`
}

// TemplateObject is a template model object stored in the workspace. It has
// all of the reactions and metabolites that are available for inclusion in a
// model of one type of organism.
type TemplateObject struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Compartments  []TemplateCompartment   `json:"compartments"`
	Compounds     []TemplateCompound      `json:"compounds"`
	CompCompounds []TemplateCompCompound  `json:"compcompounds"`
	Reactions     []TemplateModelReaction `json:"reactions"`
	Complexes     []TemplateModelComplex  `json:"complexes"`
	Roles         []TemplateModelRole     `json:"roles"`
	Biomasses     []TemplateModelBiomass  `json:"biomasses"`
}

// ComplexesToRoles returns a map of complex ID to the role IDs linked to the
// complex.
func (t *TemplateObject) ComplexesToRoles() map[string][]string {
	out := make(map[string][]string)
	for _, cpx := range t.Complexes {
		if len(cpx.Roles) == 0 {
			continue
		}
		for _, role := range cpx.Roles {
			out[cpx.ID] = append(out[cpx.ID], lastRefElement(role.RoleRef))
		}
	}
	return out
}

// ReactionsToComplexes returns a map of reaction ID to the complex IDs that
// catalyze the reaction.
func (t *TemplateObject) ReactionsToComplexes() map[string][]string {
	out := make(map[string][]string)
	for _, rxn := range t.Reactions {
		if len(rxn.ComplexRefs) == 0 {
			continue
		}
		for _, ref := range rxn.ComplexRefs {
			out[rxn.ID] = append(out[rxn.ID], lastRefElement(ref))
		}
	}
	return out
}

// UniversalModel converts the template object to a model holding every
// template reaction. The result is used as the universal model input to gap
// fill. Compound data is split between the compound and compcompound lists,
// so both are joined to build each metabolite.
func (t *TemplateObject) UniversalModel(idType string) (*metabolic.Model, error) {
	if idType == "" {
		idType = IDTypeModelSEED
	}
	if idType != IDTypeModelSEED && idType != IDTypeBigg {
		return nil, fmt.Errorf("ID type %q is not supported", idType)
	}

	model := metabolic.NewModel(t.ID, t.Name)
	for _, compartment := range t.Compartments {
		model.Compartments[compartment.ID] = compartment.Name
	}

	compoundIndex := make(map[string]*TemplateCompound, len(t.Compounds))
	for i := range t.Compounds {
		compoundIndex["~/compounds/id/"+t.Compounds[i].ID] = &t.Compounds[i]
	}

	for _, compcompound := range t.CompCompounds {
		compound, ok := compoundIndex[compcompound.CompoundRef]
		if !ok {
			return nil, fmt.Errorf("compcompound %s references unknown compound %s",
				compcompound.ID, compcompound.CompoundRef)
		}
		met := &metabolic.Metabolite{
			ID:          ConvertSuffix(compcompound.ID, idType),
			Name:        compound.Name,
			Formula:     compound.Formula,
			Charge:      float64(compcompound.Charge),
			Compartment: lastRefElement(compcompound.CompartmentRef),
		}
		if err := model.AddMetabolite(met); err != nil {
			return nil, err
		}
	}

	for _, source := range t.Reactions {
		lower, upper, factor := reactionBounds(source.Direction)
		rxn := &metabolic.Reaction{
			ID:          ConvertSuffix(source.ID, idType),
			Name:        source.Name,
			LowerBound:  lower,
			UpperBound:  upper,
			Metabolites: make(map[string]float64),
		}
		for _, reagent := range source.Reagents {
			metID := ConvertSuffix(lastRefElement(reagent.CompCompoundRef), idType)
			if model.Metabolite(metID) == nil {
				return nil, fmt.Errorf("reaction %s references compound %s which is not in model",
					source.ID, metID)
			}
			rxn.Metabolites[metID] += float64(reagent.Coefficient) * factor
		}
		rxn.SetNote("type", source.Type)
		if err := model.AddReaction(rxn); err != nil {
			return nil, err
		}
	}
	return model, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func writeLines(folder, name, header string, lines []string) error {
	content := header + "\n" + strings.Join(lines, "\n") + "\n"
	return os.WriteFile(filepath.Join(folder, name), []byte(content), 0644)
}

// SaveSourceFiles writes the template object to source file format in the
// given folder: roles.tsv, complexes.tsv, compartments.tsv, reactions.tsv,
// biomasses.tsv, and biomass_metabolites.tsv.
func (t *TemplateObject) SaveSourceFiles(folder string) error {
	roles := append([]TemplateModelRole(nil), t.Roles...)
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	var lines []string
	for _, role := range roles {
		features := "null"
		if len(role.Features) > 0 {
			features = strings.Join(role.Features, ";")
		}
		lines = append(lines, strings.Join([]string{role.ID, role.Name, role.Source, features, "null"}, "\t"))
	}
	if err := writeLines(folder, "roles.tsv", "id\tname\tsource\tfeatures\taliases", lines); err != nil {
		return err
	}

	complexes := append([]TemplateModelComplex(nil), t.Complexes...)
	sort.Slice(complexes, func(i, j int) bool { return complexes[i].ID < complexes[j].ID })
	lines = lines[:0]
	for _, cpx := range complexes {
		roleLinks := "null"
		if len(cpx.Roles) > 0 {
			// The role link type can also be "involved" but that information
			// is lost when a template model is built.
			var links []string
			for _, role := range cpx.Roles {
				links = append(links, strings.Join([]string{
					lastRefElement(role.RoleRef), "triggering",
					strconv.Itoa(role.Optional), strconv.Itoa(role.Triggering)}, ";"))
			}
			roleLinks = strings.Join(links, "|")
		}
		lines = append(lines, strings.Join([]string{cpx.ID, cpx.Name, cpx.Source, cpx.Reference,
			formatFloat(float64(cpx.Confidence)), roleLinks}, "\t"))
	}
	if err := writeLines(folder, "complexes.tsv", "id\tname\tsource\treference\tconfidence\troles", lines); err != nil {
		return err
	}

	compartments := append([]TemplateCompartment(nil), t.Compartments...)
	sort.Slice(compartments, func(i, j int) bool { return compartments[i].ID < compartments[j].ID })
	lines = lines[:0]
	for _, compartment := range compartments {
		aliases := "null"
		if len(compartment.Aliases) > 0 {
			aliases = strings.Join(compartment.Aliases, ";")
		}
		lines = append(lines, strings.Join([]string{compartment.Index, compartment.ID, compartment.Name,
			strconv.Itoa(compartment.Hierarchy), formatFloat(float64(compartment.PH)), aliases}, "\t"))
	}
	if err := writeLines(folder, "compartments.tsv", "index\tid\tname\thierarchy\tpH\taliases", lines); err != nil {
		return err
	}

	reactions := append([]TemplateModelReaction(nil), t.Reactions...)
	sort.Slice(reactions, func(i, j int) bool { return reactions[i].ID < reactions[j].ID })
	lines = lines[:0]
	for _, rxn := range reactions {
		complexRefs := "null"
		if len(rxn.ComplexRefs) > 0 {
			var ids []string
			for _, ref := range rxn.ComplexRefs {
				ids = append(ids, lastRefElement(ref))
			}
			complexRefs = strings.Join(ids, "|")
		}
		// The order of compartments cannot be recovered from the object.
		lines = append(lines, strings.Join([]string{strings.SplitN(rxn.ID, "_", 2)[0], "c|e",
			rxn.Direction, rxn.GapfillDirection, rxn.Type, formatFloat(float64(rxn.BaseCost)),
			formatFloat(float64(rxn.ForwardPenalty)), formatFloat(float64(rxn.ReversePenalty)),
			complexRefs}, "\t"))
	}
	if err := writeLines(folder, "reactions.tsv",
		"id\tcompartment\tdirection\tgfdir\ttype\tbase_cost\tforward_cost\treverse_cost\tcomplexes", lines); err != nil {
		return err
	}

	biomasses := append([]TemplateModelBiomass(nil), t.Biomasses...)
	sort.Slice(biomasses, func(i, j int) bool { return biomasses[i].ID < biomasses[j].ID })
	lines = lines[:0]
	var componentLines []string
	for _, biomass := range biomasses {
		lines = append(lines, strings.Join([]string{biomass.ID, biomass.Name, biomass.Type,
			formatFloat(float64(biomass.Other)), formatFloat(float64(biomass.DNA)),
			formatFloat(float64(biomass.RNA)), formatFloat(float64(biomass.Protein)),
			formatFloat(float64(biomass.Lipid)), formatFloat(float64(biomass.Cellwall)),
			formatFloat(float64(biomass.Cofactor)), formatFloat(float64(biomass.Energy))}, "\t"))
		components := append([]TemplateBiomassComponent(nil), biomass.Components...)
		sort.Slice(components, func(i, j int) bool { return components[i].Class < components[j].Class })
		for _, component := range components {
			parts := strings.SplitN(lastRefElement(component.CompCompoundRef), "_", 2)
			compartment := ""
			if len(parts) > 1 {
				compartment = parts[1]
			}
			linked := "null"
			if len(component.LinkedCompoundRefs) > 0 {
				var entries []string
				for i, ref := range component.LinkedCompoundRefs {
					coefficient := 0.0
					if i < len(component.LinkCoefficients) {
						coefficient = float64(component.LinkCoefficients[i])
					}
					id := strings.SplitN(lastRefElement(ref), "_", 2)[0]
					entries = append(entries, id+"_0:"+formatFloat(coefficient))
				}
				linked = strings.Join(entries, "|")
			}
			componentLines = append(componentLines, strings.Join([]string{biomass.ID, parts[0] + "_0",
				formatFloat(float64(component.Coefficient)), component.CoefficientType,
				component.Class, linked, compartment}, "\t"))
		}
	}
	if err := writeLines(folder, "biomasses.tsv",
		"id\tname\ttype\tother\tdna\trna\tprotein\tlipid\tcellwall\tcofactor\tenergy", lines); err != nil {
		return err
	}
	return writeLines(folder, "biomass_metabolites.tsv",
		"biomass_id\tid\tcoefficient\tcoefficient_type\tclass\tlinked_compounds\tcompartment", componentLines)
}
