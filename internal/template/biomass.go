package template

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	biomassFields = []string{"id", "name", "type", "other", "dna", "rna", "protein",
		"lipid", "cellwall", "cofactor", "energy"}
	biomassComponentFields = []string{"biomass_id", "id", "coefficient",
		"coefficient_type", "class", "linked_compounds", "compartment"}
)

// Class types for biomass components. dna, rna, protein, and cellwall mean
// the metabolite is required for production of that fraction, lipid and
// cofactor are essential compounds the cell must synthesize or import, and
// energy accounts for the energy needed to grow and divide.
var biomassClassTypes = map[string]bool{
	"dna": true, "rna": true, "protein": true, "cellwall": true,
	"lipid": true, "cofactor": true, "energy": true, "other": true,
}

// Coefficient types control how a component contributes to the biomass
// reaction.
var biomassCoefficientTypes = map[string]bool{
	"MOLFRACTION": true, "MOLSPLIT": true, "MASSFRACTION": true, "MASSSPLIT": true,
	"GC": true, "AT": true, "EXACT": true, "MULTIPLIER": true,
}

// BiomassComponent is a metabolite that is part of a biomass entity.
type BiomassComponent struct {
	CompoundID      string
	BiomassID       string
	ClassType       string
	CompartmentID   string
	Coefficient     float64
	CoefficientType string

	// LinkedCompounds maps compound ID to the coefficient multiplier applied
	// to the component's computed coefficient.
	LinkedCompounds map[string]float64
}

// Biomass is a collection of metabolites in specific ratios that a cell
// needs to grow. The named fields hold the mass fraction assigned to each
// component class.
type Biomass struct {
	ID       string
	Name     string
	Type     string
	Other    float64
	DNA      float64
	RNA      float64
	Protein  float64
	Lipid    float64
	Cellwall float64
	Cofactor float64
	Energy   float64

	Components []*BiomassComponent

	// compounds holds a copy of each component compound placed in the
	// component's compartment, keyed by universal compound ID without the
	// compartment suffix rewrite.
	compounds map[string]*Compound
}

func (b *Biomass) classMass(classType string) float64 {
	switch classType {
	case "other":
		return b.Other
	case "dna":
		return b.DNA
	case "rna":
		return b.RNA
	case "protein":
		return b.Protein
	case "lipid":
		return b.Lipid
	case "cellwall":
		return b.Cellwall
	case "cofactor":
		return b.Cofactor
	case "energy":
		return b.Energy
	}
	return 0
}

// Compound returns the compound used by a component, keyed by the compound
// ID without a compartment suffix, or nil.
func (b *Biomass) Compound(id string) *Compound {
	return b.compounds[id]
}

// Compounds returns the compounds used by the biomass components.
func (b *Biomass) Compounds() []*Compound {
	out := make([]*Compound, 0, len(b.compounds))
	for _, c := range b.compounds {
		out = append(out, c)
	}
	return out
}

// ReadBiomasses reads a biomass source file.
func ReadBiomasses(filename string) (map[string]*Biomass, error) {
	biomasses := make(map[string]*Biomass)
	float := func(rec sourceRecord, name string) float64 {
		v, _ := strconv.ParseFloat(rec.get(name), 64)
		return v
	}
	_, err := readSourceFile(filename, biomassFields, func(rec sourceRecord) error {
		id := rec.get("id")
		if _, ok := biomasses[id]; ok {
			return &DuplicateError{ID: id, Line: rec.line}
		}
		biomasses[id] = &Biomass{
			ID:       id,
			Name:     rec.get("name"),
			Type:     rec.get("type"),
			Other:    float(rec, "other"),
			DNA:      float(rec, "dna"),
			RNA:      float(rec, "rna"),
			Protein:  float(rec, "protein"),
			Lipid:    float(rec, "lipid"),
			Cellwall: float(rec, "cellwall"),
			Cofactor: float(rec, "cofactor"),
			Energy:   float(rec, "energy"),
			compounds: make(map[string]*Compound),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return biomasses, nil
}

// ReadBiomassComponents reads a biomass component source file.
func ReadBiomassComponents(filename string) ([]*BiomassComponent, error) {
	var components []*BiomassComponent
	_, err := readSourceFile(filename, biomassComponentFields, func(rec sourceRecord) error {
		classType := rec.get("class")
		if !biomassClassTypes[classType] {
			return fmt.Errorf("component %s in biomass %s has class type %s that is not valid",
				rec.get("id"), rec.get("biomass_id"), classType)
		}
		coefficientType := rec.get("coefficient_type")
		if !biomassCoefficientTypes[coefficientType] {
			return fmt.Errorf("component %s in biomass %s has coefficient type %s that is not valid",
				rec.get("id"), rec.get("biomass_id"), coefficientType)
		}
		coefficient, err := strconv.ParseFloat(rec.get("coefficient"), 64)
		if err != nil {
			return fmt.Errorf("component %s in biomass %s has invalid coefficient %q",
				rec.get("id"), rec.get("biomass_id"), rec.get("coefficient"))
		}
		component := &BiomassComponent{
			CompoundID:      rec.get("id"),
			BiomassID:       rec.get("biomass_id"),
			ClassType:       classType,
			CompartmentID:   rec.get("compartment"),
			Coefficient:     coefficient,
			CoefficientType: coefficientType,
			LinkedCompounds: make(map[string]float64),
		}
		if v := rec.get("linked_compounds"); v != "null" {
			for _, linked := range strings.Split(v, "|") {
				parts := strings.Split(linked, ":")
				if len(parts) != 2 {
					return fmt.Errorf("biomass component %s has invalid linked compound field", component.CompoundID)
				}
				multiplier, err := strconv.ParseFloat(parts[1], 64)
				if err != nil {
					return fmt.Errorf("biomass component %s has invalid linked compound field", component.CompoundID)
				}
				component.LinkedCompounds[parts[0]] = multiplier
			}
		}
		components = append(components, component)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return components, nil
}

// AddComponents attaches components to the biomass and records a copy of
// each component compound in the component's compartment. Compounds with a
// mass based coefficient type must have a non-zero mass.
func (b *Biomass) AddComponents(components []*BiomassComponent, compounds *CompoundSet) error {
	for _, component := range components {
		if component.BiomassID != b.ID {
			continue
		}
		if _, ok := b.compounds[component.CompoundID]; !ok {
			compound := compounds.Get(component.CompoundID)
			if compound == nil {
				return fmt.Errorf("biomass %s uses compound %s which is not available", b.ID, component.CompoundID)
			}
			if (component.CoefficientType == "MASSFRACTION" || component.CoefficientType == "MASSSPLIT") &&
				compound.Mass == 0.0 {
				return fmt.Errorf("compound %s (%s) in biomass %s has coefficient type %s and a mass of zero",
					compound.ID, compound.Name, b.ID, component.CoefficientType)
			}
			b.compounds[component.CompoundID] = compound.InCompartment(component.CompartmentID)
		}
		for linkedID := range component.LinkedCompounds {
			if _, ok := b.compounds[linkedID]; ok {
				continue
			}
			compound := compounds.Get(linkedID)
			if compound == nil {
				return fmt.Errorf("biomass %s uses compound %s which is not available", b.ID, linkedID)
			}
			b.compounds[linkedID] = compound.InCompartment(component.CompartmentID)
		}
		b.Components = append(b.Components, component)
	}
	return nil
}

// CreateObjective computes the coefficient of every biomass compound from
// the genome's GC content and returns the coefficients keyed by the
// component compound ID. gcContent is a fraction between 0 and 1.
func (b *Biomass) CreateObjective(gcContent float64) (map[string]float64, error) {
	moleFraction := make(map[string]float64)
	molecularWeight := make(map[string]float64)
	massFraction := make(map[string]float64)
	moleSplitCount := make(map[string]float64)
	moleSplitWeight := make(map[string]float64)
	massSplitCount := make(map[string]float64)
	massSplitMoles := make(map[string]float64)
	moles := make(map[string]float64)

	included := make(map[string]bool)
	for _, component := range b.Components {
		compound, ok := b.compounds[component.CompoundID]
		if !ok {
			return nil, fmt.Errorf("biomass %s component %s has no compound", b.ID, component.CompoundID)
		}
		mass := compound.Mass
		classType := component.ClassType
		included[classType] = true

		switch component.CoefficientType {
		case "MOLFRACTION":
			moleFraction[classType] += -1.0 * component.Coefficient
			if mass > 0.0 {
				molecularWeight[classType] += -1.0 * mass * component.Coefficient
			}
		case "MASSFRACTION":
			massFraction[classType] += -1.0 * component.Coefficient
		case "AT":
			moleFraction[classType] += (1.0 - gcContent) / 2.0
			if mass > 0.0 {
				molecularWeight[classType] += mass * (1.0 - gcContent) / 2.0
			}
		case "GC":
			moleFraction[classType] += gcContent / 2.0
			if mass > 0.0 {
				molecularWeight[classType] += mass * gcContent / 2.0
			}
		case "MOLSPLIT":
			moleSplitCount[classType]++
			if mass > 0.0 {
				moleSplitWeight[classType] += mass
			}
		case "MASSSPLIT":
			massSplitCount[classType]++
			massSplitMoles[classType] += b.classMass(classType) / mass
		}
	}

	massSplitFraction := make(map[string]float64)
	moleSplitFraction := make(map[string]float64)
	for classType := range included {
		totalSplit := moleSplitCount[classType] + massSplitCount[classType]
		mass := (1.0 - massFraction[classType]) * b.classMass(classType)
		if mass <= 0.0 {
			continue
		}
		remainingMoleFraction := 1.0 - moleFraction[classType]
		if totalSplit > 0 {
			massSplitMoleFraction := remainingMoleFraction * massSplitCount[classType] / totalSplit
			moleSplitMoleFraction := remainingMoleFraction * moleSplitCount[classType] / totalSplit
			molecularWeight[classType] += moleSplitMoleFraction * moleSplitWeight[classType] / moleSplitCount[classType]
			if massSplitCount[classType] > 0.0 {
				molecularWeight[classType] += massSplitMoleFraction * b.classMass(classType) /
					(massSplitMoles[classType] / massSplitCount[classType])
			}
			massSplitFraction[classType] = massSplitMoleFraction
			moleSplitFraction[classType] = moleSplitMoleFraction
		}
		if molecularWeight[classType] > 0.0 {
			moles[classType] = mass / molecularWeight[classType]
		} else {
			moles[classType] = 1
		}
	}

	coefficients := make(map[string]float64)
	for _, component := range b.Components {
		classType := component.ClassType
		var coefficient float64
		switch component.CoefficientType {
		case "MOLFRACTION":
			coefficient = component.Coefficient * moles[classType] * 1000.0
		case "MASSFRACTION":
			mass := b.compounds[component.CompoundID].Mass
			coefficient = component.Coefficient * b.classMass(classType) / mass * 1000.0
		case "AT":
			coefficient = component.Coefficient * moles[classType] * (1.0 - gcContent) / 2.0 * 1000.0
		case "GC":
			coefficient = component.Coefficient * gcContent * moles[classType] / 2.0 * 1000.0
		case "MULTIPLIER":
			coefficient = component.Coefficient * b.classMass(classType)
		case "EXACT":
			coefficient = component.Coefficient
		case "MOLSPLIT":
			coefficient = component.Coefficient * moles[classType] * moleSplitFraction[classType] *
				1000.0 / moleSplitCount[classType]
		case "MASSSPLIT":
			mass := b.compounds[component.CompoundID].Mass
			coefficient = component.Coefficient * b.classMass(classType) * massSplitFraction[classType] /
				massSplitCount[classType] / mass * 1000.0
		}

		coefficients[component.CompoundID] += coefficient
		for linkedID, multiplier := range component.LinkedCompounds {
			coefficients[linkedID] += coefficient * multiplier
		}
	}
	return coefficients, nil
}
