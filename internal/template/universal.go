package template

import (
	"fmt"
	"strconv"
	"strings"

	"seedtools/internal/metabolic"
)

// Column names required in a universal metabolite source file.
var universalMetaboliteFields = []string{
	"id", "formula", "name", "charge", "abbreviation", "source", "structure",
	"pka", "pkb", "mass", "deltag", "deltagerr", "aliases", "is_core",
	"is_cofactor", "is_obsolete", "linked_compound",
}

// Column names required in a universal reaction source file.
var universalReactionFields = []string{
	"id", "name", "abbreviation", "code", "stoichiometry", "direction",
	"reversibility", "status", "deltag", "deltagerr", "aliases",
	"linked_reaction", "is_obsolete", "is_transport",
}

// defaultCompartmentIndex is the compartment index assigned to every
// universal metabolite before reactions place copies in other compartments.
const defaultCompartmentIndex = "0"

// Compound is a universal metabolite. The ID carries a numeric compartment
// index suffix, for example cpd00001_0.
type Compound struct {
	ID           string
	Name         string
	Formula      string
	Charge       float64
	Compartment  string
	Abbreviation string
	Mass         float64
	IsCore       bool
	IsCofactor   bool
	LinkedIDs    []string
}

// InCompartment returns a copy of the compound placed in another compartment
// index, with the ID suffix updated to match.
func (c *Compound) InCompartment(index string) *Compound {
	copied := *c
	copied.Compartment = index
	copied.ID = compartmentSuffixRe.ReplaceAllString(c.ID, "") + "_" + index
	return &copied
}

// CompoundSet is an ordered collection of compounds indexed by ID.
type CompoundSet struct {
	byID  map[string]*Compound
	order []string
}

// NewCompoundSet creates an empty compound set.
func NewCompoundSet() *CompoundSet {
	return &CompoundSet{byID: make(map[string]*Compound)}
}

// Add stores a compound. Adding an ID twice is an error.
func (s *CompoundSet) Add(c *Compound) error {
	if _, ok := s.byID[c.ID]; ok {
		return fmt.Errorf("compound %s is already in set", c.ID)
	}
	s.byID[c.ID] = c
	s.order = append(s.order, c.ID)
	return nil
}

// Get returns the compound with the given ID, or nil.
func (s *CompoundSet) Get(id string) *Compound { return s.byID[id] }

// All returns the compounds in insertion order.
func (s *CompoundSet) All() []*Compound {
	out := make([]*Compound, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of compounds in the set.
func (s *CompoundSet) Len() int { return len(s.byID) }

// Reaction is a template reaction. Universal source files provide the
// stoichiometry and directionality; template reaction files attach the
// complexes, compartments, and gap fill costs.
type Reaction struct {
	ID     string
	Name   string
	Status string

	// Direction is the universal direction (=, >, or <) which sets the
	// default flux bounds.
	Direction     string
	Reversibility string
	IsTransport   bool

	LowerBound float64
	UpperBound float64

	// Metabolites maps compound ID (with compartment index suffix) to
	// stoichiometric coefficient.
	Metabolites map[string]float64

	// Fields from a template reaction source file.
	Type             string
	CompartmentIDs   []string
	ComplexIDs       []string
	BaseCost         float64
	ForwardCost      float64
	ReverseCost      float64
	ModelDirection   string
	GapfillDirection string

	stoichiometry string
}

// Compartment returns the primary compartment of the reaction.
func (r *Reaction) Compartment() string {
	if len(r.CompartmentIDs) == 0 {
		return "c"
	}
	return r.CompartmentIDs[0]
}

// ReactionSet is an ordered collection of reactions indexed by ID.
type ReactionSet struct {
	byID  map[string]*Reaction
	order []string
}

// NewReactionSet creates an empty reaction set.
func NewReactionSet() *ReactionSet {
	return &ReactionSet{byID: make(map[string]*Reaction)}
}

// Add stores a reaction. Adding an ID twice is an error.
func (s *ReactionSet) Add(r *Reaction) error {
	if _, ok := s.byID[r.ID]; ok {
		return fmt.Errorf("reaction %s is already in set", r.ID)
	}
	s.byID[r.ID] = r
	s.order = append(s.order, r.ID)
	return nil
}

// Get returns the reaction with the given ID, or nil.
func (s *ReactionSet) Get(id string) *Reaction { return s.byID[id] }

// All returns the reactions in insertion order.
func (s *ReactionSet) All() []*Reaction {
	out := make([]*Reaction, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of reactions in the set.
func (s *ReactionSet) Len() int { return len(s.byID) }

// ReadUniversalMetabolites reads a universal metabolite source file. All
// metabolites are placed in the default compartment and metabolites marked
// obsolete are skipped.
func ReadUniversalMetabolites(filename string) (*CompoundSet, error) {
	compounds := NewCompoundSet()
	_, err := readSourceFile(filename, universalMetaboliteFields, func(rec sourceRecord) error {
		if rec.get("is_obsolete") == "1" {
			return nil
		}
		charge, _ := strconv.ParseFloat(rec.get("charge"), 64)
		c := &Compound{
			ID:           rec.get("id") + "_" + defaultCompartmentIndex,
			Name:         rec.get("name"),
			Charge:       charge,
			Compartment:  defaultCompartmentIndex,
			Abbreviation: rec.get("abbreviation"),
			IsCore:       rec.get("is_core") == "1",
			IsCofactor:   rec.get("is_cofactor") == "1",
		}
		if v := rec.get("formula"); v != "null" {
			c.Formula = v
		}
		if v := rec.get("mass"); v != "null" {
			c.Mass, _ = strconv.ParseFloat(v, 64)
		}
		if v := rec.get("linked_compound"); v != "null" {
			c.LinkedIDs = strings.Split(v, ";")
		}
		if existing := compounds.Get(c.ID); existing != nil {
			return &DuplicateError{ID: c.ID, Line: rec.line}
		}
		return compounds.Add(c)
	})
	if err != nil {
		return nil, err
	}
	return compounds, nil
}

// ReadUniversalReactions reads a universal reaction source file. Reactions
// marked obsolete or with no metabolites are skipped. Metabolites, bounds,
// and coefficients are set later by ResolveReactions.
func ReadUniversalReactions(filename string) (*ReactionSet, error) {
	reactions := NewReactionSet()
	_, err := readSourceFile(filename, universalReactionFields, func(rec sourceRecord) error {
		if rec.get("is_obsolete") == "1" || rec.get("status") == "EMPTY" {
			return nil
		}
		r := &Reaction{
			ID:            rec.get("id"),
			Name:          rec.get("name"),
			Status:        rec.get("status"),
			Direction:     rec.get("direction"),
			Reversibility: rec.get("reversibility"),
			IsTransport:   rec.get("is_transport") == "1",
			stoichiometry: rec.get("stoichiometry"),
		}
		if existing := reactions.Get(r.ID); existing != nil {
			return &DuplicateError{ID: r.ID, Line: rec.line}
		}
		return reactions.Add(r)
	})
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

// ResolveReactions parses each reaction's stoichiometry to set its
// metabolites and flux bounds. Each metabolite in the stoichiometry is
// expressed as n:ID:m:i:"NAME" where n is the coefficient (negative for a
// reactant), ID is the compound ID, m is the compartment index, and i is the
// community index. Compounds for compartments other than the default are
// added to the compound set.
func ResolveReactions(reactions *ReactionSet, compounds *CompoundSet) error {
	for _, rxn := range reactions.All() {
		switch rxn.Direction {
		case "=":
			rxn.LowerBound, rxn.UpperBound = -metabolic.DefaultBound, metabolic.DefaultBound
		case ">":
			rxn.LowerBound, rxn.UpperBound = 0, metabolic.DefaultBound
		case "<":
			rxn.LowerBound, rxn.UpperBound = -metabolic.DefaultBound, 0
		default:
			rxn.LowerBound, rxn.UpperBound = -metabolic.DefaultBound, metabolic.DefaultBound
		}

		rxn.Metabolites = make(map[string]float64)
		for _, term := range strings.Split(rxn.stoichiometry, ";") {
			fields := strings.SplitN(term, ":", 5)
			if len(fields) < 3 {
				return fmt.Errorf("reaction %s has invalid stoichiometry term %q", rxn.ID, term)
			}
			coeff, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return fmt.Errorf("reaction %s has invalid coefficient in term %q", rxn.ID, term)
			}
			compoundID := fields[1] + "_" + fields[2]
			if compounds.Get(compoundID) == nil {
				base := compounds.Get(fields[1] + "_" + defaultCompartmentIndex)
				if base == nil {
					return fmt.Errorf("reaction %s references unknown compound %s", rxn.ID, fields[1])
				}
				if err := compounds.Add(base.InCompartment(fields[2])); err != nil {
					return err
				}
			}
			rxn.Metabolites[compoundID] += coeff
		}
	}
	return nil
}
