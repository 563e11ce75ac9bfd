package metabolic

// Package metabolic holds an in-memory representation of a constraint-based
// metabolic model: metabolites, reactions with flux bounds and gene
// associations, and the compartments they live in. It is the common target
// for every model source in this project (remote model objects, template
// reconstructions, universal reaction catalogs).

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultBound is the magnitude used for unconstrained flux bounds.
const DefaultBound = 1000.0

// Metabolite is a chemical compound in a specific compartment.
type Metabolite struct {
	ID          string
	Name        string
	Formula     string
	Charge      float64
	Compartment string
	Notes       map[string]string
}

// Gene is a genome feature associated with one or more reactions.
type Gene struct {
	ID   string
	Name string
}

// Reaction is a chemical conversion with flux bounds. Metabolites maps
// metabolite ID to stoichiometric coefficient; negative coefficients are
// reactants, positive are products.
type Reaction struct {
	ID          string
	Name        string
	LowerBound  float64
	UpperBound  float64
	Metabolites map[string]float64
	GeneRule    string
	Notes       map[string]string
}

// Boundary reports whether the reaction is a system boundary (a single
// metabolite with no conversion partner), such as an exchange or sink.
func (r *Reaction) Boundary() bool {
	return len(r.Metabolites) == 1
}

// SetNote stores a free-form annotation on the reaction.
func (r *Reaction) SetNote(key, value string) {
	if r.Notes == nil {
		r.Notes = make(map[string]string)
	}
	r.Notes[key] = value
}

// Model is a collection of reactions and metabolites for one organism.
type Model struct {
	ID           string
	Name         string
	Compartments map[string]string

	metabolites     map[string]*Metabolite
	metaboliteOrder []string
	reactions       map[string]*Reaction
	reactionOrder   []string
	genes           map[string]*Gene
	geneOrder       []string

	// Objective maps reaction ID to objective coefficient.
	Objective map[string]float64
}

// NewModel creates an empty model.
func NewModel(id, name string) *Model {
	return &Model{
		ID:           id,
		Name:         name,
		Compartments: make(map[string]string),
		metabolites:  make(map[string]*Metabolite),
		reactions:    make(map[string]*Reaction),
		genes:        make(map[string]*Gene),
		Objective:    make(map[string]float64),
	}
}

// AddMetabolite adds a metabolite to the model. Adding a metabolite with an
// ID already in the model is an error.
func (m *Model) AddMetabolite(met *Metabolite) error {
	if _, ok := m.metabolites[met.ID]; ok {
		return fmt.Errorf("metabolite %s is already in model %s", met.ID, m.ID)
	}
	m.metabolites[met.ID] = met
	m.metaboliteOrder = append(m.metaboliteOrder, met.ID)
	return nil
}

// Metabolite returns the metabolite with the given ID, or nil.
func (m *Model) Metabolite(id string) *Metabolite {
	return m.metabolites[id]
}

// Metabolites returns the metabolites in insertion order.
func (m *Model) Metabolites() []*Metabolite {
	out := make([]*Metabolite, 0, len(m.metaboliteOrder))
	for _, id := range m.metaboliteOrder {
		out = append(out, m.metabolites[id])
	}
	return out
}

// NumMetabolites returns the number of metabolites in the model.
func (m *Model) NumMetabolites() int { return len(m.metabolites) }

// AddReaction adds a reaction to the model. Every metabolite referenced by
// the reaction must already be in the model.
func (m *Model) AddReaction(rxn *Reaction) error {
	if _, ok := m.reactions[rxn.ID]; ok {
		return fmt.Errorf("reaction %s is already in model %s", rxn.ID, m.ID)
	}
	for metID := range rxn.Metabolites {
		if _, ok := m.metabolites[metID]; !ok {
			return fmt.Errorf("reaction %s references metabolite %s which is not in model %s",
				rxn.ID, metID, m.ID)
		}
	}
	m.reactions[rxn.ID] = rxn
	m.reactionOrder = append(m.reactionOrder, rxn.ID)
	return nil
}

// Reaction returns the reaction with the given ID, or nil.
func (m *Model) Reaction(id string) *Reaction {
	return m.reactions[id]
}

// Reactions returns the reactions in insertion order.
func (m *Model) Reactions() []*Reaction {
	out := make([]*Reaction, 0, len(m.reactionOrder))
	for _, id := range m.reactionOrder {
		out = append(out, m.reactions[id])
	}
	return out
}

// NumReactions returns the number of reactions in the model.
func (m *Model) NumReactions() int { return len(m.reactions) }

// AddGene adds a gene to the model if it is not already present and returns
// the stored gene.
func (m *Model) AddGene(id, name string) *Gene {
	if g, ok := m.genes[id]; ok {
		return g
	}
	g := &Gene{ID: id, Name: name}
	m.genes[id] = g
	m.geneOrder = append(m.geneOrder, id)
	return g
}

// Gene returns the gene with the given ID, or nil.
func (m *Model) Gene(id string) *Gene { return m.genes[id] }

// NumGenes returns the number of genes in the model.
func (m *Model) NumGenes() int { return len(m.genes) }

// MetabolitesInCompartment returns the metabolites in the given compartment,
// in insertion order.
func (m *Model) MetabolitesInCompartment(compartment string) []*Metabolite {
	var out []*Metabolite
	for _, id := range m.metaboliteOrder {
		if m.metabolites[id].Compartment == compartment {
			out = append(out, m.metabolites[id])
		}
	}
	return out
}

// AddExchange adds a system boundary reaction EX_<id> that exchanges the
// metabolite with the environment.
func (m *Model) AddExchange(met *Metabolite) (*Reaction, error) {
	rxn := &Reaction{
		ID:          "EX_" + met.ID,
		Name:        met.Name + " exchange",
		LowerBound:  -DefaultBound,
		UpperBound:  DefaultBound,
		Metabolites: map[string]float64{met.ID: -1.0},
	}
	if err := m.AddReaction(rxn); err != nil {
		return nil, err
	}
	return rxn, nil
}

// AddSink adds a system boundary reaction SK_<id> that drains the metabolite.
func (m *Model) AddSink(met *Metabolite) (*Reaction, error) {
	rxn := &Reaction{
		ID:          "SK_" + met.ID,
		Name:        met.Name + " sink",
		LowerBound:  -DefaultBound,
		UpperBound:  DefaultBound,
		Metabolites: map[string]float64{met.ID: -1.0},
	}
	if err := m.AddReaction(rxn); err != nil {
		return nil, err
	}
	return rxn, nil
}

// Summary returns a one-line description of the model size.
func (m *Model) Summary() string {
	return fmt.Sprintf("model %s with %d reactions, %d metabolites, %d genes, %d compartments",
		m.ID, len(m.reactions), len(m.metabolites), len(m.genes), len(m.Compartments))
}

// BuildReactionString renders the reaction equation using metabolite names
// when available.
func (m *Model) BuildReactionString(rxn *Reaction) string {
	var reactants, products []string
	ids := make([]string, 0, len(rxn.Metabolites))
	for id := range rxn.Metabolites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		coeff := rxn.Metabolites[id]
		name := id
		if met := m.metabolites[id]; met != nil && met.Name != "" {
			name = met.Name
		}
		term := name
		if c := coeff; c != 1.0 && c != -1.0 {
			if c < 0 {
				c = -c
			}
			term = fmt.Sprintf("%g %s", c, name)
		}
		if coeff < 0 {
			reactants = append(reactants, term)
		} else {
			products = append(products, term)
		}
	}
	arrow := "<=>"
	switch {
	case rxn.LowerBound >= 0 && rxn.UpperBound > 0:
		arrow = "-->"
	case rxn.LowerBound < 0 && rxn.UpperBound <= 0:
		arrow = "<--"
	}
	return strings.Join(reactants, " + ") + " " + arrow + " " + strings.Join(products, " + ")
}
