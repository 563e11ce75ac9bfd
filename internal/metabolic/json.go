package metabolic

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// The JSON layout matches the format used by common analysis tools, so an
// exported model can be loaded elsewhere without conversion.

type jsonMetabolite struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Compartment string            `json:"compartment"`
	Formula     string            `json:"formula,omitempty"`
	Charge      float64           `json:"charge"`
	Notes       map[string]string `json:"notes,omitempty"`
}

type jsonReaction struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	Metabolites          map[string]float64 `json:"metabolites"`
	LowerBound           float64            `json:"lower_bound"`
	UpperBound           float64            `json:"upper_bound"`
	GeneRule             string             `json:"gene_reaction_rule"`
	ObjectiveCoefficient float64            `json:"objective_coefficient,omitempty"`
	Notes                map[string]string  `json:"notes,omitempty"`
}

type jsonGene struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type jsonModel struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Compartments map[string]string `json:"compartments"`
	Metabolites  []jsonMetabolite  `json:"metabolites"`
	Reactions    []jsonReaction    `json:"reactions"`
	Genes        []jsonGene        `json:"genes"`
}

// WriteJSON writes the model to w in the interchange JSON format. Metabolites,
// reactions, and genes keep their insertion order.
func (m *Model) WriteJSON(w io.Writer) error {
	out := jsonModel{
		ID:           m.ID,
		Name:         m.Name,
		Version:      "1",
		Compartments: m.Compartments,
		Metabolites:  make([]jsonMetabolite, 0, len(m.metaboliteOrder)),
		Reactions:    make([]jsonReaction, 0, len(m.reactionOrder)),
		Genes:        make([]jsonGene, 0, len(m.geneOrder)),
	}
	for _, met := range m.Metabolites() {
		out.Metabolites = append(out.Metabolites, jsonMetabolite{
			ID:          met.ID,
			Name:        met.Name,
			Compartment: met.Compartment,
			Formula:     met.Formula,
			Charge:      met.Charge,
			Notes:       met.Notes,
		})
	}
	for _, rxn := range m.Reactions() {
		out.Reactions = append(out.Reactions, jsonReaction{
			ID:                   rxn.ID,
			Name:                 rxn.Name,
			Metabolites:          rxn.Metabolites,
			LowerBound:           rxn.LowerBound,
			UpperBound:           rxn.UpperBound,
			GeneRule:             rxn.GeneRule,
			ObjectiveCoefficient: m.Objective[rxn.ID],
			Notes:                rxn.Notes,
		})
	}
	for _, id := range m.geneOrder {
		out.Genes = append(out.Genes, jsonGene{ID: id, Name: m.genes[id].Name})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("encode model %s: %w", m.ID, err)
	}
	return nil
}

// SaveJSON writes the model to a file in the interchange JSON format.
func (m *Model) SaveJSON(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := m.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
