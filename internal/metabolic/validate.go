package metabolic

import (
	"fmt"
	"strings"
)

// ValidationWarning describes a problem found while validating a model.
type ValidationWarning struct {
	ReactionID string
	Message    string
}

func (w ValidationWarning) String() string {
	if w.ReactionID == "" {
		return w.Message
	}
	return w.ReactionID + ": " + w.Message
}

// Validate checks the model for common problems: unbalanced non-boundary
// reactions and extracellular metabolites with no transport path into the
// cytosol. It returns the list of warnings found.
func (m *Model) Validate() []ValidationWarning {
	var warnings []ValidationWarning

	for _, rxn := range m.Reactions() {
		if rxn.Boundary() {
			continue
		}
		unbalanced, err := m.CheckMassBalance(rxn)
		if err != nil {
			// Metabolites without formulas cannot be checked.
			continue
		}
		if len(unbalanced) > 0 {
			var parts []string
			for elem, v := range unbalanced {
				parts = append(parts, fmt.Sprintf("%s=%g", elem, v))
			}
			warnings = append(warnings, ValidationWarning{
				ReactionID: rxn.ID,
				Message:    "unbalanced: " + strings.Join(parts, ", "),
			})
		}
	}

	// Exchange reactions are useless without a transport reaction that moves
	// the boundary metabolite between the extracellular and cytosol
	// compartments.
	for _, rxn := range m.Reactions() {
		if !strings.HasPrefix(rxn.ID, "EX_") {
			continue
		}
		var metID string
		for id := range rxn.Metabolites {
			metID = id
		}
		numTransport := 0
		for _, other := range m.Reactions() {
			if _, ok := other.Metabolites[metID]; !ok || other.ID == rxn.ID {
				continue
			}
			compartments := make(map[string]bool)
			for id := range other.Metabolites {
				if met := m.metabolites[id]; met != nil {
					compartments[met.Compartment] = true
				}
			}
			if compartments["c"] && compartments["e"] {
				numTransport++
			}
		}
		if numTransport == 0 {
			warnings = append(warnings, ValidationWarning{
				ReactionID: rxn.ID,
				Message:    "no transport reactions for boundary metabolite " + metID,
			})
		}
	}

	return warnings
}
