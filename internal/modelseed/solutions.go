package modelseed

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// flexFloat decodes a JSON number that some services transmit as a string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("value %s is not a number", string(data))
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("value %q is not a number", s)
	}
	*f = flexFloat(v)
	return nil
}

// FluxBounds is the flux value and bounds for one variable in a flux
// balance analysis solution.
type FluxBounds struct {
	Value      float64
	LowerBound float64
	UpperBound float64
}

// FBASolution is one completed flux balance analysis for a model. A model
// object has no exchange reactions, so flux values for metabolites in the
// extracellular compartment are reported per compound: a positive flux means
// the metabolite is consumed and a negative flux means it is produced.
type FBASolution struct {
	ID                string    `json:"id"`
	MediaRef          string    `json:"media_ref"`
	Objective         flexFloat `json:"objective"`
	ObjectiveFunction string    `json:"objective_function"`
	Ref               string    `json:"ref"`
	Rundate           string    `json:"rundate"`

	// Exchanges and Reactions are keyed by compound and reaction ID and are
	// filled in from the referenced fba object.
	Exchanges map[string]FluxBounds `json:"-"`
	Reactions map[string]FluxBounds `json:"-"`
}

// fbaVariables is the portion of an fba object holding the flux values.
type fbaVariables struct {
	CompoundVariables []struct {
		CompoundRef string    `json:"modelcompound_ref"`
		Value       flexFloat `json:"value"`
		LowerBound  flexFloat `json:"lowerBound"`
		UpperBound  flexFloat `json:"upperBound"`
	} `json:"FBACompoundVariables"`
	ReactionVariables []struct {
		ReactionRef string    `json:"modelreaction_ref"`
		Value       flexFloat `json:"value"`
		LowerBound  flexFloat `json:"lowerBound"`
		UpperBound  flexFloat `json:"upperBound"`
	} `json:"FBAReactionVariables"`
}

// attachFluxes fills in the exchange and reaction flux maps of a solution
// from the raw fba object data.
func (s *FBASolution) attachFluxes(data []byte) error {
	var vars fbaVariables
	if err := json.Unmarshal(data, &vars); err != nil {
		return fmt.Errorf("decode fba object %s: %w", s.Ref, err)
	}
	s.Exchanges = make(map[string]FluxBounds, len(vars.CompoundVariables))
	for _, v := range vars.CompoundVariables {
		s.Exchanges[lastRefElement(v.CompoundRef)] = FluxBounds{
			Value:      float64(v.Value),
			LowerBound: float64(v.LowerBound),
			UpperBound: float64(v.UpperBound),
		}
	}
	s.Reactions = make(map[string]FluxBounds, len(vars.ReactionVariables))
	for _, v := range vars.ReactionVariables {
		s.Reactions[lastRefElement(v.ReactionRef)] = FluxBounds{
			Value:      float64(v.Value),
			LowerBound: float64(v.LowerBound),
			UpperBound: float64(v.UpperBound),
		}
	}
	return nil
}

// sortSolutionsByRundate orders solutions so the last completed one is
// first.
func sortFBASolutions(solutions []*FBASolution) {
	sort.SliceStable(solutions, func(i, j int) bool {
		return solutions[i].Rundate > solutions[j].Rundate
	})
}

// GapfillReaction describes one reaction in a gap fill solution.
type GapfillReaction struct {
	Reaction    string `json:"reaction"`
	Direction   string `json:"direction"`
	Compartment string `json:"compartment"`
}

// GapfillSolution is one completed gap fill for a model.
type GapfillSolution struct {
	ID                 string    `json:"id"`
	Integrated         flexFloat `json:"integrated"`
	IntegratedSolution flexFloat `json:"integrated_solution"`
	MediaRef           string    `json:"media_ref"`
	Ref                string    `json:"ref"`
	Rundate            string    `json:"rundate"`

	// SolutionReactions is the raw solution data from the service; only the
	// first element is ever populated.
	SolutionReactions [][]GapfillReaction `json:"solution_reactions"`

	// Reactions is keyed by reaction ID in the requested ID format.
	Reactions map[string]GapfillReaction `json:"-"`
}

// convertGapfillSolutions converts the raw solution reaction lists to maps
// keyed by reaction ID and sorts the solutions so the last completed gap
// fill is first.
func convertGapfillSolutions(solutions []*GapfillSolution, idType string) []*GapfillSolution {
	for _, sol := range solutions {
		sol.Reactions = make(map[string]GapfillReaction)
		if len(sol.SolutionReactions) == 0 {
			continue
		}
		for _, rxn := range sol.SolutionReactions[0] {
			rxn.Compartment = convertCompartmentID(rxn.Compartment, idType)
			id := RemoveSuffix(lastRefElement(rxn.Reaction)) + "_" + rxn.Compartment
			sol.Reactions[id] = rxn
		}
		sol.SolutionReactions = nil
	}
	sort.SliceStable(solutions, func(i, j int) bool {
		return solutions[i].Rundate > solutions[j].Rundate
	})
	return solutions
}
