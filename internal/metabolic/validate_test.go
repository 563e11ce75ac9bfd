package metabolic

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	m := testModel(t)
	transport := &Reaction{
		ID:          "GLCt",
		LowerBound:  -DefaultBound,
		UpperBound:  DefaultBound,
		Metabolites: map[string]float64{"glc_e": -1, "glc_c": 1},
	}
	if err := m.AddReaction(transport); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddExchange(m.Metabolite("glc_e")); err != nil {
		t.Fatal(err)
	}
	if warnings := m.Validate(); len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestValidateUnbalanced(t *testing.T) {
	m := testModel(t)
	rxn := &Reaction{
		ID:         "HEX1_nohydrogen",
		UpperBound: DefaultBound,
		Metabolites: map[string]float64{
			"glc_c": -1, "atp_c": -1, "g6p_c": 1, "adp_c": 1,
		},
	}
	if err := m.AddReaction(rxn); err != nil {
		t.Fatal(err)
	}
	warnings := m.Validate()
	if len(warnings) != 1 || warnings[0].ReactionID != "HEX1_nohydrogen" {
		t.Fatalf("warnings = %v", warnings)
	}
	if !strings.Contains(warnings[0].String(), "unbalanced") {
		t.Errorf("warning = %q", warnings[0].String())
	}
}

func TestValidateNoTransport(t *testing.T) {
	m := testModel(t)
	if _, err := m.AddExchange(m.Metabolite("glc_e")); err != nil {
		t.Fatal(err)
	}
	warnings := m.Validate()
	if len(warnings) != 1 || warnings[0].ReactionID != "EX_glc_e" {
		t.Fatalf("warnings = %v", warnings)
	}
	if !strings.Contains(warnings[0].Message, "no transport reactions") {
		t.Errorf("warning = %q", warnings[0].Message)
	}
}
