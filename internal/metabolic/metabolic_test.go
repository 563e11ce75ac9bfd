package metabolic

import (
	"strings"
	"testing"
)

func testModel(t *testing.T) *Model {
	t.Helper()
	m := NewModel("test", "Test organism")
	m.Compartments["c"] = "Cytosol"
	m.Compartments["e"] = "Extracellular"
	mets := []*Metabolite{
		{ID: "glc_c", Name: "Glucose", Formula: "C6H12O6", Compartment: "c"},
		{ID: "glc_e", Name: "Glucose", Formula: "C6H12O6", Compartment: "e"},
		{ID: "atp_c", Name: "ATP", Formula: "C10H12N5O13P3", Charge: -4, Compartment: "c"},
		{ID: "adp_c", Name: "ADP", Formula: "C10H12N5O10P2", Charge: -3, Compartment: "c"},
		{ID: "g6p_c", Name: "Glucose-6-phosphate", Formula: "C6H11O9P", Charge: -2, Compartment: "c"},
		{ID: "h_c", Name: "H+", Formula: "H", Charge: 1, Compartment: "c"},
	}
	for _, met := range mets {
		if err := m.AddMetabolite(met); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

func TestAddMetabolite(t *testing.T) {
	m := testModel(t)
	if m.NumMetabolites() != 6 {
		t.Errorf("got %d metabolites", m.NumMetabolites())
	}
	if err := m.AddMetabolite(&Metabolite{ID: "glc_c"}); err == nil {
		t.Error("duplicate metabolite was accepted")
	}
	if got := m.Metabolite("atp_c"); got == nil || got.Charge != -4 {
		t.Errorf("atp_c = %+v", got)
	}
	if m.Metabolite("nothere") != nil {
		t.Error("missing metabolite was found")
	}

	order := m.Metabolites()
	if order[0].ID != "glc_c" || order[5].ID != "h_c" {
		t.Error("metabolites are not in insertion order")
	}

	inCytosol := m.MetabolitesInCompartment("c")
	if len(inCytosol) != 5 {
		t.Errorf("got %d cytosol metabolites", len(inCytosol))
	}
	if len(m.MetabolitesInCompartment("e")) != 1 {
		t.Error("extracellular metabolite count is wrong")
	}
}

func TestAddReaction(t *testing.T) {
	m := testModel(t)
	hex := &Reaction{
		ID:         "HEX1",
		Name:       "Hexokinase",
		LowerBound: 0,
		UpperBound: DefaultBound,
		Metabolites: map[string]float64{
			"glc_c": -1, "atp_c": -1, "g6p_c": 1, "adp_c": 1, "h_c": 1,
		},
		GeneRule: "b2388",
	}
	if err := m.AddReaction(hex); err != nil {
		t.Fatal(err)
	}
	if err := m.AddReaction(hex); err == nil {
		t.Error("duplicate reaction was accepted")
	}
	bad := &Reaction{ID: "BAD", Metabolites: map[string]float64{"nothere": -1}}
	if err := m.AddReaction(bad); err == nil {
		t.Error("reaction with unknown metabolite was accepted")
	}
	if m.NumReactions() != 1 {
		t.Errorf("got %d reactions", m.NumReactions())
	}
	if hex.Boundary() {
		t.Error("multi metabolite reaction reported as boundary")
	}

	hex.SetNote("subsystem", "Glycolysis")
	if hex.Notes["subsystem"] != "Glycolysis" {
		t.Errorf("notes = %v", hex.Notes)
	}
}

func TestAddExchangeAndSink(t *testing.T) {
	m := testModel(t)
	exchange, err := m.AddExchange(m.Metabolite("glc_e"))
	if err != nil {
		t.Fatal(err)
	}
	if exchange.ID != "EX_glc_e" || !exchange.Boundary() {
		t.Errorf("exchange = %+v", exchange)
	}
	if exchange.LowerBound != -DefaultBound || exchange.UpperBound != DefaultBound {
		t.Errorf("bounds = %g, %g", exchange.LowerBound, exchange.UpperBound)
	}
	if exchange.Metabolites["glc_e"] != -1 {
		t.Errorf("metabolites = %v", exchange.Metabolites)
	}

	sink, err := m.AddSink(m.Metabolite("g6p_c"))
	if err != nil {
		t.Fatal(err)
	}
	if sink.ID != "SK_g6p_c" || sink.Name != "Glucose-6-phosphate sink" {
		t.Errorf("sink = %+v", sink)
	}
	if _, err := m.AddExchange(m.Metabolite("glc_e")); err == nil {
		t.Error("duplicate exchange was accepted")
	}
}

func TestAddGene(t *testing.T) {
	m := testModel(t)
	first := m.AddGene("b2388", "hexokinase")
	again := m.AddGene("b2388", "other name")
	if first != again || again.Name != "hexokinase" {
		t.Error("existing gene was replaced")
	}
	m.AddGene("b1101", "")
	if m.NumGenes() != 2 {
		t.Errorf("got %d genes", m.NumGenes())
	}
	if m.Gene("b2388") == nil || m.Gene("nothere") != nil {
		t.Error("gene lookup failed")
	}
}

func TestSummary(t *testing.T) {
	m := testModel(t)
	summary := m.Summary()
	if !strings.Contains(summary, "test") || !strings.Contains(summary, "6 metabolites") {
		t.Errorf("summary = %q", summary)
	}
}

func TestBuildReactionString(t *testing.T) {
	m := testModel(t)
	rxn := &Reaction{
		ID:         "HEX1",
		LowerBound: 0,
		UpperBound: DefaultBound,
		Metabolites: map[string]float64{
			"glc_c": -1, "atp_c": -2, "g6p_c": 1,
		},
	}
	if err := m.AddReaction(rxn); err != nil {
		t.Fatal(err)
	}
	got := m.BuildReactionString(rxn)
	want := "2 ATP + Glucose --> Glucose-6-phosphate"
	if got != want {
		t.Errorf("reaction string = %q, want %q", got, want)
	}

	rxn.LowerBound = -DefaultBound
	if got := m.BuildReactionString(rxn); !strings.Contains(got, "<=>") {
		t.Errorf("reversible arrow missing in %q", got)
	}
	rxn.UpperBound = 0
	if got := m.BuildReactionString(rxn); !strings.Contains(got, "<--") {
		t.Errorf("reverse arrow missing in %q", got)
	}
}
