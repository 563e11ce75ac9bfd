package likelihood

import (
	"math"
	"strings"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// Two query features with hits against a small target database. Scores are
// the negative log of the e-value: 50 and 40 for peg.1, 20 for peg.2.
const alignmentSource = "fig|226186.12.peg.1\ttgt1\t95.0\t400\t20\t1\t1\t400\t1\t400\t1e-50\t200\n" +
	"fig|226186.12.peg.1\ttgt2\t90.0\t400\t40\t2\t1\t400\t1\t400\t1e-40\t150\n" +
	"fig|226186.12.peg.2\ttgt3\t80.0\t300\t60\t3\t1\t300\t1\t300\t1e-20\t100\n" +
	"fig|226186.12.peg.9\ttgt1\t50.0\t100\t50\t5\t1\t100\t1\t100\t1e-3\t-5\n"

func testTargetRolesets() map[string]string {
	return map[string]string{
		"tgt1": "role00001",
		"tgt2": "role00001///role00002",
		"tgt3": "role00003",
		"tgt4": "role00004",
	}
}

func TestParseAlignments(t *testing.T) {
	scores, dropped, err := parseAlignments(strings.NewReader(alignmentSource))
	if err != nil {
		t.Fatal(err)
	}
	if dropped != 1 {
		t.Errorf("dropped %d alignments", dropped)
	}
	if len(scores) != 2 {
		t.Fatalf("got scores for %d queries", len(scores))
	}
	hits := scores["fig|226186.12.peg.1"]
	if len(hits) != 2 || hits[0].TargetID != "tgt1" {
		t.Fatalf("hits = %+v", hits)
	}
	if !almostEqual(hits[0].Score, 50) || !almostEqual(hits[1].Score, 40) {
		t.Errorf("scores = %g, %g", hits[0].Score, hits[1].Score)
	}

	if _, _, err := parseAlignments(strings.NewReader("short\tline\n")); err == nil {
		t.Error("short line was accepted")
	}
}

func TestRolesetLikelihoods(t *testing.T) {
	scores, _, err := parseAlignments(strings.NewReader(alignmentSource))
	if err != nil {
		t.Fatal(err)
	}
	rolesets, missing, err := rolesetLikelihoods(scores, testTargetRolesets(), 40.0)
	if err != nil {
		t.Fatal(err)
	}
	if missing != 0 {
		t.Errorf("missing = %d", missing)
	}

	// peg.1: denominator is 40*50 + 50^2 + 40^2 = 6100.
	byRoleset := make(map[string]float64)
	for _, value := range rolesets["fig|226186.12.peg.1"] {
		byRoleset[value.Roleset] = value.Likelihood
	}
	if !almostEqual(byRoleset["role00001"], 2500.0/6100.0) {
		t.Errorf("role00001 likelihood = %g", byRoleset["role00001"])
	}
	if !almostEqual(byRoleset["role00001///role00002"], 1600.0/6100.0) {
		t.Errorf("bifunctional likelihood = %g", byRoleset["role00001///role00002"])
	}

	// peg.2: 20^2 / (40*20 + 20^2) = 1/3.
	values := rolesets["fig|226186.12.peg.2"]
	if len(values) != 1 || !almostEqual(values[0].Likelihood, 1.0/3.0) {
		t.Errorf("peg.2 rolesets = %+v", values)
	}
}

func TestRolesetLikelihoodsMissingTarget(t *testing.T) {
	scores := map[string][]targetScore{
		"peg.1": {{TargetID: "unknown", Score: 10}},
	}
	rolesets, missing, err := rolesetLikelihoods(scores, testTargetRolesets(), 40.0)
	if err != nil {
		t.Fatal(err)
	}
	if missing != 1 {
		t.Errorf("missing = %d", missing)
	}
	if len(rolesets["peg.1"]) != 0 {
		t.Errorf("rolesets = %+v", rolesets)
	}
}

func TestRoleLikelihoods(t *testing.T) {
	rolesets := map[string][]RolesetLikelihood{
		"peg.1": {
			{Roleset: "role00001", Likelihood: 0.4},
			{Roleset: "role00001///role00002", Likelihood: 0.25},
		},
	}
	roles := roleLikelihoods(rolesets, "///")
	if len(roles) != 2 {
		t.Fatalf("roles = %+v", roles)
	}
	// Both rolesets carry role00001 so their likelihoods add.
	if roles[0].Role != "role00001" || !almostEqual(roles[0].Likelihood, 0.65) {
		t.Errorf("role00001 = %+v", roles[0])
	}
	if roles[1].Role != "role00002" || !almostEqual(roles[1].Likelihood, 0.25) {
		t.Errorf("role00002 = %+v", roles[1])
	}
}

func TestTotalRoleLikelihoods(t *testing.T) {
	roles := []RoleLikelihood{
		{QueryID: "peg.1", Role: "role00001", Likelihood: 0.9},
		{QueryID: "peg.2", Role: "role00001", Likelihood: 0.8},
		{QueryID: "peg.3", Role: "role00001", Likelihood: 0.1},
		{QueryID: "peg.4", Role: "role00002", Likelihood: 0.5},
	}
	totals := totalRoleLikelihoods(roles, 80.0)

	// peg.3 is below 80% of the maximum and is left out of the GPR.
	total := totals["role00001"]
	if !almostEqual(total.Likelihood, 0.9) {
		t.Errorf("likelihood = %g", total.Likelihood)
	}
	if total.GPR != "(peg.1 or peg.2)" {
		t.Errorf("GPR = %q", total.GPR)
	}

	// A single gene gets no grouping parentheses.
	if totals["role00002"].GPR != "peg.4" {
		t.Errorf("GPR = %q", totals["role00002"].GPR)
	}
}

func TestComplexLikelihoods(t *testing.T) {
	totals := map[string]TotalRole{
		"role00001": {Likelihood: 0.65, GPR: "peg.1"},
		"role00002": {Likelihood: 0.25, GPR: "peg.1"},
		"role00003": {Likelihood: 1.0 / 3.0, GPR: "peg.2"},
	}
	complexesToRoles := map[string][]string{
		"cpx1": {"role00001", "role00002"},
		"cpx2": {"role00003", "role00004"},
		"cpx3": {"role00005"},
		"cpx4": {"role00004"},
	}
	var stats Statistics
	complexes := complexLikelihoods(totals, complexesToRoles, testTargetRolesets(), "///", &stats)

	full := complexes["cpx1"]
	if full.Type != ComplexFull || !almostEqual(full.Likelihood, 0.25) {
		t.Errorf("cpx1 = %+v", full)
	}
	// The two roles share a gene so the AND collapses to a single term.
	if full.GPR != "peg.1" {
		t.Errorf("cpx1 GPR = %q", full.GPR)
	}

	partial := complexes["cpx2"]
	if partial.Type != "CPLX_PARTIAL_1_of_2" || !almostEqual(partial.Likelihood, 1.0/3.0) {
		t.Errorf("cpx2 = %+v", partial)
	}
	if partial.GPR != "peg.2" || partial.UnavailRoles != "role00004" {
		t.Errorf("cpx2 = %+v", partial)
	}

	if complexes["cpx3"].Type != ComplexNoReps || complexes["cpx3"].MissingRoles != "role00005" {
		t.Errorf("cpx3 = %+v", complexes["cpx3"])
	}
	if complexes["cpx4"].Type != ComplexNotThere || complexes["cpx4"].Likelihood != 0 {
		t.Errorf("cpx4 = %+v", complexes["cpx4"])
	}

	if stats.ComplexFull != 1 || stats.ComplexPartial != 1 || stats.ComplexNoReps != 1 || stats.ComplexNotThere != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestComplexLikelihoodsAndJoin(t *testing.T) {
	totals := map[string]TotalRole{
		"role00001": {Likelihood: 0.9, GPR: "peg.1"},
		"role00003": {Likelihood: 0.5, GPR: "peg.2"},
	}
	complexesToRoles := map[string][]string{
		"cpx1": {"role00001", "role00003"},
	}
	var stats Statistics
	complexes := complexLikelihoods(totals, complexesToRoles, testTargetRolesets(), "///", &stats)
	if complexes["cpx1"].GPR != "(peg.1 and peg.2)" {
		t.Errorf("GPR = %q", complexes["cpx1"].GPR)
	}
}

func TestReactionLikelihoods(t *testing.T) {
	complexes := map[string]ComplexLikelihood{
		"cpx1": {Likelihood: 0.25, Type: ComplexFull, GPR: "peg.1"},
		"cpx2": {Likelihood: 1.0 / 3.0, Type: "CPLX_PARTIAL_1_of_2", GPR: "peg.2"},
		"cpx3": {Likelihood: 0, Type: ComplexNoReps},
	}
	reactionsToComplexes := map[string][]string{
		"rxn00001_c": {"cpx1", "cpx2"},
		"rxn00002_c": {"cpx3"},
		"rxn00003_c": {"cpx9"},
	}
	var stats Statistics
	reactions := reactionLikelihoods(complexes, reactionsToComplexes, 80.0, "///", &stats)

	rxn, ok := reactions["rxn00001_c0"]
	if !ok {
		t.Fatalf("reactions = %v", reactions)
	}
	if rxn.Type != ReactionHasComplexes || !almostEqual(rxn.Likelihood, 1.0/3.0) {
		t.Errorf("reaction = %+v", rxn)
	}
	// cpx1 at 0.25 is below 80% of the maximum so its GPR is excluded.
	if rxn.GPR != "peg.2" {
		t.Errorf("GPR = %q", rxn.GPR)
	}
	want := "cpx2 (0.3333; CPLX_PARTIAL_1_of_2)///cpx1 (0.2500; CPLX_FULL)"
	if rxn.ComplexString != want {
		t.Errorf("complex string = %q, want %q", rxn.ComplexString, want)
	}

	if zero := reactions["rxn00002_c0"]; zero.Likelihood != 0 || zero.Type != ReactionHasComplexes {
		t.Errorf("zero likelihood reaction = %+v", zero)
	}
	if none := reactions["rxn00003_c0"]; none.Type != ReactionNoComplexes {
		t.Errorf("unlinked reaction = %+v", none)
	}
	if stats.NonzeroLikelihoods != 1 || stats.ZeroLikelihoods != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ReactionsWithComplexes != 2 || stats.ReactionsWithoutComplexes != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCalculateFromAlignments(t *testing.T) {
	complexesToRoles := map[string][]string{
		"cpx1": {"role00001", "role00002"},
		"cpx2": {"role00003"},
	}
	reactionsToComplexes := map[string][]string{
		"rxn00001_c": {"cpx1"},
		"rxn00002_c": {"cpx2"},
	}
	result := &Result{}
	err := calculateFromAlignments(result, strings.NewReader(alignmentSource), testTargetRolesets(),
		complexesToRoles, reactionsToComplexes, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	// role00001 collects both of peg.1's rolesets: (2500+1600)/6100.
	if !almostEqual(result.TotalRoles["role00001"].Likelihood, 4100.0/6100.0) {
		t.Errorf("role00001 = %+v", result.TotalRoles["role00001"])
	}
	rxn := result.Reactions["rxn00001_c0"]
	if !almostEqual(rxn.Likelihood, 1600.0/6100.0) || rxn.GPR != "fig|226186.12.peg.1" {
		t.Errorf("rxn00001_c0 = %+v", rxn)
	}
	if !almostEqual(result.Reactions["rxn00002_c0"].Likelihood, 1.0/3.0) {
		t.Errorf("rxn00002_c0 = %+v", result.Reactions["rxn00002_c0"])
	}
	if result.Stats.NonzeroLikelihoods != 2 {
		t.Errorf("stats = %+v", result.Stats)
	}
}
