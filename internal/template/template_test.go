package template

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const universalMetaboliteSource = "id\tformula\tname\tcharge\tabbreviation\tsource\tstructure\tpka\tpkb\tmass\tdeltag\tdeltagerr\taliases\tis_core\tis_cofactor\tis_obsolete\tlinked_compound\n" +
	"cpd00001\tH2O\tH2O\t0\th2o\tModelSEED\tnull\tnull\tnull\t18\t-56.7\t0.5\tnull\t1\t0\t0\tnull\n" +
	"cpd00002\tC10H13N5O13P3\tATP\t-3\tatp\tModelSEED\tnull\tnull\tnull\t504\t-673.9\t1.5\tnull\t1\t0\t0\tnull\n" +
	"cpd00008\tC10H13N5O10P2\tADP\t-2\tadp\tModelSEED\tnull\tnull\tnull\t424\t-465.4\t1.2\tnull\t1\t0\t0\tnull\n" +
	"cpd00009\tHPO4\tPhosphate\t-2\tpi\tModelSEED\tnull\tnull\tnull\t96\t-260.9\t0.3\tnull\t1\t0\t0\tnull\n" +
	"cpd00067\tH\tH+\t1\th\tModelSEED\tnull\tnull\tnull\t1\t0\t0\tnull\t1\t0\t0\tnull\n" +
	"cpd00027\tC6H12O6\tD-Glucose\t0\tglc\tModelSEED\tnull\tnull\tnull\t180\t-219.5\t0.6\tnull\t1\t0\t0\tnull\n" +
	"cpd11416\tnull\tBiomass\t0\tbiom\tModelSEED\tnull\tnull\tnull\tnull\t0\t0\tnull\t0\t0\t0\tnull\n" +
	"cpd99999\tC\tObsolete compound\t0\tobs\tModelSEED\tnull\tnull\tnull\t12\t0\t0\tnull\t0\t0\t1\tnull\n"

const universalReactionSource = "id\tname\tabbreviation\tcode\tstoichiometry\tdirection\treversibility\tstatus\tdeltag\tdeltagerr\taliases\tlinked_reaction\tis_obsolete\tis_transport\n" +
	"rxn00001\tATP hydrolysis\tatph\tnull\t" +
	`-1:cpd00001:0:0:"H2O";-1:cpd00002:0:0:"ATP";1:cpd00008:0:0:"ADP";1:cpd00009:0:0:"Phosphate";1:cpd00067:0:0:"H+"` +
	"\t=\t=\tOK\t-10.5\t1.0\tnull\tnull\t0\t0\n" +
	"rxn05145\tD-Glucose transport\tglct\tnull\t" +
	`-1:cpd00027:1:0:"D-Glucose";1:cpd00027:0:0:"D-Glucose"` +
	"\t>\t>\tOK\t0\t0\tnull\tnull\t0\t1\n" +
	"rxn99999\tObsolete reaction\tobs\tnull\t" +
	`-1:cpd00001:0:0:"H2O"` +
	"\t=\t=\tOK\t0\t0\tnull\tnull\t1\t0\n" +
	"rxn88888\tEmpty reaction\temp\tnull\tnull\t=\t=\tEMPTY\t0\t0\tnull\tnull\t0\t0\n"

const compartmentSource = "id\tname\tindex\n" +
	"c\tCytosol\t0\n" +
	"e\tExtracellular\t1\n"

const roleSource = "id\tname\tsource\tfeatures\taliases\n" +
	"role00001\tATP synthase (EC 3.6.3.14)\tModelSEED\tnull\tnull\n" +
	"role00002\tGlucose transporter\tModelSEED\tnull\tnull\n"

const complexSource = "id\tname\tsource\treference\tconfidence\troles\n" +
	"cpx00001\tATP synthase complex\tModelSEED\tnull\t1\trole00001;role_mapping;0;1\n" +
	"cpx00002\tGlucose transporter complex\tModelSEED\tnull\t1\trole00002;role_mapping;0;1\n"

const templateReactionSource = "id\tcompartment\tdirection\tgfdir\ttype\tbase_cost\tforward_cost\treverse_cost\tcomplexes\n" +
	"rxn00001\tc\t=\t=\tconditional\t1\t1\t1\tcpx00001\n" +
	"rxn05145\tc|e\t>\t>\tconditional\t1\t1\t1\tcpx00002\n" +
	"rxn77777\tc\t=\t=\tconditional\t1\t1\t1\tnull\n"

const biomassSource = "id\tname\ttype\tother\tdna\trna\tprotein\tlipid\tcellwall\tcofactor\tenergy\n" +
	"bio1\tBacterial biomass\tgrowth\t0\t0\t0\t0\t0\t0\t0\t40\n"

const biomassComponentSource = "biomass_id\tid\tcoefficient\tcoefficient_type\tclass\tlinked_compounds\tcompartment\n" +
	"bio1\tcpd00001\t-1\tMULTIPLIER\tenergy\tnull\tc\n" +
	"bio1\tcpd00002\t-1\tMULTIPLIER\tenergy\tnull\tc\n" +
	"bio1\tcpd00008\t1\tMULTIPLIER\tenergy\tnull\tc\n" +
	"bio1\tcpd00009\t1\tMULTIPLIER\tenergy\tnull\tc\n" +
	"bio1\tcpd00067\t1\tMULTIPLIER\tenergy\tnull\tc\n" +
	"bio1\tcpd11416\t1\tEXACT\tother\tnull\tc\n"

func writeSourceFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func testFolders(t *testing.T) (universalFolder, templateFolder string) {
	t.Helper()
	universalFolder = t.TempDir()
	writeSourceFile(t, universalFolder, "metabolites.tsv", universalMetaboliteSource)
	writeSourceFile(t, universalFolder, "reactions.tsv", universalReactionSource)

	templateFolder = t.TempDir()
	writeSourceFile(t, templateFolder, "compartments.tsv", compartmentSource)
	writeSourceFile(t, templateFolder, "roles.tsv", roleSource)
	writeSourceFile(t, templateFolder, "complexes.tsv", complexSource)
	writeSourceFile(t, templateFolder, "reactions.tsv", templateReactionSource)
	writeSourceFile(t, templateFolder, "biomasses.tsv", biomassSource)
	writeSourceFile(t, templateFolder, "biomass_metabolites.tsv", biomassComponentSource)
	return universalFolder, templateFolder
}

func loadTestTemplate(t *testing.T) *Template {
	t.Helper()
	universalFolder, templateFolder := testFolders(t)
	tpl, err := Load("test", "Test template", "growth", "Bacteria", universalFolder, templateFolder)
	if err != nil {
		t.Fatal(err)
	}
	return tpl
}

func TestMakeSearchName(t *testing.T) {
	cases := []struct{ name, want string }{
		{"ATP synthase (EC 3.6.3.14)", "atpsynthase"},
		{"NAD(P)H dehydrogenase", "nad{p}hdehydrogenase"},
		{"Na(+)-translocating decarboxylase (TC 3.B.1.1.1)", "na+translocatingdecarboxylase"},
		{"Hypothetical protein # some comment", "hypotheticalprotein"},
	}
	for _, c := range cases {
		if got := MakeSearchName(c.name); got != c.want {
			t.Errorf("MakeSearchName(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestNewFeature(t *testing.T) {
	f := NewFeature("fig|83333.1.peg.1",
		"Alcohol dehydrogenase (EC 1.1.1.1) / Acetaldehyde dehydrogenase (EC 1.2.1.10) # cytosolic")
	if f.ID != "fig.83333.1.peg.1" {
		t.Errorf("ID = %q", f.ID)
	}
	if len(f.Roles) != 2 {
		t.Fatalf("got %d roles: %v", len(f.Roles), f.Roles)
	}
	if f.SearchRoles[0] != "alcoholdehydrogenase" {
		t.Errorf("search role = %q", f.SearchRoles[0])
	}
	if len(f.Compartments) != 1 || f.Compartments[0] != "c" {
		t.Errorf("compartments = %v", f.Compartments)
	}
	if len(f.ECNumbers) != 2 || f.ECNumbers[0] != "1.1.1.1" || f.ECNumbers[1] != "1.2.1.10" {
		t.Errorf("EC numbers = %v", f.ECNumbers)
	}
}

func TestNewFeatureDefaultCompartment(t *testing.T) {
	f := NewFeature("fig|83333.1.peg.2", "Glucose transporter")
	if len(f.Compartments) != 1 || f.Compartments[0] != "u" {
		t.Errorf("compartments = %v", f.Compartments)
	}
	if f.Comment != "none" {
		t.Errorf("comment = %q", f.Comment)
	}
}

func TestReadUniversalAndResolve(t *testing.T) {
	universalFolder, _ := testFolders(t)
	compounds, err := ReadUniversalMetabolites(filepath.Join(universalFolder, "metabolites.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	if compounds.Get("cpd99999_0") != nil {
		t.Error("obsolete compound was not skipped")
	}
	if compounds.Len() != 7 {
		t.Errorf("got %d compounds", compounds.Len())
	}
	water := compounds.Get("cpd00001_0")
	if water == nil || water.Mass != 18 || water.Formula != "H2O" {
		t.Errorf("water = %+v", water)
	}

	reactions, err := ReadUniversalReactions(filepath.Join(universalFolder, "reactions.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	if reactions.Get("rxn99999") != nil || reactions.Get("rxn88888") != nil {
		t.Error("obsolete or empty reaction was not skipped")
	}
	if err := ResolveReactions(reactions, compounds); err != nil {
		t.Fatal(err)
	}

	atph := reactions.Get("rxn00001")
	if atph.LowerBound != -1000 || atph.UpperBound != 1000 {
		t.Errorf("bounds = %g, %g", atph.LowerBound, atph.UpperBound)
	}
	if len(atph.Metabolites) != 5 || atph.Metabolites["cpd00002_0"] != -1 || atph.Metabolites["cpd00008_0"] != 1 {
		t.Errorf("metabolites = %v", atph.Metabolites)
	}

	transport := reactions.Get("rxn05145")
	if transport.LowerBound != 0 || transport.UpperBound != 1000 {
		t.Errorf("transport bounds = %g, %g", transport.LowerBound, transport.UpperBound)
	}
	if compounds.Get("cpd00027_1") == nil {
		t.Error("compound copy for compartment 1 was not added")
	}
}

func TestLoadTemplate(t *testing.T) {
	tpl := loadTestTemplate(t)
	if tpl.Reactions.Len() != 2 {
		t.Errorf("got %d reactions", tpl.Reactions.Len())
	}
	if len(tpl.Complexes) != 2 || len(tpl.Roles) != 2 {
		t.Errorf("got %d complexes and %d roles", len(tpl.Complexes), len(tpl.Roles))
	}
	if len(tpl.Compartments) != 2 || tpl.Compartments["1"].ModelID != "e" {
		t.Errorf("compartments = %v", tpl.Compartments)
	}
	role := tpl.Roles["role00001"]
	if len(role.ComplexIDs) != 1 || role.ComplexIDs[0] != "cpx00001" {
		t.Errorf("role complexes = %v", role.ComplexIDs)
	}
	cpx := tpl.Complexes["cpx00001"]
	if len(cpx.ReactionIDs) != 1 || cpx.ReactionIDs[0] != "rxn00001" {
		t.Errorf("complex reactions = %v", cpx.ReactionIDs)
	}
	if _, ok := tpl.Biomasses["bio1"]; !ok {
		t.Error("biomass bio1 was not added")
	}
}

func TestComplexAndReactionMaps(t *testing.T) {
	tpl := loadTestTemplate(t)
	toRoles := tpl.ComplexesToRoles()
	if len(toRoles["cpx00002"]) != 1 || toRoles["cpx00002"][0] != "role00002" {
		t.Errorf("complexes to roles = %v", toRoles)
	}
	toComplexes := tpl.ReactionsToComplexes()
	if len(toComplexes["rxn00001"]) != 1 || toComplexes["rxn00001"][0] != "cpx00001" {
		t.Errorf("reactions to complexes = %v", toComplexes)
	}
}

func TestReconstruct(t *testing.T) {
	tpl := loadTestTemplate(t)
	features := []*Feature{
		NewFeature("fig|226186.12.peg.1", "ATP synthase (EC 3.6.3.14)"),
		NewFeature("fig|226186.12.peg.2", "Glucose transporter"),
		NewFeature("fig|226186.12.peg.3", "Hypothetical protein"),
	}
	model, err := tpl.Reconstruct("226186.12", features, "bio1", "Test organism", 0.6)
	if err != nil {
		t.Fatal(err)
	}

	atph := model.Reaction("rxn00001_c")
	if atph == nil {
		t.Fatal("rxn00001_c is not in model")
	}
	if atph.GeneRule != "(fig.226186.12.peg.1)" {
		t.Errorf("gene rule = %q", atph.GeneRule)
	}
	if atph.Metabolites["cpd00002_c"] != -1 {
		t.Errorf("metabolites = %v", atph.Metabolites)
	}

	transport := model.Reaction("rxn05145_c")
	if transport == nil {
		t.Fatal("rxn05145_c is not in model")
	}
	if transport.LowerBound != 0 || transport.UpperBound != 1000 {
		t.Errorf("transport bounds = %g, %g", transport.LowerBound, transport.UpperBound)
	}
	if transport.Metabolites["cpd00027_e"] != -1 || transport.Metabolites["cpd00027_c"] != 1 {
		t.Errorf("transport metabolites = %v", transport.Metabolites)
	}

	if model.Reaction("EX_cpd00027_e") == nil {
		t.Error("exchange reaction for extracellular glucose is missing")
	}
	if model.Reaction("SK_cpd11416_c") == nil {
		t.Error("sink reaction for biomass metabolite is missing")
	}

	biomass := model.Reaction("bio1")
	if biomass == nil {
		t.Fatal("biomass reaction is not in model")
	}
	if model.Objective["bio1"] != 1.0 {
		t.Errorf("objective = %v", model.Objective)
	}
	if biomass.Metabolites["cpd00002_c"] != -40 {
		t.Errorf("biomass ATP coefficient = %g", biomass.Metabolites["cpd00002_c"])
	}
	if biomass.Metabolites["cpd11416_c"] != 1 {
		t.Errorf("biomass metabolite coefficient = %g", biomass.Metabolites["cpd11416_c"])
	}

	if model.NumGenes() != 2 {
		t.Errorf("got %d genes", model.NumGenes())
	}
	if model.Compartments["c"] != "Cytosol" || model.Compartments["e"] != "Extracellular" {
		t.Errorf("compartments = %v", model.Compartments)
	}
}

func TestReconstructNoMatches(t *testing.T) {
	tpl := loadTestTemplate(t)
	features := []*Feature{NewFeature("fig|226186.12.peg.3", "Hypothetical protein")}
	_, err := tpl.Reconstruct("226186.12", features, "bio1", "Test organism", 0.6)
	if err == nil || !strings.Contains(err.Error(), "no matches to roles") {
		t.Errorf("got error %v", err)
	}
}

func TestReconstructBadBiomass(t *testing.T) {
	tpl := loadTestTemplate(t)
	features := []*Feature{NewFeature("fig|226186.12.peg.1", "ATP synthase (EC 3.6.3.14)")}
	_, err := tpl.Reconstruct("226186.12", features, "bio9", "Test organism", 0.6)
	if err == nil || !strings.Contains(err.Error(), "bio9") {
		t.Errorf("got error %v", err)
	}
}

func TestToModel(t *testing.T) {
	tpl := loadTestTemplate(t)
	model, err := tpl.ToModel()
	if err != nil {
		t.Fatal(err)
	}
	if model.NumReactions() != 2 {
		t.Errorf("got %d reactions", model.NumReactions())
	}
	rxn := model.Reaction("rxn00001_c")
	if rxn == nil || rxn.Notes["type"] != "conditional" {
		t.Errorf("reaction = %+v", rxn)
	}
}

func TestReconstructFromLikelihoods(t *testing.T) {
	tpl := loadTestTemplate(t)
	likelihoods := map[string]float64{"rxn00001": 0.8, "rxn05145": 0.2}
	model, err := tpl.ReconstructFromLikelihoods("226186.12", likelihoods, 0.5, "bio1", "Test organism", 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if model.Reaction("rxn00001_c") == nil {
		t.Error("rxn00001_c is not in model")
	}
	if model.Reaction("rxn05145_c") != nil {
		t.Error("reaction below cutoff was included")
	}
	if model.Reaction("bio1") == nil || model.Reaction("SK_cpd11416_c") == nil {
		t.Error("biomass or sink reaction is missing")
	}

	_, err = tpl.ReconstructFromLikelihoods("226186.12", likelihoods, 0.99, "bio1", "Test organism", 0.6)
	if err == nil || !strings.Contains(err.Error(), "cutoff") {
		t.Errorf("got error %v", err)
	}
}

func TestCreateObjectiveFractions(t *testing.T) {
	biomass := &Biomass{
		ID: "bio2", Name: "Test biomass", Type: "growth",
		DNA: 0.05, Protein: 0.5, Cofactor: 0.1,
		compounds: map[string]*Compound{
			"cpdA": {ID: "cpdA_c", Mass: 331, Compartment: "c"},
			"cpdT": {ID: "cpdT_c", Mass: 322, Compartment: "c"},
			"cpdG": {ID: "cpdG_c", Mass: 347, Compartment: "c"},
			"cpdC": {ID: "cpdC_c", Mass: 307, Compartment: "c"},
			"cpdP": {ID: "cpdP_c", Mass: 100, Compartment: "c"},
			"cpdX": {ID: "cpdX_c", Mass: 400, Compartment: "c"},
			"cpdY": {ID: "cpdY_c", Mass: 600, Compartment: "c"},
		},
	}
	biomass.Components = []*BiomassComponent{
		{CompoundID: "cpdA", BiomassID: "bio2", ClassType: "dna", Coefficient: -1, CoefficientType: "AT"},
		{CompoundID: "cpdT", BiomassID: "bio2", ClassType: "dna", Coefficient: -1, CoefficientType: "AT"},
		{CompoundID: "cpdG", BiomassID: "bio2", ClassType: "dna", Coefficient: -1, CoefficientType: "GC"},
		{CompoundID: "cpdC", BiomassID: "bio2", ClassType: "dna", Coefficient: -1, CoefficientType: "GC"},
		{CompoundID: "cpdP", BiomassID: "bio2", ClassType: "protein", Coefficient: -0.5, CoefficientType: "MASSFRACTION"},
		{CompoundID: "cpdX", BiomassID: "bio2", ClassType: "cofactor", Coefficient: -1, CoefficientType: "MOLSPLIT"},
		{CompoundID: "cpdY", BiomassID: "bio2", ClassType: "cofactor", Coefficient: -1, CoefficientType: "MOLSPLIT"},
	}

	coefficients, err := biomass.CreateObjective(0.5)
	if err != nil {
		t.Fatal(err)
	}
	approx := func(name string, want float64) {
		if got := coefficients[name]; math.Abs(got-want) > 1e-4 {
			t.Errorf("coefficient %s = %g, want %g", name, got, want)
		}
	}
	// With GC content 0.5 every nucleotide has a mole fraction of 0.25, so the
	// weighted molecular weight of the dna class is 326.75.
	approx("cpdA", -0.05/326.75*0.25*1000)
	approx("cpdG", -0.05/326.75*0.25*1000)
	// A mass fraction component converts class mass to moles of the compound.
	approx("cpdP", -0.5*0.5/100*1000)
	// Mole split components share the class mass equally by moles.
	approx("cpdX", -0.1)
	approx("cpdY", -0.1)
}

func TestReadBiomassComponentErrors(t *testing.T) {
	dir := t.TempDir()
	bad := "biomass_id\tid\tcoefficient\tcoefficient_type\tclass\tlinked_compounds\tcompartment\n" +
		"bio1\tcpd00001\t-1\tMULTIPLIER\tnoclass\tnull\tc\n"
	writeSourceFile(t, dir, "components.tsv", bad)
	if _, err := ReadBiomassComponents(filepath.Join(dir, "components.tsv")); err == nil {
		t.Error("invalid class type was accepted")
	}

	bad = "biomass_id\tid\tcoefficient\tcoefficient_type\tclass\tlinked_compounds\tcompartment\n" +
		"bio1\tcpd00001\t-1\tNOTATYPE\tother\tnull\tc\n"
	writeSourceFile(t, dir, "components.tsv", bad)
	if _, err := ReadBiomassComponents(filepath.Join(dir, "components.tsv")); err == nil {
		t.Error("invalid coefficient type was accepted")
	}
}
