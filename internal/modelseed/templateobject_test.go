package modelseed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testTemplateObject() *TemplateObject {
	return &TemplateObject{
		ID:   "GramNegative",
		Name: "Gram negative template",
		Compartments: []TemplateCompartment{
			{ID: "e", Name: "Extracellular", Index: "1", PH: 7},
			{ID: "c", Name: "Cytosol", Index: "0", PH: 7},
		},
		Compounds: []TemplateCompound{
			{ID: "cpd00002", Name: "ATP", Formula: "C10H13N5O13P3"},
			{ID: "cpd00001", Name: "H2O", Formula: "H2O"},
		},
		CompCompounds: []TemplateCompCompound{
			{ID: "cpd00001_c", CompoundRef: "~/compounds/id/cpd00001",
				CompartmentRef: "~/compartments/id/c"},
			{ID: "cpd00002_c", Charge: -3, CompoundRef: "~/compounds/id/cpd00002",
				CompartmentRef: "~/compartments/id/c"},
		},
		Reactions: []TemplateModelReaction{
			{
				ID: "rxn00001_c", Name: "ATP phosphohydrolase", Direction: ">",
				GapfillDirection: "=", Type: "conditional", BaseCost: 1000,
				ComplexRefs: []string{"~/complexes/id/cpx00001"},
				Reagents: []TemplateReagent{
					{CompCompoundRef: "~/compcompounds/id/cpd00001_c", Coefficient: -1},
					{CompCompoundRef: "~/compcompounds/id/cpd00002_c", Coefficient: -1},
				},
			},
		},
		Complexes: []TemplateModelComplex{
			{ID: "cpx00001", Name: "cpx00001", Source: "ModelSEED", Confidence: 1,
				Roles: []TemplateComplexRole{
					{RoleRef: "~/roles/id/role00002", Optional: 0, Triggering: 1},
					{RoleRef: "~/roles/id/role00001", Optional: 0, Triggering: 1},
				}},
		},
		Roles: []TemplateModelRole{
			{ID: "role00002", Name: "Glucose transporter", Source: "ModelSEED"},
			{ID: "role00001", Name: "ATP synthase", Source: "ModelSEED",
				Features: []string{"fig|226186.12.peg.1"}},
		},
		Biomasses: []TemplateModelBiomass{
			{ID: "bio1", Name: "Gram negative biomass", Type: "growth", Energy: 40,
				Components: []TemplateBiomassComponent{
					{CompCompoundRef: "~/compcompounds/id/cpd00002_c", Class: "energy",
						Coefficient: -1, CoefficientType: "MULTIPLIER",
						LinkedCompoundRefs: []string{"~/compcompounds/id/cpd00001_c"},
						LinkCoefficients:   []flexFloat{1}},
				}},
		},
	}
}

func TestComplexAndRoleMaps(t *testing.T) {
	template := testTemplateObject()

	toRoles := template.ComplexesToRoles()
	roles, ok := toRoles["cpx00001"]
	if !ok || len(roles) != 2 || roles[0] != "role00002" || roles[1] != "role00001" {
		t.Errorf("complex roles = %v", toRoles)
	}

	toComplexes := template.ReactionsToComplexes()
	complexes, ok := toComplexes["rxn00001_c"]
	if !ok || len(complexes) != 1 || complexes[0] != "cpx00001" {
		t.Errorf("reaction complexes = %v", toComplexes)
	}
}

func TestUniversalModelUnknownCompound(t *testing.T) {
	template := testTemplateObject()
	template.CompCompounds[1].CompoundRef = "~/compounds/id/cpd99999"
	if _, err := template.UniversalModel(IDTypeModelSEED); err == nil {
		t.Error("unknown compound reference was accepted")
	}
}

func readSourceFile(t *testing.T, folder, name string) []string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(folder, name))
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}

func TestSaveSourceFiles(t *testing.T) {
	folder := t.TempDir()
	if err := testTemplateObject().SaveSourceFiles(folder); err != nil {
		t.Fatal(err)
	}

	roles := readSourceFile(t, folder, "roles.tsv")
	if len(roles) != 3 {
		t.Fatalf("roles.tsv has %d lines", len(roles))
	}
	// Entries are sorted by ID regardless of the order in the object.
	if !strings.HasPrefix(roles[1], "role00001\tATP synthase\tModelSEED\tfig|226186.12.peg.1\t") {
		t.Errorf("roles line = %q", roles[1])
	}
	if !strings.Contains(roles[2], "\tnull\tnull") {
		t.Errorf("roles line = %q", roles[2])
	}

	complexes := readSourceFile(t, folder, "complexes.tsv")
	if len(complexes) != 2 {
		t.Fatalf("complexes.tsv has %d lines", len(complexes))
	}
	wantLinks := "role00002;triggering;0;1|role00001;triggering;0;1"
	if !strings.HasSuffix(complexes[1], wantLinks) {
		t.Errorf("complexes line = %q", complexes[1])
	}

	compartments := readSourceFile(t, folder, "compartments.tsv")
	if compartments[1] != "0\tc\tCytosol\t0\t7\tnull" {
		t.Errorf("compartments line = %q", compartments[1])
	}

	reactions := readSourceFile(t, folder, "reactions.tsv")
	want := "rxn00001\tc|e\t>\t=\tconditional\t1000\t0\t0\tcpx00001"
	if reactions[1] != want {
		t.Errorf("reactions line = %q, want %q", reactions[1], want)
	}

	biomasses := readSourceFile(t, folder, "biomasses.tsv")
	if !strings.HasPrefix(biomasses[1], "bio1\tGram negative biomass\tgrowth\t") ||
		!strings.HasSuffix(biomasses[1], "\t40") {
		t.Errorf("biomasses line = %q", biomasses[1])
	}

	components := readSourceFile(t, folder, "biomass_metabolites.tsv")
	if components[1] != "bio1\tcpd00002_0\t-1\tMULTIPLIER\tenergy\tcpd00001_0:1\tc" {
		t.Errorf("components line = %q", components[1])
	}
}
