package likelihood

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFidRoles(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "otu_fid_role.tsv")
	content := "tgt1\trole00001\n" +
		"tgt2\trole00001///role00002\n" +
		"\n" +
		"tgt3\trole00003\n"
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	rolesets, err := ReadFidRoles(filename)
	if err != nil {
		t.Fatal(err)
	}
	if len(rolesets) != 3 || rolesets["tgt2"] != "role00001///role00002" {
		t.Errorf("rolesets = %v", rolesets)
	}

	bad := filepath.Join(t.TempDir(), "bad.tsv")
	if err := os.WriteFile(bad, []byte("onlyonefield\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFidRoles(bad); err == nil {
		t.Error("malformed mapping file was accepted")
	}
}

func TestWriteQueryFasta(t *testing.T) {
	features := []Feature{
		{ID: "fig|226186.12.peg.1", Sequence: "MKLV"},
		{ID: "fig|226186.12.rna.1"},
		{ID: "fig|226186.12.peg.2", Sequence: "MTTA"},
	}
	filename := filepath.Join(t.TempDir(), "query.faa")
	n, err := writeQueryFasta(features, filename)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("wrote %d proteins", n)
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), ">fig|226186.12.peg.1\nMKLV\n") {
		t.Errorf("fasta content = %q", string(content))
	}
	if strings.Contains(string(content), "rna.1") {
		t.Error("feature without a sequence was written")
	}
}

func TestGenomeObjectFeatures(t *testing.T) {
	var genome genomeObject
	genome.Features = []struct {
		ID                 string `json:"id"`
		ProteinTranslation string `json:"protein_translation"`
		PatricID           string `json:"patric_id"`
		AASequence         string `json:"aa_sequence"`
	}{
		{ID: "fig|226186.12.peg.1", ProteinTranslation: "MKLV"},
		{PatricID: "fig|226186.12.peg.2", AASequence: "MTTA"},
		{ID: "fig|226186.12.rna.1"},
	}
	features := genome.features()
	if len(features) != 3 {
		t.Fatalf("got %d features", len(features))
	}
	if features[0].ID != "fig|226186.12.peg.1" || features[0].Sequence != "MKLV" {
		t.Errorf("feature = %+v", features[0])
	}
	if features[1].ID != "fig|226186.12.peg.2" || features[1].Sequence != "MTTA" {
		t.Errorf("feature = %+v", features[1])
	}
	if features[2].Sequence != "" {
		t.Errorf("feature = %+v", features[2])
	}
}

func TestSaveDebugData(t *testing.T) {
	result := &Result{
		Rolesets: map[string][]RolesetLikelihood{
			"peg.1": {{Roleset: "role00001", Likelihood: 0.5}},
		},
		Roles: []RoleLikelihood{
			{QueryID: "peg.1", Role: "role00001", Likelihood: 0.5},
		},
		TotalRoles: map[string]TotalRole{
			"role00001": {Likelihood: 0.5, GPR: "peg.1"},
		},
		Complexes: map[string]ComplexLikelihood{
			"cpx1": {Likelihood: 0.5, Type: ComplexFull, GPR: "peg.1"},
		},
		Reactions: map[string]ReactionLikelihood{
			"rxn00001_c0": {Likelihood: 0.5, Type: ReactionHasComplexes,
				ComplexString: "cpx1 (0.5000; CPLX_FULL)", GPR: "peg.1"},
		},
	}
	folder := t.TempDir()
	if err := saveDebugData("test", result, folder); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"test.roleset.tsv", "test.role.tsv", "test.totalrole.tsv",
		"test.complex.tsv", "test.reaction.tsv"} {
		content, err := os.ReadFile(filepath.Join(folder, name))
		if err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
		if len(lines) != 2 {
			t.Errorf("%s has %d lines", name, len(lines))
		}
	}
	content, _ := os.ReadFile(filepath.Join(folder, "test.reaction.tsv"))
	if !strings.Contains(string(content), "rxn00001_c0\t0.500000\tHASCOMPLEXES\t") {
		t.Errorf("reaction file = %q", string(content))
	}
}
