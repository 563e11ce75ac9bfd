// Package likelihood computes reaction likelihoods for an organism with the
// probabilistic annotation algorithm: the organism's proteins are searched
// against a database of proteins with known functional roles, alignment
// scores become role likelihoods, and the template model's complex and
// reaction links roll the role likelihoods up into a likelihood for each
// reaction. The likelihoods rank candidate reactions during gap fill.
package likelihood

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"seedtools/internal/fasta"
)

// Config controls a likelihood calculation. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// DataFolder holds the search database and the feature ID to role ID
	// mapping file.
	DataFolder string
	// WorkFolder holds intermediate files (query fasta, search results, and
	// debug output).
	WorkFolder string

	// SearchProgram is "usearch" or "blast".
	SearchProgram string
	// SearchProgramPath is the path to the search program executable. When
	// empty, the program is looked up on PATH.
	SearchProgramPath string
	// DatabaseName is the file name of the compiled search database inside
	// DataFolder.
	DatabaseName string
	// Threads is the number of threads the search program may use.
	Threads int
	// EValue is the e-value cutoff passed to the search program.
	EValue string
	// Accel trades speed for sensitivity (usearch only).
	Accel string

	// ProteinFastaName is the file name of the target protein sequences
	// inside DataFolder.
	ProteinFastaName string
	// FidRoleName is the file name of the feature ID to role ID mapping
	// inside DataFolder.
	FidRoleName string

	// PseudoCount dilutes the likelihoods of annotations with weak homology
	// to the query.
	PseudoCount float64
	// Separator splits lists of roles in a roleset; it must not occur in any
	// role name.
	Separator string
	// DilutionPercent is the percentage of the maximum likelihood above which
	// other genes are still considered to have a function.
	DilutionPercent float64

	// Debug keeps intermediate files and writes each calculation stage to TSV
	// files in WorkFolder.
	Debug bool

	Logger *log.Logger
}

// DefaultConfig returns the standard configuration for likelihood
// calculations.
func DefaultConfig() Config {
	return Config{
		DataFolder:       "data",
		WorkFolder:       "work",
		SearchProgram:    "usearch",
		DatabaseName:     "protein.udb",
		Threads:          4,
		EValue:           "1E-5",
		Accel:            "0.33",
		ProteinFastaName: "protein.fasta",
		FidRoleName:      "otu_fid_role.tsv",
		PseudoCount:      40.0,
		Separator:        "///",
		DilutionPercent:  80.0,
	}
}

var discardLogger = log.New(io.Discard)

func (c *Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return discardLogger
}

// Feature is a protein-coding feature from the organism's genome, used as a
// query against the search database.
type Feature struct {
	ID       string
	Sequence string
}

// Statistics summarizes a likelihood calculation.
type Statistics struct {
	NumFeatures int
	NumProteins int

	NonzeroLikelihoods int
	ZeroLikelihoods    int

	ComplexFull              int
	ComplexPartial           int
	ComplexNotThere          int
	ComplexNoReps            int
	ComplexNoRepsAndNotThere int

	ReactionsWithComplexes    int
	ReactionsWithoutComplexes int
}

// Result holds the output of every stage of a likelihood calculation. The
// intermediate stages are kept so they can be inspected when a reaction ends
// up with a surprising likelihood.
type Result struct {
	Rolesets   map[string][]RolesetLikelihood
	Roles      []RoleLikelihood
	TotalRoles map[string]TotalRole
	Complexes  map[string]ComplexLikelihood
	Reactions  map[string]ReactionLikelihood
	Stats      Statistics
}

// ReadFidRoles reads the tab delimited file mapping target feature IDs to
// role IDs.
func ReadFidRoles(filename string) (map[string]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rolesets := make(map[string]string)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line in %s has %d fields, expected 2: %q", filename, len(fields), line)
		}
		rolesets[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rolesets, nil
}

// writeQueryFasta writes the amino acid sequences of the features to a fasta
// file and returns the number of proteins written. Features without a
// sequence are skipped.
func writeQueryFasta(features []Feature, filename string) (int, error) {
	records := make([]fasta.FastaRecord, 0, len(features))
	for _, f := range features {
		if f.Sequence == "" {
			continue
		}
		records = append(records, fasta.FastaRecord{Header: f.ID, Sequence: f.Sequence})
	}
	file, err := os.Create(filename)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return fasta.WriteFasta(file, records)
}

// Calculate runs the full likelihood pipeline for an organism: write the
// query fasta, search it against the target database, and roll alignment
// scores up through rolesets, roles, complexes, and reactions. id names the
// intermediate files in the work folder. complexesToRoles and
// reactionsToComplexes come from the template model the organism's model was
// built with.
func Calculate(id string, features []Feature, complexesToRoles, reactionsToComplexes map[string][]string,
	config Config) (*Result, error) {

	if len(features) == 0 {
		return nil, fmt.Errorf("no features in genome for %s", id)
	}
	if err := os.MkdirAll(config.WorkFolder, 0755); err != nil {
		return nil, err
	}

	result := &Result{}
	result.Stats.NumFeatures = len(features)

	queryFile := filepath.Join(config.WorkFolder, id+".faa")
	numProteins, err := writeQueryFasta(features, queryFile)
	if err != nil {
		return nil, err
	}
	result.Stats.NumProteins = numProteins

	resultFile := filepath.Join(config.WorkFolder, id+".blastout")
	if err := runSearch(queryFile, resultFile, config); err != nil {
		return nil, err
	}

	targetRolesets, err := ReadFidRoles(filepath.Join(config.DataFolder, config.FidRoleName))
	if err != nil {
		return nil, err
	}

	alignments, err := os.Open(resultFile)
	if err != nil {
		return nil, err
	}
	defer alignments.Close()
	if err := calculateFromAlignments(result, alignments, targetRolesets,
		complexesToRoles, reactionsToComplexes, config); err != nil {
		return nil, err
	}

	if config.Debug {
		if err := saveDebugData(id, result, config.WorkFolder); err != nil {
			return nil, err
		}
	} else {
		os.Remove(queryFile)
		os.Remove(resultFile)
	}
	config.logger().Info("calculated reaction likelihoods", "id", id,
		"reactions", len(result.Reactions), "nonzero", result.Stats.NonzeroLikelihoods)
	return result, nil
}

// calculateFromAlignments runs the pipeline stages on parsed search results.
// Split out from Calculate so the math can run on canned alignments.
func calculateFromAlignments(result *Result, alignments io.Reader, targetRolesets map[string]string,
	complexesToRoles, reactionsToComplexes map[string][]string, config Config) error {

	queryScores, dropped, err := parseAlignments(alignments)
	if err != nil {
		return err
	}
	if dropped > 0 {
		config.logger().Warn("alignments with negative bit scores were ignored", "count", dropped)
	}

	rolesets, missing, err := rolesetLikelihoods(queryScores, targetRolesets, config.PseudoCount)
	if err != nil {
		return err
	}
	if missing > 0 {
		config.logger().Warn("alignment targets had no roleset in the mapping file", "count", missing)
	}
	if len(rolesets) == 0 {
		return fmt.Errorf("search produced no usable alignments")
	}
	result.Rolesets = rolesets

	result.Roles = roleLikelihoods(rolesets, config.Separator)
	result.TotalRoles = totalRoleLikelihoods(result.Roles, config.DilutionPercent)
	result.Complexes = complexLikelihoods(result.TotalRoles, complexesToRoles,
		targetRolesets, config.Separator, &result.Stats)
	if len(result.Complexes) == 0 {
		return fmt.Errorf("template has no complexes linked to roles")
	}
	result.Reactions = reactionLikelihoods(result.Complexes, reactionsToComplexes,
		config.DilutionPercent, config.Separator, &result.Stats)
	return nil
}

func writeDebugFile(folder, name, header string, rows func(w *bufio.Writer)) error {
	file, err := os.Create(filepath.Join(folder, name))
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	fmt.Fprintln(w, header)
	rows(w)
	return w.Flush()
}

// saveDebugData writes each stage of the calculation to a TSV file in the
// work folder for detailed analysis.
func saveDebugData(id string, result *Result, folder string) error {
	queryIDs := make([]string, 0, len(result.Rolesets))
	for queryID := range result.Rolesets {
		queryIDs = append(queryIDs, queryID)
	}
	sort.Strings(queryIDs)
	err := writeDebugFile(folder, id+".roleset.tsv", "Query ID\tLikelihood\tRoleset", func(w *bufio.Writer) {
		for _, queryID := range queryIDs {
			for _, value := range result.Rolesets[queryID] {
				fmt.Fprintf(w, "%s\t%1.6f\t%s\n", queryID, value.Likelihood, value.Roleset)
			}
		}
	})
	if err != nil {
		return err
	}

	err = writeDebugFile(folder, id+".role.tsv", "Query ID\tLikelihood\tRole", func(w *bufio.Writer) {
		for _, value := range result.Roles {
			fmt.Fprintf(w, "%s\t%1.6f\t%s\n", value.QueryID, value.Likelihood, value.Role)
		}
	})
	if err != nil {
		return err
	}

	roles := make([]string, 0, len(result.TotalRoles))
	for role := range result.TotalRoles {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	err = writeDebugFile(folder, id+".totalrole.tsv", "Role\tLikelihood\tGPR", func(w *bufio.Writer) {
		for _, role := range roles {
			value := result.TotalRoles[role]
			fmt.Fprintf(w, "%s\t%1.6f\t%s\n", role, value.Likelihood, value.GPR)
		}
	})
	if err != nil {
		return err
	}

	complexIDs := make([]string, 0, len(result.Complexes))
	for complexID := range result.Complexes {
		complexIDs = append(complexIDs, complexID)
	}
	sort.Strings(complexIDs)
	err = writeDebugFile(folder, id+".complex.tsv",
		"Complex ID\tLikelihood\tType\tGPR\tUnavailable Roles\tMissing Roles", func(w *bufio.Writer) {
			for _, complexID := range complexIDs {
				value := result.Complexes[complexID]
				fmt.Fprintf(w, "%s\t%1.6f\t%s\t%s\t%s\t%s\n", complexID, value.Likelihood,
					value.Type, value.GPR, value.UnavailRoles, value.MissingRoles)
			}
		})
	if err != nil {
		return err
	}

	reactionIDs := make([]string, 0, len(result.Reactions))
	for reactionID := range result.Reactions {
		reactionIDs = append(reactionIDs, reactionID)
	}
	sort.Strings(reactionIDs)
	return writeDebugFile(folder, id+".reaction.tsv",
		"Reaction ID\tLikelihood\tType\tComplexes\tGPR", func(w *bufio.Writer) {
			for _, reactionID := range reactionIDs {
				value := result.Reactions[reactionID]
				fmt.Fprintf(w, "%s\t%1.6f\t%s\t%s\t%s\n", reactionID, value.Likelihood,
					value.Type, value.ComplexString, value.GPR)
			}
		})
}
