package likelihood

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"seedtools/internal/workspace"
)

// searchTimeout bounds one run of the search program. Building the database
// and searching a whole genome are both minutes-scale jobs on a large
// database.
const searchTimeout = 30 * time.Minute

// searchProgramPath resolves the configured search program to an executable
// path.
func searchProgramPath(config Config) (string, error) {
	if config.SearchProgramPath != "" {
		return config.SearchProgramPath, nil
	}
	name := config.SearchProgram
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("search program %q not found in PATH: %w", name, err)
	}
	return path, nil
}

// runProgram runs an external command and wraps any failure with the command
// line and its combined output.
func runProgram(name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v failed: %w\noutput: %s", name, args, err, string(out))
	}
	return nil
}

// PrepareDatabase downloads the two data files needed for likelihood
// calculations from a workspace folder and compiles the search database from
// the protein fasta file. The folder must contain the feature ID to role ID
// mapping file and the protein sequence fasta file named in the
// configuration.
func PrepareDatabase(ctx context.Context, ws *workspace.Client, sourceFolder string, config Config) error {
	if err := os.MkdirAll(config.DataFolder, 0755); err != nil {
		return err
	}

	for _, name := range []string{config.FidRoleName, config.ProteinFastaName} {
		data, err := ws.GetData(ctx, sourceFolder+"/"+name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(config.DataFolder, name), data, 0644); err != nil {
			return err
		}
		config.logger().Info("downloaded data file", "name", name, "size", len(data))
	}

	program, err := searchProgramPath(config)
	if err != nil {
		return err
	}
	proteinFile := filepath.Join(config.DataFolder, config.ProteinFastaName)
	switch config.SearchProgram {
	case "usearch":
		databaseFile := filepath.Join(config.DataFolder, config.DatabaseName)
		err = runProgram(program, "-makeudb_ublast", proteinFile, "-output", databaseFile)
	case "blast":
		err = runProgram("makeblastdb", "-in", proteinFile, "-dbtype", "prot")
	default:
		return fmt.Errorf("search program must be either usearch or blast, got %q", config.SearchProgram)
	}
	if err != nil {
		return err
	}
	config.logger().Info("compiled search database", "program", config.SearchProgram)
	return nil
}

// runSearch searches the query proteins against the compiled database and
// writes the alignments to resultFile in BLAST output format 6.
func runSearch(queryFile, resultFile string, config Config) error {
	program, err := searchProgramPath(config)
	if err != nil {
		return err
	}
	databaseFile := filepath.Join(config.DataFolder, config.DatabaseName)
	threads := strconv.Itoa(config.Threads)
	switch config.SearchProgram {
	case "usearch":
		return runProgram(program,
			"-ublast", queryFile,
			"-db", databaseFile,
			"-evalue", config.EValue,
			"-accel", config.Accel,
			"-threads", threads,
			"-blast6out", resultFile)
	case "blast":
		return runProgram(program,
			"-query", queryFile,
			"-db", databaseFile,
			"-outfmt", "6",
			"-evalue", config.EValue,
			"-num_threads", threads,
			"-out", resultFile)
	default:
		return fmt.Errorf("search program must be either usearch or blast, got %q", config.SearchProgram)
	}
}
