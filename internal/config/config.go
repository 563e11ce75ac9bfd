// Package config loads the YAML configuration file that sets service
// endpoints and likelihood calculation settings. Every field has a usable
// default so a missing file is not an error; command line flags override
// whatever the file sets.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the complete configuration for the command line tools.
type Config struct {
	// Service endpoints. Empty values select the production services.
	AppServiceURL    string `yaml:"app_service_url"`
	ModelSEEDURL     string `yaml:"modelseed_url"`
	WorkspaceURL     string `yaml:"workspace_url"`
	GenomeServiceURL string `yaml:"genome_service_url"`

	// TokenFile overrides the default token file location in the user's home
	// directory.
	TokenFile string `yaml:"token_file"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`

	Likelihood LikelihoodConfig `yaml:"likelihood"`
}

// LikelihoodConfig holds the settings for local reaction likelihood
// calculations.
type LikelihoodConfig struct {
	DataFolder        string  `yaml:"data_folder"`
	WorkFolder        string  `yaml:"work_folder"`
	SearchProgram     string  `yaml:"search_program"`
	SearchProgramPath string  `yaml:"search_program_path"`
	DatabaseName      string  `yaml:"database_name"`
	Threads           int     `yaml:"threads"`
	EValue            string  `yaml:"evalue"`
	Accel             string  `yaml:"accel"`
	ProteinFastaName  string  `yaml:"protein_fasta_name"`
	FidRoleName       string  `yaml:"fid_role_name"`
	PseudoCount       float64 `yaml:"pseudo_count"`
	DilutionPercent   float64 `yaml:"dilution_percent"`
	Debug             bool    `yaml:"debug"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Likelihood: LikelihoodConfig{
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
			DilutionPercent:  80.0,
		},
	}
}

// Load reads a YAML config from the given path. If path is empty, looks for
// ./seedtools.yaml. A missing file returns the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = "seedtools.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if explicit {
			return nil, err
		}
		return Default(), nil
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}
