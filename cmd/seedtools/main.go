package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/alecthomas/kingpin.v2"

	"seedtools/internal/auth"
	"seedtools/internal/config"
	"seedtools/internal/genome"
	"seedtools/internal/likelihood"
	"seedtools/internal/metabolic"
	"seedtools/internal/modelseed"
	"seedtools/internal/template"
	"seedtools/internal/workspace"
)

// version is the program version. It can be overridden at build time with
// -ldflags "-X main.version=..."
var version = "0.1.0"

// timestampWriter prefixes each flushed line with an RFC3339 timestamp.
type timestampWriter struct {
	w   io.Writer
	buf bytes.Buffer
	mu  sync.Mutex
}

// Write buffers bytes until a newline is found; for each full line, write a
// timestamped line to the underlying writer. Partial lines are kept in the
// buffer.
func (t *timestampWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, _ := t.buf.Write(p)
	total := n
	for {
		line, err := t.buf.ReadString('\n')
		if err != nil {
			break
		}
		ts := time.Now().Format(time.RFC3339)
		if _, err := t.w.Write([]byte(ts + " " + line)); err != nil {
			return total, err
		}
	}
	return total, nil
}

// terminalWriter wraps an io.Writer and exposes an Fd method so libraries
// that inspect the file descriptor (for TTY detection) can work with wrapped
// writers.
type terminalWriter struct {
	w  io.Writer
	fd uintptr
}

func (tw *terminalWriter) Write(p []byte) (int, error) { return tw.w.Write(p) }

// Fd exposes the underlying file descriptor (e.g., os.Stderr.Fd()).
func (tw *terminalWriter) Fd() uintptr { return tw.fd }

func newLogger(cfg *config.Config, levelFlag string) *log.Logger {
	var loggerOut io.Writer = os.Stderr
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			// write to both stderr and file so running interactively still
			// shows logs
			loggerOut = io.MultiWriter(os.Stderr, f)
		}
	}
	if fi, err := os.Stderr.Stat(); err == nil {
		if fi.Mode()&os.ModeCharDevice != 0 {
			_ = os.Setenv("FORCE_COLOR", "1")
		}
	}
	tw := &timestampWriter{w: loggerOut}
	logger := log.New(&terminalWriter{w: tw, fd: os.Stderr.Fd()})

	level := levelFlag
	if level == "" {
		level = cfg.LogLevel
	}
	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info", "":
		logger.SetLevel(log.InfoLevel)
	case "warn", "warning":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
		logger.Warn("unknown log level, defaulting to info", "provided", level)
	}
	return logger
}

// app holds the configuration and lazily built service clients shared by
// every command.
type app struct {
	cfg    *config.Config
	logger *log.Logger

	creds auth.Credentials
	ws    *workspace.Client
}

// authenticate loads the stored token. Commands that talk to the workspace or
// the model services need it; genome queries do not.
func (a *app) authenticate() error {
	path, err := auth.TokenFilePath(a.cfg.TokenFile)
	if err != nil {
		return err
	}
	creds, err := auth.LoadToken(path)
	if err != nil {
		return fmt.Errorf("no stored token, run \"seedtools login\" first: %w", err)
	}
	a.creds = creds
	a.ws = workspace.NewClient(a.cfg.WorkspaceURL, creds.Token)
	return nil
}

func (a *app) modelseedClient() *modelseed.Client {
	c := modelseed.NewClient(a.cfg.ModelSEEDURL, a.creds.Token, a.ws)
	c.Genome = a.genomeClient()
	c.Logger = a.logger
	return c
}

func (a *app) appClient() *modelseed.AppClient {
	c := modelseed.NewAppClient(a.cfg.AppServiceURL, a.creds.Token, a.ws)
	c.Genome = a.genomeClient()
	c.Logger = a.logger
	return c
}

func (a *app) genomeClient() *genome.Client {
	return &genome.Client{URL: a.cfg.GenomeServiceURL, ShowProgress: true}
}

// likelihoodConfig merges the file settings over the calculation defaults.
func (a *app) likelihoodConfig() likelihood.Config {
	c := likelihood.DefaultConfig()
	lc := a.cfg.Likelihood
	if lc.DataFolder != "" {
		c.DataFolder = lc.DataFolder
	}
	if lc.WorkFolder != "" {
		c.WorkFolder = lc.WorkFolder
	}
	if lc.SearchProgram != "" {
		c.SearchProgram = lc.SearchProgram
	}
	if lc.SearchProgramPath != "" {
		c.SearchProgramPath = lc.SearchProgramPath
	}
	if lc.DatabaseName != "" {
		c.DatabaseName = lc.DatabaseName
	}
	if lc.Threads > 0 {
		c.Threads = lc.Threads
	}
	if lc.EValue != "" {
		c.EValue = lc.EValue
	}
	if lc.Accel != "" {
		c.Accel = lc.Accel
	}
	if lc.ProteinFastaName != "" {
		c.ProteinFastaName = lc.ProteinFastaName
	}
	if lc.FidRoleName != "" {
		c.FidRoleName = lc.FidRoleName
	}
	if lc.PseudoCount > 0 {
		c.PseudoCount = lc.PseudoCount
	}
	if lc.DilutionPercent > 0 {
		c.DilutionPercent = lc.DilutionPercent
	}
	c.Debug = lc.Debug
	c.Logger = a.logger
	return c
}

func main() {
	cli := kingpin.New("seedtools", "Tools for building and analyzing metabolic models with the SEED services.")
	cli.Version(version)
	cli.HelpFlag.Short('h')

	configPath := cli.Flag("config", "Path to the YAML configuration file.").String()
	logLevel := cli.Flag("log-level", "Log level: debug, info, warn, or error.").String()
	modelseedURL := cli.Flag("modelseed-url", "ProbModelSEED service endpoint.").String()
	appServiceURL := cli.Flag("app-service-url", "PATRIC app service endpoint.").String()
	workspaceURL := cli.Flag("workspace-url", "Workspace service endpoint.").String()
	genomeURL := cli.Flag("genome-url", "PATRIC data API endpoint.").String()
	tokenFile := cli.Flag("token-file", "Path to the authentication token file.").String()

	loginCmd := cli.Command("login", "Obtain and store an authentication token.")
	loginUser := loginCmd.Arg("username", "Account user name.").Required().String()
	loginType := loginCmd.Flag("type", "Token service: patric or rast.").Default("patric").String()
	loginPassword := loginCmd.Flag("password", "Account password. Prompted for when omitted.").String()

	genomeCmd := cli.Command("genome", "Query the PATRIC genome database.")
	genomeSummaryCmd := genomeCmd.Command("summary", "Show summary data for a genome.")
	genomeSummaryID := genomeSummaryCmd.Arg("genome-id", "PATRIC genome ID.").Required().String()
	genomeFeaturesCmd := genomeCmd.Command("features", "List the annotated features of a genome.")
	genomeFeaturesID := genomeFeaturesCmd.Arg("genome-id", "PATRIC genome ID.").Required().String()
	genomeFeaturesAnnotation := genomeFeaturesCmd.Flag("annotation", "Annotation source: PATRIC or RefSeq.").Default("PATRIC").String()
	genomeFastaCmd := genomeCmd.Command("fasta", "Save genome feature sequences to a fasta file.")
	genomeFastaID := genomeFastaCmd.Arg("genome-id", "PATRIC genome ID.").Required().String()
	genomeFastaOut := genomeFastaCmd.Arg("filename", "Output fasta file.").Required().String()
	genomeFastaAnnotation := genomeFastaCmd.Flag("annotation", "Annotation source: PATRIC or RefSeq.").Default("PATRIC").String()
	genomeFastaDNA := genomeFastaCmd.Flag("dna", "Write nucleotide sequences instead of proteins.").Bool()

	modelsCmd := cli.Command("models", "Operations on the set of your models.")
	modelsListCmd := modelsCmd.Command("list", "List your models.")
	modelsListSort := modelsListCmd.Flag("sort", "Sort field: rundate, id, or name.").Default("rundate").String()
	modelsListApp := modelsListCmd.Flag("app", "List models built through the PATRIC app service.").Bool()

	modelCmd := cli.Command("model", "Operations on a single model.")
	reconstructCmd := modelCmd.Command("reconstruct", "Reconstruct a draft model for a genome.")
	reconstructGenome := reconstructCmd.Arg("genome-id", "PATRIC genome ID.").Required().String()
	reconstructID := reconstructCmd.Flag("model-id", "Model ID. Defaults to the genome ID.").String()
	reconstructTemplate := reconstructCmd.Flag("template", "Workspace reference to the template model.").String()
	reconstructApp := reconstructCmd.Flag("app", "Build through the PATRIC app service.").Bool()
	reconstructMedia := reconstructCmd.Flag("media", "Workspace reference to the gap fill media (app service only).").String()
	gapfillCmd := modelCmd.Command("gapfill", "Gap fill a model on a growth medium.")
	gapfillID := gapfillCmd.Arg("model-id", "Model ID.").Required().String()
	gapfillMedia := gapfillCmd.Flag("media", "Workspace reference to the media. Defaults to complete media.").String()
	optimizeCmd := modelCmd.Command("optimize", "Run flux balance analysis on a model.")
	optimizeID := optimizeCmd.Arg("model-id", "Model ID.").Required().String()
	optimizeMedia := optimizeCmd.Flag("media", "Workspace reference to the media.").String()
	statsCmd := modelCmd.Command("stats", "Show the statistics of a model.")
	statsID := statsCmd.Arg("model-id", "Model ID.").Required().String()
	deleteCmd := modelCmd.Command("delete", "Delete a model.")
	deleteID := deleteCmd.Arg("model-id", "Model ID.").Required().String()
	deleteApp := deleteCmd.Flag("app", "Delete a model built through the PATRIC app service.").Bool()
	fbaCmd := modelCmd.Command("fba", "List the flux balance analysis solutions of a model.")
	fbaID := fbaCmd.Arg("model-id", "Model ID.").Required().String()
	fbaFluxes := fbaCmd.Flag("fluxes", "Show exchange fluxes of the most recent solution.").Bool()
	gapfillsCmd := modelCmd.Command("gapfills", "List the gap fill solutions of a model.")
	gapfillsID := gapfillsCmd.Arg("model-id", "Model ID.").Required().String()
	gapfillsIDType := gapfillsCmd.Flag("id-type", "Reaction ID format: modelseed or bigg.").Default(modelseed.IDTypeModelSEED).String()
	exportCmd := modelCmd.Command("export", "Convert a model to the interchange JSON format.")
	exportID := exportCmd.Arg("model-id", "Model ID.").Required().String()
	exportOut := exportCmd.Arg("filename", "Output JSON file.").Required().String()
	exportIDType := exportCmd.Flag("id-type", "ID format: modelseed or bigg.").Default(modelseed.IDTypeModelSEED).String()
	exportValidate := exportCmd.Flag("validate", "Check the converted model for common problems.").Bool()
	exportLikelihoods := exportCmd.Flag("likelihoods", "Attach stored reaction likelihoods as notes.").Bool()

	wsCmd := cli.Command("ws", "Operations on workspace objects.")
	wsLsCmd := wsCmd.Command("ls", "List the objects in a workspace folder.")
	wsLsRef := wsLsCmd.Arg("reference", "Workspace folder reference.").Required().String()
	wsLsSort := wsLsCmd.Flag("sort", "Sort field: name, folder, date, or type.").Default("name").String()
	wsGetCmd := wsCmd.Command("get", "Retrieve a workspace object.")
	wsGetRef := wsGetCmd.Arg("reference", "Workspace object reference.").Required().String()
	wsGetMeta := wsGetCmd.Flag("meta", "Show the object metadata instead of its data.").Bool()
	wsGetOut := wsGetCmd.Flag("out", "Write the object data to a file instead of stdout.").String()
	wsRmCmd := wsCmd.Command("rm", "Delete a workspace object.")
	wsRmRef := wsRmCmd.Arg("reference", "Workspace object reference.").Required().String()
	wsRmForce := wsRmCmd.Flag("force", "Delete folders and their contents.").Bool()

	templateCmd := cli.Command("template", "Operations on template models.")
	templateBuildCmd := templateCmd.Command("build", "Build a template model from source files.")
	templateBuildID := templateBuildCmd.Arg("id", "Template ID.").Required().String()
	templateBuildUniversal := templateBuildCmd.Flag("universal", "Folder with universal metabolite and reaction files.").Required().String()
	templateBuildFolder := templateBuildCmd.Flag("folder", "Folder with template source files.").Required().String()
	templateBuildName := templateBuildCmd.Flag("name", "Template name. Defaults to the ID.").String()
	templateBuildType := templateBuildCmd.Flag("type", "Template type.").Default("growth").String()
	templateBuildDomain := templateBuildCmd.Flag("domain", "Organism domain.").Default("Bacteria").String()
	templateBuildGenome := templateBuildCmd.Flag("genome", "Reconstruct a draft model for this PATRIC genome ID.").String()
	templateBuildBiomass := templateBuildCmd.Flag("biomass", "Biomass entity for the draft model objective.").Default("bio1").String()
	templateBuildOut := templateBuildCmd.Flag("out", "Write the built model to a JSON file.").String()
	templateSaveCmd := templateCmd.Command("save", "Save a workspace template object as source files.")
	templateSaveRef := templateSaveCmd.Arg("reference", "Workspace reference to the template object.").Required().String()
	templateSaveFolder := templateSaveCmd.Arg("folder", "Output folder for the source files.").Required().String()

	likelihoodCmd := cli.Command("likelihood", "Reaction likelihood calculations.")
	likelihoodPrepareCmd := likelihoodCmd.Command("prepare", "Download search data and build the protein database.")
	likelihoodPrepareSource := likelihoodPrepareCmd.Arg("reference", "Workspace folder with the search data files.").Required().String()
	likelihoodCalcCmd := likelihoodCmd.Command("calc", "Calculate reaction likelihoods for a model.")
	likelihoodCalcID := likelihoodCalcCmd.Arg("model-id", "Model ID.").Required().String()

	appsCmd := cli.Command("apps", "List the applications available through the app service.")

	command := kingpin.MustParse(cli.Parse(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		kingpin.Fatalf("%v", err)
	}
	if *modelseedURL != "" {
		cfg.ModelSEEDURL = *modelseedURL
	}
	if *appServiceURL != "" {
		cfg.AppServiceURL = *appServiceURL
	}
	if *workspaceURL != "" {
		cfg.WorkspaceURL = *workspaceURL
	}
	if *genomeURL != "" {
		cfg.GenomeServiceURL = *genomeURL
	}
	if *tokenFile != "" {
		cfg.TokenFile = *tokenFile
	}

	a := &app{cfg: cfg, logger: newLogger(cfg, *logLevel)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case loginCmd.FullCommand():
		err = a.login(ctx, *loginUser, *loginPassword, *loginType)
	case genomeSummaryCmd.FullCommand():
		err = a.genomeSummary(ctx, *genomeSummaryID)
	case genomeFeaturesCmd.FullCommand():
		err = a.genomeFeatures(ctx, *genomeFeaturesID, *genomeFeaturesAnnotation)
	case genomeFastaCmd.FullCommand():
		err = a.genomeFasta(ctx, *genomeFastaID, *genomeFastaOut, *genomeFastaAnnotation, *genomeFastaDNA)
	case modelsListCmd.FullCommand():
		err = a.listModels(ctx, *modelsListSort, *modelsListApp)
	case reconstructCmd.FullCommand():
		err = a.reconstruct(ctx, *reconstructGenome, *reconstructID, *reconstructTemplate,
			*reconstructMedia, *reconstructApp)
	case gapfillCmd.FullCommand():
		err = a.gapfill(ctx, *gapfillID, *gapfillMedia)
	case optimizeCmd.FullCommand():
		err = a.optimize(ctx, *optimizeID, *optimizeMedia)
	case statsCmd.FullCommand():
		err = a.stats(ctx, *statsID)
	case deleteCmd.FullCommand():
		err = a.deleteModel(ctx, *deleteID, *deleteApp)
	case fbaCmd.FullCommand():
		err = a.fbaSolutions(ctx, *fbaID, *fbaFluxes)
	case gapfillsCmd.FullCommand():
		err = a.gapfillSolutions(ctx, *gapfillsID, *gapfillsIDType)
	case exportCmd.FullCommand():
		err = a.exportModel(ctx, *exportID, *exportOut, *exportIDType, *exportValidate, *exportLikelihoods)
	case wsLsCmd.FullCommand():
		err = a.wsList(ctx, *wsLsRef, *wsLsSort)
	case wsGetCmd.FullCommand():
		err = a.wsGet(ctx, *wsGetRef, *wsGetMeta, *wsGetOut)
	case wsRmCmd.FullCommand():
		err = a.wsDelete(ctx, *wsRmRef, *wsRmForce)
	case templateBuildCmd.FullCommand():
		err = a.templateBuild(ctx, templateBuildArgs{
			id:        *templateBuildID,
			name:      *templateBuildName,
			modelType: *templateBuildType,
			domain:    *templateBuildDomain,
			universal: *templateBuildUniversal,
			folder:    *templateBuildFolder,
			genomeID:  *templateBuildGenome,
			biomass:   *templateBuildBiomass,
			out:       *templateBuildOut,
		})
	case templateSaveCmd.FullCommand():
		err = a.templateSave(ctx, *templateSaveRef, *templateSaveFolder)
	case likelihoodPrepareCmd.FullCommand():
		err = a.likelihoodPrepare(ctx, *likelihoodPrepareSource)
	case likelihoodCalcCmd.FullCommand():
		err = a.likelihoodCalc(ctx, *likelihoodCalcID)
	case appsCmd.FullCommand():
		err = a.listApps(ctx)
	}
	if err != nil {
		a.logger.Fatal("command failed", "command", command, "err", err)
	}
}

func (a *app) login(ctx context.Context, username, password, tokenType string) error {
	if password == "" {
		fmt.Fprintf(os.Stderr, "%s password: ", tokenType)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return err
		}
		password = strings.TrimRight(line, "\r\n")
	}
	creds, err := auth.GetToken(ctx, username, password, tokenType)
	if err != nil {
		return err
	}
	a.logger.Info("stored authentication token", "user", creds.UserID)
	return nil
}

func (a *app) genomeSummary(ctx context.Context, genomeID string) error {
	summary, err := a.genomeClient().Summary(ctx, genomeID)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(summary))
	for key := range summary {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	for _, key := range keys {
		fmt.Fprintf(tw, "%s\t%v\n", key, summary[key])
	}
	return tw.Flush()
}

func (a *app) genomeFeatures(ctx context.Context, genomeID, annotation string) error {
	features, err := a.genomeClient().Features(ctx, genomeID, annotation)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	for _, f := range features {
		id := f.PatricID
		if annotation == "RefSeq" {
			id = f.RefseqLocusTag
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", id, f.FeatureType, f.Product)
	}
	return tw.Flush()
}

func (a *app) genomeFasta(ctx context.Context, genomeID, filename, annotation string, dna bool) error {
	features, err := a.genomeClient().Features(ctx, genomeID, annotation)
	if err != nil {
		return err
	}
	var written int
	if dna {
		written, err = genome.WriteDNAFasta(features, filename)
	} else {
		written, err = genome.WriteProteinFasta(features, filename)
	}
	if err != nil {
		return err
	}
	a.logger.Info("saved sequences", "genome", genomeID, "file", filename, "sequences", written)
	return nil
}

func (a *app) listModels(ctx context.Context, sortKey string, useApp bool) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRUNDATE\tREACTIONS\tCOMPOUNDS\tGENES\tGENOME")
	if useApp {
		models, err := a.appClient().ListModels(ctx)
		if err != nil {
			return err
		}
		for _, m := range models {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
				m.ID, m.Rundate, m.NumReactions, m.NumCompounds, m.NumGenes, m.SourceID)
		}
		return tw.Flush()
	}
	models, err := a.modelseedClient().ListModels(ctx, sortKey)
	if err != nil {
		return err
	}
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			m.ID, m.Rundate, int(m.NumReactions), int(m.NumCompounds), int(m.NumGenes), m.GenomeRef)
	}
	return tw.Flush()
}

func (a *app) reconstruct(ctx context.Context, genomeID, modelID, templateRef, mediaRef string, useApp bool) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	if modelID == "" {
		modelID = genomeID
	}
	var stats *modelseed.ModelStats
	var err error
	if useApp {
		stats, err = a.appClient().CreateModel(ctx, genomeID, modelID, mediaRef, templateRef, "")
	} else {
		stats, err = a.modelseedClient().Reconstruct(ctx, genomeID, modelID, templateRef)
	}
	if err != nil {
		return err
	}
	fmt.Println(stats.Summary())
	return nil
}

func (a *app) gapfill(ctx context.Context, modelID, mediaRef string) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	stats, err := a.modelseedClient().Gapfill(ctx, modelID, mediaRef)
	if err != nil {
		return err
	}
	fmt.Println(stats.Summary())
	return nil
}

func (a *app) optimize(ctx context.Context, modelID, mediaRef string) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	objective, err := a.modelseedClient().Optimize(ctx, modelID, mediaRef)
	if err != nil {
		return err
	}
	fmt.Printf("objective value %g\n", objective)
	return nil
}

func (a *app) stats(ctx context.Context, modelID string) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	stats, err := a.modelseedClient().Stats(ctx, modelID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", stats.ID)
	fmt.Fprintf(tw, "name\t%s\n", stats.Name)
	fmt.Fprintf(tw, "reference\t%s\n", stats.Ref)
	fmt.Fprintf(tw, "genome\t%s\n", stats.GenomeRef)
	fmt.Fprintf(tw, "template\t%s\n", stats.TemplateRef)
	fmt.Fprintf(tw, "source\t%s (%s)\n", stats.Source, stats.SourceID)
	fmt.Fprintf(tw, "type\t%s\n", stats.Type)
	fmt.Fprintf(tw, "rundate\t%s\n", stats.Rundate)
	fmt.Fprintf(tw, "reactions\t%d\n", stats.NumReactions)
	fmt.Fprintf(tw, "compounds\t%d\n", stats.NumCompounds)
	fmt.Fprintf(tw, "compartments\t%d\n", stats.NumCompartments)
	fmt.Fprintf(tw, "biomasses\t%d\n", stats.NumBiomasses)
	fmt.Fprintf(tw, "biomass compounds\t%d\n", stats.NumBiomassCompounds)
	fmt.Fprintf(tw, "genes\t%d\n", stats.NumGenes)
	fmt.Fprintf(tw, "gene associated reactions\t%d\n", stats.GeneAssociatedReactions)
	fmt.Fprintf(tw, "gapfilled reactions\t%d\n", stats.GapfilledReactions)
	fmt.Fprintf(tw, "integrated gapfills\t%d\n", stats.IntegratedGapfills)
	fmt.Fprintf(tw, "unintegrated gapfills\t%d\n", stats.UnintegratedGapfills)
	return tw.Flush()
}

func (a *app) deleteModel(ctx context.Context, modelID string, useApp bool) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	var err error
	if useApp {
		err = a.appClient().Delete(ctx, modelID)
	} else {
		err = a.modelseedClient().Delete(ctx, modelID)
	}
	if err != nil {
		return err
	}
	a.logger.Info("deleted model", "model", modelID)
	return nil
}

func (a *app) fbaSolutions(ctx context.Context, modelID string, showFluxes bool) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	solutions, err := a.modelseedClient().FBASolutions(ctx, modelID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRUNDATE\tMEDIA\tOBJECTIVE")
	for _, sol := range solutions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\n", sol.ID, sol.Rundate, sol.MediaRef, float64(sol.Objective))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !showFluxes || len(solutions) == 0 {
		return nil
	}
	latest := solutions[0]
	ids := make([]string, 0, len(latest.Exchanges))
	for id := range latest.Exchanges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Printf("\nexchange fluxes for solution %s:\n", latest.ID)
	for _, id := range ids {
		fmt.Printf("%s\t%g\n", id, latest.Exchanges[id].Value)
	}
	return nil
}

func (a *app) gapfillSolutions(ctx context.Context, modelID, idType string) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	solutions, err := a.modelseedClient().GapfillSolutions(ctx, modelID, idType)
	if err != nil {
		return err
	}
	for _, sol := range solutions {
		integrated := "unintegrated"
		if sol.Integrated != 0 {
			integrated = "integrated"
		}
		fmt.Printf("%s\t%s\t%s\t%s\t%d reactions\n",
			sol.ID, sol.Rundate, sol.MediaRef, integrated, len(sol.Reactions))
		ids := make([]string, 0, len(sol.Reactions))
		for id := range sol.Reactions {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			rxn := sol.Reactions[id]
			fmt.Printf("  %s\t%s\n", id, rxn.Direction)
		}
	}
	return nil
}

func (a *app) exportModel(ctx context.Context, modelID, filename, idType string, validate, withLikelihoods bool) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	client := a.modelseedClient()
	data, err := client.ModelData(ctx, modelID)
	if err != nil {
		return err
	}
	opts := modelseed.ConvertOptions{IDType: idType, Validate: validate, Logger: a.logger}
	if withLikelihoods {
		likelihoods, err := likelihood.ReactionProbabilities(ctx, a.ws, client.ModelRef(modelID))
		if err != nil {
			a.logger.Warn("no stored reaction likelihoods", "model", modelID, "err", err)
		} else {
			opts.Likelihoods = likelihoods
		}
	}
	model, err := modelseed.ToMetabolicModel(data, opts)
	if err != nil {
		return err
	}
	if err := model.SaveJSON(filename); err != nil {
		return err
	}
	a.logger.Info("exported model", "model", modelID, "file", filename,
		"reactions", model.NumReactions(), "metabolites", model.NumMetabolites())
	return nil
}

func (a *app) wsList(ctx context.Context, ref, sortKey string) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	objects, err := a.ws.List(ctx, ref)
	if err != nil {
		return err
	}
	workspace.SortObjects(objects, sortKey)
	workspace.PrintList(os.Stdout, objects)
	return nil
}

func (a *app) wsGet(ctx context.Context, ref string, showMeta bool, filename string) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	if showMeta {
		meta, err := a.ws.GetMeta(ctx, ref)
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(meta)
	}
	data, err := a.ws.GetData(ctx, ref)
	if err != nil {
		return err
	}
	if filename != "" {
		return os.WriteFile(filename, data, 0o644)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func (a *app) wsDelete(ctx context.Context, ref string, force bool) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	if err := a.ws.Delete(ctx, ref, force); err != nil {
		return err
	}
	a.logger.Info("deleted object", "reference", ref)
	return nil
}

type templateBuildArgs struct {
	id        string
	name      string
	modelType string
	domain    string
	universal string
	folder    string
	genomeID  string
	biomass   string
	out       string
}

func (a *app) templateBuild(ctx context.Context, args templateBuildArgs) error {
	if args.name == "" {
		args.name = args.id
	}
	tmpl, err := template.Load(args.id, args.name, args.modelType, args.domain,
		args.universal, args.folder)
	if err != nil {
		return err
	}
	tmpl.Logger = a.logger
	a.logger.Info("loaded template", "id", args.id,
		"reactions", tmpl.Reactions.Len(), "complexes", len(tmpl.Complexes), "roles", len(tmpl.Roles))

	var model *metabolic.Model
	if args.genomeID != "" {
		client := a.genomeClient()
		summary, err := client.Summary(ctx, args.genomeID)
		if err != nil {
			return err
		}
		features, err := client.Features(ctx, args.genomeID, "PATRIC")
		if err != nil {
			return err
		}
		templateFeatures := make([]*template.Feature, 0, len(features))
		for _, f := range features {
			if f.FeatureType != "CDS" || f.Product == "" {
				continue
			}
			templateFeatures = append(templateFeatures, template.NewFeature(f.PatricID, f.Product))
		}
		name := args.genomeID
		if n, ok := summary["genome_name"].(string); ok {
			name = n
		}
		built, err := tmpl.Reconstruct(args.genomeID, templateFeatures, args.biomass,
			name, gcFraction(summary))
		if err != nil {
			return err
		}
		model = built
	} else if args.out != "" {
		built, err := tmpl.ToModel()
		if err != nil {
			return err
		}
		model = built
	}
	if model != nil {
		fmt.Println(model.Summary())
		if args.out != "" {
			if err := model.SaveJSON(args.out); err != nil {
				return err
			}
			a.logger.Info("saved model", "file", args.out)
		}
	}
	return nil
}

// gcFraction extracts the GC content from a genome summary as a fraction.
// The API reports it as a percentage, sometimes as a string.
func gcFraction(summary map[string]interface{}) float64 {
	switch v := summary["gc_content"].(type) {
	case float64:
		return v / 100.0
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f / 100.0
		}
	}
	return 0.5
}

func (a *app) templateSave(ctx context.Context, ref, folder string) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	var obj modelseed.TemplateObject
	if err := a.ws.GetJSON(ctx, ref, &obj); err != nil {
		return err
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return err
	}
	if err := obj.SaveSourceFiles(folder); err != nil {
		return err
	}
	a.logger.Info("saved template source files", "reference", ref, "folder", folder)
	return nil
}

func (a *app) likelihoodPrepare(ctx context.Context, sourceFolder string) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	return likelihood.PrepareDatabase(ctx, a.ws, sourceFolder, a.likelihoodConfig())
}

func (a *app) likelihoodCalc(ctx context.Context, modelID string) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	return likelihood.CalculateForModel(ctx, a.modelseedClient(), modelID, a.likelihoodConfig())
}

func (a *app) listApps(ctx context.Context) error {
	if err := a.authenticate(); err != nil {
		return err
	}
	client := a.appClient()
	if err := client.CheckService(ctx); err != nil {
		return err
	}
	apps, err := client.ListApps(ctx)
	if err != nil {
		return err
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	for _, application := range apps {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", application.ID, application.Label, application.Description)
	}
	return tw.Flush()
}
