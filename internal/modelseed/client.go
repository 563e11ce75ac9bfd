package modelseed

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"seedtools/internal/genome"
	"seedtools/internal/seedrpc"
	"seedtools/internal/workspace"
)

// Service endpoints for the ProbModelSEED reconstruction service.
const (
	DefaultURL = "https://p3.theseed.org/services/ProbModelSEED"
	DevURL     = "http://p3c.theseed.org/dev1/services/ProbModelSEED"
)

// modelFolder is the workspace folder where the service stores models.
const modelFolder = "modelseed"

// defaultPollInterval is the delay between job status checks.
const defaultPollInterval = 3 * time.Second

// Client runs model operations on the ProbModelSEED service.
type Client struct {
	RPC       *seedrpc.Client
	Workspace *workspace.Client

	// Genome verifies genome IDs before submitting reconstruction jobs.
	// When nil, verification is skipped.
	Genome *genome.Client

	// PollInterval is the delay between job status checks. When zero, three
	// seconds is used.
	PollInterval time.Duration

	Logger *log.Logger
}

// NewClient creates a client for the ProbModelSEED service. An empty url
// selects the production service. The workspace client is used for model
// metadata and object retrieval.
func NewClient(url, token string, ws *workspace.Client) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		RPC:       seedrpc.NewClient(url, "ProbModelSEED", token),
		Workspace: ws,
	}
}

func (c *Client) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return discardLogger
}

// FolderRef returns the workspace reference to the user's model folder.
func (c *Client) FolderRef() string {
	return fmt.Sprintf("/%s/%s", c.RPC.Username, modelFolder)
}

// ModelRef returns the workspace reference to a model.
func (c *Client) ModelRef(modelID string) string {
	return fmt.Sprintf("%s/%s", c.FolderRef(), modelID)
}

// jobTask is the status structure returned for an asynchronous job.
type jobTask struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// waitForJob polls the service until the job with the given ID completes.
func (c *Client) waitForJob(ctx context.Context, jobID string) error {
	interval := c.PollInterval
	if interval == 0 {
		interval = defaultPollInterval
	}
	c.logger().Info("waiting for job", "job", jobID)
	for {
		raw, err := c.RPC.Call(ctx, "CheckJobs", map[string]interface{}{})
		if err != nil {
			return err
		}
		var jobs map[string]jobTask
		if err := json.Unmarshal(raw, &jobs); err != nil {
			return fmt.Errorf("decode job list: %w", err)
		}
		task, ok := jobs[jobID]
		if !ok {
			return &seedrpc.JobError{Message: fmt.Sprintf("job %s was not found", jobID)}
		}
		switch task.Status {
		case "failed":
			if task.Error != "" {
				return seedrpc.NewServerError(task.Error)
			}
			return seedrpc.NewServerError("job submitted to app service failed, no details provided in response")
		case "completed":
			c.logger().Info("job completed", "job", jobID)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// submitJob calls a service method that returns a job ID and waits for the
// job to complete.
func (c *Client) submitJob(ctx context.Context, method string, params map[string]interface{}) error {
	raw, err := c.RPC.Call(ctx, method, params)
	if err != nil {
		return err
	}
	var jobID string
	if err := json.Unmarshal(raw, &jobID); err != nil {
		return fmt.Errorf("%s did not return a job ID: %w", method, err)
	}
	c.logger().Info("started job", "job", jobID, "method", method)
	return c.waitForJob(ctx, jobID)
}

// Stats returns the current statistics for a model.
func (c *Client) Stats(ctx context.Context, modelID string) (*ModelStats, error) {
	ref := c.ModelRef(modelID)
	meta, err := c.Workspace.GetMeta(ctx, ref)
	if err != nil {
		return nil, err
	}
	return StatsFromMeta(meta)
}

// Reconstruct builds a draft model for an organism and waits for the
// reconstruction job to finish. genomeID must be a genome available in the
// PATRIC data API. templateRef optionally selects a template model.
func (c *Client) Reconstruct(ctx context.Context, genomeID, modelID, templateRef string) (*ModelStats, error) {
	if c.Genome != nil {
		if _, err := c.Genome.Summary(ctx, genomeID); err != nil {
			return nil, err
		}
	}

	params := map[string]interface{}{
		"genome":               "PATRICSOLR:" + genomeID,
		"output_file":          modelID,
		"gapfill":              0,
		"predict_essentiality": 0,
	}
	if templateRef != "" {
		params["template_model"] = templateRef
	}

	// The user's modelseed folder must exist before the service saves the
	// model. Without it the folder created for the model does not get the
	// modelfolder type and later operations on the model fail.
	folderRef := c.FolderRef()
	if _, err := c.Workspace.GetMeta(ctx, folderRef); err != nil {
		if _, ok := err.(*seedrpc.ObjectNotFoundError); !ok {
			return nil, err
		}
		if err := c.Workspace.MakeFolder(ctx, folderRef); err != nil {
			return nil, err
		}
		c.logger().Info("created model folder in workspace", "folder", folderRef)
	}

	if err := c.submitJob(ctx, "ModelReconstruction", params); err != nil {
		if templateRef != "" {
			return nil, seedrpc.TranslateError(err, templateRef)
		}
		return nil, seedrpc.TranslateError(err)
	}

	stats, err := c.Stats(ctx, modelID)
	if err != nil {
		return nil, err
	}
	// The service does not report an error for an invalid genome ID.
	if stats.NumGenes == 0 {
		c.logger().Warn("model has no genes, verify genome ID is valid",
			"model", modelID, "genome", genomeID)
	}
	return stats, nil
}

// Gapfill runs gap fill on a model and integrates the solution. An empty
// mediaRef gap fills on complete media.
func (c *Client) Gapfill(ctx context.Context, modelID, mediaRef string) (*ModelStats, error) {
	ref := c.ModelRef(modelID)
	params := map[string]interface{}{
		"model":              ref,
		"integrate_solution": 1,
	}
	refs := []string{ref}
	if mediaRef != "" {
		if _, err := c.Workspace.GetMeta(ctx, mediaRef); err != nil {
			return nil, err
		}
		params["media"] = mediaRef
		refs = append(refs, mediaRef)
	}

	if _, err := c.Stats(ctx, modelID); err != nil {
		return nil, err
	}
	if err := c.submitJob(ctx, "GapfillModel", params); err != nil {
		return nil, seedrpc.TranslateError(err, refs...)
	}
	return c.Stats(ctx, modelID)
}

// Optimize runs flux balance analysis on a model and returns the objective
// value. An empty mediaRef optimizes on complete media. The fba count in the
// model metadata is not updated by the service, so the solution list is
// compared before and after to confirm a solution was produced.
func (c *Client) Optimize(ctx context.Context, modelID, mediaRef string) (float64, error) {
	before, err := c.FBASolutions(ctx, modelID)
	if err != nil {
		return 0, err
	}

	ref := c.ModelRef(modelID)
	params := map[string]interface{}{
		"model":                ref,
		"predict_essentiality": 1,
	}
	refs := []string{ref}
	if mediaRef != "" {
		if _, err := c.Workspace.GetMeta(ctx, mediaRef); err != nil {
			return 0, err
		}
		params["media"] = mediaRef
		refs = append(refs, mediaRef)
	}
	if err := c.submitJob(ctx, "FluxBalanceAnalysis", params); err != nil {
		return 0, seedrpc.TranslateError(err, refs...)
	}

	// The completed job does not reference the fba object it created, so the
	// last completed solution is taken from the refreshed list.
	solutions, err := c.FBASolutions(ctx, modelID)
	if err != nil {
		return 0, err
	}
	if len(solutions) == len(before) {
		c.logger().Warn("optimization did not return a solution", "model", modelID)
		return 0, nil
	}
	return float64(solutions[0].Objective), nil
}

// Delete removes a model from the workspace.
func (c *Client) Delete(ctx context.Context, modelID string) error {
	ref := c.ModelRef(modelID)
	c.logger().Info("deleting model", "ref", ref)
	if _, err := c.RPC.Call(ctx, "delete_model", map[string]interface{}{"model": ref}); err != nil {
		return seedrpc.TranslateError(err, ref)
	}
	return nil
}

// ModelData retrieves the complete model object.
func (c *Client) ModelData(ctx context.Context, modelID string) (*ModelData, error) {
	ref := c.ModelRef(modelID)
	raw, err := c.RPC.Call(ctx, "get_model", map[string]interface{}{"model": ref, "to": 1})
	if err != nil {
		return nil, seedrpc.TranslateError(err, ref)
	}
	return DecodeModelData(raw)
}

// ModelListing is one entry in the user's model list.
type ModelListing struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Ref          string    `json:"ref"`
	Rundate      string    `json:"rundate"`
	Status       string    `json:"status"`
	GenomeRef    string    `json:"genome_ref"`
	TemplateRef  string    `json:"template_ref"`
	NumReactions flexFloat `json:"num_reactions"`
	NumCompounds flexFloat `json:"num_compounds"`
	NumGenes     flexFloat `json:"num_genes"`
}

// ListModels returns the user's models. sortKey selects the sort field, one
// of "rundate" (newest first), "id", or "name".
func (c *Client) ListModels(ctx context.Context, sortKey string) ([]ModelListing, error) {
	raw, err := c.RPC.Call(ctx, "list_models", map[string]interface{}{})
	if err != nil {
		return nil, seedrpc.TranslateError(err)
	}
	var models []ModelListing
	if err := json.Unmarshal(raw, &models); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	switch sortKey {
	case "id":
		sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	case "name":
		sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	default:
		sort.Slice(models, func(i, j int) bool { return models[i].Rundate > models[j].Rundate })
	}
	return models, nil
}

// FBASolutions returns the flux balance analysis solutions for a model with
// flux details attached, newest first.
func (c *Client) FBASolutions(ctx context.Context, modelID string) ([]*FBASolution, error) {
	ref := c.ModelRef(modelID)
	if _, err := c.Stats(ctx, modelID); err != nil {
		return nil, err
	}
	raw, err := c.RPC.Call(ctx, "list_fba_studies", map[string]interface{}{"model": ref})
	if err != nil {
		return nil, seedrpc.TranslateError(err, ref)
	}
	var solutions []*FBASolution
	if err := json.Unmarshal(raw, &solutions); err != nil {
		return nil, fmt.Errorf("decode fba solutions: %w", err)
	}
	for _, sol := range solutions {
		data, err := c.Workspace.GetData(ctx, sol.Ref)
		if err != nil {
			return nil, err
		}
		if err := sol.attachFluxes(data); err != nil {
			return nil, err
		}
	}
	sortFBASolutions(solutions)
	return solutions, nil
}

// GapfillSolutions returns the gap fill solutions for a model, newest first,
// with reactions keyed by reaction ID in the requested ID format.
func (c *Client) GapfillSolutions(ctx context.Context, modelID, idType string) ([]*GapfillSolution, error) {
	if idType == "" {
		idType = IDTypeModelSEED
	}
	ref := c.ModelRef(modelID)
	if _, err := c.Stats(ctx, modelID); err != nil {
		return nil, err
	}
	raw, err := c.RPC.Call(ctx, "list_gapfill_solutions", map[string]interface{}{"model": ref})
	if err != nil {
		return nil, seedrpc.TranslateError(err, ref)
	}
	var solutions []*GapfillSolution
	if err := json.Unmarshal(raw, &solutions); err != nil {
		return nil, fmt.Errorf("decode gapfill solutions: %w", err)
	}
	return convertGapfillSolutions(solutions, idType), nil
}
