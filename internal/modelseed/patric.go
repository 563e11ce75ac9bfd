package modelseed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"seedtools/internal/genome"
	"seedtools/internal/seedrpc"
	"seedtools/internal/workspace"
)

// AppServiceURL is the production PATRIC app service endpoint.
const AppServiceURL = "https://p3.theseed.org/services/app_service"

// Folder names under the user's workspace where the PATRIC web interface
// keeps models.
const (
	homeFolder       = "home"
	patricModelsName = "models"
)

// App describes one application available through the app service.
type App struct {
	ID          string `json:"id"`
	Script      string `json:"script"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// AppClient runs model operations through the PATRIC app service. Models
// built this way live in the user's home/models folder and are shown in the
// PATRIC web interface.
type AppClient struct {
	RPC       *seedrpc.Client
	Workspace *workspace.Client

	// Genome verifies genome IDs before submitting reconstruction tasks.
	// When nil, verification is skipped.
	Genome *genome.Client

	// PollInterval is the delay between task status checks. When zero, three
	// seconds is used.
	PollInterval time.Duration

	Logger *log.Logger
}

// NewAppClient creates a client for the PATRIC app service. An empty url
// selects the production service.
func NewAppClient(url, token string, ws *workspace.Client) *AppClient {
	if url == "" {
		url = AppServiceURL
	}
	return &AppClient{
		RPC:       seedrpc.NewClient(url, "AppService", token),
		Workspace: ws,
	}
}

func (c *AppClient) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return discardLogger
}

// ModelFolderRef returns the workspace reference to the user's PATRIC model
// folder.
func (c *AppClient) ModelFolderRef() string {
	return fmt.Sprintf("/%s/%s/%s", c.RPC.Username, homeFolder, patricModelsName)
}

// ModelRef returns the workspace reference to a PATRIC model's hidden
// folder.
func (c *AppClient) ModelRef(modelID string) string {
	return fmt.Sprintf("%s/.%s", c.ModelFolderRef(), modelID)
}

// CheckService confirms that app service job submission is enabled.
func (c *AppClient) CheckService(ctx context.Context) error {
	raw, err := c.RPC.Call(ctx, "service_status", map[string]interface{}{})
	if err != nil {
		return err
	}
	var status []string
	if err := json.Unmarshal(raw, &status); err != nil || len(status) == 0 {
		return fmt.Errorf("service status has unexpected shape: %s", string(raw))
	}
	if status[0] != "1" {
		message := ""
		if len(status) > 1 {
			message = status[1]
		}
		return seedrpc.NewServerError(fmt.Sprintf("app service at %s is not available: %s", c.RPC.URL, message))
	}
	return nil
}

// ListApps returns the applications available through the app service.
func (c *AppClient) ListApps(ctx context.Context) ([]App, error) {
	raw, err := c.RPC.Call(ctx, "enumerate_apps", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	var apps []App
	if err := json.Unmarshal(raw, &apps); err == nil {
		return apps, nil
	}
	// Some deployments wrap the list in another array.
	var nested [][]App
	if err := json.Unmarshal(raw, &nested); err != nil || len(nested) == 0 {
		return nil, fmt.Errorf("decode app list: %s", string(raw))
	}
	return nested[0], nil
}

// waitForTask polls the app service until the task with the given ID
// completes.
func (c *AppClient) waitForTask(ctx context.Context, taskID string) error {
	interval := c.PollInterval
	if interval == 0 {
		interval = defaultPollInterval
	}
	c.logger().Info("waiting for task", "task", taskID)
	for {
		raw, err := c.RPC.Call(ctx, "query_tasks", []interface{}{[]string{taskID}})
		if err != nil {
			return err
		}
		var tasks map[string]jobTask
		if err := json.Unmarshal(raw, &tasks); err != nil {
			return fmt.Errorf("decode task list: %w", err)
		}
		task, ok := tasks[taskID]
		if !ok {
			return &seedrpc.JobError{Message: fmt.Sprintf("task %s was not found", taskID)}
		}
		switch task.Status {
		case "failed":
			c.logger().Info("task failed", "task", taskID)
			if task.Error != "" {
				return seedrpc.NewServerError(task.Error)
			}
			return seedrpc.NewServerError("task submitted to app service failed, no details provided in response")
		case "completed":
			c.logger().Info("task completed", "task", taskID)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// CreateModel reconstructs, gap fills, and optimizes a model for an
// organism through the ModelReconstruction app. mediaRef, templateRef, and
// outputFolder are optional.
func (c *AppClient) CreateModel(ctx context.Context, genomeID, modelID, mediaRef, templateRef, outputFolder string) (*ModelStats, error) {
	if c.Genome != nil {
		if _, err := c.Genome.Summary(ctx, genomeID); err != nil {
			return nil, err
		}
	}

	params := map[string]interface{}{
		"genome":      "PATRICSOLR:" + genomeID,
		"output_file": modelID,
		"fulldb":      0,
	}
	if templateRef != "" {
		if _, err := c.Workspace.GetMeta(ctx, templateRef); err != nil {
			return nil, err
		}
		params["template_model"] = templateRef
	}
	if mediaRef != "" {
		if _, err := c.Workspace.GetMeta(ctx, mediaRef); err != nil {
			return nil, err
		}
		params["media"] = mediaRef
	}
	if outputFolder == "" {
		outputFolder = c.ModelFolderRef()
	}
	params["output_path"] = outputFolder

	raw, err := c.RPC.Call(ctx, "start_app", []interface{}{"ModelReconstruction", params, outputFolder})
	if err != nil {
		if templateRef != "" {
			return nil, seedrpc.TranslateError(err, templateRef)
		}
		return nil, seedrpc.TranslateError(err)
	}
	var task jobTask
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("start_app did not return a task: %w", err)
	}
	c.logger().Info("started task to run model reconstruction",
		"task", task.ID, "genome", genomeID)
	if err := c.waitForTask(ctx, task.ID); err != nil {
		if templateRef != "" {
			return nil, seedrpc.TranslateError(err, templateRef)
		}
		return nil, seedrpc.TranslateError(err)
	}
	return c.Stats(ctx, modelID)
}

// Stats returns the current statistics for a model.
func (c *AppClient) Stats(ctx context.Context, modelID string) (*ModelStats, error) {
	meta, err := c.Workspace.GetMeta(ctx, c.ModelRef(modelID))
	if err != nil {
		return nil, err
	}
	return StatsFromMeta(meta)
}

// ModelData retrieves the complete model object from the model's folder.
func (c *AppClient) ModelData(ctx context.Context, modelID string) (*ModelData, error) {
	ref := c.ModelRef(modelID) + "/model"
	data, err := c.Workspace.GetData(ctx, ref)
	if err != nil {
		return nil, err
	}
	return DecodeModelData(data)
}

// Delete removes a model from the workspace. A PATRIC model has both a
// hidden folder and a model object in the user's model folder.
func (c *AppClient) Delete(ctx context.Context, modelID string) error {
	folderRef := c.ModelRef(modelID)
	objectRef := c.ModelFolderRef() + "/" + modelID
	c.logger().Info("deleting model", "ref", folderRef)
	if err := c.Workspace.Delete(ctx, folderRef, true); err != nil {
		return err
	}
	return c.Workspace.Delete(ctx, objectRef, false)
}

// ListModels returns statistics for every model in the user's model folder.
func (c *AppClient) ListModels(ctx context.Context) ([]*ModelStats, error) {
	objects, err := c.Workspace.List(ctx, c.ModelFolderRef())
	if err != nil {
		return nil, err
	}
	var models []*ModelStats
	for i := range objects {
		if objects[i].Type != "model" {
			continue
		}
		stats, err := StatsFromMeta(&objects[i])
		if err != nil {
			continue
		}
		models = append(models, stats)
	}
	return models, nil
}

// FBASolutions returns the flux balance analysis solutions for a model,
// newest first, built from the fba objects in the model's fba folder.
func (c *AppClient) FBASolutions(ctx context.Context, modelID string) ([]*FBASolution, error) {
	ref := c.ModelRef(modelID)
	if _, err := c.Stats(ctx, modelID); err != nil {
		return nil, err
	}
	objects, err := c.Workspace.List(ctx, ref+"/fba")
	if err != nil {
		return nil, err
	}

	var solutions []*FBASolution
	for i := range objects {
		if objects[i].Type != "fba" {
			continue
		}
		// The list operation does not fill in metadata for fba objects, so
		// each one is fetched individually.
		meta, err := c.Workspace.GetMeta(ctx, objects[i].Ref())
		if err != nil {
			return nil, err
		}
		sol := &FBASolution{
			ID:                meta.Name,
			MediaRef:          metaString(meta.UserMeta, "media"),
			Objective:         flexFloat(metaFloat(meta.AutoMeta, "objectiveValue")),
			ObjectiveFunction: metaString(meta.AutoMeta, "objective_function"),
			Ref:               meta.Ref(),
			Rundate:           meta.Created,
		}
		data, err := c.Workspace.GetData(ctx, sol.Ref)
		if err != nil {
			return nil, err
		}
		if err := sol.attachFluxes(data); err != nil {
			return nil, err
		}
		solutions = append(solutions, sol)
	}
	sortFBASolutions(solutions)
	return solutions, nil
}

// GapfillSolutions returns the gap fill solutions for a model, newest first,
// built from the fba objects in the model's gapfilling folder. Solution
// details are parsed from the solution data recorded in each object's
// metadata.
func (c *AppClient) GapfillSolutions(ctx context.Context, modelID, idType string) ([]*GapfillSolution, error) {
	if idType == "" {
		idType = IDTypeModelSEED
	}
	ref := c.ModelRef(modelID)
	if _, err := c.Stats(ctx, modelID); err != nil {
		return nil, err
	}
	objects, err := c.Workspace.List(ctx, ref+"/gapfilling")
	if err != nil {
		return nil, err
	}

	var solutions []*GapfillSolution
	for i := range objects {
		if objects[i].Type != "fba" {
			continue
		}
		meta := &objects[i]
		sol := &GapfillSolution{
			ID:                 meta.Name,
			Integrated:         flexFloat(metaFloat(meta.UserMeta, "integrated")),
			IntegratedSolution: flexFloat(metaFloat(meta.UserMeta, "integrated_solution")),
			MediaRef:           metaString(meta.UserMeta, "media"),
			Ref:                meta.Ref(),
			Rundate:            meta.Created,
		}
		reactions, err := parseSolutionData(metaString(meta.UserMeta, "solutiondata"))
		if err != nil {
			return nil, fmt.Errorf("solution %s: %w", sol.Ref, err)
		}
		sol.SolutionReactions = [][]GapfillReaction{reactions}
		solutions = append(solutions, sol)
	}
	return convertGapfillSolutions(solutions, idType), nil
}

// parseSolutionData decodes the JSON solution data recorded in a gap fill
// object's metadata. Only the first solution in the list is used.
func parseSolutionData(data string) ([]GapfillReaction, error) {
	if data == "" {
		return nil, nil
	}
	var raw [][]struct {
		ReactionRef      string      `json:"reaction_ref"`
		Direction        string      `json:"direction"`
		CompartmentRef   string      `json:"compartment_ref"`
		CompartmentIndex json.Number `json:"compartmentIndex"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("decode solution data: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	reactions := make([]GapfillReaction, 0, len(raw[0]))
	for _, rxn := range raw[0] {
		reactions = append(reactions, GapfillReaction{
			Reaction:    rxn.ReactionRef,
			Direction:   rxn.Direction,
			Compartment: lastRefElement(rxn.CompartmentRef) + rxn.CompartmentIndex.String(),
		})
	}
	return reactions, nil
}
