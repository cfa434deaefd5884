// internal/replay/driver.go
package replay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/agent"
	"github.com/xkilldash9x/replay-cli/internal/config"
	"github.com/xkilldash9x/replay-cli/internal/controller"
	"github.com/xkilldash9x/replay-cli/internal/recovery"
	"github.com/xkilldash9x/replay-cli/internal/runner"
	"github.com/xkilldash9x/replay-cli/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StepExecutor is the controller surface the driver consumes.
type StepExecutor interface {
	ExecuteStep(ctx context.Context, step *schemas.Step, vars map[string]string) *schemas.ExecutionResult
	Statistics() schemas.RunStatistics
	ResetStatistics()
}

// Driver replays one intent specification against the live page: it connects
// the session, walks the steps strictly sequentially, and writes the JSON
// action log for the run.
type Driver struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewDriver creates a playback driver.
func NewDriver(cfg *config.Config, logger *zap.Logger) *Driver {
	return &Driver{cfg: cfg, logger: logger.Named("replay")}
}

// LoadSpec reads an intent specification from a JSON file.
func LoadSpec(path string) (*schemas.IntentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent spec %s: %w", path, err)
	}
	var spec schemas.IntentSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse intent spec %s: %w", path, err)
	}
	if len(spec.Steps) == 0 {
		return nil, fmt.Errorf("intent spec %s contains no steps", path)
	}
	return &spec, nil
}

// Run executes the spec. Only a connection failure propagates as an error;
// step failures are recorded in the run log and, depending on configuration,
// either abort the remaining steps or let the run continue.
func (d *Driver) Run(ctx context.Context, spec *schemas.IntentSpec, vars map[string]string, llm schemas.LLMClient) (*schemas.RunLog, error) {
	runLog := &schemas.RunLog{
		RunID:     uuid.NewString(),
		Spec:      spec.Name,
		StartedAt: time.Now().UTC(),
	}
	log := d.logger.With(zap.String("run_id", runLog.RunID), zap.String("spec", spec.Name))

	locator := session.NewLocator(d.cfg.Browser, d.logger)
	defer locator.Close()

	page, err := locator.Connect(ctx)
	if err != nil {
		// No step can meaningfully execute without a session; this is the one
		// hard failure allowed to escape.
		return nil, err
	}

	ctrl := d.buildController(page, llm)

	if spec.StartURL != "" {
		if err := page.Navigate(ctx, spec.StartURL); err != nil {
			log.Warn("Could not navigate to start URL; continuing from current page",
				zap.String("start_url", spec.StartURL), zap.Error(err))
		}
	}

	aborted := false
	for i := range spec.Steps {
		step := &spec.Steps[i]
		if aborted {
			runLog.Entries = append(runLog.Entries, schemas.RunLogEntry{
				Step:    step.Name,
				Method:  "",
				Success: false,
				Actions: []string{"not executed: run aborted by earlier failure"},
			})
			continue
		}

		log.Info("Executing step", zap.Int("index", i+1), zap.Int("total", len(spec.Steps)), zap.String("step", step.Name))
		result := ctrl.ExecuteStep(ctx, step, vars)

		runLog.Entries = append(runLog.Entries, schemas.RunLogEntry{
			Step:    step.Name,
			Method:  string(result.Method),
			Success: result.Success,
			Actions: result.AllActions,
		})

		if !result.Success && !d.cfg.Replay.ContinueOnFailure {
			log.Error("Step failed, aborting run",
				zap.String("step", step.Name),
				zap.String("error", result.Error))
			aborted = true
		}
	}

	runLog.FinishedAt = time.Now().UTC()
	runLog.Statistics = ctrl.Statistics()

	log.Info("Run finished",
		zap.Int("total_steps", runLog.Statistics.TotalSteps),
		zap.Int("scripted_successes", runLog.Statistics.ScriptedSuccesses),
		zap.Int("ai_successes", runLog.Statistics.AISuccesses),
		zap.Int("skipped", runLog.Statistics.Skipped),
	)
	return runLog, nil
}

// buildController is the composition point for the execution tiers.
func (d *Driver) buildController(page schemas.PageSession, llm schemas.LLMClient) StepExecutor {
	planner := agent.NewPlanner(llm, page, d.cfg.Recovery, d.logger)
	scripted := runner.New(d.cfg.Runner, d.logger)
	recoverer := recovery.New(d.cfg.Recovery, planner, d.logger)
	return controller.New(d.cfg.Recovery, page, scripted, recoverer, d.logger)
}

// WriteRunLog persists the audit artifact under the configured output
// directory and returns its path.
func (d *Driver) WriteRunLog(runLog *schemas.RunLog) (string, error) {
	dir := d.cfg.Replay.OutputDir
	if dir == "" {
		dir = "runs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("run-%s-%s.json", runLog.StartedAt.Format("20060102-150405"), runLog.RunID[:8]))
	data, err := json.MarshalIndent(runLog, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write run log %s: %w", path, err)
	}
	return path, nil
}
