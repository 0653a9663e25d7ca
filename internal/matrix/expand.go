package matrix

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TestCase is one dispatchable job for the external driver: convert one
// model config with one pipeline's deploy config, then verify the result
// against the metafile baseline within the declared tolerances.
type TestCase struct {
	Model        string       `json:"model"`
	Metafile     string       `json:"metafile"`
	ModelConfig  string       `json:"model_config"`
	Pipeline     string       `json:"pipeline"`
	Backend      string       `json:"backend"`
	DeployConfig string       `json:"deploy_config"`
	SDKConfig    string       `json:"sdk_config,omitempty"`
	BackendTest  bool         `json:"backend_test"`
	InputImg     string       `json:"input_img"`
	TestImg      string       `json:"test_img"`
	Metrics      []MetricInfo `json:"metrics"`
}

// Plan is the fully expanded matrix: the (model config x pipeline) product
// for every model, in matrix order.
type Plan struct {
	PlanID      string     `json:"plan_id"`
	GeneratedAt time.Time  `json:"generated_at"`
	CodebaseDir string     `json:"codebase_dir,omitempty"`
	Cases       []TestCase `json:"cases"`
}

// Expand materializes the matrix into a Plan. Case order follows model
// order, then model config order, then pipeline order, so reports stay
// stable across runs.
func Expand(m *Matrix) Plan {
	plan := Plan{
		PlanID:      uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		CodebaseDir: m.Globals.CodebaseDir,
	}
	metrics := sharedMetrics(m.Globals)
	for _, e := range m.Models {
		for _, cfg := range e.ModelConfigs {
			for _, p := range e.Pipelines {
				plan.Cases = append(plan.Cases, TestCase{
					Model:        e.Name,
					Metafile:     e.Metafile,
					ModelConfig:  cfg,
					Pipeline:     p.Name,
					Backend:      p.Backend,
					DeployConfig: p.DeployConfig,
					SDKConfig:    p.SDKConfig,
					BackendTest:  p.BackendTest,
					InputImg:     p.ConvertImage.InputImg,
					TestImg:      p.ConvertImage.TestImg,
					Metrics:      metrics,
				})
			}
		}
	}
	return plan
}

// Pairs returns the (model, pipeline) pair set of the plan, used to compare
// matrices for equivalence after a round trip.
func (p Plan) Pairs() map[[2]string]int {
	pairs := make(map[[2]string]int)
	for _, c := range p.Cases {
		pairs[[2]string{c.Model, c.Pipeline}]++
	}
	return pairs
}

// WritePlan serializes the plan to a JSON file for the driver.
func WritePlan(path string, plan Plan) error {
	raw, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrapf(err, "write plan %s", path)
	}
	return nil
}

// sharedMetrics flattens the globals metric_info map into a stable slice,
// ordered by eval name so the plan JSON is deterministic.
func sharedMetrics(g Globals) []MetricInfo {
	if len(g.MetricInfo) == 0 {
		return nil
	}
	names := make([]string, 0, len(g.MetricInfo))
	for name := range g.MetricInfo {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]MetricInfo, 0, len(names))
	for _, name := range names {
		out = append(out, g.MetricInfo[name])
	}
	return out
}
