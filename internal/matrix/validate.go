package matrix

import "fmt"

// Exit codes returned by the CLI per failure class.
const (
	ExitPass       = 0
	ExitParseFail  = 10
	ExitRefFail    = 11
	ExitFieldFail  = 12
	ExitSchemaFail = 13
)

// CheckResult records one structural check on one model or pipeline.
type CheckResult struct {
	Model    string `json:"model,omitempty"`
	Pipeline string `json:"pipeline,omitempty"`
	Check    string `json:"check"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message"`
}

// ModelSummary is the per-model coverage line carried in the report.
type ModelSummary struct {
	Name          string   `json:"name"`
	Metafile      string   `json:"metafile"`
	ModelConfigs  int      `json:"model_configs"`
	Pipelines     []string `json:"pipelines"`
	Backends      []string `json:"backends"`
	CaseCount     int      `json:"case_count"`
	BackendTested int      `json:"backend_tested"`
}

// Report is the result of validating a matrix.
type Report struct {
	Passed     bool           `json:"passed"`
	ExitCode   int            `json:"exit_code"`
	ModelCount int            `json:"model_count"`
	CaseCount  int            `json:"case_count"`
	Checks     []CheckResult  `json:"checks"`
	Violations []string       `json:"violations"`
	Models     []ModelSummary `json:"models"`
}

func (r *Report) addFailure(model, pipeline, check string, exit int, msg string) {
	r.Passed = false
	if r.ExitCode == ExitPass || exit > r.ExitCode {
		r.ExitCode = exit
	}
	r.Checks = append(r.Checks, CheckResult{Model: model, Pipeline: pipeline, Check: check, Passed: false, Message: msg})
	subject := model
	switch {
	case model == "":
		subject = pipeline
	case pipeline != "":
		subject = fmt.Sprintf("%s/%s", model, pipeline)
	}
	r.Violations = append(r.Violations, fmt.Sprintf("%s: %s: %s", subject, check, msg))
}

func (r *Report) addPass(model, pipeline, check string) {
	r.Checks = append(r.Checks, CheckResult{Model: model, Pipeline: pipeline, Check: check, Passed: true, Message: "ok"})
}

// Validate runs every structural check over the resolved matrix. Reference
// resolution already happened at load time; what remains here are the field
// invariants: non-empty paths, sdk config present where backend testing is
// enabled with a declared sdk, at least one model config per model.
func Validate(m *Matrix) Report {
	report := Report{Passed: true, ExitCode: ExitPass, ModelCount: len(m.Models)}

	for _, g := range m.Backends {
		for _, p := range g.Pipelines {
			validatePipeline(&report, "", p)
		}
	}

	for _, e := range m.Models {
		if e.Metafile == "" {
			report.addFailure(e.Name, "", "metafile", ExitFieldFail, "metafile path is empty")
		} else {
			report.addPass(e.Name, "", "metafile")
		}
		if len(e.ModelConfigs) == 0 {
			report.addFailure(e.Name, "", "model_configs", ExitFieldFail, "model declares no model configs")
		} else {
			report.addPass(e.Name, "", "model_configs")
		}
		for i, cfg := range e.ModelConfigs {
			if cfg == "" {
				report.addFailure(e.Name, "", "model_configs", ExitFieldFail, fmt.Sprintf("model config %d is empty", i))
			}
		}
		for _, p := range e.Pipelines {
			// Inline pipelines are validated in the context of the
			// model that declares them; named templates were already
			// checked once above.
			if p.Name == "" {
				validatePipeline(&report, e.Name, p)
			}
		}
		report.Models = append(report.Models, summarize(e))
		report.CaseCount += len(e.ModelConfigs) * len(e.Pipelines)
	}
	return report
}

func validatePipeline(report *Report, model string, p *PipelineProfile) {
	name := p.Name
	if name == "" {
		name = "(inline)"
	}
	if p.DeployConfig == "" {
		report.addFailure(model, name, "deploy_config", ExitFieldFail, "deploy_config path is empty")
	} else {
		report.addPass(model, name, "deploy_config")
	}
	if p.ConvertImage.InputImg == "" {
		report.addFailure(model, name, "convert_image", ExitFieldFail, "input_img path is empty")
	}
	if p.ConvertImage.TestImg == "" {
		report.addFailure(model, name, "convert_image", ExitFieldFail, "test_img path is empty")
	}
	// A pipeline opting into full backend inference testing must carry a
	// usable sdk config when it declares one at all.
	if p.BackendTest && p.SDKDeclared() && p.SDKConfig == "" {
		report.addFailure(model, name, "sdk_config", ExitFieldFail, "backend_test enabled but sdk_config is empty")
	} else if p.BackendTest && p.SDKDeclared() {
		report.addPass(model, name, "sdk_config")
	}
}

func summarize(e ModelEntry) ModelSummary {
	s := ModelSummary{
		Name:         e.Name,
		Metafile:     e.Metafile,
		ModelConfigs: len(e.ModelConfigs),
		CaseCount:    len(e.ModelConfigs) * len(e.Pipelines),
	}
	seen := map[string]bool{}
	for _, p := range e.Pipelines {
		name := p.Name
		if name == "" {
			name = "(inline)"
		}
		s.Pipelines = append(s.Pipelines, name)
		if !seen[p.Backend] && p.Backend != "" {
			seen[p.Backend] = true
			s.Backends = append(s.Backends, p.Backend)
		}
		if p.BackendTest {
			s.BackendTested++
		}
	}
	return s
}
