package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segdeploy/regmatrix/internal/matrix"
)

func sampleReport() matrix.Report {
	return matrix.Report{
		Passed:     false,
		ExitCode:   matrix.ExitFieldFail,
		ModelCount: 2,
		CaseCount:  7,
		Checks: []matrix.CheckResult{
			{Model: "FCN", Check: "metafile", Passed: true, Message: "ok"},
			{Pipeline: "pipeline_ort_dynamic_fp32", Check: "deploy_config", Passed: false, Message: "deploy_config path is empty"},
		},
		Violations: []string{"pipeline_ort_dynamic_fp32: deploy_config: deploy_config path is empty"},
		Models: []matrix.ModelSummary{
			{Name: "FCN", Metafile: "configs/fcn/fcn.yml", ModelConfigs: 1,
				Pipelines: []string{"pipeline_ort_dynamic_fp32"}, Backends: []string{"onnxruntime"},
				CaseCount: 1, BackendTested: 1},
		},
	}
}

func TestBuildMarkdown(t *testing.T) {
	md := BuildMarkdown(sampleReport())

	for _, want := range []string{
		"Status: **FAIL**",
		"Exit Code: `12`",
		"| FCN | 1 | 1 | onnxruntime | 1 | 1 |",
		"## Violations",
		"deploy_config path is empty",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestBuildMarkdown_PassStatus(t *testing.T) {
	r := matrix.Report{Passed: true, ExitCode: matrix.ExitPass}
	md := BuildMarkdown(r)
	if !strings.Contains(md, "Status: **PASS**") {
		t.Error("markdown missing PASS status")
	}
	if strings.Contains(md, "## Violations") {
		t.Error("pass report should not carry a violations section")
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteJSON(path, sampleReport()); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got matrix.Report
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got.ExitCode != matrix.ExitFieldFail {
		t.Errorf("exit code = %d, want %d", got.ExitCode, matrix.ExitFieldFail)
	}
	if got.CaseCount != 7 {
		t.Errorf("case count = %d, want 7", got.CaseCount)
	}
}

func TestWriteMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	if err := WriteMarkdown(path, sampleReport()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
}
