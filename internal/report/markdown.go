package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/segdeploy/regmatrix/internal/matrix"
)

func BuildMarkdown(r matrix.Report) string {
	status := "PASS"
	if !r.Passed {
		status = "FAIL"
	}
	var b strings.Builder
	b.WriteString("# Deployment Regression Matrix Report\n\n")
	b.WriteString(fmt.Sprintf("- Status: **%s**\n", status))
	b.WriteString(fmt.Sprintf("- Exit Code: `%d`\n", r.ExitCode))
	b.WriteString(fmt.Sprintf("- Models: `%d`\n", r.ModelCount))
	b.WriteString(fmt.Sprintf("- Test Cases: `%d`\n\n", r.CaseCount))

	if len(r.Models) > 0 {
		b.WriteString("## Coverage\n\n")
		b.WriteString("| Model | Configs | Pipelines | Backends | Cases | Backend Tested |\n")
		b.WriteString("|---|---:|---:|---|---:|---:|\n")
		for _, m := range r.Models {
			b.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %d | %d |\n",
				m.Name, m.ModelConfigs, len(m.Pipelines), strings.Join(m.Backends, ", "), m.CaseCount, m.BackendTested))
		}
	}

	b.WriteString("\n## Checks\n\n")
	b.WriteString("| Model | Pipeline | Check | Passed | Message |\n")
	b.WriteString("|---|---|---|---:|---|\n")
	for _, c := range r.Checks {
		model := c.Model
		if model == "" {
			model = "-"
		}
		pipeline := c.Pipeline
		if pipeline == "" {
			pipeline = "-"
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %t | %s |\n",
			model, pipeline, c.Check, c.Passed, strings.ReplaceAll(c.Message, "|", "\\|")))
	}

	if len(r.Violations) > 0 {
		b.WriteString("\n## Violations\n\n")
		for _, v := range r.Violations {
			b.WriteString("- " + v + "\n")
		}
	}

	return b.String()
}

func WriteMarkdown(path string, r matrix.Report) error {
	return os.WriteFile(path, []byte(BuildMarkdown(r)), 0o644)
}
