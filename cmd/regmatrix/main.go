package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/segdeploy/regmatrix/internal/matrix"
	"github.com/segdeploy/regmatrix/internal/report"
	"github.com/segdeploy/regmatrix/pkg/schema"
	"github.com/spf13/cobra"
)

type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		var ce cliError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, ce.err)
			os.Exit(ce.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "regmatrix",
		Short: "Deployment regression test matrix tooling",
	}
	root.AddCommand(newValidateCommand())
	root.AddCommand(newExpandCommand())
	root.AddCommand(newReportCommand())
	root.AddCommand(newNormalizeCommand())
	return root
}

// loadMatrix maps loader failures to the exit code of their class:
// unreadable/unparseable documents and broken pipeline references are
// different defects for whoever maintains the matrix file.
func loadMatrix(path string) (*matrix.Matrix, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, cliError{code: matrix.ExitParseFail, err: err}
	}
	m, err := matrix.Parse(raw)
	if err != nil {
		var refErr *matrix.ReferenceError
		if errors.As(err, &refErr) {
			return nil, nil, cliError{code: matrix.ExitRefFail, err: err}
		}
		return nil, nil, cliError{code: matrix.ExitParseFail, err: err}
	}
	return m, raw, nil
}

func newValidateCommand() *cobra.Command {
	var matrixPath, schemaPath, format, outPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate matrix structure and referential integrity",
		RunE: func(_ *cobra.Command, _ []string) error {
			if matrixPath == "" {
				return fmt.Errorf("--matrix is required")
			}
			m, raw, err := loadMatrix(matrixPath)
			if err != nil {
				return err
			}

			if schemaPath != "" {
				doc, err := schema.DecodeDocument(raw)
				if err != nil {
					return cliError{code: matrix.ExitParseFail, err: err}
				}
				violations, err := schema.Validate(schemaPath, doc)
				if err != nil {
					return err
				}
				if len(violations) > 0 {
					for _, v := range violations {
						fmt.Fprintln(os.Stderr, v)
					}
					return cliError{code: matrix.ExitSchemaFail, err: fmt.Errorf("matrix does not conform to %s", schemaPath)}
				}
			}

			r := matrix.Validate(m)
			switch format {
			case "json":
				if outPath == "" {
					outPath = "validate.json"
				}
				if err := report.WriteJSON(outPath, r); err != nil {
					return err
				}
				fmt.Println(outPath)
			case "md":
				if outPath == "" {
					outPath = "validate.md"
				}
				if err := report.WriteMarkdown(outPath, r); err != nil {
					return err
				}
				fmt.Println(outPath)
			default:
				return fmt.Errorf("unsupported format %s", format)
			}

			if !r.Passed {
				return cliError{code: r.ExitCode, err: fmt.Errorf("matrix validation failed")}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&matrixPath, "matrix", "", "matrix YAML path")
	cmd.Flags().StringVar(&schemaPath, "schema", "schemas/v1/matrix.schema.json", "JSON schema path (empty to skip)")
	cmd.Flags().StringVar(&format, "format", "json", "output format (json|md)")
	cmd.Flags().StringVar(&outPath, "out", "", "output report path")
	return cmd
}

func newExpandCommand() *cobra.Command {
	var matrixPath, outPath string
	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Expand the matrix into a dispatchable test plan",
		RunE: func(_ *cobra.Command, _ []string) error {
			if matrixPath == "" {
				return fmt.Errorf("--matrix is required")
			}
			m, _, err := loadMatrix(matrixPath)
			if err != nil {
				return err
			}
			if r := matrix.Validate(m); !r.Passed {
				for _, v := range r.Violations {
					fmt.Fprintln(os.Stderr, v)
				}
				return cliError{code: r.ExitCode, err: fmt.Errorf("refusing to expand an invalid matrix")}
			}
			plan := matrix.Expand(m)
			if err := matrix.WritePlan(outPath, plan); err != nil {
				return err
			}
			fmt.Printf("%s: %d cases\n", outPath, len(plan.Cases))
			return nil
		},
	}
	cmd.Flags().StringVar(&matrixPath, "matrix", "", "matrix YAML path")
	cmd.Flags().StringVar(&outPath, "out", "plan.json", "plan output path")
	return cmd
}

func newReportCommand() *cobra.Command {
	var inPath, outPath string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate markdown report from validate JSON",
		RunE: func(_ *cobra.Command, _ []string) error {
			if inPath == "" || outPath == "" {
				return fmt.Errorf("--in and --out are required")
			}
			raw, err := os.ReadFile(inPath)
			if err != nil {
				return err
			}
			var r matrix.Report
			if err := json.Unmarshal(raw, &r); err != nil {
				return err
			}
			if err := report.WriteMarkdown(outPath, r); err != nil {
				return err
			}
			fmt.Println(outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "validate report json input")
	cmd.Flags().StringVar(&outPath, "out", "", "markdown output")
	return cmd
}

func newNormalizeCommand() *cobra.Command {
	var matrixPath, outPath string
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Rewrite the matrix in normalized form, preserving anchors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if matrixPath == "" {
				return fmt.Errorf("--matrix is required")
			}
			m, _, err := loadMatrix(matrixPath)
			if err != nil {
				return err
			}
			if outPath == "" {
				raw, err := matrix.Marshal(m)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(raw))
				return nil
			}
			if err := matrix.WriteFile(outPath, m); err != nil {
				return err
			}
			fmt.Println(outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&matrixPath, "matrix", "", "matrix YAML path")
	cmd.Flags().StringVar(&outPath, "out", "", "output path (stdout when empty)")
	return cmd
}
