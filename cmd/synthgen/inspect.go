package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/datapoint/internal/model"
	"github.com/JonMunkholm/datapoint/internal/synth"
	"github.com/JonMunkholm/datapoint/internal/tabular"
)

// inspectReport is what inspect prints for one file.
type inspectReport struct {
	File    string          `json:"file" yaml:"file"`
	Rows    int             `json:"rows" yaml:"rows"`
	Columns []inspectColumn `json:"columns" yaml:"columns"`
}

type inspectColumn struct {
	model.ColumnMeta `yaml:",inline"`
	// Rule is the synthesizer rule used for missing cells.
	Rule    string `json:"rule" yaml:"rule"`
	Missing int    `json:"missing" yaml:"missing"`
}

func newInspectCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the detected column types and fill rules of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := inspectFile(args[0])
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), report, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format: json or yaml")
	return cmd
}

func inspectFile(file string) (*inspectReport, error) {
	t, err := tabular.ReadFile(file)
	if err != nil {
		return nil, errorf(file, "%w", err)
	}

	md := model.DetectMetadata(t)
	report := &inspectReport{File: file, Rows: t.Len()}
	for i, cm := range md.Columns {
		missing := 0
		for _, v := range t.Column(i) {
			if synth.NeedsReplacement(v) {
				missing++
			}
		}
		report.Columns = append(report.Columns, inspectColumn{
			ColumnMeta: cm,
			Rule:       synth.Rule(cm.Name),
			Missing:    missing,
		})
	}
	return report, nil
}

func writeReport(w io.Writer, report *inspectReport, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (use json or yaml)", output)
	}
}
