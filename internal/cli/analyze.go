package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/pairdoc/internal/balance"
	"github.com/HendryAvila/pairdoc/internal/history"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "analyze [dir]",
		Short: "Report misplaced content and the balance score (read-only)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(args)
			if err != nil {
				return err
			}
			an := a.engine(nil).Analyze(dir)
			a.record(history.ParamsFor(history.KindAnalyze, dir, an, nil))

			if an.HasMissing() {
				return fmt.Errorf("cannot analyze %s: missing %s", dir, strings.Join(an.MissingDocuments, ", "))
			}
			return writeAnalysis(cmd.OutOrStdout(), an, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, or yaml")
	return cmd
}

func writeAnalysis(w io.Writer, an *balance.Analysis, format string) error {
	switch strings.ToLower(format) {
	case "text":
		_, err := io.WriteString(w, balance.FormatPlan(an))
		return err
	case "json":
		data, err := json.MarshalIndent(an, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling analysis: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		data, err := analysisYAML(an)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q: use text, json, or yaml", format)
	}
}

// analysisYAML goes through the JSON encoding so the derived fields
// (balance_score, move_required) and snake_case names carry over.
func analysisYAML(an *balance.Analysis) ([]byte, error) {
	data, err := json.Marshal(an)
	if err != nil {
		return nil, fmt.Errorf("marshaling analysis: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("converting analysis: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("marshaling analysis yaml: %w", err)
	}
	return out, nil
}
