package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tbroadley/sandpaper/internal/ruleset"
	"github.com/tbroadley/sandpaper/pkg/sandpaper"
)

func newRulesCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "rules [RULES]",
		Short: "List available rules, or show a rule-set",
		Long: `Without an argument, list the rule names a rule-set file may use.

With a rule-set file, load and validate it, then print its name, its
identifier and every rule in execution order.`,
		Example: `  sandpaper rules
  sandpaper rules people.yaml
  sandpaper rules people.yaml --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range ruleset.RuleNames() {
					_, _ = fmt.Fprintln(w, name)
				}
				return nil
			}

			sp, err := ruleset.Load(args[0])
			if err != nil {
				return err
			}
			switch format {
			case "json":
				return renderRulesJSON(w, sp)
			case "", "table":
				renderRulesTable(w, sp)
				return nil
			default:
				return fmt.Errorf("unknown format %q (want table or json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json")
	return cmd
}

func renderRulesTable(w io.Writer, sp *sandpaper.SandPaper) {
	_, _ = fmt.Fprintf(w, "name: %s\nuid:  %s\n", sp.Name(), sp.UID())

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "rule", "kind", "signature"})
	for _, r := range sp.Rules() {
		t.AppendRow(table.Row{r.Index, r.Name, r.Kind.String(), r.Signature})
	}
	t.Render()
}

type ruleJSON struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Signature string `json:"signature"`
}

func renderRulesJSON(w io.Writer, sp *sandpaper.SandPaper) error {
	out := struct {
		Name  string     `json:"name"`
		UID   string     `json:"uid"`
		Rules []ruleJSON `json:"rules"`
	}{Name: sp.Name(), UID: sp.UID(), Rules: []ruleJSON{}}
	for _, r := range sp.Rules() {
		out.Rules = append(out.Rules, ruleJSON{Index: r.Index, Name: r.Name, Kind: r.Kind.String(), Signature: r.Signature})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
