package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chadibenrejeb/hive-watch/pkg/alerting"
	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var rulesOutput string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the effective alert rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := alerting.LoadRules(cfg.Alerts.RulesFile)
		if err != nil {
			return err
		}
		return printRules(cmd.OutOrStdout(), rules, rulesOutput)
	},
}

func init() {
	rulesCmd.Flags().StringVarP(&rulesOutput, "output", "o", "table", "output format (table, yaml)")
	rootCmd.AddCommand(rulesCmd)
}

func printRules(w io.Writer, rules []entities.AlertRule, format string) error {
	switch format {
	case "yaml":
		out, err := yaml.Marshal(entities.RuleSet{Rules: rules})
		if err != nil {
			return errors.Wrap(err, "encode rules")
		}
		_, err = w.Write(out)
		return err
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFIELD\tCONDITION\tTHRESHOLD\tSEVERITY\tMESSAGE")
		for _, rule := range rules {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\t%s\n", rule.ID, rule.Field, rule.Condition, rule.Threshold, rule.Severity, rule.Message)
		}
		return tw.Flush()
	}
	return errors.Errorf("unknown output format %q", format)
}
