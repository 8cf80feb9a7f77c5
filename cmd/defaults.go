package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/dealmachine/internal/defaults"
	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/registry"
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Show or change the default values used for missing fields",
}

var defaultsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective defaults",
	RunE: func(_ *cobra.Command, _ []string) error {
		schema := registry.DefaultSchema()
		tbl, err := defaults.LoadFile(cfg.Defaults.File, schema)
		if err != nil {
			return err
		}
		writeDefaults(os.Stdout, schema, tbl)
		return nil
	},
}

var defaultsSetCmd = &cobra.Command{
	Use:   "set <field=value>...",
	Short: "Override defaults in the user defaults file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		schema := registry.DefaultSchema()
		tbl, err := defaults.LoadFile(cfg.Defaults.File, schema)
		if err != nil {
			return err
		}

		edits, err := parseSets(args)
		if err != nil {
			return err
		}
		for _, e := range edits {
			v, err := defaults.Parse(schema, e.field, e.raw)
			if err != nil {
				return err
			}
			tbl = tbl.With(e.field, v)
		}

		if err := defaults.SaveFile(cfg.Defaults.File, schema, tbl); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Updated %s\n", cfg.Defaults.File)
		writeDefaults(os.Stdout, schema, tbl)
		return nil
	},
}

var defaultsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard user overrides and return to the shipped defaults",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := defaults.ResetFile(cfg.Defaults.File); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Defaults reset to the shipped values.")
		writeDefaults(os.Stdout, registry.DefaultSchema(), defaults.Builtin())
		return nil
	},
}

func init() {
	defaultsCmd.AddCommand(defaultsShowCmd, defaultsSetCmd, defaultsResetCmd)
	rootCmd.AddCommand(defaultsCmd)
}

func writeDefaults(out io.Writer, schema *model.Schema, tbl *defaults.Table) {
	overrides := tbl.Overrides()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FIELD\tDEFAULT\t")
	for _, def := range schema.Defs() {
		v, ok := tbl.DefaultFor(def.ID)
		if !ok {
			continue
		}
		mark := ""
		if _, ok := overrides[def.ID]; ok {
			mark = "(user)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", def.Label, formatValue(def.Type, v), mark)
	}
	_ = w.Flush()
}
