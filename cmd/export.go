package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dealmachine/internal/export"
	"github.com/sells-group/dealmachine/internal/session"
)

var (
	exportOut    string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:         "export <record-id>",
	Short:       "Export a saved record to JSON, YAML or XLSX",
	Args:        cobra.ExactArgs(1),
	Annotations: withMode("records"),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := st.Load(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export")
		}

		deps, err := initDeps(false)
		if err != nil {
			return err
		}
		sess := session.New(deps)
		if err := sess.Restore(rec); err != nil {
			return eris.Wrap(err, "export")
		}
		doc := export.Build(sess)

		if exportOut == "-" {
			format, err := export.ParseFormat(exportFormatOrDefault())
			if err != nil {
				return err
			}
			return export.Write(os.Stdout, doc, format)
		}

		path := exportOut
		if path == "" {
			path = filepath.Join(cfg.Export.Dir, rec.ID+"."+exportFormatOrDefault())
		}
		if err := export.WriteFile(path, doc); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
		return nil
	},
}

func exportFormatOrDefault() string {
	if exportFormat != "" {
		return exportFormat
	}
	return cfg.Export.Format
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", `output file, or "-" for stdout (default <export.dir>/<id>.<format>)`)
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "json, yaml or xlsx (default from config)")
	rootCmd.AddCommand(exportCmd)
}
