package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealmachine/internal/export"
	"github.com/sells-group/dealmachine/internal/session"
)

var importKeepID bool

var importCmd = &cobra.Command{
	Use:         "import <file>",
	Short:       "Import an exported record as manual values and save it",
	Args:        cobra.ExactArgs(1),
	Annotations: withMode("records"),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		doc, err := export.ReadFile(args[0])
		if err != nil {
			return err
		}

		deps, err := initDeps(false)
		if err != nil {
			return err
		}
		sess := session.New(deps)
		if err := export.ApplyDocument(sess, doc); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec := sess.Record()
		if importKeepID && doc.RecordID != "" {
			rec.ID = doc.RecordID
		}
		if err := st.Save(ctx, rec); err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.String("file", args[0]),
			zap.String("record", rec.ID),
			zap.Int("fields", len(doc.Fields)),
		)
		fmt.Fprintf(os.Stderr, "Imported record %s\n", rec.ID)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importKeepID, "keep-id", false, "reuse the exported record id, replacing any record with that id")
	rootCmd.AddCommand(importCmd)
}
