package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dealmachine/internal/session"
	"github.com/sells-group/dealmachine/internal/store"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect saved property records",
	Long:  "Commands for listing, viewing, and deleting saved property records.",
}

// -- records list --

var recordsListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List saved records, most recently updated first",
	Annotations: withMode("records"),
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		query, _ := cmd.Flags().GetString("query")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		recs, err := st.List(ctx, store.ListFilter{Query: query, Limit: limit, Offset: offset})
		if err != nil {
			return eris.Wrap(err, "records list")
		}
		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "No records found.")
			return nil
		}

		writeRecords(os.Stdout, recs)
		return nil
	},
}

// -- records show --

var recordsShowCmd = &cobra.Command{
	Use:         "show <record-id>",
	Short:       "Show a record's fields and metrics",
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
			return eris.Wrap(err, "records show")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}

		deps, err := initDeps(false)
		if err != nil {
			return err
		}
		sess := session.New(deps)
		if err := sess.Restore(rec); err != nil {
			return eris.Wrap(err, "records show")
		}

		fmt.Fprintf(os.Stdout, "%s (%s)\n", rec.Name, rec.ID)
		if rec.SourcePath != "" {
			fmt.Fprintf(os.Stdout, "Source: %s\n", rec.SourcePath)
		}
		fmt.Fprintf(os.Stdout, "Updated: %s\n\n", rec.UpdatedAt.Format("2006-01-02 15:04"))
		writeFields(os.Stdout, sess.Fields())
		fmt.Fprintln(os.Stdout)
		writeMetrics(os.Stdout, sess.Metrics())

		if diff, _ := cmd.Flags().GetBool("diff"); diff {
			fmt.Fprintln(os.Stdout)
			writeDiff(os.Stdout, sess.Diff(), sess.Schema())
		}
		if preview, _ := cmd.Flags().GetBool("preview"); preview && rec.RawTextPreview != "" {
			fmt.Fprintf(os.Stdout, "\n-- raw text preview --\n%s\n", rec.RawTextPreview)
		}
		return nil
	},
}

// -- records delete --

var recordsDeleteCmd = &cobra.Command{
	Use:         "delete <record-id>",
	Short:       "Delete a saved record",
	Args:        cobra.ExactArgs(1),
	Annotations: withMode("records"),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Delete(ctx, args[0]); err != nil {
			return eris.Wrap(err, "records delete")
		}
		fmt.Fprintf(os.Stderr, "Deleted record %s\n", args[0])
		return nil
	},
}

func init() {
	recordsListCmd.Flags().String("query", "", "filter by name or MLS number")
	recordsListCmd.Flags().Int("limit", 50, "max records to show")
	recordsListCmd.Flags().Int("offset", 0, "records to skip")

	recordsShowCmd.Flags().Bool("json", false, "print the stored record as JSON")
	recordsShowCmd.Flags().Bool("diff", false, "show differences from the extracted values")
	recordsShowCmd.Flags().Bool("preview", false, "print the stored raw text preview")

	recordsCmd.AddCommand(recordsListCmd, recordsShowCmd, recordsDeleteCmd)
	rootCmd.AddCommand(recordsCmd)
}
