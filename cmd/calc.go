package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/session"
	"github.com/sells-group/dealmachine/internal/store"
)

var (
	calcSets   []string
	calcText   string
	calcRecord string
	calcSave   bool
	calcDiff   bool
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Project metrics from defaults, a listing text or a saved record",
	Long: "Starts from the defaults (or a saved record with --record), optionally applies a text listing, " +
		"then applies --set field=value edits as manual values and prints fields and metrics.",
	Annotations: withMode("records"),
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		deps, err := initDeps(false)
		if err != nil {
			return err
		}
		sess := session.New(deps)

		var st store.Store
		if calcRecord != "" || calcSave {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		if calcRecord != "" {
			rec, err := st.Load(ctx, calcRecord)
			if err != nil {
				return eris.Wrap(err, "calc")
			}
			if err := sess.Restore(rec); err != nil {
				return eris.Wrap(err, "calc")
			}
		}

		if calcText != "" {
			data, err := os.ReadFile(calcText)
			if err != nil {
				return eris.Wrap(err, "calc: read text")
			}
			sess.ApplyText(string(data))
		}

		edits, err := parseSets(calcSets)
		if err != nil {
			return err
		}
		for _, e := range edits {
			if err := sess.SetManual(e.field, e.raw); err != nil {
				return err
			}
		}

		writeFields(os.Stdout, sess.Fields())
		fmt.Fprintln(os.Stdout)
		writeMetrics(os.Stdout, sess.Metrics())
		if calcDiff {
			fmt.Fprintln(os.Stdout)
			writeDiff(os.Stdout, sess.Diff(), sess.Schema())
		}

		if calcSave {
			rec := sess.Record()
			if err := st.Save(ctx, rec); err != nil {
				return eris.Wrap(err, "calc: save")
			}
			fmt.Fprintf(os.Stderr, "Saved record %s\n", rec.ID)
		}
		return nil
	},
}

func init() {
	calcCmd.Flags().StringArrayVar(&calcSets, "set", nil, "manual value as field=value, e.g. --set interest_rate=7%")
	calcCmd.Flags().StringVar(&calcText, "text", "", "plain-text listing to extract from")
	calcCmd.Flags().StringVar(&calcRecord, "record", "", "start from a saved record id")
	calcCmd.Flags().BoolVar(&calcSave, "save", false, "save the result to the store")
	calcCmd.Flags().BoolVar(&calcDiff, "diff", false, "show differences from the extracted values")
	rootCmd.AddCommand(calcCmd)
}

type fieldEdit struct {
	field model.FieldID
	raw   string
}

// parseSets splits field=value pairs. Values may contain '='.
func parseSets(sets []string) ([]fieldEdit, error) {
	out := make([]fieldEdit, 0, len(sets))
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, eris.Errorf("calc: --set %q must be field=value", s)
		}
		out = append(out, fieldEdit{field: model.FieldID(k), raw: strings.TrimSpace(v)})
	}
	return out, nil
}
