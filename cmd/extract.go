package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealmachine/internal/export"
	"github.com/sells-group/dealmachine/internal/ocr"
	"github.com/sells-group/dealmachine/internal/projection"
	"github.com/sells-group/dealmachine/internal/session"
	"github.com/sells-group/dealmachine/internal/store"
)

var (
	extractSave    bool
	extractExport  bool
	extractFormat  string
	extractVerbose bool
)

var extractCmd = &cobra.Command{
	Use:         "extract <files...>",
	Short:       "Extract fields and metrics from listing sheets",
	Long:        "Reads each PDF or text listing, extracts fields, fills the rest from defaults and prints the projected metrics. Files are processed concurrently.",
	Args:        cobra.MinimumNArgs(1),
	Annotations: withMode("extract"),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := initDeps(true)
		if err != nil {
			return err
		}

		format := extractFormat
		if format == "" {
			format = cfg.Export.Format
		}
		if extractExport {
			if _, err := export.ParseFormat(format); err != nil {
				return err
			}
		}

		var st store.Store
		if extractSave {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		names := exportNames(args, format)
		results, err := extractFiles(ctx, args, cfg.Batch.MaxConcurrent, func(ctx context.Context, i int, path string) (*extractResult, error) {
			return extractOne(ctx, deps, st, path, names[i])
		})
		if err != nil {
			return err
		}

		writeExtractSummary(os.Stdout, results)
		if extractVerbose {
			for _, r := range results {
				if r.session == nil {
					continue
				}
				fmt.Fprintf(os.Stdout, "\n== %s ==\n", r.path)
				writeFields(os.Stdout, r.session.Fields())
				fmt.Fprintln(os.Stdout)
				writeMetrics(os.Stdout, r.session.Metrics())
			}
		}

		for _, r := range results {
			if r.err != nil && !errors.Is(r.err, ocr.ErrExtractionUnavailable) {
				return eris.New("extract: one or more files failed")
			}
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "save each record to the store")
	extractCmd.Flags().BoolVar(&extractExport, "export", false, "write an export file per listing into the configured export dir")
	extractCmd.Flags().StringVar(&extractFormat, "format", "", "export format: json, yaml or xlsx (default from config)")
	extractCmd.Flags().BoolVarP(&extractVerbose, "verbose", "v", false, "print every field and metric")
	rootCmd.AddCommand(extractCmd)
}

// extractResult is the outcome of one file. err is set for failures and for
// unavailable extraction, in which case session still holds the defaults.
type extractResult struct {
	path       string
	session    *session.Session
	recordID   string
	exportPath string
	err        error
}

// extractFunc handles paths[i].
type extractFunc func(ctx context.Context, i int, path string) (*extractResult, error)

// extractFiles runs fn over paths with at most concurrency in flight. Results
// keep the order of paths; a failing file does not stop the others.
func extractFiles(ctx context.Context, paths []string, concurrency int, fn extractFunc) ([]*extractResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]*extractResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	for i, path := range paths {
		g.Go(func() error {
			log := zap.L().With(zap.String("file", path))

			res, err := fn(gctx, i, path)
			if res == nil {
				res = &extractResult{path: path}
			}
			if err != nil {
				res.err = err
				failed.Add(1)
				log.Warn("extraction failed", zap.Error(err))
			} else {
				succeeded.Add(1)
				log.Info("extraction complete", zap.String("record", res.recordID))
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "extract batch")
	}
	zap.L().Info("extract complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results, nil
}

func extractOne(ctx context.Context, deps session.Deps, st store.Store, path, exportName string) (*extractResult, error) {
	sess := session.New(deps)
	res := &extractResult{path: path, session: sess}

	_, err := sess.LoadDocument(ctx, nil, path)
	if err != nil && !errors.Is(err, ocr.ErrExtractionUnavailable) {
		res.session = nil
		return res, err
	}
	loadErr := err

	if st != nil {
		rec := sess.Record()
		if err := st.Save(ctx, rec); err != nil {
			return res, err
		}
		res.recordID = rec.ID
	}

	if extractExport {
		out := filepath.Join(cfg.Export.Dir, exportName)
		if err := export.WriteFile(out, export.Build(sess)); err != nil {
			return res, err
		}
		res.exportPath = out
	}
	return res, loadErr
}

// exportNames returns one export file name per path: the input's base name
// with the format's extension. Inputs sharing a base name get their 1-based
// position appended so no two exports land on the same file.
func exportNames(paths []string, format string) []string {
	stems := make([]string, len(paths))
	seen := make(map[string]int, len(paths))
	for i, p := range paths {
		stems[i] = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		seen[stems[i]]++
	}
	names := make([]string, len(paths))
	for i, stem := range stems {
		if seen[stem] > 1 {
			stem = fmt.Sprintf("%s-%d", stem, i+1)
		}
		names[i] = stem + "." + format
	}
	return names
}

func writeExtractSummary(out io.Writer, results []*extractResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FILE\tGPI\tNOI\tCAP RATE\tDSCR\tSTATUS")
	_, _ = fmt.Fprintln(w, "----\t---\t---\t--------\t----\t------")
	for _, r := range results {
		status := "ok"
		if r.recordID != "" {
			status = "saved " + truncateID(r.recordID)
		}
		if r.err != nil {
			status = "error: " + r.err.Error()
			if errors.Is(r.err, ocr.ErrExtractionUnavailable) {
				status = "defaults only (extraction unavailable)"
			}
		}

		cols := []string{"-", "-", "-", "-"}
		if r.session != nil {
			res := r.session.Evaluate()
			for i, id := range []projection.MetricID{projection.GPI, projection.NOI, projection.CapRate, projection.DSCR} {
				m, _ := projection.Default().Metric(id)
				cols[i] = formatMetric(m.Unit, res.Get(id).Ptr())
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			filepath.Base(r.path), cols[0], cols[1], cols[2], cols[3], status)
	}
	_ = w.Flush()
}
