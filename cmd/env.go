package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealmachine/internal/defaults"
	"github.com/sells-group/dealmachine/internal/ocr"
	"github.com/sells-group/dealmachine/internal/registry"
	"github.com/sells-group/dealmachine/internal/scorer"
	"github.com/sells-group/dealmachine/internal/session"
	"github.com/sells-group/dealmachine/internal/store"
)

// initStore opens and migrates the configured record store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// initLibrary returns the built-in pattern library extended with the
// configured extra rules file, if any.
func initLibrary() (*registry.Library, error) {
	lib := registry.Default()
	if cfg.Patterns.ExtraFile == "" {
		return lib, nil
	}
	specs, err := registry.LoadRulesFromFile(cfg.Patterns.ExtraFile)
	if err != nil {
		return nil, err
	}
	lib, err = lib.Extend(specs)
	if err != nil {
		return nil, eris.Wrap(err, "extend pattern library")
	}
	zap.L().Info("loaded extra extraction rules",
		zap.String("file", cfg.Patterns.ExtraFile),
		zap.Int("rules", len(specs)),
	)
	return lib, nil
}

// initDeps builds the shared session collaborators from config. The
// document reader is only built when withReader is set.
func initDeps(withReader bool) (session.Deps, error) {
	lib, err := initLibrary()
	if err != nil {
		return session.Deps{}, err
	}

	tbl, err := defaults.LoadFile(cfg.Defaults.File, lib.Schema())
	if err != nil {
		return session.Deps{}, err
	}

	sc, err := scorer.FromConfig(cfg.Gradient)
	if err != nil {
		return session.Deps{}, err
	}

	deps := session.Deps{Library: lib, Defaults: tbl, Scorer: sc}
	if withReader {
		r, err := ocr.New(cfg.OCR)
		if err != nil {
			return session.Deps{}, err
		}
		deps.Reader = r
	}
	return deps, nil
}
