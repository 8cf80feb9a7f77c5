package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealmachine/internal/ocr"
	"github.com/sells-group/dealmachine/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Start the HTTP API for editing sessions and saved records",
	Annotations: withMode("serve"),
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := initDeps(true)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srvCfg := cfg.Server
		if servePort != 0 {
			srvCfg.Port = servePort
		}

		maxUpload := int64(cfg.OCR.MaxFileMB) << 20
		if maxUpload <= 0 {
			maxUpload = ocr.DefaultMaxFileBytes
		}

		srv := server.New(deps, st, srvCfg, server.WithMaxUpload(maxUpload))
		zap.L().Info("serving sessions",
			zap.String("store", cfg.Store.Driver),
			zap.String("ocr", cfg.OCR.Provider),
		)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
