package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drcash-dev/drcash/internal/infer"
	"github.com/drcash-dev/drcash/internal/server"
	"github.com/drcash-dev/drcash/internal/workflow"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var addr string
	var devMode bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the mapping workflow over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if devMode {
				cfg.Server.DevMode = true
			}

			session := workflow.NewSession(workflow.Options{
				Builder: infer.NewBuilder(cfg.InferOptions()),
				Extract: cfg.ExtractOptions(),
				Logger:  logger,
			})
			srv := server.New(cfg.Server, session, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address (overrides config)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "gin debug mode")

	return cmd
}
