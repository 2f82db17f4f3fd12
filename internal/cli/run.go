package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/concord/internal/api"
	"github.com/talgya/concord/internal/engine"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		port     int
		months   int
		noServer bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation in real time with the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if noServer {
				cfg.Server.Enabled = false
			}

			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			stopAt := 0
			if months > 0 {
				stopAt = s.sim.Month() + months
			}
			s.eng.OnMonth = func(month int) {
				s.sim.TickMonth(month)
				if every := cfg.Simulation.SaveEvery; every > 0 && month%every == 0 {
					if err := s.save(); err != nil {
						slog.Error("periodic save failed", "month", month, "error", err)
					}
				}
				if stopAt > 0 && month >= stopAt {
					s.eng.Stop()
				}
			}

			out := cmd.OutOrStdout()
			if cfg.Server.Enabled {
				if cfg.Server.AdminKey == "" {
					slog.Warn("CONCORD_ADMIN_KEY not set, admin POST endpoints will be disabled")
				}
				srv := api.New(s.sim, s.eng, s.db, cfg.Server.AdminKey, cfg.Server.RateLimit)
				go func() {
					if err := srv.ListenAndServe(ctx, cfg.Server.Port); err != nil {
						slog.Error("HTTP server error", "error", err)
						cancel()
					}
				}()
				fmt.Fprintf(out, "API: http://localhost:%d/api/v1/status\n", cfg.Server.Port)
			}

			st := s.sim.Stats()
			fmt.Fprintf(out, "Concord is running: %d realms, %d wars, %d alliances.\n", st.Realms, st.Wars, st.Alliances)
			if s.resumed {
				fmt.Fprintf(out, "Resuming from %s\n", engine.SimTime(st.Month))
			}
			fmt.Fprintln(out, "Starting simulation... (Ctrl+C to stop)")

			s.eng.Run(ctx)

			slog.Info("final save...")
			if err := s.save(); err != nil {
				return fmt.Errorf("final save: %w", err)
			}
			fmt.Fprintf(out, "Simulation stopped at %s. World state saved.\n", engine.SimTime(s.sim.Month()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP API port")
	cmd.Flags().IntVar(&months, "months", 0, "stop after this many months (0 runs until interrupted)")
	cmd.Flags().BoolVar(&noServer, "no-server", false, "do not start the HTTP API")
	return cmd
}
