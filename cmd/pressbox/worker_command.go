package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"pressbox/internal/jobs"
	"pressbox/internal/preflight"
	"pressbox/internal/workflow"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the compression worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			out := cmd.OutOrStdout()

			if !skipPreflight {
				results := preflight.RunAll(cmd.Context(), cfg)
				for _, result := range results {
					status := "ok"
					if !result.Passed {
						status = "FAIL"
					}
					fmt.Fprintf(out, "[%s] %s: %s\n", status, result.Name, result.Detail)
				}
				if !preflight.AllPassed(results) {
					return fmt.Errorf("preflight checks failed, refusing to start")
				}
			}

			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "worker.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire worker lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another worker is already running")
			}
			defer func() { _ = lock.Unlock() }()

			logger := ctx.logger()
			store, err := jobs.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			orchestrator, err := ctx.orchestrator(logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			manager := workflow.NewManager(cfg, store, orchestrator, logger)
			if err := manager.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(out, "Worker pool running with %d workers (ctrl-c to stop)\n", cfg.Pipeline.Workers)

			<-runCtx.Done()
			manager.Stop()
			fmt.Fprintln(out, "Worker stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start even when environment checks fail")
	return cmd
}
