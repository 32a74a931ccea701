package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pressbox/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage queued compression jobs",
	}
	jobsCmd.AddCommand(newJobsAddCommand(ctx))
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	return jobsCmd
}

func newJobsAddCommand(ctx *commandContext) *cobra.Command {
	var targetSize string
	var profileName string
	var preserveAudio bool

	cmd := &cobra.Command{
		Use:   "add <source>",
		Short: "Enqueue a compression job for the worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			store, err := jobs.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			target, err := humanize.ParseBytes(targetSize)
			if err != nil {
				return fmt.Errorf("parse target size %q: %w", targetSize, err)
			}
			if strings.TrimSpace(profileName) == "" {
				profileName = cfg.Pipeline.DefaultProfile
			}

			job, err := store.Create(cmd.Context(), args[0], int64(target), profileName, preserveAudio)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Enqueued job %s (%s, profile %s)\n", job.ID, args[0], profileName)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetSize, "target-size", "t", "50MB", "Target output size")
	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "Compression profile (defaults to config)")
	cmd.Flags().BoolVar(&preserveAudio, "preserve-audio", true, "Keep the source audio track when the profile allows it")
	return cmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List compression jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := jobs.Open(ctx.configValue())
			if err != nil {
				return err
			}
			defer store.Close()

			var filters []jobs.Status
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				filters = append(filters, jobs.Status(trimmed))
			}
			items, err := store.List(cmd.Context(), filters...)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, job := range items {
				rows = append(rows, []string{
					shortID(job.ID),
					job.SourcePath,
					job.ProfileName,
					string(job.Status),
					fmt.Sprintf("%.0f%%", job.ProgressPercent),
					humanize.Time(job.CreatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Source", "Profile", "Status", "Progress", "Created"},
				rows,
				4,
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Filter by status (pending, running, completed, failed)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job's status and result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := jobs.Open(ctx.configValue())
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := findJob(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"ID", job.ID},
				{"Source", job.SourcePath},
				{"Target size", humanize.Bytes(uint64(job.TargetSizeBytes))},
				{"Profile", job.ProfileName},
				{"Status", string(job.Status)},
				{"Progress", fmt.Sprintf("%.0f%% %s", job.ProgressPercent, job.ProgressStage)},
				{"Created", job.CreatedAt.Format("2006-01-02 15:04:05")},
			}
			if job.ErrorMessage != "" {
				rows = append(rows, []string{"Error", job.ErrorMessage})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows))

			if result, err := job.Result(); err == nil && result != nil {
				fmt.Fprintln(out, renderResult(*result))
			}
			return nil
		},
	}
}

// findJob accepts full or shortened identifiers.
func findJob(ctx context.Context, store *jobs.Store, id string) (*jobs.Job, error) {
	job, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job != nil {
		return job, nil
	}

	all, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	var match *jobs.Job
	for _, candidate := range all {
		if strings.HasPrefix(candidate.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("job id %q is ambiguous", id)
			}
			match = candidate
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no job matches %q", id)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
