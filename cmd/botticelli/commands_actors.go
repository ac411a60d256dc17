package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/crumplecup/botticelli/internal/controlplane"
	"github.com/crumplecup/botticelli/internal/format"
)

func buildActorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actors",
		Short: "Inspect and manage hosted actors",
	}
	cmd.AddCommand(
		buildActorsListCmd(),
		buildActorsShowCmd(),
		buildActorsPauseCmd(),
		buildActorsResumeCmd(),
		buildActorsTriggerCmd(),
		buildActorsExecutionsCmd(),
	)
	return cmd
}

func buildActorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every actor known to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClientFromFlags()
			if err != nil {
				return err
			}
			var summaries []controlplane.ActorSummary
			if err := client.getJSON(cmd.Context(), "/api/actors", &summaries); err != nil {
				return err
			}
			return printActorTable(cmd.OutOrStdout(), summaries)
		},
	}
}

func buildActorsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one actor's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClientFromFlags()
			if err != nil {
				return err
			}
			var detail controlplane.ActorDetail
			if err := client.getJSON(cmd.Context(), "/api/actors/"+args[0], &detail); err != nil {
				return err
			}
			return printActorDetail(cmd.OutOrStdout(), detail)
		},
	}
}

func buildActorsPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <name>",
		Short: "Pause an actor, stopping further scheduled runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClientFromFlags()
			if err != nil {
				return err
			}
			var detail controlplane.ActorDetail
			if err := client.postJSON(cmd.Context(), "/api/actors/"+args[0]+"/pause", nil, &detail); err != nil {
				return err
			}
			return printActorDetail(cmd.OutOrStdout(), detail)
		},
	}
}

func buildActorsResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <name>",
		Short: "Resume a paused actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClientFromFlags()
			if err != nil {
				return err
			}
			var detail controlplane.ActorDetail
			if err := client.postJSON(cmd.Context(), "/api/actors/"+args[0]+"/resume", nil, &detail); err != nil {
				return err
			}
			return printActorDetail(cmd.OutOrStdout(), detail)
		},
	}
}

func buildActorsTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <name>",
		Short: "Trigger an on-demand run, if the actor isn't already running or paused",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClientFromFlags()
			if err != nil {
				return err
			}
			var detail controlplane.ActorDetail
			if err := client.postJSON(cmd.Context(), "/api/actors/"+args[0]+"/trigger", nil, &detail); err != nil {
				return err
			}
			return printActorDetail(cmd.OutOrStdout(), detail)
		},
	}
}

func buildActorsExecutionsCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "executions <name>",
		Short: "List an actor's execution history, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClientFromFlags()
			if err != nil {
				return err
			}
			path := fmt.Sprintf("/api/actors/%s/executions?limit=%d&offset=%d", args[0], limit, offset)
			var records []controlplane.ExecutionRecordView
			if err := client.getJSON(cmd.Context(), path, &records); err != nil {
				return err
			}
			return printExecutionTable(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of executions to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of executions to skip")
	return cmd
}

func printActorTable(w io.Writer, summaries []controlplane.ActorSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tPAUSED\tFAILURES\tSUCCESSES\tTOTAL\tLAST RUN")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			s.Name, s.Status, strconv.FormatBool(s.IsPaused),
			s.ConsecutiveFailures, s.ConsecutiveSuccesses, s.TotalExecutions, formatTime(s.LastRun))
	}
	return tw.Flush()
}

func printActorDetail(w io.Writer, d controlplane.ActorDetail) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "name:\t%s\n", d.Name)
	fmt.Fprintf(tw, "status:\t%s\n", d.Status)
	fmt.Fprintf(tw, "paused:\t%t\n", d.IsPaused)
	fmt.Fprintf(tw, "consecutive failures:\t%d\n", d.ConsecutiveFailures)
	fmt.Fprintf(tw, "consecutive successes:\t%d\n", d.ConsecutiveSuccesses)
	fmt.Fprintf(tw, "total executions:\t%d\n", d.TotalExecutions)
	fmt.Fprintf(tw, "last run:\t%s\n", formatTime(d.LastRun))
	fmt.Fprintf(tw, "next run:\t%s\n", formatTime(d.NextRun))
	return tw.Flush()
}

func printExecutionTable(w io.Writer, records []controlplane.ExecutionRecordView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tOUTCOME\tSKILLS OK\tSKILLS FAILED\tCANCELLED\tERROR")
	for _, r := range records {
		errMsg := ""
		if r.ErrorMessage != nil {
			errMsg = *r.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%t\t%s\n",
			r.ID, r.StartedAt.Format("2006-01-02T15:04:05Z07:00"), executionDuration(r), r.Outcome,
			r.SkillsSucceeded, r.SkillsFailed, r.Cancelled, errMsg)
	}
	return tw.Flush()
}

// executionDuration renders the wall time between start and completion,
// or "-" for a still-running execution.
func executionDuration(r controlplane.ExecutionRecordView) string {
	if r.CompletedAt == nil {
		return "-"
	}
	return format.FormatDurationMsInt(r.CompletedAt.Sub(r.StartedAt).Milliseconds())
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02T15:04:05Z07:00")
}
