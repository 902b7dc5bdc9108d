package cmd

import (
	"context"
	"fmt"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/spf13/cobra"
)

var stepCmd = &cobra.Command{
	Use:   "step",
	Short: "Move steps through their lifecycle and edit them",
}

// stepRun builds a Run function that applies one mutation to the step named
// by the first argument.
func stepRun(what string, apply func(ctx context.Context, cmd *cobra.Command, c *journey.Coordinator, args []string) (*journey.Result, error)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpen(ctx, cmd)
		defer a.Close(ctx)

		res, err := apply(ctx, cmd, openCoordinator(ctx, a, cmd), args)
		if err != nil {
			a.fail(ctx, fmt.Errorf("failed to %s step: %w", what, err))
		}
		confirm(ctx, a, res)
		if s, ok := res.Journey.Step(args[0]); ok {
			printResult(fmt.Sprintf("%s: %s", s.DisplayTitle(), s.Status), res)
			return
		}
		printResult("Step updated", res)
	}
}

var stepStartCmd = &cobra.Command{
	Use:   "start [step-id]",
	Short: "Start working on an available step",
	Args:  cobra.ExactArgs(1),
	Run: stepRun("start", func(ctx context.Context, cmd *cobra.Command, c *journey.Coordinator, args []string) (*journey.Result, error) {
		return c.StartStep(ctx, args[0])
	}),
}

var stepCompleteCmd = &cobra.Command{
	Use:   "complete [step-id]",
	Short: "Mark an in-progress step completed",
	Long: `Mark an in-progress step completed and unlock the steps that depended on it.

The days spent default to the whole days since the step was started.`,
	Args: cobra.ExactArgs(1),
	Run: stepRun("complete", func(ctx context.Context, cmd *cobra.Command, c *journey.Coordinator, args []string) (*journey.Result, error) {
		note, _ := cmd.Flags().GetString("note")
		return c.CompleteStep(ctx, args[0], daysFlag(cmd), note)
	}),
}

var stepSkipCmd = &cobra.Command{
	Use:   "skip [step-id]",
	Short: "Skip a step that is not completed",
	Args:  cobra.ExactArgs(1),
	Run: stepRun("skip", func(ctx context.Context, cmd *cobra.Command, c *journey.Coordinator, args []string) (*journey.Result, error) {
		note, _ := cmd.Flags().GetString("note")
		return c.SkipStep(ctx, args[0], note)
	}),
}

var stepStatusCmd = &cobra.Command{
	Use:   "status [step-id] [status]",
	Short: "Move a step to any status its lifecycle allows",
	Long: `Move a step to another status.

Statuses: locked, available, in_progress, completed, skipped, alternative.`,
	Args: cobra.ExactArgs(2),
	Run: stepRun("update", func(ctx context.Context, cmd *cobra.Command, c *journey.Coordinator, args []string) (*journey.Result, error) {
		status, err := parseStatus(args[1])
		if err != nil {
			return nil, err
		}
		note, _ := cmd.Flags().GetString("note")
		return c.UpdateStepStatus(ctx, args[0], status, journey.TransitionOptions{
			ActualDaysSpent: daysFlag(cmd),
			Note:            note,
		})
	}),
}

var stepRenameCmd = &cobra.Command{
	Use:   "rename [step-id] [title]",
	Short: "Give a step your own title",
	Long:  `Give a step your own title. Without a title the generated one is restored.`,
	Args:  cobra.RangeArgs(1, 2),
	Run: stepRun("rename", func(ctx context.Context, cmd *cobra.Command, c *journey.Coordinator, args []string) (*journey.Result, error) {
		title := ""
		if len(args) > 1 {
			title = args[1]
		}
		return c.RenameStep(ctx, args[0], title)
	}),
}

var stepNoteCmd = &cobra.Command{
	Use:   "note [step-id] [note]",
	Short: "Append a note to a step",
	Args:  cobra.ExactArgs(2),
	Run: stepRun("annotate", func(ctx context.Context, cmd *cobra.Command, c *journey.Coordinator, args []string) (*journey.Result, error) {
		return c.AddNote(ctx, args[0], args[1])
	}),
}

func init() {
	rootCmd.AddCommand(stepCmd)
	stepCmd.AddCommand(stepStartCmd)
	stepCmd.AddCommand(stepCompleteCmd)
	stepCmd.AddCommand(stepSkipCmd)
	stepCmd.AddCommand(stepStatusCmd)
	stepCmd.AddCommand(stepRenameCmd)
	stepCmd.AddCommand(stepNoteCmd)

	stepCmd.PersistentFlags().StringP("journey", "j", "", "Journey ID (defaults to your current journey)")

	for _, c := range []*cobra.Command{stepCompleteCmd, stepStatusCmd} {
		c.Flags().Int("days", 0, "Days the step actually took")
	}
	for _, c := range []*cobra.Command{stepCompleteCmd, stepSkipCmd, stepStatusCmd} {
		c.Flags().StringP("note", "n", "", "Note to record on the step")
	}
}
