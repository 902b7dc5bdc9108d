package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fitz/trailmap/internal/journey"
	"github.com/fitz/trailmap/internal/models"
	"github.com/spf13/cobra"
)

var journeyCmd = &cobra.Command{
	Use:   "journey",
	Short: "Generate, show and manage journeys",
}

var journeyGenerateCmd = &cobra.Command{
	Use:   "generate [goal]",
	Short: "Draft a new journey toward a goal",
	Long: `Draft a step-by-step journey toward a goal and save it as your current journey.

Example:
  trailmap journey generate "Run a marathon under four hours" \
    --reason "I want to prove I can" \
    --challenge "knee injury" --challenge "little free time"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpen(ctx, cmd)
		defer a.Close(ctx)

		goalID, _ := cmd.Flags().GetString("goal-id")
		reason, _ := cmd.Flags().GetString("reason")
		identity, _ := cmd.Flags().GetString("identity")
		challenges, _ := cmd.Flags().GetStringArray("challenge")

		c, err := a.service.Generate(ctx, journey.GenerationRequest{
			UserID:      userFlag(cmd),
			GoalID:      goalID,
			GoalContent: args[0],
			GoalReason:  reason,
			Identity:    identity,
			Challenges:  challenges,
		})
		if err != nil {
			a.fail(ctx, fmt.Errorf("failed to generate journey: %w", err))
		}

		j, err := c.Snapshot()
		if err != nil {
			a.fail(ctx, err)
		}
		eta, err := c.ETA()
		if err != nil {
			a.fail(ctx, err)
		}
		fmt.Printf("✓ Generated journey with %d steps\n\n", len(j.Steps))
		printJourney(j, eta)
	},
}

var journeyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a journey and its steps",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpen(ctx, cmd)
		defer a.Close(ctx)

		c := openCoordinator(ctx, a, cmd)
		j, err := c.Snapshot()
		if err != nil {
			a.fail(ctx, err)
		}
		eta, err := c.ETA()
		if err != nil {
			a.fail(ctx, err)
		}
		printJourney(j, eta)
	},
}

var journeyETACmd = &cobra.Command{
	Use:   "eta",
	Short: "Project when a journey will be finished",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpen(ctx, cmd)
		defer a.Close(ctx)

		eta, err := openCoordinator(ctx, a, cmd).ETA()
		if err != nil {
			a.fail(ctx, err)
		}
		printETA(eta)
	},
}

var journeyAdjustCmd = &cobra.Command{
	Use:   "adjust [activity]",
	Short: "Restructure a journey around what you are actually doing",
	Long: `Describe what you have actually been doing and let the planner rename,
skip, insert or re-status steps to match.

Example:
  trailmap journey adjust "I have been cycling instead of running" \
    --context "my knee hurts on long runs"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpen(ctx, cmd)
		defer a.Close(ctx)

		extra, _ := cmd.Flags().GetString("context")
		c := openCoordinator(ctx, a, cmd)
		res, err := c.Adjust(ctx, args[0], extra)
		if err != nil {
			a.fail(ctx, fmt.Errorf("failed to adjust journey: %w", err))
		}
		confirm(ctx, a, res)
		printResult("Journey adjusted", res)
	},
}

var journeyChooseCmd = &cobra.Command{
	Use:   "choose [decision-step-id] [chosen-step-id]",
	Short: "Pick which branch to follow after a decision step",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpen(ctx, cmd)
		defer a.Close(ctx)

		res, err := openCoordinator(ctx, a, cmd).ChoosePath(ctx, args[0], args[1])
		if err != nil {
			a.fail(ctx, fmt.Errorf("failed to choose path: %w", err))
		}
		confirm(ctx, a, res)
		printResult("Path chosen", res)
	},
}

var journeyDeleteCmd = &cobra.Command{
	Use:   "delete [journey-id]",
	Short: "Permanently delete a journey",
	Long: `Permanently delete a journey and all of its steps.

This operation cannot be undone. You will be prompted for confirmation
unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			fmt.Printf("⚠️  WARNING: This will permanently delete journey '%s'\n\n", args[0])
			fmt.Printf("Are you sure you want to continue? (yes/no): ")

			reader := bufio.NewReader(os.Stdin)
			response, err := reader.ReadString('\n')
			if err != nil {
				exitWithError(fmt.Errorf("failed to read confirmation: %w", err))
			}
			response = strings.TrimSpace(strings.ToLower(response))
			if response != "yes" && response != "y" {
				fmt.Println("Delete cancelled.")
				return
			}
		}

		a := mustOpen(ctx, cmd)
		defer a.Close(ctx)

		if err := a.service.Delete(ctx, userFlag(cmd), args[0]); err != nil {
			a.fail(ctx, fmt.Errorf("failed to delete journey: %w", err))
		}
		fmt.Printf("✓ Deleted journey %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(journeyCmd)
	journeyCmd.AddCommand(journeyGenerateCmd)
	journeyCmd.AddCommand(journeyShowCmd)
	journeyCmd.AddCommand(journeyETACmd)
	journeyCmd.AddCommand(journeyAdjustCmd)
	journeyCmd.AddCommand(journeyChooseCmd)
	journeyCmd.AddCommand(journeyDeleteCmd)

	journeyCmd.PersistentFlags().StringP("journey", "j", "", "Journey ID (defaults to your current journey)")

	journeyGenerateCmd.Flags().String("goal-id", "", "ID of the goal in another system")
	journeyGenerateCmd.Flags().String("reason", "", "Why the goal matters to you")
	journeyGenerateCmd.Flags().String("identity", "", "Who you are, e.g. your situation or background")
	journeyGenerateCmd.Flags().StringArray("challenge", nil, "An obstacle you expect (repeatable)")

	journeyAdjustCmd.Flags().String("context", "", "Anything else that should shape the adjustment")

	journeyDeleteCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}

func userFlag(cmd *cobra.Command) string {
	user, _ := cmd.Flags().GetString("user")
	return user
}

// openCoordinator opens the journey named by --journey, or the user's current one.
func openCoordinator(ctx context.Context, a *app, cmd *cobra.Command) *journey.Coordinator {
	id, _ := cmd.Flags().GetString("journey")

	var c *journey.Coordinator
	var err error
	if id == "" {
		c, err = a.service.Open(ctx, userFlag(cmd))
	} else {
		c, err = a.service.OpenJourney(ctx, userFlag(cmd), id)
	}
	if err != nil {
		a.fail(ctx, fmt.Errorf("failed to open journey: %w", err))
	}
	return c
}

// confirm blocks until the store has saved the change. A process that exits
// right after a mutation must not report a change that was rolled back.
func confirm(ctx context.Context, a *app, res *journey.Result) {
	if err := res.Confirmation.Wait(ctx); err != nil {
		a.fail(ctx, fmt.Errorf("change was not saved and has been undone: %w", err))
	}
}

// daysFlag returns the --days value when it was given.
func daysFlag(cmd *cobra.Command) *int {
	if !cmd.Flags().Changed("days") {
		return nil
	}
	days, _ := cmd.Flags().GetInt("days")
	return &days
}

func parseStatus(s string) (models.StepStatus, error) {
	return models.ParseStepStatus(strings.ReplaceAll(strings.ToLower(s), "-", "_"))
}
