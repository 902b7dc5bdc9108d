package cmd

import (
	"fmt"
	"time"

	"github.com/fitz/trailmap/internal/docker"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the local database container",
	Long: `Start and stop a local Docker container for the configured store
(TRAILMAP_STORE=neo4j or postgres).`,
}

var dbUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create or start the database container and wait until it is ready",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			exitWithError(err)
		}
		containerCfg := containerFor(cfg)
		if containerCfg == nil {
			fmt.Println("The memory store needs no container.")
			return
		}

		created, err := docker.EnsureContainer(containerCfg)
		if err != nil {
			exitWithError(fmt.Errorf("failed to ensure %s container: %w", cfg.Store, err))
		}
		if created {
			fmt.Printf("✓ Created %s container '%s'\n", cfg.Store, containerCfg.Name)
		} else {
			fmt.Printf("✓ %s container '%s' is running\n", cfg.Store, containerCfg.Name)
		}

		timeout, _ := cmd.Flags().GetDuration("timeout")
		fmt.Printf("  Waiting for %s to be ready...\n", cfg.Store)
		if err := docker.WaitForContainer(containerCfg, timeout); err != nil {
			exitWithError(err)
		}
		fmt.Printf("  ✓ %s is ready\n", cfg.Store)
	},
}

var dbDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop the database container",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			exitWithError(err)
		}
		containerCfg := containerFor(cfg)
		if containerCfg == nil {
			fmt.Println("The memory store needs no container.")
			return
		}

		running, err := docker.IsContainerRunning(containerCfg.Name)
		if err != nil {
			exitWithError(err)
		}
		if !running {
			fmt.Printf("%s container '%s' is not running\n", cfg.Store, containerCfg.Name)
			return
		}
		if err := docker.StopContainer(containerCfg.Name); err != nil {
			exitWithError(err)
		}

		remove, _ := cmd.Flags().GetBool("remove")
		if remove {
			if err := docker.RemoveContainer(containerCfg.Name); err != nil {
				exitWithError(err)
			}
			fmt.Printf("✓ Stopped and removed %s container '%s'\n", cfg.Store, containerCfg.Name)
			return
		}
		fmt.Printf("✓ Stopped %s container '%s'\n", cfg.Store, containerCfg.Name)
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbUpCmd)
	dbCmd.AddCommand(dbDownCmd)

	dbUpCmd.Flags().Duration("timeout", 60*time.Second, "How long to wait for the database to accept connections")
	dbDownCmd.Flags().Bool("remove", false, "Also remove the container (data is lost)")
}
