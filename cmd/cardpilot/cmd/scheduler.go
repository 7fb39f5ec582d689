package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cardpilot/cardpilot/internal/core/config"
	"github.com/cardpilot/cardpilot/internal/core/db"
	"github.com/cardpilot/cardpilot/internal/engine"
	"github.com/cardpilot/cardpilot/internal/scheduler"
	"github.com/cardpilot/cardpilot/internal/store"
	"github.com/cardpilot/cardpilot/internal/types"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Start the scheduled rule evaluation daemon",
	RunE:  runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.Flags().String("scope", "", "leader election scope")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("scope") {
		scope, _ := cmd.Flags().GetString("scope")
		cfg.Scope = scope
	}
	if dbURL != "" {
		cfg.DBURL = dbURL
	}
	if cfg.DBURL == "" {
		return fmt.Errorf("--db-url or db.url config required")
	}

	database, err := db.Open(cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := db.MigrateUp(database); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	clock := engine.SystemClock{}
	tasks := store.NewTaskStore(queries, clock)
	sections := store.NewSectionStore(queries)
	ruleStore := store.NewRuleStore(queries, clock)
	leases := store.NewLeaseStore(queries)

	exec := engine.NewExecutor(tasks, sections, ruleStore, nil, clock)

	instanceID := types.NewInstanceID()
	elector := scheduler.NewElector(leases, clock, cfg.Scope, instanceID, cfg.HeartbeatTimeout)
	sched := scheduler.New(ruleStore, tasks, exec, elector, clock, cfg.TickInterval, cfg.HeartbeatInterval)

	log.Printf("Starting CardPilot scheduler v%s instance=%s scope=%s", Version, instanceID, cfg.Scope)
	errChan := make(chan error, 1)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		errChan <- sched.Run(runCtx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		cancel()
		if err := <-errChan; err != nil && err != context.Canceled {
			return err
		}
		return nil
	}
}
