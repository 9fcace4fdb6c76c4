package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"school_inventory_tool/cache"
	"school_inventory_tool/db"
	"school_inventory_tool/jobs"
)

var jobName string

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Start the scheduler or run a single job by name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		gdb, err := db.Open(cfg.Database, log)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()

		d := &jobs.Digest{
			Repo:  db.NewRepo(gdb),
			Cache: cache.NewSummaryCache(rdb, cfg.Analytics.CacheTTL),
			Log:   log,
		}

		if jobName != "" {
			run, ok := jobs.Jobs(d)[strings.ToLower(jobName)]
			if !ok {
				return fmt.Errorf("unknown job: %s", jobName)
			}
			return run(cmd.Context())
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		c, err := jobs.Start(cfg.Cron.DigestSchedule, d)
		if err != nil {
			return err
		}
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	cronCmd.Flags().StringVarP(&jobName, "job", "j", "", "run a single job by name and exit")
	rootCmd.AddCommand(cronCmd)
}
