/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/pubfeed/apiserver/config"
	"github.com/pubfeed/apiserver/internal/mq"
	"github.com/pubfeed/apiserver/internal/storage"
	"github.com/pubfeed/apiserver/internal/workers"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Starts the image cleanup worker",
	Long: `Starts the image cleanup worker. It consumes cleanup events
published on post deletion and removes orphaned image assets from
object storage. Usage:

	pubfeed worker
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()
		ctx := cmd.Context()
		log := logrus.New()

		imageStorage, err := storage.FromConfig(ctx, cfg.Storage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to init storage: %v\n", err)
			os.Exit(1)
		}
		if imageStorage == nil {
			fmt.Fprintln(os.Stderr, "STORAGE_BACKEND is required for the worker")
			os.Exit(1)
		}

		queue, err := mq.FromConfig(ctx, cfg.MQ)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to init mq: %v\n", err)
			os.Exit(1)
		}
		if queue == nil {
			fmt.Fprintln(os.Stderr, "MQ_BACKEND is required for the worker")
			os.Exit(1)
		}
		defer queue.Close()

		worker := workers.NewCleanupWorker(queue, imageStorage, log)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, ctx.Err()) {
			fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
