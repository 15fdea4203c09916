package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CharlesDeJager/dprof/internal/api"
	"github.com/CharlesDeJager/dprof/internal/config"
	"github.com/CharlesDeJager/dprof/internal/log"
	"github.com/CharlesDeJager/dprof/internal/scheduler"
	"github.com/CharlesDeJager/dprof/internal/session"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the profiling API server",
		Long:  "Start the HTTP API server and the worker pool that profiles tables concurrently.",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = config.AppConfig.ListenAddr
			}
			return runServer(addr)
		},
	}

	serveCmd.Flags().String("addr", "", "Listen address (defaults to listen_addr from config)")
	return serveCmd
}

func runServer(addr string) error {
	sched := scheduler.NewScheduler(config.AppConfig.MaxThreads, 0)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	sessions := session.NewStore()
	server := api.NewServer(addr, sessions, sched)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Logger.Infof("Received signal %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Stop(ctx)
}
