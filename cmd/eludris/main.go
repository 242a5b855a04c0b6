// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cocowh/eludris/core/config"
	"github.com/cocowh/eludris/core/constant"
	"github.com/cocowh/eludris/core/httpx"
	"github.com/cocowh/eludris/core/observability"
	"github.com/cocowh/eludris/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	configPath string
	verbose    bool
	logLevel   string
	name       string
	restURL    string

	cfg       *config.ConfigManager
	stopLog   func()
	registry  *prometheus.Registry
	metrics   *observability.Metrics
	outFormat string
	secrets   bool
	metricsAt string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "eludris",
	Short: "eludris is a command line client for Eludris instances",
	Long: `eludris talks to an Eludris instance: it can fetch instance info, send
messages, stream gateway events and run a small ping bot.`,
	Version:           constant.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopLog != nil {
			stopLog()
		}
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the instance info",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

var sendCmd = &cobra.Command{
	Use:   "send <content...>",
	Short: "Send a message with the configured name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print gateway events as JSON lines",
	Long:  `Connect to the instance gateway and print every event as one JSON line until the stream ends or the process is interrupted.`,
	Args:  cobra.NoArgs,
	RunE:  runListen,
}

var pingBotCmd = &cobra.Command{
	Use:   "ping-bot",
	Short: "Reply Pong to every !ping",
	Args:  cobra.NoArgs,
	RunE:  runPingBot,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.Encode(outFormat, secrets)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of eludris",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "eludris version %s\n", rootCmd.Version)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd, sendCmd, listenCmd, pingBotCmd, configCmd, versionCmd)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (yaml, toml or json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "set log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVar(&name, "name", "", "author name used when sending messages")
	rootCmd.PersistentFlags().StringVar(&restURL, "rest-url", "", "instance REST url")

	configCmd.Flags().StringVar(&outFormat, "format", "yaml", "output format (yaml, toml, json)")
	configCmd.Flags().BoolVar(&secrets, "show-secrets", false, "print the token instead of redacting it")

	pingBotCmd.Flags().StringVar(&metricsAt, "metrics-addr", "", "serve prometheus metrics on this address")
}

func setup(cmd *cobra.Command, args []string) error {
	cm, err := config.NewConfigManager(configPath)
	if err != nil {
		return err
	}
	if name != "" {
		cm.Set("client.name", name)
	}
	if restURL != "" {
		cm.Set("client.rest_url", restURL)
	}
	if logLevel != "" {
		cm.Set("logger.level", logLevel)
	}
	if verbose {
		cm.Set("logger.level", "debug")
	}
	cfg = cm

	if stopLog, err = logger.InitDefaultLogger(cm.LoggerOptions()); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	mc := cm.GetMetricsConfig()
	if mc.Enabled && metricsAt == "" {
		metricsAt = mc.Address
	}
	if metricsAt != "" {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}
	return nil
}

func newClient() *httpx.Client {
	return httpx.NewClientFromConfig(cfg, metrics)
}

func runInfo(cmd *cobra.Command, args []string) error {
	info, err := newClient().FetchInstanceInfo(cmd.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func runSend(cmd *cobra.Command, args []string) error {
	resp, err := newClient().Send(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(resp.Raw))
	return nil
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := newClient().CreateGateway(ctx)
	if err != nil {
		return err
	}
	defer gw.Close()

	events, err := gw.GetEvents(ctx)
	if err != nil {
		return err
	}
	return listen(ctx, events, cmd.OutOrStdout())
}

func runPingBot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := newClient()
	gw, err := client.CreateGateway(ctx)
	if err != nil {
		return err
	}
	defer gw.Close()

	events, err := gw.GetEvents(ctx)
	if err != nil {
		return err
	}
	logger.Infof("ping bot running as %s on %s", client.Author(), gw.URL())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return pingBot(ctx, client, events)
	})

	if registry != nil {
		srv := httpx.NewServer(metricsAt, nil)
		srv.AddRoute("/metrics", observability.Handler(registry))
		if err := srv.Start(); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			return srv.Stop(context.Background())
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return events.Close()
	})

	err = g.Wait()
	logger.Info("ping bot stopped")
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
