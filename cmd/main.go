package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sentiment-algo-trader/internal/service"
	"sentiment-algo-trader/internal/trader"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
		cfg        *service.Config
	)

	rootCmd := &cobra.Command{
		Use:          "sentiment-trader",
		Short:        "News-sentiment gated ATR bracket trader",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Configuration directory %q not found, using defaults\n", configPath)
			}
			loaded, err := service.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
			service.InitLogger(cfg.Log)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = service.Logger.Sync()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config", "directory containing config.yaml")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "route orders to the in-process simulator")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Tick immediately, then on every Trader.SleepTime until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, cfg, dryRun, service.Logger)
			if err != nil {
				return err
			}
			defer func() {
				rt.summarize()
				if err := rt.Close(); err != nil {
					service.Logger.Error("Shutdown error", zap.Error(err))
				}
			}()

			return rt.trader.Run(ctx)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "tick",
		Short: "Run a single tick and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, cfg, dryRun, service.Logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			res := rt.trader.Tick(ctx)
			printResult(cmd, res)
			if res.Outcome == trader.OutcomeFailed {
				return res.Err
			}
			return nil
		},
	})

	return rootCmd
}

func printResult(cmd *cobra.Command, res trader.TickResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Outcome:   %s\n", res.Outcome)
	if res.Err != nil {
		fmt.Fprintf(out, "Error:     %v\n", res.Err)
	}
	if res.Outcome == trader.OutcomeAborted {
		return
	}
	fmt.Fprintf(out, "Price:     %.4f (ATR %.4f)\n", res.LastPrice, res.ATR)
	fmt.Fprintf(out, "Sentiment: %s %.4f over %d headlines -> %s\n",
		res.Signal.Label, res.Signal.Probability, res.Headlines, res.Gate)
	fmt.Fprintf(out, "Decision:  %s\n", res.Decision)
	if res.Order != nil {
		fmt.Fprintf(out, "Order:     %s\n", res.Order)
	}
	if res.Handle != nil {
		fmt.Fprintf(out, "OrderID:   %s\n", res.Handle.OrderID)
	}
}
