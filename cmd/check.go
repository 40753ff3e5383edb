package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"urlguard/internal/config"
	"urlguard/internal/incident"
	"urlguard/internal/riskcache"
	"urlguard/pkg/domain"
	"urlguard/pkg/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"
)

func riskColor(level domain.RiskLevel) *color.Color {
	switch level {
	case domain.RiskLevelHigh:
		return color.New(color.FgRed, color.Bold)
	case domain.RiskLevelMedium:
		return color.New(color.FgYellow, color.Bold)
	case domain.RiskLevelLow:
		return color.New(color.FgGreen, color.Bold)
	default:
		return color.New(color.FgWhite)
	}
}

func checkCommand(cfg *config.Config) *cobra.Command {
	var basic bool

	cmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Classifies one URL against the risk backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx = logger.Named(ctx, "check")

			client, err := newBackend(cfg)
			if err != nil {
				return err
			}
			c := newClassifier(cfg, client, riskcache.New(cfg.Cache.TTL, clock.RealClock{}), nil)

			url := args[0]
			out := c.Classify(ctx, url, !basic)
			if out.Failed() {
				color.New(color.FgHiBlack).Fprintf(os.Stdout, "UNKNOWN  %s\n", url)

				return fmt.Errorf("could not classify %s: %w", url, out.Err)
			}

			res := out.Result
			if out.System {
				color.New(color.FgCyan).Fprintf(os.Stdout, "SYSTEM   %s\n", url)

				return nil
			}

			riskColor(res.RiskLevel).Fprintf(os.Stdout, "%-8s %3d  %s\n", res.RiskLevel, res.RiskScore, url)
			fmt.Fprintf(os.Stdout, "analysis: %s  type: %s\n", res.AnalysisLevel, incident.DeriveType(url, res.BasicChecks))
			for _, check := range res.BasicChecks {
				severity := riskColor(domain.RiskLevel(check.Severity)).Sprintf("%-6s", check.Severity)
				fmt.Fprintf(os.Stdout, "  %s %s: %s\n", severity, check.Type, check.Message)
			}

			return nil
		},
	}
	cmd.Flags().BoolVar(&basic, "basic", false, "request basic instead of advanced analysis")

	return cmd
}
