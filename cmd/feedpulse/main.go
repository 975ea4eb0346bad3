package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "feedpulse",
		Short:        "Classify customer feedback and report on sentiment, urgency and themes",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())
	root.AddCommand(collectCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(resetCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(summaryCmd())

	return root
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server and dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, false)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with collection scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, true)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func collectCmd() *cobra.Command {
	var sources []string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run feedback collectors once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(sources)
		},
	}

	cmd.Flags().StringSliceVar(&sources, "source", nil, "specific sources to collect (e.g., rss,github)")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace all feedback with the demo data set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed()
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete all feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset()
		},
	}
}

func statsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregated feedback statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Generate an executive summary of recent feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary()
		},
	}
}
