// Command nanoscope captures Android method traces, reconstructs the
// call timeline, and renders a self-contained HTML report.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uber/nanoscope/internal/app"
	"github.com/uber/nanoscope/internal/config"
	"github.com/uber/nanoscope/internal/device"
	"github.com/uber/nanoscope/internal/version"
)

var verbose bool

func main() {
	root := &cobra.Command{
		Use:           "nanoscope",
		Short:         "Method tracing for Android",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(openCmd(), startCmd(), flashCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nanoscope: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the logger, config, and device shell shared by every
// subcommand. The caller must Sync the returned logger.
func newApp() (*app.App, *zap.Logger, error) {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	shell := device.NewADB(cfg.AdbPath, cfg.DeviceSerial, logger)
	return app.New(cfg, shell, logger), logger, nil
}

func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <trace file>",
		Short: "Convert a trace file and render the HTML report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := newApp()
			if err != nil {
				return err
			}
			defer logger.Sync()

			path, err := a.Open(args[0])
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Trace the foreground app until enter is pressed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := newApp()
			if err != nil {
				return err
			}
			defer logger.Sync()

			path, err := a.Start(cmd.Context(), func() {
				fmt.Println("Tracing... press enter to stop.")
				bufio.NewReader(os.Stdin).ReadString('\n')
			})
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

func flashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flash",
		Short: "Install the Nanoscope ROM on the connected device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := newApp()
			if err != nil {
				return err
			}
			defer logger.Sync()

			return a.Flash(cmd.Context())
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Client)
		},
	}
}
