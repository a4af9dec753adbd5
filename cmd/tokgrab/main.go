// Package main is the entrypoint of tokgrab.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tokgrab/tokgrab/internal/config"
	"github.com/tokgrab/tokgrab/internal/downloader"
	"github.com/tokgrab/tokgrab/internal/extractor"
	"github.com/tokgrab/tokgrab/internal/pipeline"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	configPath string
	outputPath string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tokgrab",
		Short:         "Fetch a single video through a real browser session",
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	root.AddCommand(downloadCmd())
	return root
}

func downloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download the video referenced by a @handle/video/id page URL",
		Args:  cobra.ExactArgs(1),
		RunE:  runDownload,
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default <handle>_<id>.mp4)")
	return cmd
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	logger.Debug("tokgrab", "version", Version, "build_time", BuildTime)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted")
		cancel()
	}()

	ex := extractor.New(cfg.Browser, logger)
	progress := downloader.ProgressForTerminal(term.IsTerminal(int(os.Stderr.Fd())))
	dl := downloader.NewHTTPDownloader(cfg.Download, progress, logger)
	p := pipeline.New(ex, dl, logger)

	result, err := p.Run(ctx, args[0], outputPath)
	if err != nil {
		return err
	}

	fmt.Printf("Saved %s (%s)\n", result.OutputPath, humanize.Bytes(uint64(result.Bytes)))
	return nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
