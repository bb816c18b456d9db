// Package transcribe implements the "transcribe" subcommand: probe,
// plan, extract, dispatch, and merge a single audio file end to end.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chunkcast/chunkcast/internal/archive"
	"github.com/chunkcast/chunkcast/internal/audioio"
	"github.com/chunkcast/chunkcast/internal/chunkplan"
	"github.com/chunkcast/chunkcast/internal/config"
	"github.com/chunkcast/chunkcast/internal/dispatch"
	"github.com/chunkcast/chunkcast/internal/extract"
	"github.com/chunkcast/chunkcast/internal/httpclient"
	"github.com/chunkcast/chunkcast/internal/logging"
	"github.com/chunkcast/chunkcast/internal/merge"
	"github.com/chunkcast/chunkcast/internal/metrics"
	"github.com/chunkcast/chunkcast/internal/notify"
	"github.com/chunkcast/chunkcast/internal/transcript"
)

// Command creates the transcribe subcommand.
func Command(settings *config.Settings) *cobra.Command {
	var credential string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "transcribe [input.wav|input.flac]",
		Short: "Chunk, transcribe, and merge a single audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
			go func() {
				sig := <-sigChan
				if console := logging.Console(); console != nil {
					console.Warn("received signal, initiating graceful shutdown", "signal", sig)
				} else {
					fmt.Printf("\nreceived signal %v, initiating graceful shutdown...\n", sig)
				}
				cancel()
			}()

			if err := dispatch.ValidateCredential(credential); err != nil {
				return fmt.Errorf("credential rejected: %w", err)
			}

			return RunFile(ctx, settings, args[0], credential, outputPath)
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := setupFlags(cmd, &credential, &outputPath); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, credential, outputPath *string) error {
	cmd.Flags().StringVar(credential, "credential", viper.GetString("credential"), "Transcription service API credential")
	cmd.Flags().StringVarP(outputPath, "output", "o", "", "Path to write the merged transcript (default: stdout)")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

// RunFile runs the full probe/plan/extract/dispatch/merge pipeline
// against one audio file. Shared by the transcribe and batch commands.
func RunFile(ctx context.Context, settings *config.Settings, inputPath, credential, outputPath string) error {
	src, err := audioio.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}
	defer src.Close()

	chunks, err := chunkplan.Plan(src, chunkplan.FromSettings(settings))
	if err != nil {
		return fmt.Errorf("plan chunks: %w", err)
	}
	logging.Info("planned chunks", "count", len(chunks))

	httpClient := httpclient.New(nil)
	defer httpClient.Close()

	metricsDispatch, err := dispatchMetrics(settings)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	serviceClient := dispatch.NewHTTPServiceClient(httpClient, settings.Service.BaseURL, credential)
	dispatcher := dispatch.New(serviceClient, metricsDispatch)
	dispatcher.Model = settings.Service.Model
	dispatcher.PerRequestTimeout = time.Duration(settings.Dispatch.PerRequestTimeoutMs) * time.Millisecond
	dispatcher.InterChunkDelay = time.Duration(settings.Dispatch.InterChunkDelayMs) * time.Millisecond

	extractor := dispatch.ExtractorFunc(func(chunk chunkplan.Chunk) ([]byte, error) {
		return extract.ToWAV(src, chunk, settings.Extract.MaxChunkBytes)
	})

	sess := config.NewContext(settings)
	results, dispatchErr := dispatcher.TranscribeAll(ctx, sess, chunks, extractor, dispatch.NoopHooks{}, transcript.RetryPolicy(settings.Dispatch.Retry))
	if dispatchErr != nil && dispatchErr != dispatch.ErrCancelled && dispatchErr != dispatch.ErrAuthAborted {
		return fmt.Errorf("dispatch chunks: %w", dispatchErr)
	}

	merged := merge.Merge(chunks, results)
	logging.Info("merged transcript",
		"overlaps_merged", merged.Diagnostics.OverlapsMerged,
		"words_dropped", merged.Diagnostics.WordsDropped,
	)

	if err := writeOutput(merged.Text, outputPath); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if err := archive.FromSettings(ctx, settings, []byte(merged.Text), outputFilename(inputPath)); err != nil {
		logging.Error("archiving merged transcript failed", "error", err)
	}

	if notifier := notify.FromSettings(settings); notifier != nil {
		subject := fmt.Sprintf("chunkcast: transcription of %s complete", inputPath)
		if err := notifier.Notify(sess, subject, merged.Text); err != nil {
			logging.Error("notification failed", "error", err)
		}
	}

	return nil
}

func writeOutput(text, outputPath string) error {
	if outputPath == "" {
		fmt.Println(text)
		return nil
	}
	return os.WriteFile(outputPath, []byte(text), 0o644)
}

func outputFilename(inputPath string) string {
	return fmt.Sprintf("%s.transcript.txt", inputPath)
}

var (
	metricsOnce        sync.Once
	metricsDispatch    *metrics.Dispatch
	metricsDispatchErr error
)

// dispatchMetrics builds the Dispatcher's Prometheus collectors once and
// reuses them across calls, since RunFile may be invoked once per file
// (by the batch command) and a registry rejects duplicate registration.
func dispatchMetrics(settings *config.Settings) (*metrics.Dispatch, error) {
	metricsOnce.Do(func() {
		var registry prometheus.Registerer
		if settings.Metrics.Enabled {
			registry = prometheus.DefaultRegisterer
		}
		metricsDispatch, metricsDispatchErr = metrics.NewDispatch(registry)
	})
	return metricsDispatch, metricsDispatchErr
}
