// Package batch implements the "batch" subcommand: transcribe every
// audio file in a directory, adapted from the teacher's directory-walk
// analysis command.
package batch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chunkcast/chunkcast/cmd/transcribe"
	"github.com/chunkcast/chunkcast/internal/config"
	"github.com/chunkcast/chunkcast/internal/logging"
)

var supportedExtensions = map[string]bool{".wav": true, ".flac": true}

// Command creates the batch subcommand.
func Command(settings *config.Settings) *cobra.Command {
	var credential string
	var recursive bool
	var outputDir string

	cmd := &cobra.Command{
		Use:   "batch [directory]",
		Short: "Transcribe every audio file in a directory",
		Long:  "Provide a directory path to transcribe every *.wav and *.flac file within it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
			go func() {
				sig := <-sigChan
				if console := logging.Console(); console != nil {
					console.Warn("received signal, initiating graceful shutdown", "signal", sig)
				} else {
					fmt.Printf("\nreceived signal %v, initiating graceful shutdown...\n", sig)
				}
				cancel()
			}()
			defer signal.Stop(sigChan)

			return runBatch(ctx, settings, args[0], credential, outputDir, recursive)
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := setupFlags(cmd, &credential, &outputDir, &recursive); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, credential, outputDir *string, recursive *bool) error {
	cmd.Flags().StringVar(credential, "credential", viper.GetString("credential"), "Transcription service API credential")
	cmd.Flags().BoolVarP(recursive, "recursive", "r", false, "Recursively walk subdirectories")
	cmd.Flags().StringVarP(outputDir, "output", "o", "", "Directory to write merged transcripts to (default: next to each input file)")

	return viper.BindPFlags(cmd.Flags())
}

func runBatch(ctx context.Context, settings *config.Settings, dir, credential, outputDir string, recursive bool) error {
	files, err := collectAudioFiles(dir, recursive)
	if err != nil {
		return fmt.Errorf("collect audio files: %w", err)
	}
	logging.Info("batch transcription starting", "directory", dir, "files", len(files))

	if outputDir != "" {
		outputDir = config.GetBasePath(outputDir)
	}

	var firstErr error
	for _, file := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		outputPath := file + ".transcript.txt"
		if outputDir != "" {
			outputPath = filepath.Join(outputDir, filepath.Base(file)+".transcript.txt")
		}

		logging.Info("transcribing", "file", file)
		if err := transcribe.RunFile(ctx, settings, file, credential, outputPath); err != nil {
			logging.Error("transcription failed", "file", file, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func collectAudioFiles(dir string, recursive bool) ([]string, error) {
	var files []string
	walk := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	}
	if err := filepath.WalkDir(dir, walk); err != nil {
		return nil, err
	}
	return files, nil
}
