// root.go viper root command code
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chunkcast/chunkcast/cmd/batch"
	"github.com/chunkcast/chunkcast/cmd/notify"
	"github.com/chunkcast/chunkcast/cmd/transcribe"
	"github.com/chunkcast/chunkcast/cmd/version"
	"github.com/chunkcast/chunkcast/internal/config"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *config.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chunkcast",
		Short: "chunkcast CLI",
		Long:  "chunkcast chunks long audio recordings, dispatches the chunks to a remote transcription service, and merges the results into one transcript.",
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(
		transcribe.Command(settings),
		batch.Command(settings),
		notify.Command(settings),
		version.Command(),
	)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *config.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Set the debug setting (the log level is taken from log.level, not from this flag)")
	rootCmd.PersistentFlags().Float64Var(&settings.Planner.ChunkLengthSeconds, "chunk-length", viper.GetFloat64("planner.chunk_length_seconds"), "Target logical chunk size, in seconds")
	rootCmd.PersistentFlags().Float64Var(&settings.Planner.OverlapSeconds, "overlap", viper.GetFloat64("planner.overlap_seconds"), "Per-side overlap extension into neighboring chunks, in seconds")
	rootCmd.PersistentFlags().StringVar(&settings.Service.BaseURL, "service-url", viper.GetString("service.base_url"), "Transcription service base URL")
	rootCmd.PersistentFlags().StringVar(&settings.Service.Model, "model", viper.GetString("service.model"), "Transcription model name")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
