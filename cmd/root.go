package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"DevAmp/config"
)

var flags struct {
	addr     string
	musicDir string
	webDir   string
	output   string
}

var rootCmd = &cobra.Command{
	Use:   "devamp",
	Short: "DevAmp is a local-file audio player with an equalizer and visualizer.",
	Long: `DevAmp plays audio files from the local disk through a five-band equalizer
and renders a live spectrum. Without a subcommand it starts the browser UI bridge.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), loadConfig())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.output, "output", "", "audio output: speaker or headless (overrides DEVAMP_AUDIO_OUTPUT)")
	pf.StringVar(&flags.musicDir, "music-dir", "", "directory to load and watch for audio files")

	rootCmd.Flags().StringVar(&flags.addr, "addr", "", "UI bridge listen address")
	rootCmd.Flags().StringVar(&flags.webDir, "web-dir", "", "directory with the web UI")
}

// loadConfig applies command-line overrides on top of the environment.
func loadConfig() *config.Config {
	cfg := config.Load()
	if flags.addr != "" {
		cfg.ListenAddr = flags.addr
	}
	if flags.webDir != "" {
		cfg.WebAppDir = flags.webDir
	}
	if flags.musicDir != "" {
		cfg.MusicDir = flags.musicDir
	}
	switch flags.output {
	case config.OutputSpeaker, config.OutputHeadless:
		cfg.AudioOutput = flags.output
	}
	return cfg
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
