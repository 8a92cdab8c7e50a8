package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/audiolibrelab/voxcapture/internal/config"
)

var (
	cfg          *config.Config
	cfgFile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "voxcapture",
	Short: "Capture the default microphone to mono WAV files",
	Long: `voxcapture records the default system input device, downmixes it to a
single 16-bit channel, reports live input levels and writes each take as a
mono PCM WAV file.

Use 'voxcapture record' for a terminal session or 'voxcapture serve' to
control recording over HTTP and receive level events over a WebSocket.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Use default config path if not specified; a missing default file means built-in defaults
		configPath := cfgFile
		if configPath == "" {
			configPath = defaultConfigPath()
			if _, err := os.Stat(configPath); err != nil {
				configPath = ""
			}
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			setupLogging(verboseLevel, config.LoggingConfig{})
			return fmt.Errorf("failed to load config: %w", err)
		}

		setupLogging(verboseLevel, cfg.Logging)
		slog.Debug("Configuration loaded", "file", configPath, "output", cfg.Output.Directory)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/voxcapture.yaml)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug")

	// Add subcommands
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(locationCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func defaultConfigPath() string {
	return os.ExpandEnv("$HOME/.config/voxcapture.yaml")
}

// setupLogging configures slog based on the verbose level. When a log file
// is configured, records are also written there with size-based rotation.
func setupLogging(level int, logCfg config.LoggingConfig) {
	var slogLevel slog.Level
	switch {
	case level >= 1:
		slogLevel = slog.LevelDebug
	default:
		slogLevel = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if logCfg.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logCfg.File,
			MaxSize:    logCfg.MaxSizeMB,
			MaxBackups: logCfg.MaxBackups,
			MaxAge:     logCfg.MaxAgeDays,
		})
	}

	// Configure text handler for clean terminal output
	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}
	handler := slog.NewTextHandler(out, opts)
	logger := slog.New(handler)
	slog.SetDefault(logger)
}
