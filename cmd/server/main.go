package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/RichardoC/padchat/internal/config"
)

var (
	cfgFile string
	dbPath  string
	verbose bool

	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "padchat",
	Short: "Chat with a remote reasoning service and keep the history locally",
	Long: `padchat keeps conversations and projects in a local SQLite store and
forwards each message to a remote reasoning service.

Run "padchat serve" for the HTTP API or "padchat send" for a one-shot message.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v = config.New()
		if err := v.BindPFlag("storage.path", cmd.Root().PersistentFlags().Lookup("db")); err != nil {
			return fmt.Errorf("failed to bind --db: %w", err)
		}

		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
			cfg.Log.Development = true
		}

		logger, err = cfg.Logger()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides storage.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, sendCmd, clearCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
