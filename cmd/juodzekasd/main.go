// juodzekasd runs the blackjack ledger as an out-of-process ABCI
// application for a CometBFT node.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cometbft/cometbft/abci/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reliqlabs/juodzekas/internal/app"
	"github.com/reliqlabs/juodzekas/internal/zkproof"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "juodzekasd",
		Short:         "two-party blackjack ledger with proof-verified decks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("home", ".juodzekas", "app home directory")
	root.PersistentFlags().String("log-level", "info", "log level (trace|debug|info|warn|error)")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		v.SetEnvPrefix("JZ")
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		v.AutomaticEnv()

		// Optional <home>/config.toml; flags and JZ_* env win.
		v.SetConfigName("config")
		v.AddConfigPath(v.GetString("home"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("read config: %w", err)
			}
		}
		return nil
	}

	root.AddCommand(startCmd(v), setupCmd(v), versionCmd())
	return root
}

func newLogger(v *viper.Viper) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log-level: %w", err)
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func artifactDir(v *viper.Viper) string {
	return filepath.Join(v.GetString("home"), "artifacts")
}

func startCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "serve the ABCI application",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			log, err := newLogger(v)
			if err != nil {
				return err
			}

			store := zkproof.NewArtifactStore(artifactDir(v), log)
			backend := zkproof.NewGnarkBackend(store)
			verifier, err := zkproof.NewBackendVerifier(backend,
				v.GetString("shuffle-vk-id"), v.GetString("reveal-vk-id"))
			if err != nil {
				return err
			}

			a, err := app.New(v.GetString("home"), log, verifier)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}

			addr := v.GetString("addr")
			srv, err := server.NewServer(addr, v.GetString("transport"), a)
			if err != nil {
				return fmt.Errorf("create abci server: %w", err)
			}
			if err := srv.Start(); err != nil {
				return fmt.Errorf("start abci server: %w", err)
			}
			defer func() { _ = srv.Stop() }()
			log.Info().Str("addr", addr).Msg("abci server listening")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			return nil
		},
	}
	cmd.Flags().String("addr", "tcp://127.0.0.1:26658", "ABCI listen address")
	cmd.Flags().String("transport", "socket", "ABCI transport (socket|grpc)")
	cmd.Flags().String("shuffle-vk-id", "shuffle-v1", "verification key id routed to the shuffle circuit")
	cmd.Flags().String("reveal-vk-id", "reveal-v1", "verification key id routed to the reveal circuit")
	return cmd
}

func setupCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "compile circuits and write proving/verifying key artifacts",
		Long: "Runs the groth16 setup for the shuffle and reveal circuits and writes " +
			"the constraint system, proving key and verifying key under <home>/artifacts. " +
			"Slow and memory-hungry; run once per circuit version.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(v)
			if err != nil {
				return err
			}
			store := zkproof.NewArtifactStore(artifactDir(v), log)
			return store.Setup(zkproof.CircuitShuffle, zkproof.CircuitReveal)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
