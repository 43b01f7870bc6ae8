package main

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
	"go.uber.org/zap"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

const (
	cfgRPC         = "rpc"
	cfgContract    = "contract"
	cfgWallet      = "wallet"
	cfgAccount     = "account"
	cfgPassword    = "password"
	cfgDebug       = "debug"
	cfgMetricsAddr = "metrics_addr"
)

var (
	cfgFile string
	logger  = zap.NewNop()
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trustctl",
	Short: "Trust Registry CLI",
	Long: `trustctl is the command-line interface for the Trust Registry contract.

It allows you to look up trust scores of entries, vote on them paying the
deposit, pin scores as an authority, deploy the contract and watch its events.

Configuration is read from the file (default ~/.trustctl/config.yaml) and
TRUST_* environment variables, flags take precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".trustctl"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}

		viper.SetEnvPrefix("trust")
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		viper.AutomaticEnv()

		err := viper.ReadInConfig()
		if err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
				return fmt.Errorf("read config: %w", err)
			}
		}

		logger, err = newLogger(viper.GetBool(cfgDebug))
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	c := zap.NewProductionConfig()
	c.Encoding = "console"
	c.DisableStacktrace = true

	return c.Build()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ~/.trustctl/config.yaml)")
	flags.String(cfgRPC, "", "Neo RPC server endpoint")
	flags.String(cfgContract, "", "Trust Registry contract address, script hash or ID")
	flags.Bool(cfgDebug, false, "enable debug logging")

	_ = viper.BindPFlag(cfgRPC, flags.Lookup(cfgRPC))
	_ = viper.BindPFlag(cfgContract, flags.Lookup(cfgContract))
	_ = viper.BindPFlag(cfgDebug, flags.Lookup(cfgDebug))

	rootCmd.AddCommand(versionCmd)
}

// addWalletFlags registers flags of the commands sending transactions.
func addWalletFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(cfgWallet, "w", "", "path to the NEP-6 wallet")
	cmd.Flags().StringP(cfgAccount, "a", "", "wallet account address (default account if empty)")
	cmd.Flags().String(cfgPassword, "", "wallet account password")
}

// bindWalletFlags binds wallet flags of the running command to the
// configuration. Flags are bound on run since several commands share keys.
func bindWalletFlags(cmd *cobra.Command) {
	for _, name := range []string{cfgWallet, cfgAccount, cfgPassword} {
		_ = viper.BindPFlag(name, cmd.Flags().Lookup(name))
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print trustctl version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}
