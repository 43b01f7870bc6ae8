package main

import (
	"fmt"

	"github.com/nspcc-dev/trust-registry/contracts"
	"github.com/nspcc-dev/trust-registry/deploy"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	deployContractsDir string
	deployDeposit      string
	deployAuthorities  []string
)

func init() {
	deployCmd.Flags().StringVar(&deployContractsDir, "contracts", "contracts", "directory with compiled contracts")
	deployCmd.Flags().StringVar(&deployDeposit, "deposit", "0.1", "vote deposit in GAS")
	deployCmd.Flags().StringSliceVar(&deployAuthorities, "authority", nil, "initial authority address, contract is deployed uninitialized if none")
	addWalletFlags(deployCmd)

	rootCmd.AddCommand(deployCmd)
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy or update Trust Registry contract",
	Long: `Deploy Trust Registry contract signed by the wallet account or update the
already deployed one if its version is older than the compiled one. Updates
must be signed by the Neo committee account.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bindWalletFlags(cmd)

		c, err := contracts.GetTrust(deployContractsDir)
		if err != nil {
			return fmt.Errorf("read compiled contract: %w", err)
		}

		deposit, err := parseDeposit(deployDeposit)
		if err != nil {
			return err
		}

		authorities, err := parseAddresses(deployAuthorities)
		if err != nil {
			return err
		}

		acc, err := openAccount()
		if err != nil {
			return err
		}

		b, err := dialRemoteBlockchain(cmd.Context())
		if err != nil {
			return err
		}
		defer b.close()

		addr, err := deploy.Deploy(cmd.Context(), deploy.Prm{
			Logger:           logger,
			Blockchain:       b.rpc,
			LocalAccount:     acc,
			CommitteeAccount: acc,
			Contract: deploy.CommonDeployPrm{
				NEF:      c.NEF,
				Manifest: c.Manifest,
			},
			Authorities: authorities,
			Deposit:     deposit.Int64(),
		})
		if err != nil {
			return err
		}

		logger.Info("Trust Registry contract is synchronized", zap.Stringer("address", addr))
		fmt.Fprintln(cmd.OutOrStdout(), addr.StringLE())

		return nil
	},
}
