package main

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/gas"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/trust-registry/rpc/trust"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var voteAttach bool

func init() {
	voteCmd.Flags().BoolVar(&voteAttach, "attach", false, "attach the deposit to a GAS transfer instead of calling submitVerification")

	for _, cmd := range []*cobra.Command{voteCmd, pinCmd, addAuthoritiesCmd, setDepositCmd, initializeCmd} {
		addWalletFlags(cmd)
		rootCmd.AddCommand(cmd)
	}
}

var voteCmd = &cobra.Command{
	Use:   "vote <entry> <true|false>",
	Short: "Vote on the entry paying the deposit",
	Long: `Vote on the entry paying the deposit.

The previous vote of the account is replaced. By default submitVerification
method pulls the deposit from the account. With --attach the deposit is sent
by GAS transfer to the contract carrying the vote.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bindWalletFlags(cmd)

		entryID := args[0]
		trusted, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid vote: %w", err)
		}

		b, err := newRemoteBlockchain(cmd.Context())
		if err != nil {
			return err
		}
		defer b.close()

		acc, act, err := b.signer()
		if err != nil {
			return err
		}

		deposit, err := b.reader.DepositAmount()
		if err != nil {
			return fmt.Errorf("get deposit amount: %w", err)
		}

		logger.Info("voting...",
			zap.String("entry", entryID),
			zap.Bool("trusted", trusted),
			zap.String("voter", acc.Address),
			zap.String("deposit", fixedn.ToString(deposit, 8)))

		if voteAttach {
			h, vub, err := gas.New(act).Transfer(acc.ScriptHash(), b.contract, deposit, []any{entryID, trusted})
			return b.await(cmd.Context(), h, vub, err)
		}

		h, vub, err := trust.New(act, b.contract).SubmitVerification(acc.ScriptHash(), entryID, trusted)
		return b.await(cmd.Context(), h, vub, err)
	},
}

var pinCmd = &cobra.Command{
	Use:   "pin <entry> <true|false>",
	Short: "Override the score of the entry as an authority",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bindWalletFlags(cmd)

		trusted, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid value: %w", err)
		}

		b, err := newRemoteBlockchain(cmd.Context())
		if err != nil {
			return err
		}
		defer b.close()

		acc, act, err := b.signer()
		if err != nil {
			return err
		}

		h, vub, err := trust.New(act, b.contract).PinVerification(acc.ScriptHash(), args[0], trusted)
		return b.await(cmd.Context(), h, vub, err)
	},
}

var addAuthoritiesCmd = &cobra.Command{
	Use:   "add-authorities <address>...",
	Short: "Extend the authority set",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bindWalletFlags(cmd)

		accounts, err := parseAddresses(args)
		if err != nil {
			return err
		}

		b, err := newRemoteBlockchain(cmd.Context())
		if err != nil {
			return err
		}
		defer b.close()

		acc, act, err := b.signer()
		if err != nil {
			return err
		}

		h, vub, err := trust.New(act, b.contract).AddAuthorities(acc.ScriptHash(), accounts)
		return b.await(cmd.Context(), h, vub, err)
	},
}

var setDepositCmd = &cobra.Command{
	Use:   "set-deposit <GAS>",
	Short: "Change the vote deposit (committee only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bindWalletFlags(cmd)

		amount, err := parseDeposit(args[0])
		if err != nil {
			return err
		}

		b, err := newRemoteBlockchain(cmd.Context())
		if err != nil {
			return err
		}
		defer b.close()

		_, act, err := b.signer()
		if err != nil {
			return err
		}

		h, vub, err := trust.New(act, b.contract).SetDepositAmount(amount)
		return b.await(cmd.Context(), h, vub, err)
	},
}

var initializeCmd = &cobra.Command{
	Use:   "initialize <GAS> <address>...",
	Short: "Initialize the contract deployed without authorities (committee only)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bindWalletFlags(cmd)

		deposit, err := parseDeposit(args[0])
		if err != nil {
			return err
		}

		accounts, err := parseAddresses(args[1:])
		if err != nil {
			return err
		}

		b, err := newRemoteBlockchain(cmd.Context())
		if err != nil {
			return err
		}
		defer b.close()

		_, act, err := b.signer()
		if err != nil {
			return err
		}

		h, vub, err := trust.New(act, b.contract).Initialize(accounts, deposit)
		return b.await(cmd.Context(), h, vub, err)
	},
}

func parseAddresses(args []string) ([]util.Uint160, error) {
	res := make([]util.Uint160, len(args))
	for i := range args {
		var err error
		res[i], err = address.StringToUint160(args[i])
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", args[i], err)
		}
	}

	return res, nil
}

// parseDeposit parses decimal GAS amount into GAS fractions.
func parseDeposit(s string) (*big.Int, error) {
	amount, err := fixedn.FromString(s, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid GAS amount %q: %w", s, err)
	}

	if amount.Sign() <= 0 {
		return nil, errors.New("deposit amount must be positive")
	}

	return amount, nil
}
