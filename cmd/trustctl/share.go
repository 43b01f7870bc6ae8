package main

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shareTokenVersion = 1

func init() {
	rootCmd.AddCommand(shareCmd)
}

var shareCmd = &cobra.Command{
	Use:   "share <entry>",
	Short: "Print a token referencing the entry lookup",
	Long: `Print a token referencing the entry lookup in the configured contract.
The token can be passed to score command with --token flag.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" {
			return errors.New("empty entry")
		}

		b, err := dialRemoteBlockchain(cmd.Context())
		if err != nil {
			return err
		}
		defer b.close()

		err = b.useContract(viper.GetString(cfgContract))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), encodeShareToken(b.contract, args[0]))
		return nil
	},
}

// encodeShareToken returns base58 encoding of the version byte followed by the
// contract script hash and the entry identifier.
func encodeShareToken(contract util.Uint160, entryID string) string {
	b := make([]byte, 0, 1+util.Uint160Size+len(entryID))
	b = append(b, shareTokenVersion)
	b = append(b, contract.BytesBE()...)
	b = append(b, entryID...)

	return base58.Encode(b)
}

func decodeShareToken(s string) (util.Uint160, string, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return util.Uint160{}, "", fmt.Errorf("decode base58: %w", err)
	}

	if len(b) < 1+util.Uint160Size+1 {
		return util.Uint160{}, "", errors.New("token is too short")
	}

	if b[0] != shareTokenVersion {
		return util.Uint160{}, "", fmt.Errorf("unsupported token version %d", b[0])
	}

	contract, err := util.Uint160DecodeBytesBE(b[1 : 1+util.Uint160Size])
	if err != nil {
		return util.Uint160{}, "", err
	}

	entryID := b[1+util.Uint160Size:]
	if !utf8.Valid(entryID) {
		return util.Uint160{}, "", errors.New("entry is not a UTF-8 string")
	}

	return contract, string(entryID), nil
}
