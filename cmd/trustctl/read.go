package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/trust-registry/rpc/trust"
	"github.com/spf13/cobra"
)

const defaultListLimit = 1000

var (
	scoreToken  string
	scoreFormat string
	listLimit   int
)

func init() {
	scoreCmd.Flags().StringVar(&scoreToken, "token", "", "shared lookup token, see share command")
	scoreCmd.Flags().StringVar(&scoreFormat, "format", "text", "output format: text or json")

	authoritiesCmd.Flags().IntVar(&listLimit, "limit", defaultListLimit, "maximum number of items to list")
	entriesCmd.Flags().IntVar(&listLimit, "limit", defaultListLimit, "maximum number of items to list")
	votersCmd.Flags().IntVar(&listLimit, "limit", defaultListLimit, "maximum number of items to list")

	rootCmd.AddCommand(scoreCmd, isAuthorityCmd, authoritiesCmd, entriesCmd, votersCmd)
}

var scoreCmd = &cobra.Command{
	Use:   "score [entry]",
	Short: "Print trust score of the entry",
	Long: `Print trust score of the entry.

The score is the authority override if present, otherwise the share of voters
trusting the entry. Entries nobody has rated have no score.

  trustctl score example.com
  trustctl score --token 3yZe7d...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

// scoreReport is a result of the entry lookup.
type scoreReport struct {
	Entry      string `json:"entry"`
	Score      string `json:"score,omitempty"`
	Exact      string `json:"exact,omitempty"`
	Votes      int64  `json:"votes"`
	Trusted    int64  `json:"trusted"`
	Pinned     bool   `json:"pinned"`
	PinTrusted bool   `json:"pinTrusted,omitempty"`
}

func runScore(cmd *cobra.Command, args []string) error {
	var (
		entryID  string
		contract util.Uint160
	)

	switch {
	case scoreToken != "" && len(args) != 0:
		return errors.New("entry and token are mutually exclusive")
	case scoreToken != "":
		var err error
		contract, entryID, err = decodeShareToken(scoreToken)
		if err != nil {
			return fmt.Errorf("invalid token: %w", err)
		}
	case len(args) == 1:
		entryID = args[0]
	default:
		return errors.New("missing entry")
	}

	var (
		b   *remoteBlockchain
		err error
	)
	if scoreToken != "" {
		b, err = dialRemoteBlockchain(cmd.Context())
		if err == nil {
			err = b.useContract(contract.StringLE())
		}
	} else {
		b, err = newRemoteBlockchain(cmd.Context())
	}
	if err != nil {
		return err
	}
	defer b.close()

	report, err := lookupScore(b.reader, entryID)
	if err != nil {
		return err
	}

	return printScore(cmd.OutOrStdout(), report, scoreFormat)
}

// votesReader reads entry summary, the score is derived from the same
// summary so both are taken at one chain height.
type votesReader interface {
	GetVotes(entryID string) (*trust.TrustEntrySummary, error)
}

func lookupScore(r votesReader, entryID string) (scoreReport, error) {
	res := scoreReport{Entry: entryID}

	summary, err := r.GetVotes(entryID)
	if err != nil {
		return res, fmt.Errorf("get votes: %w", err)
	}

	res.Votes = summary.Votes.Int64()
	res.Trusted = summary.Trusted.Int64()
	res.Pinned = summary.Pinned
	res.PinTrusted = summary.PinTrusted

	score, err := summary.TruncatedScore()
	if err != nil {
		if errors.Is(err, trust.ErrNoData) {
			return res, nil
		}
		return res, fmt.Errorf("calculate score: %w", err)
	}

	res.Score = trust.FormatScore(score)

	exact, err := summary.Score()
	if err != nil {
		return res, fmt.Errorf("calculate exact score: %w", err)
	}

	res.Exact = exact.RatString()

	return res, nil
}

func printScore(w io.Writer, r scoreReport, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	switch {
	case r.Score == "":
		fmt.Fprintf(w, "%s: no data\n", r.Entry)
	case r.Pinned:
		fmt.Fprintf(w, "%s: %s (pinned by authority, %d votes)\n", r.Entry, r.Score, r.Votes)
	default:
		fmt.Fprintf(w, "%s: %s (%d of %d voters trust it)\n", r.Entry, r.Score, r.Trusted, r.Votes)
	}

	return nil
}

var isAuthorityCmd = &cobra.Command{
	Use:   "is-authority <address>",
	Short: "Check whether the account may pin scores",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := address.StringToUint160(args[0])
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}

		b, err := newRemoteBlockchain(cmd.Context())
		if err != nil {
			return err
		}
		defer b.close()

		ok, err := b.reader.IsAuthority(acc)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ok)
		return nil
	},
}

var authoritiesCmd = &cobra.Command{
	Use:   "authorities",
	Short: "List authorities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, err := newRemoteBlockchain(cmd.Context())
		if err != nil {
			return err
		}
		defer b.close()

		items, err := b.reader.AuthoritiesExpanded(listLimit)
		if err != nil {
			return err
		}

		return printAddresses(cmd.OutOrStdout(), items)
	},
}

var votersCmd = &cobra.Command{
	Use:   "voters <entry>",
	Short: "List voters of the entry with their votes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newRemoteBlockchain(cmd.Context())
		if err != nil {
			return err
		}
		defer b.close()

		items, err := b.reader.VotersExpanded(args[0], listLimit)
		if err != nil {
			return err
		}

		for i := range items {
			h, err := itemToUint160(items[i])
			if err != nil {
				return fmt.Errorf("voter #%d: %w", i, err)
			}

			vote, err := b.reader.GetVote(args[0], h)
			if err != nil {
				return fmt.Errorf("get vote of %s: %w", address.Uint160ToString(h), err)
			}

			trusted, err := vote.TryBool()
			if err != nil {
				return fmt.Errorf("vote of %s: %w", address.Uint160ToString(h), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%t\n", address.Uint160ToString(h), trusted)
		}

		return nil
	},
}

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "List rated entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, err := newRemoteBlockchain(cmd.Context())
		if err != nil {
			return err
		}
		defer b.close()

		items, err := b.reader.ListEntriesExpanded(listLimit)
		if err != nil {
			return err
		}

		for i := range items {
			id, err := items[i].TryBytes()
			if err != nil {
				return fmt.Errorf("entry #%d: %w", i, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(id))
		}

		return nil
	},
}

func printAddresses(w io.Writer, items []stackitem.Item) error {
	for i := range items {
		h, err := itemToUint160(items[i])
		if err != nil {
			return fmt.Errorf("item #%d: %w", i, err)
		}

		fmt.Fprintln(w, address.Uint160ToString(h))
	}

	return nil
}

func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}

	return util.Uint160DecodeBytesBE(b)
}
