package main

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	entryHashLen = 32

	authorityPrefix = 'a'
	entryPrefix     = 'e'
	votePrefix      = 'v'
	pinPrefix       = 'p'

	initializedKey = "initialized"
	depositKey     = "deposit"
)

var exportOutput string

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export Trust Registry storage as CSV",
	Long: `Export Trust Registry storage as CSV with kind,entry,account,value columns.

Storage is read at the state root of the penult block, so RPC server must
keep state history (StateRoot service enabled).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, err := newRemoteBlockchain(cmd.Context())
		if err != nil {
			return err
		}
		defer b.close()

		out := cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()

			out = f
		}

		n, err := exportStorage(out, b.iterateContractStorage)
		if err != nil {
			return err
		}

		logger.Info("Trust Registry storage exported", zap.Int("records", n))

		return nil
	},
}

// storageRecord is a decoded contract storage item.
type storageRecord struct {
	kind    string
	entry   string
	account string
	value   string
}

func (r storageRecord) row() []string {
	return []string{r.kind, r.entry, r.account, r.value}
}

// exportStorage writes storage items passed by iterate to w as CSV and
// returns number of written records.
func exportStorage(w io.Writer, iterate func(func(key, value []byte) error) error) (int, error) {
	cw := csv.NewWriter(w)

	err := cw.Write([]string{"kind", "entry", "account", "value"})
	if err != nil {
		return 0, err
	}

	var (
		n       int
		entries = make(map[string]string)
	)

	err = iterate(func(key, value []byte) error {
		rec, err := decodeStorageItem(key, value, entries)
		if err != nil {
			return fmt.Errorf("decode item %s: %w", hex.EncodeToString(key), err)
		}

		n++
		return cw.Write(rec.row())
	})
	if err != nil {
		return n, err
	}

	cw.Flush()

	return n, cw.Error()
}

// decodeStorageItem decodes Trust Registry storage item. Entry records are
// remembered in entries to resolve entry hashes of the subsequent vote and pin
// records, storage keys are ordered so that entries go first.
func decodeStorageItem(key, value []byte, entries map[string]string) (storageRecord, error) {
	switch string(key) {
	case initializedKey:
		return storageRecord{kind: "initialized", value: strconv.FormatBool(decodeBool(value))}, nil
	case depositKey:
		return storageRecord{kind: "deposit", value: fixedn.ToString(bigint.FromBytes(value), 8)}, nil
	}

	if len(key) == 0 {
		return storageRecord{}, fmt.Errorf("empty key")
	}

	switch key[0] {
	case authorityPrefix:
		acc, err := util.Uint160DecodeBytesBE(key[1:])
		if err != nil {
			return storageRecord{}, fmt.Errorf("authority: %w", err)
		}

		return storageRecord{kind: "authority", account: address.Uint160ToString(acc)}, nil
	case entryPrefix:
		if len(key) != 1+entryHashLen {
			return storageRecord{}, fmt.Errorf("invalid entry key length %d", len(key))
		}

		entries[string(key[1:])] = string(value)

		return storageRecord{kind: "entry", entry: string(value)}, nil
	case pinPrefix:
		if len(key) != 1+entryHashLen {
			return storageRecord{}, fmt.Errorf("invalid pin key length %d", len(key))
		}

		return storageRecord{
			kind:  "pin",
			entry: entryName(key[1:], entries),
			value: strconv.FormatBool(decodeBool(value)),
		}, nil
	case votePrefix:
		if len(key) != 1+entryHashLen+util.Uint160Size {
			return storageRecord{}, fmt.Errorf("invalid vote key length %d", len(key))
		}

		voter, err := util.Uint160DecodeBytesBE(key[1+entryHashLen:])
		if err != nil {
			return storageRecord{}, fmt.Errorf("voter: %w", err)
		}

		return storageRecord{
			kind:    "vote",
			entry:   entryName(key[1:1+entryHashLen], entries),
			account: address.Uint160ToString(voter),
			value:   strconv.FormatBool(decodeBool(value)),
		}, nil
	}

	return storageRecord{}, fmt.Errorf("unknown key prefix 0x%02x", key[0])
}

// entryName returns entry identifier by its hash or the hex hash itself if
// the entry record is unknown.
func entryName(h []byte, entries map[string]string) string {
	if id, ok := entries[string(h)]; ok {
		return id
	}

	return hex.EncodeToString(h)
}

func decodeBool(v []byte) bool {
	for i := range v {
		if v[i] != 0 {
			return true
		}
	}

	return false
}

// iterateContractStorage iterates over all storage items of the Trust Registry
// contract and passes them into f. iterateContractStorage breaks on any f's
// error and returns it.
func (x *remoteBlockchain) iterateContractStorage(f func(key, value []byte) error) error {
	nLatestBlock, err := x.rpc.GetBlockCount()
	if err != nil {
		return fmt.Errorf("get number of the latest block: %w", err)
	}

	stateRoot, err := x.rpc.GetStateRootByHeight(nLatestBlock - 1)
	if err != nil {
		return fmt.Errorf("get state root at penult block #%d: %w", nLatestBlock-1, err)
	}

	var start []byte

	for {
		res, err := x.rpc.FindStates(stateRoot.Root, x.contract, nil, start, nil)
		if err != nil {
			return fmt.Errorf("get historical storage items of the contract at state root '%s': %w", stateRoot.Root, err)
		}

		for i := range res.Results {
			err = f(res.Results[i].Key, res.Results[i].Value)
			if err != nil {
				return err
			}
		}

		if !res.Truncated || len(res.Results) == 0 {
			return nil
		}

		start = res.Results[len(res.Results)-1].Key
	}
}
