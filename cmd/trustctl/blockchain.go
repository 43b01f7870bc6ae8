package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/gas"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/nspcc-dev/trust-registry/deploy"
	"github.com/nspcc-dev/trust-registry/rpc/trust"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	rpcTimeout   = 15 * time.Second
	pollInterval = time.Second
)

// wrapper over Neo RPC client providing Trust Registry services needed for
// the commands.
type remoteBlockchain struct {
	rpc *rpcclient.Client

	contract util.Uint160
	reader   *trust.ContractReader
}

// newRemoteBlockchain dials Neo RPC server from the configuration and resolves
// Trust Registry contract. Connection and all requests are done within 15s
// timeout.
func newRemoteBlockchain(ctx context.Context) (*remoteBlockchain, error) {
	b, err := dialRemoteBlockchain(ctx)
	if err != nil {
		return nil, err
	}

	ref := viper.GetString(cfgContract)
	if ref == "" {
		b.close()
		return nil, errors.New("missing Trust Registry contract reference")
	}

	err = b.useContract(ref)
	if err != nil {
		b.close()
		return nil, err
	}

	return b, nil
}

func dialRemoteBlockchain(ctx context.Context) (*remoteBlockchain, error) {
	endpoint := viper.GetString(cfgRPC)
	if endpoint == "" {
		return nil, errors.New("missing Neo RPC endpoint")
	}

	c, err := rpcclient.New(ctx, endpoint, rpcclient.Options{
		DialTimeout:    rpcTimeout,
		RequestTimeout: rpcTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	err = c.Init()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("RPC client init: %w", err)
	}

	return &remoteBlockchain{rpc: c}, nil
}

func (x *remoteBlockchain) useContract(ref string) error {
	h, err := trust.ResolveHash(x.rpc, ref)
	if err != nil {
		return fmt.Errorf("resolve Trust Registry contract: %w", err)
	}

	// throwaway account, reads are not signed
	acc, err := wallet.NewAccount()
	if err != nil {
		return fmt.Errorf("generate new Neo account: %w", err)
	}

	act, err := actor.NewSimple(x.rpc, acc)
	if err != nil {
		return fmt.Errorf("init actor: %w", err)
	}

	x.contract = h
	x.reader = trust.NewReader(act, h)

	logger.Debug("using Trust Registry contract", zap.Stringer("address", h))

	return nil
}

func (x *remoteBlockchain) close() {
	x.rpc.Close()
}

// signer returns an account from the configured wallet with the actor
// allowed to witness Trust Registry and GAS contract calls.
func (x *remoteBlockchain) signer() (*wallet.Account, *actor.Actor, error) {
	acc, err := openAccount()
	if err != nil {
		return nil, nil, err
	}

	act, err := actor.New(x.rpc, []actor.SignerAccount{{
		Signer: transaction.Signer{
			Account:          acc.ScriptHash(),
			Scopes:           transaction.CustomContracts,
			AllowedContracts: []util.Uint160{x.contract, gas.Hash},
		},
		Account: acc,
	}})
	if err != nil {
		return nil, nil, fmt.Errorf("init actor: %w", err)
	}

	return acc, act, nil
}

// await waits for the transaction to be accepted if there is no error.
func (x *remoteBlockchain) await(ctx context.Context, txHash util.Uint256, vub uint32, err error) error {
	if err != nil {
		return err
	}

	logger.Info("transaction sent, waiting for it to be accepted...",
		zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	err = deploy.Await(ctx, x.rpc, pollInterval, txHash, vub)
	if err != nil {
		return err
	}

	logger.Info("transaction successfully accepted", zap.Stringer("tx", txHash))

	return nil
}

// openAccount opens and decrypts the configured wallet account.
func openAccount() (*wallet.Account, error) {
	path := viper.GetString(cfgWallet)
	if path == "" {
		return nil, errors.New("missing wallet")
	}

	w, err := wallet.NewWalletFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}

	var acc *wallet.Account

	if addr := viper.GetString(cfgAccount); addr != "" {
		h, err := address.StringToUint160(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid account address: %w", err)
		}

		acc = w.GetAccount(h)
		if acc == nil {
			return nil, fmt.Errorf("account %s is missing in the wallet", addr)
		}
	} else {
		if len(w.Accounts) == 0 {
			return nil, errors.New("wallet has no accounts")
		}

		acc = w.Accounts[0]
		for _, a := range w.Accounts {
			if a.Default {
				acc = a
				break
			}
		}
	}

	err = acc.Decrypt(viper.GetString(cfgPassword), w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypt account %s: %w", acc.Address, err)
	}

	return acc, nil
}
