package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/nspcc-dev/trust-registry/common"
	"github.com/nspcc-dev/trust-registry/rpc/trust"
	"go.uber.org/zap"
)

// ErrTxExpired is returned when the transaction is not accepted by the network
// before its ValidUntilBlock.
var ErrTxExpired = errors.New("transaction expired")

const defaultPollInterval = time.Second

// Blockchain groups services provided by particular Neo blockchain network
// that are required for Trust Registry deployment.
type Blockchain interface {
	// RPCActor groups functions needed to compose and send transactions.
	actor.RPCActor

	// GetContractStateByHash returns network state of the smart contract by its
	// address. GetContractStateByHash returns error with 'Unknown contract'
	// substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)

	// GetApplicationLog returns execution results of the persisted transaction.
	GetApplicationLog(util.Uint256, *trigger.Type) (*result.ApplicationLog, error)
}

// CommonDeployPrm groups common deployment parameters of the smart contract.
type CommonDeployPrm struct {
	NEF      nef.File
	Manifest manifest.Manifest
}

// Prm groups all parameters of the Trust Registry deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance to deploy the contract to.
	Blockchain Blockchain

	// Local process account used for deployment transaction signing (must be
	// unlocked). Contract address depends on it.
	LocalAccount *wallet.Account

	// Neo committee account used to sign update transactions (must be
	// unlocked). LocalAccount is used if not set.
	CommitteeAccount *wallet.Account

	Contract CommonDeployPrm

	// Initial authority set. Contract is deployed uninitialized if empty,
	// committee must call initialize method then.
	Authorities []util.Uint160

	// Vote deposit in GAS fractions.
	Deposit int64

	// Interval between transaction state checks, one second by default.
	PollInterval time.Duration
}

// Deploy deploys Trust Registry contract to the blockchain or updates already
// deployed one if its version is older than the local one. Address of the
// contract is returned.
//
// Deploy is idempotent: contract already synchronized with the local one is
// left untouched.
func Deploy(ctx context.Context, prm Prm) (util.Uint160, error) {
	if prm.PollInterval <= 0 {
		prm.PollInterval = defaultPollInterval
	}

	addr := state.CreateContractHash(prm.LocalAccount.ScriptHash(),
		prm.Contract.NEF.Checksum, prm.Contract.Manifest.Name)
	l := prm.Logger.With(zap.Stringer("address", addr))

	localActor, err := actor.NewSimple(prm.Blockchain, prm.LocalAccount)
	if err != nil {
		return addr, fmt.Errorf("init transaction sender from local account: %w", err)
	}

	_, err = prm.Blockchain.GetContractStateByHash(addr)
	if err == nil {
		l.Info("Trust Registry contract is already deployed, synchronizing...")

		err = syncContract(ctx, prm, addr)
		if err != nil {
			return addr, fmt.Errorf("sync Trust Registry contract: %w", err)
		}

		return addr, nil
	}

	if !isErrContractNotFound(err) {
		return addr, fmt.Errorf("get Trust Registry contract state: %w", err)
	}

	l.Info("Trust Registry contract is missing on the chain, deploying...")

	txHash, vub, err := management.New(localActor).Deploy(&prm.Contract.NEF, &prm.Contract.Manifest, deployData(prm))
	if err != nil {
		return addr, fmt.Errorf("send deployment transaction: %w", err)
	}

	l.Info("deployment transaction sent, waiting for it to be accepted...",
		zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	err = Await(ctx, prm.Blockchain, prm.PollInterval, txHash, vub)
	if err != nil {
		return addr, fmt.Errorf("await deployment transaction: %w", err)
	}

	if len(prm.Authorities) == 0 {
		l.Warn("Trust Registry contract deployed without authorities, committee must initialize it")
	} else {
		l.Info("Trust Registry contract successfully deployed", zap.Int("authorities", len(prm.Authorities)))
	}

	return addr, nil
}

// syncContract updates the deployed contract if its version is older than
// the local one.
func syncContract(ctx context.Context, prm Prm, addr util.Uint160) error {
	l := prm.Logger.With(zap.Stringer("address", addr))

	acc := prm.CommitteeAccount
	if acc == nil {
		acc = prm.LocalAccount
	}

	committeeActor, err := actor.New(prm.Blockchain, []actor.SignerAccount{{
		Signer: transaction.Signer{
			Account: acc.ScriptHash(),
			Scopes:  transaction.CalledByEntry,
		},
		Account: acc,
	}})
	if err != nil {
		return fmt.Errorf("init transaction sender from committee account: %w", err)
	}

	contract := trust.New(committeeActor, addr)

	onChainVersion, err := contract.Version()
	if err != nil {
		return fmt.Errorf("get on-chain contract version: %w", err)
	}

	if !needUpdate(onChainVersion, common.Version) {
		l.Info("Trust Registry contract is up to date", zap.Stringer("version", onChainVersion))
		return nil
	}

	bNEF, err := prm.Contract.NEF.Bytes()
	if err != nil {
		return fmt.Errorf("encode NEF: %w", err)
	}

	jManifest, err := json.Marshal(prm.Contract.Manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	l.Info("updating Trust Registry contract...",
		zap.Stringer("from", onChainVersion), zap.Int("to", common.Version))

	txHash, vub, err := contract.Update(bNEF, jManifest, nil)
	if err != nil {
		return fmt.Errorf("send update transaction: %w", err)
	}

	err = Await(ctx, prm.Blockchain, prm.PollInterval, txHash, vub)
	if err != nil {
		return fmt.Errorf("await update transaction: %w", err)
	}

	l.Info("Trust Registry contract successfully updated")

	return nil
}

func needUpdate(onChain *big.Int, local int) bool {
	return onChain.Cmp(big.NewInt(int64(local))) < 0
}

func deployData(prm Prm) any {
	if len(prm.Authorities) == 0 {
		return nil
	}

	authorities := make([]any, len(prm.Authorities))
	for i := range prm.Authorities {
		authorities[i] = prm.Authorities[i]
	}

	return []any{authorities, prm.Deposit}
}

func isErrContractNotFound(err error) bool {
	return strings.Contains(err.Error(), "Unknown contract")
}

// TxStateGetter is a subset of Blockchain used to track transactions.
type TxStateGetter interface {
	GetApplicationLog(util.Uint256, *trigger.Type) (*result.ApplicationLog, error)
	GetBlockCount() (uint32, error)
}

// Await blocks until the transaction is persisted and checks it has been
// executed successfully. ErrTxExpired is returned if the transaction can't be
// accepted anymore.
func Await(ctx context.Context, b TxStateGetter, pollInterval time.Duration, txHash util.Uint256, vub uint32) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		appLog, err := b.GetApplicationLog(txHash, nil)
		if err == nil {
			return checkAppLog(txHash, appLog)
		}

		// block vub+1 exists, so transaction can't be accepted anymore
		count, err := b.GetBlockCount()
		if err == nil && count > vub+1 {
			// transaction may have been persisted after the log request
			appLog, err = b.GetApplicationLog(txHash, nil)
			if err == nil {
				return checkAppLog(txHash, appLog)
			}

			return fmt.Errorf("%w: %s", ErrTxExpired, txHash.StringLE())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func checkAppLog(txHash util.Uint256, appLog *result.ApplicationLog) error {
	if len(appLog.Executions) == 0 {
		return fmt.Errorf("no executions of transaction %s", txHash.StringLE())
	}

	ex := appLog.Executions[0]
	if ex.VMState != vmstate.Halt {
		return fmt.Errorf("transaction %s failed: %s", txHash.StringLE(), ex.FaultException)
	}

	return nil
}
