// Package trust contains RPC wrappers for Trust Registry contract.
package trust

import (
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"math/big"
	"unicode/utf8"
)

// TrustEntrySummary is a contract-specific trust.EntrySummary type used by its methods.
type TrustEntrySummary struct {
	Votes *big.Int
	Trusted *big.Int
	Pinned bool
	PinTrusted bool
}

// VerificationSubmittedEvent represents "VerificationSubmitted" event emitted by the contract.
type VerificationSubmittedEvent struct {
	EntryID string
	Voter util.Uint160
	Trusted bool
}

// VerificationPinnedEvent represents "VerificationPinned" event emitted by the contract.
type VerificationPinnedEvent struct {
	EntryID string
	Authority util.Uint160
	Trusted bool
}

// AuthorityAddedEvent represents "AuthorityAdded" event emitted by the contract.
type AuthorityAddedEvent struct {
	Account util.Uint160
}

// DepositChangedEvent represents "DepositChanged" event emitted by the contract.
type DepositChangedEvent struct {
	Amount *big.Int
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
	CallAndExpandIterator(contract util.Uint160, method string, maxItems int, params ...any) (*result.Invoke, error)
	TerminateSession(sessionID uuid.UUID) error
	TraverseIterator(sessionID uuid.UUID, iterator *result.Iterator, num int) ([]stackitem.Item, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// Authorities invokes `authorities` method of contract.
func (c *ContractReader) Authorities() (uuid.UUID, result.Iterator, error) {
	return unwrap.SessionIterator(c.invoker.Call(c.hash, "authorities"))
}

// AuthoritiesExpanded is similar to Authorities (uses the same contract
// method), but can be useful if the server used doesn't support sessions and
// doesn't expand iterators. It creates a script that will get the specified
// number of result items from the iterator right in the VM and return them to
// you. It's only limited by VM stack and GAS available for RPC invocations.
func (c *ContractReader) AuthoritiesExpanded(_numOfIteratorItems int) ([]stackitem.Item, error) {
	return unwrap.Array(c.invoker.CallAndExpandIterator(c.hash, "authorities", _numOfIteratorItems))
}

// DepositAmount invokes `depositAmount` method of contract.
func (c *ContractReader) DepositAmount() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "depositAmount"))
}

// GetVerification invokes `getVerification` method of contract.
func (c *ContractReader) GetVerification(entryID string) (stackitem.Item, error) {
	return unwrap.Item(c.invoker.Call(c.hash, "getVerification", entryID))
}

// GetVote invokes `getVote` method of contract.
func (c *ContractReader) GetVote(entryID string, voter util.Uint160) (stackitem.Item, error) {
	return unwrap.Item(c.invoker.Call(c.hash, "getVote", entryID, voter))
}

// GetVotes invokes `getVotes` method of contract.
func (c *ContractReader) GetVotes(entryID string) (*TrustEntrySummary, error) {
	return itemToTrustEntrySummary(unwrap.Item(c.invoker.Call(c.hash, "getVotes", entryID)))
}

// IsAuthority invokes `isAuthority` method of contract.
func (c *ContractReader) IsAuthority(account util.Uint160) (bool, error) {
	return unwrap.Bool(c.invoker.Call(c.hash, "isAuthority", account))
}

// ListEntries invokes `listEntries` method of contract.
func (c *ContractReader) ListEntries() (uuid.UUID, result.Iterator, error) {
	return unwrap.SessionIterator(c.invoker.Call(c.hash, "listEntries"))
}

// ListEntriesExpanded is similar to ListEntries (uses the same contract
// method), but can be useful if the server used doesn't support sessions and
// doesn't expand iterators. It creates a script that will get the specified
// number of result items from the iterator right in the VM and return them to
// you. It's only limited by VM stack and GAS available for RPC invocations.
func (c *ContractReader) ListEntriesExpanded(_numOfIteratorItems int) ([]stackitem.Item, error) {
	return unwrap.Array(c.invoker.CallAndExpandIterator(c.hash, "listEntries", _numOfIteratorItems))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// Voters invokes `voters` method of contract.
func (c *ContractReader) Voters(entryID string) (uuid.UUID, result.Iterator, error) {
	return unwrap.SessionIterator(c.invoker.Call(c.hash, "voters", entryID))
}

// VotersExpanded is similar to Voters (uses the same contract
// method), but can be useful if the server used doesn't support sessions and
// doesn't expand iterators. It creates a script that will get the specified
// number of result items from the iterator right in the VM and return them to
// you. It's only limited by VM stack and GAS available for RPC invocations.
func (c *ContractReader) VotersExpanded(entryID string, _numOfIteratorItems int) ([]stackitem.Item, error) {
	return unwrap.Array(c.invoker.CallAndExpandIterator(c.hash, "voters", _numOfIteratorItems, entryID))
}

// AddAuthorities creates a transaction invoking `addAuthorities` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) AddAuthorities(authority util.Uint160, accounts []util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "addAuthorities", authority, accounts)
}

// AddAuthoritiesTransaction creates a transaction invoking `addAuthorities` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) AddAuthoritiesTransaction(authority util.Uint160, accounts []util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "addAuthorities", authority, accounts)
}

// AddAuthoritiesUnsigned creates a transaction invoking `addAuthorities` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) AddAuthoritiesUnsigned(authority util.Uint160, accounts []util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "addAuthorities", nil, authority, accounts)
}

// Initialize creates a transaction invoking `initialize` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Initialize(authorities []util.Uint160, deposit *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "initialize", authorities, deposit)
}

// InitializeTransaction creates a transaction invoking `initialize` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) InitializeTransaction(authorities []util.Uint160, deposit *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "initialize", authorities, deposit)
}

// InitializeUnsigned creates a transaction invoking `initialize` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) InitializeUnsigned(authorities []util.Uint160, deposit *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "initialize", nil, authorities, deposit)
}

// PinVerification creates a transaction invoking `pinVerification` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) PinVerification(authority util.Uint160, entryID string, trusted bool) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "pinVerification", authority, entryID, trusted)
}

// PinVerificationTransaction creates a transaction invoking `pinVerification` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) PinVerificationTransaction(authority util.Uint160, entryID string, trusted bool) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "pinVerification", authority, entryID, trusted)
}

// PinVerificationUnsigned creates a transaction invoking `pinVerification` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) PinVerificationUnsigned(authority util.Uint160, entryID string, trusted bool) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "pinVerification", nil, authority, entryID, trusted)
}

// SetDepositAmount creates a transaction invoking `setDepositAmount` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) SetDepositAmount(amount *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "setDepositAmount", amount)
}

// SetDepositAmountTransaction creates a transaction invoking `setDepositAmount` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) SetDepositAmountTransaction(amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "setDepositAmount", amount)
}

// SetDepositAmountUnsigned creates a transaction invoking `setDepositAmount` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) SetDepositAmountUnsigned(amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "setDepositAmount", nil, amount)
}

// SubmitVerification creates a transaction invoking `submitVerification` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) SubmitVerification(voter util.Uint160, entryID string, trusted bool) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "submitVerification", voter, entryID, trusted)
}

// SubmitVerificationTransaction creates a transaction invoking `submitVerification` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) SubmitVerificationTransaction(voter util.Uint160, entryID string, trusted bool) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "submitVerification", voter, entryID, trusted)
}

// SubmitVerificationUnsigned creates a transaction invoking `submitVerification` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) SubmitVerificationUnsigned(voter util.Uint160, entryID string, trusted bool) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "submitVerification", nil, voter, entryID, trusted)
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(script []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", script, manifest, data)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "update", script, manifest, data)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "update", nil, script, manifest, data)
}

// itemToTrustEntrySummary converts stack item into *TrustEntrySummary.
func itemToTrustEntrySummary(item stackitem.Item, err error) (*TrustEntrySummary, error) {
	if err != nil {
		return nil, err
	}
	var res = new(TrustEntrySummary)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of TrustEntrySummary from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *TrustEntrySummary) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 4 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	res.Votes, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Votes: %w", err)
	}

	index++
	res.Trusted, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Trusted: %w", err)
	}

	index++
	res.Pinned, err = arr[index].TryBool()
	if err != nil {
		return fmt.Errorf("field Pinned: %w", err)
	}

	index++
	res.PinTrusted, err = arr[index].TryBool()
	if err != nil {
		return fmt.Errorf("field PinTrusted: %w", err)
	}

	return nil
}

// VerificationSubmittedEventsFromApplicationLog retrieves a set of all emitted events
// with "VerificationSubmitted" name from the provided [result.ApplicationLog].
func VerificationSubmittedEventsFromApplicationLog(log *result.ApplicationLog) ([]*VerificationSubmittedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*VerificationSubmittedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "VerificationSubmitted" {
				continue
			}
			event := new(VerificationSubmittedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize VerificationSubmittedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to VerificationSubmittedEvent or
// returns an error if it's not possible to do to so.
func (e *VerificationSubmittedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 3 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	e.EntryID, err = func (item stackitem.Item) (string, error) {
		b, err := item.TryBytes()
		if err != nil {
			return "", err
		}
		if !utf8.Valid(b) {
			return "", errors.New("not a UTF-8 string")
		}
		return string(b), nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field EntryID: %w", err)
	}

	index++
	e.Voter, err = func (item stackitem.Item) (util.Uint160, error) {
		b, err := item.TryBytes()
		if err != nil {
			return util.Uint160{}, err
		}
		u, err := util.Uint160DecodeBytesBE(b)
		if err != nil {
			return util.Uint160{}, err
		}
		return u, nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field Voter: %w", err)
	}

	index++
	e.Trusted, err = arr[index].TryBool()
	if err != nil {
		return fmt.Errorf("field Trusted: %w", err)
	}

	return nil
}

// VerificationPinnedEventsFromApplicationLog retrieves a set of all emitted events
// with "VerificationPinned" name from the provided [result.ApplicationLog].
func VerificationPinnedEventsFromApplicationLog(log *result.ApplicationLog) ([]*VerificationPinnedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*VerificationPinnedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "VerificationPinned" {
				continue
			}
			event := new(VerificationPinnedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize VerificationPinnedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to VerificationPinnedEvent or
// returns an error if it's not possible to do to so.
func (e *VerificationPinnedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 3 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	e.EntryID, err = func (item stackitem.Item) (string, error) {
		b, err := item.TryBytes()
		if err != nil {
			return "", err
		}
		if !utf8.Valid(b) {
			return "", errors.New("not a UTF-8 string")
		}
		return string(b), nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field EntryID: %w", err)
	}

	index++
	e.Authority, err = func (item stackitem.Item) (util.Uint160, error) {
		b, err := item.TryBytes()
		if err != nil {
			return util.Uint160{}, err
		}
		u, err := util.Uint160DecodeBytesBE(b)
		if err != nil {
			return util.Uint160{}, err
		}
		return u, nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field Authority: %w", err)
	}

	index++
	e.Trusted, err = arr[index].TryBool()
	if err != nil {
		return fmt.Errorf("field Trusted: %w", err)
	}

	return nil
}

// AuthorityAddedEventsFromApplicationLog retrieves a set of all emitted events
// with "AuthorityAdded" name from the provided [result.ApplicationLog].
func AuthorityAddedEventsFromApplicationLog(log *result.ApplicationLog) ([]*AuthorityAddedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*AuthorityAddedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "AuthorityAdded" {
				continue
			}
			event := new(AuthorityAddedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize AuthorityAddedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to AuthorityAddedEvent or
// returns an error if it's not possible to do to so.
func (e *AuthorityAddedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 1 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	e.Account, err = func (item stackitem.Item) (util.Uint160, error) {
		b, err := item.TryBytes()
		if err != nil {
			return util.Uint160{}, err
		}
		u, err := util.Uint160DecodeBytesBE(b)
		if err != nil {
			return util.Uint160{}, err
		}
		return u, nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field Account: %w", err)
	}

	return nil
}

// DepositChangedEventsFromApplicationLog retrieves a set of all emitted events
// with "DepositChanged" name from the provided [result.ApplicationLog].
func DepositChangedEventsFromApplicationLog(log *result.ApplicationLog) ([]*DepositChangedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*DepositChangedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "DepositChanged" {
				continue
			}
			event := new(DepositChangedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize DepositChangedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to DepositChangedEvent or
// returns an error if it's not possible to do to so.
func (e *DepositChangedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 1 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	e.Amount, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	return nil
}
