package trust

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/crypto"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/neo-go/pkg/interop/util"
	"github.com/nspcc-dev/trust-registry/common"
	"github.com/nspcc-dev/trust-registry/contracts/trust/trustconst"
)

// EntrySummary is a view of the entry state as recorded in the contract.
type EntrySummary struct {
	// Number of distinct voters.
	Votes int
	// Number of voters trusting the entry.
	Trusted int
	// Pinned is set if an authority has overridden the votes.
	Pinned bool
	// PinTrusted is the override value, meaningful only if Pinned is set.
	PinTrusted bool
}

const (
	authorityPrefix = 'a'
	entryPrefix     = 'e'
	votePrefix      = 'v'
	pinPrefix       = 'p'

	initializedKey = "initialized"
	depositKey     = "deposit"

	// hardcoded value to ignore fee transfer notification in onNEP17Payment.
	feeTransferMarker = "\x74\x72\x73"
)

// _deploy sets up the initial authority set if it is provided. Contract
// deployed without data stays uninitialized until the committee calls
// Initialize.
// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	ctx := storage.GetContext()

	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	if data == nil {
		runtime.Log("trust contract deployed, waiting for initialization")
		return
	}

	args := data.(struct {
		authorities []interop.Hash160
		deposit     int
	})

	initialize(ctx, args.authorities, args.deposit)
}

// Update method updates contract source code and manifest. It can be invoked
// only by committee.
func Update(script []byte, manifest []byte, data any) {
	if !common.HasUpdateAccess() {
		panic("only committee can update contract")
	}

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, common.AppendVersion(data))
	runtime.Log("trust contract updated")
}

// Initialize sets the authority set and the vote deposit of the contract
// deployed without initialization data. It can be invoked only by committee
// and only once.
func Initialize(authorities []interop.Hash160, deposit int) {
	common.CheckCommitteeWitness()

	ctx := storage.GetContext()
	initialize(ctx, authorities, deposit)
}

// IsAuthority checks whether the account is allowed to pin verifications.
// Malformed accounts are never authorities.
func IsAuthority(account interop.Hash160) bool {
	ctx := storage.GetReadOnlyContext()
	checkInitialized(ctx)

	return isAuthority(ctx, account)
}

// Authorities returns an iterator over script hashes of all authorities.
func Authorities() iterator.Iterator {
	ctx := storage.GetReadOnlyContext()
	checkInitialized(ctx)

	return storage.Find(ctx, []byte{authorityPrefix}, storage.KeysOnly|storage.RemovePrefix)
}

// AddAuthorities extends the authority set. It can be invoked only by an
// existing authority. Accounts which are authorities already are skipped.
//
// This method produces AuthorityAdded notification for each new authority.
func AddAuthorities(authority interop.Hash160, accounts []interop.Hash160) {
	ctx := storage.GetContext()
	checkInitialized(ctx)
	checkAuthority(ctx, authority)

	if len(accounts) == 0 {
		panic("at least one account must be provided")
	}

	for _, acc := range accounts {
		addAuthority(ctx, acc)
	}
}

// SubmitVerification records the voter's opinion about the entry. The
// previous vote of the same voter is replaced. Voter pays the deposit
// returned by DepositAmount to the contract account.
//
// This method produces VerificationSubmitted notification.
func SubmitVerification(voter interop.Hash160, entryID string, trusted bool) {
	ctx := storage.GetContext()
	checkInitialized(ctx)
	checkEntryID(entryID)

	common.CheckOwnerWitness(voter)

	deposit := getDeposit(ctx)
	to := runtime.GetExecutingScriptHash()

	transferred := gas.Transfer(voter, to, deposit, feeTransferMarker)
	if !transferred {
		panic(trustconst.ErrInsufficientDeposit)
	}

	recordVote(ctx, entryID, voter, trusted)
}

// OnNEP17Payment is a callback for NEP-17 compatible native GAS contract.
// Transfer with [entryID, trusted] data and an amount not less than
// DepositAmount records the sender's vote the same way SubmitVerification
// does.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	caller := runtime.GetCallingScriptHash()
	if !caller.Equals(gas.Hash) {
		common.AbortWithMessage("only GAS can be accepted for deposit")
	}

	if util.Equals(data, feeTransferMarker) {
		return
	}

	ctx := storage.GetContext()
	checkInitialized(ctx)

	if len(from) != interop.Hash160Len {
		panic("invalid sender")
	}

	if data == nil {
		panic("missing vote, expected [entryID, trusted]")
	}

	args := data.([]any)
	if len(args) != 2 {
		panic("invalid vote, expected [entryID, trusted]")
	}

	entryID := args[0].(string)
	trusted := args[1].(bool)

	checkEntryID(entryID)

	if amount < getDeposit(ctx) {
		panic(trustconst.ErrInsufficientDeposit)
	}

	recordVote(ctx, entryID, from, trusted)
}

// PinVerification sets the authoritative trust value of the entry. Pinned
// value takes precedence over the votes, which are still collected. It can
// be invoked only by an authority.
//
// This method produces VerificationPinned notification.
func PinVerification(authority interop.Hash160, entryID string, trusted bool) {
	ctx := storage.GetContext()
	checkInitialized(ctx)
	checkEntryID(entryID)
	checkAuthority(ctx, authority)

	h := entryHash(entryID)
	touchEntry(ctx, h, entryID)
	storage.Put(ctx, pinKey(h), trusted)

	runtime.Notify("VerificationPinned", entryID, authority, trusted)
}

// GetVerification returns fixed-point trust score of the entry with
// trustconst.ScoreDecimals precision. Pinned value is returned as 0 or
// trustconst.ScoreMax, otherwise the share of trusting voters is returned.
// Null is returned if nobody has rated the entry yet.
func GetVerification(entryID string) any {
	ctx := storage.GetReadOnlyContext()
	checkInitialized(ctx)

	h := entryHash(entryID)

	pin := storage.Get(ctx, pinKey(h))
	if pin != nil {
		if pin.(bool) {
			return trustconst.ScoreMax
		}
		return 0
	}

	votes, trusted := countVotes(ctx, h)
	if votes == 0 {
		return nil
	}

	return trusted * trustconst.ScoreMax / votes
}

// GetVotes returns the summary of the entry state. Unknown entries have
// zero summary.
func GetVotes(entryID string) EntrySummary {
	ctx := storage.GetReadOnlyContext()
	checkInitialized(ctx)

	h := entryHash(entryID)
	votes, trusted := countVotes(ctx, h)

	pinned := false
	pinTrusted := false

	pin := storage.Get(ctx, pinKey(h))
	if pin != nil {
		pinned = true
		pinTrusted = pin.(bool)
	}

	return EntrySummary{
		Votes:      votes,
		Trusted:    trusted,
		Pinned:     pinned,
		PinTrusted: pinTrusted,
	}
}

// GetVote returns the live vote of the voter for the entry or Null if the
// voter has not voted.
func GetVote(entryID string, voter interop.Hash160) any {
	ctx := storage.GetReadOnlyContext()
	checkInitialized(ctx)

	v := storage.Get(ctx, voteKey(entryHash(entryID), voter))
	if v == nil {
		return nil
	}

	return v.(bool)
}

// Voters returns an iterator over script hashes of the entry voters.
func Voters(entryID string) iterator.Iterator {
	ctx := storage.GetReadOnlyContext()
	checkInitialized(ctx)

	return storage.Find(ctx, votesKey(entryHash(entryID)), storage.KeysOnly|storage.RemovePrefix)
}

// ListEntries returns an iterator over identifiers of all rated entries.
func ListEntries() iterator.Iterator {
	ctx := storage.GetReadOnlyContext()
	checkInitialized(ctx)

	return storage.Find(ctx, []byte{entryPrefix}, storage.ValuesOnly)
}

// SetDepositAmount changes the vote deposit in GAS fractions. It can be
// invoked only by committee.
//
// This method produces DepositChanged notification.
func SetDepositAmount(amount int) {
	common.CheckCommitteeWitness()

	ctx := storage.GetContext()
	checkInitialized(ctx)

	setDeposit(ctx, amount)
}

// DepositAmount returns the vote deposit in GAS fractions.
func DepositAmount() int {
	ctx := storage.GetReadOnlyContext()
	checkInitialized(ctx)

	return getDeposit(ctx)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func initialize(ctx storage.Context, authorities []interop.Hash160, deposit int) {
	if storage.Get(ctx, initializedKey) != nil {
		panic(trustconst.ErrAlreadyInitialized)
	}

	if len(authorities) == 0 {
		panic("at least one authority must be provided")
	}

	for _, acc := range authorities {
		addAuthority(ctx, acc)
	}

	setDeposit(ctx, deposit)
	storage.Put(ctx, initializedKey, true)

	runtime.Log("trust contract initialized")
}

func checkInitialized(ctx storage.Context) {
	if storage.Get(ctx, initializedKey) == nil {
		panic(trustconst.ErrNotInitialized)
	}
}

func checkEntryID(entryID string) {
	if len(entryID) == 0 {
		panic(trustconst.ErrEmptyEntryID)
	}
}

// checkAuthority panics if authority did not sign the invocation or it is
// not a member of the authority set.
func checkAuthority(ctx storage.Context, authority interop.Hash160) {
	common.CheckWitness(authority)

	if !isAuthority(ctx, authority) {
		panic(trustconst.ErrNotAuthorized)
	}
}

func isAuthority(ctx storage.Context, account interop.Hash160) bool {
	if len(account) != interop.Hash160Len {
		return false
	}

	return storage.Get(ctx, append([]byte{authorityPrefix}, account...)) != nil
}

func addAuthority(ctx storage.Context, account interop.Hash160) {
	if len(account) != interop.Hash160Len {
		panic("incorrect length of authority script hash")
	}

	key := append([]byte{authorityPrefix}, account...)
	if storage.Get(ctx, key) != nil {
		return
	}

	storage.Put(ctx, key, []byte{1})
	runtime.Notify("AuthorityAdded", account)
}

func getDeposit(ctx storage.Context) int {
	return storage.Get(ctx, depositKey).(int)
}

func setDeposit(ctx storage.Context, amount int) {
	if amount <= 0 {
		panic("deposit amount must be positive")
	}

	storage.Put(ctx, depositKey, amount)
	runtime.Notify("DepositChanged", amount)
}

// recordVote replaces the voter's vote for the entry creating the entry
// record if it is missing.
func recordVote(ctx storage.Context, entryID string, voter interop.Hash160, trusted bool) {
	h := entryHash(entryID)
	touchEntry(ctx, h, entryID)
	storage.Put(ctx, voteKey(h, voter), trusted)

	runtime.Notify("VerificationSubmitted", entryID, voter, trusted)
}

func touchEntry(ctx storage.Context, h []byte, entryID string) {
	key := entryKey(h)
	if storage.Get(ctx, key) == nil {
		storage.Put(ctx, key, entryID)
	}
}

// countVotes returns the number of distinct voters of the entry and the number
// of them trusting it.
func countVotes(ctx storage.Context, h []byte) (int, int) {
	votes := 0
	trusted := 0

	it := storage.Find(ctx, votesKey(h), storage.ValuesOnly)
	for iterator.Next(it) {
		votes++
		if iterator.Value(it).(bool) {
			trusted++
		}
	}

	return votes, trusted
}

func entryHash(entryID string) []byte {
	return crypto.Sha256([]byte(entryID))
}

func entryKey(h []byte) []byte {
	return append([]byte{entryPrefix}, h...)
}

func pinKey(h []byte) []byte {
	return append([]byte{pinPrefix}, h...)
}

func votesKey(h []byte) []byte {
	return append([]byte{votePrefix}, h...)
}

func voteKey(h []byte, voter interop.Hash160) []byte {
	key := votesKey(h)
	return append(key, voter...)
}
