package tests

import (
	"encoding/json"
	"path"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/interop/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/native/nativenames"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/trust-registry/common"
	"github.com/nspcc-dev/trust-registry/contracts/trust/trustconst"
	"github.com/stretchr/testify/require"
)

const trustPath = "../contracts/trust"

const testDeposit = 1_0000_0000

func compileTrustContract(t *testing.T, e *neotest.Executor) *neotest.Contract {
	return neotest.CompileFile(t, e.CommitteeHash, trustPath, path.Join(trustPath, "config.yml"))
}

func deployTrustContract(t *testing.T, e *neotest.Executor, data any) util.Uint160 {
	c := compileTrustContract(t, e)
	e.DeployContract(t, c, data)
	return c.Hash
}

// newTrustInvoker deploys initialized contract with a single authority and
// returns committee invoker.
func newTrustInvoker(t *testing.T) (*neotest.ContractInvoker, neotest.Signer) {
	e := newExecutor(t)
	authority := e.NewAccount(t)

	h := deployTrustContract(t, e, []any{[]any{authority.ScriptHash()}, int64(testDeposit)})
	return e.CommitteeInvoker(h), authority
}

func gasBalance(t *testing.T, c *neotest.ContractInvoker, acc util.Uint160) int64 {
	gasInv := c.CommitteeInvoker(c.NativeHash(t, nativenames.Gas))

	s, err := gasInv.TestInvoke(t, "balanceOf", acc)
	require.NoError(t, err)

	return s.Pop().BigInt().Int64()
}

func checkVotes(t *testing.T, c *neotest.ContractInvoker, entryID string, votes, trusted int64, pinned, pinTrusted bool) {
	s, err := c.TestInvoke(t, "getVotes", entryID)
	require.NoError(t, err)

	fields := s.Pop().Array()
	require.Len(t, fields, 4)

	v, err := fields[0].TryInteger()
	require.NoError(t, err)
	require.Equal(t, votes, v.Int64(), "votes")

	tr, err := fields[1].TryInteger()
	require.NoError(t, err)
	require.Equal(t, trusted, tr.Int64(), "trusted")

	p, err := fields[2].TryBool()
	require.NoError(t, err)
	require.Equal(t, pinned, p, "pinned")

	pt, err := fields[3].TryBool()
	require.NoError(t, err)
	require.Equal(t, pinTrusted, pt, "pin value")
}

func checkEvent(t *testing.T, aer *state.AppExecResult, name string, expected ...any) {
	for _, ev := range aer.Events {
		if ev.Name != name {
			continue
		}

		items := ev.Item.Value().([]stackitem.Item)
		require.Len(t, items, len(expected))

		for i := range expected {
			require.True(t, stackitem.Make(expected[i]).Equals(items[i]),
				"%s: unexpected parameter #%d: %v", name, i, items[i])
		}
		return
	}

	t.Fatalf("%s notification is missing", name)
}

func iteratorBytes(t *testing.T, c *neotest.ContractInvoker, method string, args ...any) [][]byte {
	s, err := c.TestInvoke(t, method, args...)
	require.NoError(t, err)

	iter := s.Pop().Value().(*storage.Iterator)

	var res [][]byte
	for _, item := range iteratorToArray(iter) {
		b, err := item.TryBytes()
		require.NoError(t, err)
		res = append(res, b)
	}
	return res
}

func TestTrust_Initialize(t *testing.T) {
	e := newExecutor(t)
	h := deployTrustContract(t, e, nil)
	c := e.CommitteeInvoker(h)

	authority := c.NewAccount(t)
	voter := c.NewAccount(t)

	t.Run("not initialized", func(t *testing.T) {
		c.InvokeFail(t, trustconst.ErrNotInitialized, "isAuthority", authority.ScriptHash())
		c.InvokeFail(t, trustconst.ErrNotInitialized, "getVerification", "example.com")
		c.InvokeFail(t, trustconst.ErrNotInitialized, "depositAmount")
		c.WithSigners(voter).InvokeFail(t, trustconst.ErrNotInitialized,
			"submitVerification", voter.ScriptHash(), "example.com", true)
		c.WithSigners(authority).InvokeFail(t, trustconst.ErrNotInitialized,
			"pinVerification", authority.ScriptHash(), "example.com", true)

		c.Invoke(t, common.Version, "version")
	})

	t.Run("not a committee", func(t *testing.T) {
		c.WithSigners(authority).InvokeFail(t, common.ErrCommitteeWitnessFailed,
			"initialize", []any{authority.ScriptHash()}, int64(testDeposit))
	})

	t.Run("invalid parameters", func(t *testing.T) {
		c.InvokeFail(t, "at least one authority must be provided",
			"initialize", []any{}, int64(testDeposit))
		c.InvokeFail(t, "incorrect length of authority script hash",
			"initialize", []any{[]byte{1, 2, 3}}, int64(testDeposit))
		c.InvokeFail(t, "deposit amount must be positive",
			"initialize", []any{authority.ScriptHash()}, int64(0))
	})

	txH := c.Invoke(t, stackitem.Null{}, "initialize", []any{authority.ScriptHash()}, int64(testDeposit))
	aer := c.CheckHalt(t, txH)
	checkEvent(t, aer, "AuthorityAdded", authority.ScriptHash())
	checkEvent(t, aer, "DepositChanged", int64(testDeposit))

	c.Invoke(t, true, "isAuthority", authority.ScriptHash())
	c.Invoke(t, testDeposit, "depositAmount")

	c.InvokeFail(t, trustconst.ErrAlreadyInitialized,
		"initialize", []any{voter.ScriptHash()}, int64(testDeposit))
	c.Invoke(t, false, "isAuthority", voter.ScriptHash())
}

func TestTrust_InitializeOnDeploy(t *testing.T) {
	c, authority := newTrustInvoker(t)

	c.Invoke(t, true, "isAuthority", authority.ScriptHash())
	c.InvokeFail(t, trustconst.ErrAlreadyInitialized,
		"initialize", []any{authority.ScriptHash()}, int64(testDeposit))
}

func TestTrust_IsAuthority(t *testing.T) {
	c, authority := newTrustInvoker(t)
	other := c.NewAccount(t)

	c.Invoke(t, true, "isAuthority", authority.ScriptHash())
	c.Invoke(t, false, "isAuthority", other.ScriptHash())
	c.Invoke(t, false, "isAuthority", []byte{1, 2, 3})

	require.Equal(t, [][]byte{authority.ScriptHash().BytesBE()}, iteratorBytes(t, c, "authorities"))
}

func TestTrust_PinVerification(t *testing.T) {
	c, authority := newTrustInvoker(t)
	cAuth := c.WithSigners(authority)

	const entryID = "example.com"

	c.Invoke(t, stackitem.Null{}, "getVerification", entryID)

	txH := cAuth.Invoke(t, stackitem.Null{}, "pinVerification", authority.ScriptHash(), entryID, true)
	checkEvent(t, c.CheckHalt(t, txH), "VerificationPinned", entryID, authority.ScriptHash(), true)
	c.Invoke(t, trustconst.ScoreMax, "getVerification", entryID)

	t.Run("not an authority", func(t *testing.T) {
		stranger := c.NewAccount(t)
		c.WithSigners(stranger).InvokeFail(t, trustconst.ErrNotAuthorized,
			"pinVerification", stranger.ScriptHash(), entryID, false)
		c.Invoke(t, trustconst.ScoreMax, "getVerification", entryID)
	})

	t.Run("no witness", func(t *testing.T) {
		c.InvokeFail(t, common.ErrWitnessFailed,
			"pinVerification", authority.ScriptHash(), entryID, false)
		c.Invoke(t, trustconst.ScoreMax, "getVerification", entryID)
	})

	t.Run("empty entry", func(t *testing.T) {
		cAuth.InvokeFail(t, trustconst.ErrEmptyEntryID,
			"pinVerification", authority.ScriptHash(), "", true)
	})

	cAuth.Invoke(t, stackitem.Null{}, "pinVerification", authority.ScriptHash(), entryID, false)
	c.Invoke(t, 0, "getVerification", entryID)
	checkVotes(t, c, entryID, 0, 0, true, false)

	require.Equal(t, [][]byte{[]byte(entryID)}, iteratorBytes(t, c, "listEntries"))
}

func TestTrust_SubmitVerification(t *testing.T) {
	c, _ := newTrustInvoker(t)

	const entryID = "example.com"

	v1, v2, v3 := c.NewAccount(t), c.NewAccount(t), c.NewAccount(t)

	balance := gasBalance(t, c, v1.ScriptHash())

	txH := c.WithSigners(v1).Invoke(t, stackitem.Null{}, "submitVerification", v1.ScriptHash(), entryID, true)
	checkEvent(t, c.CheckHalt(t, txH), "VerificationSubmitted", entryID, v1.ScriptHash(), true)
	c.Invoke(t, trustconst.ScoreMax, "getVerification", entryID)

	// voter pays network fee too
	require.Less(t, gasBalance(t, c, v1.ScriptHash()), balance-testDeposit)
	require.EqualValues(t, testDeposit, gasBalance(t, c, c.Hash))

	c.WithSigners(v2).Invoke(t, stackitem.Null{}, "submitVerification", v2.ScriptHash(), entryID, false)
	c.Invoke(t, trustconst.ScoreMax/2, "getVerification", entryID)
	checkVotes(t, c, entryID, 2, 1, false, false)

	c.WithSigners(v3).Invoke(t, stackitem.Null{}, "submitVerification", v3.ScriptHash(), entryID, true)
	c.Invoke(t, 2*trustconst.ScoreMax/3, "getVerification", entryID)

	t.Run("vote is replaced", func(t *testing.T) {
		c.WithSigners(v2).Invoke(t, stackitem.Null{}, "submitVerification", v2.ScriptHash(), entryID, true)
		c.Invoke(t, trustconst.ScoreMax, "getVerification", entryID)
		checkVotes(t, c, entryID, 3, 3, false, false)
		require.EqualValues(t, 4*testDeposit, gasBalance(t, c, c.Hash))
	})

	t.Run("no witness", func(t *testing.T) {
		c.InvokeFail(t, common.ErrOwnerWitnessFailed,
			"submitVerification", v1.ScriptHash(), entryID, false)
		c.Invoke(t, true, "getVote", entryID, v1.ScriptHash())
	})

	t.Run("empty entry", func(t *testing.T) {
		c.WithSigners(v1).InvokeFail(t, trustconst.ErrEmptyEntryID,
			"submitVerification", v1.ScriptHash(), "", false)
	})
}

func TestTrust_VoteAfterPin(t *testing.T) {
	c, authority := newTrustInvoker(t)
	voter := c.NewAccount(t)

	const entryID = "pinned.example.com"

	c.WithSigners(authority).Invoke(t, stackitem.Null{}, "pinVerification", authority.ScriptHash(), entryID, true)
	c.WithSigners(voter).Invoke(t, stackitem.Null{}, "submitVerification", voter.ScriptHash(), entryID, false)

	c.Invoke(t, trustconst.ScoreMax, "getVerification", entryID)
	checkVotes(t, c, entryID, 1, 0, true, true)
	c.Invoke(t, false, "getVote", entryID, voter.ScriptHash())
}

func TestTrust_PinAfterVotes(t *testing.T) {
	c, authority := newTrustInvoker(t)
	v1, v2 := c.NewAccount(t), c.NewAccount(t)

	const entryID = "disputed.example.com"

	c.WithSigners(v1).Invoke(t, stackitem.Null{}, "submitVerification", v1.ScriptHash(), entryID, false)
	c.WithSigners(v2).Invoke(t, stackitem.Null{}, "submitVerification", v2.ScriptHash(), entryID, false)
	c.Invoke(t, 0, "getVerification", entryID)

	c.WithSigners(authority).Invoke(t, stackitem.Null{}, "pinVerification", authority.ScriptHash(), entryID, true)
	c.Invoke(t, trustconst.ScoreMax, "getVerification", entryID)
	checkVotes(t, c, entryID, 2, 0, true, true)
}

func TestTrust_ChangeVote(t *testing.T) {
	c, _ := newTrustInvoker(t)
	voter := c.NewAccount(t)
	cVoter := c.WithSigners(voter)

	const entryID = "example.com"

	cVoter.Invoke(t, stackitem.Null{}, "submitVerification", voter.ScriptHash(), entryID, true)
	c.Invoke(t, trustconst.ScoreMax, "getVerification", entryID)

	cVoter.Invoke(t, stackitem.Null{}, "submitVerification", voter.ScriptHash(), entryID, false)
	c.Invoke(t, 0, "getVerification", entryID)
	checkVotes(t, c, entryID, 1, 0, false, false)
	c.Invoke(t, false, "getVote", entryID, voter.ScriptHash())
}

func TestTrust_Deposit(t *testing.T) {
	c, _ := newTrustInvoker(t)
	voter := c.NewAccount(t)

	const entryID = "expensive.example.com"

	t.Run("not a committee", func(t *testing.T) {
		c.WithSigners(voter).InvokeFail(t, common.ErrCommitteeWitnessFailed, "setDepositAmount", int64(1))
	})

	c.InvokeFail(t, "deposit amount must be positive", "setDepositAmount", int64(0))

	const bigDeposit = 1000_0000_0000

	txH := c.Invoke(t, stackitem.Null{}, "setDepositAmount", int64(bigDeposit))
	checkEvent(t, c.CheckHalt(t, txH), "DepositChanged", int64(bigDeposit))
	c.Invoke(t, bigDeposit, "depositAmount")

	c.WithSigners(voter).InvokeFail(t, trustconst.ErrInsufficientDeposit,
		"submitVerification", voter.ScriptHash(), entryID, true)
	c.Invoke(t, stackitem.Null{}, "getVerification", entryID)
	c.Invoke(t, stackitem.Null{}, "getVote", entryID, voter.ScriptHash())
	require.Empty(t, iteratorBytes(t, c, "listEntries"))
	require.Zero(t, gasBalance(t, c, c.Hash))
}

func TestTrust_OnNEP17Payment(t *testing.T) {
	c, _ := newTrustInvoker(t)
	voter := c.NewAccount(t)

	const entryID = "example.org"

	gasInv := c.NewInvoker(c.NativeHash(t, nativenames.Gas), voter)

	t.Run("insufficient deposit", func(t *testing.T) {
		gasInv.InvokeFail(t, trustconst.ErrInsufficientDeposit, "transfer",
			voter.ScriptHash(), c.Hash, int64(testDeposit-1), []any{entryID, true})
	})

	t.Run("invalid payload", func(t *testing.T) {
		gasInv.InvokeFail(t, "missing vote", "transfer",
			voter.ScriptHash(), c.Hash, int64(testDeposit), nil)
		gasInv.InvokeFail(t, "invalid vote", "transfer",
			voter.ScriptHash(), c.Hash, int64(testDeposit), []any{entryID})
		gasInv.InvokeFail(t, trustconst.ErrEmptyEntryID, "transfer",
			voter.ScriptHash(), c.Hash, int64(testDeposit), []any{"", true})
	})

	c.Invoke(t, stackitem.Null{}, "getVerification", entryID)

	txH := gasInv.Invoke(t, true, "transfer",
		voter.ScriptHash(), c.Hash, int64(testDeposit), []any{entryID, false})
	checkEvent(t, c.CheckHalt(t, txH), "VerificationSubmitted", entryID, voter.ScriptHash(), false)

	c.Invoke(t, 0, "getVerification", entryID)
	c.Invoke(t, false, "getVote", entryID, voter.ScriptHash())
	require.EqualValues(t, testDeposit, gasBalance(t, c, c.Hash))

	// payment with more GAS than required is accepted
	gasInv.Invoke(t, true, "transfer",
		voter.ScriptHash(), c.Hash, int64(2*testDeposit), []any{entryID, true})
	c.Invoke(t, trustconst.ScoreMax, "getVerification", entryID)
	checkVotes(t, c, entryID, 1, 1, false, false)
}

func TestTrust_AddAuthorities(t *testing.T) {
	c, authority := newTrustInvoker(t)
	newAuthority := c.NewAccount(t)
	stranger := c.NewAccount(t)

	c.WithSigners(stranger).InvokeFail(t, trustconst.ErrNotAuthorized,
		"addAuthorities", stranger.ScriptHash(), []any{stranger.ScriptHash()})
	c.InvokeFail(t, common.ErrWitnessFailed,
		"addAuthorities", authority.ScriptHash(), []any{newAuthority.ScriptHash()})
	c.WithSigners(authority).InvokeFail(t, "at least one account must be provided",
		"addAuthorities", authority.ScriptHash(), []any{})

	txH := c.WithSigners(authority).Invoke(t, stackitem.Null{},
		"addAuthorities", authority.ScriptHash(), []any{newAuthority.ScriptHash(), authority.ScriptHash()})
	aer := c.CheckHalt(t, txH)
	checkEvent(t, aer, "AuthorityAdded", newAuthority.ScriptHash())
	require.Len(t, aer.Events, 1)

	c.Invoke(t, true, "isAuthority", newAuthority.ScriptHash())
	c.Invoke(t, false, "isAuthority", stranger.ScriptHash())
	require.Len(t, iteratorBytes(t, c, "authorities"), 2)

	c.WithSigners(newAuthority).Invoke(t, stackitem.Null{},
		"pinVerification", newAuthority.ScriptHash(), "example.com", false)
	c.Invoke(t, 0, "getVerification", "example.com")
}

func TestTrust_ReadMethods(t *testing.T) {
	c, authority := newTrustInvoker(t)
	v1, v2 := c.NewAccount(t), c.NewAccount(t)

	c.WithSigners(v1).Invoke(t, stackitem.Null{}, "submitVerification", v1.ScriptHash(), "a.example", true)
	c.WithSigners(v2).Invoke(t, stackitem.Null{}, "submitVerification", v2.ScriptHash(), "a.example", false)
	c.WithSigners(authority).Invoke(t, stackitem.Null{}, "pinVerification", authority.ScriptHash(), "b.example", true)

	c.Invoke(t, true, "getVote", "a.example", v1.ScriptHash())
	c.Invoke(t, false, "getVote", "a.example", v2.ScriptHash())
	c.Invoke(t, stackitem.Null{}, "getVote", "b.example", v1.ScriptHash())

	voters := iteratorBytes(t, c, "voters", "a.example")
	require.ElementsMatch(t, [][]byte{v1.ScriptHash().BytesBE(), v2.ScriptHash().BytesBE()}, voters)
	require.Empty(t, iteratorBytes(t, c, "voters", "b.example"))

	entries := iteratorBytes(t, c, "listEntries")
	require.ElementsMatch(t, [][]byte{[]byte("a.example"), []byte("b.example")}, entries)

	checkVotes(t, c, "unknown.example", 0, 0, false, false)

	t.Run("long entry identifier", func(t *testing.T) {
		long := make([]byte, 200)
		for i := range long {
			long[i] = 'x'
		}

		c.WithSigners(v1).Invoke(t, stackitem.Null{}, "submitVerification", v1.ScriptHash(), string(long), true)
		c.Invoke(t, trustconst.ScoreMax, "getVerification", string(long))
	})
}

func TestTrust_Update(t *testing.T) {
	e := newExecutor(t)
	ctr := compileTrustContract(t, e)
	authority := e.NewAccount(t)
	e.DeployContract(t, ctr, []any{[]any{authority.ScriptHash()}, int64(testDeposit)})

	c := e.CommitteeInvoker(ctr.Hash)

	rawNEF, err := ctr.NEF.Bytes()
	require.NoError(t, err)

	rawManifest, err := json.Marshal(ctr.Manifest)
	require.NoError(t, err)

	c.WithSigners(authority).InvokeFail(t, "only committee can update contract",
		"update", rawNEF, rawManifest, nil)
	c.InvokeFail(t, common.ErrAlreadyUpdated, "update", rawNEF, rawManifest, nil)
}
