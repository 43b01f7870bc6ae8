package trust

import (
	"errors"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/stretchr/testify/require"
)

type testInv struct {
	err error
	res *result.Invoke
}

func (t *testInv) Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error) {
	return t.res, t.err
}

func (t *testInv) CallAndExpandIterator(contract util.Uint160, operation string, i int, params ...any) (*result.Invoke, error) {
	return t.res, t.err
}
func (t *testInv) TraverseIterator(uuid.UUID, *result.Iterator, int) ([]stackitem.Item, error) {
	return nil, nil
}
func (t *testInv) TerminateSession(uuid.UUID) error {
	return nil
}

func halt(items ...stackitem.Item) *result.Invoke {
	return &result.Invoke{
		State: vmstate.Halt.String(),
		Stack: items,
	}
}

func TestScoreFromItem(t *testing.T) {
	for _, tc := range []struct {
		name string
		item stackitem.Item
		exp  *big.Rat
	}{
		{"trusted", stackitem.Make(ScoreMax), big.NewRat(1, 1)},
		{"distrusted", stackitem.Make(0), new(big.Rat)},
		{"half", stackitem.Make(ScoreMax / 2), big.NewRat(1, 2)},
		{"third", stackitem.Make(ScoreMax / 3), big.NewRat(ScoreMax/3, ScoreMax)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, err := ScoreFromItem(tc.item)
			require.NoError(t, err)
			require.Zero(t, tc.exp.Cmp(r), "expected %s, got %s", tc.exp, r)
		})
	}

	_, err := ScoreFromItem(stackitem.Null{})
	require.ErrorIs(t, err, ErrNoData)

	_, err = ScoreFromItem(stackitem.Make(ScoreMax + 1))
	require.Error(t, err)

	_, err = ScoreFromItem(stackitem.Make(-1))
	require.Error(t, err)

	_, err = ScoreFromItem(stackitem.NewArray(nil))
	require.Error(t, err)
}

func TestEntrySummaryScore(t *testing.T) {
	s := TrustEntrySummary{Votes: big.NewInt(3), Trusted: big.NewInt(2)}
	r, err := s.Score()
	require.NoError(t, err)
	require.Equal(t, "2/3", r.String())
	require.Equal(t, "0.66666667", FormatScore(r))

	r, err = s.TruncatedScore()
	require.NoError(t, err)
	require.Equal(t, "0.66666666", FormatScore(r))

	s.Pinned = true
	r, err = s.Score()
	require.NoError(t, err)
	require.Zero(t, r.Sign())

	s.PinTrusted = true
	r, err = s.Score()
	require.NoError(t, err)
	require.Equal(t, "1.00000000", FormatScore(r))

	r, err = s.TruncatedScore()
	require.NoError(t, err)
	require.Equal(t, "1.00000000", FormatScore(r))

	_, err = new(TrustEntrySummary).Score()
	require.ErrorIs(t, err, ErrNoData)
	_, err = new(TrustEntrySummary).TruncatedScore()
	require.ErrorIs(t, err, ErrNoData)
}

func TestReader(t *testing.T) {
	ti := new(testInv)
	r := NewReader(ti, util.Uint160{1, 2, 3})

	ti.err = errors.New("")
	_, err := r.Score("example.com")
	require.Error(t, err)
	_, err = r.GetVotes("example.com")
	require.Error(t, err)

	ti.err = nil
	ti.res = halt(stackitem.Null{})
	_, err = r.Score("example.com")
	require.ErrorIs(t, err, ErrNoData)

	ti.res = halt(stackitem.Make(ScoreMax / 2))
	score, err := r.Score("example.com")
	require.NoError(t, err)
	require.Equal(t, "0.50000000", FormatScore(score))

	ti.res = halt(stackitem.NewStruct([]stackitem.Item{
		stackitem.Make(4),
		stackitem.Make(1),
		stackitem.NewBool(false),
		stackitem.NewBool(false),
	}))
	summary, err := r.GetVotes("example.com")
	require.NoError(t, err)
	require.EqualValues(t, 4, summary.Votes.Int64())
	require.EqualValues(t, 1, summary.Trusted.Int64())
	require.False(t, summary.Pinned)

	ti.res = halt(stackitem.NewStruct([]stackitem.Item{stackitem.Make(4)}))
	_, err = r.GetVotes("example.com")
	require.Error(t, err)

	ti.res = halt(stackitem.NewBool(true))
	ok, err := r.IsAuthority(util.Uint160{4, 5, 6})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEventsFromApplicationLog(t *testing.T) {
	voter := util.Uint160{1, 2, 3}

	log := &result.ApplicationLog{
		Executions: []state.Execution{{
			Events: []state.NotificationEvent{
				{
					Name: "Transfer",
					Item: stackitem.NewArray([]stackitem.Item{stackitem.Make(1)}),
				},
				{
					Name: "VerificationSubmitted",
					Item: stackitem.NewArray([]stackitem.Item{
						stackitem.Make("example.com"),
						stackitem.Make(voter),
						stackitem.Make(true),
					}),
				},
				{
					Name: "DepositChanged",
					Item: stackitem.NewArray([]stackitem.Item{stackitem.Make(100)}),
				},
			},
		}},
	}

	submitted, err := VerificationSubmittedEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Len(t, submitted, 1)
	require.Equal(t, "example.com", submitted[0].EntryID)
	require.Equal(t, voter, submitted[0].Voter)
	require.True(t, submitted[0].Trusted)

	deposit, err := DepositChangedEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Len(t, deposit, 1)
	require.EqualValues(t, 100, deposit[0].Amount.Int64())

	pinned, err := VerificationPinnedEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Empty(t, pinned)

	_, err = AuthorityAddedEventsFromApplicationLog(nil)
	require.Error(t, err)

	log.Executions[0].Events[1].Item = stackitem.NewArray([]stackitem.Item{stackitem.Make("example.com")})
	_, err = VerificationSubmittedEventsFromApplicationLog(log)
	require.Error(t, err)
}
