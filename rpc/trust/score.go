package trust

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// ErrNoData is returned for entries nobody has rated yet.
var ErrNoData = errors.New("no data")

var scoreDenominator = big.NewInt(ScoreMax)

// ScoreFromItem converts the result of getVerification method into a rational
// number in [0, 1] range. Null item yields ErrNoData.
func ScoreFromItem(item stackitem.Item) (*big.Rat, error) {
	if item == nil || item.Type() == stackitem.AnyT {
		return nil, ErrNoData
	}

	n, err := item.TryInteger()
	if err != nil {
		return nil, fmt.Errorf("invalid score: %w", err)
	}

	if n.Sign() < 0 || n.Cmp(scoreDenominator) > 0 {
		return nil, fmt.Errorf("score %s is out of range", n)
	}

	return new(big.Rat).SetFrac(n, scoreDenominator), nil
}

// Score invokes `getVerification` method of contract and converts its result
// with ScoreFromItem.
func (c *ContractReader) Score(entryID string) (*big.Rat, error) {
	item, err := c.GetVerification(entryID)
	if err != nil {
		return nil, err
	}

	return ScoreFromItem(item)
}

// Score calculates the exact trust score of the entry. Unlike the on-chain
// score it is not truncated to ScoreDecimals.
func (res *TrustEntrySummary) Score() (*big.Rat, error) {
	if res.Pinned {
		if res.PinTrusted {
			return big.NewRat(1, 1), nil
		}
		return new(big.Rat), nil
	}

	if res.Votes == nil || res.Votes.Sign() == 0 {
		return nil, ErrNoData
	}

	trusted := res.Trusted
	if trusted == nil {
		trusted = new(big.Int)
	}

	return new(big.Rat).SetFrac(trusted, res.Votes), nil
}

// TruncatedScore is Score truncated to ScoreDecimals the same way
// `getVerification` method does it.
func (res *TrustEntrySummary) TruncatedScore() (*big.Rat, error) {
	r, err := res.Score()
	if err != nil {
		return nil, err
	}

	n := new(big.Int).Mul(r.Num(), scoreDenominator)
	n.Quo(n, r.Denom())

	return new(big.Rat).SetFrac(n, scoreDenominator), nil
}

// FormatScore returns decimal representation of the score with ScoreDecimals
// digits after the point.
func FormatScore(r *big.Rat) string {
	return r.FloatString(ScoreDecimals)
}
