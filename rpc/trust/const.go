package trust

import (
	"github.com/nspcc-dev/trust-registry/contracts/trust/trustconst"
)

const (
	// ScoreDecimals is the number of decimal places of the on-chain score.
	ScoreDecimals = trustconst.ScoreDecimals
	// ScoreMax is the on-chain representation of 1.0 score.
	ScoreMax = trustconst.ScoreMax

	// ErrorNotInitialized is returned before the authority set is configured.
	ErrorNotInitialized = trustconst.ErrNotInitialized
	// ErrorNotAuthorized is returned when a non-authority pins an entry.
	ErrorNotAuthorized = trustconst.ErrNotAuthorized
	// ErrorInsufficientDeposit is returned when a vote is not paid for.
	ErrorInsufficientDeposit = trustconst.ErrInsufficientDeposit
)
