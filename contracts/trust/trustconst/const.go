package trustconst

const (
	// ScoreDecimals is the number of decimal digits in the fixed-point trust
	// score returned by the contract.
	ScoreDecimals = 8
	// ScoreMax is the fixed-point representation of the 1.0 trust score.
	ScoreMax = 1_0000_0000

	// ErrNotInitialized is returned on any call made before the authority set
	// is initialized.
	ErrNotInitialized = "contract is not initialized"
	// ErrAlreadyInitialized is returned on the repeated initialization.
	ErrAlreadyInitialized = "contract is already initialized"
	// ErrNotAuthorized is returned when an override or authority management
	// is requested by an account outside the authority set.
	ErrNotAuthorized = "caller is not an authority"
	// ErrInsufficientDeposit is returned if the voter has not paid the vote
	// deposit.
	ErrInsufficientDeposit = "insufficient deposit"
	// ErrEmptyEntryID is returned on attempt to rate an entry with an empty
	// identifier.
	ErrEmptyEntryID = "entry ID must not be empty"
)
