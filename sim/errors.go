package sim

import "errors"

// Contract violations by plugged-in components. These indicate a programming
// error in a predictor, policy, or mechanism and must never be absorbed into metrics.
var (
	ErrMissingPCTR        = errors.New("missing pctr for candidate")
	ErrMissingScore       = errors.New("missing score for candidate")
	ErrUnknownCandidate   = errors.New("score for ad not present in impression")
	ErrDuplicateCandidate = errors.New("duplicate ad id in impression")
	ErrWinnerMismatch     = errors.New("auction winner differs from ranked top candidate")
)

// ErrInvalidBid marks a candidate whose bid is negative or not finite.
var ErrInvalidBid = errors.New("bid must be finite and non-negative")
