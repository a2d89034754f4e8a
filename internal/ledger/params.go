package ledger

import "math/big"

// Hard safety limits. Template setters and validateLoanParams clamp every
// loan term against these regardless of what the template allows.
var safeMinAmount = big.NewInt(100)

const (
	safeMinDuration    = int64(daySeconds)                 // 1 day
	safeMaxDuration    = int64(51 * yearDays * daySeconds) // 51 years
	safeMinGracePeriod = int64(3 * daySeconds)
	safeMaxGracePeriod = int64(365 * daySeconds)
	safeMaxAPR         = uint64(100_000) // 1000% in basis points

	// toleranceBps is the fixed allowance for payment-timing slack when
	// judging installment delinquency.
	toleranceBps = uint64(2_000)
)
