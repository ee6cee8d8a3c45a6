package domain

// ClaimState is the answer the provisioning ledger gives to a claim on a business key.
type ClaimState int

const (
	// ClaimAcquired: the caller holds the key until its lease runs out.
	ClaimAcquired ClaimState = iota
	// ClaimHeld: another delivery holds a live lease on the key.
	ClaimHeld
	// ClaimComplete: the key finished provisioning earlier.
	ClaimComplete
)

// LedgerClaim is the result of claiming a business key. UserID is the identity recorded for
// the key: the finished one when complete, or the one an interrupted attempt created when
// acquired. It is empty when nothing was recorded.
type LedgerClaim struct {
	State  ClaimState
	UserID string
}
