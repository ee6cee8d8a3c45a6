package dynamo

// DynamoDB attribute names used in key conditions and update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldPK          = "PK"
	fieldSK          = "SK"
	fieldUserID      = "userId"
	fieldEmail       = "email"
	fieldBusinessKey = "businessKey"
	fieldEventID     = "eventId"
	fieldCompletedAt = "completedAt"
	fieldExpiresAt   = "expiresAt"
	fieldClaimToken  = "claimToken"
	fieldClaimUntil  = "claimedUntil"
)

// consentPrefix namespaces consent items in the single-table consent store.
const consentPrefix = "CONSENT#"
