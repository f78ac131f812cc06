package domain

// CommitState tracks how far a commit attempt got.
type CommitState string

const (
	CommitClaimed          CommitState = "claimed"
	CommitInventoryApplied CommitState = "inventory_applied"
	CommitCompleted        CommitState = "completed"
)

// CommitRecord is kept per request id so a retry can tell "append the
// ledger entry only" apart from "run the whole sale again".
type CommitRecord struct {
	RequestID string      `json:"request_id"`
	State     CommitState `json:"state"`
	NewStock  int         `json:"new_stock"`
	Entry     LedgerEntry `json:"entry"`
}
