package quest

import (
	"errors"
	"fmt"
)

// Expected, caller-recoverable rejections. Matched with errors.Is at
// the HTTP boundary and mapped to stable 4xx error codes.
var (
	ErrNotFound        = errors.New("quest: not found")
	ErrPoolFull        = errors.New("quest: active pool is full")
	ErrIneligible      = errors.New("quest: not eligible for this quest type")
	ErrAlreadyTerminal = errors.New("quest: instance is completed or expired")
)

// SettlementError reports a reward settlement that failed after the
// status transition already committed. The instance stays completed;
// the error carries the instance id so an operator reconciliation job
// can re-settle. It is never retried automatically.
type SettlementError struct {
	QuestID string
	Err     error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("quest: settlement failed for %s: %v", e.QuestID, e.Err)
}

func (e *SettlementError) Unwrap() error { return e.Err }
