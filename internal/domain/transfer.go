package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransferRequest struct {
	FromCardID int64
	ToCardID   int64
	Amount     decimal.Decimal
}

// TransferConfirmation describes a committed transfer. It only ever carries
// masked card numbers.
type TransferConfirmation struct {
	ID          uuid.UUID       `json:"transfer_id"`
	FromCardID  int64           `json:"from_card_id"`
	ToCardID    int64           `json:"to_card_id"`
	Amount      decimal.Decimal `json:"amount"`
	FromMasked  string          `json:"from_card"`
	ToMasked    string          `json:"to_card"`
	CompletedAt time.Time       `json:"completed_at"`
}

func (c *TransferConfirmation) Message() string {
	return fmt.Sprintf("Transfer of %s completed from card %s to card %s",
		c.Amount.StringFixed(2), c.FromMasked, c.ToMasked)
}
