package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
	"bank-cards/internal/service"
)

type TransferHandler struct {
	transferService *service.TransferService
}

func NewTransferHandler(transferService *service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

// TransferRequest accepts the amount as a JSON string or number.
type TransferRequest struct {
	FromCardID int64       `json:"from_card_id"`
	ToCardID   int64       `json:"to_card_id"`
	Amount     json.Number `json:"amount"`
}

type TransferResponse struct {
	TransferID  string    `json:"transfer_id"`
	FromCardID  int64     `json:"from_card_id"`
	ToCardID    int64     `json:"to_card_id"`
	Amount      string    `json:"amount"`
	FromCard    string    `json:"from_card"`
	ToCard      string    `json:"to_card"`
	CompletedAt time.Time `json:"completed_at"`
	Message     string    `json:"message"`
}

func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		writeError(w, errors.ErrInvalidAmount.WithDetails("invalid amount format"))
		return
	}

	confirmation, err := h.transferService.Transfer(r.Context(), PrincipalFrom(r.Context()), domain.TransferRequest{
		FromCardID: req.FromCardID,
		ToCardID:   req.ToCardID,
		Amount:     amount,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TransferResponse{
		TransferID:  confirmation.ID.String(),
		FromCardID:  confirmation.FromCardID,
		ToCardID:    confirmation.ToCardID,
		Amount:      confirmation.Amount.StringFixed(2),
		FromCard:    confirmation.FromMasked,
		ToCard:      confirmation.ToMasked,
		CompletedAt: confirmation.CompletedAt,
		Message:     confirmation.Message(),
	})
}
