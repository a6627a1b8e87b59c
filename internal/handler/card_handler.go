package handler

import (
	"net/http"

	"bank-cards/internal/errors"
	"bank-cards/internal/service"
)

type CardHandler struct {
	cardService *service.CardService
}

func NewCardHandler(cardService *service.CardService) *CardHandler {
	return &CardHandler{
		cardService: cardService,
	}
}

type CreateCardRequest struct {
	UserID      int64  `json:"user_id"`
	CardNumber  string `json:"card_number"`
	OwnerName   string `json:"owner_name"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
}

func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	card, err := h.cardService.CreateCard(r.Context(), PrincipalFrom(r.Context()), service.CreateCardRequest{
		UserID:      req.UserID,
		CardNumber:  req.CardNumber,
		OwnerName:   req.OwnerName,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, card)
}

func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, errors.InvalidCardID)
	if err != nil {
		writeError(w, err)
		return
	}

	card, err := h.cardService.GetCard(r.Context(), PrincipalFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *CardHandler) ListMyCards(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cards, err := h.cardService.ListMyCards(r.Context(), PrincipalFrom(r.Context()), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *CardHandler) ListAllCards(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cards, err := h.cardService.ListAllCards(r.Context(), PrincipalFrom(r.Context()), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *CardHandler) BlockCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, errors.InvalidCardID)
	if err != nil {
		writeError(w, err)
		return
	}

	card, err := h.cardService.BlockCard(r.Context(), PrincipalFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, errors.InvalidCardID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.cardService.DeleteCard(r.Context(), PrincipalFrom(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
