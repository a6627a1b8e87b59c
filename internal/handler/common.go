package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

// writeError renders err in the error envelope. Anything that is not an
// *errors.AppError is reported as an internal error without its message.
func writeError(w http.ResponseWriter, err error) {
	appErr := errors.AsAppError(err)

	w.Header().Set("Content-Type", "application/json")

	statusCode := appErr.HTTPStatus()
	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error())
	}
	return nil
}

func pathID(r *http.Request, code errors.ErrorCode) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewAppErrorf(code, "invalid id %q", raw)
	}
	return id, nil
}

// pageFromQuery reads ?offset= and ?limit=. Missing values are left zero so
// the service applies its defaults.
func pageFromQuery(r *http.Request) (domain.Page, error) {
	var page domain.Page
	q := r.URL.Query()

	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return page, errors.ErrInvalidPage.WithDetails("offset must be an integer")
		}
		page.Offset = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return page, errors.ErrInvalidPage.WithDetails("limit must be an integer")
		}
		page.Limit = v
	}
	return page, nil
}
