package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string              `json:"error"`
	Kind  contracts.ErrorKind `json:"kind,omitempty"`
}

// respondJSON encodes data before writing the status, so an encoding
// failure still reaches the client as a 500 with a body.
func respondJSON(w http.ResponseWriter, log *logger.Logger, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		log.WithError(err).WithField("status", status).Error("Failed to encode response")

		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: "Failed to encode response"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.WithError(err).Debug("Failed to write response")
	}
}

func respondError(w http.ResponseWriter, log *logger.Logger, status int, message string) {
	respondJSON(w, log, status, ErrorResponse{Error: message})
}

// respondBusinessError maps a valuation failure to its HTTP status
func respondBusinessError(w http.ResponseWriter, log *logger.Logger, err error) {
	var bizErr *contracts.Error
	if !errors.As(err, &bizErr) {
		log.WithError(err).Error("Unexpected handler error")
		respondError(w, log, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, log, StatusFor(bizErr.Kind), ErrorResponse{
		Error: bizErr.Error(),
		Kind:  bizErr.Kind,
	})
}

// StatusFor returns the HTTP status of an error kind
func StatusFor(kind contracts.ErrorKind) int {
	switch kind {
	case contracts.KindNoSuchStock, contracts.KindNoDataForStock:
		return http.StatusNotFound
	case contracts.KindDividendZero, contracts.KindResultOutOfRange:
		return http.StatusUnprocessableEntity
	case contracts.KindDuplicateStock:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// priceParam reads a positive integer price from the query string
func priceParam(r *http.Request) (int, error) {
	price, err := strconv.Atoi(r.URL.Query().Get("price"))
	if err != nil {
		return 0, contracts.NewError(contracts.KindInvalidPrice)
	}
	return price, nil
}
