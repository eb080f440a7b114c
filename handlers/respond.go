package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/authz"
	"github.com/ray-remotestate/preorder/middlewares"
	"github.com/ray-remotestate/preorder/payment"
)

const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := apperr.PublicMessage(err)

	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindStateConflict, apperr.KindTrustBoundary:
		status = http.StatusBadRequest
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	default:
		if errors.Is(err, payment.ErrGatewayUnavailable) {
			status = http.StatusServiceUnavailable
			message = payment.ErrGatewayUnavailable.Error()
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"request_id": middlewares.RequestID(r.Context()),
			"path":       r.URL.Path,
		}).Error("request failed")
	}

	respondJSON(w, status, messageResponse{Message: message})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Invalid("", "invalid request body")
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, apperr.Invalid(name, "must be a valid id")
	}
	return id, nil
}

// principal is only called behind AuthMiddleware.
func principal(r *http.Request) (*authz.Principal, error) {
	p, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		return nil, apperr.ErrUnauthorized
	}
	return p, nil
}
