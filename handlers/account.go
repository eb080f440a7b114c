package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/models"
	"github.com/ray-remotestate/preorder/utils"
)

type authResponse struct {
	Account     *models.Account `json:"account"`
	AccessToken string          `json:"accessToken"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Name     string      `json:"name"`
		Email    string      `json:"email"`
		Password string      `json:"password"`
		Role     models.Role `json:"role"`
	}

	var req request
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Role == "" {
		req.Role = models.RoleConsumer
	}
	switch {
	case req.Name == "" || req.Email == "" || req.Password == "":
		respondError(w, r, apperr.Invalid("", "all fields are required"))
		return
	case !strings.Contains(req.Email, "@"):
		respondError(w, r, apperr.Invalid("email", "must be a valid email address"))
		return
	case len(req.Password) < 6:
		respondError(w, r, apperr.Invalid("password", "must be at least 6 characters"))
		return
	case !req.Role.IsValid():
		respondError(w, r, apperr.Invalid("role", "must be consumer or vendor"))
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	account := &models.Account{
		ID:        uuid.New(),
		Name:      req.Name,
		Email:     strings.ToLower(req.Email),
		Password:  hashedPassword,
		Role:      req.Role,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Accounts.Create(r.Context(), account); err != nil {
		respondError(w, r, err)
		return
	}

	token, err := utils.GenerateAccessToken(h.JWTSecret, account.ID, account.Name, account.Role)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logrus.WithFields(logrus.Fields{"account_id": account.ID, "role": account.Role}).Info("account registered")
	respondJSON(w, http.StatusOK, authResponse{Account: account, AccessToken: token})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req request
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if req.Email == "" || req.Password == "" {
		respondError(w, r, apperr.Invalid("", "email and password required"))
		return
	}

	account, err := h.Accounts.Authenticate(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnauthorized {
			respondJSON(w, http.StatusUnauthorized, messageResponse{Message: "invalid credentials"})
			return
		}
		respondError(w, r, err)
		return
	}

	token, err := utils.GenerateAccessToken(h.JWTSecret, account.ID, account.Name, account.Role)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse{Account: account, AccessToken: token})
}

func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.Menu.Vendors(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if vendors == nil {
		vendors = []models.Vendor{}
	}
	respondJSON(w, http.StatusOK, vendors)
}
