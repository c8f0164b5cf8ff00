package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/exambuilder/internal/model"
)

type createUserRequest struct {
	Username    string         `json:"username" validate:"required,alphanum,min=3,max=32"`
	DisplayName string         `json:"display_name" validate:"max=100"`
	Password    string         `json:"password" validate:"required,min=8"`
	Role        model.UserRole `json:"role" validate:"omitempty,oneof=editor admin"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		writeErr(w, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		writeErr(w, err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeErr(w, err)
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}
	id, err := h.store.CreateUser(model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	user, err := h.store.GetUserByID(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID")
		return
	}
	var req setActiveRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if self := model.UserFromContext(r.Context()); self != nil && self.ID == id && !*req.Active {
		writeError(w, http.StatusBadRequest, "cannot disable your own account")
		return
	}

	user, err := h.store.GetUserByID(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err := h.store.SetUserActive(id, *req.Active); err != nil {
		writeErr(w, err)
		return
	}
	user.Active = *req.Active
	writeJSON(w, http.StatusOK, user)
}
