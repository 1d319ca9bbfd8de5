package handler

import (
	"net/http"

	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/auth"
	"github.com/sakif/music-server/internal/service"
)

// UserHandler serves GET /api/users: everyone except the caller, for the
// "friends" sidebar.
type UserHandler struct {
	users *service.UserService
	errs  *Errors
}

func NewUserHandler(users *service.UserService, errs *Errors) *UserHandler {
	return &UserHandler{users: users, errs: errs}
}

func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.errs.Write(w, r, apperror.Unauthorized("Unauthorized - you must be logged in"))
		return
	}

	users, err := h.users.ListOthers(r.Context(), userID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
