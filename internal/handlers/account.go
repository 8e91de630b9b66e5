package handlers

import (
	"net/http"

	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

// AccountHandler serves the signed-in user's own profile.
type AccountHandler struct {
	users    UserService
	ipConfig *pkghttp.IPConfig
}

func NewAccountHandler(users UserService, ipConfig *pkghttp.IPConfig) *AccountHandler {
	return &AccountHandler{users: users, ipConfig: ipConfig}
}

// Me returns the current user's account
// @Router /account [get]
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}

	user, err := h.users.Get(r.Context(), actor, actor.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userModelToResponse(user))
}
