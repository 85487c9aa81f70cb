package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/service"
	"github.com/koki-kondo/mind-status-app/pkg/httpx"
	"github.com/koki-kondo/mind-status-app/pkg/rostersdk"
	"github.com/koki-kondo/mind-status-app/pkg/slogx"
)

type LoginHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Sign in
//	@Description	Exchanges email and password of an active member for a bearer token. Pending members cannot sign in.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		rostersdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	rostersdk.LoginResponse
//	@Failure		400		{object}	rostersdk.ErrorResponse
//	@Failure		401		{object}	rostersdk.ErrorResponse	"invalid_credentials"
//	@Failure		429		{object}	rostersdk.ErrorResponse
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req rostersdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	session, err := h.AuthService.Login(ctx, req.Email, req.Password, req.OrganizationID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, rostersdk.ErrorCodeInvalidCredentials, "Email or password is incorrect")
			return
		}
		slogx.FromContext(ctx).Error("login failed", "err", err)
		writeServerError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, rostersdk.LoginResponse{
		AccessToken: session.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(session.ExpiresAt).Seconds()),
		Member:      memberInfo(session.Member),
	})
}
