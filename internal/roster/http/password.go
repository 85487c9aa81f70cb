package http

import (
	"errors"
	"net/http"

	"github.com/koki-kondo/mind-status-app/internal/roster/service"
	"github.com/koki-kondo/mind-status-app/pkg/httpx"
	"github.com/koki-kondo/mind-status-app/pkg/rostersdk"
	"github.com/koki-kondo/mind-status-app/pkg/slogx"
)

const resetRequestedMessage = "If the address belongs to an active account, a reset link has been sent"

type ResetRequestHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP godoc
//
//	@Summary		Request a password reset
//	@Description	Mails a reset link to every active account using the address. The answer is the same whether or not an account exists.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			request	body		rostersdk.PasswordResetRequest	true	"Email"
//	@Success		202		{object}	rostersdk.MessageResponse
//	@Failure		400		{object}	rostersdk.ErrorResponse
//	@Router			/v1/password/reset-request [post].
func (h *ResetRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rostersdk.PasswordResetRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	h.AccountService.RequestPasswordReset(r.Context(), req.Email)
	httpx.WriteJSON(w, http.StatusAccepted, rostersdk.MessageResponse{Message: resetRequestedMessage})
}

type ChangePasswordHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP godoc
//
//	@Summary		Change password
//	@Description	Replaces the signed-in member's password.
//	@Tags			Password
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	rostersdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		204
//	@Failure		400	{object}	rostersdk.ErrorResponse	"weak_password"
//	@Failure		401	{object}	rostersdk.ErrorResponse	"invalid_credentials"
//	@Router			/v1/password/change [post].
func (h *ChangePasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req rostersdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	err := h.AccountService.ChangePassword(ctx, httpx.MemberIDFromContext(ctx), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, rostersdk.ErrorCodeInvalidCredentials, "Current password is incorrect")
		case errors.Is(err, service.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, rostersdk.ErrorCodeWeakPassword, err.Error())
		default:
			slogx.FromContext(ctx).Error("failed to change password", "err", err)
			writeServerError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type MeHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP godoc
//
//	@Summary		Current member
//	@Description	Returns the signed-in member.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	rostersdk.MemberInfo
//	@Failure		401	{object}	rostersdk.ErrorResponse
//	@Router			/v1/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	member, err := h.AccountService.GetMember(ctx, httpx.MemberIDFromContext(ctx))
	if err != nil {
		if errors.Is(err, service.ErrMemberNotFound) {
			writeError(w, http.StatusUnauthorized, rostersdk.ErrorCodeInvalidToken, "Member no longer exists")
			return
		}
		slogx.FromContext(ctx).Warn("failed to load member", "err", err)
		writeServerError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, memberInfo(member))
}
