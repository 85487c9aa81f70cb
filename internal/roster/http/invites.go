package http

import (
	"errors"
	"net/http"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/service"
	"github.com/koki-kondo/mind-status-app/pkg/httpx"
	"github.com/koki-kondo/mind-status-app/pkg/rostersdk"
	"github.com/koki-kondo/mind-status-app/pkg/slogx"
)

type VerifyInviteHandler struct {
	InviteService *service.InviteService
}

// ServeHTTP godoc
//
//	@Summary		Check an invitation link
//	@Description	Tells the set-password page who a token belongs to. The token is not used up. Unknown, used and expired tokens all get the same answer.
//	@Tags			Invitations
//	@Produce		json
//	@Param			token	query		string	true	"Token from the link"
//	@Success		200		{object}	rostersdk.VerifyInviteResponse
//	@Failure		400		{object}	rostersdk.ErrorResponse	"invalid_token"
//	@Router			/v1/invites/verify [get].
func (h *VerifyInviteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	member, tok, err := h.InviteService.Validate(ctx, r.URL.Query().Get("token"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			writeInvalidToken(w)
			return
		}
		slogx.FromContext(ctx).Error("failed to verify invite", "err", err)
		writeServerError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, rostersdk.VerifyInviteResponse{
		Valid:     true,
		Email:     member.Email,
		FullName:  member.Profile.FullName,
		Purpose:   string(tok.Purpose),
		ExpiresAt: tok.ExpiresAt,
	})
}

// ConsumeHandler redeems one kind of token. It serves both invitation
// acceptance and password reset; a token of the other purpose is treated as
// invalid.
type ConsumeHandler struct {
	InviteService *service.InviteService
	Purpose       domain.InvitePurpose
}

// ServeHTTP godoc
//
//	@Summary		Accept an invitation
//	@Description	Sets the password of a pending member and activates them. Any token problem yields the same invalid_token answer.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		rostersdk.AcceptInviteRequest	true	"Token and new password"
//	@Success		200		{object}	rostersdk.MemberInfo
//	@Failure		400		{object}	rostersdk.ErrorResponse	"invalid_token or weak_password"
//	@Router			/v1/invites/accept [post]
//	@Router			/v1/password/reset [post].
func (h *ConsumeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req rostersdk.AcceptInviteRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	if req.Token == "" {
		writeInvalidToken(w)
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, rostersdk.ErrorCodeInvalidRequest, "password is required")
		return
	}

	// 1. Purpose check, the token is not used up here
	_, tok, err := h.InviteService.Validate(ctx, req.Token)
	if err == nil && tok.Purpose != h.Purpose {
		log.Warn("token used on the wrong endpoint", "purpose", tok.Purpose, "token_id", tok.ID)
		err = service.ErrInvalidToken
	}

	// 2. Redeem
	var member domain.Member
	if err == nil {
		member, err = h.InviteService.Consume(ctx, req.Token, req.Password)
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			writeInvalidToken(w)
		case errors.Is(err, service.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, rostersdk.ErrorCodeWeakPassword, err.Error())
		default:
			log.Error("failed to consume token", "err", err)
			writeServerError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, memberInfo(member))
}
