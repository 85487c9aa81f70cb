package rostersdk

import (
	"context"
	"net/http"
	"net/url"
)

// VerifyInvite reports who a token belongs to without using it up.
func (c *Client) VerifyInvite(ctx context.Context, token string) (*VerifyInviteResponse, error) {
	path := "/v1/invites/verify?token=" + url.QueryEscape(token)

	var out VerifyInviteResponse
	if err := c.doJSON(ctx, http.MethodGet, path, "", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptInvite sets the member's password from an enrollment token.
func (c *Client) AcceptInvite(ctx context.Context, req AcceptInviteRequest) (*MemberInfo, error) {
	var out MemberInfo
	if err := c.doJSON(ctx, http.MethodPost, "/v1/invites/accept", "", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestPasswordReset always succeeds for well formed input; whether a
// mail was sent is not disclosed.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/password/reset-request", "",
		PasswordResetRequest{Email: email}, nil, http.StatusAccepted)
}

// ResetPassword redeems a token from a reset mail.
func (c *Client) ResetPassword(ctx context.Context, req AcceptInviteRequest) (*MemberInfo, error) {
	var out MemberInfo
	if err := c.doJSON(ctx, http.MethodPost, "/v1/password/reset", "", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
