package rostersdk

import (
	"context"
	"net/http"
)

// RegistrationTokenHeader carries the operator token that gates
// organization registration.
const RegistrationTokenHeader = "X-Registration-Token"

func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", "", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterOrganization creates an organization. registrationToken may be
// empty when the server runs with open registration.
func (c *Client) RegisterOrganization(
	ctx context.Context,
	registrationToken string,
	req RegisterOrganizationRequest,
) (*RegisterOrganizationResponse, error) {
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{"Content-Type": "application/json"}
	if registrationToken != "" {
		headers[RegistrationTokenHeader] = registrationToken
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/organizations", "", body, headers)
	if err != nil {
		return nil, err
	}

	var out RegisterOrganizationResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ChangePassword(ctx context.Context, accessToken string, req ChangePasswordRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/password/change", accessToken, req, nil, http.StatusNoContent)
}

// Me returns the member the access token belongs to.
func (c *Client) Me(ctx context.Context, accessToken string) (*MemberInfo, error) {
	var out MemberInfo
	if err := c.doJSON(ctx, http.MethodGet, "/v1/me", accessToken, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
