package rostersdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_Login(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/auth/login", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "Passw0rdA" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorCodeInvalidCredentials, ErrorDescription: "nope"})
			return
		}
		_ = json.NewEncoder(w).Encode(LoginResponse{AccessToken: "jwt", TokenType: "Bearer", ExpiresIn: 60})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL + "/")
	resp, err := c.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "Passw0rdA"})
	require.NoError(t, err)
	require.Equal(t, "jwt", resp.AccessToken)

	_, err = c.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "bad"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, ErrorCodeInvalidCredentials, apiErr.Code)
}

func TestClient_ImportRoster(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		body, _ := io.ReadAll(f)
		require.Equal(t, "roster.csv", hdr.Filename)
		require.Equal(t, "email\n", string(body))

		email := "a@x.com"
		_ = json.NewEncoder(w).Encode(ImportReport{
			ErrorCount: 1,
			Errors:     []RowError{{Row: 2, Email: &email, Error: "duplicate"}},
		})
	}))
	t.Cleanup(srv.Close)

	report, err := NewClient(srv.URL).ImportRoster(context.Background(), "tok", "roster.csv", strings.NewReader("email\n"))
	require.NoError(t, err)
	require.Equal(t, 1, report.ErrorCount)
	require.Equal(t, "a@x.com", *report.Errors[0].Email)
}

func TestClient_ImportRosterInterrupted(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(ImportReport{SuccessCount: 3, Errors: []RowError{}, Interrupted: true})
	}))
	t.Cleanup(srv.Close)

	report, err := NewClient(srv.URL).ImportRoster(context.Background(), "tok", "roster.csv", strings.NewReader("email\n"))
	require.ErrorIs(t, err, ErrImportInterrupted)
	require.NotNil(t, report)
	require.Equal(t, 3, report.SuccessCount)
}

func TestClient_NonJSONError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	err := NewClient(srv.URL).RequestPasswordReset(context.Background(), "a@x.com")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, ErrorCodeServerError, apiErr.Code)
}

func TestRegisterOrganizationRequest_Validate(t *testing.T) {
	t.Parallel()

	valid := RegisterOrganizationRequest{
		OrganizationName: "North High",
		Kind:             "school",
		AdminEmail:       "admin@north.example",
		AdminName:        "Principal",
		AdminPassword:    "Passw0rdA",
	}
	require.Nil(t, valid.Validate())

	bad := RegisterOrganizationRequest{Kind: "hospital", AdminEmail: "nope"}
	errs := bad.Validate()
	require.Equal(t, map[string]string{
		"organization_name": "required",
		"kind":              "must be SCHOOL or COMPANY",
		"admin_email":       "must be an email address",
		"admin_name":        "required",
		"admin_password":    "required",
	}, errs)
}
