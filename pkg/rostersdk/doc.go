/*
Package rostersdk is the client side of the roster service HTTP API.

The request and response types in this package are the wire format; the
server encodes exactly these structs.

	client := rostersdk.NewClient("https://roster.example.com")

	// Sign in as an organization admin
	login, err := client.Login(ctx, rostersdk.LoginRequest{Email: email, Password: pw})

	// Upload a roster, the report lists every rejected row
	report, err := client.ImportRoster(ctx, login.AccessToken, "roster.xlsx", file)

Members finish enrollment with the token from their invitation link:

	info, err := client.VerifyInvite(ctx, token)
	err = client.AcceptInvite(ctx, rostersdk.AcceptInviteRequest{Token: token, Password: pw})

# Errors

Every non-2xx response is returned as *APIError carrying the HTTP status
and the error code from the body:

	var apiErr *rostersdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == rostersdk.ErrorCodeInvalidToken {
		// link expired or already used
	}
*/
package rostersdk
