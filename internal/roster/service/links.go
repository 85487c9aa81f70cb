package service

import (
	"net/url"
	"strings"
)

// Frontend paths that accept a raw token in the query string.
const (
	SetPasswordPath   = "/set-password"
	ResetPasswordPath = "/reset-password"
)

func tokenLink(frontendURL, path, raw string) string {
	return strings.TrimRight(frontendURL, "/") + path + "?token=" + url.QueryEscape(raw)
}
