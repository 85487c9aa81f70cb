package rostersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// ImportRoster uploads a CSV or XLSX roster as the signed-in admin.
func (c *Client) ImportRoster(
	ctx context.Context,
	accessToken, filename string,
	file io.Reader,
) (*ImportReport, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/members/import", accessToken, &buf,
		map[string]string{"Content-Type": mw.FormDataContentType()})
	if err != nil {
		return nil, err
	}

	// An interrupted import still reports the rows it committed.
	if resp.StatusCode == http.StatusServiceUnavailable {
		var report ImportReport
		if err := decodeJSON(resp, &report, http.StatusServiceUnavailable); err == nil && report.Interrupted {
			return &report, ErrImportInterrupted
		}
		return nil, &APIError{
			StatusCode:  http.StatusServiceUnavailable,
			Code:        ErrorCodeServerError,
			Description: "service unavailable",
		}
	}

	var report ImportReport
	if err := decodeJSON(resp, &report, http.StatusOK); err != nil {
		return nil, err
	}
	return &report, nil
}

// DownloadTemplate fetches an empty roster for the admin's organization
// kind. format is "xlsx" or "csv".
func (c *Client) DownloadTemplate(ctx context.Context, accessToken, format string) ([]byte, error) {
	path := "/v1/members/import/template?format=" + url.QueryEscape(format)
	resp, err := c.doRequest(ctx, http.MethodGet, path, accessToken, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp, body)
	}
	return body, nil
}

// ListImportRuns returns the newest import runs first. limit <= 0 uses the
// server default.
func (c *Client) ListImportRuns(ctx context.Context, accessToken string, limit int) (*ListImportRunsResponse, error) {
	path := "/v1/members/import/runs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var out ListImportRunsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, accessToken, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func jsonBody(v any) (io.Reader, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return bytes.NewReader(buf), nil
}
