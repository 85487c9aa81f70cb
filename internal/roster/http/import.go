package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/koki-kondo/mind-status-app/internal/roster/service"
	"github.com/koki-kondo/mind-status-app/internal/roster/sheet"
	"github.com/koki-kondo/mind-status-app/pkg/httpx"
	"github.com/koki-kondo/mind-status-app/pkg/rostersdk"
	"github.com/koki-kondo/mind-status-app/pkg/slogx"
)

// DefaultMaxUploadBytes caps a roster upload when none is configured.
const DefaultMaxUploadBytes = 10 << 20

type ImportHandler struct {
	ImportService  *service.ImportService
	MaxUploadBytes int64
}

// ServeHTTP godoc
//
//	@Summary		Import a roster
//	@Description	Uploads a CSV or XLSX roster for the admin's organization. New emails become pending members and receive an invitation; pending members are updated and re-invited; active members are reported as duplicates. Row problems never fail the request, they are listed in the report.
//	@Tags			Roster
//	@Security		BearerAuth
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Roster file (.csv or .xlsx)"
//	@Success		200		{object}	rostersdk.ImportReport
//	@Failure		503		{object}	rostersdk.ImportReport	"Interrupted, lists the rows committed so far"
//	@Failure		400		{object}	rostersdk.ErrorResponse	"unsupported_file"
//	@Failure		401		{object}	rostersdk.ErrorResponse
//	@Failure		403		{object}	rostersdk.ErrorResponse
//	@Failure		413		{object}	rostersdk.ErrorResponse	"file_too_large"
//	@Failure		429		{object}	rostersdk.ErrorResponse	"Another import is running"
//	@Router			/v1/members/import [post].
func (h *ImportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	claims, _ := httpx.ClaimsFromContext(ctx)

	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}

	// 1. Read the upload
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, rostersdk.ErrorCodeFileTooLarge,
				"File exceeds "+strconv.FormatInt(limit>>20, 10)+" MiB")
			return
		}
		writeError(w, http.StatusBadRequest, rostersdk.ErrorCodeInvalidRequest, "Body must be multipart/form-data")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, rostersdk.ErrorCodeInvalidRequest, "file is required")
		return
	}
	defer file.Close()

	// 2. Import
	report, err := h.ImportService.Import(ctx, service.ImportRequest{
		OrganizationID: claims.OrganizationID,
		ActorID:        claims.Subject,
		Filename:       hdr.Filename,
		Body:           file,
	})
	if err != nil {
		var ffe *sheet.FileFormatError
		switch {
		case errors.Is(err, service.ErrImportInterrupted):
			log.Warn("roster import interrupted", "err", err)
			httpx.WriteJSON(w, http.StatusServiceUnavailable, importReport(report))
		case errors.As(err, &ffe):
			writeError(w, http.StatusBadRequest, rostersdk.ErrorCodeUnsupportedFile, ffe.Error())
		case errors.Is(err, service.ErrTooManyImports):
			w.Header().Set("Retry-After", "5")
			writeError(w, http.StatusTooManyRequests, rostersdk.ErrorCodeTooManyRequests, err.Error())
		case errors.Is(err, service.ErrOrganizationNotFound):
			writeError(w, http.StatusNotFound, rostersdk.ErrorCodeNotFound, "Organization not found")
		default:
			log.Error("roster import failed", "err", err)
			writeServerError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, importReport(report))
}

type TemplateHandler struct {
	ImportService *service.ImportService
}

// ServeHTTP godoc
//
//	@Summary		Download a roster template
//	@Description	Returns an empty roster with the columns allowed for the admin's organization kind and a sample row.
//	@Tags			Roster
//	@Security		BearerAuth
//	@Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Produce		text/csv
//	@Param			format	query	string	false	"xlsx (default) or csv"
//	@Success		200		{file}	file
//	@Failure		400		{object}	rostersdk.ErrorResponse
//	@Router			/v1/members/import/template [get].
func (h *TemplateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := httpx.ClaimsFromContext(ctx)

	format := sheet.FormatXLSX
	switch q := r.URL.Query().Get("format"); q {
	case "", "xlsx":
	case "csv":
		format = sheet.FormatCSV
	default:
		writeError(w, http.StatusBadRequest, rostersdk.ErrorCodeInvalidRequest, "format must be xlsx or csv")
		return
	}

	body, filename, err := h.ImportService.Template(ctx, claims.OrganizationID, format)
	if err != nil {
		if errors.Is(err, service.ErrOrganizationNotFound) {
			writeError(w, http.StatusNotFound, rostersdk.ErrorCodeNotFound, "Organization not found")
			return
		}
		slogx.FromContext(ctx).Error("failed to render template", "err", err)
		writeServerError(w)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

type ImportRunsHandler struct {
	ImportService *service.ImportService
}

// ServeHTTP godoc
//
//	@Summary		List import history
//	@Description	Returns the organization's most recent roster imports, newest first.
//	@Tags			Roster
//	@Security		BearerAuth
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum number of runs (default 20, max 100)"
//	@Success		200		{object}	rostersdk.ListImportRunsResponse
//	@Router			/v1/members/import/runs [get].
func (h *ImportRunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := httpx.ClaimsFromContext(ctx)

	limit := defaultRunsLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, rostersdk.ErrorCodeInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.ImportService.ListRuns(ctx, claims.OrganizationID, limit)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list import runs", "err", err)
		writeServerError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, rostersdk.ListImportRunsResponse{Runs: importRuns(runs)})
}
