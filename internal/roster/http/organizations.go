package http

import (
	"errors"
	"net/http"

	"github.com/koki-kondo/mind-status-app/internal/roster/service"
	"github.com/koki-kondo/mind-status-app/pkg/httpx"
	"github.com/koki-kondo/mind-status-app/pkg/rostersdk"
	"github.com/koki-kondo/mind-status-app/pkg/slogx"
)

type RegisterOrganizationHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP registers a new organization together with its admin.
//
//	@Summary		Register an organization
//	@Description	Creates a SCHOOL or COMPANY organization and its first, already active, admin. When the server has a registration token configured the X-Registration-Token header must carry it.
//	@Tags			Organizations
//	@Accept			json
//	@Produce		json
//	@Param			X-Registration-Token	header		string									false	"Operator registration token"
//	@Param			request					body		rostersdk.RegisterOrganizationRequest	true	"Organization and admin"
//	@Success		201						{object}	rostersdk.RegisterOrganizationResponse
//	@Failure		400						{object}	rostersdk.ValidationErrorResponse
//	@Failure		401						{object}	rostersdk.ErrorResponse
//	@Failure		409						{object}	rostersdk.ErrorResponse	"Organization name already taken"
//	@Router			/v1/organizations [post].
func (h *RegisterOrganizationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := slogx.FromContext(ctx)

	// 1. Parse request body and validate
	var req rostersdk.RegisterOrganizationRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	if errs := req.Validate(); errs != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, rostersdk.ValidationErrorResponse{
			Error:            rostersdk.ErrorCodeInvalidRequest,
			ErrorDescription: "validation failed for some fields",
			Details:          errs,
		})
		return
	}

	// 2. Register
	org, admin, err := h.AccountService.RegisterOrganization(ctx,
		r.Header.Get(rostersdk.RegistrationTokenHeader),
		service.RegisterRequest{
			OrganizationName: req.OrganizationName,
			Kind:             req.Kind,
			AdminEmail:       req.AdminEmail,
			AdminName:        req.AdminName,
			Password:         req.AdminPassword,
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRegistrationUnauthorized):
			writeError(w, http.StatusUnauthorized, rostersdk.ErrorCodeUnauthorized, "Invalid registration token")
		case errors.Is(err, service.ErrOrganizationExists):
			writeError(w, http.StatusConflict, rostersdk.ErrorCodeConflict, "An organization with this name already exists")
		case errors.Is(err, service.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, rostersdk.ErrorCodeWeakPassword, err.Error())
		case errors.Is(err, service.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, rostersdk.ErrorCodeInvalidRequest, err.Error())
		default:
			l.Error("failed to register organization", "err", err)
			writeServerError(w)
		}
		return
	}

	// 3. Respond
	httpx.WriteJSON(w, http.StatusCreated, rostersdk.RegisterOrganizationResponse{
		Organization: rostersdk.OrganizationInfo{
			ID:        org.ID,
			Name:      org.Name,
			Kind:      string(org.Kind),
			CreatedAt: org.CreatedAt,
		},
		Admin: memberInfo(admin),
	})
}
