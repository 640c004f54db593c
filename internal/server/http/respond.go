package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/contacts/internal/common"
	"github.com/dmitrijs2005/contacts/internal/server/services"
)

const internalErrorDetail = "Internal server error. Please contact support."

type errorResponse struct {
	Detail any `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"` + internalErrorDetail + `"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, detail any) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}

// errorStatus pairs a service error with the status and detail it is
// reported as. Specific errors come before the classes they wrap.
var errorStatus = []struct {
	err    error
	status int
	detail string
}{
	{services.ErrUserExists, http.StatusConflict, "User already exists"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{services.ErrInvalidAccessToken, http.StatusUnauthorized, "Invalid token"},
	{services.ErrUnknownUser, http.StatusUnauthorized, "User not found"},
	{services.ErrInvalidOneTimeToken, http.StatusBadRequest, "Invalid or expired token"},
	{services.ErrResetUserMissing, http.StatusNotFound, "User not found"},
	{services.ErrAvatarForbidden, http.StatusForbidden, "Only administrators can change their avatar"},
	{services.ErrNotAnImage, http.StatusBadRequest, "Uploaded file is not an image"},
	{services.ErrAvatarUpload, http.StatusBadRequest, "Failed to upload avatar"},
	{services.ErrContactExists, http.StatusConflict, "Contact with this email already exists"},
	{services.ErrContactNotFound, http.StatusNotFound, "Contact not found"},
	{services.ErrInvalidQuery, http.StatusBadRequest, "Invalid query parameters"},

	{common.ErrorAlreadyExists, http.StatusBadRequest, "Record already exists with provided unique value."},
	{common.ErrorConflict, http.StatusConflict, "Conflict"},
	{common.ErrorUnauthorized, http.StatusUnauthorized, "Not authenticated"},
	{common.ErrorForbidden, http.StatusForbidden, "Forbidden"},
	{common.ErrorNotFound, http.StatusNotFound, "The requested resource does not exist."},
	{common.ErrorBadRequest, http.StatusBadRequest, "Bad request"},
}

// errorResponseFor maps err to a status and client-facing detail. Anything
// unrecognised, including common.ErrorInternal, is a 500 with a generic
// message.
func errorResponseFor(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.detail
		}
	}
	return http.StatusInternalServerError, internalErrorDetail
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := errorResponseFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, detail)
}
