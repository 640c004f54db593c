package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/contacts/internal/common"
)

const maxAvatarBytes = 5 << 20

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	if v := req.validate(); !v.empty() {
		writeViolations(w, v)
		return
	}

	user, err := s.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserSummary(user))
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeViolations(w, violations{{Field: "token", Message: "field required"}})
		return
	}

	if err := s.users.VerifyEmail(r.Context(), token); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Email verified successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	if v := req.validate(); !v.empty() {
		writeViolations(w, v)
		return
	}

	token, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: common.BearerTokenType})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newUserSummary(currentUser(r.Context())))
}

func (s *Server) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	if v := req.validate(); !v.empty() {
		writeViolations(w, v)
		return
	}

	if err := s.users.RequestPasswordReset(r.Context(), req.Email); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "If the account exists, a password reset link has been sent"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	if v := req.validate(); !v.empty() {
		writeViolations(w, v)
		return
	}

	if err := s.users.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password has been reset successfully"})
}

func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes+(1<<20))

	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeViolations(w, violations{{Field: "file", Message: "file is too large"}})
			return
		}
		writeViolations(w, violations{{Field: "file", Message: "field required"}})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes+1))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if len(image) > maxAvatarBytes {
		writeViolations(w, violations{{Field: "file", Message: "file is too large"}})
		return
	}
	if len(image) == 0 {
		writeViolations(w, violations{{Field: "file", Message: "file is empty"}})
		return
	}

	user, err := s.users.UpdateAvatar(r.Context(), currentUser(r.Context()), image)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var url string
	if user.Avatar != nil {
		url = *user.Avatar
	}
	writeJSON(w, http.StatusCreated, avatarResponse{AvatarURL: url})
}
