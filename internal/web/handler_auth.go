package web

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// userID returns the authenticated user placed in the context by requireAuth.
func userID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "authentication required", s.log(r))
			return
		}

		id, err := s.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			s.log(r).Debug("rejected bearer token", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid or expired token", s.log(r))
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		next(w, r.WithContext(ctx))
	}
}

type registerResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type loginResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
	Token   string       `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := s.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "User registered successfully",
		User:    newUserResponse(user),
	}, s.log(r))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		User:    newUserResponse(user),
		Token:   token,
	}, s.log(r))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := userID(r.Context())
	user, err := s.auth.User(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "account no longer exists", s.log(r))
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user), s.log(r))
}
