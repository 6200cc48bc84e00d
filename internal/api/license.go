package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-linker/internal/license"
	"github.com/JakeFAU/seo-linker/internal/metrics"
)

// LicenseService redeems product keys and checks issued tokens.
type LicenseService interface {
	Issue(productKey string) (string, error)
	Verify(token string) (license.Claims, error)
	User(token string) (string, error)
}

type keyRequest struct {
	ProductKey string `json:"productKey"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type tokenStatus struct {
	Valid bool   `json:"valid"`
	User  string `json:"user,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) validateKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.ProductKey) == "" {
		s.writeError(w, http.StatusBadRequest, "productKey is required")
		return
	}
	token, err := s.deps.License.Issue(req.ProductKey)
	metrics.ObserveLicense("validate_key", err == nil)
	switch {
	case errors.Is(err, license.ErrInvalidKey):
		s.writeError(w, http.StatusUnauthorized, "Invalid product key")
		return
	case err != nil:
		s.logger.Error("token signing failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// decodeToken reads the token from the body and answers 401 itself when it
// is missing or malformed.
func (s *Server) decodeToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return "", false
	}
	if req.Token == "" {
		s.writeJSON(w, http.StatusUnauthorized, tokenStatus{Error: "Token is required"})
		return "", false
	}
	return req.Token, true
}

func (s *Server) validateToken(w http.ResponseWriter, r *http.Request) {
	token, ok := s.decodeToken(w, r)
	if !ok {
		return
	}
	_, err := s.deps.License.Verify(token)
	metrics.ObserveLicense("validate_token", err == nil)
	if err != nil {
		s.logger.Debug("token rejected", zap.Error(err))
		s.writeJSON(w, http.StatusUnauthorized, tokenStatus{Error: "Token is invalid or has expired"})
		return
	}
	s.writeJSON(w, http.StatusOK, tokenStatus{Valid: true})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	token, ok := s.decodeToken(w, r)
	if !ok {
		return
	}
	user, err := s.deps.License.User(token)
	metrics.ObserveLicense("get_user", err == nil)
	switch {
	case errors.Is(err, license.ErrUnknownUser):
		s.writeJSON(w, http.StatusUnauthorized, tokenStatus{Error: "User not found for the provided token"})
	case err != nil:
		s.writeJSON(w, http.StatusUnauthorized, tokenStatus{Error: "Token is invalid or has expired"})
	default:
		s.writeJSON(w, http.StatusOK, tokenStatus{Valid: true, User: user})
	}
}

func (s *Server) requireLicense(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.License == nil {
			s.writeError(w, http.StatusServiceUnavailable, "licensing is not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}
