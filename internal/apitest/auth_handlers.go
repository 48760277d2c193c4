package apitest

import (
	"net/http"
	"strings"
	"time"

	"github.com/Urientropy/centavo/token"
	"github.com/Urientropy/centavo/token/jwt"
)

func (s *Server) issue(u *User) (token.Response, error) {
	subject := jwt.Subject{UserID: u.ID, Email: u.Email, FirstName: u.FirstName}
	access, err := s.creator.CreateAccessToken(subject)
	if err != nil {
		return token.Response{}, err
	}
	refresh, err := s.creator.CreateRefreshToken(subject)
	if err != nil {
		return token.Response{}, err
	}

	s.mu.Lock()
	s.liveAccess[access] = struct{}{}
	s.mu.Unlock()
	return token.Response{Access: access, Refresh: &refresh}, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}

	var missing []string
	if creds.Email == "" {
		missing = append(missing, "email")
	}
	if creds.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrors(missing...))
		return
	}

	u, ok := s.users.byEmail(creds.Email)
	if !ok || !CheckPasswordHash(creds.Password, u.PasswordHash) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"detail": "No active account found with the given credentials",
		})
		return
	}

	resp, err := s.issue(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, nil)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg struct {
		TenantName string `json:"tenant_name"`
		Email      string `json:"email"`
		Password   string `json:"password"`
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
	}
	if err := readJSON(r, &reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}

	errs := map[string][]string{}
	for field, value := range map[string]string{
		"tenant_name": reg.TenantName, "email": reg.Email, "password": reg.Password,
		"first_name": reg.FirstName, "last_name": reg.LastName,
	} {
		if strings.TrimSpace(value) == "" {
			errs[field] = []string{"This field is required."}
		}
	}
	if reg.Password != "" && len(reg.Password) < 8 {
		errs["password"] = []string{"Ensure this field has at least 8 characters."}
	}
	if _, exists := s.users.byEmail(reg.Email); exists {
		errs["email"] = []string{"user with this email already exists."}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	u, err := s.users.add(User{
		Email:      reg.Email,
		FirstName:  reg.FirstName,
		LastName:   reg.LastName,
		TenantName: reg.TenantName,
	}, reg.Password)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {err.Error()}})
		return
	}

	resp, err := s.issue(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, nil)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req token.RefreshRequest
	if err := readJSON(r, &req); err != nil || req.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, fieldErrors("refresh"))
		return
	}

	s.mu.Lock()
	fail := s.failRefresh
	rotate := s.rotateRefresh
	s.mu.Unlock()

	claims, err := s.creator.Verify(req.Refresh, jwt.TokenTypeRefresh)
	jti, _ := claims["jti"].(string)
	if fail || err != nil || s.blacklist.IsRevoked(jti) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}

	id, _ := claims["user_id"].(float64)
	u, ok := s.users.byID(int(id))
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "User not found", "code": "user_not_found"})
		return
	}

	pair, err := s.issue(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, nil)
		return
	}
	if !rotate {
		pair.Refresh = nil
	} else {
		s.blacklist.Add(jti, expiry(claims))
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ *User) {
	var req token.RefreshRequest
	if err := readJSON(r, &req); err != nil || req.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Refresh token is required."})
		return
	}

	claims, err := s.creator.Verify(req.Refresh, jwt.TokenTypeRefresh)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid token."})
		return
	}
	jti, _ := claims["jti"].(string)
	s.blacklist.Add(jti, expiry(claims))
	writeJSON(w, http.StatusResetContent, nil)
}

func expiry(claims map[string]any) time.Time {
	exp, _ := claims["exp"].(float64)
	return time.Unix(int64(exp), 0)
}
