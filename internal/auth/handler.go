package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"portfolio-api/internal/apierror"
	"portfolio-api/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service       *Service
	logger        *observability.Logger
	secureCookies bool
}

func NewHandler(service *Service, logger *observability.Logger, secureCookies bool) *Handler {
	return &Handler{service: service, logger: logger, secureCookies: secureCookies}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message     string     `json:"message"`
	AccessToken string     `json:"accessToken"`
	User        PublicUser `json:"user"`
}

type refreshResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
}

type verifyResponse struct {
	Authenticated bool       `json:"authenticated"`
	User          PublicUser `json:"user"`
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	AdminSecret string `json:"adminSecret"`
}

type unlockRequest struct {
	Username    string `json:"username"`
	AdminSecret string `json:"adminSecret"`
}

type messageResponse struct {
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	h.logger.Info("login_attempt", map[string]any{"username": strings.TrimSpace(body.Username)})

	result, err := h.service.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		h.writeServiceError(w, r, err, "login_failed", "Error logging in", map[string]any{"username": strings.TrimSpace(body.Username)})
		return
	}

	h.logger.Info("login_succeeded", map[string]any{"username": result.User.Username, "user_id": result.User.ID})

	setTokenCookies(w, result.Tokens, h.service.tokens.AccessTTL(), h.service.tokens.RefreshTTL(), h.secureCookies)
	w.Header().Set("Authorization", "Bearer "+result.Tokens.AccessToken)
	apierror.WriteJSON(w, http.StatusOK, loginResponse{
		Message:     "Login successful",
		AccessToken: result.Tokens.AccessToken,
		User:        result.User,
	})
}

// Refresh reads the refresh token from its cookie only.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	pair, err := h.service.Refresh(r.Context(), cookieValue(r, RefreshTokenCookie))
	if err != nil {
		h.writeServiceError(w, r, err, "refresh_failed", "Error refreshing token", nil)
		return
	}

	setTokenCookies(w, pair, h.service.tokens.AccessTTL(), h.service.tokens.RefreshTTL(), h.secureCookies)
	apierror.WriteJSON(w, http.StatusOK, refreshResponse{
		Message:     "Token refreshed successfully",
		AccessToken: pair.AccessToken,
	})
}

// Logout always succeeds and always clears both cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	accessToken := cookieValue(r, AccessTokenCookie)
	if accessToken == "" {
		accessToken = bearerToken(r)
	}

	if err := h.service.Logout(r.Context(), accessToken, cookieValue(r, RefreshTokenCookie)); err != nil {
		h.logger.Warn("logout_cleanup_failed", map[string]any{"error": err.Error()})
	}

	clearTokenCookies(w, h.secureCookies)
	apierror.WriteJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// Verify must be mounted behind the Gate.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		apierror.Write(w, http.StatusUnauthorized, apierror.CodeTokenMissing, "Access denied. No token provided.")
		return
	}

	apierror.WriteJSON(w, http.StatusOK, verifyResponse{Authenticated: true, User: claims.User()})
}

func (h *Handler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	var body unlockRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	user, err := h.service.Unlock(r.Context(), body.Username, body.AdminSecret)
	if err != nil {
		h.writeServiceError(w, r, err, "unlock_failed", "Error unlocking account", map[string]any{"username": strings.TrimSpace(body.Username)})
		return
	}

	h.logger.Info("account_unlocked", map[string]any{"username": user.Username})
	apierror.WriteJSON(w, http.StatusOK, messageResponse{Message: "Account unlocked successfully", Username: user.Username})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	user, err := h.service.Register(r.Context(), body.Username, body.Password, body.AdminSecret)
	if err != nil {
		h.writeServiceError(w, r, err, "register_failed", "Error creating user", map[string]any{"username": strings.TrimSpace(body.Username)})
		return
	}

	h.logger.Info("user_registered", map[string]any{"username": user.Username, "user_id": user.ID})
	apierror.WriteJSON(w, http.StatusCreated, messageResponse{Message: "User created successfully", Username: user.Username})
}

type statusResponse struct {
	AuthStatus authStatus `json:"authStatus"`
}

type authStatus struct {
	Cookies struct {
		HasAccessToken  bool `json:"hasAccessToken"`
		HasRefreshToken bool `json:"hasRefreshToken"`
	} `json:"cookies"`
	Headers struct {
		HasAuthHeader bool `json:"hasAuthHeader"`
	} `json:"headers"`
	Token struct {
		Status  string      `json:"status"`
		Source  string      `json:"source,omitempty"`
		Decoded *PublicUser `json:"decoded"`
	} `json:"token"`
}

// Status is a diagnostic endpoint. Claims are echoed only when the token verifies.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var status authStatus
	status.Cookies.HasAccessToken = cookieValue(r, AccessTokenCookie) != ""
	status.Cookies.HasRefreshToken = cookieValue(r, RefreshTokenCookie) != ""
	status.Headers.HasAuthHeader = strings.TrimSpace(r.Header.Get("Authorization")) != ""

	token, source := accessTokenFromRequest(r)
	status.Token.Source = source
	switch {
	case token == "":
		status.Token.Status = "No token found"
	default:
		claims, err := h.service.tokens.ValidateAccess(token)
		switch {
		case errors.Is(err, ErrTokenExpired):
			status.Token.Status = "Token expired"
		case err != nil:
			status.Token.Status = "Token verification failed"
		default:
			user := claims.User()
			status.Token.Status = "Token is valid"
			status.Token.Decoded = &user
		}
	}

	apierror.WriteJSON(w, http.StatusOK, statusResponse{AuthStatus: status})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, event, fallback string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}

	var authErr *Error
	if errors.As(err, &authErr) {
		fields["code"] = string(authErr.Code)
		if authErr.Cause != nil {
			fields["error"] = authErr.Cause.Error()
		}
		h.logger.Warn(event, fields)
		apierror.WriteJSON(w, authErr.Status, apierror.Body{
			Message:           authErr.Message,
			Code:              authErr.Code,
			RetryAfterMinutes: authErr.RetryAfterMinutes,
		})
		return
	}

	observability.CaptureRequestError(r, err)
	fields["error"] = err.Error()
	h.logger.Error(event, fields)
	apierror.Write(w, http.StatusInternalServerError, apierror.CodeInternal, fallback)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		apierror.Write(w, http.StatusBadRequest, apierror.CodeBadRequest, "invalid json body")
		return false
	}
	return true
}
