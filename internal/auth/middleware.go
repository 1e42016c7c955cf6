package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"portfolio-api/internal/apierror"
	"portfolio-api/internal/observability"
)

type claimsContextKey struct{}

// Gate admits requests carrying a valid access token. It never consults the
// account store; revocation is checked against the denylist only.
type Gate struct {
	tokens   *TokenIssuer
	denylist Denylist
	logger   *observability.Logger
}

func NewGate(tokens *TokenIssuer, denylist Denylist, logger *observability.Logger) *Gate {
	return &Gate{tokens: tokens, denylist: denylist, logger: logger}
}

func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, source := accessTokenFromRequest(r)
		if token == "" {
			g.logger.Debug("auth_token_missing", map[string]any{"path": r.URL.Path})
			apierror.Write(w, http.StatusUnauthorized, apierror.CodeTokenMissing, "Access denied. No token provided.")
			return
		}

		claims, err := g.tokens.ValidateAccess(token)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				g.logger.Debug("auth_token_expired", map[string]any{"path": r.URL.Path, "source": source})
				apierror.Write(w, http.StatusUnauthorized, apierror.CodeTokenExpired, "Token expired. Please log in again.")
				return
			}
			g.logger.Warn("auth_token_invalid", map[string]any{"path": r.URL.Path, "source": source, "error": err.Error()})
			apierror.Write(w, http.StatusUnauthorized, apierror.CodeTokenInvalid, "Invalid token")
			return
		}

		if g.denylist != nil {
			revoked, err := g.denylist.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				observability.CaptureRequestError(r, err)
				g.logger.Error("auth_denylist_failed", map[string]any{"error": err.Error()})
				apierror.Write(w, http.StatusInternalServerError, apierror.CodeInternal, "Unable to verify token")
				return
			}
			if revoked {
				g.logger.Warn("auth_token_revoked", map[string]any{"path": r.URL.Path, "user_id": claims.UserID})
				apierror.Write(w, http.StatusUnauthorized, apierror.CodeTokenInvalid, "Invalid token")
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func WithClaims(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*AccessClaims)
	return claims, ok && claims != nil
}

// accessTokenFromRequest looks at the cookie, then the bearer header, then
// the token query parameter. The first non-empty one wins.
func accessTokenFromRequest(r *http.Request) (string, string) {
	if token := cookieValue(r, AccessTokenCookie); token != "" {
		return token, "cookie"
	}
	if token := bearerToken(r); token != "" {
		return token, "header"
	}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token, "query"
	}
	return "", ""
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
