package maintenance

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"portfolio-api/internal/apierror"
	"portfolio-api/internal/observability"
)

// SessionStore is the part of the credential store the cleanup needs.
type SessionStore interface {
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time, limit int) (int64, error)
}

// RevocationPurger drops denylist entries whose tokens have expired.
type RevocationPurger interface {
	Purge(ctx context.Context, now time.Time) (int, error)
}

type Result struct {
	ClearedRefreshTokens int64 `json:"clearedRefreshTokens"`
	PurgedRevocations    int   `json:"purgedRevocations"`
}

// CleanupHandler is meant for a scheduled caller. It answers 404 unless a
// cron secret is configured.
type CleanupHandler struct {
	sessions   SessionStore
	denylist   RevocationPurger
	logger     *observability.Logger
	cronSecret string
	batchSize  int
	now        func() time.Time
}

func NewCleanupHandler(sessions SessionStore, denylist RevocationPurger, logger *observability.Logger, cronSecret string, batchSize int) *CleanupHandler {
	return &CleanupHandler{
		sessions:   sessions,
		denylist:   denylist,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
		batchSize:  batchSize,
		now:        time.Now,
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		apierror.Write(w, http.StatusNotFound, apierror.CodeNotFound, "not found")
		return
	}

	if !h.authorized(r) {
		h.logger.Warn("maintenance_unauthorized", map[string]any{"ip": observability.ClientIP(r)})
		apierror.Write(w, http.StatusUnauthorized, apierror.CodeUnauthorized, "unauthorized")
		return
	}

	result, err := h.Run(r.Context())
	if err != nil {
		observability.CaptureRequestError(r, err)
		h.logger.Error("maintenance_cleanup_failed", map[string]any{"error": err.Error()})
		apierror.Write(w, http.StatusInternalServerError, apierror.CodeInternal, "cleanup failed")
		return
	}

	apierror.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": result,
	})
}

// Run performs one cleanup pass. A denylist failure does not undo the
// refresh-token cleanup already done.
func (h *CleanupHandler) Run(ctx context.Context) (Result, error) {
	now := h.now().UTC()
	var result Result

	cleared, err := h.sessions.ClearExpiredRefreshTokens(ctx, now, h.batchSize)
	if err != nil {
		return result, err
	}
	result.ClearedRefreshTokens = cleared

	if h.denylist != nil {
		purged, err := h.denylist.Purge(ctx, now)
		if err != nil {
			return result, err
		}
		result.PurgedRevocations = purged
	}

	h.logger.Info("maintenance_cleanup_completed", map[string]any{
		"cleared_refresh_tokens": result.ClearedRefreshTokens,
		"purged_revocations":     result.PurgedRevocations,
	})
	return result, nil
}

func (h *CleanupHandler) authorized(r *http.Request) bool {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(h.cronSecret)) == 1
}
