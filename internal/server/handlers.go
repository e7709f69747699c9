package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/wherepulse/wherepulse/internal/domain"
	errs "github.com/wherepulse/wherepulse/internal/errors"
	"github.com/wherepulse/wherepulse/internal/metrics"
	"github.com/wherepulse/wherepulse/internal/version"
)

// locationFrame is one inbound WebSocket message: the client's current
// coordinates. Pointers distinguish a missing field from a zero value.
type locationFrame struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Server) handleInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "wherepulse",
		"version": version.Get(),
	})
}

func (s *Server) handleInstances(c echo.Context) error {
	instances, err := s.registry.ActiveInstances(c.Request().Context())
	if err != nil {
		serr := errs.UnavailableError("failed to list instances", err)
		return c.JSON(serr.HTTPStatus(), serr.ToResponse())
	}
	return c.JSON(http.StatusOK, map[string]any{"instances": instances})
}

// handleWebSocket accepts a subscriber connection. The site is declared
// at connect time (via the "site" query parameter or the Origin header)
// and binds the connection for its lifetime; the client identity must
// already be established externally and arrive as a query parameter or
// cookie. The read pump then treats every inbound frame as a location
// update for that identity on that site.
func (s *Server) handleWebSocket(c echo.Context) error {
	ip := c.RealIP()
	if reason, ok := s.limits.Acquire(ip); !ok {
		metrics.ConnectionsRejectedTotal.WithLabelValues(string(reason)).Inc()
		serr := errs.UnavailableError("connection limit reached", nil)
		status := serr.HTTPStatus()
		if reason == LimitReasonRate {
			status = http.StatusTooManyRequests
		}
		return c.JSON(status, serr.ToResponse())
	}

	origin := c.QueryParam("site")
	if origin == "" {
		origin = c.Request().Header.Get("Origin")
	}
	siteKey, err := domain.SiteKeyFromOrigin(origin)
	if err != nil {
		s.limits.Release(ip)
		serr := errs.ValidationError("invalid or missing site origin")
		return c.JSON(serr.HTTPStatus(), serr.ToResponse())
	}

	clientID := s.clientIdentity(c)
	if clientID == "" {
		s.limits.Release(ip)
		serr := errs.ValidationError("missing client identity")
		return c.JSON(serr.HTTPStatus(), serr.ToResponse())
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.limits.Release(ip)
		slog.Warn("Failed to upgrade WebSocket", "error", err)
		return nil
	}
	defer s.limits.Release(ip)

	if err := s.broadcaster.Subscribe(siteKey, conn); err != nil {
		slog.Warn("Failed to subscribe connection", "site_key", siteKey, "error", err)
		_ = conn.Close()
		return nil
	}

	// Let the newcomer receive the current presence set promptly instead
	// of waiting for the next update on the site.
	s.broadcaster.MarkChanged(siteKey)

	s.readPump(c.Request().Context(), conn, siteKey, clientID)

	s.broadcaster.Unsubscribe(conn)
	s.removePresence(siteKey, clientID)
	return nil
}

// readPump processes inbound frames until the connection closes. A
// malformed frame or invalid update is logged and dropped; the
// connection keeps serving. A store outage is logged and the connection
// keeps reading - the client's own refresh cadence is the retry schedule.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, siteKey, clientID string) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame locationFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Warn("Dropping malformed frame", "site_key", siteKey, "client_id", clientID, "error", err)
			continue
		}
		if frame.Latitude == nil || frame.Longitude == nil {
			slog.Warn("Dropping frame without coordinates", "site_key", siteKey, "client_id", clientID)
			continue
		}

		ev := domain.UpdateEvent{
			ClientID:  clientID,
			SiteKey:   siteKey,
			Latitude:  *frame.Latitude,
			Longitude: *frame.Longitude,
		}
		if err := s.writer.Submit(ctx, ev); err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidUpdate):
				slog.Warn("Dropping invalid update", "site_key", siteKey, "client_id", clientID, "error", err)
			case errors.Is(err, domain.ErrStoreUnavailable):
				slog.Error("Presence store unavailable", "site_key", siteKey, "error", err)
			default:
				slog.Error("Failed to process update", "site_key", siteKey, "error", err)
			}
		}
	}
}

// removePresence deletes the record on clean disconnect so the client
// vanishes immediately instead of waiting out the TTL. Best effort: the
// TTL is the backstop if this fails.
func (s *Server) removePresence(siteKey, clientID string) {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectCleanupTimeout)
	defer cancel()

	if err := s.store.Remove(ctx, siteKey, clientID); err != nil {
		slog.Warn("Failed to remove presence record on disconnect", "site_key", siteKey, "client_id", clientID, "error", err)
		return
	}
	metrics.PresenceRemovalsTotal.Inc()

	// Peers and local subscribers should see the departure.
	s.broadcaster.MarkChanged(siteKey)
	if err := s.writer.PublishChange(ctx, siteKey); err != nil {
		slog.Warn("Failed to publish departure", "site_key", siteKey, "error", err)
	}
}

func (s *Server) clientIdentity(c echo.Context) string {
	if id := c.QueryParam("client"); id != "" {
		return id
	}
	if cookie, err := c.Cookie(clientIdentityCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
