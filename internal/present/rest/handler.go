package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/soctools/lurelab/internal/domain"
	"github.com/soctools/lurelab/internal/present/rest/presenter"
	"github.com/soctools/lurelab/internal/service"
	"github.com/soctools/lurelab/internal/usecase"
	"github.com/soctools/lurelab/internal/utils"
)

// Signal publishes accepted records to the operator feed and streams them
// back out over the realtime socket.
type Signal interface {
	Publish(ctx context.Context, item domain.FeedItem) error
	Realtime(ctx context.Context, input chan []string, output chan domain.FeedItem)
}

type Handler struct {
	credential *usecase.CredentialUsecase
	event      *usecase.EventUsecase
	download   *usecase.DownloadUsecase
	artifact   *service.ArtifactService
	signal     Signal
}

func NewHandler(
	credential *usecase.CredentialUsecase,
	event *usecase.EventUsecase,
	download *usecase.DownloadUsecase,
	artifact *service.ArtifactService,
	signal Signal,
) *Handler {
	return &Handler{
		credential: credential,
		event:      event,
		download:   download,
		artifact:   artifact,
		signal:     signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.handleIndex)
	e.GET("/request-download", h.handleRequestDownload)
	e.POST("/login", h.handleLogin)
	e.POST("/api/events", h.handleRecordEvent)
	e.GET("/api/events", h.handleListEvents)
	e.GET("/api/downloads", h.handleListDownloads)
	e.GET("/realtime", h.handleRealtime)
}

func clientContext(c echo.Context) domain.ClientContext {
	return domain.ClientContext{
		UserAgent:  c.Request().UserAgent(),
		SourceAddr: c.RealIP(),
	}
}

// respondError maps domain errors onto the generic client/server split.
func respondError(c echo.Context, err error) error {
	var verr domain.ValidationError
	if errors.As(err, &verr) {
		return presenter.BadRequest(c, verr)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return presenter.NotFound(c, err.Error())
	}
	return presenter.InternalError(c, err)
}

// publish is best effort; a dead feed must not fail the recording request.
func (h *Handler) publish(ctx context.Context, item domain.FeedItem) {
	if err := h.signal.Publish(ctx, item); err != nil {
		slog.WarnContext(
			ctx, "Feed publish failed",
			slog.String("error", err.Error()),
			slog.String("module", "feed"),
		)
	}
}

const indexPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8"/>
    <title>Download</title>
  </head>
  <body>
    <h2>Download file</h2>
    <form method="GET" action="/request-download">
      <label>
        Email:
        <input type="email" name="email" required />
      </label>
      <button type="submit">Get file</button>
    </form>
  </body>
</html>
`

func (h *Handler) handleIndex(c echo.Context) error {
	if raw := c.QueryParam("email"); raw != "" {
		if identity, err := domain.NormalizeIdentity(raw); err == nil {
			target := "/request-download?email=" + url.QueryEscape(string(identity))
			return c.Redirect(http.StatusFound, target)
		}
	}
	return c.HTML(http.StatusOK, indexPage)
}

const artifactPage = `<!doctype html>
<html>
  <head><meta charset="utf-8"/></head>
  <body>
    <script nonce="%s">
      (function(){
        const b64 = "%s";
        const binaryString = atob(b64);
        const bytes = new Uint8Array(binaryString.length);
        for (let i = 0; i < binaryString.length; i++) bytes[i] = binaryString.charCodeAt(i);
        const blob = new Blob([bytes], { type: "application/pdf" });
        const a = document.createElement("a");
        a.href = URL.createObjectURL(blob);
        a.download = "%s";
        document.body.appendChild(a);
        a.click();
        setTimeout(() => {
          URL.revokeObjectURL(a.href);
          a.remove();
        }, 1000);
      })();
    </script>
  </body>
</html>
`

func (h *Handler) handleRequestDownload(c echo.Context) error {
	ctx := c.Request().Context()

	ev, err := h.download.Record(ctx, c.QueryParam("email"), clientContext(c))
	if err != nil {
		var verr domain.ValidationError
		if errors.As(err, &verr) {
			return c.String(http.StatusBadRequest, "Invalid email address")
		}
		return c.String(http.StatusInternalServerError, "Server error")
	}

	h.publish(ctx, domain.FeedItem{
		Stream:      domain.FeedStreamDownload,
		Identity:    ev.Identity,
		Fingerprint: ev.Fingerprint,
		OccurredAt:  ev.OccurredAt,
	})

	payload, err := h.artifact.Payload()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.String(http.StatusNotFound, "No file available")
		}
		return c.String(http.StatusInternalServerError, "Server error")
	}

	nonce, err := h.artifact.Nonce()
	if err != nil {
		return c.String(http.StatusInternalServerError, "Server error")
	}

	c.Response().Header().Set(
		"Content-Security-Policy",
		fmt.Sprintf("default-src 'self'; script-src 'nonce-%s'", nonce),
	)

	return c.HTML(http.StatusOK, fmt.Sprintf(artifactPage, nonce, payload, h.artifact.Filename()))
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *Handler) handleLogin(c echo.Context) error {
	ctx := c.Request().Context()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	if err := h.credential.Capture(ctx, req.Email, req.Password, clientContext(c)); err != nil {
		var verr domain.ValidationError
		if errors.As(err, &verr) {
			return presenter.BadRequest(c, verr)
		}
		return presenter.InternalError(c, err)
	}

	// The capture worked, but the page must never learn that.
	return presenter.Rejected(c)
}

type recordEventRequest struct {
	Email    string         `json:"email" form:"email"`
	Event    string         `json:"event" form:"event"`
	Metadata utils.Metadata `json:"metadata"`
}

func (h *Handler) handleRecordEvent(c echo.Context) error {
	ctx := c.Request().Context()

	var req recordEventRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	ev, err := h.event.Record(ctx, req.Email, domain.EventKind(req.Event), clientContext(c), req.Metadata)
	if err != nil {
		return respondError(c, err)
	}

	h.publish(ctx, domain.FeedItem{
		Stream:      domain.FeedStreamEvent,
		Identity:    ev.Identity,
		Kind:        ev.Kind,
		Fingerprint: ev.Fingerprint,
		OccurredAt:  ev.OccurredAt,
	})

	return presenter.Ack(c)
}

func parseLimit(c echo.Context) (int, error) {
	limitStr := c.QueryParam("limit")
	if limitStr == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter")
	}
	return limit, nil
}

func (h *Handler) handleListEvents(c echo.Context) error {
	ctx := c.Request().Context()

	limit, err := parseLimit(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	filter := domain.EventFilter{
		Identity: domain.Identity(c.QueryParam("email")),
		Kind:     domain.EventKind(c.QueryParam("event")),
	}

	events, err := h.event.List(ctx, filter, limit)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, events)
}

func (h *Handler) handleListDownloads(c echo.Context) error {
	ctx := c.Request().Context()

	limit, err := parseLimit(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	downloads, err := h.download.List(ctx, limit)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, downloads)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type     string   `json:"type"`
	Prefixes []string `json:"prefixes"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	input := make(chan []string)
	defer close(input)
	output := make(chan domain.FeedItem)
	defer close(output)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		for {
			var req realtimeRequest
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				input <- req.Prefixes
				slog.DebugContext(
					ctx, fmt.Sprintf("Socket subscribe: %s", req.Prefixes),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case item := <-output:
			err := ws.WriteJSON(item)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
