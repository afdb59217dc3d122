// Package api exposes the session engine and reports over HTTP with echo.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/wrokdesk/internal/clock"
	"github.com/balkashynov/wrokdesk/internal/engine"
	"github.com/balkashynov/wrokdesk/internal/logging"
	"github.com/balkashynov/wrokdesk/internal/models"
	"github.com/balkashynov/wrokdesk/internal/parser"
	"github.com/balkashynov/wrokdesk/internal/report"
	"github.com/balkashynov/wrokdesk/internal/store"
)

// RecordQuerier is the read side of the store the report endpoint needs
type RecordQuerier interface {
	QueryTimeRecords(ctx context.Context, filter store.TimeRecordFilter) ([]models.TimeRecord, error)
}

// Dependencies holds all handler dependencies
type Dependencies struct {
	Engine  *engine.Engine
	Records RecordQuerier
	Events  *engine.Broadcaster
	Clock   clock.Clock
	Logger  *slog.Logger
	Version string
}

// Handler handles API requests
type Handler struct {
	engine  *engine.Engine
	records RecordQuerier
	events  *engine.Broadcaster
	clock   clock.Clock
	logger  *slog.Logger
	version string
}

// NewHandler creates a new API handler
func NewHandler(deps Dependencies) *Handler {
	h := &Handler{
		engine:  deps.Engine,
		records: deps.Records,
		events:  deps.Events,
		clock:   deps.Clock,
		logger:  deps.Logger,
		version: deps.Version,
	}
	if h.clock == nil {
		h.clock = clock.Real()
	}
	if h.logger == nil {
		h.logger = logging.Discard()
	}
	if h.events == nil {
		h.events = engine.NewBroadcaster()
	}
	return h
}

// stateResponse is a worker's timing state
type stateResponse struct {
	WorkerID              uint            `json:"worker_id"`
	Active                bool            `json:"active"`
	Session               *models.Session `json:"session"`
	Entry                 *models.Entry   `json:"entry"`
	SessionElapsedSeconds int64           `json:"session_elapsed_seconds"`
	EntryElapsedSeconds   int64           `json:"entry_elapsed_seconds"`
}

type startSessionRequest struct {
	SubjectID uint `json:"subject_id"`
}

func (r *startSessionRequest) validate() error {
	if r.SubjectID == 0 {
		return NewValidationError("subject_id")
	}
	return nil
}

type switchEntryRequest struct {
	TaskID uint `json:"task_id"`
}

func (r *switchEntryRequest) validate() error {
	if r.TaskID == 0 {
		return NewValidationError("task_id")
	}
	return nil
}

type reportResponse struct {
	Period       string        `json:"period"`
	Lines        []report.Line `json:"lines"`
	TotalSeconds int64         `json:"total_seconds"`
}

// HandleHealth returns server health status
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleGetSession returns the worker's current or last session
func (h *Handler) HandleGetSession(c echo.Context) error {
	workerID, err := workerParam(c)
	if err != nil {
		return err
	}
	return h.respondState(c, http.StatusOK, workerID)
}

// HandleStartSession opens a session for the worker, stopping any open one
func (h *Handler) HandleStartSession(c echo.Context) error {
	workerID, err := workerParam(c)
	if err != nil {
		return err
	}
	var req startSessionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	if _, err := h.engine.StartSession(c.Request().Context(), workerID, req.SubjectID); err != nil {
		return fromEngine(err)
	}
	return h.respondState(c, http.StatusCreated, workerID)
}

// HandleStopSession closes the worker's open session
func (h *Handler) HandleStopSession(c echo.Context) error {
	return h.mutate(c, h.engine.StopSession)
}

// HandleSwitchEntry moves the worker's timing to another task
func (h *Handler) HandleSwitchEntry(c echo.Context) error {
	workerID, err := workerParam(c)
	if err != nil {
		return err
	}
	var req switchEntryRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	if err := h.engine.SwitchTaskEntry(c.Request().Context(), workerID, req.TaskID); err != nil {
		return fromEngine(err)
	}
	return h.respondState(c, http.StatusOK, workerID)
}

// HandleStopEntry ends the active task and falls back to the default entry
func (h *Handler) HandleStopEntry(c echo.Context) error {
	return h.mutate(c, h.engine.StopActiveTaskEntry)
}

// HandleDismissEntry discards the active task entry
func (h *Handler) HandleDismissEntry(c echo.Context) error {
	return h.mutate(c, h.engine.DismissActiveTaskEntry)
}

func (h *Handler) mutate(c echo.Context, op func(ctx context.Context, workerID uint) error) error {
	workerID, err := workerParam(c)
	if err != nil {
		return err
	}
	if err := op(c.Request().Context(), workerID); err != nil {
		return fromEngine(err)
	}
	return h.respondState(c, http.StatusOK, workerID)
}

// respondState reloads the worker from the store, since other processes
// (the CLI) may have changed it, and writes it with the live elapsed times.
func (h *Handler) respondState(c echo.Context, status int, workerID uint) error {
	snap, err := h.engine.Load(c.Request().Context(), workerID)
	if err != nil {
		return fromEngine(err)
	}
	return c.JSON(status, stateResponse{
		WorkerID:              workerID,
		Active:                snap.HasOpenSession(),
		Session:               snap.Session,
		Entry:                 snap.Entry,
		SessionElapsedSeconds: h.engine.SessionElapsedSeconds(workerID),
		EntryElapsedSeconds:   h.engine.ActiveEntryElapsedSeconds(workerID),
	})
}

// HandleReport returns the display lines for the matching time records.
// Query params: worker, client (ids) and period (see parser.ParsePeriod).
func (h *Handler) HandleReport(c echo.Context) error {
	filter := store.TimeRecordFilter{WholeSessions: true}

	if raw := c.QueryParam("worker"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return NewValidationError("worker")
		}
		filter.WorkerID = &id
	}
	if raw := c.QueryParam("client"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return NewValidationError("client")
		}
		filter.SubjectID = &id
	}

	period, err := parser.ParseLocalPeriod(c.QueryParam("period"), h.clock.Now())
	if err != nil {
		return NewBadRequestError("invalid period", err)
	}
	if !period.IsZero() {
		filter.From, filter.To = &period.From, &period.To
	}

	records, err := h.records.QueryTimeRecords(c.Request().Context(), filter)
	if err != nil {
		return NewServiceUnavailableError("failed to query time records", err)
	}

	lines := report.BuildDisplayLines(records)
	return c.JSON(http.StatusOK, reportResponse{
		Period:       period.String(),
		Lines:        lines,
		TotalSeconds: report.Totals(lines),
	})
}

// HandleEvents streams the worker's state changes via SSE until the client
// goes away.
func (h *Handler) HandleEvents(c echo.Context) error {
	workerID, err := workerParam(c)
	if err != nil {
		return err
	}

	changes, unsubscribe := h.events.Subscribe(16)
	defer unsubscribe()

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	fmt.Fprint(c.Response(), ": subscribed\n\n")
	c.Response().Flush()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if change.WorkerID != workerID {
				continue
			}
			data, err := json.Marshal(change)
			if err != nil {
				h.logger.Warn("failed to encode change", "error", err)
				continue
			}
			fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", change.Kind, data)
			c.Response().Flush()
		}
	}
}

func workerParam(c echo.Context) (uint, error) {
	id, err := parseID(c.Param("worker"))
	if err != nil {
		return 0, NewValidationError("worker")
	}
	return id, nil
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
