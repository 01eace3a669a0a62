package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"adminpanel/internal/editor"
	"adminpanel/internal/listing"
	"adminpanel/internal/livesync"
	"adminpanel/internal/logging"
	"adminpanel/internal/services"

	"github.com/gofiber/fiber/v2"
)

const streamKeepAlive = 15 * time.Second

// RecordHandler handles HTTP requests for one entity's records.
type RecordHandler[T any] struct {
	service *services.RecordService[T]
	log     logging.Logger
	stop    <-chan struct{}
}

// NewRecordHandler creates a new RecordHandler. Open event streams end when stop is closed.
func NewRecordHandler[T any](service *services.RecordService[T], log logging.Logger, stop <-chan struct{}) *RecordHandler[T] {
	return &RecordHandler[T]{service: service, log: log, stop: stop}
}

// RegisterRoutes registers the record routes under path.
func (h *RecordHandler[T]) RegisterRoutes(router fiber.Router, path string) {
	routes := router.Group(path)
	routes.Get("/", h.HandleList)
	routes.Get("/stream", h.HandleStream)
	routes.Get("/new", h.HandleNewDraft)
	routes.Get("/:id", h.HandleGet)
	routes.Get("/:id/draft", h.HandleDraft)
	routes.Post("/", h.HandleCreate)
	routes.Put("/:id", h.HandleUpdate)
	routes.Delete("/:id", h.HandleDelete)
}

type listMeta struct {
	Query     string             `json:"query"`
	Page      int                `json:"page"`
	PageSize  int                `json:"page_size"`
	PageCount int                `json:"page_count"`
	Total     int                `json:"total"`
	Pages     []listing.PageLink `json:"pages"`
}

type listResponse[T any] struct {
	Data []T      `json:"data"`
	Meta listMeta `json:"meta"`
}

type draftResponse struct {
	ID     string            `json:"id,omitempty"`
	Fields map[string]string `json:"fields"`
}

func pageParam(c *fiber.Ctx) (int, error) {
	raw := c.Query("page", "1")
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("%w: page must be a positive integer", services.ErrValidation)
	}
	return page, nil
}

// HandleList returns one page of the records matching ?q.
func (h *RecordHandler[T]) HandleList(c *fiber.Ctx) error {
	page, err := pageParam(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.service.List(c.Query("q"), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(listResponse[T]{
		Data: res.Records,
		Meta: listMeta{
			Query:     res.Query,
			Page:      res.Page,
			PageSize:  res.PageSize,
			PageCount: res.PageCount,
			Total:     res.Total,
			Pages:     res.Pages,
		},
	})
}

// HandleGet returns one record.
func (h *RecordHandler[T]) HandleGet(c *fiber.Ctx) error {
	rec, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(rec)
}

// HandleNewDraft returns the default draft of a new record.
func (h *RecordHandler[T]) HandleNewDraft(c *fiber.Ctx) error {
	e := h.service.Entity().Form.Create()
	return c.JSON(draftResponse{Fields: e.Draft()})
}

// HandleDraft returns the editor seed of an existing record.
func (h *RecordHandler[T]) HandleDraft(c *fiber.Ctx) error {
	e, err := h.service.Editor(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(draftResponse{ID: e.ID(), Fields: e.Draft()})
}

// parseDraft reads a flat JSON object. Numbers are accepted and turned into
// their draft strings; anything else that is not a string is rejected.
func parseDraft(body []byte) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid request body", services.ErrValidation)
	}
	draft := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			draft[k] = val
		case float64:
			draft[k] = editor.FormatNumber(val)
		default:
			return nil, fmt.Errorf("%w: field %q must be a string or a number", services.ErrValidation, k)
		}
	}
	return draft, nil
}

// HandleCreate creates a record from a draft.
func (h *RecordHandler[T]) HandleCreate(c *fiber.Ctx) error {
	draft, err := parseDraft(c.Body())
	if err != nil {
		return writeError(c, h.log, err)
	}
	id, err := h.service.Create(c.UserContext(), draft)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Record created successfully",
		"id":      id,
	})
}

// HandleUpdate applies a draft to an existing record.
func (h *RecordHandler[T]) HandleUpdate(c *fiber.Ctx) error {
	draft, err := parseDraft(c.Body())
	if err != nil {
		return writeError(c, h.log, err)
	}
	id := c.Params("id")
	if err := h.service.Update(c.UserContext(), id, draft); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message": "Record updated successfully",
		"id":      id,
	})
}

// HandleDelete deletes a record and returns the page the listing should show.
func (h *RecordHandler[T]) HandleDelete(c *fiber.Ctx) error {
	page, err := pageParam(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	next, err := h.service.DeleteFromPage(c.UserContext(), c.Params("id"), c.Query("q"), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message": "Record deleted successfully",
		"page":    next,
	})
}

type streamEvent[T any] struct {
	State   string `json:"state"`
	Data    []T    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeEvent[T any](w *bufio.Writer, snap livesync.Snapshot[T]) error {
	body, err := json.Marshal(streamEvent[T]{State: snap.State.String(), Data: snap.Records, Message: snap.Message})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", body); err != nil {
		return err
	}
	return w.Flush()
}

// HandleStream pushes every new snapshot as a server-sent event until the
// client disconnects or the server stops.
func (h *RecordHandler[T]) HandleStream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	sync := h.service.Sync()
	updates := make(chan livesync.Snapshot[T], 1)
	cancel := sync.OnChange(func(s livesync.Snapshot[T]) {
		// keep only the latest snapshot for a slow client
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- s:
		default:
		}
	})
	initial := sync.Snapshot()
	path := c.Path()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ctx := context.Background()
		h.log.Debug(ctx, "stream opened", "path", path)

		ticker := time.NewTicker(streamKeepAlive)
		defer ticker.Stop()

		if err := writeEvent(w, initial); err != nil {
			return
		}
		for {
			select {
			case <-h.stop:
				return
			case snap := <-updates:
				if err := writeEvent(w, snap); err != nil {
					h.log.Debug(ctx, "stream closed", "path", path, "error", err)
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					h.log.Debug(ctx, "stream closed", "path", path, "error", err)
					return
				}
			}
		}
	})
	return nil
}
