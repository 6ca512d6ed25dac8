// Package memory provides in-memory CalendarStore and SheetStore
// implementations for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/warp/leave-sync/generic"
	"github.com/warp/leave-sync/reconcile"
)

// =============================================================================
// CALENDAR
// =============================================================================

type Calendar struct {
	mu     sync.Mutex
	events map[string]reconcile.CalendarEvent
	bodies map[string]reconcile.EventBody
	order  []string
	nextID int
	fail   map[generic.MutationOp]map[string]error

	// PageSize bounds List pages. Zero means 250.
	PageSize int

	Creates int
	Updates int
	Deletes int
}

func NewCalendar() *Calendar {
	return &Calendar{
		events: make(map[string]reconcile.CalendarEvent),
		bodies: make(map[string]reconcile.EventBody),
		fail:   make(map[generic.MutationOp]map[string]error),
	}
}

// FailOn makes op fail with err for approvalID.
func (c *Calendar) FailOn(op generic.MutationOp, approvalID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail[op] == nil {
		c.fail[op] = make(map[string]error)
	}
	c.fail[op][approvalID] = err
}

// Seed adds an event directly, bypassing counters. Returns its id.
func (c *Calendar) Seed(ev reconcile.CalendarEvent) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.ID == "" {
		ev.ID = c.newIDLocked()
	}
	if _, ok := c.events[ev.ID]; !ok {
		c.order = append(c.order, ev.ID)
	}
	c.events[ev.ID] = ev
	return ev.ID
}

func (c *Calendar) List(ctx context.Context, pageToken string) (reconcile.EventPage, error) {
	if err := ctx.Err(); err != nil {
		return reconcile.EventPage{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return reconcile.EventPage{}, &generic.RejectedError{StatusCode: 400, Message: "invalid page token"}
		}
		offset = n
	}
	size := c.PageSize
	if size <= 0 {
		size = 250
	}
	var page reconcile.EventPage
	for i := offset; i < len(c.order) && len(page.Events) < size; i++ {
		page.Events = append(page.Events, c.events[c.order[i]])
	}
	if next := offset + size; next < len(c.order) {
		page.NextPageToken = strconv.Itoa(next)
	}
	return page, nil
}

func (c *Calendar) Create(ctx context.Context, body reconcile.EventBody) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.failLocked(generic.OpCreate, body.ApprovalID); err != nil {
		return "", err
	}
	id := c.newIDLocked()
	c.events[id] = eventFromBody(id, body)
	c.bodies[id] = body
	c.order = append(c.order, id)
	c.Creates++
	return id, nil
}

func (c *Calendar) Update(ctx context.Context, eventID string, body reconcile.EventBody) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.failLocked(generic.OpUpdate, body.ApprovalID); err != nil {
		return err
	}
	if _, ok := c.events[eventID]; !ok {
		return &generic.RejectedError{StatusCode: 404, Message: "event not found"}
	}
	c.events[eventID] = eventFromBody(eventID, body)
	c.bodies[eventID] = body
	c.Updates++
	return nil
}

func (c *Calendar) Delete(ctx context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.events[eventID]
	if !ok {
		return &generic.RejectedError{StatusCode: 410, Message: "event already deleted"}
	}
	if err := c.failLocked(generic.OpDelete, approvalIDOf(ev)); err != nil {
		return err
	}
	delete(c.events, eventID)
	delete(c.bodies, eventID)
	for i, id := range c.order {
		if id == eventID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.Deletes++
	return nil
}

// Body returns the last body written for eventID.
func (c *Calendar) Body(eventID string) (reconcile.EventBody, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bodies[eventID]
	return b, ok
}

// EventIDFor returns the id of the event carrying approvalID.
func (c *Calendar) EventIDFor(approvalID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.order {
		if approvalIDOf(c.events[id]) == approvalID {
			return id, true
		}
	}
	return "", false
}

// ApprovalIDs lists the ids carried by current events, sorted.
func (c *Calendar) ApprovalIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, id := range c.order {
		if a := approvalIDOf(c.events[id]); a != "" {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Calendar) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Mutations is the total number of create, update and delete calls that succeeded.
func (c *Calendar) Mutations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Creates + c.Updates + c.Deletes
}

func (c *Calendar) failLocked(op generic.MutationOp, approvalID string) error {
	if m := c.fail[op]; m != nil {
		if err, ok := m[approvalID]; ok {
			return err
		}
	}
	return nil
}

func (c *Calendar) newIDLocked() string {
	c.nextID++
	return fmt.Sprintf("evt-%04d", c.nextID)
}

func eventFromBody(id string, body reconcile.EventBody) reconcile.CalendarEvent {
	return reconcile.CalendarEvent{
		ID:          id,
		Summary:     body.Summary,
		Description: body.Description,
		ApprovalID:  body.ApprovalID,
		Updated:     time.Now().UTC(),
	}
}

func approvalIDOf(ev reconcile.CalendarEvent) string {
	if ev.ApprovalID != "" {
		return ev.ApprovalID
	}
	return parseDescriptionID(ev.Description)
}

var _ reconcile.CalendarStore = (*Calendar)(nil)
