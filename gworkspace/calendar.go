/*
calendar.go - Google Calendar as a reconcile.CalendarStore

PURPOSE:
  Lists, creates, updates and deletes events on one calendar. The Approval ID
  travels in a private extended property and in the description.

NOTES:
  Every mutation passes the configured sendUpdates value. A delete that finds
  the event already gone (404/410) counts as success.

SEE ALSO:
  - auth.go: Credentials and error mapping
  - reconcile/stores.go: CalendarStore interface
*/
package gworkspace

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/warp/leave-sync/reconcile"
)

// ApprovalIDProperty is the private extended property carrying the id.
const ApprovalIDProperty = "approvalId"

// CalendarConfig selects the calendar and how mutations notify attendees.
type CalendarConfig struct {
	CalendarID string
	// SendUpdates is "all", "externalOnly" or "none".
	SendUpdates string
	PageSize    int64
}

// Calendar implements reconcile.CalendarStore on Google Calendar.
type Calendar struct {
	svc    *calendar.Service
	cfg    CalendarConfig
	logger *zap.Logger
}

func NewCalendar(ctx context.Context, cfg CalendarConfig, logger *zap.Logger, opts ...option.ClientOption) (*Calendar, error) {
	if cfg.CalendarID == "" {
		return nil, fmt.Errorf("calendar id not configured")
	}
	if cfg.SendUpdates == "" {
		cfg.SendUpdates = "all"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 250
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Calendar{svc: svc, cfg: cfg, logger: logger.Named("gworkspace.calendar")}, nil
}

func (c *Calendar) List(ctx context.Context, pageToken string) (reconcile.EventPage, error) {
	call := c.svc.Events.List(c.cfg.CalendarID).MaxResults(c.cfg.PageSize).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Do()
	if err != nil {
		return reconcile.EventPage{}, storeError(err)
	}

	page := reconcile.EventPage{NextPageToken: res.NextPageToken}
	for _, ev := range res.Items {
		out := reconcile.CalendarEvent{
			ID:          ev.Id,
			Summary:     ev.Summary,
			Description: ev.Description,
		}
		if ev.ExtendedProperties != nil {
			out.ApprovalID = ev.ExtendedProperties.Private[ApprovalIDProperty]
		}
		if ev.Updated != "" {
			if t, err := time.Parse(time.RFC3339, ev.Updated); err == nil {
				out.Updated = t
			}
		}
		page.Events = append(page.Events, out)
	}
	return page, nil
}

func (c *Calendar) Create(ctx context.Context, body reconcile.EventBody) (string, error) {
	ev, err := c.svc.Events.Insert(c.cfg.CalendarID, toEvent(body)).
		SendUpdates(c.cfg.SendUpdates).
		Context(ctx).
		Do()
	if err != nil {
		return "", storeError(err)
	}
	c.logger.Debug("event created", zap.String("approval_id", body.ApprovalID), zap.String("event_id", ev.Id))
	return ev.Id, nil
}

func (c *Calendar) Update(ctx context.Context, eventID string, body reconcile.EventBody) error {
	_, err := c.svc.Events.Update(c.cfg.CalendarID, eventID, toEvent(body)).
		SendUpdates(c.cfg.SendUpdates).
		Context(ctx).
		Do()
	return storeError(err)
}

// Delete removes an event. An event that is already gone counts as deleted.
func (c *Calendar) Delete(ctx context.Context, eventID string) error {
	err := c.svc.Events.Delete(c.cfg.CalendarID, eventID).
		SendUpdates(c.cfg.SendUpdates).
		Context(ctx).
		Do()
	if err != nil && isGone(err) {
		c.logger.Warn("event already gone", zap.String("event_id", eventID))
		return nil
	}
	return storeError(err)
}

func toEvent(body reconcile.EventBody) *calendar.Event {
	ev := &calendar.Event{
		Summary:     body.Summary,
		Description: body.Description,
		Start: &calendar.EventDateTime{
			DateTime: body.Start.Format(time.RFC3339),
			TimeZone: body.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: body.End.Format(time.RFC3339),
			TimeZone: body.TimeZone,
		},
		Reminders: &calendar.EventReminders{
			UseDefault:      body.UseDefaultReminders,
			ForceSendFields: []string{"UseDefault"},
		},
	}
	if body.ApprovalID != "" {
		ev.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: map[string]string{ApprovalIDProperty: body.ApprovalID},
		}
	}
	return ev
}

var _ reconcile.CalendarStore = (*Calendar)(nil)
