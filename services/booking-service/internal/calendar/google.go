package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/homefix/calbook/services/booking-service/internal/timeconv"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleClient talks to one Google Calendar through the v3 API.
type GoogleClient struct {
	svc        *gcal.Service
	calendarID string
}

// NewGoogleClient builds a client from a service-account or authorized-user
// credentials file. Extra options are appended, mainly for tests.
func NewGoogleClient(ctx context.Context, calendarID, credentialsFile string, opts ...option.ClientOption) (*GoogleClient, error) {
	if calendarID == "" {
		return nil, errors.New("calendar id is required")
	}
	base := []option.ClientOption{option.WithScopes(gcal.CalendarScope)}
	if credentialsFile != "" {
		base = append(base, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gcal.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	return &GoogleClient{svc: svc, calendarID: calendarID}, nil
}

func (c *GoogleClient) ListEvents(ctx context.Context, w Window) ([]Event, error) {
	var out []Event
	call := c.svc.Events.List(c.calendarID).
		TimeMin(w.Start.Format(time.RFC3339)).
		TimeMax(w.End.Format(time.RFC3339)).
		SingleEvents(true).
		MaxResults(250)
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			e, err := fromAPI(item)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (c *GoogleClient) CreateEvent(ctx context.Context, e NewEvent) (Event, error) {
	colorID := e.ColorID
	if colorID == "" {
		colorID = "1"
	}
	body := &gcal.Event{
		Id:           e.ID,
		Summary:      e.Summary,
		Description:  e.Description,
		Start:        &gcal.EventDateTime{DateTime: timeconv.Format(e.Window.Start), TimeZone: timeconv.Zone},
		End:          &gcal.EventDateTime{DateTime: timeconv.Format(e.Window.End), TimeZone: timeconv.Zone},
		ColorId:      colorID,
		Status:       "confirmed",
		Transparency: "opaque",
		Visibility:   "private",
	}
	if len(e.Properties) > 0 {
		body.ExtendedProperties = &gcal.EventExtendedProperties{Private: e.Properties}
	}
	created, err := c.svc.Events.Insert(c.calendarID, body).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return Event{}, mapError(err)
	}
	return fromAPI(created)
}

func (c *GoogleClient) UpdateEvent(ctx context.Context, id string, u EventUpdate) (Event, error) {
	patch := &gcal.Event{Summary: u.Summary, ColorId: u.ColorID}
	updated, err := c.svc.Events.Patch(c.calendarID, id, patch).Context(ctx).Do()
	if err != nil {
		return Event{}, mapError(err)
	}
	return fromAPI(updated)
}

func fromAPI(item *gcal.Event) (Event, error) {
	if item.Start == nil || item.End == nil {
		return Event{}, fmt.Errorf("event %s: %w: missing start or end", item.Id, timeconv.ErrParse)
	}
	e := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		ColorID:     item.ColorId,
		Status:      item.Status,
	}
	if item.ExtendedProperties != nil {
		e.Properties = item.ExtendedProperties.Private
	}

	var err error
	if item.Start.Date != "" && item.End.Date != "" {
		e.AllDay = true
		if e.Window.Start, err = timeconv.ParseDate(item.Start.Date); err != nil {
			return Event{}, fmt.Errorf("event %s: %w", item.Id, err)
		}
		if e.Window.End, err = timeconv.ParseDate(item.End.Date); err != nil {
			return Event{}, fmt.Errorf("event %s: %w", item.Id, err)
		}
		return e, nil
	}
	if e.Window.Start, err = timeconv.ParseUTCInstant(item.Start.DateTime); err != nil {
		return Event{}, fmt.Errorf("event %s: %w", item.Id, err)
	}
	if e.Window.End, err = timeconv.ParseUTCInstant(item.End.DateTime); err != nil {
		return Event{}, fmt.Errorf("event %s: %w", item.Id, err)
	}
	return e, nil
}

func mapError(err error) error {
	if errors.Is(err, timeconv.ErrParse) || errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound, http.StatusGone:
			return fmt.Errorf("%w: %v", ErrEventNotFound, err)
		case http.StatusConflict:
			return fmt.Errorf("%w: %v", ErrEventExists, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
