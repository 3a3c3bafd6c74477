package gcalendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/logger"
)

// Token source for outbound calendar calls
type tokenProvider interface {
	GetValidAccessToken(ctx context.Context, uid string) (string, error)
}

// Adapter performs event operations against the external calendar, always
// presenting a currently valid access token obtained through the broker.
//
// A 401 from the calendar means the token was revoked server-side after we
// considered it valid. That is propagated as apperrors.ErrSignedOut instead
// of a silent re-refresh: retrying against a revoked refresh token would
// loop forever.
type Adapter struct {
	broker tokenProvider
	logger logger.Logger

	// Extra client options, tests use option.WithEndpoint
	opts []option.ClientOption
}

func NewAdapter(broker tokenProvider, l logger.Logger, opts ...option.ClientOption) (*Adapter, error) {
	if broker == nil {
		return nil, errors.New("token provider must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Adapter{broker: broker, logger: l, opts: opts}, nil
}

// EnsureAuth reports whether calendar calls for the user can currently be
// authenticated without user interaction.
func (a *Adapter) EnsureAuth(ctx context.Context, uid string) bool {
	_, err := a.broker.GetValidAccessToken(ctx, uid)
	return err == nil
}

func (a *Adapter) ListEvents(ctx context.Context, uid string, calendarID string, from time.Time, to time.Time) ([]*calendar.Event, error) {
	svc, err := a.service(ctx, uid)
	if err != nil {
		return nil, err
	}

	call := svc.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if !from.IsZero() {
		call = call.TimeMin(from.Format(time.RFC3339))
	}
	if !to.IsZero() {
		call = call.TimeMax(to.Format(time.RFC3339))
	}

	events, err := call.Do()
	if err != nil {
		return nil, a.classify("list events", err)
	}
	return events.Items, nil
}

func (a *Adapter) InsertEvent(ctx context.Context, uid string, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	svc, err := a.service(ctx, uid)
	if err != nil {
		return nil, err
	}

	created, err := svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, a.classify("insert event", err)
	}
	return created, nil
}

func (a *Adapter) UpdateEvent(ctx context.Context, uid string, calendarID string, eventID string, event *calendar.Event) (*calendar.Event, error) {
	svc, err := a.service(ctx, uid)
	if err != nil {
		return nil, err
	}

	updated, err := svc.Events.Update(calendarID, eventID, event).Context(ctx).Do()
	if err != nil {
		return nil, a.classify("update event", err)
	}
	return updated, nil
}

func (a *Adapter) DeleteEvent(ctx context.Context, uid string, calendarID string, eventID string) error {
	svc, err := a.service(ctx, uid)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return a.classify("delete event", err)
	}
	return nil
}

// service builds a calendar client carrying the user's current access token
func (a *Adapter) service(ctx context.Context, uid string) (*calendar.Service, error) {
	token, err := a.broker.GetValidAccessToken(ctx, uid)
	if err != nil {
		return nil, err
	}

	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})),
	}, a.opts...)

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("can't build calendar client: %w", err)
	}
	return svc, nil
}

func (a *Adapter) classify(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		a.logger.Warn("Calendar rejected access token", "op", op)
		return fmt.Errorf("%s: %w", op, apperrors.ErrSignedOut)
	}
	return fmt.Errorf("%s: %w", op, err)
}
