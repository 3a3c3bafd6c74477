package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/tasaciones/crm-backend/internal/apperrors"
)

func Test_CalendarEventsHandler(t *testing.T) {
	t.Parallel()

	t.Run("list", func(t *testing.T) {
		t.Run("ok", func(t *testing.T) {
			adapter := &adapterStub{
				listFn: func(_ context.Context, uid string, calendarID string, from time.Time, to time.Time) ([]*calendar.Event, error) {
					require.Equal(t, "user-1", uid)
					require.Equal(t, "primary", calendarID, "calendar id should default to primary")
					require.Equal(t, "2025-06-01T00:00:00Z", from.Format(time.RFC3339))
					require.True(t, to.IsZero(), "missing window end should stay zero")

					return []*calendar.Event{{
						Id:      "ev-1",
						Summary: "Visita tasación",
						Start:   &calendar.EventDateTime{DateTime: "2025-06-02T10:00:00Z"},
						End:     &calendar.EventDateTime{DateTime: "2025-06-02T11:00:00Z"},
					}}, nil
				},
			}
			srv := newTestServer(t, serverOpts{adapter: adapter})

			resp, err := http.Get(srv.URL + "/api/calendar/events?uid=user-1&from=2025-06-01T00:00:00Z")
			require.NoError(t, err)
			body := readBody(t, resp)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"success": true,
					"events": [
						{
							"id": "ev-1",
							"summary": "Visita tasación",
							"start": "2025-06-02T10:00:00Z",
							"end": "2025-06-02T11:00:00Z"
						}
					]
				}`, body)
		})

		t.Run("missing uid", func(t *testing.T) {
			srv := newTestServer(t, serverOpts{})

			resp, err := http.Get(srv.URL + "/api/calendar/events")
			require.NoError(t, err)
			_ = readBody(t, resp)

			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})

		t.Run("malformed window", func(t *testing.T) {
			srv := newTestServer(t, serverOpts{})

			resp, err := http.Get(srv.URL + "/api/calendar/events?uid=user-1&from=yesterday")
			require.NoError(t, err)
			body := readBody(t, resp)

			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Contains(t, body, "RFC 3339")
		})

		t.Run("revoked upstream means signed out", func(t *testing.T) {
			adapter := &adapterStub{
				listFn: func(_ context.Context, _ string, _ string, _ time.Time, _ time.Time) ([]*calendar.Event, error) {
					return nil, fmt.Errorf("list events: %w", apperrors.ErrSignedOut)
				},
			}
			srv := newTestServer(t, serverOpts{adapter: adapter})

			resp, err := http.Get(srv.URL + "/api/calendar/events?uid=user-1")
			require.NoError(t, err)
			body := readBody(t, resp)

			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.JSONEq(t, `
				{
					"success": false,
					"error": "Calendar authorization rejected. Sign in again."
				}`, body)
		})

		t.Run("no integration", func(t *testing.T) {
			adapter := &adapterStub{
				listFn: func(_ context.Context, _ string, _ string, _ time.Time, _ time.Time) ([]*calendar.Event, error) {
					return nil, fmt.Errorf("repo error: %w", apperrors.ErrIntegrationNotFound)
				},
			}
			srv := newTestServer(t, serverOpts{adapter: adapter})

			resp, err := http.Get(srv.URL + "/api/calendar/events?uid=user-1")
			require.NoError(t, err)
			_ = readBody(t, resp)

			require.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	})

	t.Run("insert", func(t *testing.T) {
		t.Run("ok", func(t *testing.T) {
			adapter := &adapterStub{
				insertFn: func(_ context.Context, uid string, calendarID string, event *calendar.Event) (*calendar.Event, error) {
					require.Equal(t, "user-1", uid)
					require.Equal(t, "work", calendarID)
					require.Equal(t, "Tasación", event.Summary)
					require.Equal(t, "2025-06-02T10:00:00Z", event.Start.DateTime)

					event.Id = "ev-new"
					return event, nil
				},
			}
			srv := newTestServer(t, serverOpts{adapter: adapter})

			data := `{
				"uid": "user-1",
				"calendar_id": "work",
				"summary": "Tasación",
				"start": "2025-06-02T10:00:00Z",
				"end": "2025-06-02T11:00:00Z"
			}`
			resp, err := http.Post(srv.URL+"/api/calendar/events", "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body := readBody(t, resp)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.Contains(t, body, `"id":"ev-new"`)
		})

		t.Run("missing fields", func(t *testing.T) {
			srv := newTestServer(t, serverOpts{})

			resp, err := http.Post(srv.URL+"/api/calendar/events", "application/json", strings.NewReader(`{"uid": "user-1"}`))
			require.NoError(t, err)
			body := readBody(t, resp)

			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Contains(t, body, "summary")
		})
	})

	t.Run("update", func(t *testing.T) {
		adapter := &adapterStub{
			updateFn: func(_ context.Context, uid string, calendarID string, eventID string, event *calendar.Event) (*calendar.Event, error) {
				require.Equal(t, "ev-1", eventID)
				event.Id = eventID
				return event, nil
			},
		}
		srv := newTestServer(t, serverOpts{adapter: adapter})

		data := `{
			"uid": "user-1",
			"summary": "Tasación (moved)",
			"start": "2025-06-03T10:00:00Z",
			"end": "2025-06-03T11:00:00Z"
		}`
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/calendar/events/ev-1", strings.NewReader(data))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		body := readBody(t, resp)

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
		require.Contains(t, body, `"id":"ev-1"`)
	})

	t.Run("delete", func(t *testing.T) {
		adapter := &adapterStub{
			deleteFn: func(_ context.Context, uid string, calendarID string, eventID string) error {
				require.Equal(t, "user-1", uid)
				require.Equal(t, "ev-1", eventID)
				return nil
			},
		}
		srv := newTestServer(t, serverOpts{adapter: adapter})

		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/calendar/events/ev-1?uid=user-1", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		body := readBody(t, resp)

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
		require.JSONEq(t, `{"success": true}`, body)
	})
}
