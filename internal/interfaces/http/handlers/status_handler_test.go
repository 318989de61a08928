package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SessionSync/internal/application/scheduling"
	"github.com/turtacn/SessionSync/internal/domain/appointment"
)

func TestTimezoneHandler_Convert(t *testing.T) {
	t.Parallel()
	f := newAPIFixture()

	w := f.do(t, http.MethodPost, "/api/v1/timezone/convert", scheduling.ConvertInput{
		Time: "10:00", Date: "2024-09-17", FromZone: "America/New_York", ToZone: "Europe/Zurich",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res scheduling.ConvertResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "16:00", res.Time)
	assert.Equal(t, "2024-09-17", res.Date)
	assert.False(t, res.Fallback)
	assert.Empty(t, res.Warning)
}

func TestTimezoneHandler_ConvertFallback(t *testing.T) {
	t.Parallel()
	f := newAPIFixture()

	w := f.do(t, http.MethodPost, "/api/v1/timezone/convert", scheduling.ConvertInput{
		Time: "10:00", Date: "2024-09-17", FromZone: "Bogus/Zone", ToZone: "UTC",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var res scheduling.ConvertResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Fallback)
	assert.Equal(t, "10:00", res.Time)
	assert.Contains(t, res.Warning, "Bogus/Zone")
}

func TestTimezoneHandler_ConvertInvalidTime(t *testing.T) {
	t.Parallel()
	f := newAPIFixture()

	w := f.do(t, http.MethodPost, "/api/v1/timezone/convert", scheduling.ConvertInput{
		Time: "noon", Date: "2024-09-17", FromZone: "UTC", ToZone: "UTC",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "COMMON_010", decodeError(t, w).Code)
}

func TestStatusHandler_Classify(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input    string
		locale   string
		status   appointment.Status
		label    string
		terminal bool
	}{
		{input: "Confirmé", locale: "fr", status: appointment.StatusConfirmed, label: "Confirmé"},
		{input: "en attente", locale: "en-US", status: appointment.StatusPending, label: "Pending"},
		{input: "ANNULÉ", status: appointment.StatusRejected, label: "Rejected", terminal: true},
		{input: "done", locale: "fr_CA", status: appointment.StatusCompleted, label: "Terminé", terminal: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			f := newAPIFixture()

			w := f.do(t, http.MethodPost, "/api/v1/statuses/classify", ClassifyRequest{Status: tc.input, Locale: tc.locale})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var res ClassifyResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, tc.input, res.Input)
			assert.Equal(t, tc.status, res.Status)
			assert.Equal(t, tc.label, res.Label)
			assert.Equal(t, tc.terminal, res.Terminal)
			assert.Equal(t, tc.status.Next(), res.Next)
			assert.Equal(t, string(tc.status), res.Aliases[0])
		})
	}
}

func TestStatusHandler_ClassifyUnknown(t *testing.T) {
	t.Parallel()
	f := newAPIFixture()

	w := f.do(t, http.MethodPost, "/api/v1/statuses/classify", ClassifyRequest{Status: "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "APT_003", body.Code)
	assert.Equal(t, `unknown appointment status: status="maybe"`, body.Message)
}

func TestStatusHandler_Transition(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		req    TransitionRequest
		status int
		code   string
	}{
		{name: "pending to confirmed", req: TransitionRequest{From: "en attente", To: "accepté"}, status: http.StatusOK},
		{name: "pending to rejected", req: TransitionRequest{From: "pending", To: "refusé"}, status: http.StatusOK},
		{name: "confirmed to completed", req: TransitionRequest{From: "confirmé", To: "terminé"}, status: http.StatusOK},
		{name: "rejected to confirmed", req: TransitionRequest{From: "rejected", To: "confirmed"}, status: http.StatusConflict, code: "APT_002"},
		{name: "pending to completed", req: TransitionRequest{From: "pending", To: "completed"}, status: http.StatusConflict, code: "APT_002"},
		{name: "unknown source", req: TransitionRequest{From: "limbo", To: "confirmed"}, status: http.StatusBadRequest, code: "APT_003"},
		{name: "missing target", req: TransitionRequest{From: "pending"}, status: http.StatusBadRequest, code: "COMMON_010"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newAPIFixture()

			w := f.do(t, http.MethodPost, "/api/v1/statuses/transition", tc.req)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			if tc.code != "" {
				assert.Equal(t, tc.code, decodeError(t, w).Code)
				return
			}
			var res TransitionResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.True(t, res.Allowed)
		})
	}
}

//Personal.AI order the ending
