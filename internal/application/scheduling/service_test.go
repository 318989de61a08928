package scheduling

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SessionSync/internal/application/calendar"
	"github.com/turtacn/SessionSync/internal/domain/appointment"
	"github.com/turtacn/SessionSync/internal/domain/timezone"
	"github.com/turtacn/SessionSync/internal/infrastructure/meetlink"
	"github.com/turtacn/SessionSync/internal/testutil"
	"github.com/turtacn/SessionSync/internal/testutil/memstore"
	"github.com/turtacn/SessionSync/pkg/errors"
)

var fixedNow = time.Date(2024, 9, 10, 9, 0, 0, 0, time.UTC)

type mockMeetProvider struct {
	mock.Mock
}

func (m *mockMeetProvider) CreateMeeting(ctx context.Context, req meetlink.MeetingRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []appointment.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e appointment.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func pendingRow(id string) *appointment.Appointment {
	return &appointment.Appointment{
		ID:             id,
		Date:           "2024-09-18",
		Time:           "14:00",
		HostTimezone:   "America/New_York",
		ViewerTimezone: "Europe/Paris",
		Status:         "en attente",
		HostName:       "Coach Martin",
		ViewerName:     "Jean Dupont",
	}
}

type fixture struct {
	svc   Service
	store *memstore.Store
	pub   *recordingPublisher
	log   *testutil.MockLogger
}

func newFixture(rows []*appointment.Appointment, opts ...Option) fixture {
	store := memstore.New(rows...)
	pub := &recordingPublisher{}
	log := testutil.NewMockLogger()
	opts = append([]Option{WithPublisher(pub), WithClock(func() time.Time { return fixedNow })}, opts...)
	svc := NewService(store, timezone.NewConverter(log), calendar.NewLinkBuilder(calendar.LinkConfig{}), log, opts...)
	return fixture{svc: svc, store: store, pub: pub, log: log}
}

func validInput() CreateInput {
	return CreateInput{
		Date:           "2024-09-18",
		Time:           "14:00",
		HostTimezone:   "America/New_York",
		ViewerTimezone: "Europe/Paris",
		HostName:       "Coach Martin",
		ViewerName:     "Jean Dupont",
	}
}

func TestCreate_StoresPendingAppointment(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	view, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "pending", view.Status)
	assert.Equal(t, appointment.StatusPending, view.CanonicalStatus)
	assert.Equal(t, ViewerView{Time: "20:00", Date: "2024-09-18"}, view.Viewer)
	assert.Equal(t, fixedNow, view.CreatedAt)

	stored := f.store.Get(view.ID)
	require.NotNil(t, stored)
	assert.Equal(t, "14:00", stored.Time)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, appointment.EventCreated, f.pub.events[0].EventType())
	assert.Equal(t, view.ID, f.pub.events[0].AggregateID())
}

func TestCreate_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*CreateInput)
		check  func(error) bool
	}{
		{"bad date", func(in *CreateInput) { in.Date = "18/09/2024" }, errors.IsValidation},
		{"bad time", func(in *CreateInput) { in.Time = "25:00" }, errors.IsValidation},
		{"missing viewer", func(in *CreateInput) { in.ViewerName = " " }, errors.IsValidation},
		{"negative duration", func(in *CreateInput) { in.DurationMinutes = -5 }, errors.IsValidation},
		{"unknown host zone", func(in *CreateInput) { in.HostTimezone = "Mars/Base" }, errors.IsTimezoneResolution},
		{"unknown viewer zone", func(in *CreateInput) { in.ViewerTimezone = "Moon/Crater" }, errors.IsTimezoneResolution},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(nil)
			in := validInput()
			tc.mutate(&in)

			_, err := f.svc.Create(context.Background(), in)
			require.Error(t, err)
			assert.True(t, tc.check(err), err.Error())
			assert.Empty(t, f.pub.events)
		})
	}
}

func TestGet_ViewerViewCrossesMidnight(t *testing.T) {
	t.Parallel()

	late := pendingRow("a-1")
	late.Time = "22:00"
	f := newFixture([]*appointment.Appointment{late})

	view, err := f.svc.Get(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Equal(t, ViewerView{Time: "04:00", Date: "2024-09-19", DayOffset: 1}, view.Viewer)
}

func TestGet_ViewerZoneFallback(t *testing.T) {
	t.Parallel()

	row := pendingRow("a-1")
	row.ViewerTimezone = "Atlantis/Deep"
	f := newFixture([]*appointment.Appointment{row})

	view, err := f.svc.Get(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Equal(t, ViewerView{Time: "14:00", Date: "2024-09-18", Fallback: true}, view.Viewer)
	assert.True(t, f.log.HasMessage("warn", "timezone fallback"))
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	_, err := f.svc.Get(context.Background(), "nope")
	assert.True(t, errors.IsNotFound(err))

	_, err = f.svc.Get(context.Background(), "  ")
	assert.True(t, errors.IsValidation(err))
}

func TestChangeStatus_ConfirmAttachesLinks(t *testing.T) {
	t.Parallel()

	meet := &mockMeetProvider{}
	meet.On("CreateMeeting", mock.Anything, mock.MatchedBy(func(r meetlink.MeetingRequest) bool {
		return r.AppointmentID == "a-1" &&
			r.Start.Equal(time.Date(2024, 9, 18, 18, 0, 0, 0, time.UTC)) &&
			r.End.Sub(r.Start) == 30*time.Minute
	})).Return("https://meet.example/xyz", nil).Once()

	f := newFixture([]*appointment.Appointment{pendingRow("a-1")}, WithMeetLinkProvider(meet))

	view, err := f.svc.ChangeStatus(context.Background(), "a-1", "Confirmé")
	require.NoError(t, err)
	meet.AssertExpectations(t)

	assert.Equal(t, "confirmed", view.Status)
	assert.Equal(t, "https://meet.example/xyz", view.MeetLink)
	assert.Contains(t, view.CalendarLink, "dates=20240918T180000Z%2F20240918T183000Z")

	stored := f.store.Get("a-1")
	assert.Equal(t, "confirmed", stored.Status)
	assert.Equal(t, view.CalendarLink, stored.CalendarLink)
	assert.Equal(t, 1, f.store.StatusWrites)

	require.Len(t, f.pub.events, 1)
	ev, ok := f.pub.events[0].(*appointment.StatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, appointment.StatusPending, ev.From)
	assert.Equal(t, appointment.StatusConfirmed, ev.To)
}

func TestChangeStatus_MeetLinkFailureIsIgnored(t *testing.T) {
	t.Parallel()

	meet := &mockMeetProvider{}
	meet.On("CreateMeeting", mock.Anything, mock.Anything).Return("", stderrors.New("provider down"))

	f := newFixture([]*appointment.Appointment{pendingRow("a-1")}, WithMeetLinkProvider(meet))

	view, err := f.svc.ChangeStatus(context.Background(), "a-1", "accepted")
	require.NoError(t, err)
	assert.Empty(t, view.MeetLink)
	assert.NotEmpty(t, view.CalendarLink)
	assert.True(t, f.log.HasMessage("warn", "meet link unavailable"))
}

func TestChangeStatus_DegradedLinkLeftEmpty(t *testing.T) {
	t.Parallel()

	row := pendingRow("a-1")
	row.HostName = ""
	f := newFixture([]*appointment.Appointment{row})

	view, err := f.svc.ChangeStatus(context.Background(), "a-1", "confirmed")
	require.NoError(t, err)
	assert.Empty(t, view.CalendarLink)
	assert.Equal(t, "confirmed", f.store.Get("a-1").Status)
	assert.True(t, f.log.HasMessage("warn", "calendar link degraded"))
}

func TestChangeStatus_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	done := pendingRow("done")
	done.Status = "terminé"
	f := newFixture([]*appointment.Appointment{pendingRow("a-1"), done})

	_, err := f.svc.ChangeStatus(context.Background(), "a-1", "completed")
	assert.True(t, errors.IsInvalidTransition(err))

	_, err = f.svc.ChangeStatus(context.Background(), "done", "pending")
	assert.True(t, errors.IsInvalidTransition(err))

	_, err = f.svc.ChangeStatus(context.Background(), "a-1", "maybe later")
	assert.True(t, errors.IsUnknownStatus(err))

	_, err = f.svc.ChangeStatus(context.Background(), "ghost", "confirmed")
	assert.True(t, errors.IsNotFound(err))

	assert.Zero(t, f.store.StatusWrites)
	assert.Empty(t, f.pub.events)
}

func TestChangeStatus_PersistenceErrorSurfaces(t *testing.T) {
	t.Parallel()

	f := newFixture([]*appointment.Appointment{pendingRow("a-1")})
	f.store.FailWrites["a-1"] = stderrors.New("connection reset")

	_, err := f.svc.ChangeStatus(context.Background(), "a-1", "rejected")
	assert.True(t, errors.IsPersistence(err))
	assert.Equal(t, "en attente", f.store.Get("a-1").Status)
	assert.Empty(t, f.pub.events)
}

func TestChangeStatus_ConcurrentConfirmBlocksReject(t *testing.T) {
	t.Parallel()

	f := newFixture([]*appointment.Appointment{pendingRow("a-1")})
	var once sync.Once
	f.store.BeforeWrite = func(id string) {
		once.Do(func() {
			other := pendingRow(id)
			other.Status = "confirmed"
			f.store.Set(other)
		})
	}

	_, err := f.svc.ChangeStatus(context.Background(), "a-1", "rejected")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidTransition(err), "got %v", err)

	stored := f.store.Get("a-1")
	require.NotNil(t, stored)
	assert.Equal(t, "confirmed", stored.Status)
	assert.Zero(t, f.store.StatusWrites)
	assert.Empty(t, f.pub.events)
}

func TestChangeStatus_RetriesAfterRespelledStatus(t *testing.T) {
	t.Parallel()

	f := newFixture([]*appointment.Appointment{pendingRow("a-1")})
	var once sync.Once
	f.store.BeforeWrite = func(id string) {
		once.Do(func() {
			other := pendingRow(id)
			other.Status = "Pending"
			f.store.Set(other)
		})
	}

	view, err := f.svc.ChangeStatus(context.Background(), "a-1", "rejected")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusRejected, view.CanonicalStatus)
	assert.Equal(t, 1, f.store.StatusWrites)
}

func TestChangeStatus_GivesUpAfterRepeatedStaleWrites(t *testing.T) {
	t.Parallel()

	f := newFixture([]*appointment.Appointment{pendingRow("a-1")})
	spellings := []string{"Pending", "pending", "EN ATTENTE", "en-attente"}
	n := 0
	f.store.BeforeWrite = func(id string) {
		other := pendingRow(id)
		other.Status = spellings[n%len(spellings)]
		n++
		f.store.Set(other)
	}

	_, err := f.svc.ChangeStatus(context.Background(), "a-1", "rejected")
	assert.True(t, errors.IsStaleStatus(err))
	assert.Equal(t, maxStatusAttempts, n)
	assert.Zero(t, f.store.StatusWrites)
}

func TestCalendarLink_And_ICS(t *testing.T) {
	t.Parallel()

	f := newFixture([]*appointment.Appointment{pendingRow("a-1")})

	res, err := f.svc.CalendarLink(context.Background(), "a-1")
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Contains(t, res.URL, "action=TEMPLATE")

	ics, err := f.svc.ICS(context.Background(), "a-1")
	require.NoError(t, err)
	body := string(ics)
	assert.Contains(t, body, "UID:a-1@sessionsync")
	assert.Contains(t, body, "DTSTART:20240918T180000Z")

	again, err := f.svc.ICS(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Equal(t, body, string(again))
}

func TestCalendarLink_UnresolvableHostZone(t *testing.T) {
	t.Parallel()

	row := pendingRow("a-1")
	row.HostTimezone = "Nowhere/Land"
	f := newFixture([]*appointment.Appointment{row})

	_, err := f.svc.CalendarLink(context.Background(), "a-1")
	assert.True(t, errors.IsTimezoneResolution(err))
	_, err = f.svc.ICS(context.Background(), "a-1")
	assert.True(t, errors.IsTimezoneResolution(err))
}

func TestConvert(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)

	out, err := f.svc.Convert(ConvertInput{Time: "10:00", Date: "2024-09-17", FromZone: "America/New_York", ToZone: "Europe/Zurich"})
	require.NoError(t, err)
	assert.Equal(t, "16:00", out.Time)
	assert.Empty(t, out.Warning)

	out, err = f.svc.Convert(ConvertInput{Time: "10:00", Date: "2024-09-17", FromZone: "Bogus/Zone", ToZone: "UTC"})
	require.NoError(t, err)
	assert.True(t, out.Fallback)
	assert.Equal(t, "10:00", out.Time)
	assert.True(t, strings.Contains(out.Warning, "Bogus/Zone"))

	_, err = f.svc.Convert(ConvertInput{Time: "noon", Date: "2024-09-17", FromZone: "UTC", ToZone: "UTC"})
	assert.True(t, errors.IsValidation(err))
}

//Personal.AI order the ending
