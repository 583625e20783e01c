package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	appointmentRepo "govbook/database/repository/appointment"
	notificationRepo "govbook/database/repository/notification"
	timeslotRepo "govbook/database/repository/timeslot"
	"govbook/metrics"
	"govbook/models"
	"govbook/services/catalog"
	"govbook/services/notification"
	"govbook/services/numbering"
	"govbook/services/slots"
)

var fixedNow = time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)

var testCatalog = []models.ServiceInfo{
	{Department: "passports", Service: "renewal", MaxAdvanceBookingDays: 30, AppointmentDurationMinutes: 30, IsActive: true, DefaultSlotCapacity: 1},
	{Department: "passports", Service: "collection", MaxAdvanceBookingDays: 30, AppointmentDurationMinutes: 15, IsActive: true, DefaultSlotCapacity: 2},
	{Department: "passports", Service: "legacy", MaxAdvanceBookingDays: 30, AppointmentDurationMinutes: 30, IsActive: false},
}

type EngineSuite struct {
	suite.Suite
	ctx           context.Context
	slotStore     *timeslotRepo.InMemory
	apptStore     *appointmentRepo.InMemory
	notifications *notificationRepo.InMemory
	metrics       *metrics.Metrics
	engine        *Engine
	cfg           Config

	officer models.Principal
	admin   models.Principal
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.slotStore = timeslotRepo.NewInMemory()
	s.apptStore = appointmentRepo.NewInMemory()
	s.notifications = notificationRepo.NewInMemory()
	s.metrics = metrics.New()
	s.cfg = Config{Location: time.UTC, DefaultSlotCapacity: 1, FeedbackCommentMaxLength: 1000}
	s.officer = models.Principal{UserID: "officer-1", Role: models.RoleOfficer}
	s.admin = models.Principal{UserID: "admin-1", Role: models.RoleAdmin}
	s.engine = s.build(s.slotStore, s.apptStore, notification.NewStoreNotifier(s.notifications))
}

func (s *EngineSuite) build(slotRepo timeslotRepo.TimeSlotRepository, apptRepo appointmentRepo.AppointmentRepository, notifier notification.Notifier) *Engine {
	return NewEngine(Deps{
		Appointments: apptRepo,
		Slots:        slots.NewManager(slotRepo, s.metrics, nil),
		Catalog:      catalog.NewStaticCatalog(testCatalog),
		Numbers:      numbering.NewGenerator("APT", 5, nil, numbering.WithClock(func() time.Time { return fixedNow })),
		Notifier:     notifier,
		Metrics:      s.metrics,
		Clock:        func() time.Time { return fixedNow },
		BackOff:      func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}, s.cfg)
}

func citizen(n int) models.Principal {
	return models.Principal{UserID: fmt.Sprintf("citizen-%d", n), Role: models.RoleCitizen}
}

func booking(service, date, clock string) models.BookingInput {
	return models.BookingInput{Department: "passports", Service: service, Date: date, Time: clock}
}

// findSlot returns the stored slot starting at clock, or nil when none was provisioned.
func (s *EngineSuite) findSlot(service, date, clock string) *models.TimeSlot {
	list, err := s.slotStore.List(s.ctx, "passports", service, date)
	s.Require().NoError(err)
	for i := range list {
		if list[i].StartTime == clock {
			return &list[i]
		}
	}
	return nil
}

func (s *EngineSuite) slotAt(service, date, clock string) *models.TimeSlot {
	slot := s.findSlot(service, date, clock)
	s.Require().NotNil(slot, "no slot at %s %s", date, clock)
	return slot
}

func (s *EngineSuite) book(p models.Principal, service, date, clock string) *models.Appointment {
	appt, err := s.engine.Book(s.ctx, p, booking(service, date, clock))
	s.Require().NoError(err)
	return appt
}

func (s *EngineSuite) TestBookCreatesPendingAppointment() {
	appt := s.book(citizen(1), "renewal", "2030-01-10", "09:00")

	s.Equal(models.StatusPending, appt.Status)
	s.Regexp(`^APT-300101-[A-Z2-7]{6}$`, appt.AppointmentNumber)
	s.Equal("09:30", appt.EndTime)
	s.Equal(models.PriorityNormal, appt.Priority)
	s.Empty(appt.RescheduleHistory)

	slot := s.slotAt("renewal", "2030-01-10", "09:00")
	s.Equal(appt.SlotID, slot.ID)
	s.Equal(1, slot.CurrentCount)
	s.Equal([]string{appt.ID}, slot.Appointments)
	s.Equal(appt.ID, appt.ReservationRef)

	recs := s.notifications.All()
	s.Require().Len(recs, 1)
	s.Equal(models.NotifyBooked, recs[0].Type)
	s.Equal(appt.AppointmentNumber, recs[0].Recipient.AppointmentNumber)
}

func (s *EngineSuite) TestBookFillsSlotThenRejects() {
	s.book(citizen(1), "collection", "2030-01-10", "09:00")
	s.book(citizen(2), "collection", "2030-01-10", "09:00")

	_, err := s.engine.Book(s.ctx, citizen(3), booking("collection", "2030-01-10", "09:00"))
	s.ErrorIs(err, models.ErrSlotFull)

	slot := s.slotAt("collection", "2030-01-10", "09:00")
	s.Equal(2, slot.CurrentCount)
	s.Equal(2, slot.MaxCapacity)
	s.False(slot.IsAvailable)
}

func (s *EngineSuite) TestConcurrentBookingsNeverOverbook() {
	const callers = 20
	var mu sync.Mutex
	var booked, full int

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		p := citizen(i)
		g.Go(func() error {
			_, err := s.engine.Book(s.ctx, p, booking("renewal", "2030-01-10", "10:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case errors.Is(err, models.ErrSlotFull):
				full++
			default:
				return err
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	s.Equal(1, booked)
	s.Equal(callers-1, full)
	s.Equal(1, s.slotAt("renewal", "2030-01-10", "10:00").CurrentCount)
}

func (s *EngineSuite) TestBookingWindow() {
	cases := []struct {
		name string
		date string
		time string
		want error
	}{
		{"yesterday", "2029-12-31", "09:00", models.ErrInvalidBookingWindow},
		{"earlier today", "2030-01-01", "07:30", models.ErrInvalidBookingWindow},
		{"beyond max advance days", "2030-02-01", "09:00", models.ErrInvalidBookingWindow},
		{"malformed date", "01/10/2030", "09:00", models.ErrValidation},
		{"malformed time", "2030-01-10", "9am", models.ErrValidation},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.engine.Book(s.ctx, citizen(1), booking("renewal", tc.date, tc.time))
			s.ErrorIs(err, tc.want)
		})
	}

	s.Run("last day of the window is accepted", func() {
		s.book(citizen(1), "renewal", "2030-01-31", "09:00")
	})

	s.Len(s.notifications.All(), 1)
}

func (s *EngineSuite) TestAppointmentsEndBeforeMidnight() {
	for _, clock := range []string{"23:45", "23:30"} {
		_, err := s.engine.Book(s.ctx, citizen(1), booking("renewal", "2030-01-10", clock))
		s.ErrorIs(err, models.ErrValidation, clock)
		s.Nil(s.findSlot("renewal", "2030-01-10", clock))
	}

	late := s.book(citizen(1), "renewal", "2030-01-10", "23:15")
	s.Equal("23:45", late.EndTime)

	_, err := s.engine.Reschedule(s.ctx, citizen(1), late.AppointmentNumber, models.RescheduleInput{Date: "2030-01-11", Time: "23:50"})
	s.ErrorIs(err, models.ErrValidation)
	s.Equal(1, s.slotAt("renewal", "2030-01-10", "23:15").CurrentCount)
}

func (s *EngineSuite) TestBookRejectsInactiveAndUnknownServices() {
	_, err := s.engine.Book(s.ctx, citizen(1), booking("legacy", "2030-01-10", "09:00"))
	s.ErrorIs(err, models.ErrValidation)

	_, err = s.engine.Book(s.ctx, citizen(1), booking("unknown", "2030-01-10", "09:00"))
	s.ErrorIs(err, models.ErrValidation)

	s.Nil(s.findSlot("legacy", "2030-01-10", "09:00"))
}

func (s *EngineSuite) TestBookRequiresCitizen() {
	_, err := s.engine.Book(s.ctx, s.officer, booking("renewal", "2030-01-10", "09:00"))
	s.ErrorIs(err, models.ErrForbidden)
}

func (s *EngineSuite) TestDuplicateActiveBookingPolicy() {
	s.book(citizen(1), "renewal", "2030-01-10", "09:00")

	_, err := s.engine.Book(s.ctx, citizen(1), booking("renewal", "2030-01-11", "09:00"))
	s.ErrorIs(err, models.ErrDuplicateBooking)

	// A different service is unaffected.
	s.book(citizen(1), "collection", "2030-01-11", "09:00")

	s.Run("allowed when configured", func() {
		s.cfg.AllowDuplicateActiveBookings = true
		engine := s.build(s.slotStore, s.apptStore, nil)
		_, err := engine.Book(s.ctx, citizen(1), booking("renewal", "2030-01-12", "09:00"))
		s.NoError(err)
	})
}

func (s *EngineSuite) TestFullLifecycleWithFeedback() {
	owner := citizen(1)
	appt := s.book(owner, "renewal", "2030-01-10", "09:00")

	confirmed, err := s.engine.Confirm(s.ctx, s.officer, appt.AppointmentNumber, models.TransitionInput{Notes: "bring old passport"})
	s.Require().NoError(err)
	s.Equal(models.StatusConfirmed, confirmed.Status)
	s.Equal("officer-1", confirmed.Officer)
	s.Equal("bring old passport", confirmed.Notes.Officer)
	s.Require().NotNil(confirmed.ConfirmedAt)

	started, err := s.engine.Start(s.ctx, s.officer, appt.AppointmentNumber, models.TransitionInput{})
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, started.Status)

	completed, err := s.engine.Complete(s.ctx, s.officer, appt.AppointmentNumber, models.TransitionInput{})
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, completed.Status)
	s.Require().NotNil(completed.CompletedAt)

	withFeedback, err := s.engine.SubmitFeedback(s.ctx, owner, appt.AppointmentNumber, models.FeedbackInput{Rating: 5, Comment: "Great"})
	s.Require().NoError(err)
	s.Require().NotNil(withFeedback.Feedback)
	s.Equal(5, withFeedback.Feedback.Rating)
	s.Equal("Great", withFeedback.Feedback.Comment)
	s.True(withFeedback.Feedback.SubmittedAt.Equal(fixedNow))

	_, err = s.engine.SubmitFeedback(s.ctx, owner, appt.AppointmentNumber, models.FeedbackInput{Rating: 1})
	s.ErrorIs(err, models.ErrDuplicateFeedback)

	stored, err := s.engine.Get(s.ctx, owner, appt.AppointmentNumber)
	s.Require().NoError(err)
	s.Equal(5, stored.Feedback.Rating)
	s.Equal(appt.AppointmentNumber, stored.AppointmentNumber)

	// Completion keeps the historical count.
	s.Equal(1, s.slotAt("renewal", "2030-01-10", "09:00").CurrentCount)

	var kinds []models.NotificationType
	for _, rec := range s.notifications.All() {
		kinds = append(kinds, rec.Type)
	}
	s.Equal([]models.NotificationType{models.NotifyBooked, models.NotifyConfirmed, models.NotifyCompleted}, kinds)
}

func (s *EngineSuite) TestFeedbackGuards() {
	owner := citizen(1)
	appt := s.book(owner, "renewal", "2030-01-10", "09:00")

	s.Run("pending appointments cannot be rated", func() {
		_, err := s.engine.SubmitFeedback(s.ctx, owner, appt.AppointmentNumber, models.FeedbackInput{Rating: 4})
		s.ErrorIs(err, models.ErrInvalidTransition)
	})

	for _, step := range []func(context.Context, models.Principal, string, models.TransitionInput) (*models.Appointment, error){
		s.engine.Confirm, s.engine.Start, s.engine.Complete,
	} {
		_, err := step(s.ctx, s.officer, appt.AppointmentNumber, models.TransitionInput{})
		s.Require().NoError(err)
	}

	s.Run("rating out of range", func() {
		for _, rating := range []int{0, 6, -1} {
			_, err := s.engine.SubmitFeedback(s.ctx, owner, appt.AppointmentNumber, models.FeedbackInput{Rating: rating})
			s.ErrorIs(err, models.ErrValidation)
		}
	})

	s.Run("comment over the ceiling is rejected, not truncated", func() {
		_, err := s.engine.SubmitFeedback(s.ctx, owner, appt.AppointmentNumber, models.FeedbackInput{Rating: 3, Comment: strings.Repeat("é", 1001)})
		s.ErrorIs(err, models.ErrValidation)
	})

	s.Run("only the owner may rate", func() {
		_, err := s.engine.SubmitFeedback(s.ctx, citizen(2), appt.AppointmentNumber, models.FeedbackInput{Rating: 3})
		s.ErrorIs(err, models.ErrForbidden)
		_, err = s.engine.SubmitFeedback(s.ctx, s.officer, appt.AppointmentNumber, models.FeedbackInput{Rating: 3})
		s.ErrorIs(err, models.ErrForbidden)
	})

	s.Run("comment at the ceiling is accepted", func() {
		got, err := s.engine.SubmitFeedback(s.ctx, owner, appt.AppointmentNumber, models.FeedbackInput{Rating: 3, Comment: strings.Repeat("é", 1000)})
		s.Require().NoError(err)
		s.Equal(1000, len([]rune(got.Feedback.Comment)))
	})
}

func (s *EngineSuite) TestRescheduleMovesCapacity() {
	owner := citizen(1)
	appt := s.book(owner, "renewal", "2030-01-10", "09:00")

	moved, err := s.engine.Reschedule(s.ctx, owner, appt.AppointmentNumber, models.RescheduleInput{Date: "2030-01-11", Time: "10:00", Reason: "work trip"})
	s.Require().NoError(err)

	s.Equal(models.StatusPending, moved.Status)
	s.Equal("2030-01-11", moved.AppointmentDate)
	s.Equal("10:00", moved.AppointmentTime)
	s.Equal("10:30", moved.EndTime)
	s.Equal(appt.AppointmentNumber, moved.AppointmentNumber)
	s.Require().Len(moved.RescheduleHistory, 1)
	entry := moved.RescheduleHistory[0]
	s.Equal("2030-01-10", entry.PreviousDate)
	s.Equal("09:00", entry.PreviousTime)
	s.Equal("2030-01-11", entry.NewDate)
	s.Equal("10:00", entry.NewTime)
	s.Equal("work trip", entry.Reason)
	s.Equal(owner.UserID, entry.Actor)

	oldSlot := s.slotAt("renewal", "2030-01-10", "09:00")
	newSlot := s.slotAt("renewal", "2030-01-11", "10:00")
	s.Equal(0, oldSlot.CurrentCount)
	s.Empty(oldSlot.Appointments)
	s.Equal(1, newSlot.CurrentCount)
	s.Equal(newSlot.ID, moved.SlotID)
	s.Equal([]string{moved.ReservationRef}, newSlot.Appointments)
	s.True(strings.HasPrefix(moved.ReservationRef, appt.ID+"/"))

	recs := s.notifications.All()
	s.Equal(models.NotifyRescheduled, recs[len(recs)-1].Type)
}

func (s *EngineSuite) TestRescheduleConfirmedLandsInPending() {
	owner := citizen(1)
	appt := s.book(owner, "renewal", "2030-01-10", "09:00")
	_, err := s.engine.Confirm(s.ctx, s.officer, appt.AppointmentNumber, models.TransitionInput{})
	s.Require().NoError(err)

	moved, err := s.engine.Reschedule(s.ctx, s.officer, appt.AppointmentNumber, models.RescheduleInput{Date: "2030-01-12", Time: "11:00"})
	s.Require().NoError(err)
	s.Equal(models.StatusPending, moved.Status)
	s.Nil(moved.ConfirmedAt)
	s.Equal(s.officer.UserID, moved.RescheduleHistory[0].Actor)
}

func (s *EngineSuite) TestRescheduleIntoFullSlotChangesNothing() {
	owner := citizen(1)
	appt := s.book(owner, "renewal", "2030-01-10", "09:00")
	s.book(citizen(2), "renewal", "2030-01-11", "10:00")

	_, err := s.engine.Reschedule(s.ctx, owner, appt.AppointmentNumber, models.RescheduleInput{Date: "2030-01-11", Time: "10:00"})
	s.ErrorIs(err, models.ErrSlotFull)

	stored, err := s.apptStore.GetByNumber(s.ctx, appt.AppointmentNumber)
	s.Require().NoError(err)
	s.Equal("2030-01-10", stored.AppointmentDate)
	s.Equal(appt.Version, stored.Version)
	s.Empty(stored.RescheduleHistory)
	s.Equal(1, s.slotAt("renewal", "2030-01-10", "09:00").CurrentCount)
	s.Equal(1, s.slotAt("renewal", "2030-01-11", "10:00").CurrentCount)
}

func (s *EngineSuite) TestRescheduleGuards() {
	owner := citizen(1)
	appt := s.book(owner, "renewal", "2030-01-10", "09:00")

	s.Run("same time", func() {
		_, err := s.engine.Reschedule(s.ctx, owner, appt.AppointmentNumber, models.RescheduleInput{Date: "2030-01-10", Time: "09:00"})
		s.ErrorIs(err, models.ErrValidation)
	})

	s.Run("outside the window", func() {
		_, err := s.engine.Reschedule(s.ctx, owner, appt.AppointmentNumber, models.RescheduleInput{Date: "2030-03-01", Time: "09:00"})
		s.ErrorIs(err, models.ErrInvalidBookingWindow)
	})

	s.Run("another citizen", func() {
		_, err := s.engine.Reschedule(s.ctx, citizen(2), appt.AppointmentNumber, models.RescheduleInput{Date: "2030-01-11", Time: "09:00"})
		s.ErrorIs(err, models.ErrForbidden)
	})

	s.Run("in progress cannot move", func() {
		_, err := s.engine.Confirm(s.ctx, s.officer, appt.AppointmentNumber, models.TransitionInput{})
		s.Require().NoError(err)
		_, err = s.engine.Start(s.ctx, s.officer, appt.AppointmentNumber, models.TransitionInput{})
		s.Require().NoError(err)

		_, err = s.engine.Reschedule(s.ctx, owner, appt.AppointmentNumber, models.RescheduleInput{Date: "2030-01-11", Time: "09:00"})
		s.ErrorIs(err, models.ErrInvalidTransition)
	})
}

func (s *EngineSuite) TestCancelReturnsCapacity() {
	owner := citizen(1)
	appt := s.book(owner, "renewal", "2030-01-10", "09:00")

	cancelled, err := s.engine.Cancel(s.ctx, owner, appt.AppointmentNumber, models.TransitionInput{Reason: "no longer needed"})
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, cancelled.Status)
	s.Equal("no longer needed", cancelled.CancellationReason)
	s.Equal(owner.UserID, cancelled.CancelledBy)
	s.Require().NotNil(cancelled.CancelledAt)

	s.Equal(0, s.slotAt("renewal", "2030-01-10", "09:00").CurrentCount)
	s.book(citizen(2), "renewal", "2030-01-10", "09:00")

	_, err = s.engine.Cancel(s.ctx, owner, appt.AppointmentNumber, models.TransitionInput{})
	s.ErrorIs(err, models.ErrInvalidTransition)
	s.Equal(1, s.slotAt("renewal", "2030-01-10", "09:00").CurrentCount)
}

func (s *EngineSuite) TestNoShowKeepsCount() {
	appt := s.book(citizen(1), "renewal", "2030-01-10", "09:00")

	_, err := s.engine.MarkNoShow(s.ctx, s.officer, appt.AppointmentNumber, models.TransitionInput{})
	s.ErrorIs(err, models.ErrInvalidTransition)

	_, err = s.engine.Confirm(s.ctx, s.admin, appt.AppointmentNumber, models.TransitionInput{})
	s.Require().NoError(err)
	got, err := s.engine.MarkNoShow(s.ctx, s.officer, appt.AppointmentNumber, models.TransitionInput{Notes: "waited 15 minutes"})
	s.Require().NoError(err)
	s.Equal(models.StatusNoShow, got.Status)
	s.Equal("waited 15 minutes", got.Notes.Officer)
	s.Equal(1, s.slotAt("renewal", "2030-01-10", "09:00").CurrentCount)
}

func (s *EngineSuite) TestCapabilityChecks() {
	owner := citizen(1)
	appt := s.book(owner, "renewal", "2030-01-10", "09:00")

	_, err := s.engine.Confirm(s.ctx, owner, appt.AppointmentNumber, models.TransitionInput{})
	s.ErrorIs(err, models.ErrForbidden)

	_, err = s.engine.Cancel(s.ctx, citizen(2), appt.AppointmentNumber, models.TransitionInput{})
	s.ErrorIs(err, models.ErrForbidden)

	_, err = s.engine.Get(s.ctx, citizen(2), appt.AppointmentNumber)
	s.ErrorIs(err, models.ErrForbidden)

	_, err = s.engine.Get(s.ctx, s.officer, "APT-000000-ZZZZZZ")
	s.ErrorIs(err, models.ErrNotFound)

	// A caller without the capability learns nothing about whether a number exists.
	for _, number := range []string{appt.AppointmentNumber, "APT-000000-ZZZZZZ"} {
		_, err = s.engine.SubmitFeedback(s.ctx, s.officer, number, models.FeedbackInput{Rating: 4})
		s.ErrorIs(err, models.ErrForbidden, number)
		_, err = s.engine.Confirm(s.ctx, owner, number, models.TransitionInput{})
		s.ErrorIs(err, models.ErrForbidden, number)
		_, err = s.engine.Get(s.ctx, models.Principal{}, number)
		s.ErrorIs(err, models.ErrForbidden, number)
		_, err = s.engine.Reschedule(s.ctx, models.Principal{UserID: "x", Role: "root"}, number, models.RescheduleInput{Date: "2030-01-11", Time: "10:00"})
		s.ErrorIs(err, models.ErrForbidden, number)
	}

	stored, err := s.apptStore.GetByNumber(s.ctx, appt.AppointmentNumber)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status)
}

func (s *EngineSuite) TestBookReleasesSlotWhenPersistenceFails() {
	failing := &failingAppointments{InMemory: s.apptStore, insertErr: models.NewStorageUnavailable("appointment.insert", errors.New("connection reset"))}
	engine := s.build(s.slotStore, failing, nil)

	_, err := engine.Book(s.ctx, citizen(1), booking("renewal", "2030-01-10", "09:00"))
	s.ErrorIs(err, models.ErrStorageUnavailable)

	slot := s.slotAt("renewal", "2030-01-10", "09:00")
	s.Equal(0, slot.CurrentCount)
	s.Empty(slot.Appointments)
	s.Equal(0.0, testutil.ToFloat64(s.metrics.CapacityLeaksTotal))
}

func (s *EngineSuite) TestBookReleasesSlotWhenNumbersExhausted() {
	failing := &failingAppointments{InMemory: s.apptStore, insertErr: models.ErrDuplicateNumber}
	engine := s.build(s.slotStore, failing, nil)

	_, err := engine.Book(s.ctx, citizen(1), booking("renewal", "2030-01-10", "09:00"))
	s.ErrorIs(err, models.ErrGenerationExhausted)
	s.Equal(5, failing.inserts)
	s.Equal(0, s.slotAt("renewal", "2030-01-10", "09:00").CurrentCount)
	s.Equal(5.0, testutil.ToFloat64(s.metrics.NumberCollisions))
}

func (s *EngineSuite) TestCompensationFailureIsCounted() {
	slotRepo := &failingSlots{InMemory: s.slotStore, releaseErr: models.NewStorageUnavailable("timeslot.release", errors.New("i/o timeout"))}
	failing := &failingAppointments{InMemory: s.apptStore, insertErr: errors.New("disk full")}
	engine := s.build(slotRepo, failing, nil)

	_, err := engine.Book(s.ctx, citizen(1), booking("renewal", "2030-01-10", "09:00"))
	s.Require().Error(err)

	s.Equal(compensationRetries+1, slotRepo.releases)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CapacityLeaksTotal))
	s.Equal(1, s.slotAt("renewal", "2030-01-10", "09:00").CurrentCount)
}

func (s *EngineSuite) TestTransitionLosingRaceReportsInvalidTransition() {
	owner := citizen(1)
	appt := s.book(owner, "renewal", "2030-01-10", "09:00")

	racing := &racingAppointments{InMemory: s.apptStore}
	racing.before = func() {
		current, err := s.apptStore.GetByID(s.ctx, appt.ID)
		s.Require().NoError(err)
		next := current.Clone()
		next.Status = models.StatusCancelled
		s.Require().NoError(s.apptStore.Update(s.ctx, next, current.Version, current.Status))
	}
	engine := s.build(s.slotStore, racing, nil)

	_, err := engine.Confirm(s.ctx, s.officer, appt.AppointmentNumber, models.TransitionInput{})
	s.ErrorIs(err, models.ErrInvalidTransition)
	var te *models.InvalidTransitionError
	s.Require().ErrorAs(err, &te)
	s.Equal(models.StatusCancelled, te.From)
}

func (s *EngineSuite) TestTransitionRetriesWhenOnlyVersionMoved() {
	appt := s.book(citizen(1), "renewal", "2030-01-10", "09:00")

	racing := &racingAppointments{InMemory: s.apptStore}
	racing.before = func() {
		current, err := s.apptStore.GetByID(s.ctx, appt.ID)
		s.Require().NoError(err)
		next := current.Clone()
		next.Notes.Internal = "touched"
		s.Require().NoError(s.apptStore.Update(s.ctx, next, current.Version, current.Status))
	}
	engine := s.build(s.slotStore, racing, nil)

	got, err := engine.Confirm(s.ctx, s.officer, appt.AppointmentNumber, models.TransitionInput{})
	s.Require().NoError(err)
	s.Equal(models.StatusConfirmed, got.Status)
	s.Equal("touched", got.Notes.Internal)
}

func (s *EngineSuite) TestRescheduleLosingRaceReleasesNewSlot() {
	owner := citizen(1)
	appt := s.book(owner, "renewal", "2030-01-10", "09:00")

	racing := &racingAppointments{InMemory: s.apptStore}
	racing.before = func() {
		current, err := s.apptStore.GetByID(s.ctx, appt.ID)
		s.Require().NoError(err)
		next := current.Clone()
		next.Status = models.StatusCancelled
		s.Require().NoError(s.apptStore.Update(s.ctx, next, current.Version, current.Status))
	}
	engine := s.build(s.slotStore, racing, nil)

	_, err := engine.Reschedule(s.ctx, owner, appt.AppointmentNumber, models.RescheduleInput{Date: "2030-01-11", Time: "10:00"})
	s.ErrorIs(err, models.ErrInvalidTransition)

	s.Equal(0, s.slotAt("renewal", "2030-01-11", "10:00").CurrentCount)
	stored, err := s.apptStore.GetByID(s.ctx, appt.ID)
	s.Require().NoError(err)
	s.Empty(stored.RescheduleHistory)
}

func (s *EngineSuite) TestNotificationFailureDoesNotFailBooking() {
	engine := s.build(s.slotStore, s.apptStore, failingNotifier{})

	appt, err := engine.Book(s.ctx, citizen(1), booking("renewal", "2030-01-10", "09:00"))
	s.Require().NoError(err)
	s.NotEmpty(appt.AppointmentNumber)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.NotificationsTotal.WithLabelValues("booked", "error")))
}

type failingAppointments struct {
	*appointmentRepo.InMemory
	insertErr error
	inserts   int
}

func (f *failingAppointments) Insert(_ context.Context, _ *models.Appointment) error {
	f.inserts++
	return f.insertErr
}

func (s *EngineSuite) TestConcurrentReschedulesToSameSlotKeepCountExact() {
	owner := citizen(1)
	appt := s.book(owner, "collection", "2030-01-10", "09:00")
	target := models.RescheduleInput{Date: "2030-01-10", Time: "10:00"}

	var engine *Engine
	var inner *models.Appointment
	racing := &racingAppointments{InMemory: s.apptStore}
	racing.before = func() {
		var err error
		inner, err = engine.Reschedule(s.ctx, owner, appt.AppointmentNumber, target)
		s.Require().NoError(err)
	}
	engine = s.build(s.slotStore, racing, nil)

	_, err := engine.Reschedule(s.ctx, owner, appt.AppointmentNumber, target)
	s.ErrorIs(err, models.ErrInvalidTransition)

	s.Require().NotNil(inner)
	stored, err := s.apptStore.GetByID(s.ctx, appt.ID)
	s.Require().NoError(err)
	s.Equal(inner.ReservationRef, stored.ReservationRef)
	s.NotEqual(appt.ReservationRef, stored.ReservationRef)

	s.Equal(0, s.slotAt("collection", "2030-01-10", "09:00").CurrentCount)
	moved := s.slotAt("collection", "2030-01-10", "10:00")
	s.Equal(1, moved.CurrentCount)
	s.Equal([]string{stored.ReservationRef}, moved.Appointments)

	_, err = s.engine.Cancel(s.ctx, owner, appt.AppointmentNumber, models.TransitionInput{})
	s.Require().NoError(err)
	s.Equal(0, s.slotAt("collection", "2030-01-10", "10:00").CurrentCount)
}

func (s *EngineSuite) TestConcurrentReschedulesIntoLastUnitNeverOverbook() {
	owner := citizen(1)
	appt := s.book(owner, "renewal", "2030-01-10", "09:00")
	target := models.RescheduleInput{Date: "2030-01-11", Time: "10:00"}

	var engine *Engine
	var innerErr error
	racing := &racingAppointments{InMemory: s.apptStore}
	racing.before = func() {
		_, innerErr = engine.Reschedule(s.ctx, owner, appt.AppointmentNumber, target)
	}
	engine = s.build(s.slotStore, racing, nil)

	moved, err := engine.Reschedule(s.ctx, owner, appt.AppointmentNumber, target)
	s.Require().NoError(err)
	s.ErrorIs(innerErr, models.ErrSlotFull)

	s.Equal(0, s.slotAt("renewal", "2030-01-10", "09:00").CurrentCount)
	slot := s.slotAt("renewal", "2030-01-11", "10:00")
	s.Equal(1, slot.CurrentCount)
	s.Equal([]string{moved.ReservationRef}, slot.Appointments)

	_, err = s.engine.Book(s.ctx, citizen(2), booking("renewal", "2030-01-11", "10:00"))
	s.ErrorIs(err, models.ErrSlotFull)
}

type racingAppointments struct {
	*appointmentRepo.InMemory
	before func()
	fired  bool
}

func (r *racingAppointments) Update(ctx context.Context, next *models.Appointment, expectedVersion int, expectedStatus models.AppointmentStatus) error {
	if !r.fired && r.before != nil {
		r.fired = true
		r.before()
	}
	return r.InMemory.Update(ctx, next, expectedVersion, expectedStatus)
}

type failingSlots struct {
	*timeslotRepo.InMemory
	releaseErr error
	releases   int
}

func (f *failingSlots) ReleaseUnit(_ context.Context, _, _ string) (*models.TimeSlot, error) {
	f.releases++
	return nil, f.releaseErr
}

type failingNotifier struct{}

func (failingNotifier) Enqueue(context.Context, models.NotificationRecord) error {
	return errors.New("queue unavailable")
}
