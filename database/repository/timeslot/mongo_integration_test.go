//go:build integration

package timeslotRepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"govbook/database/testutil"
	"govbook/models"
)

type MongoTimeSlotSuite struct {
	suite.Suite
	mongo *testutil.MongoContainer
	repo  TimeSlotRepository
	ctx   context.Context
}

func TestMongoTimeSlotSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(MongoTimeSlotSuite))
}

func (s *MongoTimeSlotSuite) SetupSuite() {
	s.mongo = testutil.NewMongoContainer(s.T())
	s.ctx = context.Background()
}

func (s *MongoTimeSlotSuite) SetupTest() {
	s.repo = NewMongoTimeSlotRepo(s.mongo.FreshDatabase(s.T()))
	s.Require().NoError(s.repo.EnsureIndexes(s.ctx))
}

func (s *MongoTimeSlotSuite) slot(startTime string, capacity int) *models.TimeSlot {
	slot, err := s.repo.EnsureSlot(s.ctx, models.TimeSlot{
		Department:  "passports",
		Service:     "renewal",
		Date:        "2030-01-10",
		StartTime:   startTime,
		EndTime:     "23:00",
		MaxCapacity: capacity,
	})
	s.Require().NoError(err)
	return slot
}

// TestConcurrentReservationsForLastUnit verifies the guarded update lets exactly one
// of many concurrent callers take the only unit.
func (s *MongoTimeSlotSuite) TestConcurrentReservationsForLastUnit() {
	slot := s.slot("09:00", 1)
	const callers = 20

	var ok, full atomic.Int32
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		ref := fmt.Sprintf("appt-%d", i)
		g.Go(func() error {
			_, err := s.repo.ReserveUnit(s.ctx, slot.ID, ref)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, models.ErrSlotFull):
				full.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(callers-1), full.Load())

	got, err := s.repo.GetByID(s.ctx, slot.ID)
	s.Require().NoError(err)
	s.Equal(1, got.CurrentCount)
	s.Len(got.Appointments, 1)
	s.False(got.IsAvailable)
}

func (s *MongoTimeSlotSuite) TestConcurrentEnsureSlotCreatesOne() {
	var mu sync.Mutex
	ids := map[string]bool{}
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			slot, err := s.repo.EnsureSlot(s.ctx, models.TimeSlot{
				Department: "passports", Service: "renewal", Date: "2030-01-11",
				StartTime: "10:00", EndTime: "10:30", MaxCapacity: 2,
			})
			if err != nil {
				return err
			}
			mu.Lock()
			ids[slot.ID] = true
			mu.Unlock()
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	s.Len(ids, 1)
}

func (s *MongoTimeSlotSuite) TestReserveAndReleaseByReference() {
	slot := s.slot("10:00", 2)

	got, err := s.repo.ReserveUnit(s.ctx, slot.ID, "appt-1")
	s.Require().NoError(err)
	s.Equal(1, got.CurrentCount)
	s.True(got.IsAvailable)

	s.Run("same reference twice holds one unit", func() {
		got, err := s.repo.ReserveUnit(s.ctx, slot.ID, "appt-1")
		s.Require().NoError(err)
		s.Equal(1, got.CurrentCount)
		s.Equal([]string{"appt-1"}, got.Appointments)
	})

	s.Run("releasing another reference leaves the holder alone", func() {
		got, err := s.repo.ReleaseUnit(s.ctx, slot.ID, "appt-2")
		s.Require().NoError(err)
		s.Equal(1, got.CurrentCount)
		s.Equal([]string{"appt-1"}, got.Appointments)
	})

	s.Run("release is idempotent and never goes below zero", func() {
		for i := 0; i < 2; i++ {
			got, err := s.repo.ReleaseUnit(s.ctx, slot.ID, "appt-1")
			s.Require().NoError(err)
			s.Equal(0, got.CurrentCount)
			s.Empty(got.Appointments)
			s.True(got.IsAvailable)
		}
	})

	s.Run("unknown slot", func() {
		_, err := s.repo.ReserveUnit(s.ctx, "missing", "appt-1")
		s.ErrorIs(err, models.ErrNotFound)
	})
}

func (s *MongoTimeSlotSuite) TestBlockKeepsCount() {
	slot := s.slot("11:00", 3)
	for _, ref := range []string{"appt-1", "appt-2"} {
		_, err := s.repo.ReserveUnit(s.ctx, slot.ID, ref)
		s.Require().NoError(err)
	}

	blocked, err := s.repo.SetBlocked(s.ctx, slot.ID, true, "counter closed")
	s.Require().NoError(err)
	s.Equal(2, blocked.CurrentCount)
	s.False(blocked.IsAvailable)

	_, err = s.repo.ReserveUnit(s.ctx, slot.ID, "appt-3")
	s.ErrorIs(err, models.ErrSlotBlocked)

	released, err := s.repo.ReleaseUnit(s.ctx, slot.ID, "appt-1")
	s.Require().NoError(err)
	s.Equal(1, released.CurrentCount)
	s.False(released.IsAvailable)

	unblocked, err := s.repo.SetBlocked(s.ctx, slot.ID, false, "ignored")
	s.Require().NoError(err)
	s.Equal(1, unblocked.CurrentCount)
	s.True(unblocked.IsAvailable)
	s.Empty(unblocked.BlockReason)
}

func (s *MongoTimeSlotSuite) TestUserStringsAreStoredLiterally() {
	slot := s.slot("12:00", 2)

	got, err := s.repo.ReserveUnit(s.ctx, slot.ID, "$currentCount")
	s.Require().NoError(err)
	s.Equal([]string{"$currentCount"}, got.Appointments)

	blocked, err := s.repo.SetBlocked(s.ctx, slot.ID, true, "$maxCapacity")
	s.Require().NoError(err)
	s.Equal("$maxCapacity", blocked.BlockReason)

	released, err := s.repo.ReleaseUnit(s.ctx, slot.ID, "$currentCount")
	s.Require().NoError(err)
	s.Equal(0, released.CurrentCount)
	s.Empty(released.Appointments)
}
