package scheduling

import (
	"fmt"
	"time"

	"govbook/models"
)

// slotTime is a validated request for one start time on one date.
type slotTime struct {
	Date  string
	Start string
	End   string
	At    time.Time
}

// resolveSlotTime parses date and clock in the configured zone and checks the booking window.
func (e *Engine) resolveSlotTime(date, clock string, info models.ServiceInfo) (slotTime, error) {
	day, err := time.ParseInLocation(models.DateLayout, date, e.cfg.Location)
	if err != nil {
		return slotTime{}, models.NewValidationError("date", "must be formatted as YYYY-MM-DD")
	}
	start, err := time.ParseInLocation(models.TimeLayout, clock, e.cfg.Location)
	if err != nil {
		return slotTime{}, models.NewValidationError("time", "must be formatted as HH:MM")
	}
	at := time.Date(day.Year(), day.Month(), day.Day(), start.Hour(), start.Minute(), 0, 0, e.cfg.Location)

	now := e.now()
	if !at.After(now) {
		return slotTime{}, &models.BookingWindowError{Date: date, Reason: "appointment time is in the past"}
	}
	if info.MaxAdvanceBookingDays > 0 {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.cfg.Location)
		limit := today.AddDate(0, 0, info.MaxAdvanceBookingDays)
		if day.After(limit) {
			return slotTime{}, &models.BookingWindowError{
				Date:   date,
				Reason: fmt.Sprintf("bookings open at most %d days ahead", info.MaxAdvanceBookingDays),
			}
		}
	}

	end := at.Add(info.AppointmentDuration())
	// EndTime is a wall clock on the same date, so the appointment must finish before midnight.
	if y, m, d := end.Date(); y != at.Year() || m != at.Month() || d != at.Day() {
		return slotTime{}, models.NewValidationError("time", "appointment must end before midnight")
	}
	return slotTime{
		Date:  at.Format(models.DateLayout),
		Start: at.Format(models.TimeLayout),
		End:   end.Format(models.TimeLayout),
		At:    at,
	}, nil
}
