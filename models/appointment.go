package models

import "time"

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusInProgress  AppointmentStatus = "in_progress"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusNoShow      AppointmentStatus = "no_show"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// Priority values accepted on booking.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Appointment is one citizen's booking against exactly one slot.
type Appointment struct {
	ID                 string            `bson:"id" json:"id"`
	AppointmentNumber  string            `bson:"appointmentNumber" json:"appointmentNumber"`
	Citizen            string            `bson:"citizen" json:"citizen"`
	Service            string            `bson:"service" json:"service"`
	Department         string            `bson:"department" json:"department"`
	Officer            string            `bson:"officer,omitempty" json:"officer,omitempty"`
	SlotID             string            `bson:"slotId" json:"slotId"`
	ReservationRef     string            `bson:"reservationRef" json:"-"`
	AppointmentDate    string            `bson:"appointmentDate" json:"appointmentDate"` // "2006-01-02"
	AppointmentTime    string            `bson:"appointmentTime" json:"appointmentTime"` // "15:04"
	EndTime            string            `bson:"endTime" json:"endTime"`
	Status             AppointmentStatus `bson:"status" json:"status"`
	Priority           string            `bson:"priority" json:"priority"`
	Notes              Notes             `bson:"notes" json:"notes"`
	Feedback           *Feedback         `bson:"feedback,omitempty" json:"feedback,omitempty"`
	RescheduleHistory  []RescheduleEntry `bson:"rescheduleHistory" json:"rescheduleHistory"`
	CancellationReason string            `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`
	CancelledBy        string            `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
	ConfirmedAt        *time.Time        `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	StartedAt          *time.Time        `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt        *time.Time        `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt        *time.Time        `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	Version            int               `bson:"version" json:"version"`
	CreatedAt          time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// Notes are free-text annotations, one per audience.
type Notes struct {
	Citizen  string `bson:"citizen,omitempty" json:"citizen,omitempty"`
	Officer  string `bson:"officer,omitempty" json:"officer,omitempty"`
	Internal string `bson:"internal,omitempty" json:"internal,omitempty"`
}

// Feedback is the citizen's write-once rating of a completed appointment.
type Feedback struct {
	Rating      int       `bson:"rating" json:"rating"`
	Comment     string    `bson:"comment,omitempty" json:"comment,omitempty"`
	SubmittedAt time.Time `bson:"submittedAt" json:"submittedAt"`
}

// RescheduleEntry records one move between slots. Entries are only ever appended.
type RescheduleEntry struct {
	PreviousDate string    `bson:"previousDate" json:"previousDate"`
	PreviousTime string    `bson:"previousTime" json:"previousTime"`
	NewDate      string    `bson:"newDate" json:"newDate"`
	NewTime      string    `bson:"newTime" json:"newTime"`
	Reason       string    `bson:"reason,omitempty" json:"reason,omitempty"`
	Actor        string    `bson:"actor" json:"actor"`
	Timestamp    time.Time `bson:"timestamp" json:"timestamp"`
}

// Token returns the reservation this appointment holds on its slot. Every reservation
// carries its own ref, so a stale or failed reservation can never release the current one.
func (a *Appointment) Token() ReservationToken {
	ref := a.ReservationRef
	if ref == "" {
		ref = a.ID
	}
	return ReservationToken{SlotID: a.SlotID, AppointmentRef: ref}
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (a *Appointment) Clone() *Appointment {
	out := *a
	out.RescheduleHistory = append([]RescheduleEntry(nil), a.RescheduleHistory...)
	if a.Feedback != nil {
		fb := *a.Feedback
		out.Feedback = &fb
	}
	out.ConfirmedAt = cloneTime(a.ConfirmedAt)
	out.StartedAt = cloneTime(a.StartedAt)
	out.CompletedAt = cloneTime(a.CompletedAt)
	out.CancelledAt = cloneTime(a.CancelledAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// BookingInput is the citizen-facing booking payload.
type BookingInput struct {
	Department string `json:"department" binding:"required"`
	Service    string `json:"service" binding:"required"`
	Date       string `json:"date" binding:"required"`
	Time       string `json:"time" binding:"required"`
	Priority   string `json:"priority"`
	Notes      string `json:"notes"`
}

// TransitionInput is the body accepted by officer transitions and cancellation.
type TransitionInput struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

// RescheduleInput moves an appointment to another date and time.
type RescheduleInput struct {
	Date   string `json:"date" binding:"required"`
	Time   string `json:"time" binding:"required"`
	Reason string `json:"reason"`
}

// FeedbackInput is the citizen's rating payload.
type FeedbackInput struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}
