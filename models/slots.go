package models

import (
	"fmt"
	"time"
)

// Date and time layouts used for slot and appointment keys.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// TimeSlot is a bookable window for one (department, service, date, startTime) tuple.
type TimeSlot struct {
	ID           string    `bson:"id" json:"id"`
	Key          string    `bson:"key" json:"-"`
	Department   string    `bson:"department" json:"department"`
	Service      string    `bson:"service" json:"service"`
	Officer      string    `bson:"officer,omitempty" json:"officer,omitempty"`
	Date         string    `bson:"date" json:"date"`           // e.g., "2025-01-10"
	StartTime    string    `bson:"startTime" json:"startTime"` // e.g., "09:00"
	EndTime      string    `bson:"endTime" json:"endTime"`
	MaxCapacity  int       `bson:"maxCapacity" json:"maxCapacity"`
	CurrentCount int       `bson:"currentCount" json:"currentCount"`
	IsAvailable  bool      `bson:"isAvailable" json:"isAvailable"`
	IsBlocked    bool      `bson:"isBlocked" json:"isBlocked"`
	BlockReason  string    `bson:"blockReason,omitempty" json:"blockReason,omitempty"`
	Appointments []string  `bson:"appointments" json:"appointments"` // reservation refs, in reservation order
	Version      int       `bson:"version" json:"version"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SlotRef identifies a slot by its natural key.
type SlotRef struct {
	Department string `json:"department"`
	Service    string `json:"service"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime"`
}

// Key returns the unique lookup key stored on the slot document.
func (r SlotRef) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", r.Department, r.Service, r.Date, r.StartTime)
}

// Ref returns the natural key of the slot.
func (s TimeSlot) Ref() SlotRef {
	return SlotRef{Department: s.Department, Service: s.Service, Date: s.Date, StartTime: s.StartTime}
}

// Remaining returns the number of units still reservable, ignoring the block flag.
func (s TimeSlot) Remaining() int {
	if s.CurrentCount >= s.MaxCapacity {
		return 0
	}
	return s.MaxCapacity - s.CurrentCount
}

// Available reports whether the slot accepts a new reservation.
func (s TimeSlot) Available() bool {
	return !s.IsBlocked && s.CurrentCount < s.MaxCapacity
}

// Clone returns a deep copy of the slot.
func (s TimeSlot) Clone() TimeSlot {
	out := s
	out.Appointments = append([]string(nil), s.Appointments...)
	return out
}

// ReservationToken proves a successful reservation and is required to release it.
type ReservationToken struct {
	SlotID         string `json:"slotId"`
	AppointmentRef string `json:"appointmentRef"`
}

// ProvisionSlotRequest is the payload officers use to pre-provision a slot.
type ProvisionSlotRequest struct {
	Department  string `json:"department" binding:"required"`
	Service     string `json:"service" binding:"required"`
	Officer     string `json:"officer"`
	Date        string `json:"date" binding:"required"`
	StartTime   string `json:"startTime" binding:"required"`
	EndTime     string `json:"endTime" binding:"required"`
	MaxCapacity int    `json:"maxCapacity" binding:"required"`
}

// BlockSlotRequest carries the reason an officer blocks a slot.
type BlockSlotRequest struct {
	Reason string `json:"reason" binding:"required"`
}
