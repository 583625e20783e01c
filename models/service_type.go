package models

import "time"

// ServiceInfo is what the catalog collaborator knows about a bookable service.
type ServiceInfo struct {
	Department                 string `bson:"department" json:"department" mapstructure:"department"`
	Service                    string `bson:"code" json:"service" mapstructure:"service"`
	Name                       string `bson:"name,omitempty" json:"name,omitempty" mapstructure:"name"`
	MaxAdvanceBookingDays      int    `bson:"maxAdvanceBookingDays" json:"maxAdvanceBookingDays" mapstructure:"maxAdvanceBookingDays"`
	AppointmentDurationMinutes int    `bson:"appointmentDuration" json:"appointmentDuration" mapstructure:"appointmentDuration"`
	IsActive                   bool   `bson:"isActive" json:"isActive" mapstructure:"isActive"`
	DefaultSlotCapacity        int    `bson:"defaultSlotCapacity,omitempty" json:"defaultSlotCapacity,omitempty" mapstructure:"defaultSlotCapacity"`
}

// AppointmentDuration returns the configured duration, defaulting to 30 minutes.
func (s ServiceInfo) AppointmentDuration() time.Duration {
	if s.AppointmentDurationMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(s.AppointmentDurationMinutes) * time.Minute
}
