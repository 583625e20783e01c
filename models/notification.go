package models

import "time"

// NotificationType names the transition a notification intent was recorded for.
type NotificationType string

const (
	NotifyBooked      NotificationType = "booked"
	NotifyConfirmed   NotificationType = "confirmed"
	NotifyCancelled   NotificationType = "cancelled"
	NotifyRescheduled NotificationType = "rescheduled"
	NotifyCompleted   NotificationType = "completed"
)

// NotificationRecord is the fire-and-forget intent handed to the delivery collaborator.
type NotificationRecord struct {
	ID        string           `bson:"id" json:"id"`
	Type      NotificationType `bson:"type" json:"type"`
	Recipient Recipient        `bson:"recipient" json:"recipient"`
	Message   string           `bson:"message" json:"message"`
	CreatedAt time.Time        `bson:"createdAt" json:"createdAt"`
}

// Recipient is the context the delivery collaborator needs to address a notification.
type Recipient struct {
	Citizen           string `bson:"citizen" json:"citizen"`
	Officer           string `bson:"officer,omitempty" json:"officer,omitempty"`
	AppointmentNumber string `bson:"appointmentNumber" json:"appointmentNumber"`
	Department        string `bson:"department" json:"department"`
	Service           string `bson:"service" json:"service"`
	Date              string `bson:"date" json:"date"`
	Time              string `bson:"time" json:"time"`
}
