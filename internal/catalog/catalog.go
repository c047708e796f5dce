// AngelaMos | 2026
// catalog.go

// Package catalog holds the tailoring studio's fixed vocabulary: order
// stages, urgency levels, appointment states and the service menu.
package catalog

import (
	"fmt"
	"math"
)

const (
	StatusConfirmed = "Order Confirmed"
	StatusCutting   = "Cutting"
	StatusStitching = "Stitching"
	StatusTrial     = "Trial"
	StatusReady     = "Ready"
	StatusDelivered = "Delivered"
)

// OrderStatuses is in workflow order.
var OrderStatuses = []string{
	StatusConfirmed,
	StatusCutting,
	StatusStitching,
	StatusTrial,
	StatusReady,
	StatusDelivered,
}

var progress = map[string]int{
	StatusConfirmed: 15,
	StatusCutting:   30,
	StatusStitching: 55,
	StatusTrial:     75,
	StatusReady:     90,
	StatusDelivered: 100,
}

// Progress is the completion percentage shown for an order stage. Unknown
// stages report 0.
func Progress(status string) int {
	return progress[status]
}

func ValidOrderStatus(status string) bool {
	_, ok := progress[status]
	return ok
}

// InProgress reports the stages counted as work on the bench.
func InProgress(status string) bool {
	return status == StatusCutting || status == StatusStitching || status == StatusTrial
}

// Finished reports the stages counted as completed on the staff board.
func Finished(status string) bool {
	return status == StatusReady || status == StatusDelivered
}

const (
	UrgencyNormal  = "Normal"
	UrgencyUrgent  = "Urgent"
	UrgencyExpress = "Express"
)

var Urgencies = []string{UrgencyNormal, UrgencyUrgent, UrgencyExpress}

func ValidUrgency(u string) bool {
	return u == UrgencyNormal || u == UrgencyUrgent || u == UrgencyExpress
}

const (
	AppointmentPending   = "Pending"
	AppointmentConfirmed = "Confirmed"
	AppointmentCompleted = "Completed"
	AppointmentCancelled = "Cancelled"
)

var AppointmentStatuses = []string{
	AppointmentPending,
	AppointmentConfirmed,
	AppointmentCompleted,
	AppointmentCancelled,
}

func ValidAppointmentStatus(s string) bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

type Service struct {
	Name        string
	Description string
	StartingAt  int
}

var Services = []Service{
	{"Bridal Blouse Stitching", "Hand-finished bridal blouses with embroidery, latkans and custom necklines.", 2500},
	{"Designer Kurti", "Everyday and festive kurtis cut to your measurements.", 1200},
	{"Saree Customization", "Fall, pico, tassels and border work for new and heirloom sarees.", 500},
	{"Alterations & Fittings", "Resizing, hemming and refits for any garment.", 300},
	{"Lehenga Stitching", "Full lehenga sets with can-can, lining and dupatta finishing.", 6000},
	{"General Consultation", "Fabric, silhouette and design advice before you commit.", 0},
}

func ServiceNames() []string {
	names := make([]string, len(Services))
	for i, s := range Services {
		names[i] = s.Name
	}
	return names
}

func ValidService(name string) bool {
	for _, s := range Services {
		if s.Name == name {
			return true
		}
	}
	return false
}

// FormatRupees renders an amount with L (lakh) and K suffixes for large
// values: 250000 → ₹2.5L, 4500 → ₹4.5K, 800 → ₹800.
func FormatRupees(v float64) string {
	switch {
	case v >= 100000:
		return fmt.Sprintf("₹%.1fL", v/100000)
	case v >= 1000:
		return fmt.Sprintf("₹%.1fK", v/1000)
	default:
		return fmt.Sprintf("₹%.0f", math.Round(v))
	}
}
