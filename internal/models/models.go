package models

import "time"

type BookingStatus string

const (
	BookingScheduled  BookingStatus = "scheduled"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingPostponed  BookingStatus = "postponed"
	BookingCancelled  BookingStatus = "cancelled"
	BookingNoShow     BookingStatus = "no_show"
)

// CountsTowardOccupancy reports whether a booking in this status still
// occupies its slot. Cancelled and no-show bookings free the slot.
func (s BookingStatus) CountsTowardOccupancy() bool {
	return s != BookingCancelled && s != BookingNoShow
}

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// AvailabilityRule is one recurring weekly bookable window of one doctor.
// Times of day are minutes since midnight, minute precision.
type AvailabilityRule struct {
	ID                     string `db:"rule_id"`
	DoctorID               string `db:"doctor_id"`
	DayOfWeek              int    `db:"day_of_week"` // 0=Sunday .. 6=Saturday
	StartMinute            int    `db:"start_minute"`
	EndMinute              int    `db:"end_minute"`
	SlotDurationMinutes    int    `db:"slot_duration_minutes"`
	BufferMinutes          int    `db:"buffer_minutes"`
	MaxAppointmentsPerSlot int    `db:"max_appointments_per_slot"`
	Notes                  string `db:"notes"`
	IsActive               bool   `db:"is_active"`
}

// LeaveRequest is one leave record of one doctor on one date, unique per
// (doctor, date). StartMinute/EndMinute are set together iff not full-day.
type LeaveRequest struct {
	ID           string      `db:"leave_id"`
	DoctorID     string      `db:"doctor_id"`
	LeaveDate    time.Time   `db:"leave_date"`
	IsFullDay    bool        `db:"is_full_day"`
	StartMinute  *int        `db:"start_minute"`
	EndMinute    *int        `db:"end_minute"`
	Reason       string      `db:"reason"`
	Status       LeaveStatus `db:"status"`
	ApprovedBy   *string     `db:"approved_by"`
	ApprovalDate *time.Time  `db:"approval_date"`
}

type Booking struct {
	ID                string        `db:"booking_id"`
	DoctorID          string        `db:"doctor_id"`
	PatientID         string        `db:"patient_id"`
	AppointmentDate   time.Time     `db:"appointment_date"`
	AppointmentMinute int           `db:"appointment_minute"`
	Status            BookingStatus `db:"status"`
	Reason            string        `db:"reason"`
	Notes             string        `db:"notes"`
}

// DoctorProfile carries the scheduling-relevant subset of a doctor row:
// tenant scope, owning user, and the legacy coarse availability fields used
// when no explicit rules exist.
type DoctorProfile struct {
	DoctorID            string `db:"doctor_id"`
	HospitalID          string `db:"hospital_id"`
	OwnerUserID         string `db:"owner_user_id"`
	LegacyDays          []string
	AvailableFromMinute *int `db:"available_from_minute"`
	AvailableToMinute   *int `db:"available_to_minute"`
}

// Slot is derived on every query and never persisted.
type Slot struct {
	Minute              int
	Available           bool
	Capacity            int
	SlotDurationMinutes int
	BufferMinutes       int
}

type AvailabilitySummary struct {
	Doctors        int
	ActiveRules    int
	RulesByWeekday [7]int
	ApprovedLeave  int
	LeaveToday     int
	LeaveUpcoming  int
}
