package api

// Availability rules

type AvailabilityRuleInput struct {
	DayOfWeek              int    `json:"day_of_week"`
	StartTime              string `json:"start_time"`
	EndTime                string `json:"end_time"`
	SlotDurationMinutes    int    `json:"slot_duration_minutes"`
	BufferMinutes          int    `json:"buffer_minutes"`
	MaxAppointmentsPerSlot int    `json:"max_appointments_per_slot"`
	Notes                  string `json:"notes,omitempty"`
	IsActive               bool   `json:"is_active"`
}

type SaveAvailabilityRequest struct {
	Rules []AvailabilityRuleInput `json:"rules"`
}

type AvailabilityRuleResponse struct {
	ID                     string `json:"id"`
	DoctorID               string `json:"doctor_id"`
	DayOfWeek              int    `json:"day_of_week"`
	StartTime              string `json:"start_time"`
	EndTime                string `json:"end_time"`
	SlotDurationMinutes    int    `json:"slot_duration_minutes"`
	BufferMinutes          int    `json:"buffer_minutes"`
	MaxAppointmentsPerSlot int    `json:"max_appointments_per_slot"`
	Notes                  string `json:"notes,omitempty"`
	IsActive               bool   `json:"is_active"`
}

// Slots

type SlotResponse struct {
	Time                string `json:"time"`
	Available           bool   `json:"available"`
	Capacity            int    `json:"capacity"`
	SlotDurationMinutes int    `json:"slot_duration_minutes"`
	BufferMinutes       int    `json:"buffer_minutes"`
}

// Bookings

type BookingRequest struct {
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Reason    string `json:"reason,omitempty"`
}

type BookingResponse struct {
	ID        string `json:"id"`
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type RescheduleRequest struct {
	BookingID string `json:"booking_id"`
	NewDate   string `json:"new_date"`
	NewTime   string `json:"new_time"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type BookingStatusRequest struct {
	Status string `json:"status"`
}

// Leave

type LeaveCreateRequest struct {
	DoctorID  string  `json:"doctor_id"`
	LeaveDate string  `json:"leave_date"`
	IsFullDay bool    `json:"is_full_day"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

type LeaveDecideRequest struct {
	Status         string `json:"status"` // approved or rejected
	ApproverUserID string `json:"approver_user_id"`
}

type LeaveResponse struct {
	ID           string  `json:"id"`
	DoctorID     string  `json:"doctor_id"`
	LeaveDate    string  `json:"leave_date"`
	IsFullDay    bool    `json:"is_full_day"`
	StartTime    *string `json:"start_time,omitempty"`
	EndTime      *string `json:"end_time,omitempty"`
	Reason       string  `json:"reason,omitempty"`
	Status       string  `json:"status"`
	ApprovedBy   *string `json:"approved_by,omitempty"`
	ApprovalDate *string `json:"approval_date,omitempty"`
}

// Summary

type SummaryResponse struct {
	Doctors        int    `json:"doctors"`
	ActiveRules    int    `json:"active_rules"`
	RulesByWeekday [7]int `json:"rules_by_weekday"`
	ApprovedLeave  int    `json:"approved_leave"`
	LeaveToday     int    `json:"leave_today"`
	LeaveUpcoming  int    `json:"leave_upcoming"`
}
