package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medsched-service/api"
	"medsched-service/internal/lock"
	"medsched-service/internal/models"
	"medsched-service/internal/schedule"
	"medsched-service/pkg/response"
)

const bookingLockTTL = 10 * time.Second

type Service struct {
	store  Store
	locker lock.Locker
}

func NewService(store Store, locker lock.Locker) *Service {
	return &Service{store: store, locker: locker}
}

type Store interface {
	// Doctors
	GetDoctorProfile(ctx context.Context, doctorID string) (*models.DoctorProfile, error)

	// Availability Rules
	ReplaceAvailabilityRules(ctx context.Context, doctorID string, rules []*models.AvailabilityRule) error
	ListAvailabilityRules(ctx context.Context, doctorID string) ([]*models.AvailabilityRule, error)
	ListDayRules(ctx context.Context, doctorID string, dayOfWeek int) ([]*models.AvailabilityRule, error)

	// Leave
	CreateLeave(ctx context.Context, leave *models.LeaveRequest) (string, error)
	GetLeave(ctx context.Context, id string) (*models.LeaveRequest, error)
	ListLeave(ctx context.Context, doctorID *string, status *models.LeaveStatus) ([]*models.LeaveRequest, error)
	GetApprovedLeave(ctx context.Context, doctorID string, date time.Time) (*models.LeaveRequest, error)
	UpdateLeaveStatus(ctx context.Context, id string, status models.LeaveStatus, approvedBy string, approvalDate time.Time) error

	// Bookings. CreateBooking and RescheduleBooking run their occupancy
	// check and write in one transaction and return ErrSlotConflict when the
	// key is already at capacity.
	CreateBooking(ctx context.Context, booking *models.Booking, capacity int) (string, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	CountBookingsByMinute(ctx context.Context, doctorID string, date time.Time) (map[int]int, error)
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error
	CancelBooking(ctx context.Context, id string, note string) error
	RescheduleBooking(ctx context.Context, id string, newDate time.Time, newMinute int, capacity int, note string) error

	// Rollups
	AvailableDoctorIDs(ctx context.Context, date time.Time, dayOfWeek int) ([]string, error)
	AvailabilitySummary(ctx context.Context, hospitalID string, today time.Time) (*models.AvailabilitySummary, error)
}

// Availability Rules

func (s *Service) SaveAvailabilityRules(ctx context.Context, doctorID string, req *api.SaveAvailabilityRequest) ([]*api.AvailabilityRuleResponse, error) {
	const op = "service.SaveAvailabilityRules"

	rules := make([]*models.AvailabilityRule, 0, len(req.Rules))

	for i, in := range req.Rules {
		rule, err := validateRule(&in)
		if err != nil {
			return nil, fmt.Errorf("%s: rule %d: %w", op, i, err)
		}

		rules = append(rules, rule)
	}

	if _, err := s.store.GetDoctorProfile(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.ReplaceAvailabilityRules(ctx, doctorID, rules); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetAvailabilityRules(ctx, doctorID)
}

func validateRule(in *api.AvailabilityRuleInput) (*models.AvailabilityRule, error) {
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return nil, fmt.Errorf("%w: day_of_week must be 0..6", response.ErrBadRequest)
	}

	start, err := schedule.ParseClock(in.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start_time", response.ErrBadRequest)
	}

	end, err := schedule.ParseClock(in.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid end_time", response.ErrBadRequest)
	}

	if end <= start {
		return nil, fmt.Errorf("%w: end_time must be after start_time", response.ErrBadRequest)
	}

	if in.SlotDurationMinutes < 1 {
		return nil, fmt.Errorf("%w: slot_duration_minutes must be positive", response.ErrBadRequest)
	}

	if in.BufferMinutes < 0 {
		return nil, fmt.Errorf("%w: buffer_minutes must not be negative", response.ErrBadRequest)
	}

	if in.MaxAppointmentsPerSlot < 1 {
		return nil, fmt.Errorf("%w: max_appointments_per_slot must be positive", response.ErrBadRequest)
	}

	return &models.AvailabilityRule{
		DayOfWeek:              in.DayOfWeek,
		StartMinute:            start,
		EndMinute:              end,
		SlotDurationMinutes:    in.SlotDurationMinutes,
		BufferMinutes:          in.BufferMinutes,
		MaxAppointmentsPerSlot: in.MaxAppointmentsPerSlot,
		Notes:                  in.Notes,
		IsActive:               in.IsActive,
	}, nil
}

func (s *Service) GetAvailabilityRules(ctx context.Context, doctorID string) ([]*api.AvailabilityRuleResponse, error) {
	const op = "service.GetAvailabilityRules"

	rules, err := s.store.ListAvailabilityRules(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*api.AvailabilityRuleResponse, 0, len(rules))
	for _, rule := range rules {
		result = append(result, ruleResponse(rule))
	}

	return result, nil
}

func ruleResponse(rule *models.AvailabilityRule) *api.AvailabilityRuleResponse {
	return &api.AvailabilityRuleResponse{
		ID:                     rule.ID,
		DoctorID:               rule.DoctorID,
		DayOfWeek:              rule.DayOfWeek,
		StartTime:              schedule.FormatClock(rule.StartMinute),
		EndTime:                schedule.FormatClock(rule.EndMinute),
		SlotDurationMinutes:    rule.SlotDurationMinutes,
		BufferMinutes:          rule.BufferMinutes,
		MaxAppointmentsPerSlot: rule.MaxAppointmentsPerSlot,
		Notes:                  rule.Notes,
		IsActive:               rule.IsActive,
	}
}

// Slots

func (s *Service) ListSlots(ctx context.Context, doctorID, dateStr string) ([]*api.SlotResponse, error) {
	const op = "service.ListSlots"

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: invalid date", op, response.ErrBadRequest)
	}

	rules, err := s.resolveDayRules(ctx, doctorID, int(date.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	booked, err := s.store.CountBookingsByMinute(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slots := schedule.GenerateSlots(rules, booked)

	leave, err := s.store.GetApprovedLeave(ctx, doctorID, date)
	if err != nil && !errors.Is(err, response.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slots = schedule.ApplyLeave(slots, leave)

	result := make([]*api.SlotResponse, 0, len(slots))
	for _, slot := range slots {
		result = append(result, &api.SlotResponse{
			Time:                schedule.FormatClock(slot.Minute),
			Available:           slot.Available,
			Capacity:            slot.Capacity,
			SlotDurationMinutes: slot.SlotDurationMinutes,
			BufferMinutes:       slot.BufferMinutes,
		})
	}

	return result, nil
}

// resolveDayRules returns the explicit active rules of the doctor for the
// weekday, or the single rule synthesized from the legacy profile fields when
// no explicit rule exists. An unknown doctor surfaces as ErrNotFound.
func (s *Service) resolveDayRules(ctx context.Context, doctorID string, weekday int) ([]*models.AvailabilityRule, error) {
	rules, err := s.store.ListDayRules(ctx, doctorID, weekday)
	if err != nil {
		return nil, err
	}

	if len(rules) > 0 {
		return rules, nil
	}

	profile, err := s.store.GetDoctorProfile(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	if legacy, ok := schedule.SynthesizeLegacyRule(profile, weekday); ok {
		return []*models.AvailabilityRule{legacy}, nil
	}

	return nil, nil
}

// Bookings

func (s *Service) CreateBooking(ctx context.Context, req *api.BookingRequest) (*api.BookingResponse, error) {
	const op = "service.CreateBooking"

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: invalid date", op, response.ErrBadRequest)
	}

	minute, err := schedule.ParseClock(req.Time)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: invalid time", op, response.ErrBadRequest)
	}

	if _, err := s.store.GetDoctorProfile(ctx, req.DoctorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lockKey := bookingLockKey(req.DoctorID, req.Date, minute)

	locked, err := s.locker.Lock(ctx, lockKey, bookingLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: lock error: %w", op, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", op, response.ErrLocked)
	}
	defer func() {
		_ = s.locker.Unlock(ctx, lockKey)
	}()

	capacity, err := s.capacityAt(ctx, req.DoctorID, int(date.Weekday()), minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	booking := &models.Booking{
		DoctorID:          req.DoctorID,
		PatientID:         req.PatientID,
		AppointmentDate:   date,
		AppointmentMinute: minute,
		Status:            models.BookingScheduled,
		Reason:            req.Reason,
	}

	bookingID, err := s.store.CreateBooking(ctx, booking, capacity)
	if err != nil {
		return nil, fmt.Errorf("%s: create booking: %w", op, err)
	}

	return s.GetBooking(ctx, bookingID)
}

// capacityAt resolves the booking capacity at the requested key from the
// rules covering it. A time outside every window keeps the default capacity
// of one so front-desk overrides stay bookable.
func (s *Service) capacityAt(ctx context.Context, doctorID string, weekday, minute int) (int, error) {
	rules, err := s.resolveDayRules(ctx, doctorID, weekday)
	if err != nil {
		return 0, err
	}

	return schedule.CapacityAt(rules, minute), nil
}

func bookingLockKey(doctorID, date string, minute int) string {
	return fmt.Sprintf("booking:%s:%s:%d", doctorID, date, minute)
}

func (s *Service) GetBooking(ctx context.Context, id string) (*api.BookingResponse, error) {
	const op = "service.GetBooking"

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookingResponse(booking), nil
}

func bookingResponse(booking *models.Booking) *api.BookingResponse {
	return &api.BookingResponse{
		ID:        booking.ID,
		DoctorID:  booking.DoctorID,
		PatientID: booking.PatientID,
		Date:      booking.AppointmentDate.Format("2006-01-02"),
		Time:      schedule.FormatClock(booking.AppointmentMinute),
		Status:    string(booking.Status),
		Reason:    booking.Reason,
		Notes:     booking.Notes,
	}
}

func (s *Service) RescheduleBooking(ctx context.Context, req *api.RescheduleRequest) (*api.BookingResponse, error) {
	const op = "service.RescheduleBooking"

	newDate, err := time.Parse("2006-01-02", req.NewDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: invalid new_date", op, response.ErrBadRequest)
	}

	newMinute, err := schedule.ParseClock(req.NewTime)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: invalid new_time", op, response.ErrBadRequest)
	}

	booking, err := s.store.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lockKey := bookingLockKey(booking.DoctorID, req.NewDate, newMinute)

	locked, err := s.locker.Lock(ctx, lockKey, bookingLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: lock error: %w", op, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", op, response.ErrLocked)
	}
	defer func() {
		_ = s.locker.Unlock(ctx, lockKey)
	}()

	capacity, err := s.capacityAt(ctx, booking.DoctorID, int(newDate.Weekday()), newMinute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	note := fmt.Sprintf("rescheduled from %s %s to %s %s",
		booking.AppointmentDate.Format("2006-01-02"),
		schedule.FormatClock(booking.AppointmentMinute),
		req.NewDate, req.NewTime,
	)

	if err := s.store.RescheduleBooking(ctx, booking.ID, newDate, newMinute, capacity, note); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetBooking(ctx, booking.ID)
}

func (s *Service) CancelBooking(ctx context.Context, bookingID, reason string) (*api.BookingResponse, error) {
	const op = "service.CancelBooking"

	if _, err := s.store.GetBooking(ctx, bookingID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	note := ""
	if reason != "" {
		note = "cancelled: " + reason
	}

	if err := s.store.CancelBooking(ctx, bookingID, note); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetBooking(ctx, bookingID)
}

func (s *Service) UpdateBookingStatus(ctx context.Context, bookingID, status string) (*api.BookingResponse, error) {
	const op = "service.UpdateBookingStatus"

	newStatus := models.BookingStatus(status)
	switch newStatus {
	case models.BookingConfirmed, models.BookingInProgress, models.BookingCompleted, models.BookingNoShow:
	default:
		return nil, fmt.Errorf("%s: %w: invalid status", op, response.ErrBadRequest)
	}

	if err := s.store.UpdateBookingStatus(ctx, bookingID, newStatus); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetBooking(ctx, bookingID)
}

// Leave

func (s *Service) CreateLeave(ctx context.Context, req *api.LeaveCreateRequest) (*api.LeaveResponse, error) {
	const op = "service.CreateLeave"

	date, err := time.Parse("2006-01-02", req.LeaveDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: invalid leave_date", op, response.ErrBadRequest)
	}

	leave := &models.LeaveRequest{
		DoctorID:  req.DoctorID,
		LeaveDate: date,
		IsFullDay: req.IsFullDay,
		Reason:    req.Reason,
		Status:    models.LeavePending,
	}

	if req.IsFullDay {
		if req.StartTime != nil || req.EndTime != nil {
			return nil, fmt.Errorf("%s: %w: full-day leave must not carry a time range", op, response.ErrBadRequest)
		}
	} else {
		if req.StartTime == nil || req.EndTime == nil {
			return nil, fmt.Errorf("%s: %w: partial-day leave requires start_time and end_time", op, response.ErrBadRequest)
		}

		start, err := schedule.ParseClock(*req.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: invalid start_time", op, response.ErrBadRequest)
		}

		end, err := schedule.ParseClock(*req.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: invalid end_time", op, response.ErrBadRequest)
		}

		if end <= start {
			return nil, fmt.Errorf("%s: %w: end_time must be after start_time", op, response.ErrBadRequest)
		}

		leave.StartMinute = &start
		leave.EndMinute = &end
	}

	if _, err := s.store.GetDoctorProfile(ctx, req.DoctorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.store.CreateLeave(ctx, leave)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetLeave(ctx, id)
}

func (s *Service) GetLeave(ctx context.Context, id string) (*api.LeaveResponse, error) {
	const op = "service.GetLeave"

	leave, err := s.store.GetLeave(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return leaveResponse(leave), nil
}

func (s *Service) ListLeave(ctx context.Context, doctorID, status *string) ([]*api.LeaveResponse, error) {
	const op = "service.ListLeave"

	var leaveStatus *models.LeaveStatus
	if status != nil {
		st := models.LeaveStatus(*status)
		switch st {
		case models.LeavePending, models.LeaveApproved, models.LeaveRejected:
			leaveStatus = &st
		default:
			return nil, fmt.Errorf("%s: %w: invalid status", op, response.ErrBadRequest)
		}
	}

	leaves, err := s.store.ListLeave(ctx, doctorID, leaveStatus)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*api.LeaveResponse, 0, len(leaves))
	for _, leave := range leaves {
		result = append(result, leaveResponse(leave))
	}

	return result, nil
}

// DecideLeave moves a pending leave to approved or rejected. The transition
// happens at most once, and the leave's own doctor can never decide it.
func (s *Service) DecideLeave(ctx context.Context, id string, req *api.LeaveDecideRequest) (*api.LeaveResponse, error) {
	const op = "service.DecideLeave"

	newStatus := models.LeaveStatus(req.Status)
	if newStatus != models.LeaveApproved && newStatus != models.LeaveRejected {
		return nil, fmt.Errorf("%s: %w: status must be approved or rejected", op, response.ErrBadRequest)
	}

	if req.ApproverUserID == "" {
		return nil, fmt.Errorf("%s: %w: approver_user_id is required", op, response.ErrBadRequest)
	}

	leave, err := s.store.GetLeave(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if leave.Status != models.LeavePending {
		return nil, fmt.Errorf("%s: %w", op, response.ErrConflict)
	}

	profile, err := s.store.GetDoctorProfile(ctx, leave.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if req.ApproverUserID == profile.OwnerUserID {
		return nil, fmt.Errorf("%s: %w", op, response.ErrForbidden)
	}

	if err := s.store.UpdateLeaveStatus(ctx, id, newStatus, req.ApproverUserID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetLeave(ctx, id)
}

func leaveResponse(leave *models.LeaveRequest) *api.LeaveResponse {
	resp := &api.LeaveResponse{
		ID:        leave.ID,
		DoctorID:  leave.DoctorID,
		LeaveDate: leave.LeaveDate.Format("2006-01-02"),
		IsFullDay: leave.IsFullDay,
		Reason:    leave.Reason,
		Status:    string(leave.Status),
	}

	if leave.StartMinute != nil {
		start := schedule.FormatClock(*leave.StartMinute)
		resp.StartTime = &start
	}
	if leave.EndMinute != nil {
		end := schedule.FormatClock(*leave.EndMinute)
		resp.EndTime = &end
	}
	if leave.ApprovedBy != nil {
		resp.ApprovedBy = leave.ApprovedBy
	}
	if leave.ApprovalDate != nil {
		approvedAt := leave.ApprovalDate.Format(time.RFC3339)
		resp.ApprovalDate = &approvedAt
	}

	return resp
}

// Rollups

func (s *Service) AvailableDoctorIDs(ctx context.Context, dateStr string) ([]string, error) {
	const op = "service.AvailableDoctorIDs"

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: invalid date", op, response.ErrBadRequest)
	}

	ids, err := s.store.AvailableDoctorIDs(ctx, date, int(date.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ids, nil
}

func (s *Service) AvailabilitySummary(ctx context.Context, hospitalID string) (*api.SummaryResponse, error) {
	const op = "service.AvailabilitySummary"

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	summary, err := s.store.AvailabilitySummary(ctx, hospitalID, today)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &api.SummaryResponse{
		Doctors:        summary.Doctors,
		ActiveRules:    summary.ActiveRules,
		RulesByWeekday: summary.RulesByWeekday,
		ApprovedLeave:  summary.ApprovedLeave,
		LeaveToday:     summary.LeaveToday,
		LeaveUpcoming:  summary.LeaveUpcoming,
	}, nil
}
