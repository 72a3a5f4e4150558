package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"medsched-service/internal/models"
	"medsched-service/pkg/response"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// #### doctors ####

func (s *Storage) GetDoctorProfile(ctx context.Context, doctorID string) (*models.DoctorProfile, error) {
	const op = "storage.postgres.GetDoctorProfile"

	profile := models.DoctorProfile{DoctorID: doctorID}

	err := s.db.QueryRowContext(ctx,
		`SELECT hospital_id, owner_user_id, legacy_days, available_from_minute, available_to_minute
		FROM doctors WHERE doctor_id=$1`, doctorID).
		Scan(
			&profile.HospitalID,
			&profile.OwnerUserID,
			pq.Array(&profile.LegacyDays),
			&profile.AvailableFromMinute,
			&profile.AvailableToMinute,
		)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &profile, nil
}

// #### availability rules ####

// ReplaceAvailabilityRules swaps the doctor's whole rule set in one
// transaction: delete-all-then-insert, never a partial write.
func (s *Storage) ReplaceAvailabilityRules(ctx context.Context, doctorID string, rules []*models.AvailabilityRule) error {
	const op = "storage.postgres.ReplaceAvailabilityRules"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `DELETE FROM availability_rules WHERE doctor_id=$1`, doctorID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, rule := range rules {
		rule.ID = uuid.NewString()
		rule.DoctorID = doctorID

		_, err := tx.ExecContext(ctx,
			`INSERT INTO availability_rules
			(rule_id, doctor_id, day_of_week, start_minute, end_minute,
			 slot_duration_minutes, buffer_minutes, max_appointments_per_slot, notes, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			rule.ID,
			rule.DoctorID,
			rule.DayOfWeek,
			rule.StartMinute,
			rule.EndMinute,
			rule.SlotDurationMinutes,
			rule.BufferMinutes,
			rule.MaxAppointmentsPerSlot,
			rule.Notes,
			rule.IsActive,
		)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

func (s *Storage) ListAvailabilityRules(ctx context.Context, doctorID string) ([]*models.AvailabilityRule, error) {
	const op = "storage.postgres.ListAvailabilityRules"

	rows, err := s.db.QueryContext(ctx,
		`SELECT rule_id, doctor_id, day_of_week, start_minute, end_minute,
			slot_duration_minutes, buffer_minutes, max_appointments_per_slot, notes, is_active
		FROM availability_rules
		WHERE doctor_id=$1
		ORDER BY day_of_week, start_minute`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	return scanRules(rows, op)
}

// ListDayRules returns the active rules of one doctor for one day of week,
// in saved window order.
func (s *Storage) ListDayRules(ctx context.Context, doctorID string, dayOfWeek int) ([]*models.AvailabilityRule, error) {
	const op = "storage.postgres.ListDayRules"

	rows, err := s.db.QueryContext(ctx,
		`SELECT rule_id, doctor_id, day_of_week, start_minute, end_minute,
			slot_duration_minutes, buffer_minutes, max_appointments_per_slot, notes, is_active
		FROM availability_rules
		WHERE doctor_id=$1 AND day_of_week=$2 AND is_active
		ORDER BY start_minute`, doctorID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	return scanRules(rows, op)
}

func scanRules(rows *sql.Rows, op string) ([]*models.AvailabilityRule, error) {
	var rules []*models.AvailabilityRule

	for rows.Next() {
		var rule models.AvailabilityRule

		err := rows.Scan(
			&rule.ID,
			&rule.DoctorID,
			&rule.DayOfWeek,
			&rule.StartMinute,
			&rule.EndMinute,
			&rule.SlotDurationMinutes,
			&rule.BufferMinutes,
			&rule.MaxAppointmentsPerSlot,
			&rule.Notes,
			&rule.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		rules = append(rules, &rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rules, nil
}

// #### leave requests ####

func (s *Storage) CreateLeave(ctx context.Context, leave *models.LeaveRequest) (string, error) {
	const op = "storage.postgres.CreateLeave"

	leave.ID = uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leave_requests
		(leave_id, doctor_id, leave_date, is_full_day, start_minute, end_minute, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		leave.ID,
		leave.DoctorID,
		leave.LeaveDate,
		leave.IsFullDay,
		leave.StartMinute,
		leave.EndMinute,
		leave.Reason,
		string(leave.Status),
	)
	if err != nil {
		sqlErr, ok := err.(*pq.Error)
		if ok && sqlErr.Code == "23505" {
			return "", fmt.Errorf("%s: %w", op, response.ErrConflict)
		}
		if ok && sqlErr.Code == "23503" {
			return "", fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return leave.ID, nil
}

func (s *Storage) GetLeave(ctx context.Context, id string) (*models.LeaveRequest, error) {
	const op = "storage.postgres.GetLeave"

	leave, err := s.queryLeave(ctx,
		`SELECT leave_id, doctor_id, leave_date, is_full_day, start_minute, end_minute,
			reason, status, approved_by, approval_date
		FROM leave_requests WHERE leave_id=$1`, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return leave, nil
}

// GetApprovedLeave returns the approved leave of one doctor on one date,
// or ErrNotFound when none exists.
func (s *Storage) GetApprovedLeave(ctx context.Context, doctorID string, date time.Time) (*models.LeaveRequest, error) {
	const op = "storage.postgres.GetApprovedLeave"

	leave, err := s.queryLeave(ctx,
		`SELECT leave_id, doctor_id, leave_date, is_full_day, start_minute, end_minute,
			reason, status, approved_by, approval_date
		FROM leave_requests
		WHERE doctor_id=$1 AND leave_date=$2 AND status='approved'`, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return leave, nil
}

func (s *Storage) queryLeave(ctx context.Context, query string, args ...any) (*models.LeaveRequest, error) {
	var leave models.LeaveRequest

	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(
			&leave.ID,
			&leave.DoctorID,
			&leave.LeaveDate,
			&leave.IsFullDay,
			&leave.StartMinute,
			&leave.EndMinute,
			&leave.Reason,
			&leave.Status,
			&leave.ApprovedBy,
			&leave.ApprovalDate,
		)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, response.ErrNotFound
		}

		return nil, err
	}

	return &leave, nil
}

func (s *Storage) ListLeave(ctx context.Context, doctorID *string, status *models.LeaveStatus) ([]*models.LeaveRequest, error) {
	const op = "storage.postgres.ListLeave"

	rows, err := s.db.QueryContext(ctx,
		`SELECT leave_id, doctor_id, leave_date, is_full_day, start_minute, end_minute,
			reason, status, approved_by, approval_date
		FROM leave_requests
		WHERE ($1::text IS NULL OR doctor_id=$1)
		AND ($2::text IS NULL OR status=$2)
		ORDER BY leave_date`, doctorID, status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var leaves []*models.LeaveRequest

	for rows.Next() {
		var leave models.LeaveRequest

		err := rows.Scan(
			&leave.ID,
			&leave.DoctorID,
			&leave.LeaveDate,
			&leave.IsFullDay,
			&leave.StartMinute,
			&leave.EndMinute,
			&leave.Reason,
			&leave.Status,
			&leave.ApprovedBy,
			&leave.ApprovalDate,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		leaves = append(leaves, &leave)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return leaves, nil
}

// UpdateLeaveStatus moves a pending leave to approved or rejected. The status
// guard in the WHERE clause makes the transition single-shot: a second decide
// affects zero rows and reports ErrConflict.
func (s *Storage) UpdateLeaveStatus(ctx context.Context, id string, status models.LeaveStatus, approvedBy string, approvalDate time.Time) error {
	const op = "storage.postgres.UpdateLeaveStatus"

	res, err := s.db.ExecContext(ctx,
		`UPDATE leave_requests
		SET status=$1, approved_by=$2, approval_date=$3
		WHERE leave_id=$4 AND status='pending'`,
		string(status), approvedBy, approvalDate, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrConflict)
	}

	return nil
}

// #### bookings ####

// CreateBooking counts occupying bookings at the exact key and inserts in a
// single serializable transaction, so two concurrent writers cannot both pass
// the capacity check. At capacity it reports ErrSlotConflict; a serialization
// failure from the losing writer surfaces as the same ErrSlotConflict.
func (s *Storage) CreateBooking(ctx context.Context, booking *models.Booking, capacity int) (string, error) {
	const op = "storage.postgres.CreateBooking"

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return "", fmt.Errorf("%s: begin tx: %w", op, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	count, err := countBookingsAt(ctx, tx, booking.DoctorID, booking.AppointmentDate, booking.AppointmentMinute, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if count >= capacity {
		return "", fmt.Errorf("%s: %w", op, response.ErrSlotConflict)
	}

	booking.ID = uuid.NewString()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings
		(booking_id, doctor_id, patient_id, appointment_date, appointment_minute, status, reason, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		booking.ID,
		booking.DoctorID,
		booking.PatientID,
		booking.AppointmentDate,
		booking.AppointmentMinute,
		string(booking.Status),
		booking.Reason,
		booking.Notes,
	)
	if err != nil {
		sqlErr, ok := err.(*pq.Error)
		if ok && sqlErr.Code == "23503" {
			return "", fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		if sqlErr, ok := err.(*pq.Error); ok && sqlErr.Code == "40001" {
			return "", fmt.Errorf("%s: %w", op, response.ErrSlotConflict)
		}

		return "", fmt.Errorf("%s: commit: %w", op, err)
	}

	return booking.ID, nil
}

// RescheduleBooking moves a booking to a new key under the same capacity
// check, excluding the booking's own prior identity from the collision count,
// marks it postponed and appends the audit line to the notes.
func (s *Storage) RescheduleBooking(ctx context.Context, id string, newDate time.Time, newMinute int, capacity int, note string) error {
	const op = "storage.postgres.RescheduleBooking"

	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	count, err := countBookingsAt(ctx, tx, booking.DoctorID, newDate, newMinute, &id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if count >= capacity {
		return fmt.Errorf("%s: %w", op, response.ErrSlotConflict)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE bookings
		SET appointment_date=$1, appointment_minute=$2, status='postponed',
			notes = CASE WHEN notes = '' THEN $3 ELSE notes || E'\n' || $3 END
		WHERE booking_id=$4`, newDate, newMinute, note, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		if sqlErr, ok := err.(*pq.Error); ok && sqlErr.Code == "40001" {
			return fmt.Errorf("%s: %w", op, response.ErrSlotConflict)
		}

		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

func countBookingsAt(ctx context.Context, tx *sql.Tx, doctorID string, date time.Time, minute int, excludeBookingID *string) (int, error) {
	var count int

	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
		WHERE doctor_id=$1 AND appointment_date=$2 AND appointment_minute=$3
		AND status NOT IN ('cancelled', 'no_show')
		AND ($4::text IS NULL OR booking_id <> $4)`,
		doctorID, date, minute, excludeBookingID).
		Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (s *Storage) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	const op = "storage.postgres.GetBooking"

	var booking models.Booking

	err := s.db.QueryRowContext(ctx,
		`SELECT booking_id, doctor_id, patient_id, appointment_date, appointment_minute, status, reason, notes
		FROM bookings WHERE booking_id=$1`, id).
		Scan(
			&booking.ID,
			&booking.DoctorID,
			&booking.PatientID,
			&booking.AppointmentDate,
			&booking.AppointmentMinute,
			&booking.Status,
			&booking.Reason,
			&booking.Notes,
		)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &booking, nil
}

// CountBookingsByMinute returns the occupancy map of one doctor's day:
// minute of day to count of non-cancelled, non-no-show bookings.
func (s *Storage) CountBookingsByMinute(ctx context.Context, doctorID string, date time.Time) (map[int]int, error) {
	const op = "storage.postgres.CountBookingsByMinute"

	rows, err := s.db.QueryContext(ctx,
		`SELECT appointment_minute, COUNT(*) FROM bookings
		WHERE doctor_id=$1 AND appointment_date=$2
		AND status NOT IN ('cancelled', 'no_show')
		GROUP BY appointment_minute`, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	booked := make(map[int]int)

	for rows.Next() {
		var minute, count int

		if err := rows.Scan(&minute, &count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		booked[minute] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return booked, nil
}

func (s *Storage) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error {
	const op = "storage.postgres.UpdateBookingStatus"

	res, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET status=$1 WHERE booking_id=$2`, string(status), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

// CancelBooking sets the row to cancelled and keeps it for audit. The reason,
// when given, is appended to the free-text notes.
func (s *Storage) CancelBooking(ctx context.Context, id string, note string) error {
	const op = "storage.postgres.CancelBooking"

	res, err := s.db.ExecContext(ctx,
		`UPDATE bookings
		SET status='cancelled',
			notes = CASE WHEN $1 = '' THEN notes
				WHEN notes = '' THEN $1
				ELSE notes || E'\n' || $1 END
		WHERE booking_id=$2`, note, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

// #### available doctors / summary ####

// AvailableDoctorIDs lists doctors with at least one active rule on the
// weekday and no approved full-day leave on the date. Partial-day leave does
// not remove a doctor from this coarse check.
func (s *Storage) AvailableDoctorIDs(ctx context.Context, date time.Time, dayOfWeek int) ([]string, error) {
	const op = "storage.postgres.AvailableDoctorIDs"

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT r.doctor_id FROM availability_rules r
		WHERE r.day_of_week=$1 AND r.is_active
		AND NOT EXISTS (
			SELECT 1 FROM leave_requests l
			WHERE l.doctor_id=r.doctor_id AND l.leave_date=$2
			AND l.status='approved' AND l.is_full_day
		)
		ORDER BY r.doctor_id`, dayOfWeek, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string

		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ids, nil
}

// AvailabilitySummary aggregates rule and leave counts, scoped to one
// hospital when hospitalID is non-empty.
func (s *Storage) AvailabilitySummary(ctx context.Context, hospitalID string, today time.Time) (*models.AvailabilitySummary, error) {
	const op = "storage.postgres.AvailabilitySummary"

	var summary models.AvailabilitySummary

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM doctors
		WHERE ($1 = '' OR hospital_id=$1)`, hospitalID).
		Scan(&summary.Doctors)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.day_of_week, COUNT(*) FROM availability_rules r
		JOIN doctors d ON d.doctor_id = r.doctor_id
		WHERE r.is_active AND ($1 = '' OR d.hospital_id=$1)
		GROUP BY r.day_of_week`, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	for rows.Next() {
		var day, count int

		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if day >= 0 && day <= 6 {
			summary.RulesByWeekday[day] = count
			summary.ActiveRules += count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE l.leave_date = $2),
			COUNT(*) FILTER (WHERE l.leave_date > $2)
		FROM leave_requests l
		JOIN doctors d ON d.doctor_id = l.doctor_id
		WHERE l.status='approved' AND ($1 = '' OR d.hospital_id=$1)`,
		hospitalID, today).
		Scan(&summary.ApprovedLeave, &summary.LeaveToday, &summary.LeaveUpcoming)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &summary, nil
}
