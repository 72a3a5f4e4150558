package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"medsched-service/internal/models"
)

const (
	legacySlotDurationMinutes = 30
	legacyBufferMinutes       = 0
	legacyCapacity            = 1
)

// GenerateSlots expands the given rules into the candidate slots of one day.
// booked maps minute-of-day to the current non-cancelled booking count.
// Slots are emitted per rule in chronological order; rules are concatenated
// in input order without a global re-sort, so overlapping or out-of-order
// windows are surfaced to the caller as-is.
func GenerateSlots(rules []*models.AvailabilityRule, booked map[int]int) []models.Slot {
	var slots []models.Slot

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}

		step := rule.SlotDurationMinutes + rule.BufferMinutes
		if step <= 0 {
			step = rule.SlotDurationMinutes
		}
		if step <= 0 {
			step = 1
		}

		for cur := rule.StartMinute; cur+rule.SlotDurationMinutes <= rule.EndMinute; cur += step {
			slots = append(slots, models.Slot{
				Minute:              cur,
				Available:           booked[cur] < rule.MaxAppointmentsPerSlot,
				Capacity:            rule.MaxAppointmentsPerSlot,
				SlotDurationMinutes: rule.SlotDurationMinutes,
				BufferMinutes:       rule.BufferMinutes,
			})
		}
	}

	return slots
}

// ApplyLeave marks leave-blocked slots unavailable. Only approved leave has
// any effect. Full-day leave blanks every slot; partial-day leave blocks the
// half-open window [StartMinute, EndMinute). Capacity and timing fields pass
// through untouched.
func ApplyLeave(slots []models.Slot, leave *models.LeaveRequest) []models.Slot {
	if leave == nil || leave.Status != models.LeaveApproved {
		return slots
	}

	out := make([]models.Slot, len(slots))
	copy(out, slots)

	for i := range out {
		if leave.IsFullDay {
			out[i].Available = false
			continue
		}

		if leave.StartMinute == nil || leave.EndMinute == nil {
			continue
		}

		if out[i].Minute >= *leave.StartMinute && out[i].Minute < *leave.EndMinute {
			out[i].Available = false
		}
	}

	return out
}

// SynthesizeLegacyRule builds one implicit rule from a doctor's coarse legacy
// availability (day-name list plus a single daily range) for doctors without
// explicit rules on the given weekday. Returns false when the legacy profile
// does not cover the weekday or has no usable range.
func SynthesizeLegacyRule(profile *models.DoctorProfile, weekday int) (*models.AvailabilityRule, bool) {
	if profile == nil || profile.AvailableFromMinute == nil || profile.AvailableToMinute == nil {
		return nil, false
	}

	if *profile.AvailableToMinute <= *profile.AvailableFromMinute {
		return nil, false
	}

	covered := false
	for _, d := range profile.LegacyDays {
		if wd, ok := ParseWeekday(d); ok && int(wd) == weekday {
			covered = true
			break
		}
	}
	if !covered {
		return nil, false
	}

	return &models.AvailabilityRule{
		DoctorID:               profile.DoctorID,
		DayOfWeek:              weekday,
		StartMinute:            *profile.AvailableFromMinute,
		EndMinute:              *profile.AvailableToMinute,
		SlotDurationMinutes:    legacySlotDurationMinutes,
		BufferMinutes:          legacyBufferMinutes,
		MaxAppointmentsPerSlot: legacyCapacity,
		IsActive:               true,
	}, true
}

// CapacityAt resolves the booking capacity at a minute of day from the active
// rules covering it, taking the largest capacity when windows overlap.
// Falls back to 1 when no rule covers the minute, which also admits
// front-desk bookings outside any configured window.
func CapacityAt(rules []*models.AvailabilityRule, minute int) int {
	capacity := 0

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if minute < rule.StartMinute || minute >= rule.EndMinute {
			continue
		}
		if rule.MaxAppointmentsPerSlot > capacity {
			capacity = rule.MaxAppointmentsPerSlot
		}
	}

	if capacity == 0 {
		capacity = 1
	}

	return capacity
}

// ParseClock parses a "15:04" time of day into minutes since midnight.
// Second-level precision is not representable and is thereby discarded.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}

	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as "15:04".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseWeekday parses the day spellings found in legacy day lists:
// "mon", "monday", "Mon", "1", "0" and so on (0 = Sunday).
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n >= 0 && n <= 6 {
			return time.Weekday(n), true
		}
		// 1..7 with Monday=1, Sunday=7
		if n == 7 {
			return time.Sunday, true
		}
		return 0, false
	}

	switch s {
	case "sun", "sunday":
		return time.Sunday, true
	case "mon", "monday":
		return time.Monday, true
	case "tue", "tues", "tuesday":
		return time.Tuesday, true
	case "wed", "wednesday":
		return time.Wednesday, true
	case "thu", "thur", "thursday":
		return time.Thursday, true
	case "fri", "friday":
		return time.Friday, true
	case "sat", "saturday":
		return time.Saturday, true
	default:
		return 0, false
	}
}
