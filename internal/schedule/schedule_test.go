package schedule

import (
	"testing"
	"time"

	"medsched-service/internal/models"
)

func mondayRule(durMin, bufMin, capacity int) *models.AvailabilityRule {
	return &models.AvailabilityRule{
		ID:                     "rule-1",
		DoctorID:               "doc-1",
		DayOfWeek:              1,
		StartMinute:            9 * 60,
		EndMinute:              11 * 60,
		SlotDurationMinutes:    durMin,
		BufferMinutes:          bufMin,
		MaxAppointmentsPerSlot: capacity,
		IsActive:               true,
	}
}

func TestGenerateSlots_BasicWindow(t *testing.T) {
	// Monday 09:00-11:00, 30-minute slots, no buffer, capacity 1.
	slots := GenerateSlots([]*models.AvailabilityRule{mondayRule(30, 0, 1)}, nil)

	want := []int{540, 570, 600, 630}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}

	for i, slot := range slots {
		if slot.Minute != want[i] {
			t.Errorf("slot %d: expected minute %d, got %d", i, want[i], slot.Minute)
		}
		if !slot.Available {
			t.Errorf("slot %d: expected available", i)
		}
		if slot.Capacity != 1 {
			t.Errorf("slot %d: expected capacity 1, got %d", i, slot.Capacity)
		}
	}
}

func TestGenerateSlots_BookedSlotUnavailable(t *testing.T) {
	booked := map[int]int{570: 1}

	slots := GenerateSlots([]*models.AvailabilityRule{mondayRule(30, 0, 1)}, booked)

	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}

	for _, slot := range slots {
		wantAvailable := slot.Minute != 570
		if slot.Available != wantAvailable {
			t.Errorf("slot %s: expected available=%v, got %v", FormatClock(slot.Minute), wantAvailable, slot.Available)
		}
	}
}

func TestGenerateSlots_CapacityAboveOne(t *testing.T) {
	booked := map[int]int{540: 1, 570: 2}

	slots := GenerateSlots([]*models.AvailabilityRule{mondayRule(30, 0, 2)}, booked)

	if !slots[0].Available {
		t.Error("slot at 09:00 with 1 of 2 booked should stay available")
	}
	if slots[1].Available {
		t.Error("slot at 09:30 at capacity should be unavailable")
	}
}

func TestGenerateSlots_BufferAdvancesCursor(t *testing.T) {
	rule := mondayRule(30, 15, 1)
	rule.EndMinute = 10*60 + 30

	slots := GenerateSlots([]*models.AvailabilityRule{rule}, nil)

	// floor(90 / 45) = 2 slots: 09:00 and 09:45.
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].Minute != 540 || slots[1].Minute != 585 {
		t.Errorf("expected slots at 09:00 and 09:45, got %s and %s",
			FormatClock(slots[0].Minute), FormatClock(slots[1].Minute))
	}
}

func TestGenerateSlots_NegativeBufferTerminates(t *testing.T) {
	rule := mondayRule(30, -40, 1)

	done := make(chan []models.Slot, 1)
	go func() {
		done <- GenerateSlots([]*models.AvailabilityRule{rule}, nil)
	}()

	select {
	case slots := <-done:
		// Step falls back to the slot duration: floor(120/30) = 4 slots.
		if len(slots) != 4 {
			t.Errorf("expected 4 slots with fallback step, got %d", len(slots))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("slot generation did not terminate")
	}
}

func TestGenerateSlots_WindowShorterThanSlot(t *testing.T) {
	rule := mondayRule(30, 0, 1)
	rule.EndMinute = rule.StartMinute + 20

	slots := GenerateSlots([]*models.AvailabilityRule{rule}, nil)

	if len(slots) != 0 {
		t.Errorf("expected no slots for a window shorter than one slot, got %d", len(slots))
	}
}

func TestGenerateSlots_InactiveRuleSkipped(t *testing.T) {
	rule := mondayRule(30, 0, 1)
	rule.IsActive = false

	slots := GenerateSlots([]*models.AvailabilityRule{rule}, nil)

	if len(slots) != 0 {
		t.Errorf("expected no slots from an inactive rule, got %d", len(slots))
	}
}

func TestGenerateSlots_NoRules(t *testing.T) {
	if slots := GenerateSlots(nil, nil); len(slots) != 0 {
		t.Errorf("expected empty sequence for zero rules, got %d slots", len(slots))
	}
}

func TestGenerateSlots_MultipleRulesKeepOrder(t *testing.T) {
	morning := mondayRule(30, 0, 1)
	evening := mondayRule(60, 0, 1)
	evening.StartMinute = 18 * 60
	evening.EndMinute = 20 * 60

	slots := GenerateSlots([]*models.AvailabilityRule{evening, morning}, nil)

	// Concatenated per rule in input order, not globally re-sorted.
	if len(slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(slots))
	}
	if slots[0].Minute != 18*60 {
		t.Errorf("expected first slot from the first rule at 18:00, got %s", FormatClock(slots[0].Minute))
	}
	if slots[2].Minute != 540 {
		t.Errorf("expected third slot from the second rule at 09:00, got %s", FormatClock(slots[2].Minute))
	}
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	rules := []*models.AvailabilityRule{mondayRule(30, 0, 1)}
	booked := map[int]int{600: 1}

	first := GenerateSlots(rules, booked)
	second := GenerateSlots(rules, booked)

	if len(first) != len(second) {
		t.Fatalf("repeated generation differs in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("slot %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func intPtr(v int) *int { return &v }

func TestApplyLeave_NilPassesThrough(t *testing.T) {
	slots := GenerateSlots([]*models.AvailabilityRule{mondayRule(30, 0, 1)}, nil)

	out := ApplyLeave(slots, nil)

	for i, slot := range out {
		if !slot.Available {
			t.Errorf("slot %d should stay available without leave", i)
		}
	}
}

func TestApplyLeave_FullDayBlocksEverything(t *testing.T) {
	slots := GenerateSlots([]*models.AvailabilityRule{mondayRule(30, 0, 1)}, nil)

	leave := &models.LeaveRequest{IsFullDay: true, Status: models.LeaveApproved}

	out := ApplyLeave(slots, leave)

	for _, slot := range out {
		if slot.Available {
			t.Errorf("slot %s should be blocked by full-day leave", FormatClock(slot.Minute))
		}
	}
}

func TestApplyLeave_PartialDayHalfOpen(t *testing.T) {
	slots := GenerateSlots([]*models.AvailabilityRule{mondayRule(30, 0, 1)}, nil)

	// 10:00-11:00 blocks 10:00 and 10:30; 09:00 and 09:30 untouched.
	leave := &models.LeaveRequest{
		Status:      models.LeaveApproved,
		StartMinute: intPtr(600),
		EndMinute:   intPtr(660),
	}

	out := ApplyLeave(slots, leave)

	for _, slot := range out {
		wantAvailable := slot.Minute < 600
		if slot.Available != wantAvailable {
			t.Errorf("slot %s: expected available=%v, got %v", FormatClock(slot.Minute), wantAvailable, slot.Available)
		}
	}
}

func TestApplyLeave_PendingAndRejectedIgnored(t *testing.T) {
	slots := GenerateSlots([]*models.AvailabilityRule{mondayRule(30, 0, 1)}, nil)

	for _, status := range []models.LeaveStatus{models.LeavePending, models.LeaveRejected} {
		out := ApplyLeave(slots, &models.LeaveRequest{IsFullDay: true, Status: status})

		for _, slot := range out {
			if !slot.Available {
				t.Errorf("%s leave must not affect availability", status)
			}
		}
	}
}

func TestApplyLeave_DoesNotMutateInput(t *testing.T) {
	slots := GenerateSlots([]*models.AvailabilityRule{mondayRule(30, 0, 1)}, nil)

	_ = ApplyLeave(slots, &models.LeaveRequest{IsFullDay: true, Status: models.LeaveApproved})

	for _, slot := range slots {
		if !slot.Available {
			t.Fatal("ApplyLeave mutated its input slice")
		}
	}
}

func TestSynthesizeLegacyRule(t *testing.T) {
	profile := &models.DoctorProfile{
		DoctorID:            "doc-1",
		LegacyDays:          []string{"mon", "Wednesday", "5"},
		AvailableFromMinute: intPtr(9 * 60),
		AvailableToMinute:   intPtr(12 * 60),
	}

	rule, ok := SynthesizeLegacyRule(profile, 3)
	if !ok {
		t.Fatal("expected a synthesized rule for Wednesday")
	}
	if rule.SlotDurationMinutes != 30 || rule.BufferMinutes != 0 || rule.MaxAppointmentsPerSlot != 1 {
		t.Errorf("unexpected legacy defaults: %+v", rule)
	}
	if rule.StartMinute != 540 || rule.EndMinute != 720 {
		t.Errorf("unexpected window: %d-%d", rule.StartMinute, rule.EndMinute)
	}

	if _, ok := SynthesizeLegacyRule(profile, 2); ok {
		t.Error("Tuesday is not in the legacy day list")
	}
}

func TestSynthesizeLegacyRule_NoRange(t *testing.T) {
	profile := &models.DoctorProfile{
		DoctorID:   "doc-1",
		LegacyDays: []string{"mon"},
	}

	if _, ok := SynthesizeLegacyRule(profile, 1); ok {
		t.Error("expected no rule without a daily range")
	}

	inverted := &models.DoctorProfile{
		DoctorID:            "doc-1",
		LegacyDays:          []string{"mon"},
		AvailableFromMinute: intPtr(600),
		AvailableToMinute:   intPtr(540),
	}

	if _, ok := SynthesizeLegacyRule(inverted, 1); ok {
		t.Error("expected no rule for an inverted range")
	}
}

func TestCapacityAt(t *testing.T) {
	rules := []*models.AvailabilityRule{
		{StartMinute: 540, EndMinute: 660, MaxAppointmentsPerSlot: 2, IsActive: true},
		{StartMinute: 600, EndMinute: 720, MaxAppointmentsPerSlot: 3, IsActive: true},
		{StartMinute: 540, EndMinute: 720, MaxAppointmentsPerSlot: 9, IsActive: false},
	}

	cases := []struct {
		minute int
		want   int
	}{
		{540, 2},
		{600, 3}, // overlap takes the larger capacity
		{700, 3},
		{720, 1}, // end is exclusive
		{300, 1}, // outside every window
	}

	for _, tc := range cases {
		if got := CapacityAt(rules, tc.minute); got != tc.want {
			t.Errorf("CapacityAt(%s) = %d, want %d", FormatClock(tc.minute), got, tc.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	if m, err := ParseClock("09:30"); err != nil || m != 570 {
		t.Errorf("ParseClock(09:30) = %d, %v", m, err)
	}
	if m, err := ParseClock("00:00"); err != nil || m != 0 {
		t.Errorf("ParseClock(00:00) = %d, %v", m, err)
	}
	if _, err := ParseClock("9:30pm"); err == nil {
		t.Error("expected error for invalid clock value")
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[int]string{0: "00:00", 570: "09:30", 1439: "23:59"}

	for minute, want := range cases {
		if got := FormatClock(minute); got != want {
			t.Errorf("FormatClock(%d) = %q, want %q", minute, got, want)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	cases := []struct {
		in   string
		want time.Weekday
		ok   bool
	}{
		{"mon", time.Monday, true},
		{"Monday", time.Monday, true},
		{" SATURDAY ", time.Saturday, true},
		{"0", time.Sunday, true},
		{"6", time.Saturday, true},
		{"7", time.Sunday, true},
		{"", 0, false},
		{"noday", 0, false},
		{"8", 0, false},
	}

	for _, tc := range cases {
		got, ok := ParseWeekday(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ParseWeekday(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
