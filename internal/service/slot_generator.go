package service

import (
	"time"

	"github.com/noah-isme/mentor-booking-api/internal/models"
)

// GenerateSlots expands the template's windows for the UTC weekday of date
// into fixed-length candidate slots. Windows are visited in stored order and
// each is walked from its start while a whole slot still fits, so overlapping
// windows produce duplicates. Malformed windows and non-positive durations
// contribute nothing; the function never fails.
func GenerateSlots(tpl *models.AvailabilityTemplate, date time.Time) []models.Slot {
	slots := []models.Slot{}
	if tpl == nil || tpl.SlotDurationMinutes <= 0 {
		return slots
	}

	duration := models.TimeOfDay(tpl.SlotDurationMinutes)
	weekday := int(date.UTC().Weekday())

	for _, window := range tpl.Windows {
		if window.DayOfWeek != weekday {
			continue
		}
		start, err := models.ParseTimeOfDay(window.StartTime)
		if err != nil {
			continue
		}
		end, err := models.ParseTimeOfDay(window.EndTime)
		if err != nil || start >= end {
			continue
		}
		for step := start; step+duration <= end; step += duration {
			slots = append(slots, models.Slot{StartTime: step, EndTime: step + duration})
		}
	}
	return slots
}

// subtractBooked drops every slot whose start time is booked, keeping order.
func subtractBooked(slots []models.Slot, booked []models.TimeOfDay) []models.Slot {
	if len(booked) == 0 {
		return slots
	}
	taken := make(map[models.TimeOfDay]struct{}, len(booked))
	for _, start := range booked {
		taken[start] = struct{}{}
	}
	free := make([]models.Slot, 0, len(slots))
	for _, slot := range slots {
		if _, ok := taken[slot.StartTime]; !ok {
			free = append(free, slot)
		}
	}
	return free
}

func containsSlot(slots []models.Slot, want models.Slot) bool {
	for _, slot := range slots {
		if slot == want {
			return true
		}
	}
	return false
}
