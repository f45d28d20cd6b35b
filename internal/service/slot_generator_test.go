package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/mentor-booking-api/internal/models"
)

func slot(start, end string) models.Slot {
	return models.Slot{StartTime: models.MustTimeOfDay(start), EndTime: models.MustTimeOfDay(end)}
}

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func weeklyTemplate(duration int, windows ...models.WeeklyWindow) *models.AvailabilityTemplate {
	return &models.AvailabilityTemplate{MentorID: "mentor-1", SlotDurationMinutes: duration, Windows: windows}
}

func TestGenerateSlotsShape(t *testing.T) {
	tpl := weeklyTemplate(30, models.WeeklyWindow{DayOfWeek: 2, StartTime: "09:00", EndTime: "10:00"})

	// 2026-03-03 is a Tuesday.
	assert.Equal(t, []models.Slot{slot("09:00", "09:30"), slot("09:30", "10:00")}, GenerateSlots(tpl, day("2026-03-03")))

	for _, other := range []string{"2026-03-01", "2026-03-02", "2026-03-04", "2026-03-05", "2026-03-06", "2026-03-07"} {
		assert.Empty(t, GenerateSlots(tpl, day(other)), other)
	}
}

func TestGenerateSlotsDurationBoundary(t *testing.T) {
	monday := day("2026-03-02")
	window := models.WeeklyWindow{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"}

	assert.Equal(t, []models.Slot{slot("09:00", "10:00")}, GenerateSlots(weeklyTemplate(60, window), monday))
	assert.Equal(t, []models.Slot{slot("09:00", "09:45")}, GenerateSlots(weeklyTemplate(45, window), monday))
	assert.Len(t, GenerateSlots(weeklyTemplate(10, window), monday), 6)

	short := models.WeeklyWindow{DayOfWeek: 1, StartTime: "09:00", EndTime: "09:50"}
	assert.Empty(t, GenerateSlots(weeklyTemplate(60, short), monday))
}

func TestGenerateSlotsKeepsWindowOrderAndDuplicates(t *testing.T) {
	tpl := weeklyTemplate(30,
		models.WeeklyWindow{DayOfWeek: 1, StartTime: "14:00", EndTime: "15:00"},
		models.WeeklyWindow{DayOfWeek: 3, StartTime: "08:00", EndTime: "09:00"},
		models.WeeklyWindow{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"},
		models.WeeklyWindow{DayOfWeek: 1, StartTime: "09:30", EndTime: "10:00"},
	)

	assert.Equal(t, []models.Slot{
		slot("14:00", "14:30"), slot("14:30", "15:00"),
		slot("09:00", "09:30"), slot("09:30", "10:00"),
		slot("09:30", "10:00"),
	}, GenerateSlots(tpl, day("2026-03-02")))
}

func TestGenerateSlotsToleratesMalformedTemplates(t *testing.T) {
	monday := day("2026-03-02")
	tpl := weeklyTemplate(30,
		models.WeeklyWindow{DayOfWeek: 1, StartTime: "11:00", EndTime: "10:00"},
		models.WeeklyWindow{DayOfWeek: 1, StartTime: "10:00", EndTime: "10:00"},
		models.WeeklyWindow{DayOfWeek: 1, StartTime: "9:00", EndTime: "10:00"},
		models.WeeklyWindow{DayOfWeek: 1, StartTime: "10:00", EndTime: "25:00"},
		models.WeeklyWindow{DayOfWeek: 1, StartTime: "23:00", EndTime: "24:00"},
	)
	assert.Equal(t, []models.Slot{slot("23:00", "23:30"), slot("23:30", "24:00")}, GenerateSlots(tpl, monday))

	assert.Empty(t, GenerateSlots(nil, monday))
	assert.Empty(t, GenerateSlots(weeklyTemplate(0, models.WeeklyWindow{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"}), monday))
	assert.NotNil(t, GenerateSlots(models.DefaultTemplate("mentor-1"), monday))
}

func TestGenerateSlotsUsesUTCWeekday(t *testing.T) {
	tpl := weeklyTemplate(30, models.WeeklyWindow{DayOfWeek: 1, StartTime: "09:00", EndTime: "09:30"})
	// Sunday evening in UTC-5 is already Monday in UTC.
	sundayEvening := time.Date(2026, 3, 1, 21, 0, 0, 0, time.FixedZone("UTC-5", -5*3600))
	assert.Equal(t, []models.Slot{slot("09:00", "09:30")}, GenerateSlots(tpl, sundayEvening))
}

func TestSubtractBooked(t *testing.T) {
	slots := []models.Slot{slot("10:00", "10:20"), slot("10:20", "10:40"), slot("10:40", "11:00")}
	assert.Equal(t, []models.Slot{slot("10:00", "10:20"), slot("10:40", "11:00")},
		subtractBooked(slots, []models.TimeOfDay{models.MustTimeOfDay("10:20"), models.MustTimeOfDay("12:00")}))
	assert.Equal(t, slots, subtractBooked(slots, nil))
}
