package freeslot

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/schedd/internal/model"
)

var day = model.NewDate(2025, time.October, 2)

func oneDay(d model.Date) model.DateRange { return model.DateRange{From: d, To: d} }

func TestCalculateAfternoonAroundOneMeeting(t *testing.T) {
	busy := []model.TimeInterval{{Date: day, Start: 14 * 60, End: 15 * 60}}
	slots := Calculate(busy, oneDay(day), Window{Start: 13 * 60, End: 17 * 60}, 45)

	require.Len(t, slots, 2)
	assert.Equal(t, model.Span{Date: day, Start: 13 * 60, End: 14 * 60}, slots[0].Span)
	assert.Equal(t, model.Span{Date: day, Start: 15 * 60, End: 17 * 60}, slots[1].Span)
}

func TestCalculateDropsShortGaps(t *testing.T) {
	busy := []model.TimeInterval{
		{Date: day, Start: 600, End: 630},
		{Date: day, Start: 650, End: 700},
	}
	slots := Calculate(busy, oneDay(day), Window{Start: 600, End: 720}, 30)
	require.Len(t, slots, 0)

	slots = Calculate(busy, oneDay(day), Window{Start: 600, End: 720}, 20)
	require.Len(t, slots, 2)
	assert.Equal(t, 630, slots[0].Start)
	assert.Equal(t, 700, slots[1].Start)
}

func TestCalculateMergesOverlappingBusy(t *testing.T) {
	busy := []model.TimeInterval{
		{Date: day, Start: 540, End: 660},
		{Date: day, Start: 600, End: 630},
		{Date: day, Start: 650, End: 720},
	}
	slots := Calculate(busy, oneDay(day), Window{Start: 480, End: 780}, 1)
	require.Len(t, slots, 2)
	assert.Equal(t, model.Span{Date: day, Start: 480, End: 540}, slots[0].Span)
	assert.Equal(t, model.Span{Date: day, Start: 720, End: 780}, slots[1].Span)
}

func TestCalculateEmptyDayIsOneSlot(t *testing.T) {
	slots := Calculate(nil, oneDay(day), FullDay, 60)
	require.Len(t, slots, 1)
	assert.Equal(t, model.MinutesPerDay, slots[0].Duration())
}

func TestCalculateCrossMidnightWindowMergesAtBoundary(t *testing.T) {
	next := day.AddDays(1)
	busy := []model.TimeInterval{
		{Date: day, Start: 21 * 60, End: 22 * 60},
		{Date: next, Start: 60, End: 90},
	}
	slots := Calculate(busy, oneDay(day), Window{Start: 20 * 60, End: 2 * 60}, 30)
	require.Len(t, slots, 3)
	assert.Equal(t, model.Span{Date: day, Start: 20 * 60, End: 21 * 60}, slots[0].Span)
	assert.Equal(t, model.Span{Date: day, Start: 22 * 60, End: 60}, slots[1].Span)
	assert.Equal(t, 180, slots[1].Duration())
	assert.Equal(t, model.Span{Date: next, Start: 90, End: 120}, slots[2].Span)
}

func TestCalculateCrossMidnightBusyAtBoundaryPreventsMerge(t *testing.T) {
	next := day.AddDays(1)
	busy := []model.TimeInterval{{Date: next, Start: 0, End: 15}}
	slots := Calculate(busy, oneDay(day), Window{Start: 23 * 60, End: 60}, 1)
	require.Len(t, slots, 2)
	assert.Equal(t, model.Span{Date: day, Start: 23 * 60, End: 0}, slots[0].Span)
	assert.Equal(t, model.Span{Date: next, Start: 15, End: 60}, slots[1].Span)
}

func TestCalculateNeverOverlapsBusy(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	days := model.DateRange{From: day, To: day.AddDays(3)}
	for iter := 0; iter < 300; iter++ {
		var busy []model.TimeInterval
		for _, d := range append(days.Days(), days.To.AddDays(1)) {
			for i := 0; i < rng.Intn(6); i++ {
				start := rng.Intn(model.MinutesPerDay - 15)
				end := min(start+15+rng.Intn(180), model.MinutesPerDay)
				busy = append(busy, model.TimeInterval{Date: d, Start: start, End: end})
			}
		}
		window := Window{Start: rng.Intn(24) * 60, End: rng.Intn(24) * 60}
		minDuration := 1 + rng.Intn(120)

		for _, slot := range Calculate(busy, days, window, minDuration) {
			assert.GreaterOrEqual(t, slot.Duration(), minDuration)
			for _, seg := range slot.Segments() {
				for _, b := range busy {
					require.False(t, seg.Overlaps(b), "slot %s overlaps busy %s", slot.Span, b)
				}
			}
		}
	}
}

func TestFitAlignsToGranularity(t *testing.T) {
	busy := []model.TimeInterval{{Date: day, Start: 480, End: 547}}
	span, ok := Fit(busy, day, Window{Start: 480, End: 720}, 30, 5)
	require.True(t, ok)
	assert.Equal(t, model.Span{Date: day, Start: 550, End: 580}, span)

	_, ok = Fit(busy, day, Window{Start: 480, End: 560}, 30, 5)
	assert.False(t, ok)
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("Morning")
	require.NoError(t, err)
	assert.Equal(t, Window{Start: 480, End: 720}, w)

	w, err = ParseWindow("22:00-01:30")
	require.NoError(t, err)
	assert.Equal(t, Window{Start: 1320, End: 90}, w)

	_, err = ParseWindow("lunchtime")
	assert.Error(t, err)
}
