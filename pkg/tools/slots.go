package tools

import (
	"context"
	"sync"
	"time"
)

// slotWindow is one bookable appointment window in the daily grid. The
// seven fixed 45-minute windows and six-hour minimum advance-booking
// requirement mirror the clinic scheduling rules this tool set was built
// for.
type slotWindow struct {
	start string // "HH:MM"
	end   string
}

var dailySlotGrid = []slotWindow{
	{"09:30", "10:15"},
	{"10:15", "11:00"},
	{"11:00", "11:45"},
	{"11:45", "12:30"},
	{"12:30", "13:15"},
	{"13:15", "14:00"},
	{"14:00", "14:45"},
}

const (
	minAdvanceBooking = 6 * time.Hour
	slotCacheTTL      = 15 * time.Minute
)

// slotFinder caches each day's free slots for slotCacheTTL so a burst of
// "what times do you have" turns from the same caller doesn't refetch the
// calendar on every partial transcript.
type slotFinder struct {
	cal CalendarService
	loc *time.Location

	mu        sync.Mutex
	cache     map[string][]string // "2026-07-29" -> free "HH:MM" starts
	cachedAt  map[string]time.Time
}

func newSlotFinder(cal CalendarService, loc *time.Location) *slotFinder {
	return &slotFinder{
		cal:      cal,
		loc:      loc,
		cache:    make(map[string][]string),
		cachedAt: make(map[string]time.Time),
	}
}

// freeSlotsOn returns the still-bookable "HH:MM" start times for day,
// excluding windows that overlap an existing event and, for today, windows
// inside the minimum-advance-booking cutoff.
func (f *slotFinder) freeSlotsOn(ctx context.Context, day time.Time) ([]string, error) {
	key := day.Format("2006-01-02")

	f.mu.Lock()
	if cached, ok := f.cache[key]; ok && time.Since(f.cachedAt[key]) < slotCacheTTL {
		f.mu.Unlock()
		return cached, nil
	}
	f.mu.Unlock()

	events, err := f.cal.ListEventsOnDay(ctx, day)
	if err != nil {
		return nil, err
	}

	taken := func(start, end time.Time) bool {
		for _, e := range events {
			s, err := time.Parse(time.RFC3339, e.StartRFC3339)
			if err != nil {
				continue
			}
			en, err := time.Parse(time.RFC3339, e.EndRFC3339)
			if err != nil || !en.After(s) {
				en = s.Add(time.Minute)
			}
			if s.Before(end) && en.After(start) {
				return true
			}
		}
		return false
	}

	now := time.Now().In(f.loc)
	cutoff := now.Add(minAdvanceBooking)

	free := make([]string, 0, len(dailySlotGrid))
	for _, w := range dailySlotGrid {
		slotStart, err := time.ParseInLocation("2006-01-02 15:04", key+" "+w.start, f.loc)
		if err == nil && slotStart.Before(cutoff) {
			continue
		}
		slotEnd, _ := time.ParseInLocation("2006-01-02 15:04", key+" "+w.end, f.loc)
		if taken(slotStart, slotEnd) {
			continue
		}
		free = append(free, w.start)
	}

	f.mu.Lock()
	f.cache[key] = free
	f.cachedAt[key] = time.Now()
	f.mu.Unlock()

	return free, nil
}

// windowFor returns the end time for a given free slot's start, needed to
// build a full calendar event.
func windowFor(start string) (end string, ok bool) {
	for _, w := range dailySlotGrid {
		if w.start == start {
			return w.end, true
		}
	}
	return "", false
}
