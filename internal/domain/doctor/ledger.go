package doctor

import "slices"

// SlotLedger maps a slot date to the time labels already booked on it, in
// booking order. A missing date key means nothing is booked that day.
type SlotLedger map[string][]string

func (l SlotLedger) IsBooked(date, slotTime string) bool {
	return slices.Contains(l[date], slotTime)
}

// Reserve adds the slot and reports whether it was free.
func (l SlotLedger) Reserve(date, slotTime string) bool {
	if l.IsBooked(date, slotTime) {
		return false
	}
	l[date] = append(l[date], slotTime)
	return true
}

// Release removes the slot and reports whether it was booked. Releasing a
// free slot is a no-op.
func (l SlotLedger) Release(date, slotTime string) bool {
	times, ok := l[date]
	if !ok {
		return false
	}
	i := slices.Index(times, slotTime)
	if i < 0 {
		return false
	}
	times = slices.Delete(times, i, i+1)
	if len(times) == 0 {
		delete(l, date)
	} else {
		l[date] = times
	}
	return true
}

// Clone returns a deep copy so a failed write never leaks into the caller's view.
func (l SlotLedger) Clone() SlotLedger {
	out := make(SlotLedger, len(l))
	for date, times := range l {
		out[date] = slices.Clone(times)
	}
	return out
}

// Count returns the number of booked slots across all dates.
func (l SlotLedger) Count() int {
	n := 0
	for _, times := range l {
		n += len(times)
	}
	return n
}
