package translation

import "time"

// SetClockForTest replaces the clock stamping edits.
func SetClockForTest(s *Store, now func() time.Time) {
	s.now = now
}
