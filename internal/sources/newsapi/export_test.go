package newsapi

import "time"

// SetClock pins the adapter's notion of now.
func (a *Adapter) SetClock(now func() time.Time) { a.now = now }
