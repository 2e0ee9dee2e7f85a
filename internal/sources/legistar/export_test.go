package legistar

import "time"

func (a *Adapter) SetClock(now func() time.Time) { a.now = now }
