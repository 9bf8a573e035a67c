package clock

import "time"

// Clock abstracts time so token expiry can be driven in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func System() Clock { return systemClock{} }
