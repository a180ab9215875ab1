package main

import "time"

// Clock lets tests drive pose ages and cycle timings deterministically.
type Clock interface {
	Now() time.Time
}

type RealtimeClock struct{}

func NewRealtimeClock() RealtimeClock {
	return RealtimeClock{}
}

func (RealtimeClock) Now() time.Time { return time.Now() }
