package security

import "time"

type Limits struct {
	MinPollSeconds   int
	MaxPollSeconds   int
	MaxQueryDuration time.Duration
	MaxRowLimit      int
}

func DefaultLimits() Limits {
	return Limits{
		MinPollSeconds:   1,
		MaxPollSeconds:   3600,
		MaxQueryDuration: 30 * time.Second,
		MaxRowLimit:      1000,
	}
}
