package domain

import "time"

// ProceduralAction is a logged event advancing the case's status. The remote
// service is the authority on which target statuses are legal.
type ProceduralAction struct {
	TargetStatus string
	Observation  string
	Date         time.Time
}
