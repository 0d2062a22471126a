package admission

import "time"

// Priority bases are spaced so that waiting time can reorder entries within
// a band but never across bands: the wait boost caps at 250, below the 300
// point gap between adjacent bases.
var priorityBase = map[PriorityLevel]float64{
	PriorityCritical: 1000,
	PriorityHigh:     700,
	PriorityMedium:   400,
	PriorityLow:      100,
}

const (
	waitPointsPerHour = 10.0
	maxWaitBoost      = 250.0
)

// Score ranks a queue entry from its priority level and how long it has been
// waiting. Higher scores dequeue first. Unknown levels rank below LOW.
func Score(level PriorityLevel, wait time.Duration) float64 {
	boost := wait.Hours() * waitPointsPerHour
	if boost < 0 {
		boost = 0
	}
	if boost > maxWaitBoost {
		boost = maxWaitBoost
	}
	return priorityBase[level] + boost
}
