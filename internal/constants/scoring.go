package constants

const (
	// FixedPriorityScore is carried by every fixed commitment; no other task reaches it.
	FixedPriorityScore = 100.0

	// CarryoverBonus is added to incomplete tasks: yesterday's work is caught up first.
	CarryoverBonus = 10.0

	MaxDeadlineUrgency   = 25.0
	TargetWeightPerMatch = 5.0
	MaxTargetWeight      = 10.0

	ConflictPenalty          = 10.0
	UnmetHighPriorityPenalty = 15.0

	// DefaultPartialProgress is assumed for a partial completion without a better estimate.
	DefaultPartialProgress = 50
)
