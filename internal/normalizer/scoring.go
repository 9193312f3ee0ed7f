package normalizer

import (
	"time"

	"github.com/julianstephens/dayplan/internal/constants"
	"github.com/julianstephens/dayplan/internal/models"
	"github.com/julianstephens/dayplan/internal/utils"
)

var priorityWeights = map[models.PriorityLabel]float64{
	models.PriorityCritical: 30,
	models.PriorityHigh:     22,
	models.PriorityMedium:   14,
	models.PriorityLow:      6,
}

// PriorityWeight maps a label onto the descending weight scale. Unknown labels
// weigh as medium.
func PriorityWeight(label models.PriorityLabel) float64 {
	if w, ok := priorityWeights[label]; ok {
		return w
	}
	return priorityWeights[models.PriorityMedium]
}

// BaseScore is the label component shared by flexible and incomplete tasks.
func BaseScore(label models.PriorityLabel) float64 {
	return PriorityWeight(label) * 2
}

// DeadlineUrgency grows as due approaches the plan date.
func DeadlineUrgency(planDate time.Time, due *time.Time) float64 {
	if due == nil {
		return 0
	}
	days := utils.DaysUntil(planDate, *due)
	var u float64
	switch {
	case days < 0:
		u = 25
	case days == 0:
		u = 20
	case days <= 1:
		u = 15
	case days <= 3:
		u = 10
	case days <= 7:
		u = 5
	default:
		u = 0
	}
	if u > constants.MaxDeadlineUrgency {
		u = constants.MaxDeadlineUrgency
	}
	return u
}

// TargetWeight rewards tasks tagged with under-served targets.
func TargetWeight(targets []string, underserved map[string]bool) float64 {
	var w float64
	for _, t := range targets {
		if underserved[t] {
			w += constants.TargetWeightPerMatch
		}
	}
	if w > constants.MaxTargetWeight {
		w = constants.MaxTargetWeight
	}
	return w
}

// FlexibleScore is the score of a priority-sheet task.
func FlexibleScore(label models.PriorityLabel, planDate time.Time, due *time.Time, targets []string, underserved map[string]bool) float64 {
	return BaseScore(label) + DeadlineUrgency(planDate, due) + TargetWeight(targets, underserved)
}

// IncompleteScore is the score of a carried-over task.
func IncompleteScore(label models.PriorityLabel) float64 {
	return BaseScore(label) + constants.CarryoverBonus
}
