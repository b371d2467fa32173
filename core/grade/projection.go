package grade

import "github.com/trezcool/unilife/core/record"

// Projection compares the completed record with what the remaining modules must achieve.
type Projection struct {
	TargetAverage        float64 `json:"targetAverage"`
	CompletedCredits     int     `json:"completedCredits"`
	CompletedGradePoints float64 `json:"completedGradePoints"`
	FutureCredits        int     `json:"futureCredits"`
	FutureGradePoints    float64 `json:"futureGradePoints"` // assuming every future module meets its target grade

	// ActualAverage is the weighted average of the completed modules.
	ActualAverage float64 `json:"actualAverage"`
	// ProjectedAverage is the weighted average assumed for the future modules.
	ProjectedAverage float64 `json:"projectedAverage"`
	// RequiredAverage is what future modules must average to reach the target.
	// Zero when there are no future credits.
	RequiredAverage float64 `json:"requiredAverage"`
	// FinalProjectedAverage is the overall average if every future module meets its target grade.
	FinalProjectedAverage float64 `json:"finalProjectedAverage"`
	OnTrack               bool    `json:"onTrack"`
}

// Split separates completed modules from the ones still in progress.
func Split(modules []record.Module) (completed, future []record.Module) {
	for _, m := range modules {
		if IsCompleted(m) {
			completed = append(completed, m)
		} else {
			future = append(future, m)
		}
	}
	return completed, future
}

// Project splits modules and computes the projection towards target.
func Project(modules []record.Module, target float64) Projection {
	completed, future := Split(modules)
	return ComputeProjection(completed, future, target)
}

// ComputeProjection projects the final average from completed modules (counted with their
// current grade, special codes included) and future ones (counted with their target grade).
func ComputeProjection(completed, future []record.Module, target float64) Projection {
	p := Projection{TargetAverage: target}
	for _, m := range completed {
		p.CompletedCredits += m.Credits
		p.CompletedGradePoints += float64(m.Credits) * m.CurrentGrade
	}
	for _, m := range future {
		p.FutureCredits += m.Credits
		p.FutureGradePoints += float64(m.Credits) * m.TargetGrade
	}

	totalCredits := float64(p.CompletedCredits + p.FutureCredits)
	if p.CompletedCredits > 0 {
		p.ActualAverage = p.CompletedGradePoints / float64(p.CompletedCredits)
	}
	if p.FutureCredits > 0 {
		p.ProjectedAverage = p.FutureGradePoints / float64(p.FutureCredits)
		p.RequiredAverage = (target*totalCredits - p.CompletedGradePoints) / float64(p.FutureCredits)
	}
	if totalCredits > 0 {
		p.FinalProjectedAverage = (p.CompletedGradePoints + p.FutureGradePoints) / totalCredits
	}
	// with no future credits both sides are zero
	p.OnTrack = p.ProjectedAverage >= p.RequiredAverage

	p.CompletedGradePoints = Round2(p.CompletedGradePoints)
	p.FutureGradePoints = Round2(p.FutureGradePoints)
	p.ActualAverage = Round2(p.ActualAverage)
	p.ProjectedAverage = Round2(p.ProjectedAverage)
	p.RequiredAverage = Round2(p.RequiredAverage)
	p.FinalProjectedAverage = Round2(p.FinalProjectedAverage)
	return p
}
