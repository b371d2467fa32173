// Package grade computes credit-weighted academic statistics from modules.
// Every function is pure and total: an empty or zero-credit input yields zero, never an error.
package grade

import (
	"math"
	"sort"

	"github.com/trezcool/unilife/core/record"
)

// ExcludedCodes are the special codes marking a non-graded outcome
// (exemption, withdrawal, audit). Such modules score zero but keep their credits.
var ExcludedCodes = map[int64]bool{
	988: true,
	997: true,
	998: true,
}

// IsExcluded reports whether m's grade is left out of weighted scores.
func IsExcluded(m record.Module) bool {
	return m.SpecialCode.Valid && ExcludedCodes[m.SpecialCode.Int64]
}

// EffectiveGrade is the grade m contributes to weighted scores.
func EffectiveGrade(m record.Module) float64 {
	if IsExcluded(m) {
		return 0
	}
	return m.CurrentGrade
}

// IsCompleted reports whether m is finished: fully progressed with a positive grade.
func IsCompleted(m record.Module) bool {
	return m.Progress >= 100 && m.CurrentGrade > 0
}

// Round2 rounds to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// WeightedAverage returns Σ(credits × effective grade) / Σ credits, rounded to two decimals.
func WeightedAverage(modules []record.Module) float64 {
	var credits, points float64
	for _, m := range modules {
		credits += float64(m.Credits)
		points += float64(m.Credits) * EffectiveGrade(m)
	}
	if credits == 0 {
		return 0
	}
	return Round2(points / credits)
}

// TermAverage is the weighted average of the modules whose semester label is exactly term.
func TermAverage(modules []record.Module, term string) float64 {
	return WeightedAverage(InTerm(modules, term))
}

// InTerm filters modules by exact semester label.
func InTerm(modules []record.Module, term string) []record.Module {
	var inTerm []record.Module
	for _, m := range modules {
		if m.Semester == term {
			inTerm = append(inTerm, m)
		}
	}
	return inTerm
}

// AverageProgress is the plain mean of module progress, rounded to two decimals.
func AverageProgress(modules []record.Module) float64 {
	if len(modules) == 0 {
		return 0
	}
	var sum float64
	for _, m := range modules {
		sum += m.Progress
	}
	return Round2(sum / float64(len(modules)))
}

// Term summarises the modules sharing one semester label.
type Term struct {
	Label            string  `json:"label"`
	Modules          int     `json:"modules"`
	Credits          int     `json:"credits"`
	CompletedCredits int     `json:"completedCredits"`
	GradePoints      float64 `json:"gradePoints"`
	Average          float64 `json:"average"`
	Completed        bool    `json:"completed"`
}

// TermBreakdown groups modules per semester label, sorted by label.
// Completed modules count with their current grade, the others with their target grade.
func TermBreakdown(modules []record.Module) []Term {
	byLabel := make(map[string]*Term)
	for _, m := range modules {
		t, ok := byLabel[m.Semester]
		if !ok {
			t = &Term{Label: m.Semester}
			byLabel[m.Semester] = t
		}
		t.Modules++
		t.Credits += m.Credits
		if IsCompleted(m) {
			t.CompletedCredits += m.Credits
			t.GradePoints += float64(m.Credits) * m.CurrentGrade
		} else {
			t.GradePoints += float64(m.Credits) * m.TargetGrade
		}
	}

	terms := make([]Term, 0, len(byLabel))
	for _, t := range byLabel {
		if t.Credits > 0 {
			t.Average = Round2(t.GradePoints / float64(t.Credits))
		}
		t.GradePoints = Round2(t.GradePoints)
		t.Completed = t.Credits > 0 && t.CompletedCredits == t.Credits
		terms = append(terms, *t)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Label < terms[j].Label })
	return terms
}
