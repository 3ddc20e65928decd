package models

import "github.com/edusight/edusight/pkg/constants"

// FactorScore is the outcome of one independent risk factor.
// FactorScore 单个风险因子的评分结果。
type FactorScore struct {
	// Factor names which rule family produced this score.
	Factor constants.RiskFactor `json:"factor"`

	// Score is the banded sub-score in [0,100].
	Score float64 `json:"score"`

	// Level is the sub-level derived from the band the attribute fell into.
	Level constants.RiskLevel `json:"level"`

	// Message is a human-readable summary of the triggering attribute value.
	Message string `json:"message"`

	// Signals lists the contributing engagement signals, when applicable.
	Signals []string `json:"signals,omitempty"`
}

// RiskAssessment is the full explainable scoring result for one student.
// It is derived 1:1 from the record's current attribute values and carries
// no state of its own.
// RiskAssessment 学生风险评估结果，与学生记录一一对应。
type RiskAssessment struct {
	// CompositeScore is the weighted sum of factor sub-scores in [0,100].
	CompositeScore float64 `json:"composite_score"`

	// RiskLevel is a pure function of CompositeScore via fixed cutoffs.
	RiskLevel constants.RiskLevel `json:"risk_level"`

	// Factors holds one sub-score per factor, in canonical factor order.
	Factors []FactorScore `json:"factor_breakdown"`

	// Recommendations is the ordered, de-duplicated action list.
	Recommendations []string `json:"recommendations"`

	// MultiAreaRisk is set when two or more factors are independently
	// High or Critical.
	MultiAreaRisk bool `json:"multi_area_risk"`
}

// ElevatedFactorCount returns how many factors reached High or Critical.
func (a *RiskAssessment) ElevatedFactorCount() int {
	n := 0
	for _, f := range a.Factors {
		if f.Level.IsElevated() {
			n++
		}
	}
	return n
}

// Factor returns the sub-score for the named factor, if present.
func (a *RiskAssessment) Factor(name constants.RiskFactor) (FactorScore, bool) {
	for _, f := range a.Factors {
		if f.Factor == name {
			return f, true
		}
	}
	return FactorScore{}, false
}
