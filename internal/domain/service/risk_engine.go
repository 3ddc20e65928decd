// Package service contains the pure domain services: the risk rule engine and
// the access guard. Neither holds mutable per-request state.
package service

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/errors"
)

// RiskEngine turns a student record into an explainable risk assessment.
// Score is a pure function of the record and the active policy snapshot:
// identical input always yields identical output, with no shared mutable
// state, so batch rescoring may run fully in parallel.
// RiskEngine 风险规则引擎，将学生记录映射为可解释的风险评估。
type RiskEngine struct {
	policy atomic.Pointer[models.RiskPolicy]
}

// NewRiskEngine creates an engine with the given policy.
func NewRiskEngine(policy models.RiskPolicy) *RiskEngine {
	e := &RiskEngine{}
	e.policy.Store(&policy)
	return e
}

// SetPolicy swaps in a new tunable set. In-flight scorings keep the snapshot
// they started with.
func (e *RiskEngine) SetPolicy(policy models.RiskPolicy) {
	e.policy.Store(&policy)
}

// Policy returns the active tunable snapshot.
func (e *RiskEngine) Policy() models.RiskPolicy {
	return *e.policy.Load()
}

// Score computes the assessment for one record. The only failure mode is a
// missing student_id; every other attribute defaults to its neutral,
// low-risk value.
func (e *RiskEngine) Score(rec *models.StudentRecord) (*models.RiskAssessment, error) {
	if !rec.Validate() {
		return nil, errors.ErrMissingStudentID()
	}
	p := e.Policy()

	factors := []models.FactorScore{
		e.scoreAttendance(&p, rec),
		e.scoreAcademic(&p, rec),
		e.scoreFinancial(&p, rec),
		e.scoreEngagement(&p, rec),
	}

	composite := factors[0].Score*p.WeightAttendance +
		factors[1].Score*p.WeightAcademic +
		factors[2].Score*p.WeightFinancial +
		factors[3].Score*p.WeightEngagement
	composite = round2(composite)

	assessment := &models.RiskAssessment{
		CompositeScore: composite,
		RiskLevel:      e.levelFor(&p, composite),
		Factors:        factors,
	}
	assessment.MultiAreaRisk = assessment.ElevatedFactorCount() >= 2
	assessment.Recommendations = e.recommend(assessment)

	return assessment, nil
}

func (e *RiskEngine) levelFor(p *models.RiskPolicy, composite float64) constants.RiskLevel {
	switch {
	case composite >= p.CutoffCritical:
		return constants.RiskLevelCritical
	case composite >= p.CutoffHigh:
		return constants.RiskLevelHigh
	case composite >= p.CutoffMedium:
		return constants.RiskLevelMedium
	default:
		return constants.RiskLevelLow
	}
}

func (e *RiskEngine) scoreAttendance(p *models.RiskPolicy, rec *models.StudentRecord) models.FactorScore {
	attendance := 100.0 // missing attendance is treated as full attendance
	if rec.AttendancePercentage != nil {
		attendance = *rec.AttendancePercentage
	}

	var score float64
	var level constants.RiskLevel
	switch {
	case attendance < p.AttendanceCriticalBelow:
		score, level = 90, constants.RiskLevelCritical
	case attendance < p.AttendanceHighBelow:
		score, level = 70, constants.RiskLevelHigh
	case attendance < p.AttendanceMediumBelow:
		score, level = 40, constants.RiskLevelMedium
	default:
		score, level = 10, constants.RiskLevelLow
	}

	return models.FactorScore{
		Factor:  constants.FactorAttendance,
		Score:   score,
		Level:   level,
		Message: fmt.Sprintf("Attendance: %.1f%%", attendance),
	}
}

func (e *RiskEngine) scoreAcademic(p *models.RiskPolicy, rec *models.StudentRecord) models.FactorScore {
	marks := 100.0
	if rec.Marks != nil {
		marks = *rec.Marks
	}

	var score float64
	var level constants.RiskLevel
	switch {
	case marks < p.MarksCriticalBelow:
		score, level = 85, constants.RiskLevelCritical
	case marks < p.MarksHighBelow:
		score, level = 65, constants.RiskLevelHigh
	case marks < p.MarksMediumBelow:
		score, level = 35, constants.RiskLevelMedium
	default:
		score, level = 5, constants.RiskLevelLow
	}

	return models.FactorScore{
		Factor:  constants.FactorAcademic,
		Score:   score,
		Level:   level,
		Message: fmt.Sprintf("Theory marks: %.1f%%", marks),
	}
}

func (e *RiskEngine) scoreFinancial(p *models.RiskPolicy, rec *models.StudentRecord) models.FactorScore {
	var feesDue, totalFees float64
	if rec.FeesDue != nil {
		feesDue = *rec.FeesDue
	}
	if rec.TotalFees != nil {
		totalFees = *rec.TotalFees
	}

	ratio := 0.0
	if totalFees > 0 {
		ratio = feesDue / totalFees
	}
	status := rec.PaymentStatus
	if status == "" {
		status = constants.PaymentStatusPaid
	}

	var score float64
	var level constants.RiskLevel
	switch {
	case status == constants.PaymentStatusPending || ratio > p.FeeDueCriticalAbove:
		score, level = 80, constants.RiskLevelCritical
	case status == constants.PaymentStatusPartial || ratio > p.FeeDueHighAbove:
		score, level = 60, constants.RiskLevelHigh
	case ratio > p.FeeDueMediumAbove:
		score, level = 30, constants.RiskLevelMedium
	default:
		score, level = 5, constants.RiskLevelLow
	}

	return models.FactorScore{
		Factor:  constants.FactorFinancial,
		Score:   score,
		Level:   level,
		Message: fmt.Sprintf("Payment status: %s, due ratio: %.2f", status, ratio),
	}
}

func (e *RiskEngine) scoreEngagement(p *models.RiskPolicy, rec *models.StudentRecord) models.FactorScore {
	var points float64
	var signals []string

	if rec.InternetAccess == "No" {
		points += p.NoInternetPoints
		signals = append(signals, "No internet access")
	}
	if rec.Electricity == "Irregular" {
		points += p.IrregularPowerPoints
		signals = append(signals, "Irregular electricity")
	}
	if rec.DistanceFromCollege != nil {
		switch distance := *rec.DistanceFromCollege; {
		case distance > p.LongCommuteKM:
			points += p.LongCommutePoints
			signals = append(signals, fmt.Sprintf("Long commute: %.0fkm", distance))
		case distance > p.ModCommuteKM:
			points += p.ModCommutePoints
			signals = append(signals, fmt.Sprintf("Moderate commute: %.0fkm", distance))
		}
	}
	if rec.FamilySize != nil && *rec.FamilySize > p.LargeFamilySize {
		points += p.LargeFamilyPoints
		signals = append(signals, "Large family")
	}
	if rec.Region == "Rural" {
		points += p.RuralPoints
		signals = append(signals, "Rural background")
	}

	var score float64
	var level constants.RiskLevel
	switch {
	case points > p.EngCriticalAbove:
		score, level = 90, constants.RiskLevelCritical
	case points > p.EngHighAbove:
		score, level = 70, constants.RiskLevelHigh
	case points > p.EngMediumAbove:
		score, level = 40, constants.RiskLevelMedium
	default:
		score, level = 10, constants.RiskLevelLow
	}

	message := "No significant engagement risks"
	if len(signals) > 0 {
		message = strings.Join(signals, "; ")
	}

	return models.FactorScore{
		Factor:  constants.FactorEngagement,
		Score:   score,
		Level:   level,
		Message: message,
		Signals: signals,
	}
}

// recommend produces the ordered, de-duplicated action list for the
// triggered factors and appends the priority escalation when two or more
// factors are elevated.
func (e *RiskEngine) recommend(a *models.RiskAssessment) []string {
	var recs []string

	if f, ok := a.Factor(constants.FactorAttendance); ok && f.Level.IsElevated() {
		recs = append(recs,
			"Schedule immediate counseling for attendance issues",
			"Contact parents/guardians about attendance concerns",
		)
	}
	if f, ok := a.Factor(constants.FactorAcademic); ok && f.Level.IsElevated() {
		recs = append(recs,
			"Arrange academic support/tutoring sessions",
			"Consider peer mentoring program",
		)
	}
	if f, ok := a.Factor(constants.FactorFinancial); ok && f.Level.IsElevated() {
		recs = append(recs,
			"Immediate fee payment discussion required",
			"Explore installment payment options",
		)
		if f.Level == constants.RiskLevelCritical {
			recs = append(recs, "Risk of academic suspension due to unpaid fees")
		}
	}
	if f, ok := a.Factor(constants.FactorEngagement); ok && f.Level.IsElevated() {
		for _, signal := range f.Signals {
			switch {
			case signal == "No internet access":
				recs = append(recs,
					"Provide offline study materials",
					"Arrange computer lab access",
				)
			case strings.Contains(signal, "commute"):
				recs = append(recs, "Discuss hostel accommodation options")
			}
		}
	}

	if a.MultiAreaRisk {
		recs = append(recs, "Escalate for priority intervention across multiple risk areas")
	}

	if len(recs) == 0 {
		return []string{"Continue regular monitoring"}
	}
	return dedupe(recs)
}


func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
