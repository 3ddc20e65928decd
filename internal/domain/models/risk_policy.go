package models

// RiskPolicy carries the rule-engine tunables: factor weights, per-factor
// threshold bands with their banded sub-scores, composite cutoffs, and the
// engagement point table. The exact numbers are configuration, not invariants;
// DefaultRiskPolicy is the canonical reference set.
// RiskPolicy 风险规则引擎的可调参数集。
type RiskPolicy struct {
	// Weights are the per-factor composite weights, summing to 1.0.
	WeightAttendance float64
	WeightAcademic   float64
	WeightFinancial  float64
	WeightEngagement float64

	// Composite score cutoffs for the overall level.
	CutoffCritical float64
	CutoffHigh     float64
	CutoffMedium   float64

	// Attendance percentage bands (value below boundary triggers the level).
	AttendanceCriticalBelow float64
	AttendanceHighBelow     float64
	AttendanceMediumBelow   float64

	// Theory marks bands.
	MarksCriticalBelow float64
	MarksHighBelow     float64
	MarksMediumBelow   float64

	// Fee-due ratio bands (ratio above boundary triggers the level).
	FeeDueCriticalAbove float64
	FeeDueHighAbove     float64
	FeeDueMediumAbove   float64

	// Engagement signal points and banding boundaries.
	NoInternetPoints     float64
	IrregularPowerPoints float64
	LongCommutePoints    float64
	ModCommutePoints     float64
	LargeFamilyPoints    float64
	RuralPoints          float64
	LongCommuteKM        float64
	ModCommuteKM         float64
	LargeFamilySize      int
	EngCriticalAbove     float64
	EngHighAbove         float64
	EngMediumAbove       float64
}

// DefaultRiskPolicy returns the canonical reference rule set.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		WeightAttendance: 0.35,
		WeightAcademic:   0.30,
		WeightFinancial:  0.20,
		WeightEngagement: 0.15,

		CutoffCritical: 75,
		CutoffHigh:     55,
		CutoffMedium:   35,

		AttendanceCriticalBelow: 45,
		AttendanceHighBelow:     60,
		AttendanceMediumBelow:   75,

		MarksCriticalBelow: 40,
		MarksHighBelow:     55,
		MarksMediumBelow:   70,

		FeeDueCriticalAbove: 0.7,
		FeeDueHighAbove:     0.4,
		FeeDueMediumAbove:   0.2,

		NoInternetPoints:     20,
		IrregularPowerPoints: 15,
		LongCommutePoints:    25,
		ModCommutePoints:     15,
		LargeFamilyPoints:    15,
		RuralPoints:          10,
		LongCommuteKM:        30,
		ModCommuteKM:         15,
		LargeFamilySize:      7,
		EngCriticalAbove:     60,
		EngHighAbove:         35,
		EngMediumAbove:       15,
	}
}
