// Package models defines the domain models for the Edusight early-warning service.
// This file contains the StudentRecord domain model owned by a tenant partition.
package models

import (
	"strings"
	"time"

	"github.com/edusight/edusight/pkg/constants"
)

// StudentRecord represents one student inside a tenant partition.
// StudentRecord 代表租户分区内的一名学生记录。
//
// The record is owned exclusively by its tenant's partition: it is created or
// replaced by ingestion, mutated by partial updates, and never deleted by the
// core. student_id is unique within its partition, not globally. All fields
// except StudentID are optional; numeric attributes use pointers so a missing
// value survives storage as NULL and the risk engine can substitute its
// neutral default.
type StudentRecord struct {
	// StudentID is the mandatory identifier, unique per tenant partition.
	StudentID string `json:"student_id" gorm:"column:student_id;primaryKey"`

	// TenantID names the owning institution partition.
	TenantID string `json:"tenant_id" gorm:"column:tenant_id;index"`

	Name            string `json:"name" gorm:"column:name"`
	Department      string `json:"department" gorm:"column:department;index"`
	InstitutionType string `json:"institution_type" gorm:"column:institution_type"`
	Semester        *int   `json:"semester,omitempty" gorm:"column:semester"`
	BatchYear       *int   `json:"batch_year,omitempty" gorm:"column:batch_year"`

	// Demographic / socioeconomic fields.
	Age                 *int     `json:"age,omitempty" gorm:"column:age"`
	Gender              string   `json:"gender" gorm:"column:gender"`
	Region              string   `json:"region" gorm:"column:region"`
	FamilyIncome        *float64 `json:"family_income,omitempty" gorm:"column:family_income"`
	FamilySize          *int     `json:"family_size,omitempty" gorm:"column:family_size"`
	Electricity         string   `json:"electricity" gorm:"column:electricity"`
	InternetAccess      string   `json:"internet_access" gorm:"column:internet_access"`
	CasteCategory       string   `json:"caste_category" gorm:"column:caste_category"`
	FamilyEducation     string   `json:"family_education" gorm:"column:family_education"`
	DistanceFromCollege *float64 `json:"distance_from_college,omitempty" gorm:"column:distance_from_college"`

	// Academic fields.
	AttendancePercentage *float64 `json:"attendance_percentage,omitempty" gorm:"column:attendance_percentage"`
	Marks                *float64 `json:"marks,omitempty" gorm:"column:marks"`

	// Financial fields.
	FeesPaid      *float64               `json:"fees_paid,omitempty" gorm:"column:fees_paid"`
	FeesDue       *float64               `json:"fees_due,omitempty" gorm:"column:fees_due"`
	TotalFees     *float64               `json:"total_fees,omitempty" gorm:"column:total_fees"`
	PaymentStatus constants.PaymentStatus `json:"payment_status" gorm:"column:payment_status"`

	// Embedded risk assessment summary, recomputed synchronously on every
	// mutation so it is never stale relative to the attribute values above.
	RiskScore     float64             `json:"risk_score" gorm:"column:risk_score;index"`
	RiskLevel     constants.RiskLevel `json:"risk_level" gorm:"column:risk_level;index"`
	MultiAreaRisk bool                `json:"multi_area_risk" gorm:"column:multi_area_risk"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TableName gives every partition the same table name regardless of backend.
func (StudentRecord) TableName() string {
	return "students"
}

// Validate checks the single mandatory field. Everything else defaults.
func (s *StudentRecord) Validate() bool {
	return strings.TrimSpace(s.StudentID) != ""
}

// ApplyAssessment copies the scoring summary onto the record so the two are
// persisted atomically together.
func (s *StudentRecord) ApplyAssessment(a *RiskAssessment) {
	s.RiskScore = a.CompositeScore
	s.RiskLevel = a.RiskLevel
	s.MultiAreaRisk = a.MultiAreaRisk
}

// Merge overlays the non-nil fields of a partial update onto the record.
// Identity fields (StudentID, TenantID) are never touched.
func (s *StudentRecord) Merge(u *StudentUpdate) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Department != nil {
		s.Department = *u.Department
	}
	if u.Semester != nil {
		s.Semester = u.Semester
	}
	if u.Region != nil {
		s.Region = *u.Region
	}
	if u.FamilyIncome != nil {
		s.FamilyIncome = u.FamilyIncome
	}
	if u.FamilySize != nil {
		s.FamilySize = u.FamilySize
	}
	if u.Electricity != nil {
		s.Electricity = *u.Electricity
	}
	if u.InternetAccess != nil {
		s.InternetAccess = *u.InternetAccess
	}
	if u.DistanceFromCollege != nil {
		s.DistanceFromCollege = u.DistanceFromCollege
	}
	if u.AttendancePercentage != nil {
		s.AttendancePercentage = u.AttendancePercentage
	}
	if u.Marks != nil {
		s.Marks = u.Marks
	}
	if u.FeesPaid != nil {
		s.FeesPaid = u.FeesPaid
	}
	if u.FeesDue != nil {
		s.FeesDue = u.FeesDue
	}
	if u.TotalFees != nil {
		s.TotalFees = u.TotalFees
	}
	if u.PaymentStatus != nil {
		s.PaymentStatus = *u.PaymentStatus
	}
}

// StudentUpdate carries a partial mutation. Nil fields are left untouched.
// StudentUpdate 部分字段更新，nil 字段保持不变。
type StudentUpdate struct {
	Name                 *string                  `json:"name,omitempty"`
	Department           *string                  `json:"department,omitempty"`
	Semester             *int                     `json:"semester,omitempty"`
	Region               *string                  `json:"region,omitempty"`
	FamilyIncome         *float64                 `json:"family_income,omitempty"`
	FamilySize           *int                     `json:"family_size,omitempty"`
	Electricity          *string                  `json:"electricity,omitempty"`
	InternetAccess       *string                  `json:"internet_access,omitempty"`
	DistanceFromCollege  *float64                 `json:"distance_from_college,omitempty"`
	AttendancePercentage *float64                 `json:"attendance_percentage,omitempty"`
	Marks                *float64                 `json:"marks,omitempty"`
	FeesPaid             *float64                 `json:"fees_paid,omitempty"`
	FeesDue              *float64                 `json:"fees_due,omitempty"`
	TotalFees            *float64                 `json:"total_fees,omitempty"`
	PaymentStatus        *constants.PaymentStatus `json:"payment_status,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u *StudentUpdate) IsEmpty() bool {
	return u.Name == nil && u.Department == nil && u.Semester == nil &&
		u.Region == nil && u.FamilyIncome == nil && u.FamilySize == nil &&
		u.Electricity == nil && u.InternetAccess == nil && u.DistanceFromCollege == nil &&
		u.AttendancePercentage == nil && u.Marks == nil && u.FeesPaid == nil &&
		u.FeesDue == nil && u.TotalFees == nil && u.PaymentStatus == nil
}

// StudentFilter narrows a partition listing.
type StudentFilter struct {
	Department      string
	RiskLevel       constants.RiskLevel
	InstitutionType string
}

// Page is a simple offset/limit pagination window.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the window to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = constants.DefaultPageLimit
	}
	if p.Limit > constants.MaxPageLimit {
		p.Limit = constants.MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
