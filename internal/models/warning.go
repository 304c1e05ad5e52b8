package models

import "time"

// WarningType categorises the rule that triggered a warning.
type WarningType string

const (
	WarningTypeCourseGrade     WarningType = "COURSE_GRADE"
	WarningTypeMultipleFail    WarningType = "MULTIPLE_FAIL"
	WarningTypeSemesterAverage WarningType = "SEMESTER_AVERAGE"
	WarningTypeSevere          WarningType = "SEVERE"
)

// KnownWarningTypes lists the fixed enumeration charting clients rely on.
// Rules may carry additional types; these four are always reported.
var KnownWarningTypes = []WarningType{
	WarningTypeCourseGrade,
	WarningTypeMultipleFail,
	WarningTypeSemesterAverage,
	WarningTypeSevere,
}

// WarningStatus is the lifecycle state of a warning record.
type WarningStatus string

const (
	WarningStatusNew       WarningStatus = "NEW"
	WarningStatusRead      WarningStatus = "READ"
	WarningStatusProcessed WarningStatus = "PROCESSED"
	WarningStatusResolved  WarningStatus = "RESOLVED"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s WarningStatus) Valid() bool {
	switch s {
	case WarningStatusNew, WarningStatusRead, WarningStatusProcessed, WarningStatusResolved:
		return true
	}
	return false
}

// WarningRule is a catalog entry describing a risk category. The engine
// reads rules, never mutates them.
type WarningRule struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Description string      `db:"description" json:"description"`
	Type        WarningType `db:"type" json:"type"`
	Condition   string      `db:"rule_condition" json:"condition"`
	Level       int         `db:"level" json:"level"`
	Color       string      `db:"color" json:"color"`
	Active      bool        `db:"active" json:"active"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// WarningRecord is one triggered rule instance for one student.
// ResolvedAt and ResolutionNotes are set exactly when status is RESOLVED.
type WarningRecord struct {
	ID              string        `db:"id" json:"id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	RuleID          string        `db:"rule_id" json:"rule_id"`
	Content         string        `db:"content" json:"content"`
	Status          WarningStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	ResolvedAt      *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolutionNotes *string       `db:"resolution_notes" json:"resolution_notes,omitempty"`
	ResolvedBy      *string       `db:"resolved_by" json:"resolved_by,omitempty"`
}

// WarningDetail joins a record with its student, rule and resolver context.
type WarningDetail struct {
	WarningRecord
	StudentName    string      `db:"student_name" json:"student_name"`
	StudentNumber  string      `db:"student_number" json:"student_number"`
	RuleName       string      `db:"rule_name" json:"rule_name"`
	RuleType       WarningType `db:"rule_type" json:"rule_type"`
	RuleLevel      int         `db:"rule_level" json:"rule_level"`
	RuleColor      string      `db:"rule_color" json:"rule_color"`
	ResolvedByName *string     `db:"resolved_by_name" json:"resolved_by_name,omitempty"`
}

// WarningFilter captures search criteria for listing warnings.
// Page is 0-indexed; RuleIDs is resolved from a type before querying.
type WarningFilter struct {
	StudentName string
	RuleIDs     []string
	Status      WarningStatus
	StudentID   string
	Page        int
	PageSize    int
}

// WarningTimelineEntry is the minimal projection used by trend bucketing.
type WarningTimelineEntry struct {
	CreatedAt time.Time     `db:"created_at"`
	Status    WarningStatus `db:"status"`
}

// TypeCount is one row of the per-type distribution query.
type TypeCount struct {
	Type  WarningType `db:"type"`
	Count int         `db:"count"`
}

// TrendPeriod selects the bucketing granularity for warning trends.
type TrendPeriod string

const (
	TrendPeriodDay   TrendPeriod = "day"
	TrendPeriodWeek  TrendPeriod = "week"
	TrendPeriodMonth TrendPeriod = "month"
)
