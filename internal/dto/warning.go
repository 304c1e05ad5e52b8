package dto

import (
	"time"

	"github.com/noah-isme/academic-risk-api/internal/models"
)

// WarningResponse is the warning summary shape returned by every warning
// endpoint.
type WarningResponse struct {
	ID            string               `json:"id"`
	StudentID     string               `json:"student_id"`
	StudentName   string               `json:"student_name"`
	StudentNumber string               `json:"student_number"`
	Title         string               `json:"title"`
	WarningType   models.WarningType   `json:"warning_type"`
	Level         int                  `json:"level"`
	Content       string               `json:"content"`
	Status        models.WarningStatus `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`

	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes *string    `json:"resolution_notes,omitempty"`
	ResolvedByID    *string    `json:"resolved_by_id,omitempty"`
	ResolvedByName  *string    `json:"resolved_by_name,omitempty"`
}

// NewWarningResponse maps a joined warning detail to its response shape.
func NewWarningResponse(detail models.WarningDetail) WarningResponse {
	return WarningResponse{
		ID:              detail.ID,
		StudentID:       detail.StudentID,
		StudentName:     detail.StudentName,
		StudentNumber:   detail.StudentNumber,
		Title:           detail.RuleName,
		WarningType:     detail.RuleType,
		Level:           detail.RuleLevel,
		Content:         detail.Content,
		Status:          detail.Status,
		CreatedAt:       detail.CreatedAt,
		ResolvedAt:      detail.ResolvedAt,
		ResolutionNotes: detail.ResolutionNotes,
		ResolvedByID:    detail.ResolvedBy,
		ResolvedByName:  detail.ResolvedByName,
	}
}

// NewWarningResponses maps a slice of details, never returning nil.
func NewWarningResponses(details []models.WarningDetail) []WarningResponse {
	responses := make([]WarningResponse, 0, len(details))
	for _, detail := range details {
		responses = append(responses, NewWarningResponse(detail))
	}
	return responses
}

// WarningTypeResponse pairs a type code with its display name.
type WarningTypeResponse struct {
	Code models.WarningType `json:"code"`
	Name string             `json:"name"`
}
