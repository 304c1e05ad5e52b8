package dto

import "github.com/noah-isme/academic-risk-api/internal/models"

// DashboardStatistics holds the headline totals for the admin dashboard.
type DashboardStatistics struct {
	TotalStudents    int `json:"total_students"`
	TotalWarnings    int `json:"total_warnings"`
	ResolvedWarnings int `json:"resolved_warnings"`
	TotalCourses     int `json:"total_courses"`
}

// TrendPoint is one time bucket of the warning trend series.
type TrendPoint struct {
	Label         string `json:"label"`
	Count         int    `json:"count"`
	ResolvedCount int    `json:"resolved_count"`
}

// TypeDistribution maps warning types to their record counts. The four known
// types are always present, zero-filled when absent.
type TypeDistribution map[models.WarningType]int
