package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-risk-api/internal/models"
)

// WarningRuleRepository reads the warning rule catalog. Rules are configured
// administratively; the engine never writes them.
type WarningRuleRepository struct {
	db *sqlx.DB
}

// NewWarningRuleRepository constructs a WarningRuleRepository.
func NewWarningRuleRepository(db *sqlx.DB) *WarningRuleRepository {
	return &WarningRuleRepository{db: db}
}

const ruleColumns = "id, name, description, type, rule_condition, level, color, active, created_at, updated_at"

// FindByID fetches a rule by ID.
func (r *WarningRuleRepository) FindByID(ctx context.Context, id string) (*models.WarningRule, error) {
	query := fmt.Sprintf("SELECT %s FROM warning_rules WHERE id = $1", ruleColumns)
	var rule models.WarningRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// IDsByType resolves a type code to the set of matching rule IDs.
// Historical records referencing inactive rules stay reachable, so the
// lookup spans the whole catalog.
func (r *WarningRuleRepository) IDsByType(ctx context.Context, warningType models.WarningType) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, "SELECT id FROM warning_rules WHERE type = $1", warningType); err != nil {
		return nil, fmt.Errorf("rule ids by type: %w", err)
	}
	return ids, nil
}

// ActiveTypes lists the distinct types among active rules, sorted for
// stable output.
func (r *WarningRuleRepository) ActiveTypes(ctx context.Context) ([]models.WarningType, error) {
	var types []models.WarningType
	if err := r.db.SelectContext(ctx, &types, "SELECT DISTINCT type FROM warning_rules WHERE active = true ORDER BY type"); err != nil {
		return nil, fmt.Errorf("active rule types: %w", err)
	}
	return types, nil
}
