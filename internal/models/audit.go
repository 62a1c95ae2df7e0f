package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AuditAction constants represent actions to be logged.
const (
	AuditActionRuleCreate      = "AVAILABILITY_RULE_CREATE"
	AuditActionRuleUpdate      = "AVAILABILITY_RULE_UPDATE"
	AuditActionRuleDelete      = "AVAILABILITY_RULE_DELETE"
	AuditActionExceptionCreate = "AVAILABILITY_EXCEPTION_CREATE"
	AuditActionExceptionUpdate = "AVAILABILITY_EXCEPTION_UPDATE"
	AuditActionExceptionDelete = "AVAILABILITY_EXCEPTION_DELETE"
	AuditActionLegacyCreate    = "LEGACY_AVAILABILITY_CREATE"
	AuditActionLegacyDelete    = "LEGACY_AVAILABILITY_DELETE"
	AuditActionSessionCreate   = "SESSION_CREATE"
	AuditActionSessionUpdate   = "SESSION_UPDATE"
	AuditActionSessionConfirm  = "SESSION_CONFIRM"
	AuditActionSessionComplete = "SESSION_COMPLETE"
	AuditActionSessionCancel   = "SESSION_CANCEL"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string         `db:"id" json:"id"`
	UserID     *string        `db:"user_id" json:"user_id,omitempty"`
	Action     string         `db:"action" json:"action"`
	Resource   string         `db:"resource" json:"resource"`
	ResourceID *string        `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  types.JSONText `db:"old_values" json:"old_values,omitempty"`
	NewValues  types.JSONText `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string         `db:"ip_address" json:"ip_address"`
	UserAgent  string         `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
