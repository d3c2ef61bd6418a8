package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"event-marketplace/internal/models"
)

// AuditLogRepository handles audit log data operations
type AuditLogRepository struct {
	db *sql.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *sql.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// CreateAuditLog creates a new audit log entry
func (r *AuditLogRepository) CreateAuditLog(ctx context.Context, req *models.AuditLogCreateRequest, at time.Time) (*models.AuditLog, error) {
	auditLog := &models.AuditLog{}
	var details []byte
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO admin_audit_log (actor_id, action, target_type, target_id, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, actor_id, action, target_type, target_id, details, ip_address, user_agent, created_at`,
		req.ActorID,
		req.Action,
		req.TargetType,
		req.TargetID,
		nullableJSON(req.Details),
		req.IPAddress,
		req.UserAgent,
		at,
	).Scan(
		&auditLog.ID,
		&auditLog.ActorID,
		&auditLog.Action,
		&auditLog.TargetType,
		&auditLog.TargetID,
		&details,
		&auditLog.IPAddress,
		&auditLog.UserAgent,
		&auditLog.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}
	auditLog.Details = details
	return auditLog, nil
}

// ListAuditLogs returns audit log entries, newest first, with the total match count
func (r *AuditLogRepository) ListAuditLogs(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, int, error) {
	var conditions []string
	var args []any
	argIndex := 1

	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("al.action = $%d", argIndex))
		args = append(args, filter.Action)
		argIndex++
	}
	if filter.TargetType != "" {
		conditions = append(conditions, fmt.Sprintf("al.target_type = $%d", argIndex))
		args = append(args, filter.TargetType)
		argIndex++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var totalCount int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admin_audit_log al"+where, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to get audit log count: %w", err)
	}

	query := `
		SELECT al.id, al.actor_id, al.action, al.target_type, al.target_id,
		       al.details, al.ip_address, al.user_agent, al.created_at, u.email
		FROM admin_audit_log al
		JOIN users u ON al.actor_id = u.id` + where +
		fmt.Sprintf(" ORDER BY al.created_at DESC, al.id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, clampLimit(filter.Limit), max(filter.Offset, 0))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	auditLogs := []*models.AuditLog{}
	for rows.Next() {
		auditLog := &models.AuditLog{}
		var details []byte
		err := rows.Scan(
			&auditLog.ID,
			&auditLog.ActorID,
			&auditLog.Action,
			&auditLog.TargetType,
			&auditLog.TargetID,
			&details,
			&auditLog.IPAddress,
			&auditLog.UserAgent,
			&auditLog.CreatedAt,
			&auditLog.ActorEmail,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit log: %w", err)
		}
		auditLog.Details = details
		auditLogs = append(auditLogs, auditLog)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return auditLogs, totalCount, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
