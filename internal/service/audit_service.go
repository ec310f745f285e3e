package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fieldserve/dispatch-admin-api/internal/dto"
	"github.com/fieldserve/dispatch-admin-api/internal/models"
	appErrors "github.com/fieldserve/dispatch-admin-api/pkg/errors"
	"github.com/fieldserve/dispatch-admin-api/pkg/export"
)

type auditRepository interface {
	List(ctx context.Context, query models.AuditQuery) ([]models.AuditLog, error)
}

// AuditServiceConfig tunes the audit viewer.
type AuditServiceConfig struct {
	// QueryLimit caps how many recent events one query fetches before the
	// in-memory predicates run.
	QueryLimit int
}

// AuditService serves the audit trail viewer. Only the action filter runs
// in SQL; date range, role, entity and free-text predicates are applied over
// the fetched window, as is pagination.
type AuditService struct {
	repo   auditRepository
	csv    *export.CSVExporter
	logger *zap.Logger
	cfg    AuditServiceConfig
	now    func() time.Time
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditRepository, csv *export.CSVExporter, logger *zap.Logger, cfg AuditServiceConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if cfg.QueryLimit <= 0 {
		cfg.QueryLimit = 1000
	}
	return &AuditService{repo: repo, csv: csv, logger: logger, cfg: cfg, now: time.Now}
}

// List returns one page of the filtered event set. Out-of-range page numbers
// are clamped into [1, totalPages]; an empty result set is page 1 of 0 events.
func (s *AuditService) List(ctx context.Context, action string, filter models.AuditLocalFilter, page, pageSize int) (*dto.AuditPageResponse, error) {
	events, err := s.filtered(ctx, action, filter)
	if err != nil {
		return nil, err
	}

	if pageSize <= 0 {
		pageSize = 20
	}
	total := len(events)
	totalPages := (total + pageSize - 1) / pageSize
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &dto.AuditPageResponse{
		Events:     events[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

// ExportCSV renders the full filtered event set (not just one page) as CSV.
// It returns the payload and the dated download filename.
func (s *AuditService) ExportCSV(ctx context.Context, action string, filter models.AuditLocalFilter) ([]byte, string, error) {
	events, err := s.filtered(ctx, action, filter)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Timestamp", "Action", "Label", "User", "Role", "Entity", "Entity ID", "Details"},
	}
	for _, event := range events {
		var details string
		if len(event.Metadata) > 0 {
			payload, err := json.Marshal(event.Metadata)
			if err == nil {
				details = string(payload)
			}
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Timestamp": event.CreatedAt.UTC().Format(time.RFC3339),
			"Action":    event.Action,
			"Label":     event.Label,
			"User":      event.UserName,
			"Role":      event.UserRole,
			"Entity":    event.EntityType,
			"Entity ID": event.EntityID,
			"Details":   details,
		})
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit export")
	}
	filename := fmt.Sprintf("audit_log_%s.csv", s.now().UTC().Format("2006-01-02"))
	return payload, filename, nil
}

func (s *AuditService) filtered(ctx context.Context, action string, filter models.AuditLocalFilter) ([]dto.AuditEventItem, error) {
	logs, err := s.repo.List(ctx, models.AuditQuery{Action: action, Limit: s.cfg.QueryLimit})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query audit logs")
	}

	events := make([]dto.AuditEventItem, 0, len(logs))
	for i := range logs {
		item := toAuditEventItem(&logs[i])
		if !matchesLocalFilter(&logs[i], &item, filter) {
			continue
		}
		events = append(events, item)
	}
	return events, nil
}

func matchesLocalFilter(log *models.AuditLog, item *dto.AuditEventItem, filter models.AuditLocalFilter) bool {
	if filter.From != nil && log.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !log.CreatedAt.Before(*filter.To) {
		return false
	}
	if filter.Role != "" && !strings.EqualFold(item.UserRole, filter.Role) {
		return false
	}
	if filter.EntityText != "" {
		needle := strings.ToLower(filter.EntityText)
		if !strings.Contains(strings.ToLower(item.EntityType), needle) &&
			!strings.Contains(strings.ToLower(item.EntityID), needle) {
			return false
		}
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		haystack := strings.ToLower(strings.Join([]string{
			item.Action, item.Label, item.UserName, item.EntityType, item.EntityID,
		}, " "))
		if !strings.Contains(haystack, needle) {
			if len(log.Metadata) == 0 || !strings.Contains(strings.ToLower(string(log.Metadata)), needle) {
				return false
			}
		}
	}
	return true
}

func toAuditEventItem(log *models.AuditLog) dto.AuditEventItem {
	item := dto.AuditEventItem{
		ID:         log.ID,
		CreatedAt:  log.CreatedAt,
		Action:     log.Action,
		Label:      AuditActionLabel(log.Action),
		EntityType: log.EntityType,
	}
	if log.EntityID != nil {
		item.EntityID = *log.EntityID
	}
	if log.UserID != nil {
		item.UserID = *log.UserID
	}
	if log.UserName != nil {
		item.UserName = *log.UserName
	}
	if log.UserRole != nil {
		item.UserRole = *log.UserRole
	}
	if len(log.Metadata) > 0 {
		var metadata map[string]any
		if err := json.Unmarshal(log.Metadata, &metadata); err == nil {
			item.Metadata = metadata
		}
	}
	return item
}
