// ABOUTME: Activity log entity and store methods for the per-tenant action history
// ABOUTME: Records who changed which agent, document, team or channel, queried with squirrel

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Action names a dashboard mutation worth remembering.
type Action string

const (
	ActionLogin              Action = "login"
	ActionLogout             Action = "logout"
	ActionCreateAgent        Action = "create_agent"
	ActionUpdateAgent        Action = "update_agent"
	ActionToggleAgent        Action = "toggle_agent"
	ActionDeleteAgent        Action = "delete_agent"
	ActionUploadDocument     Action = "upload_document"
	ActionRenameDocument     Action = "rename_document"
	ActionDeleteDocument     Action = "delete_document"
	ActionCreateTeam         Action = "create_team"
	ActionUpdateTeam         Action = "update_team"
	ActionDeleteTeam         Action = "delete_team"
	ActionConnectWhatsApp    Action = "connect_whatsapp"
	ActionDisconnectWhatsApp Action = "disconnect_whatsapp"
	ActionConnectTelegram    Action = "connect_telegram"
	ActionDisconnectTelegram Action = "disconnect_telegram"
	ActionAssignChannelAgent Action = "assign_channel_agent"
	ActionUpdateSettings     Action = "update_settings"
	ActionStartCheckout      Action = "start_checkout"
)

// ValidActions lists every action the log accepts.
var ValidActions = []Action{
	ActionLogin,
	ActionLogout,
	ActionCreateAgent,
	ActionUpdateAgent,
	ActionToggleAgent,
	ActionDeleteAgent,
	ActionUploadDocument,
	ActionRenameDocument,
	ActionDeleteDocument,
	ActionCreateTeam,
	ActionUpdateTeam,
	ActionDeleteTeam,
	ActionConnectWhatsApp,
	ActionDisconnectWhatsApp,
	ActionConnectTelegram,
	ActionDisconnectTelegram,
	ActionAssignChannelAgent,
	ActionUpdateSettings,
	ActionStartCheckout,
}

// Valid reports whether a is one of ValidActions.
func (a Action) Valid() bool {
	for _, v := range ValidActions {
		if a == v {
			return true
		}
	}
	return false
}

// activityTimeLayout is fixed width so ts sorts lexically in timestamp order.
const activityTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ActivityEntry is one row of a tenant's activity history.
type ActivityEntry struct {
	ID         string
	TenantID   string
	Actor      string // email of the signed-in user
	Action     Action
	TargetType string // "agent", "document", "team", "whatsapp", ...
	TargetID   string
	Timestamp  time.Time
	Detail     map[string]any
}

// ActivityFilter narrows ListActivity. TenantID is mandatory.
type ActivityFilter struct {
	TenantID   string
	Action     *Action
	TargetType *string
	Since      *time.Time
	Until      *time.Time
	Limit      int // default 100, max 1000
}

// AppendActivity appends an entry, generating ID and Timestamp if unset.
func (s *SQLiteStore) AppendActivity(ctx context.Context, e *ActivityEntry) error {
	if e.TenantID == "" || e.Actor == "" || !e.Action.Valid() {
		return ErrInvalidActivity
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var detailJSON *string
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling activity detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	query, args, err := sq.Insert("activity_log").
		Columns("id", "tenant_id", "actor", "action", "target_type", "target_id", "ts", "detail_json").
		Values(e.ID, e.TenantID, e.Actor, string(e.Action), e.TargetType, e.TargetID,
			e.Timestamp.UTC().Format(activityTimeLayout), detailJSON).
		ToSql()
	if err != nil {
		return fmt.Errorf("building activity insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}

	s.logger.Debug("appended activity",
		"tenant_id", e.TenantID,
		"actor", e.Actor,
		"action", e.Action,
		"target", e.TargetType+"/"+e.TargetID,
	)
	return nil
}

// normalizeActivityLimit applies default (100) and cap (1000).
func normalizeActivityLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// buildActivityQuery turns a filter into a SELECT.
func buildActivityQuery(f ActivityFilter) (string, []any, error) {
	q := sq.Select("id", "tenant_id", "actor", "action", "target_type", "target_id", "ts", "detail_json").
		From("activity_log").
		Where(sq.Eq{"tenant_id": f.TenantID}).
		OrderBy("ts DESC").
		Limit(uint64(normalizeActivityLimit(f.Limit)))

	if f.Action != nil {
		q = q.Where(sq.Eq{"action": string(*f.Action)})
	}
	if f.TargetType != nil {
		q = q.Where(sq.Eq{"target_type": *f.TargetType})
	}
	if f.Since != nil {
		q = q.Where(sq.GtOrEq{"ts": f.Since.UTC().Format(activityTimeLayout)})
	}
	if f.Until != nil {
		q = q.Where(sq.LtOrEq{"ts": f.Until.UTC().Format(activityTimeLayout)})
	}
	return q.ToSql()
}

// scanActivityEntry scans a row into an ActivityEntry.
func scanActivityEntry(scanner interface{ Scan(dest ...any) error }) (ActivityEntry, error) {
	var e ActivityEntry
	var actionStr, tsStr string
	var detailJSON *string

	if err := scanner.Scan(
		&e.ID,
		&e.TenantID,
		&e.Actor,
		&actionStr,
		&e.TargetType,
		&e.TargetID,
		&tsStr,
		&detailJSON,
	); err != nil {
		return e, fmt.Errorf("scanning activity entry: %w", err)
	}

	e.Action = Action(actionStr)
	var err error
	e.Timestamp, err = time.Parse(activityTimeLayout, tsStr)
	if err != nil {
		return e, fmt.Errorf("parsing timestamp: %w", err)
	}

	if detailJSON != nil {
		if err := json.Unmarshal([]byte(*detailJSON), &e.Detail); err != nil {
			return e, fmt.Errorf("unmarshaling detail: %w", err)
		}
	}
	return e, nil
}

// ListActivity returns a tenant's entries matching the filter, newest first.
func (s *SQLiteStore) ListActivity(ctx context.Context, f ActivityFilter) ([]ActivityEntry, error) {
	if f.TenantID == "" {
		return nil, fmt.Errorf("%w: tenant id required", ErrInvalidActivity)
	}

	query, args, err := buildActivityQuery(f)
	if err != nil {
		return nil, fmt.Errorf("building activity query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying activity log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []ActivityEntry
	for rows.Next() {
		e, err := scanActivityEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity entries: %w", err)
	}

	if entries == nil {
		entries = []ActivityEntry{}
	}
	return entries, nil
}
