package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/model"
)

// Common errors for scan repository operations.
var (
	ErrScanNotFound = errors.New("scan not found")
	ErrScanExists   = errors.New("scan already exists")
)

// ScanFilter narrows ListScans.
type ScanFilter struct {
	ThreatType classifier.ThreatType
}

const scanColumns = `id, url, fingerprint, threat_type, confidence, risk_score, warnings, features, source, request_id, created_at`

// CreateScan inserts a scan record.
func (r *Repository) CreateScan(ctx context.Context, scan *model.Scan) error {
	features, err := json.Marshal(scan.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	query := `
		INSERT INTO scans (` + scanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.pool.Exec(ctx, query,
		scan.ID,
		scan.URL,
		scan.Fingerprint,
		string(scan.ThreatType),
		scan.Confidence,
		scan.RiskScore,
		pq.Array(scan.Warnings),
		string(features),
		string(scan.Source),
		scan.RequestID,
		scan.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrScanExists
		}
		return fmt.Errorf("failed to create scan: %w", err)
	}

	return nil
}

// GetScanByID retrieves a scan by its ID.
func (r *Repository) GetScanByID(ctx context.Context, id string) (*model.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE id = $1`

	scan, err := scanScan(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScanNotFound
		}
		return nil, fmt.Errorf("failed to get scan by ID: %w", err)
	}

	return scan, nil
}

// ListScans returns scans newest first using keyset pagination. The
// returned cursor is empty on the last page.
func (r *Repository) ListScans(ctx context.Context, filter ScanFilter, cursor string, limit int) ([]*model.Scan, string, error) {
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	query, args := buildListScansQuery(filter, cursorData, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var scans []*model.Scan
	for rows.Next() {
		scan, err := scanScan(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, scan)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating scans: %w", err)
	}

	var nextCursor string
	if len(scans) > limit {
		scans = scans[:limit]
		last := scans[len(scans)-1]
		nextCursor = encodeCursor(&PaginationCursor{ID: last.ID, CreatedAt: last.CreatedAt})
	}

	return scans, nextCursor, nil
}

// CountScans aggregates stored scans per threat type.
func (r *Repository) CountScans(ctx context.Context) (*model.ScanStats, error) {
	rows, err := r.pool.Query(ctx, `SELECT threat_type, COUNT(*) FROM scans GROUP BY threat_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}
	defer rows.Close()

	stats := &model.ScanStats{ByType: make(map[classifier.ThreatType]int64, len(classifier.ThreatTypes))}
	for _, t := range classifier.ThreatTypes {
		stats.ByType[t] = 0
	}

	for rows.Next() {
		var threat string
		var n int64
		if err := rows.Scan(&threat, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		stats.ByType[classifier.ThreatType(threat)] = n
		stats.Total += n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}

	return stats, nil
}

// buildListScansQuery fetches one extra row to tell whether a next page exists.
func buildListScansQuery(filter ScanFilter, cursor *PaginationCursor, limit int) (string, []any) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE TRUE`
	var args []any
	argIndex := 1

	if filter.ThreatType != "" {
		query += fmt.Sprintf(" AND threat_type = $%d", argIndex)
		args = append(args, string(filter.ThreatType))
		argIndex++
	}

	if cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1)
		args = append(args, cursor.CreatedAt, cursor.ID)
		argIndex += 2
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, limit+1)

	return query, args
}

// scanScan reads one row in scanColumns order. pgx.Rows satisfies pgx.Row.
func scanScan(row pgx.Row) (*model.Scan, error) {
	var (
		scan     model.Scan
		threat   string
		source   string
		warnings []string
		features []byte
	)

	err := row.Scan(
		&scan.ID,
		&scan.URL,
		&scan.Fingerprint,
		&threat,
		&scan.Confidence,
		&scan.RiskScore,
		pq.Array(&warnings),
		&features,
		&source,
		&scan.RequestID,
		&scan.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(features, &scan.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}

	if warnings == nil {
		warnings = []string{}
	}
	scan.ThreatType = classifier.ThreatType(threat)
	scan.Source = model.ScanSource(source)
	scan.Warnings = warnings
	scan.CreatedAt = scan.CreatedAt.UTC()

	return &scan, nil
}
