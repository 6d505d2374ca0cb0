package incident

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS incidents (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	tag TEXT NOT NULL,
	priority TEXT NOT NULL,
	status TEXT NOT NULL,
	address TEXT,
	description TEXT,
	timestamp DATETIME NOT NULL,
	lat REAL,
	lon REAL,
	notes TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_incidents_timestamp ON incidents(timestamp);
CREATE INDEX IF NOT EXISTS idx_incidents_tag ON incidents(tag);
`

type sqliteService struct {
	CfgSvc config.IService
	db     *sql.DB
	// serializes read-modify-write of the notes column
	mu sync.Mutex
}

func NewSqlite(cfgsvc config.IService) (IService, error) {
	path := cfgsvc.GetIncidentDBPath()
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, xerrors.Errorf("creating incident db folder: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, xerrors.Errorf("opening incident db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, xerrors.Errorf("migrating incident db: %w", err)
	}

	return &sqliteService{
		CfgSvc: cfgsvc,
		db:     db,
	}, nil
}

func (svc *sqliteService) CreateIncident(ctx context.Context, inc model.Incident) (model.IncidentRecord, error) {
	if inc.Status == "" {
		inc.Status = model.IncidentStatusNew
	}

	rec := model.IncidentRecord{
		ID:        newIncidentID(),
		Incident:  inc,
		Location:  svc.CfgSvc.GetDefaultLocation(),
		Timestamp: time.Now().UTC(),
		Notes:     []model.Note{},
	}

	_, err := svc.db.ExecContext(ctx, `
		INSERT INTO incidents (id, type, tag, priority, status, address, description, timestamp, lat, lon, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '[]')`,
		rec.ID, inc.Type, inc.Tag, inc.Priority, inc.Status, inc.Address, inc.Description,
		rec.Timestamp, rec.Location.Lat, rec.Location.Lon)
	if err != nil {
		return model.IncidentRecord{}, xerrors.Errorf("inserting incident: %w", err)
	}

	return rec, nil
}

func (svc *sqliteService) ListIncidents(ctx context.Context) ([]model.IncidentRecord, error) {
	rows, err := svc.db.QueryContext(ctx, `
		SELECT id, type, tag, priority, status, address, description, timestamp, lat, lon, notes
		FROM incidents ORDER BY timestamp DESC`)
	if err != nil {
		return nil, xerrors.Errorf("listing incidents: %w", err)
	}
	defer rows.Close()

	records := []model.IncidentRecord{}
	for rows.Next() {
		rec, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (svc *sqliteService) GetIncident(ctx context.Context, id string) (model.IncidentRecord, error) {
	row := svc.db.QueryRowContext(ctx, `
		SELECT id, type, tag, priority, status, address, description, timestamp, lat, lon, notes
		FROM incidents WHERE id = ?`, id)

	rec, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.IncidentRecord{}, ErrNotFound
	}
	return rec, err
}

func (svc *sqliteService) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := svc.db.ExecContext(ctx, `UPDATE incidents SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return xerrors.Errorf("updating incident status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (svc *sqliteService) AddNote(ctx context.Context, id, author, content string) (model.Note, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	rec, err := svc.GetIncident(ctx, id)
	if err != nil {
		return model.Note{}, err
	}

	note := model.Note{
		ID:        newNoteID(),
		Author:    author,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(append(rec.Notes, note))
	if err != nil {
		return model.Note{}, err
	}

	if _, err := svc.db.ExecContext(ctx, `UPDATE incidents SET notes = ? WHERE id = ?`, string(data), id); err != nil {
		return model.Note{}, xerrors.Errorf("adding note: %w", err)
	}
	return note, nil
}

func (svc *sqliteService) Stats(ctx context.Context, now time.Time) (model.IncidentStats, error) {
	records, err := svc.ListIncidents(ctx)
	if err != nil {
		return model.IncidentStats{}, err
	}
	return computeStats(records, now), nil
}

func (svc *sqliteService) Close() error {
	return svc.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanIncident(s scanner) (model.IncidentRecord, error) {
	var (
		rec     model.IncidentRecord
		address sql.NullString
		desc    sql.NullString
		notes   string
	)

	err := s.Scan(&rec.ID, &rec.Type, &rec.Tag, &rec.Priority, &rec.Status, &address, &desc,
		&rec.Timestamp, &rec.Location.Lat, &rec.Location.Lon, &notes)
	if err != nil {
		return model.IncidentRecord{}, err
	}
	rec.Address = address.String
	rec.Description = desc.String

	rec.Notes = []model.Note{}
	if err := json.Unmarshal([]byte(notes), &rec.Notes); err != nil {
		return model.IncidentRecord{}, xerrors.Errorf("decoding notes of %s: %w", rec.ID, err)
	}
	return rec, nil
}

func computeStats(records []model.IncidentRecord, now time.Time) model.IncidentStats {
	stats := model.IncidentStats{
		Total:           len(records),
		StatusBreakdown: map[string]int{},
	}

	y, m, d := now.Date()
	for _, rec := range records {
		stats.StatusBreakdown[rec.Status]++
		if rec.Tag != model.CategoryFire.Tag() {
			continue
		}

		ry, rm, rd := rec.Timestamp.In(now.Location()).Date()
		if ry == y && rm == m {
			stats.MonthlyFireCount++
			if rd == d {
				stats.DailyFireCount++
			}
		}
	}
	return stats
}
