package incident

import (
	"context"
	"sync"
	"time"

	"github.com/khaledhikmat/vs-fire/model"
)

// Fake keeps incidents in memory. Err, when set, fails every call.
type Fake struct {
	mu      sync.Mutex
	records []model.IncidentRecord
	Err     error
}

func NewFake() *Fake {
	return &Fake{}
}

func (svc *Fake) CreateIncident(_ context.Context, inc model.Incident) (model.IncidentRecord, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.Err != nil {
		return model.IncidentRecord{}, svc.Err
	}

	rec := model.IncidentRecord{
		ID:        newIncidentID(),
		Incident:  inc,
		Timestamp: time.Now().UTC(),
		Notes:     []model.Note{},
	}
	svc.records = append(svc.records, rec)
	return rec, nil
}

func (svc *Fake) ListIncidents(_ context.Context) ([]model.IncidentRecord, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.Err != nil {
		return nil, svc.Err
	}
	return append([]model.IncidentRecord{}, svc.records...), nil
}

func (svc *Fake) GetIncident(_ context.Context, id string) (model.IncidentRecord, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for _, rec := range svc.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return model.IncidentRecord{}, ErrNotFound
}

func (svc *Fake) UpdateStatus(_ context.Context, id, status string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for i := range svc.records {
		if svc.records[i].ID == id {
			svc.records[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (svc *Fake) AddNote(_ context.Context, id, author, content string) (model.Note, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for i := range svc.records {
		if svc.records[i].ID == id {
			note := model.Note{ID: newNoteID(), Author: author, Content: content, Timestamp: time.Now().UTC()}
			svc.records[i].Notes = append(svc.records[i].Notes, note)
			return note, nil
		}
	}
	return model.Note{}, ErrNotFound
}

func (svc *Fake) Stats(_ context.Context, now time.Time) (model.IncidentStats, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return computeStats(svc.records, now), nil
}

func (svc *Fake) Close() error {
	return nil
}

// Created returns a copy of everything created so far.
func (svc *Fake) Created() []model.IncidentRecord {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]model.IncidentRecord{}, svc.records...)
}
