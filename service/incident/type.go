package incident

import (
	"context"
	"errors"
	"time"

	"github.com/khaledhikmat/vs-fire/model"
)

var ErrNotFound = errors.New("incident not found")

type IService interface {
	CreateIncident(ctx context.Context, inc model.Incident) (model.IncidentRecord, error)
	ListIncidents(ctx context.Context) ([]model.IncidentRecord, error)
	GetIncident(ctx context.Context, id string) (model.IncidentRecord, error)
	UpdateStatus(ctx context.Context, id, status string) error
	AddNote(ctx context.Context, id, author, content string) (model.Note, error)
	Stats(ctx context.Context, now time.Time) (model.IncidentStats, error)
	Close() error
}
