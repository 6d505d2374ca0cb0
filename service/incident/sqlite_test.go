package incident

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/config"
)

type testConfig struct {
	config.IService
	dbPath string
}

func (c testConfig) GetIncidentDBPath() string {
	return c.dbPath
}

func newTestStore(t *testing.T) IService {
	t.Helper()
	cfg := testConfig{IService: config.NewHardCoded(), dbPath: filepath.Join(t.TempDir(), "incidents.db")}

	svc, err := NewSqlite(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func fireIncident() model.Incident {
	return model.Incident{
		Type:        "Fire detection",
		Tag:         model.CategoryFire.Tag(),
		Priority:    model.CategoryFire.Priority(),
		Address:     "Coord: 1.50, 2.00 (CAM-01)",
		Description: "Automatic detection",
	}
}

func TestCreateAndGetIncident(t *testing.T) {
	svc := newTestStore(t)
	ctx := context.Background()

	rec, err := svc.CreateIncident(ctx, fireIncident())
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^INC-[0-9A-F]{6}$`), rec.ID)
	assert.Equal(t, model.IncidentStatusNew, rec.Status)
	assert.Equal(t, -23.5505, rec.Location.Lat)

	got, err := svc.GetIncident(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "FOGO", got.Tag)
	assert.Equal(t, "Critical", got.Priority)
	assert.Equal(t, rec.Address, got.Address)
	assert.Empty(t, got.Notes)
}

func TestGetIncidentNotFound(t *testing.T) {
	svc := newTestStore(t)

	_, err := svc.GetIncident(context.Background(), "INC-XXXXXX")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.UpdateStatus(context.Background(), "INC-XXXXXX", "Resolvido"), ErrNotFound)
}

func TestUpdateStatusAndNotes(t *testing.T) {
	svc := newTestStore(t)
	ctx := context.Background()

	rec, err := svc.CreateIncident(ctx, fireIncident())
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, rec.ID, model.IncidentStatusInProgress))
	_, err = svc.AddNote(ctx, rec.ID, "operator", "crew dispatched")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, rec.ID, "operator", "fire contained")
	require.NoError(t, err)

	got, err := svc.GetIncident(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IncidentStatusInProgress, got.Status)
	require.Len(t, got.Notes, 2)
	assert.Equal(t, "fire contained", got.Notes[1].Content)
}

func TestStats(t *testing.T) {
	svc := newTestStore(t)
	ctx := context.Background()

	_, err := svc.CreateIncident(ctx, fireIncident())
	require.NoError(t, err)
	smoke := fireIncident()
	smoke.Tag = model.CategorySmoke.Tag()
	_, err = svc.CreateIncident(ctx, smoke)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.DailyFireCount)
	assert.Equal(t, 1, stats.MonthlyFireCount)
	assert.Equal(t, 2, stats.StatusBreakdown[model.IncidentStatusNew])

	list, err := svc.ListIncidents(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
