package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/config"
	"github.com/khaledhikmat/vs-fire/service/incident"
	"github.com/khaledhikmat/vs-fire/service/lgr"
	"github.com/khaledhikmat/vs-fire/service/messaging"
	"github.com/khaledhikmat/vs-fire/service/publisher"
	"github.com/khaledhikmat/vs-fire/service/robot"
	"github.com/khaledhikmat/vs-fire/service/webhook"
)

const incidentTimeout = 2 * time.Second

const (
	sideEffectMessaging = "messaging"
	sideEffectWebhook   = "webhook"
	sideEffectRobot     = "robot"
	sideEffectPublisher = "publisher"
)

// Collaborators are the external endpoints an alert fans out to.
// Publisher is optional.
type Collaborators struct {
	Incidents incident.IService
	Messaging messaging.IService
	Webhook   webhook.IService
	Robot     robot.IService
	Publisher publisher.IService
}

type Dispatcher struct {
	CfgSvc    config.IService
	collab    Collaborators
	cooldowns *CooldownState
	clock     Clock
	// one pool per side effect so a slow endpoint only backs up itself
	pools     map[string]*semaphore.Weighted
	inflight  sync.WaitGroup
	tracer    trace.Tracer

	fired      atomic.Int64
	suppressed atomic.Int64
	messages   atomic.Int64
	dropped    atomic.Int64
	errors     atomic.Int64
}

func NewDispatcher(cfgSvc config.IService, collab Collaborators, cooldowns *CooldownState, clock Clock) *Dispatcher {
	if clock == nil {
		clock = SystemClock()
	}
	if cooldowns == nil {
		cooldowns = NewCooldownState(map[Channel]time.Duration{
			ChannelGlobal:    cfgSvc.GetAlertCooldown(),
			ChannelMessaging: cfgSvc.GetMessagingCooldown(),
		})
	}

	workers := cfgSvc.GetDispatchMaxWorkers()
	if workers < 1 {
		workers = 1
	}

	pools := map[string]*semaphore.Weighted{}
	for _, name := range []string{sideEffectMessaging, sideEffectWebhook, sideEffectRobot, sideEffectPublisher} {
		pools[name] = semaphore.NewWeighted(int64(workers))
	}

	return &Dispatcher{
		CfgSvc:    cfgSvc,
		collab:    collab,
		cooldowns: cooldowns,
		clock:     clock,
		pools:     pools,
		tracer:    otel.Tracer("github.com/khaledhikmat/vs-fire/service/alert"),
	}
}

// Fire runs the alert side effects for category at coord unless a cooldown
// window is still open. It returns whether the alert fired. Incident
// creation happens on the caller's goroutine; the other side effects run on
// their own pools, and Fire only waits when a required pool is busy.
func (d *Dispatcher) Fire(ctx context.Context, category model.Category, coord model.WorldCoord) bool {
	if category == model.CategoryNone {
		return false
	}

	now := d.clock.Now()
	if !d.cooldowns.TryAcquire(ChannelGlobal, now) {
		d.suppressed.Add(1)
		return false
	}
	d.fired.Add(1)

	ctx, span := d.tracer.Start(ctx, "alert.fire", trace.WithAttributes(
		attribute.String("category", category.String()),
		attribute.Float64("x", coord.X),
		attribute.Float64("y", coord.Y),
	))
	defer span.End()

	lgr.Logger.Warn("alert fired",
		slog.String("category", category.String()),
		slog.Float64("x", coord.X),
		slog.Float64("y", coord.Y),
	)

	incidentID := d.createIncident(ctx, category, coord)

	if category == model.CategoryFire && d.collab.Messaging != nil &&
		d.cooldowns.Open(ChannelMessaging, now) && d.acquire(ctx, sideEffectMessaging, true) {
		// the window is only taken once a worker holds the message
		if d.cooldowns.TryAcquire(ChannelMessaging, now) {
			text := messageText(d.CfgSvc.GetCameraID(), coord)
			d.run(ctx, sideEffectMessaging, d.CfgSvc.GetMessagingTimeout(), func(ctx context.Context) error {
				d.messages.Add(1)
				return d.collab.Messaging.Send(ctx, text)
			})
		} else {
			d.pools[sideEffectMessaging].Release(1)
		}
	}

	if d.collab.Webhook != nil && d.acquire(ctx, sideEffectWebhook, true) {
		d.run(ctx, sideEffectWebhook, d.CfgSvc.GetWebhookTimeout(), func(ctx context.Context) error {
			return d.collab.Webhook.Notify(ctx, category, coord, now)
		})
	}

	if d.collab.Robot != nil && d.acquire(ctx, sideEffectRobot, true) {
		d.run(ctx, sideEffectRobot, d.CfgSvc.GetRobotTimeout(), func(ctx context.Context) error {
			return d.collab.Robot.Goto(ctx, coord)
		})
	}

	if d.collab.Publisher != nil && d.acquire(ctx, sideEffectPublisher, false) {
		event := model.AlertEvent{
			Category:   category,
			Coord:      coord,
			IncidentID: incidentID,
			Camera:     d.CfgSvc.GetCameraID(),
			Timestamp:  now,
		}
		d.run(ctx, sideEffectPublisher, d.CfgSvc.GetPublisherTimeout(), func(ctx context.Context) error {
			return d.collab.Publisher.Publish(ctx, event)
		})
	}

	return true
}

// Wait blocks until every in-flight side effect finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Stats() model.AlerterStats {
	return model.AlerterStats{
		Name:       "dispatcher",
		Fired:      d.fired.Load(),
		Suppressed: d.suppressed.Load(),
		Messages:   d.messages.Load(),
		Dropped:    d.dropped.Load(),
		Errors:     d.errors.Load(),
	}
}

func (d *Dispatcher) createIncident(ctx context.Context, category model.Category, coord model.WorldCoord) string {
	if d.collab.Incidents == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, incidentTimeout)
	defer cancel()

	rec, err := d.collab.Incidents.CreateIncident(ctx, NewIncident(d.CfgSvc.GetCameraID(), category, coord))
	if err != nil {
		d.errors.Add(1)
		lgr.Logger.Error("incident creation failed",
			slog.String("category", category.String()),
			lgr.Err(err),
		)
		return ""
	}

	lgr.Logger.Info("incident created", slog.String("id", rec.ID), slog.String("tag", rec.Tag))
	return rec.ID
}

// acquire takes a worker slot for the named side effect. Required side
// effects wait for a slot: every running job is bounded by its timeout, so
// only ctx ending can stop them. Optional ones are dropped when the pool is full.
func (d *Dispatcher) acquire(ctx context.Context, name string, required bool) bool {
	pool := d.pools[name]
	if !required {
		if pool.TryAcquire(1) {
			return true
		}
		d.dropped.Add(1)
		lgr.Logger.Warn("alert dispatch pool full, dropping side effect", slog.String("channel", name))
		return false
	}

	if err := pool.Acquire(ctx, 1); err != nil {
		d.errors.Add(1)
		lgr.Logger.Error("alert side effect not started", slog.String("channel", name), lgr.Err(err))
		return false
	}
	return true
}

// run executes fn on a slot already taken by acquire without waiting for it.
func (d *Dispatcher) run(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) {
	// side effects outlive the caller; only the timeout bounds them
	ctx = context.WithoutCancel(ctx)
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		defer d.pools[name].Release(1)
		defer func() {
			if r := recover(); r != nil {
				d.errors.Add(1)
				lgr.Logger.Error("alert side effect panicked", slog.String("channel", name), slog.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			d.errors.Add(1)
			lgr.Logger.Error("alert side effect failed",
				slog.String("channel", name),
				slog.Duration("elapsed", time.Since(start)),
				lgr.Err(err),
			)
			return
		}
		lgr.Logger.Debug("alert side effect delivered",
			slog.String("channel", name),
			slog.Duration("elapsed", time.Since(start)),
		)
	}()
}

func NewIncident(camera string, category model.Category, coord model.WorldCoord) model.Incident {
	kind := "Fire"
	if category == model.CategorySmoke {
		kind = "Smoke"
	}

	return model.Incident{
		Type:        kind + " detection",
		Tag:         category.Tag(),
		Priority:    category.Priority(),
		Address:     fmt.Sprintf("Coord: %.2f, %.2f (%s)", coord.X, coord.Y, camera),
		Description: "Automatic detection by the inference pipeline.",
		Status:      model.IncidentStatusNew,
	}
}

func messageText(camera string, coord model.WorldCoord) string {
	return fmt.Sprintf("🚨 FIRE ALERT 🚨\n\nFire detected on camera %s.\nPosition: X=%.1f Y=%.1f\n\nCheck the dashboard now!",
		camera, coord.X, coord.Y)
}
