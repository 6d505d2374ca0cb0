package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-fire/mode"
	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/pipeline"
	"github.com/khaledhikmat/vs-fire/service/alert"
	"github.com/khaledhikmat/vs-fire/service/broadcast"
	"github.com/khaledhikmat/vs-fire/service/config"
	"github.com/khaledhikmat/vs-fire/service/data"
	"github.com/khaledhikmat/vs-fire/service/geo"
	"github.com/khaledhikmat/vs-fire/service/incident"
	"github.com/khaledhikmat/vs-fire/service/lgr"
	"github.com/khaledhikmat/vs-fire/service/messaging"
	"github.com/khaledhikmat/vs-fire/service/publisher"
	"github.com/khaledhikmat/vs-fire/service/robot"
	"github.com/khaledhikmat/vs-fire/service/storage"
	"github.com/khaledhikmat/vs-fire/service/tracer"
	"github.com/khaledhikmat/vs-fire/service/webhook"
)

const (
	// WARNING: this has to be bigger that the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"pipeline": mode.Headless,
	"server":   mode.Server,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			// a missing .env is fine; everything has a default
			lgr.Logger.Warn("no .env file loaded", lgr.Err(xerrors.New(err.Error())))
		}
	}

	modeType := "server"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		panic("invalid mode")
	}

	// Config service
	cfgSvc := config.NewEnvVars(config.NewHardCoded())

	logCloser := lgr.Init(lgr.Options{
		Level:      cfgSvc.GetLogLevel(),
		FileName:   cfgSvc.GetLogFile(),
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     7,
	})
	defer logCloser.Close()

	shutdownTracer, err := tracer.Init(cfgSvc)
	if err != nil {
		lgr.Logger.Warn("tracing disabled", lgr.Err(err))
		shutdownTracer = func(context.Context) error { return nil }
	}

	// Data service
	dataSvc := data.NewFilesDB(cfgSvc)
	// Storage service
	storageSvc := storage.NewFolder(cfgSvc)

	// Incident service
	incidentSvc, err := incident.NewSqlite(cfgSvc)
	if err != nil {
		lgr.Logger.Error("incident log unavailable, keeping incidents in memory", lgr.Err(err))
		incidentSvc = incident.NewFake()
	}
	defer incidentSvc.Close()

	collab := alert.Collaborators{
		Incidents: incidentSvc,
		Webhook:   webhook.NewFake(),
		Robot:     robot.NewFake(),
	}
	if cfgSvc.GetWebhookURL() != "" {
		collab.Webhook = webhook.NewHttp(cfgSvc)
	}
	if cfgSvc.GetRobotHost() != "" {
		collab.Robot = robot.NewHttp(cfgSvc)
	}
	if cfgSvc.GetTelegramToken() != "" && cfgSvc.GetTelegramChatID() != "" {
		collab.Messaging = messaging.NewTelegram(cfgSvc)
	}
	if cfgSvc.GetMQTTBroker() != "" {
		pubSvc, err := publisher.NewMQTT(cfgSvc)
		if err != nil {
			lgr.Logger.Error("mqtt publisher unavailable", lgr.Err(err))
		} else {
			collab.Publisher = pubSvc
			defer pubSvc.Close()
		}
	}
	dispatcher := alert.NewDispatcher(cfgSvc, collab, nil, nil)

	// Calibration and model are optional: without them the pipeline still streams
	mapper, err := geo.Load(cfgSvc.GetHomographyPath())
	if err != nil {
		lgr.Logger.Warn("no calibration loaded, world coordinates will be (0,0)", lgr.Err(err))
		mapper = nil
	}

	var detector pipeline.Model
	if m, err := pipeline.LoadYolo(cfgSvc.GetModelPath(), cfgSvc.GetModelLabelsPath(), cfgSvc.GetNMSThreshold()); err != nil {
		lgr.Logger.Error("model not loaded, detections disabled", lgr.Err(err))
	} else {
		detector = m
	}

	keywords, err := config.LoadKeywords(cfgSvc.GetKeywordsFile())
	if err != nil {
		lgr.Logger.Warn("keyword table not loaded, using defaults", lgr.Err(err))
	}

	broadcastSvc := broadcast.NewHub()

	// Both streams are drained by the mode processor
	errorStream := make(chan interface{}, 100)
	statsStream := make(chan interface{}, 100)

	pipelineSvcs := pipeline.ServicesFactory{
		CfgSvc:   cfgSvc,
		Opener:   pipeline.OpenCamera,
		Model:    detector,
		Keywords: keywords,
		Mapper:   mapper,
		Alerter:  dispatcher,
	}
	if modeType == "server" {
		pipelineSvcs.OnDetections = func(dets []model.Detection, at time.Time) {
			broadcastSvc.Broadcast(map[string]interface{}{
				"camera":     cfgSvc.GetCameraID(),
				"timestamp":  at,
				"detections": dets,
			})
		}
	}

	// in-flight alerts get a short grace period; the model is only closed
	// once the inference loop is gone
	finish := func(pipe *pipeline.Pipeline) {
		ctx, cancel := context.WithTimeout(rootCtx, 2*time.Second)
		defer cancel()

		if err := dispatcher.Wait(ctx); err != nil {
			lgr.Logger.Warn("alert side effects still running", lgr.Err(err))
		}
		lgr.Logger.Info("vs-fire stats", slog.Any("alerts", dispatcher.Stats()))

		if !closeModelAfter(pipe.Done(), detector, 2*time.Second) {
			lgr.Logger.Warn("pipeline still running, leaving the model open")
		}

		if err := shutdownTracer(ctx); err != nil {
			lgr.Logger.Warn("tracer shutdown", lgr.Err(err))
		}
	}

	svcs := mode.ServicesFactory{
		CfgSvc:       cfgSvc,
		DataSvc:      dataSvc,
		IncidentSvc:  incidentSvc,
		StorageSvc:   storageSvc,
		BroadcastSvc: broadcastSvc,
		Pipeline:     pipeline.New(pipelineSvcs, errorStream, statsStream),
		ErrorStream:  errorStream,
		StatsStream:  statsStream,
	}

	// Create mode processor result
	modeProcResult := make(chan error)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs)
	}()

	// Wait for cancellation or mode proc
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"vs-fire context cancelled",
			)
			goto resume

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"vs-fire mode processor exited",
					lgr.Err(err),
				)
			}
			goto resume
		}
	}

	// Wait in a non-blocking way for `waitOnShutdown` for all the go routines to exit
	// This is needed because the go routines may need to report errors as they are existing
resume:
	// Cancel the context if not already cancelled
	if canxCtx.Err() == nil {
		// Force cancel the context
		canxFn()
	}

	lgr.Logger.Info(
		"vs-fire is waiting for all go routines to exit",
	)

	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"vs-fire shutdown waiting period expired. Exiting now",
				slog.Duration("period", waitOnShutdown),
			)
			finish(svcs.Pipeline)
			return

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"vs-fire mode processor exited",
					lgr.Err(err),
				)
			}
			finish(svcs.Pipeline)
			return
		}
	}
}

// closeModelAfter closes m once done is closed. It gives up after wait and
// reports whether the model was released.
func closeModelAfter(done <-chan struct{}, m pipeline.Model, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-done:
		if m != nil {
			if err := m.Close(); err != nil {
				lgr.Logger.Warn("closing model", lgr.Err(err))
			}
		}
		return true
	case <-timer.C:
		return false
	}
}
