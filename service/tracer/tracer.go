package tracer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-fire/service/config"
	"github.com/khaledhikmat/vs-fire/service/lgr"
)

// Shutdown flushes pending spans and releases the exporter.
type Shutdown func(ctx context.Context) error

// Init installs the global tracer provider. Finished spans are written as
// JSON to the configured trace file, rotated like the log file. Without a
// trace file the global no-op provider stays in place.
func Init(cfgSvc config.IService) (Shutdown, error) {
	path := cfgSvc.GetTraceFile()
	if path == "" {
		return func(context.Context) error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, xerrors.Errorf("creating trace folder: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     7,
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(file))
	if err != nil {
		file.Close()
		return nil, xerrors.Errorf("creating span exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "vs-fire"),
			attribute.String("camera.id", cfgSvc.GetCameraID()),
		)),
	)
	otel.SetTracerProvider(tp)

	lgr.Logger.Info("tracing enabled", slog.String("file", path))

	return func(ctx context.Context) error {
		defer file.Close()
		if err := tp.Shutdown(ctx); err != nil {
			return xerrors.Errorf("flushing spans: %w", err)
		}
		return nil
	}, nil
}
