package pipeline

import (
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/natefinch/lumberjack"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/lgr"
)

// detectionLog appends one JSON line per inference cycle that found something.
type detectionLog struct {
	w io.WriteCloser
}

func newDetectionLog(filename string) *detectionLog {
	if filename == "" {
		return &detectionLog{}
	}
	return &detectionLog{
		w: &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		},
	}
}

func (l *detectionLog) write(camera string, at time.Time, dets []model.Detection) {
	if l.w == nil || len(dets) == 0 {
		return
	}

	entry := struct {
		Time       string            `json:"time"`
		Camera     string            `json:"camera"`
		Detections []model.Detection `json:"detections"`
	}{
		Time:       at.Format(time.RFC3339Nano),
		Camera:     camera,
		Detections: dets,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		lgr.Logger.Error("error marshaling detections", lgr.Err(err))
		return
	}

	if _, err := l.w.Write(append(data, '\n')); err != nil {
		lgr.Logger.Error("error writing detection log", slog.String("camera", camera), lgr.Err(err))
	}
}

func (l *detectionLog) Close() error {
	if l.w == nil {
		return nil
	}
	return l.w.Close()
}
