package model

import (
	"encoding/json"
	"fmt"
	"image"
	"runtime/debug"
	"strings"
	"time"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// Category is the domain class a raw model label is mapped to.
type Category int

const (
	CategoryNone Category = iota
	CategoryFire
	CategorySmoke
)

func (c Category) String() string {
	switch c {
	case CategoryFire:
		return "fire"
	case CategorySmoke:
		return "smoke"
	default:
		return "none"
	}
}

// Tag is the incident tag stored with the incident record.
func (c Category) Tag() string {
	switch c {
	case CategoryFire:
		return "FOGO"
	case CategorySmoke:
		return "FUMACA"
	default:
		return "OUTRO"
	}
}

// Priority is the incident priority for alerts of this category.
func (c Category) Priority() string {
	if c == CategoryFire {
		return PriorityCritical
	}
	return PriorityHigh
}

func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Category) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = ParseCategory(s)
	return nil
}

func ParseCategory(s string) Category {
	switch strings.ToLower(s) {
	case "fire", "fogo":
		return CategoryFire
	case "smoke", "fumaca":
		return CategorySmoke
	default:
		return CategoryNone
	}
}

const (
	PriorityCritical = "Critical"
	PriorityHigh     = "High"
	PriorityMedium   = "Medium"

	IncidentStatusNew        = "Novo"
	IncidentStatusInProgress = "Em Andamento"
	IncidentStatusResolved   = "Resolvido"
)

// Box is an axis-aligned bounding box in pixels.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// GroundPoint is where the object is assumed to touch the floor:
// the horizontal midpoint of the bottom edge.
func (b Box) GroundPoint() (float64, float64) {
	return float64(b.X1+b.X2) / 2, float64(b.Y2)
}

// Scale multiplies x by sx and y by sy, truncating towards zero.
func (b Box) Scale(sx, sy float64) Box {
	return Box{
		X1: int(float64(b.X1) * sx),
		Y1: int(float64(b.Y1) * sy),
		X2: int(float64(b.X2) * sx),
		Y2: int(float64(b.Y2) * sy),
	}
}

// WorldCoord is a ground-plane position in meters.
type WorldCoord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (w WorldCoord) IsZero() bool {
	return w.X == 0 && w.Y == 0
}

// Candidate is a raw model output before classification.
type Candidate struct {
	Box        Box     `json:"box"`
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
}

type Detection struct {
	Box        Box        `json:"box"`
	Category   Category   `json:"category"`
	Label      string     `json:"label"`
	Confidence float32    `json:"confidence"`
	World      WorldCoord `json:"coords"`
}

type Incident struct {
	Type        string `json:"type"`
	Tag         string `json:"tag"`
	Priority    string `json:"priority"`
	Address     string `json:"address"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Note struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type IncidentRecord struct {
	ID string `json:"id"`
	Incident
	Location  Location  `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	Notes     []Note    `json:"notes"`
}

type IncidentStats struct {
	DailyFireCount   int            `json:"dailyFireCount"`
	MonthlyFireCount int            `json:"monthlyFireCount"`
	Total            int            `json:"total"`
	StatusBreakdown  map[string]int `json:"statusBreakdown"`
}

type AlerterStats struct {
	Name       string `json:"name"`
	Fired      int64  `json:"fired"`
	Suppressed int64  `json:"suppressed"`
	Messages   int64  `json:"messages"`
	Dropped    int64  `json:"dropped"`
	Errors     int64  `json:"errors"`
	Timestamp  int64  `json:"timestamp"`
}

type FramerStats struct {
	Name         string `json:"name"`
	Camera       string `json:"camera"`
	FPS          int    `json:"fps"`
	Frames       int    `json:"frames"`
	Placeholders int    `json:"placeholders"`
	Errors       int    `json:"errors"`
	Uptime       int64  `json:"uptime"`
	Timestamp    int64  `json:"timestamp"`
}

type InferenceStats struct {
	Name        string  `json:"name"`
	Camera      string  `json:"camera"`
	Cycles      int     `json:"cycles"`
	Detections  int     `json:"detections"`
	Errors      int     `json:"errors"`
	Uptime      int64   `json:"uptime"`
	AvgProcTime float64 `json:"avgProcTime"`
	Timestamp   int64   `json:"timestamp"`
}

// AlertEvent is what a fired alert publishes to event subscribers.
type AlertEvent struct {
	Category   Category   `json:"category"`
	Coord      WorldCoord `json:"coords"`
	IncidentID string     `json:"incidentId,omitempty"`
	Camera     string     `json:"camera"`
	Timestamp  time.Time  `json:"timestamp"`
}
