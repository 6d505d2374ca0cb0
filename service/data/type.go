package data

import "github.com/khaledhikmat/vs-fire/model"

type IService interface {
	NewError(err interface{}) error
	NewFramerStats(stats model.FramerStats) error
	NewInferenceStats(stats model.InferenceStats) error
	NewAlerterStats(stats model.AlerterStats) error
}
