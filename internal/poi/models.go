package poi

import "time"

const (
	DifficultyEasy     = "easy"
	DifficultyModerate = "moderate"
	DifficultyHard     = "hard"
)

// POI is a visited spot in the park. VisitedDate is a YYYY-MM-DD string;
// HeroPhotoURL is the designated primary photo, empty when none is set.
type POI struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Lat             float64   `json:"lat"`
	Lng             float64   `json:"lng"`
	VisitedDate     string    `json:"visited_date"`
	Notes           string    `json:"notes,omitempty"`
	TrailName       string    `json:"trail_name,omitempty"`
	DistanceMiles   float64   `json:"distance_miles,omitempty"`
	ElevationGainFt float64   `json:"elevation_gain_ft,omitempty"`
	Difficulty      string    `json:"difficulty,omitempty"`
	HeroPhotoURL    string    `json:"hero_photo_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type Photo struct {
	ID         string    `json:"id"`
	POIID      string    `json:"poi_id"`
	StorageURL string    `json:"storage_url"`
	Caption    string    `json:"caption,omitempty"`
	IsHero     bool      `json:"is_hero"`
	CreatedAt  time.Time `json:"created_at"`
}
