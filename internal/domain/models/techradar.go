package models

// TechRadarEntry is one blip in the Zalando tech-radar format.
// Entries are derived per request and never stored.
type TechRadarEntry struct {
	Quadrant int    `json:"quadrant"`
	Ring     int    `json:"ring"`
	Label    string `json:"label"`
	Link     string `json:"link"`
	Active   bool   `json:"active"`
	Moved    int    `json:"moved"`

	IsNewOrRecommendStatusChanged bool `json:"is_new_or_recommend_status_changed"`
}

// TechRadarData is the document the radar UI renders.
type TechRadarData struct {
	Date    string           `json:"date"` // YYYY-MM
	Entries []TechRadarEntry `json:"entries"`
}

// RadarName is a named quadrant or ring.
type RadarName struct {
	Name string `json:"name"`
}
