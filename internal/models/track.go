package models

import "time"

// AudioFeatures holds the eight numeric audio attributes used for similarity.
// Values are expected to be finite; the cleaning stage coerces missing values to 0.
type AudioFeatures struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
}

// Track is one row of the cleaned catalog.
// Text is the descriptive string fed to the embedding model ("<name> by <artists> genre <genre>").
type Track struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Artists    []string      `json:"artists"`
	ArtistIDs  []string      `json:"artist_ids,omitempty"`
	Genre      string        `json:"genre"`
	GenreID    string        `json:"genre_id,omitempty"`
	Popularity int           `json:"popularity"`
	Text       string        `json:"-"`
	Audio      AudioFeatures `json:"audio"`
	UpdatedAt  time.Time     `json:"updated_at,omitzero"`
}

// TrackInfo is the read model served by the track detail endpoint.
type TrackInfo struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Genre      string   `json:"genre"`
	Popularity int      `json:"popularity"`
	Energy     float64  `json:"energy"`
	Valence    float64  `json:"valence"`
}

// ListTracksFilters are the query parameters accepted by GET /v1/tracks.
type ListTracksFilters struct {
	Limit  int `form:"limit"  validate:"omitempty,min=1,max=1000"`
	Offset int `form:"offset" validate:"omitempty,min=0"`
}

// ListTracksResponse is the paged track listing.
type ListTracksResponse struct {
	Data   []TrackInfo `json:"data"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
