// Package model defines the records the catalogue stores and serves.
//
// Each struct carries two sets of tags:
//   - `json:"..."` controls the HTTP response shape
//   - `bson:"..."` controls the document shape when the Mongo store is used
//
// The SQLite store maps columns by hand in its Scan calls, so it needs no tags.
package model

import "time"

// Song is a single playable track.
//
// AlbumID is a pointer because a song may exist without an album ("single").
// A nil pointer marshals to JSON null, which the front-end treats as "no album".
//
// Duration is in whole seconds.
type Song struct {
	ID        string    `json:"id"        bson:"_id"`
	Title     string    `json:"title"     bson:"title"`
	Artist    string    `json:"artist"    bson:"artist"`
	ImageURL  string    `json:"imageUrl"  bson:"imageUrl"`
	AudioURL  string    `json:"audioUrl"  bson:"audioUrl"`
	Duration  int       `json:"duration"  bson:"duration"`
	AlbumID   *string   `json:"albumId"   bson:"albumId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// SongCard is the trimmed projection used by the home-page rails
// (featured, made for you, trending).
type SongCard struct {
	ID       string `json:"id"       bson:"_id"`
	Title    string `json:"title"    bson:"title"`
	Artist   string `json:"artist"   bson:"artist"`
	ImageURL string `json:"imageUrl" bson:"imageUrl"`
	AudioURL string `json:"audioUrl" bson:"audioUrl"`
}

// Card projects a Song down to a SongCard.
func (s Song) Card() SongCard {
	return SongCard{
		ID:       s.ID,
		Title:    s.Title,
		Artist:   s.Artist,
		ImageURL: s.ImageURL,
		AudioURL: s.AudioURL,
	}
}
