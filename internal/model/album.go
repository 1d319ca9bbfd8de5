package model

import "time"

// Album groups songs in a fixed order.
//
// SongIDs is the ordered list of member song IDs. It is kept in step with
// each Song.AlbumID by the service layer (push on song create, pull on song
// delete). There is no database constraint tying the two together.
type Album struct {
	ID          string    `json:"id"          bson:"_id"`
	Title       string    `json:"title"       bson:"title"`
	Artist      string    `json:"artist"      bson:"artist"`
	ReleaseYear int       `json:"releaseYear" bson:"releaseYear"`
	ImageURL    string    `json:"imageUrl"    bson:"imageUrl"`
	SongIDs     []string  `json:"songIds"     bson:"songs"`
	CreatedAt   time.Time `json:"createdAt"   bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"   bson:"updatedAt"`
}

// AlbumDetail is an Album with its songs resolved, in SongIDs order.
// Returned by GET /api/albums/{albumId}.
type AlbumDetail struct {
	Album
	Songs []Song `json:"songs"`
}
