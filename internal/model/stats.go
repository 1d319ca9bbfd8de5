package model

// Stats is the admin dashboard summary.
// Each count is read independently, so they may reflect different instants.
type Stats struct {
	TotalSongs   int64 `json:"totalSongs"`
	TotalUsers   int64 `json:"totalUsers"`
	TotalAlbums  int64 `json:"totalAlbums"`
	TotalArtists int64 `json:"totalArtists"`
}
