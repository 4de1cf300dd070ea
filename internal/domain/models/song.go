package models

// Song is one catalog row. Filename is the opaque reference queue entries
// carry; the URL is only resolved when the host starts playback.
type Song struct {
	Artist   string `json:"artist" db:"artist"`
	Title    string `json:"title" db:"title"`
	URL      string `json:"url" db:"url"`
	Filename string `json:"filename" db:"filename"`
}
