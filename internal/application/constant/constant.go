package constant

// Attribute keys for structured logging.
const (
	Error    = "error"
	RoomID   = "room_id"
	ConnID   = "conn_id"
	UserName = "user_name"
	Song     = "song"
)
