package dto

type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

type RoomExistsResponse struct {
	Exists bool `json:"exists"`
}
