package types

type CameraView struct {
	CameraID   string `json:"camera_id"`
	FirstSeen  string `json:"first_seen"`
	LastSeen   string `json:"last_seen"`
	EventCount int64  `json:"event_count"`
}

type CamerasResponse struct {
	Cameras []CameraView `json:"cameras"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
