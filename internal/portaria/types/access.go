package types

// AccessLogRequest is what capture devices post for every recognised
// passage. Confidence and CameraID are optional capture metadata.
type AccessLogRequest struct {
	PersonSystemID string   `json:"person_system_id" validate:"required"`
	EventType      string   `json:"event_type" validate:"required,oneof=entry exit"`
	TimestampUTC   string   `json:"timestamp_utc" validate:"required"`
	CameraID       string   `json:"camera_id,omitempty" validate:"omitempty,max=50"`
	Confidence     *float64 `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
}

type AccessLogResponse struct {
	Message            string    `json:"message"`
	PersonName         string    `json:"person_name"`
	EventType          EventType `json:"event_type"`
	TimestampLocal     string    `json:"timestamp_local"`
	TimestampUTCStored string    `json:"timestamp_utc_stored"`
}

type PingResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
