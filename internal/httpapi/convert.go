package httpapi

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

// Capture devices that speak protobuf send the access log as a
// google.protobuf.Struct with the same field names as the JSON body.

func accessLogRequestFromStruct(s *structpb.Struct) (types.AccessLogRequest, error) {
	f := s.GetFields()
	req := types.AccessLogRequest{
		PersonSystemID: f["person_system_id"].GetStringValue(),
		EventType:      f["event_type"].GetStringValue(),
		TimestampUTC:   f["timestamp_utc"].GetStringValue(),
		CameraID:       f["camera_id"].GetStringValue(),
	}

	if v, ok := f["confidence"]; ok {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return types.AccessLogRequest{}, fmt.Errorf("confidence must be a number")
		}
		c := n.NumberValue
		req.Confidence = &c
	}

	return req, nil
}

func accessLogResponseToStruct(r types.AccessLogResponse) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"message":              r.Message,
		"person_name":          r.PersonName,
		"event_type":           string(r.EventType),
		"timestamp_local":      r.TimestampLocal,
		"timestamp_utc_stored": r.TimestampUTCStored,
	})
}
