package events

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ToJSON serializes an event for transports that carry bytes.
func ToJSON(event Event) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("event is required")
	}
	return json.Marshal(event)
}

// FromJSON decodes an event previously produced by ToJSON, dispatching on
// the "type" discriminator.
func FromJSON(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}

	switch eventType := gjson.GetBytes(data, "type").String(); eventType {
	case "sessionCreated":
		var event SessionCreated
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		return event, nil
	case "modelStatus":
		var event ModelStatus
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		return event, nil
	case "modelChunk":
		var event ModelChunk
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		return event, nil
	case "modelComplete":
		var event ModelComplete
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		return event, nil
	case "modelError":
		var event ModelError
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		return event, nil
	case "error":
		var event Error
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		return event, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}
