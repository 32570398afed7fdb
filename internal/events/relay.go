package events

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// outbound encodes a locally raised event for other instances, stamped with
// instance. Events that arrived from elsewhere are not sent again.
func outbound(event Event, instance string, log zerolog.Logger) ([]byte, bool) {
	if !event.Local() {
		return nil, false
	}

	event.Origin = instance
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("encode event failed")
		return nil, false
	}
	return payload, true
}

// inbound decodes an event from another instance. Our own echoes and
// malformed payloads are dropped.
func inbound(payload []byte, instance string, log zerolog.Logger) (Event, bool) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Warn().Err(err).Msg("discarding malformed event")
		return Event{}, false
	}
	if event.Origin == instance {
		return Event{}, false
	}
	if event.Origin == "" {
		event.Origin = "unknown"
	}
	return event, true
}
