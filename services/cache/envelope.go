package cache

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

type envelope struct {
	StoredAt time.Time       `json:"storedAt"`
	Payload  json.RawMessage `json:"payload"`
}

func encodeEnvelope(storedAt time.Time, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode cache payload")
	}
	return json.Marshal(envelope{StoredAt: storedAt, Payload: raw})
}

func decodeEnvelope(data []byte, target any) (time.Time, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return time.Time{}, errors.Wrap(err, "failed to decode cache envelope")
	}
	if len(env.Payload) == 0 {
		return time.Time{}, errors.New("cache envelope has no payload")
	}
	if err := json.Unmarshal(env.Payload, target); err != nil {
		return time.Time{}, errors.Wrap(err, "failed to decode cache payload")
	}
	return env.StoredAt, nil
}
