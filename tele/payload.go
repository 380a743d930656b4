package tele

import (
	"encoding/json"

	"github.com/juju/errors"
	"github.com/temoto/thermo/internal/types"
)

// Field order is part of wire format.
type payload struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

func EncodeReading(r types.Reading) ([]byte, error) {
	if !r.Valid() {
		return nil, errors.NotValidf("reading %s", r.String())
	}
	b, err := json.Marshal(payload{Temperature: r.Temperature, Humidity: r.Humidity})
	return b, errors.Annotate(err, "encode reading")
}

func DecodeReading(b []byte) (types.Reading, error) {
	var p payload
	if err := json.Unmarshal(b, &p); err != nil {
		return types.Reading{}, errors.Annotate(err, "decode reading")
	}
	return types.Reading{Temperature: p.Temperature, Humidity: p.Humidity}, nil
}
