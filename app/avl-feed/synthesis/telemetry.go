package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/iqskr/AVLSystem/business/data/avl"
	"github.com/iqskr/AVLSystem/foundation/httpclient"
)

// HTTPTelemetrySource fetches the latest fix from a gps logger endpoint
type HTTPTelemetrySource struct {
	log   *log.Logger
	url   string
	retry httpclient.Retry
}

// NewHTTPTelemetrySource creates HTTPTelemetrySource reading from url
func NewHTTPTelemetrySource(log *log.Logger, url string, retry httpclient.Retry) *HTTPTelemetrySource {
	return &HTTPTelemetrySource{
		log:   log,
		url:   url,
		retry: retry,
	}
}

// FetchTelemetry retrieves and decodes the current fix
func (s *HTTPTelemetrySource) FetchTelemetry(ctx context.Context) (avl.VehicleFix, error) {
	body, err := httpclient.GetBytes(ctx, s.log, s.url, s.retry)
	if err != nil {
		return avl.VehicleFix{}, err
	}
	values, err := decodeTelemetry(body)
	if err != nil {
		return avl.VehicleFix{}, err
	}
	fix := avl.FixFromValues(values, time.Now())
	s.log.Printf("loaded fix for device:%s route:%s at %f,%f", fix.DeviceId, fix.RouteId, fix.Latitude,
		fix.Longitude)
	return fix, nil
}

// decodeTelemetry reads body as a json object, or when it isn't json as form encoded key=value pairs as sent by
// gps logger's custom url option
func decodeTelemetry(body []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty telemetry response")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	values := make(map[string]interface{})
	if err := decoder.Decode(&values); err == nil {
		if len(values) == 0 {
			return nil, errors.New("empty telemetry object")
		}
		return values, nil
	}

	query, err := url.ParseQuery(string(trimmed))
	if err != nil {
		return nil, fmt.Errorf("telemetry is neither json nor form encoded: %w", err)
	}
	values = make(map[string]interface{}, len(query))
	for key, value := range query {
		values[key] = value[0]
	}
	if len(values) == 0 {
		return nil, errors.New("empty telemetry response")
	}
	return values, nil
}
