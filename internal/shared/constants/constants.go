package constants

import "time"

const (
	// TimeFormat defines the canonical timestamp format used across transports.
	TimeFormat = time.RFC3339Nano

	// MeasurementEvent is the SSE event type carrying one sample.
	MeasurementEvent = "measurement"

	// RequestIDHeader carries the correlation ID of an HTTP request.
	RequestIDHeader = "X-Request-ID"
)
