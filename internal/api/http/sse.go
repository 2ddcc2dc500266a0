package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"measurement-simulator/internal/application/streaming"
	"measurement-simulator/internal/domain"
	"measurement-simulator/internal/infra"
	"measurement-simulator/internal/shared/constants"
)

type measurementEvent struct {
	Timestamp string  `json:"timestamp"`
	HasValue  bool    `json:"hasValue"`
	Value     float64 `json:"value"`
}

func toEvent(s domain.Sample) measurementEvent {
	return measurementEvent{
		Timestamp: s.Timestamp.UTC().Format(constants.TimeFormat),
		HasValue:  s.HasValue,
		Value:     s.Value,
	}
}

func (h *handler) handleSimulatedMeasurements(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params, errs := h.factory.Resolve(func(name string) (string, bool) {
		if !query.Has(name) {
			return "", false
		}
		return query.Get(name), true
	})
	if len(errs) > 0 {
		h.writeValidationProblem(w, errs)
		return
	}

	source, err := h.factory.Source(params)
	if err != nil {
		var verrs streaming.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			h.writeValidationProblem(w, verrs)
		case errors.Is(err, domain.ErrOutOfRange), errors.Is(err, domain.ErrMissingArgument):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	ctx := r.Context()
	if h.maxStream > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.maxStream)
		defer cancel()
	}

	rc := http.NewResponseController(w)
	// streams outlive the server-wide write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.errorf(ctx, "sse: flush not supported: %v", err)
		return
	}

	done := infra.StreamStarted(infra.TransportHTTP)
	defer done()

	h.printf(ctx, "sse: stream started signal=%s rate=%gHz frequency=%gHz variation=%g%%",
		params.Signal, params.MeasurementFrequencyHz, params.SignalFrequencyHz, params.VariationPercent)

	sent := 0
	for sample := range source.Samples(ctx) {
		if err := writeEvent(w, constants.MeasurementEvent, toEvent(sample)); err != nil {
			h.errorf(ctx, "sse: write failed after %d events: %v", sent, err)
			break
		}
		if err := rc.Flush(); err != nil {
			h.errorf(ctx, "sse: flush failed after %d events: %v", sent, err)
			break
		}
		infra.RecordSample(infra.TransportHTTP, sample.HasValue)
		sent++
	}

	h.printf(ctx, "sse: stream finished after %d events", sent)
}

func writeEvent(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func (h *handler) printf(ctx context.Context, format string, v ...any) {
	if h.logger != nil {
		h.logger.Printf(ctx, format, v...)
	}
}

func (h *handler) errorf(ctx context.Context, format string, v ...any) {
	if h.logger != nil {
		h.logger.Errorf(ctx, format, v...)
	}
}
