package grpcapi

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"measurement-simulator/internal/application/streaming"
	"measurement-simulator/internal/infra"
	"measurement-simulator/internal/shared/constants"
)

const bufSize = 1024 * 1024

func startServer(t *testing.T, maxStream time.Duration) *Client {
	t.Helper()

	listener := bufconn.Listen(bufSize)
	factory := streaming.NewFactory(infra.DefaultConfig().Defaults)
	logger := infra.NewLogger(nil, "test")
	server, err := NewServer(logger, NewMeasurementService(factory, logger, maxStream), Options{Listener: listener, ShutdownTimeout: time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- server.Serve(ctx) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		require.NoError(t, <-served)
	})
	return NewClient(conn)
}

func TestStreamMeasurementsSendsSamples(t *testing.T) {
	client := startServer(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req := ParamsToStruct(streaming.Params{
		MeasurementFrequencyHz: 50,
		Signal:                 "Cosine",
		SignalFrequencyHz:      1,
	})
	stream, err := client.StreamMeasurements(ctx, req)
	require.NoError(t, err)

	var previous time.Time
	for i := 0; i < 5; i++ {
		msg, err := stream.Recv()
		require.NoError(t, err)

		sample, err := SampleFromStruct(msg)
		require.NoError(t, err)
		assert.True(t, sample.HasValue)
		assert.True(t, sample.Timestamp.After(previous))
		if i == 0 {
			assert.InDelta(t, 1.0, sample.Value, 1e-3)
		}
		previous = sample.Timestamp
	}
}

func TestStreamMeasurementsUsesDefaults(t *testing.T) {
	client := startServer(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.StreamMeasurements(ctx, &structpb.Struct{})
	require.NoError(t, err)

	msg, err := stream.Recv()
	require.NoError(t, err)
	assert.Contains(t, msg.GetFields(), FieldTimestamp)
	assert.True(t, msg.GetFields()[FieldHasValue].GetBoolValue())
	assert.InDelta(t, 0.0, msg.GetFields()[FieldValue].GetNumberValue(), 1e-2)
}

func TestStreamMeasurementsRejectsInvalidParameters(t *testing.T) {
	client := startServer(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := structpb.NewStruct(map[string]any{
		streaming.ParamMeasurementFrequencyHz: 0.5,
		streaming.ParamSignal:                 "square",
	})
	require.NoError(t, err)

	stream, err := client.StreamMeasurements(ctx, req)
	require.NoError(t, err)

	_, err = stream.Recv()
	require.Error(t, err)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Contains(t, st.Message(), "measurementFrequencyHz must be in range 1.0..100.0.")

	var fields []string
	for _, detail := range st.Details() {
		if br, ok := detail.(*errdetails.BadRequest); ok {
			for _, v := range br.GetFieldViolations() {
				fields = append(fields, v.GetField())
			}
		}
	}
	assert.Equal(t, []string{streaming.ParamMeasurementFrequencyHz, streaming.ParamSignal}, fields)
}

func TestStreamMeasurementsEndsAtMaxStreamDuration(t *testing.T) {
	client := startServer(t, 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ctx = metadata.AppendToOutgoingContext(ctx, constants.RequestIDHeader, constants.GenerateUUID())
	stream, err := client.StreamMeasurements(ctx, ParamsToStruct(streaming.Params{
		MeasurementFrequencyHz: 100,
		Signal:                 "sine",
		SignalFrequencyHz:      1,
	}))
	require.NoError(t, err)

	received := 0
	for {
		_, err := stream.Recv()
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
		received++
	}
	assert.Greater(t, received, 0)
	assert.LessOrEqual(t, received, 15)
}

func TestStreamMeasurementsStopsWhenClientCancels(t *testing.T) {
	client := startServer(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.StreamMeasurements(ctx, &structpb.Struct{})
	require.NoError(t, err)

	_, err = stream.Recv()
	require.NoError(t, err)
	cancel()

	for {
		if _, err = stream.Recv(); err != nil {
			break
		}
	}
	assert.Equal(t, codes.Canceled, status.Code(err))

	gauge := infra.ActiveStreams.WithLabelValues(infra.TransportGRPC)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(gauge) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStructLookup(t *testing.T) {
	req, err := structpb.NewStruct(map[string]any{
		"number": 12.5,
		"text":   "sine",
		"flag":   true,
		"none":   nil,
	})
	require.NoError(t, err)

	lookup := structLookup(req)

	v, ok := lookup("number")
	assert.True(t, ok)
	assert.Equal(t, "12.5", v)

	v, ok = lookup("text")
	assert.True(t, ok)
	assert.Equal(t, "sine", v)

	v, ok = lookup("flag")
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	_, ok = lookup("none")
	assert.False(t, ok)

	_, ok = lookup("missing")
	assert.False(t, ok)
}

func TestNewServerRequiresServiceAndAddress(t *testing.T) {
	_, err := NewServer(nil, nil, Options{Address: ":0"})
	assert.Error(t, err)

	_, err = NewServer(nil, NewMeasurementService(nil, nil, 0), Options{})
	assert.Error(t, err)
}

func TestServeStopsActiveStreamsOnShutdown(t *testing.T) {
	listener := bufconn.Listen(bufSize)
	factory := streaming.NewFactory(infra.DefaultConfig().Defaults)
	server, err := NewServer(nil, NewMeasurementService(factory, nil, 0), Options{Listener: listener, ShutdownTimeout: 2 * time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- server.Serve(ctx) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	stream, err := NewClient(conn).StreamMeasurements(context.Background(), &structpb.Struct{})
	require.NoError(t, err)
	_, err = stream.Recv()
	require.NoError(t, err)

	start := time.Now()
	cancel()

	select {
	case err := <-served:
		assert.NoError(t, err)
		assert.Less(t, time.Since(start), time.Second)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
