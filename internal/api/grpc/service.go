package grpcapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"measurement-simulator/internal/application/streaming"
	"measurement-simulator/internal/domain"
	"measurement-simulator/internal/infra"
	"measurement-simulator/internal/shared/constants"
)

const (
	ServiceName              = "measurements.v1.MeasurementService"
	StreamMeasurementsMethod = "/" + ServiceName + "/StreamMeasurements"
)

// Response field names.
const (
	FieldTimestamp = "timestamp"
	FieldHasValue  = "has_value"
	FieldValue     = "value"
)

// MeasurementServiceServer is the server API for the measurement service.
type MeasurementServiceServer interface {
	StreamMeasurements(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// ServiceDesc describes the measurement service for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MeasurementServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamMeasurements",
			Handler:       streamMeasurementsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "measurements/v1/measurements.proto",
}

// RegisterMeasurementServiceServer registers srv on the given registrar.
func RegisterMeasurementServiceServer(s grpc.ServiceRegistrar, srv MeasurementServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func streamMeasurementsHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(MeasurementServiceServer).StreamMeasurements(req, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// SourceFactory resolves request parameters into measurement sources.
type SourceFactory interface {
	Resolve(lookup streaming.Lookup) (streaming.Params, streaming.ValidationErrors)
	Source(p streaming.Params) (domain.MeasurementSource, error)
}

// Logger defines the logging behaviour required by the gRPC transport.
type Logger interface {
	Printf(ctx context.Context, format string, v ...any)
	Errorf(ctx context.Context, format string, v ...any)
}

// MeasurementService streams simulated samples to gRPC clients.
type MeasurementService struct {
	factory   SourceFactory
	logger    Logger
	maxStream time.Duration
}

var _ MeasurementServiceServer = (*MeasurementService)(nil)

// NewMeasurementService wires the service to a source factory. A positive
// maxStream bounds the lifetime of every stream.
func NewMeasurementService(factory SourceFactory, logger Logger, maxStream time.Duration) *MeasurementService {
	return &MeasurementService{factory: factory, logger: logger, maxStream: maxStream}
}

// StreamMeasurements sends one message per sample until the client cancels.
func (s *MeasurementService) StreamMeasurements(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	params, errs := s.factory.Resolve(structLookup(req))
	if len(errs) > 0 {
		return invalidArgument(errs)
	}

	source, err := s.factory.Source(params)
	if err != nil {
		var verrs streaming.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			return invalidArgument(verrs)
		case errors.Is(err, domain.ErrOutOfRange), errors.Is(err, domain.ErrMissingArgument):
			return status.Error(codes.InvalidArgument, err.Error())
		default:
			return status.Error(codes.Internal, "internal server error")
		}
	}

	ctx := stream.Context()
	if s.maxStream > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.maxStream)
		defer cancel()
	}

	done := infra.StreamStarted(infra.TransportGRPC)
	defer done()

	s.printf(ctx, "grpc: stream started signal=%s rate=%gHz frequency=%gHz variation=%g%%",
		params.Signal, params.MeasurementFrequencyHz, params.SignalFrequencyHz, params.VariationPercent)

	sent := 0
	for sample := range source.Samples(ctx) {
		if err := stream.Send(SampleToStruct(sample)); err != nil {
			s.errorf(ctx, "grpc: send failed after %d samples: %v", sent, err)
			return err
		}
		infra.RecordSample(infra.TransportGRPC, sample.HasValue)
		sent++
	}

	s.printf(ctx, "grpc: stream finished after %d samples", sent)
	if err := stream.Context().Err(); err != nil {
		return status.FromContextError(err).Err()
	}
	return nil
}

// SampleToStruct converts a sample into its wire representation.
func SampleToStruct(sample domain.Sample) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldTimestamp: structpb.NewStringValue(sample.Timestamp.UTC().Format(constants.TimeFormat)),
		FieldHasValue:  structpb.NewBoolValue(sample.HasValue),
		FieldValue:     structpb.NewNumberValue(sample.Value),
	}}
}

// SampleFromStruct parses a wire message back into a sample.
func SampleFromStruct(msg *structpb.Struct) (domain.Sample, error) {
	fields := msg.GetFields()
	ts, err := time.Parse(constants.TimeFormat, fields[FieldTimestamp].GetStringValue())
	if err != nil {
		return domain.Sample{}, err
	}
	return domain.NewSample(ts, fields[FieldValue].GetNumberValue(), fields[FieldHasValue].GetBoolValue()), nil
}

// ParamsToStruct builds a request message from stream parameters.
func ParamsToStruct(p streaming.Params) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		streaming.ParamMeasurementFrequencyHz: structpb.NewNumberValue(p.MeasurementFrequencyHz),
		streaming.ParamSignal:                 structpb.NewStringValue(p.Signal),
		streaming.ParamSignalFrequencyHz:      structpb.NewNumberValue(p.SignalFrequencyHz),
		streaming.ParamVariationPercent:       structpb.NewNumberValue(p.VariationPercent),
	}}
}

func structLookup(req *structpb.Struct) streaming.Lookup {
	fields := req.GetFields()
	return func(name string) (string, bool) {
		v, ok := fields[name]
		if !ok {
			return "", false
		}
		switch kind := v.GetKind().(type) {
		case *structpb.Value_NumberValue:
			return strconv.FormatFloat(kind.NumberValue, 'g', -1, 64), true
		case *structpb.Value_StringValue:
			return kind.StringValue, true
		case *structpb.Value_BoolValue:
			return strconv.FormatBool(kind.BoolValue), true
		case *structpb.Value_NullValue:
			return "", false
		default:
			return "", true
		}
	}
}

func invalidArgument(errs streaming.ValidationErrors) error {
	st := status.New(codes.InvalidArgument, errs.Error())
	violations := make([]*errdetails.BadRequest_FieldViolation, 0, len(errs))
	for _, field := range errs.Fields() {
		for _, message := range errs[field] {
			violations = append(violations, &errdetails.BadRequest_FieldViolation{Field: field, Description: message})
		}
	}
	detailed, err := st.WithDetails(&errdetails.BadRequest{FieldViolations: violations})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

func (s *MeasurementService) printf(ctx context.Context, format string, v ...any) {
	if s.logger != nil {
		s.logger.Printf(ctx, format, v...)
	}
}

func (s *MeasurementService) errorf(ctx context.Context, format string, v ...any) {
	if s.logger != nil {
		s.logger.Errorf(ctx, format, v...)
	}
}
