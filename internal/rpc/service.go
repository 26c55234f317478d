package rpc

// #region imports
import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/churn-service/internal/estimator"
	"github.com/danielpatrickdp/churn-service/internal/metrics"
	"github.com/danielpatrickdp/churn-service/internal/schema"
	"github.com/danielpatrickdp/churn-service/internal/storage"
	"github.com/danielpatrickdp/churn-service/internal/transform"
)

// #endregion imports

// #region descriptor
const (
	ServiceName   = "churn.v1.PredictionService"
	PredictMethod = "/" + ServiceName + "/Predict"
)

// PredictionServer is the server side of churn.v1.PredictionService.
// Requests and responses are google.protobuf.Struct, so no generated
// stubs are needed.
type PredictionServer interface {
	Predict(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes churn.v1.PredictionService for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PredictionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Predict", Handler: predictHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "churn/v1/prediction.proto",
}

func predictHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PredictionServer).Predict(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PredictMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PredictionServer).Predict(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion descriptor

// #region service
// Predictor classifies one customer record. *prediction.Pipeline satisfies it.
type Predictor interface {
	Predict(ctx context.Context, r *schema.Record) (int, error)
}

// Service answers Predict with {"label": <0|1>, "status": "Response-Yes"|"Response-No"}.
type Service struct {
	schema    *schema.Schema
	predictor Predictor
	metrics   *metrics.Metrics
}

func NewService(s *schema.Schema, p Predictor, m *metrics.Metrics) *Service {
	return &Service{schema: s, predictor: p, metrics: m}
}

func (s *Service) Predict(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	begin := time.Now()
	rec, err := s.schema.RecordFromMap(in.AsMap())
	if err != nil {
		s.metrics.ObservePrediction("error", time.Since(begin))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	label, err := s.predictor.Predict(ctx, rec)
	if err != nil {
		s.metrics.ObservePrediction("error", time.Since(begin))
		return nil, status.Error(errorCode(err), err.Error())
	}

	result, text := "no", "Response-No"
	if label == 1 {
		result, text = "yes", "Response-Yes"
	}
	s.metrics.ObservePrediction(result, time.Since(begin))
	return structpb.NewStruct(map[string]any{"label": label, "status": text})
}

// errorCode classifies a prediction failure. Only an input the
// preprocessor cannot encode is the caller's fault.
func errorCode(err error) codes.Code {
	var terr *transform.TransformationError
	switch {
	case errors.As(err, &terr):
		return codes.InvalidArgument
	case errors.Is(err, estimator.ErrModelNotFound):
		return codes.FailedPrecondition
	case errors.Is(err, storage.ErrUnavailable):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// #endregion service

// #region server
// NewServer returns a gRPC server with the prediction service and the
// standard health service registered. Health reports SERVING for both the
// server and the prediction service.
func NewServer(svc PredictionServer, logger *zap.Logger) *grpc.Server {
	log := logger.Named("grpc")
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		begin := time.Now()
		resp, err := handler(ctx, req)
		log.Info("rpc",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(begin)),
		)
		return resp, err
	}))
	srv.RegisterService(&ServiceDesc, svc)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// #endregion server
