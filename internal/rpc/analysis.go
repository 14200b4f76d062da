// Package rpc exposes the analyzer over gRPC for internal service-to-service
// callers. The service is schemaless: requests and responses are
// structpb.Struct values mirroring the JSON shapes of the HTTP API, which
// keeps the module free of generated code while remaining callable from any
// gRPC client with the google.protobuf.Struct well-known type.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
)

const (
	serviceName       = "scenario.v1.AnalysisService"
	analyzeFullMethod = "/scenario.v1.AnalysisService/Analyze"
)

// ─── SERVER ──────────────────────────────────────────────────────────────────

// AnalysisServer implements the Analyze RPC.
type AnalysisServer struct {
	analyzer *analysis.Analyzer
	logger   *slog.Logger
}

// NewServer builds a *grpc.Server with the analysis service and the standard
// health service registered. The caller owns Serve/GracefulStop.
func NewServer(analyzer *analysis.Analyzer, logger *slog.Logger) *grpc.Server {
	s := grpc.NewServer()

	srv := &AnalysisServer{analyzer: analyzer, logger: logger}
	s.RegisterService(&analysisServiceDesc, srv)

	h := health.NewServer()
	h.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, h)

	return s
}

// Analyze runs the full pipeline for the scenario described in the request
// struct and returns the result as a struct.
//
// Request fields: "situation" (string, required) and "context" (object of
// string values, optional). The response mirrors the JSON encoding of
// analysis.Result.
func (s *AnalysisServer) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	scenario, err := scenarioFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.analyzer.Analyze(ctx, scenario)
	if err != nil {
		s.logger.Warn("rpc: analyze failed", "error", err)
		return nil, analysisStatusErr(err)
	}

	out, err := resultToStruct(result)
	if err != nil {
		s.logger.Error("rpc: encode result", "error", err)
		return nil, status.Error(codes.Internal, "failed to encode result")
	}
	return out, nil
}

// analysisStatusErr maps the analysis error taxonomy onto gRPC codes,
// mirroring the HTTP mapping in the api package.
func analysisStatusErr(err error) error {
	switch {
	case errors.Is(err, analysis.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, analysis.ErrMalformedResponse):
		return status.Error(codes.Internal, "generator returned an unusable response")
	case errors.Is(err, analysis.ErrCollaboratorTimeout):
		return status.Error(codes.DeadlineExceeded, "generation timed out")
	case errors.Is(err, analysis.ErrCollaboratorUnavailable):
		return status.Error(codes.Unavailable, "generator is unavailable")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// ─── STRUCT CODECS ───────────────────────────────────────────────────────────

func scenarioFromStruct(req *structpb.Struct) (analysis.Scenario, error) {
	if req == nil {
		return analysis.Scenario{}, errors.New("missing request body")
	}

	fields := req.GetFields()

	situation := fields["situation"].GetStringValue()
	if situation == "" {
		return analysis.Scenario{}, errors.New("situation is required and must be a string")
	}

	sc := analysis.Scenario{Situation: situation}
	if ctxVal, ok := fields["context"]; ok {
		obj := ctxVal.GetStructValue()
		if obj == nil {
			return analysis.Scenario{}, errors.New("context must be an object of string values")
		}
		sc.Context = make(map[string]string, len(obj.GetFields()))
		for k, v := range obj.GetFields() {
			str, ok := v.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return analysis.Scenario{}, fmt.Errorf("context value for %q must be a string", k)
			}
			sc.Context[k] = str.StringValue
		}
	}
	return sc, nil
}

// resultToStruct round-trips the result through its JSON encoding so the RPC
// response shape stays identical to the HTTP one.
func resultToStruct(res *analysis.Result) (*structpb.Struct, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// ─── SERVICE DESC ────────────────────────────────────────────────────────────

// analysisService is the handler interface the service descriptor binds to.
type analysisService interface {
	Analyze(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var _ analysisService = (*AnalysisServer)(nil)

// analysisServiceDesc is written by hand: with structpb messages on the wire
// there is no .proto compilation step to generate it.
var analysisServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*analysisService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Analyze",
			Handler:    analyzeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scenario/v1/analysis.proto",
}

func analyzeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(analysisService).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: analyzeFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(analysisService).Analyze(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
