package roomcode

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
)

const serviceName = "roomcode.v1.RoomCodeService"

const (
	methodGenerate = "/" + serviceName + "/GenerateRoomCode"
	methodResolve  = "/" + serviceName + "/ResolveRoomCode"
	methodDelete   = "/" + serviceName + "/DeleteRoomCode"
)

type GenerateRoomCodeRequest struct {
	RoomID     string `json:"roomId"`
	CodeLength int32  `json:"codeLength"`
	TTLSeconds int64  `json:"ttlSeconds"`
}

type GenerateRoomCodeResponse struct {
	RoomCode  string                 `json:"roomCode"`
	ExpiresAt *timestamppb.Timestamp `json:"expiresAt"`
}

type ResolveRoomCodeRequest struct {
	RoomCode string `json:"roomCode"`
}

type ResolveRoomCodeResponse struct {
	Found  bool   `json:"found"`
	RoomID string `json:"roomId,omitempty"`
}

type DeleteRoomCodeRequest struct {
	RoomCode string `json:"roomCode"`
}

type DeleteRoomCodeResponse struct {
	Deleted bool `json:"deleted"`
}

// RoomCodeServer is the server side of the room code RPC.
type RoomCodeServer interface {
	GenerateRoomCode(context.Context, *GenerateRoomCodeRequest) (*GenerateRoomCodeResponse, error)
	ResolveRoomCode(context.Context, *ResolveRoomCodeRequest) (*ResolveRoomCodeResponse, error)
	DeleteRoomCode(context.Context, *DeleteRoomCodeRequest) (*DeleteRoomCodeResponse, error)
}

// ServiceDesc describes the room code RPC for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RoomCodeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GenerateRoomCode", Handler: generateHandler},
		{MethodName: "ResolveRoomCode", Handler: resolveHandler},
		{MethodName: "DeleteRoomCode", Handler: deleteHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "roomcode/v1/roomcode.proto",
}

// Register attaches srv to a gRPC server.
func Register(s grpc.ServiceRegistrar, srv RoomCodeServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func generateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GenerateRoomCodeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RoomCodeServer).GenerateRoomCode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGenerate}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RoomCodeServer).GenerateRoomCode(ctx, req.(*GenerateRoomCodeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func resolveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ResolveRoomCodeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RoomCodeServer).ResolveRoomCode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodResolve}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RoomCodeServer).ResolveRoomCode(ctx, req.(*ResolveRoomCodeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DeleteRoomCodeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RoomCodeServer).DeleteRoomCode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodDelete}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RoomCodeServer).DeleteRoomCode(ctx, req.(*DeleteRoomCodeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Service serves the room code RPC from an Allocator.
type Service struct {
	alloc  *Allocator
	logger zerolog.Logger
}

var _ RoomCodeServer = (*Service)(nil)

func NewService(alloc *Allocator, logger zerolog.Logger) *Service {
	return &Service{
		alloc:  alloc,
		logger: logger.With().Str("component", "roomcode_service").Logger(),
	}
}

func (s *Service) GenerateRoomCode(ctx context.Context, req *GenerateRoomCodeRequest) (*GenerateRoomCodeResponse, error) {
	if req.TTLSeconds < 0 {
		return nil, errs.Validation("ttlSeconds must not be negative")
	}

	a, err := s.alloc.Allocate(ctx, req.RoomID, int(req.CodeLength), time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		return nil, errs.Convert(err)
	}

	return &GenerateRoomCodeResponse{
		RoomCode:  a.Code,
		ExpiresAt: timestamppb.New(a.ExpiresAt),
	}, nil
}

func (s *Service) ResolveRoomCode(ctx context.Context, req *ResolveRoomCodeRequest) (*ResolveRoomCodeResponse, error) {
	roomID, err := s.alloc.Resolve(ctx, req.RoomCode)
	if errs.HasCode(err, errs.CodeNotFound) {
		return &ResolveRoomCodeResponse{Found: false}, nil
	}
	if err != nil {
		return nil, errs.Convert(err)
	}
	return &ResolveRoomCodeResponse{Found: true, RoomID: roomID}, nil
}

func (s *Service) DeleteRoomCode(ctx context.Context, req *DeleteRoomCodeRequest) (*DeleteRoomCodeResponse, error) {
	deleted, err := s.alloc.Revoke(ctx, req.RoomCode)
	if err != nil {
		return nil, errs.Convert(err)
	}
	return &DeleteRoomCodeResponse{Deleted: deleted}, nil
}
