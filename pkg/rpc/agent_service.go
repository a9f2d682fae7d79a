/*
Copyright 2024 The Holpaca Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// AgentServer is implemented by the data plane: the orchestrator calls in
// to collect status and dispatch resize plans.
type AgentServer interface {
	GetStatus(context.Context, *GetStatusRequest) (*GetStatusReply, error)
	Resize(context.Context, *ResizeRequest) (*ResizeReply, error)
}

// RegisterAgentServer registers srv to handle holpaca.Agent RPCs on s.
func RegisterAgentServer(s grpc.ServiceRegistrar, srv AgentServer) {
	s.RegisterService(&agentServiceDesc, srv)
}

func agentGetStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AgentServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/holpaca.Agent/GetStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AgentServer).GetStatus(ctx, req.(*GetStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func agentResizeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ResizeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AgentServer).Resize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/holpaca.Agent/Resize"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AgentServer).Resize(ctx, req.(*ResizeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var agentServiceDesc = grpc.ServiceDesc{
	ServiceName: "holpaca.Agent",
	HandlerType: (*AgentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: agentGetStatusHandler},
		{MethodName: "Resize", Handler: agentResizeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "holpaca.proto",
}

// AgentClient is the client API for the holpaca.Agent service.
type AgentClient interface {
	GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*GetStatusReply, error)
	Resize(ctx context.Context, in *ResizeRequest, opts ...grpc.CallOption) (*ResizeReply, error)
}

type agentClient struct {
	cc grpc.ClientConnInterface
}

// NewAgentClient creates a client for the holpaca.Agent service over the
// given connection.
func NewAgentClient(cc grpc.ClientConnInterface) AgentClient {
	return &agentClient{cc: cc}
}

func (c *agentClient) GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*GetStatusReply, error) {
	out := new(GetStatusReply)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, "/holpaca.Agent/GetStatus", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *agentClient) Resize(ctx context.Context, in *ResizeRequest, opts ...grpc.CallOption) (*ResizeReply, error) {
	out := new(ResizeReply)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, "/holpaca.Agent/Resize", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
