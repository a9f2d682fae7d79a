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

package agent

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"

	"github.com/dsrhaslab/Holpaca/pkg/holpaca"
	"github.com/dsrhaslab/Holpaca/pkg/rpc"
	"github.com/stretchr/testify/require"
)

type fakeOrchestratorServer struct {
	connected    []string
	disconnected []string
}

func (f *fakeOrchestratorServer) Connect(_ context.Context, req *rpc.ConnectRequest) (*rpc.ConnectReply, error) {
	f.connected = append(f.connected, req.Address)
	return &rpc.ConnectReply{}, nil
}

func (f *fakeOrchestratorServer) Disconnect(_ context.Context, req *rpc.DisconnectRequest) (*rpc.DisconnectReply, error) {
	f.disconnected = append(f.disconnected, req.Address)
	return &rpc.DisconnectReply{}, nil
}

func TestGetStatusRPCReflectsAgentState(t *testing.T) {
	a := New(1000, 0, 1.0)
	_, err := a.AddPool("pool-a", 500, 0, 1.0)
	require.NoError(t, err)

	s := NewServer(a, "", "")
	reply, err := s.GetStatus(context.Background(), &rpc.GetStatusRequest{})
	require.NoError(t, err)
	require.Equal(t, uint64(1000), reply.Status.MaxSize)
	require.Len(t, reply.Status.Pools, 1)
}

func TestResizeRPCAppliesPlan(t *testing.T) {
	a := New(1000, 0, 1.0)
	id, err := a.AddPool("pool-a", 500, 0, 1.0)
	require.NoError(t, err)

	s := NewServer(a, "", "")
	reply, err := s.Resize(context.Background(), &rpc.ResizeRequest{
		Resize: holpaca.CacheResize{PoolResizes: []holpaca.PoolResize{{PoolId: id, Size: 900}}},
	})
	require.NoError(t, err)
	require.True(t, reply.Applied)

	maxSize, _, err := a.eng.GetPool(id)
	require.NoError(t, err)
	require.Equal(t, uint64(900), maxSize)
}

func TestResizeRPCReportsNonOKOnEngineRejection(t *testing.T) {
	a := New(1000, 0, 1.0)
	id, err := a.AddPool("pool-a", 500, 0, 1.0)
	require.NoError(t, err)

	s := NewServer(a, "", "")
	reply, err := s.Resize(context.Background(), &rpc.ResizeRequest{
		Resize: holpaca.CacheResize{PoolResizes: []holpaca.PoolResize{{PoolId: id, Size: 5000}}},
	})
	require.Error(t, err)
	require.False(t, reply.Applied)
}

func TestStartIsNoOpWithoutOrchestratorConfigured(t *testing.T) {
	a := New(1000, 0, 1.0)
	s := NewServer(a, "", "")
	require.NoError(t, s.Start(context.Background()))
}

func TestStartRegistersWithOrchestrator(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	fake := &fakeOrchestratorServer{}
	grpcServer := grpc.NewServer()
	rpc.RegisterOrchestratorServer(grpcServer, fake)
	go grpcServer.Serve(lis)
	defer grpcServer.Stop()

	a := New(1000, 0, 1.0)
	ownAddress := "127.0.0.1:0"
	s := NewServer(a, ownAddress, lis.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Start(ctx))
	require.Equal(t, []string{ownAddress}, fake.connected)

	s.Stop(context.Background())
	require.Equal(t, []string{ownAddress}, fake.disconnected)
}
