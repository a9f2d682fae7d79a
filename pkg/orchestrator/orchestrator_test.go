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

package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"

	"github.com/dsrhaslab/Holpaca/pkg/control"
	"github.com/dsrhaslab/Holpaca/pkg/holpaca"
	"github.com/dsrhaslab/Holpaca/pkg/rpc"
	"github.com/stretchr/testify/require"
)

// fakeAgentClient implements rpc.AgentClient directly, bypassing gRPC, so
// orchestrator logic can be exercised without a network.
type fakeAgentClient struct {
	status    holpaca.CacheStatus
	statusErr error
	resizeErr error
	lastResize *rpc.ResizeRequest
}

func (f *fakeAgentClient) GetStatus(context.Context, *rpc.GetStatusRequest, ...grpc.CallOption) (*rpc.GetStatusReply, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &rpc.GetStatusReply{Status: f.status}, nil
}

func (f *fakeAgentClient) Resize(_ context.Context, in *rpc.ResizeRequest, _ ...grpc.CallOption) (*rpc.ResizeReply, error) {
	f.lastResize = in
	if f.resizeErr != nil {
		return nil, f.resizeErr
	}
	return &rpc.ResizeReply{Applied: true}, nil
}

func newTestOrchestrator(clients map[string]*fakeAgentClient) *Orchestrator {
	o := New()
	o.dial = func(address string) (rpc.AgentClient, *grpc.ClientConn, error) {
		return clients[address], nil, nil
	}
	return o
}

func TestConnectTwiceYieldsOneProxy(t *testing.T) {
	clients := map[string]*fakeAgentClient{"addr-1": {}}
	o := newTestOrchestrator(clients)

	_, err := o.Connect(context.Background(), &rpc.ConnectRequest{Address: "addr-1"})
	require.NoError(t, err)
	_, err = o.Connect(context.Background(), &rpc.ConnectRequest{Address: "addr-1"})
	require.NoError(t, err)

	require.Len(t, o.snapshotProxies(), 1)
}

func TestDisconnectIsIdempotentOnAbsentAddress(t *testing.T) {
	o := newTestOrchestrator(nil)
	_, err := o.Disconnect(context.Background(), &rpc.DisconnectRequest{Address: "never-registered"})
	require.NoError(t, err)
	require.Empty(t, o.snapshotProxies())
}

func TestCollectStatusDropsFailingProxiesButKeepsThemRegistered(t *testing.T) {
	clients := map[string]*fakeAgentClient{
		"ok":   {status: holpaca.CacheStatus{MaxSize: 100}},
		"fail": {statusErr: context.DeadlineExceeded},
	}
	o := newTestOrchestrator(clients)
	for addr := range clients {
		_, err := o.Connect(context.Background(), &rpc.ConnectRequest{Address: addr})
		require.NoError(t, err)
	}

	statuses := o.CollectStatus(context.Background())
	require.Len(t, statuses, 1)
	require.Contains(t, statuses, holpaca.CacheName("ok"))
	require.Len(t, o.snapshotProxies(), 2, "failing proxies stay registered for retry next tick")
}

func TestResizeRejectsPlanLengthMismatch(t *testing.T) {
	clients := map[string]*fakeAgentClient{"a": {}, "b": {}}
	o := newTestOrchestrator(clients)
	for addr := range clients {
		_, err := o.Connect(context.Background(), &rpc.ConnectRequest{Address: addr})
		require.NoError(t, err)
	}

	err := o.Resize(context.Background(), []holpaca.CacheResize{{Name: "a"}})
	require.ErrorIs(t, err, holpaca.ErrPlanLengthMismatch)
	require.Nil(t, clients["a"].lastResize)
	require.Nil(t, clients["b"].lastResize)
}

func TestResizeDispatchesOneRPCPerEntry(t *testing.T) {
	clients := map[string]*fakeAgentClient{"a": {}, "b": {}}
	o := newTestOrchestrator(clients)
	for addr := range clients {
		_, err := o.Connect(context.Background(), &rpc.ConnectRequest{Address: addr})
		require.NoError(t, err)
	}

	plan := []holpaca.CacheResize{
		{Name: "a", PoolResizes: []holpaca.PoolResize{{PoolId: 1, Size: 10}}},
		{Name: "b", PoolResizes: []holpaca.PoolResize{{PoolId: 2, Size: 20}}},
	}
	require.NoError(t, o.Resize(context.Background(), plan))

	require.NotNil(t, clients["a"].lastResize)
	require.Equal(t, uint64(10), clients["a"].lastResize.Resize.PoolResizes[0].Size)
	require.NotNil(t, clients["b"].lastResize)
	require.Equal(t, uint64(20), clients["b"].lastResize.Resize.PoolResizes[0].Size)
}

func TestResizeWithNoRegisteredProxiesErrors(t *testing.T) {
	o := newTestOrchestrator(nil)
	err := o.Resize(context.Background(), nil)
	require.ErrorIs(t, err, holpaca.ErrNoProxies)
}

type countingTestAlgorithm struct {
	ticks atomic.Int64
}

func (c *countingTestAlgorithm) Tick(context.Context, control.ProxyManager) { c.ticks.Add(1) }

func TestAddAlgorithmReplacesPreviousControllerLoop(t *testing.T) {
	o := newTestOrchestrator(nil)
	first := &countingTestAlgorithm{}
	o.AddAlgorithm(first, time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	second := &countingTestAlgorithm{}
	o.AddAlgorithm(second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	o.Stop()

	firstAfterReplace := first.ticks.Load()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, firstAfterReplace, first.ticks.Load(), "replaced algorithm must stop ticking")
	require.Greater(t, second.ticks.Load(), int64(0))
}
