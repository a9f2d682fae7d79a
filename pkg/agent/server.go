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
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dsrhaslab/Holpaca/pkg/holpaca"
	"github.com/dsrhaslab/Holpaca/pkg/log"
	"github.com/dsrhaslab/Holpaca/pkg/metrics"
	"github.com/dsrhaslab/Holpaca/pkg/rpc"
)

const connectRetryBackoff = time.Second

// rpcServer exposes an Agent over holpaca.Agent and handles registration
// with the orchestrator, per the registration protocol: start local server,
// then Connect(cacheAddress) repeatedly until it succeeds, retried forever
// since the agent is useless without an orchestrator.
type rpcServer struct {
	log   log.Logger
	agent *Agent

	ownAddress      string
	orchestratorAddr string

	grpcServer *grpc.Server
	conn       *grpc.ClientConn
}

var _ rpc.AgentServer = (*rpcServer)(nil)

// connectRetryLogWindow caps how often an identical connect-retry failure
// message is allowed to repeat, so a long-dead orchestrator doesn't spam
// the log once per connectRetryBackoff forever.
const connectRetryLogWindow = 30 * time.Second

// NewServer creates a server fronting agent, ready to Start.
func NewServer(agent *Agent, ownAddress, orchestratorAddr string) *rpcServer {
	return &rpcServer{
		log:              log.RateLimit(log.NewLogger("agent-server"), log.Interval(connectRetryLogWindow)),
		agent:            agent,
		ownAddress:       ownAddress,
		orchestratorAddr: orchestratorAddr,
	}
}

// Start listens on ownAddress, then registers with the orchestrator,
// blocking until registration succeeds or ctx is cancelled.
func (s *rpcServer) Start(ctx context.Context) error {
	if s.ownAddress == "" || s.orchestratorAddr == "" {
		s.log.Infof("no orchestrator configured, running standalone")
		return nil
	}

	lis, err := net.Listen("tcp", s.ownAddress)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.ownAddress)
	}
	s.grpcServer = grpc.NewServer()
	rpc.RegisterAgentServer(s.grpcServer, s)

	go func() {
		if err := s.grpcServer.Serve(lis); err != nil {
			s.log.Errorf("agent gRPC server stopped: %v", err)
		}
	}()

	conn, err := grpc.NewClient(s.orchestratorAddr,
		append(rpc.DialOptions(), grpc.WithTransportCredentials(insecure.NewCredentials()))...)
	if err != nil {
		return errors.Wrapf(err, "dial orchestrator %s", s.orchestratorAddr)
	}
	s.conn = conn
	client := rpc.NewOrchestratorClient(conn)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := client.Connect(ctx, &rpc.ConnectRequest{Address: s.ownAddress})
		if err == nil {
			s.log.Infof("connected to orchestrator at %s", s.orchestratorAddr)
			return nil
		}
		metrics.RPCErrorsTotal.WithLabelValues("Connect").Inc()
		s.log.Warnf("connect to orchestrator failed, retrying in %s: %v", connectRetryBackoff, err)
		select {
		case <-time.After(connectRetryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop disconnects from the orchestrator and shuts down the local server.
func (s *rpcServer) Stop(ctx context.Context) {
	if s.conn != nil {
		client := rpc.NewOrchestratorClient(s.conn)
		if _, err := client.Disconnect(ctx, &rpc.DisconnectRequest{Address: s.ownAddress}); err != nil {
			s.log.Warnf("disconnect from orchestrator failed: %v", err)
		}
		s.conn.Close()
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}

// GetStatus implements rpc.AgentServer.
func (s *rpcServer) GetStatus(ctx context.Context, _ *rpc.GetStatusRequest) (*rpc.GetStatusReply, error) {
	return &rpc.GetStatusReply{Status: s.agent.GetStatus()}, nil
}

// Resize implements rpc.AgentServer.
func (s *rpcServer) Resize(ctx context.Context, req *rpc.ResizeRequest) (*rpc.ResizeReply, error) {
	targets := make(map[holpaca.PoolId]uint64, len(req.Resize.PoolResizes))
	for _, pr := range req.Resize.PoolResizes {
		targets[pr.PoolId] = pr.Size
	}
	if err := s.agent.Resize(targets); err != nil {
		return &rpc.ResizeReply{Applied: false}, errors.Wrap(err, "rpc resize")
	}
	return &rpc.ResizeReply{Applied: true}, nil
}
