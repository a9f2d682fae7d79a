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
	"net"

	"google.golang.org/grpc"

	"github.com/dsrhaslab/Holpaca/pkg/rpc"
)

// Serve starts a holpaca.Orchestrator gRPC server on bindAddress, blocking
// until it stops. Callers typically run this in its own goroutine.
func (o *Orchestrator) Serve(bindAddress string) error {
	lis, err := net.Listen("tcp", bindAddress)
	if err != nil {
		return err
	}
	s := grpc.NewServer()
	rpc.RegisterOrchestratorServer(s, o)
	o.log.Infof("listening for agents on %s", bindAddress)
	return s.Serve(lis)
}
