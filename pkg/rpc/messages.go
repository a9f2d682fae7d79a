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

import "github.com/dsrhaslab/Holpaca/pkg/holpaca"

// ConnectRequest registers an agent's address with the orchestrator.
type ConnectRequest struct {
	Address string `json:"address"`
}

// ConnectReply acknowledges a Connect call.
type ConnectReply struct{}

// DisconnectRequest unregisters an agent's address from the orchestrator.
type DisconnectRequest struct {
	Address string `json:"address"`
}

// DisconnectReply acknowledges a Disconnect call.
type DisconnectReply struct{}

// GetStatusRequest carries no fields; the agent reports the status of its
// entire cache instance.
type GetStatusRequest struct{}

// GetStatusReply carries one cache instance's current status.
type GetStatusReply struct {
	Status holpaca.CacheStatus `json:"status"`
}

// ResizeRequest carries one cache instance's new pool sizes.
type ResizeRequest struct {
	Resize holpaca.CacheResize `json:"resize"`
}

// ResizeReply reports whether the resize plan was applied.
type ResizeReply struct {
	Applied bool `json:"applied"`
}
