// Package mqtt provides the telemetry platform client with abstraction for testing.
// The platform speaks the ThingsBoard device API: the access token is the
// MQTT username and telemetry, attributes and RPC use fixed topics.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Device API topics.
const (
	TopicTelemetry  = "v1/devices/me/telemetry"
	TopicAttributes = "v1/devices/me/attributes"
	TopicRPCRequest = "v1/devices/me/rpc/request/+"

	rpcRequestPrefix = "v1/devices/me/rpc/request/"
)

// ErrNotConnected is returned by client operations that need an open connection.
var ErrNotConnected = errors.New("mqtt: not connected")

// Client is a session to the telemetry platform.
// All methods may fail; none panic.
type Client interface {
	// Connect opens a new session. Any previous session is discarded.
	Connect(server, token string, port int) error

	// Connected reports whether the session is currently open.
	Connected() bool

	// SendTelemetry publishes a single telemetry value without waiting
	// for delivery.
	SendTelemetry(key string, value any) error

	// SendAttribute publishes a single client attribute and waits for
	// the broker to accept it.
	SendAttribute(key string, value any) error

	// SubscribeRPC registers handler for server-side RPC requests on the
	// current session.
	SubscribeRPC(handler RPCHandler) error

	// Disconnect closes the session.
	Disconnect() error
}

// RPCRequest is a server-side RPC call delivered to the device.
type RPCRequest struct {
	ID     string          `json:"-"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// RPCHandler handles one RPC request.
type RPCHandler func(req RPCRequest)

// FormatKeyValue creates the JSON payload for one telemetry or attribute value.
func FormatKeyValue(key string, value any) ([]byte, error) {
	return json.Marshal(map[string]any{key: value})
}

// ParseRPCRequest decodes an RPC request received on topic.
func ParseRPCRequest(topic string, payload []byte) (RPCRequest, error) {
	if !strings.HasPrefix(topic, rpcRequestPrefix) {
		return RPCRequest{}, fmt.Errorf("not an rpc request topic: %s", topic)
	}
	var req RPCRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return RPCRequest{}, fmt.Errorf("decode rpc request: %w", err)
	}
	if req.Method == "" {
		return RPCRequest{}, errors.New("rpc request has no method")
	}
	req.ID = strings.TrimPrefix(topic, rpcRequestPrefix)
	return req, nil
}
