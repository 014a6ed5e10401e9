package mqtt

import (
	"errors"
	"sync"
)

// KeyValue is a recorded telemetry or attribute publish.
type KeyValue struct {
	Key   string
	Value any
}

// FakeClient records publishes for test assertions. Safe for concurrent use.
type FakeClient struct {
	mu sync.Mutex

	// ConnectErrors are returned by successive Connect calls; once
	// exhausted Connect succeeds.
	ConnectErrors []error

	// SendError, if set, is returned by SendTelemetry and SendAttribute.
	SendError error

	// DisconnectError, if set, is returned by Disconnect after the fake
	// session is closed.
	DisconnectError error

	connected   bool
	connects    int
	disconnects int
	telemetry   []KeyValue
	attributes  []KeyValue
	payloads    [][]byte
	rpc         RPCHandler
}

// NewFakeClient creates a disconnected FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

// Connect consumes the next scripted error or opens the fake session.
func (f *FakeClient) Connect(_, _ string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if len(f.ConnectErrors) > 0 {
		err := f.ConnectErrors[0]
		f.ConnectErrors = f.ConnectErrors[1:]
		if err != nil {
			return err
		}
	}
	f.connected = true
	f.rpc = nil
	return nil
}

// Connected reports the fake session state.
func (f *FakeClient) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// SendTelemetry records the value.
func (f *FakeClient) SendTelemetry(key string, value any) error {
	return f.send(&f.telemetry, key, value)
}

// SendAttribute records the value.
func (f *FakeClient) SendAttribute(key string, value any) error {
	return f.send(&f.attributes, key, value)
}

func (f *FakeClient) send(dst *[]KeyValue, key string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	if f.SendError != nil {
		return f.SendError
	}
	payload, err := FormatKeyValue(key, value)
	if err != nil {
		return err
	}
	*dst = append(*dst, KeyValue{Key: key, Value: value})
	f.payloads = append(f.payloads, payload)
	return nil
}

// SubscribeRPC stores the handler for DeliverRPC.
func (f *FakeClient) SubscribeRPC(handler RPCHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.rpc = handler
	return nil
}

// DeliverRPC invokes the subscribed handler as the broker would.
func (f *FakeClient) DeliverRPC(req RPCRequest) error {
	f.mu.Lock()
	h := f.rpc
	f.mu.Unlock()
	if h == nil {
		return errors.New("no rpc subscription")
	}
	h(req)
	return nil
}

// Disconnect closes the fake session.
func (f *FakeClient) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.connected = false
	f.rpc = nil
	return f.DisconnectError
}

// Drop simulates the broker connection being lost without Disconnect.
func (f *FakeClient) Drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.rpc = nil
}

// Connects returns the number of Connect calls.
func (f *FakeClient) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// Disconnects returns the number of Disconnect calls.
func (f *FakeClient) Disconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

// Telemetry returns a copy of the recorded telemetry.
func (f *FakeClient) Telemetry() []KeyValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]KeyValue(nil), f.telemetry...)
}

// Attributes returns a copy of the recorded attributes.
func (f *FakeClient) Attributes() []KeyValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]KeyValue(nil), f.attributes...)
}

// Payloads returns a copy of every JSON payload sent.
func (f *FakeClient) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

// Reset clears recorded publishes.
func (f *FakeClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.telemetry = nil
	f.attributes = nil
	f.payloads = nil
	f.SendError = nil
}
