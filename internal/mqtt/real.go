package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// DefaultTimeout bounds connect, subscribe and attribute publishes.
const DefaultTimeout = 10 * time.Second

// Broker-side loss is noticed within keepAlive+pingTimeout.
const (
	keepAlive   = 4 * time.Second
	pingTimeout = 2 * time.Second
)

// RealClient talks to an actual MQTT broker.
// Automatic reconnection is disabled: the session keeper owns reconnects.
type RealClient struct {
	clientID string
	timeout  time.Duration

	mu     sync.Mutex
	client paho.Client
}

// NewRealClient creates a client. An empty clientID gets a random one.
func NewRealClient(clientID string) *RealClient {
	if clientID == "" {
		clientID = "env-sensor-" + uuid.NewString()
	}
	return &RealClient{clientID: clientID, timeout: DefaultTimeout}
}

// ClientID returns the MQTT client identifier.
func (c *RealClient) ClientID() string {
	return c.clientID
}

// Connect opens a new session to server:port authenticating with token.
func (c *RealClient) Connect(server, token string, port int) error {
	broker := fmt.Sprintf("tcp://%s:%d", server, port)
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(c.clientID).
		SetUsername(token).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(c.timeout).
		SetKeepAlive(keepAlive).
		SetPingTimeout(pingTimeout).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	client := paho.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(c.timeout) {
		client.Disconnect(0)
		return fmt.Errorf("connect to %s: timeout", broker)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", broker, err)
	}

	c.mu.Lock()
	old := c.client
	c.client = client
	c.mu.Unlock()
	if old != nil {
		old.Disconnect(0)
	}
	return nil
}

func (c *RealClient) current() paho.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// Connected reports whether the connection is open.
func (c *RealClient) Connected() bool {
	client := c.current()
	return client != nil && client.IsConnectionOpen()
}

// SendTelemetry publishes at QoS 0 and returns without waiting for the
// write unless it has already failed.
func (c *RealClient) SendTelemetry(key string, value any) error {
	client := c.current()
	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}
	payload, err := FormatKeyValue(key, value)
	if err != nil {
		return fmt.Errorf("format telemetry %s: %w", key, err)
	}
	tok := client.Publish(TopicTelemetry, 0, false, payload)
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("publish telemetry %s: %w", key, err)
		}
	default:
	}
	return nil
}

// SendAttribute publishes at QoS 1 and waits for the broker.
func (c *RealClient) SendAttribute(key string, value any) error {
	client := c.current()
	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}
	payload, err := FormatKeyValue(key, value)
	if err != nil {
		return fmt.Errorf("format attribute %s: %w", key, err)
	}
	tok := client.Publish(TopicAttributes, 1, false, payload)
	if !tok.WaitTimeout(c.timeout) {
		return fmt.Errorf("publish attribute %s: timeout", key)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish attribute %s: %w", key, err)
	}
	return nil
}

// SubscribeRPC subscribes to server-side RPC requests.
func (c *RealClient) SubscribeRPC(handler RPCHandler) error {
	client := c.current()
	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}
	tok := client.Subscribe(TopicRPCRequest, 1, func(_ paho.Client, msg paho.Message) {
		req, err := ParseRPCRequest(msg.Topic(), msg.Payload())
		if err != nil {
			log.Printf("mqtt: ignoring rpc message: %v", err)
			return
		}
		handler(req)
	})
	if !tok.WaitTimeout(c.timeout) {
		return fmt.Errorf("subscribe %s: timeout", TopicRPCRequest)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicRPCRequest, err)
	}
	return nil
}

// Disconnect closes the session.
func (c *RealClient) Disconnect() error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()
	if client != nil {
		client.Disconnect(250)
	}
	return nil
}
