package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/motor-switch/internal/logic"
)

const (
	clientID       = "motor-switch"
	bufferCapacity = 100
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker and, optionally, feeds
// command-topic messages into the command loop.
type RealPublisher struct {
	client   paho.Client
	commands chan<- logic.Request

	mu            sync.Mutex
	buffer        *ringBuffer
	everConnected bool
}

// NewRealPublisher creates a publisher for the given broker. If the broker
// is unreachable the client keeps retrying in the background and messages
// are buffered until it connects. commands may be nil to disable the
// command subscription.
func NewRealPublisher(broker string, commands chan<- logic.Request) (*RealPublisher, error) {
	p := &RealPublisher{
		commands: commands,
		buffer:   newRingBuffer(bufferCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect runs on every (re)connection in its own goroutine.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	pending := p.buffer.drainAll()
	reconnect := p.everConnected
	p.everConnected = true
	p.mu.Unlock()

	if p.commands != nil {
		token := c.Subscribe(TopicCommand, 1, p.handleCommand)
		if !token.WaitTimeout(publishTimeout) {
			log.Printf("mqtt: subscribe %s timeout", TopicCommand)
		} else if err := token.Error(); err != nil {
			log.Printf("mqtt: subscribe %s: %v", TopicCommand, err)
		}
	}

	for _, m := range pending {
		if err := p.send(m.topic, m.qos, m.retained, m.payload); err != nil {
			log.Printf("mqtt: replay buffered message: %v", err)
		}
	}
	if len(pending) > 0 {
		log.Printf("mqtt: replayed %d buffered messages", len(pending))
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err := p.send(TopicSystem, 1, false, payload); err != nil {
			log.Printf("mqtt: publish reconnected event: %v", err)
		}
	}
}

func (p *RealPublisher) handleCommand(_ paho.Client, msg paho.Message) {
	if !forwardCommand(p.commands, CommandRequest(msg.Payload())) {
		log.Printf("mqtt: command queue full, dropping %q", msg.Payload())
	}
}

// send publishes immediately when connected, otherwise buffers for replay.
func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buffer.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Publish sends a motor event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1: every accepted command should reach subscribers
	return p.send(Topic, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	return p.send(TopicSystem, 1, event.Retained, payload)
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
