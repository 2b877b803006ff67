package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	ClientID string

	// BufferSize bounds messages held while disconnected.
	BufferSize int

	// OnConnectionChange, if set, is called on every connect and connection loss.
	OnConnectionChange func(connected bool)

	// Now stamps the will and RECONNECTED messages. Defaults to time.Now.
	Now func() time.Time
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while disconnected are buffered and replayed on (re)connect.
type RealPublisher struct {
	client paho.Client
	opts   Options

	mu            sync.Mutex
	buffer        *ringBuffer
	everConnected bool
	sub           *Subscriber
}

// NewRealPublisher creates a publisher for the given broker. The client
// keeps retrying in the background if the broker is not reachable yet.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt: broker is required")
	}
	if opts.ClientID == "" {
		opts.ClientID = "squat-coach"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	p := &RealPublisher{
		opts:   opts,
		buffer: newRingBuffer(opts.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: opts.Now(), Event: EventOffline})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	copts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(copts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Warnf("mqtt: broker %s not reachable yet, buffering until connected", opts.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.everConnected
	p.everConnected = true
	sub := p.sub
	pending, dropped := p.buffer.drain()
	p.mu.Unlock()

	log.Infof("mqtt: connected to %s", p.opts.Broker)
	if p.opts.OnConnectionChange != nil {
		p.opts.OnConnectionChange(true)
	}

	if sub != nil {
		if err := p.subscribe(sub); err != nil {
			log.Errorf("mqtt: resubscribe: %v", err)
		}
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.opts.Now(), Event: EventReconnected})
		if err := p.send(TopicSystem, 1, false, payload); err != nil {
			log.Warnf("mqtt: publish RECONNECTED: %v", err)
		}
	}

	if len(pending) > 0 {
		log.Infof("mqtt: replaying %d buffered messages (%d dropped)", len(pending), dropped)
	}
	for _, m := range pending {
		if err := p.send(m.topic, m.qos, m.retained, m.payload); err != nil {
			log.Warnf("mqtt: replay to %s: %v", m.topic, err)
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	log.Warnf("mqtt: connection lost: %v", err)
	if p.opts.OnConnectionChange != nil {
		p.opts.OnConnectionChange(false)
	}
}

// send publishes now if connected, otherwise buffers the message.
func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buffer.push(pendingMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Publish sends a rep event to the MQTT broker.
func (p *RealPublisher) Publish(rep RepEvent) error {
	payload, err := FormatPayload(rep)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(Topic, 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	return p.send(TopicSystem, 1, event.Retained, payload)
}

// Subscribe starts delivering keypoint frames from TopicLandmarks. The
// subscription is restored after every reconnect.
func (p *RealPublisher) Subscribe(opts SubscribeOptions) (*Subscriber, error) {
	s := newSubscriber(opts)
	s.unsubscribe = func() error {
		p.mu.Lock()
		if p.sub == s {
			p.sub = nil
		}
		p.mu.Unlock()

		if !p.client.IsConnectionOpen() {
			return nil
		}
		token := p.client.Unsubscribe(TopicLandmarks)
		if !token.WaitTimeout(time.Second) {
			return fmt.Errorf("unsubscribe %s: timeout", TopicLandmarks)
		}
		return token.Error()
	}

	p.mu.Lock()
	p.sub = s
	p.mu.Unlock()

	if p.client.IsConnectionOpen() {
		if err := p.subscribe(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *RealPublisher) subscribe(s *Subscriber) error {
	token := p.client.Subscribe(TopicLandmarks, 0, func(_ paho.Client, m paho.Message) {
		s.handle(m.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe %s: timeout", TopicLandmarks)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicLandmarks, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close closes any subscription and disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	sub := p.sub
	left := p.buffer.len()
	p.mu.Unlock()

	var err error
	if sub != nil {
		err = multierr.Append(err, sub.Close())
	}
	if left > 0 {
		log.Warnf("mqtt: discarding %d unsent messages", left)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return err
}
