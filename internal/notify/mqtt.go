// Package notify publishes spoken gestures and session changes to an MQTT
// broker so home automation can react to them.
package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/soyle-app/soyle/internal/stream"
)

// ErrNotConnected is returned by Publish before the first successful connect.
var ErrNotConnected = errors.New("mqtt client not connected")

const (
	publishTimeout   = 5 * time.Second
	reconnectBackoff = 5 * time.Second
)

// Options configures a Publisher.
type Options struct {
	Broker   string // e.g. tcp://localhost:1883
	Topic    string // spoken events go here, sessions to Topic + "/session"
	ClientID string
	Username string
	Password string
	QoS      byte
}

// Client is the subset of mqtt.Client the publisher uses.
type Client interface {
	Connect() mqtt.Token
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// SpokenMessage is the payload published for each spoken phrase.
type SpokenMessage struct {
	Label   string    `json:"label"`
	Phrase  string    `json:"phrase"`
	Session string    `json:"session,omitempty"`
	Source  string    `json:"source"`
	At      time.Time `json:"at"`
}

// SessionMessage is the payload published when a session starts or ends.
type SessionMessage struct {
	Session string    `json:"session"`
	Role    string    `json:"role"`
	Peer    string    `json:"peer,omitempty"`
	State   string    `json:"state"` // "started" or "ended"
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher implements stream.Recorder on top of MQTT. Publishing never
// blocks the caller; failures are logged.
type Publisher struct {
	client Client
	topic  string
	qos    byte
	done   chan struct{}
}

var _ stream.Recorder = (*Publisher)(nil)

// NewPublisher creates a paho client for opts and starts connecting in the
// background. The client reconnects on its own once connected.
func NewPublisher(opts Options) *Publisher {
	copts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetMaxReconnectInterval(10 * time.Second)

	if opts.Username != "" {
		copts.SetUsername(opts.Username)
		copts.SetPassword(opts.Password)
	}

	logger := log.WithField("component", "mqtt")
	copts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warnf("Connection lost: %v", err)
	})
	copts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Infof("Connected to %s", opts.Broker)
	})

	p := NewPublisherWithClient(mqtt.NewClient(copts), opts.Topic, opts.QoS)
	go p.connect()
	return p
}

// NewPublisherWithClient wraps an existing client. The caller is responsible
// for connecting it.
func NewPublisherWithClient(c Client, topic string, qos byte) *Publisher {
	return &Publisher{
		client: c,
		topic:  topic,
		qos:    qos,
		done:   make(chan struct{}),
	}
}

// connect retries the initial connection until it succeeds or Close is called.
func (p *Publisher) connect() {
	logger := log.WithField("component", "mqtt")
	for {
		tok := p.client.Connect()
		if tok.Wait() && tok.Error() == nil {
			return
		}
		logger.Warnf("Failed to connect to broker: %v. Retrying in %s", tok.Error(), reconnectBackoff)

		select {
		case <-p.done:
			return
		case <-time.After(reconnectBackoff):
		}
	}
}

// Publish marshals v and publishes it to topic.
func (p *Publisher) Publish(topic string, v any) error {
	if !p.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", topic, err)
	}

	tok := p.client.Publish(topic, p.qos, false, payload)
	go func() {
		if !tok.WaitTimeout(publishTimeout) {
			log.WithField("component", "mqtt").Warnf("Publish to %s timed out", topic)
			return
		}
		if err := tok.Error(); err != nil {
			log.WithField("component", "mqtt").Warnf("Publish to %s failed: %v", topic, err)
		}
	}()
	return nil
}

// SessionStarted implements stream.Recorder.
func (p *Publisher) SessionStarted(info stream.SessionInfo) {
	p.publish(p.sessionTopic(), SessionMessage{
		Session: info.ID,
		Role:    info.Role,
		Peer:    info.Peer,
		State:   "started",
		At:      info.StartedAt.UTC(),
	})
}

// SessionEnded implements stream.Recorder.
func (p *Publisher) SessionEnded(info stream.SessionInfo, reason string, at time.Time) {
	p.publish(p.sessionTopic(), SessionMessage{
		Session: info.ID,
		Role:    info.Role,
		Peer:    info.Peer,
		State:   "ended",
		Reason:  reason,
		At:      at.UTC(),
	})
}

// Spoken implements stream.Recorder.
func (p *Publisher) Spoken(ev stream.SpokenEvent) {
	p.publish(p.topic, SpokenMessage{
		Label:   string(ev.Label),
		Phrase:  ev.Phrase,
		Session: ev.Session,
		Source:  ev.Source,
		At:      ev.At.UTC(),
	})
}

func (p *Publisher) publish(topic string, v any) {
	if err := p.Publish(topic, v); err != nil {
		log.WithField("component", "mqtt").Debugf("Dropped %s message: %v", topic, err)
	}
}

func (p *Publisher) sessionTopic() string {
	return p.topic + "/session"
}

// Close stops connecting and disconnects from the broker.
func (p *Publisher) Close() error {
	select {
	case <-p.done:
		return nil
	default:
		close(p.done)
	}
	if p.client.IsConnectionOpen() {
		p.client.Disconnect(250)
	}
	return nil
}
