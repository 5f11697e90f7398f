package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTOptions configure the MQTT publisher.
type MQTTOptions struct {
	BrokerURL string
	Topic     string
	ClientID  string
	// ConnectTimeout bounds the initial broker handshake. Zero selects 10s.
	ConnectTimeout time.Duration
	Redactor       Redactor
	WithFrames     bool
}

// MQTT publishes observations to a broker topic, one JSON record per message.
type MQTT struct {
	client   mqtt.Client
	topic    string
	redactor Redactor
	frames   bool
}

// NewMQTT connects to the broker and returns a publishing sink.
func NewMQTT(opts MQTTOptions) (*MQTT, error) {
	if opts.BrokerURL == "" {
		return nil, errors.New("broker url must not be empty")
	}
	if opts.Topic == "" {
		return nil, errors.New("topic must not be empty")
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = "deskpilot"
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(clientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to broker %s: timeout", opts.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker %s: %w", opts.BrokerURL, err)
	}

	return &MQTT{
		client:   client,
		topic:    opts.Topic,
		redactor: opts.Redactor,
		frames:   opts.WithFrames,
	}, nil
}

// Emit publishes one observation. Delivery honors the context deadline.
func (s *MQTT) Emit(ctx context.Context, obs Observation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.frames {
		obs.Frame = nil
	}
	rec, err := newRecord(obs, s.redactor)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode observation: %w", err)
	}

	token := s.client.Publish(s.topic, 0, false, payload)
	done := make(chan struct{})
	go func() {
		token.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish observation: %w", err)
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight messages to drain.
func (s *MQTT) Close() error {
	s.client.Disconnect(250)
	return nil
}
