package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremqtt "github.com/openwsn-berkeley/opentb/core/mqtt"
	"github.com/openwsn-berkeley/opentb/infra/logger"
)

// DefaultBroker is the testbed's production broker.
const DefaultBroker = "tcp://argus.paris.inria.fr:1883"

// Config defines the connection parameters of the Paho MQTT session.
type Config struct {
	Broker     string      `json:"broker"`
	ClientID   string      `json:"client_id"`
	Username   string      `json:"username"`
	Password   string      `json:"password"`
	UseTLS     bool        `json:"use_tls"`
	ClientCert string      `json:"client_cert"`
	ClientKey  string      `json:"client_key"`
	CABundle   string      `json:"ca_bundle"`
	QoS        byte        `json:"qos"`
	TLSConfig  *tls.Config `json:"-"`
}

// SetDefaults fills the unset connection fields.
func (c *Config) SetDefaults() {
	if c.Broker == "" {
		c.Broker = DefaultBroker
	}
	if c.ClientID == "" {
		c.ClientID = "OpenWSN"
	}
}

// pahoClient is the slice of the Paho API the session uses.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoSession implements the core Session interface using Eclipse Paho.
type PahoSession struct {
	cli pahoClient
	qos byte
	log logger.Logger
}

var _ coremqtt.Session = (*PahoSession)(nil)

// Dial connects to the MQTT broker and returns a live session. A connection
// failure is fatal to the caller: there is no retry here.
func Dial(cfg Config) (*PahoSession, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_session")
	opts.OnConnect = func(paho.Client) {
		log.Infof("connected to broker %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(paho.Client, *paho.ClientOptions) {
		log.Warnf("reconnecting to broker %s", cfg.Broker)
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, token.Error())
	}
	return &PahoSession{cli: c, qos: cfg.QoS, log: log}, nil
}

// NewClientOptions builds Paho client options from Config. The client id gets
// a random suffix so concurrent operator sessions never evict each other from
// the broker.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	clientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.NewString()[:8])
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(clientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the
// config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Subscribe registers handler for the topic filter and waits for the broker
// to acknowledge the subscription.
func (s *PahoSession) Subscribe(topic string, handler coremqtt.MessageHandler) error {
	token := s.cli.Subscribe(topic, s.qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}

// Publish sends one message and waits for the client to accept it. There are
// no retries: delivery is best effort.
func (s *PahoSession) Publish(topic string, payload []byte) error {
	token := s.cli.Publish(topic, s.qos, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

// Unsubscribe removes the given topic filters.
func (s *PahoSession) Unsubscribe(topics ...string) error {
	token := s.cli.Unsubscribe(topics...)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("unsubscribe: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker. It is safe to call on an already
// disconnected session.
func (s *PahoSession) Close() {
	if s.cli.IsConnected() {
		s.cli.Disconnect(250)
	}
}
