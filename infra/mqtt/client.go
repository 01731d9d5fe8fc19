// Package mqtt publishes finished plans to crew devices over MQTT and tracks
// the receipts they send back.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/washcrew/core/model"
	"github.com/kilianp07/washcrew/infra/logger"
)

// ErrAckTimeout is returned when a crew device does not confirm a plan in time.
var ErrAckTimeout = errors.New("plan acknowledgment timeout")

// DefaultTopicPrefix roots every topic.
const DefaultTopicPrefix = "washcrew"

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker       string      `json:"broker" yaml:"broker" koanf:"broker"`
	ClientID     string      `json:"client_id" yaml:"client_id" koanf:"client_id"`
	Username     string      `json:"username" yaml:"username" koanf:"username"`
	Password     string      `json:"password" yaml:"password" koanf:"password"`
	TopicPrefix  string      `json:"topic_prefix" yaml:"topic_prefix" koanf:"topic_prefix"`
	UseTLS       bool        `json:"use_tls" yaml:"use_tls" koanf:"use_tls"`
	ClientCert   string      `json:"client_cert" yaml:"client_cert" koanf:"client_cert"`
	ClientKey    string      `json:"client_key" yaml:"client_key" koanf:"client_key"`
	CABundle     string      `json:"ca_bundle" yaml:"ca_bundle" koanf:"ca_bundle"`
	QoS          byte        `json:"qos" yaml:"qos" koanf:"qos"`
	Retain       bool        `json:"retain" yaml:"retain" koanf:"retain"`
	LWTTopic     string      `json:"lwt_topic" yaml:"lwt_topic" koanf:"lwt_topic"`
	LWTPayload   string      `json:"lwt_payload" yaml:"lwt_payload" koanf:"lwt_payload"`
	MaxRetries   int         `json:"max_retries" yaml:"max_retries" koanf:"max_retries"`
	BackoffMS    int         `json:"backoff_ms" yaml:"backoff_ms" koanf:"backoff_ms"`
	// AckTimeoutMS bounds how long PublishPlan waits for crew receipts.
	// Zero publishes without waiting.
	AckTimeoutMS int         `json:"ack_timeout_ms" yaml:"ack_timeout_ms" koanf:"ack_timeout_ms"`
	TLSConfig    *tls.Config `json:"-" yaml:"-" koanf:"-"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if c.ClientID == "" {
		c.ClientID = "washcrew-" + uuid.NewString()[:8]
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the settings of an enabled publisher.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if c.MaxRetries < 0 || c.BackoffMS < 0 || c.AckTimeoutMS < 0 {
		return fmt.Errorf("mqtt retry and ack settings must not be negative")
	}
	if c.UseTLS && c.TLSConfig == nil && (c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "") {
		return fmt.Errorf("mqtt tls requires client_cert, client_key and ca_bundle")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// CrewPlan is the message sent to one crew.
type CrewPlan struct {
	MessageID   string                 `json:"message_id"`
	RunID       string                 `json:"run_id"`
	CrewID      string                 `json:"crew_id"`
	Assignments []model.CrewAssignment `json:"assignments"`
	Schedule    []model.ScheduleEvent  `json:"schedule"`
	Timestamp   int64                  `json:"timestamp"`
}

// PlanSummary is the message sent to supervisors once per run.
type PlanSummary struct {
	MessageID string                    `json:"message_id"`
	RunID     string                    `json:"run_id"`
	Metrics   model.OptimizationMetrics `json:"metrics"`
	Timestamp int64                     `json:"timestamp"`
}

// Publisher pushes plans to crews using Eclipse Paho.
type Publisher struct {
	cli     pahoClient
	prefix  string
	qos     byte
	retain  bool
	retries int
	backoff time.Duration
	ackWait time.Duration
	log     logger.Logger
	now     func() time.Time

	mu       sync.Mutex
	ackChans map[string]chan struct{}
}

// NewPublisher connects to the broker and subscribes to crew receipts.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	p := &Publisher{
		prefix:   strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:      cfg.QoS,
		retain:   cfg.Retain,
		retries:  cfg.MaxRetries,
		backoff:  time.Duration(cfg.BackoffMS) * time.Millisecond,
		ackWait:  time.Duration(cfg.AckTimeoutMS) * time.Millisecond,
		log:      log,
		now:      time.Now,
		ackChans: make(map[string]chan struct{}),
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(p.AckTopic(), p.qos, p.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = c
	return p, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
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
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.QoS, false)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
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

// CrewTopic is where the plan of crewID is published.
func (p *Publisher) CrewTopic(crewID string) string {
	return fmt.Sprintf("%s/crew/%s/plan", p.prefix, crewID)
}

// SummaryTopic is where run metrics are published.
func (p *Publisher) SummaryTopic() string { return p.prefix + "/plan/metrics" }

// AckTopic matches the receipts of every crew.
func (p *Publisher) AckTopic() string { return p.prefix + "/crew/+/ack" }

func (p *Publisher) onAck(_ paho.Client, msg paho.Message) {
	var m struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		p.log.Errorf("failed to decode ack: %v", err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.ackChans[m.MessageID]; ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		p.log.Debugf("received ack %s", m.MessageID)
		return
	}
	p.log.Debugf("ignoring ack for unknown message %s", m.MessageID)
}

// PublishPlan sends every crew its assignments and schedule, then the run
// summary. Crews without work receive an empty plan so stale ones are
// replaced. Receipts are awaited up to the configured ack timeout; crews that
// stay silent are logged and never fail the publish.
func (p *Publisher) PublishPlan(ctx context.Context, res model.PlanResult) error {
	sent, err := p.Publish(ctx, res)
	if missing := p.awaitAcks(ctx, sent); len(missing) > 0 {
		p.log.Warnf("run %s: no ack within %s from crews %s", res.RunID, p.ackWait, strings.Join(missing, ", "))
	}
	return err
}

// Publish sends the plan like PublishPlan without waiting and returns the
// message id of each crew plan. Every id stays pending until WaitForAck is
// called for it.
func (p *Publisher) Publish(ctx context.Context, res model.PlanResult) (map[string]string, error) {
	byCrew := make(map[string][]model.CrewAssignment)
	for _, a := range res.Assignments {
		byCrew[a.CrewID] = append(byCrew[a.CrewID], a)
	}
	crews := make(map[string]struct{}, len(res.CrewPerformance)+len(byCrew))
	for id := range res.CrewPerformance {
		crews[id] = struct{}{}
	}
	for id := range byCrew {
		crews[id] = struct{}{}
	}
	ids := make([]string, 0, len(crews))
	for id := range crews {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sent := make(map[string]string, len(ids))
	var errs []error
	for _, id := range ids {
		msg := CrewPlan{
			MessageID:   uuid.NewString(),
			RunID:       res.RunID,
			CrewID:      id,
			Assignments: byCrew[id],
			Schedule:    res.CrewSchedules[id],
			Timestamp:   p.now().UnixMilli(),
		}
		p.mu.Lock()
		p.ackChans[msg.MessageID] = make(chan struct{}, 1)
		p.mu.Unlock()
		if err := p.send(ctx, p.CrewTopic(id), msg); err != nil {
			p.release(msg.MessageID)
			errs = append(errs, fmt.Errorf("crew %s: %w", id, err))
			continue
		}
		sent[id] = msg.MessageID
	}
	summary := PlanSummary{MessageID: uuid.NewString(), RunID: res.RunID, Metrics: res.Metrics, Timestamp: p.now().UnixMilli()}
	if err := p.send(ctx, p.SummaryTopic(), summary); err != nil {
		errs = append(errs, fmt.Errorf("summary: %w", err))
	}
	return sent, errors.Join(errs...)
}

func (p *Publisher) send(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.log.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.log.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt == p.retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	return publishErr
}

// awaitAcks waits for the receipts of sent until the ack timeout and returns
// the crews that did not confirm, sorted. Every id is released on return.
func (p *Publisher) awaitAcks(ctx context.Context, sent map[string]string) []string {
	crews := make([]string, 0, len(sent))
	for id, msgID := range sent {
		crews = append(crews, id)
		defer p.release(msgID)
	}
	if p.ackWait <= 0 || len(crews) == 0 {
		return nil
	}
	sort.Strings(crews)

	deadline := time.NewTimer(p.ackWait)
	defer deadline.Stop()
	expired := false
	var missing []string
	for _, id := range crews {
		p.mu.Lock()
		ch := p.ackChans[sent[id]]
		p.mu.Unlock()
		if !expired {
			select {
			case <-ch:
				continue
			case <-deadline.C:
				expired = true
			case <-ctx.Done():
				expired = true
			}
		}
		select {
		case <-ch:
		default:
			missing = append(missing, id)
		}
	}
	return missing
}

func (p *Publisher) release(messageID string) {
	p.mu.Lock()
	delete(p.ackChans, messageID)
	p.mu.Unlock()
}

// WaitForAck blocks until the crew device confirms messageID or timeout.
func (p *Publisher) WaitForAck(messageID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	ch := p.ackChans[messageID]
	p.mu.Unlock()
	if ch == nil {
		return false, fmt.Errorf("unknown message %s", messageID)
	}
	defer p.release(messageID)
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true, nil
	case <-timer.C:
		return false, ErrAckTimeout
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *Publisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
