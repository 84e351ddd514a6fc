package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/railops/induction/infra/logger"
)

// Config defines the connection parameters for the meter telemetry feed.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Topic    string `json:"topic"`
	QoS      byte   `json:"qos"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "induction-telemetry"
	}
	if c.Topic == "" {
		c.Topic = "fleet/+/meter/distance"
	}
}

// Validate checks mandatory fields when the feed is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("telemetry broker is required")
	}
	return nil
}

// reading is the wire payload published by onboard meter units.
type reading struct {
	AssetNum  string    `json:"asset_num"`
	ValueKm   float64   `json:"value_km"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadingSink receives parsed distance readings.
type ReadingSink interface {
	RecordMeterReading(ctx context.Context, assetNum string, valueKm float64, at time.Time) error
}

// Ingestor subscribes to the fleet meter topic and appends each distance
// sample to the store so scheduling always sees current mileage.
type Ingestor struct {
	cfg  Config
	cli  paho.Client
	sink ReadingSink
	log  logger.Logger
}

// NewIngestor connects to the broker. The returned Ingestor is idle until
// Start subscribes.
func NewIngestor(cfg Config, sink ReadingSink, log logger.Logger) (*Ingestor, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true)
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("telemetry connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to telemetry broker")
	}
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry connect: %w", token.Error())
	}
	return &Ingestor{cfg: cfg, cli: cli, sink: sink, log: log}, nil
}

// Start subscribes and blocks until the context is cancelled.
func (i *Ingestor) Start(ctx context.Context) error {
	handler := func(_ paho.Client, msg paho.Message) {
		i.handle(ctx, msg.Topic(), msg.Payload())
	}
	if token := i.cli.Subscribe(i.cfg.Topic, i.cfg.QoS, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("telemetry subscribe: %w", token.Error())
	}
	i.log.Infof("telemetry feed subscribed on %s", i.cfg.Topic)
	<-ctx.Done()
	i.cli.Disconnect(250)
	return nil
}

// handle parses one sample. Malformed payloads are logged and dropped, a
// broken unit must not take the feed down.
func (i *Ingestor) handle(ctx context.Context, topic string, payload []byte) {
	var r reading
	if err := json.Unmarshal(payload, &r); err != nil {
		i.log.Warnf("telemetry payload on %s: %v", topic, err)
		return
	}
	if r.AssetNum == "" || r.ValueKm < 0 {
		i.log.Warnf("telemetry payload on %s: missing asset or negative reading", topic)
		return
	}
	at := r.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := i.sink.RecordMeterReading(ctx, r.AssetNum, r.ValueKm, at); err != nil {
		i.log.Errorf("record telemetry for %s: %v", r.AssetNum, err)
	}
}
