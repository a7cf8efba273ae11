package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	"github.com/patentdesk/extraction-engine/pkg/errors"
)

// Topics published by the engine.  Downstream consumers (intake pipeline,
// analytics) subscribe to these.
const (
	TopicCorrectionRecorded = "correction.recorded"
	TopicPatternDeployed    = "pattern.deployed"
	TopicPatternRolledBack  = "pattern.rolledback"
	TopicSynthesisCompleted = "synthesis.completed"
)

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// CorrectionRecordedPayload announces a new human correction.
type CorrectionRecordedPayload struct {
	CorrectionID string    `json:"correction_id"`
	DocumentID   string    `json:"document_id"`
	Field        string    `json:"field"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// PatternDeployedPayload announces a newly activated extraction rule.
type PatternDeployedPayload struct {
	PatternID  string    `json:"pattern_id"`
	Field      string    `json:"field"`
	Priority   int       `json:"priority"`
	DeployedAt time.Time `json:"deployed_at"`
}

// PatternRolledBackPayload announces a rollback.  ReactivatedID is empty
// when the field fell back to baselines only.
type PatternRolledBackPayload struct {
	Field         string    `json:"field"`
	DeactivatedID string    `json:"deactivated_id"`
	ReactivatedID string    `json:"reactivated_id,omitempty"`
	RolledBackAt  time.Time `json:"rolled_back_at"`
}

// SynthesisCompletedPayload summarizes a synthesis run.
type SynthesisCompletedPayload struct {
	Field          string    `json:"field"`
	CandidateCount int       `json:"candidate_count"`
	AutoDeployable int       `json:"auto_deployable"`
	CompletedAt    time.Time `json:"completed_at"`
}

// NewEventEnvelope wraps payload in a versioned envelope.
func NewEventEnvelope(eventType string, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(e.Payload, target)
}

// ToMessage renders the envelope as a producer message for topic.
func (e *EventEnvelope) ToMessage(topic string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		"event_type":     e.EventType,
		"source_service": e.Source,
		"schema_version": e.SchemaVersion,
	}
	if e.TraceID != "" {
		headers["trace_id"] = e.TraceID
	}
	return &ProducerMessage{
		Topic:     topic,
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}, nil
}

// TopicConfig describes a topic to ensure at startup.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates the engine's topics on startup.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to dial kafka")
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

// NewTopicManagerWithConn wires an existing connection.  Used by tests.
func NewTopicManagerWithConn(conn ConnInterface, logger logging.Logger) *TopicManager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TopicManager{conn: conn, logger: logger}
}

func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 || cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "partitions and replication factor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = []kafka.ConfigEntry{
			{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(cfg.RetentionMs, 10)},
		}
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		// Racing instances may have created it first.
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create topic")
	}
	m.logger.Info("topic created", logging.String("topic", cfg.Name))
	return nil
}

func (m *TopicManager) TopicExists(_ context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// EnsureDefaultTopics creates every topic the engine publishes to.
func (m *TopicManager) EnsureDefaultTopics(ctx context.Context) error {
	for _, topic := range DefaultTopics() {
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

// DefaultTopics returns the engine's topic set.  Events are small and
// low-volume; three partitions each is plenty.
func DefaultTopics() []TopicConfig {
	const week = 7 * 24 * 3600 * 1000
	return []TopicConfig{
		{Name: TopicCorrectionRecorded, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: week},
		{Name: TopicPatternDeployed, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: 4 * week},
		{Name: TopicPatternRolledBack, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: 4 * week},
		{Name: TopicSynthesisCompleted, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: week},
	}
}
