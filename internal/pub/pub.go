package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"economy-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

const (
	TransactionEventsChannel = "transaction_events"
	TransactionsTopic        = "ledger.transactions"
)

type TransactionEventPublisher struct {
	rdb         *redis.Client
	kafkaWriter *kafka.Writer
}

func NewTransactionEventPublisher(rdb *redis.Client, brokers []string) *TransactionEventPublisher {
	var writer *kafka.Writer
	if len(brokers) > 0 {
		writer = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        TransactionsTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		}
	}
	return &TransactionEventPublisher{rdb: rdb, kafkaWriter: writer}
}

type TransactionEvent struct {
	EventType     string                 `json:"event_type"` // transaction.committed, role.expired, bet.settled, treasury.refilled
	GuildID       string                 `json:"guild_id"`
	TransactionID int64                  `json:"transaction_id,omitempty"`
	Kind          string                 `json:"kind,omitempty"`
	AssetSymbol   string                 `json:"asset_symbol,omitempty"`
	Amount        string                 `json:"amount,omitempty"` // exact decimal string
	FromAccount   string                 `json:"from_account,omitempty"`
	ToAccount     string                 `json:"to_account,omitempty"`
	UserID        *int64                 `json:"user_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// Publish fans the event out to every configured sink. Sinks are
// optional; a nil redis client or empty broker list just skips that leg.
func (p *TransactionEventPublisher) Publish(ctx context.Context, event *TransactionEvent) error {
	event.Timestamp = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if p.rdb != nil {
		if err := p.rdb.Publish(ctx, TransactionEventsChannel, payload).Err(); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
	}

	if p.kafkaWriter != nil {
		msg := kafka.Message{
			Key:   []byte(event.GuildID),
			Value: payload,
		}
		if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
			// Kafka is a secondary sink; do not fail the operation
			log.Printf("[TransactionEvent] kafka write failed: %v", err)
		}
	}

	return nil
}

// PublishCommitted announces a committed ledger transaction.
func (p *TransactionEventPublisher) PublishCommitted(ctx context.Context, guildID, assetSymbol string, txn *domain.Transaction, amount string) error {
	return p.Publish(ctx, &TransactionEvent{
		EventType:     "transaction.committed",
		GuildID:       guildID,
		TransactionID: txn.ID,
		Kind:          string(txn.Kind),
		AssetSymbol:   assetSymbol,
		Amount:        amount,
		UserID:        txn.CreatedBy,
	})
}

// PublishRoleExpired announces that a purchased role ran out.
func (p *TransactionEventPublisher) PublishRoleExpired(ctx context.Context, purchase *domain.RolePurchase) error {
	uid := purchase.UserID
	return p.Publish(ctx, &TransactionEvent{
		EventType: "role.expired",
		GuildID:   purchase.GuildID,
		UserID:    &uid,
		Metadata: map[string]interface{}{
			"role_id":    purchase.RoleID,
			"plan_id":    purchase.PlanID,
			"expires_at": purchase.ExpiresAt,
		},
	})
}

// PublishTreasuryRefilled announces an automatic treasury top-up.
func (p *TransactionEventPublisher) PublishTreasuryRefilled(ctx context.Context, guildID, assetSymbol string, amount string) error {
	return p.Publish(ctx, &TransactionEvent{
		EventType:   "treasury.refilled",
		GuildID:     guildID,
		AssetSymbol: assetSymbol,
		Amount:      amount,
	})
}

// PublishBetSettled announces the settlement of a betting event.
func (p *TransactionEventPublisher) PublishBetSettled(ctx context.Context, event *domain.BettingEvent) error {
	return p.Publish(ctx, &TransactionEvent{
		EventType: "bet.settled",
		GuildID:   event.GuildID,
		Metadata: map[string]interface{}{
			"event_id":       event.ID,
			"winning_target": event.WinningTarget,
		},
	})
}

// Close flushes the kafka writer.
func (p *TransactionEventPublisher) Close() error {
	if p.kafkaWriter != nil {
		return p.kafkaWriter.Close()
	}
	return nil
}
