package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/oggyb/discovery/internal/logger"
	"github.com/oggyb/discovery/internal/metrics"
)

// Publisher is the part of *amqp.Channel the sink needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// BreakerSettings tunes the publisher's circuit breaker.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

var defaultBreaker = BreakerSettings{MaxFailures: 5, OpenTimeout: 30 * time.Second}

// AMQPPublisher publishes JSON events to a fanout exchange.
type AMQPPublisher struct {
	pub      Publisher
	exchange string
	cb       *gobreaker.CircuitBreaker[struct{}]
}

func NewAMQPPublisher(pub Publisher, exchange string, bs *BreakerSettings) *AMQPPublisher {
	if bs == nil {
		bs = &defaultBreaker
	}
	name := "amqp-" + exchange
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &AMQPPublisher{pub: pub, exchange: exchange, cb: cb}
}

func (p *AMQPPublisher) Create(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}
	_, err = p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.pub.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.CreatedAt,
			Type:         string(ev.Type),
			Body:         body,
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("notify: broker unavailable: %w", err)
	}
	if err != nil {
		return fmt.Errorf("notify: publish %s: %w", ev.Type, err)
	}
	return nil
}

// State reports the breaker state.
func (p *AMQPPublisher) State() gobreaker.State {
	return p.cb.State()
}

// DialAMQP connects, declares the fanout exchange and returns the sink with
// a closer for the channel and connection.
func DialAMQP(url, exchange string) (*AMQPPublisher, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("notify: dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("notify: open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("notify: declare exchange %s: %w", exchange, err)
	}
	closer := func() error {
		return errors.Join(ch.Close(), conn.Close())
	}
	return NewAMQPPublisher(ch, exchange, nil), closer, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
