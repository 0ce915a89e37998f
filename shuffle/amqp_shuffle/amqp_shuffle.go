// Package amqp_shuffle ships intermediate pairs through RabbitMQ, one
// queue per partition. The producer routes pairs with the same key
// partitioner the local shuffle uses and closes every queue with an
// end-of-run marker; a consumer drains one queue to the marker, sorts
// the collected pairs by key and returns a key-contiguous run sequence
// ready for the reduce engine.
package amqp_shuffle

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/ridelab/ridefold/reduce"
	"github.com/ridelab/ridefold/shuffle"
)

// Message type marking the end of a run on a partition queue.
const endOfRunType = "ridefold.end-of-run"

// Config describes the broker and queue topology.
type Config struct {
	URL        string
	QueueName  string // logical job queue name; partition index is appended
	Partitions int
}

func (c Config) queue(part int) string {
	return fmt.Sprintf("%s-part-%d", c.QueueName, part)
}

func (c Config) validate() error {
	if c.URL == "" {
		return fmt.Errorf("amqp url is required")
	}
	if c.QueueName == "" {
		return fmt.Errorf("amqp queue name is required")
	}
	if c.Partitions < 1 {
		return fmt.Errorf("amqp shuffle needs at least one partition")
	}
	return nil
}

// Producer publishes pairs to per-partition queues.
type Producer struct {
	cfg  Config
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewProducer connects to the broker and declares all partition
// queues so consumers can bind before or after the producer starts.
func NewProducer(cfg Config) (*Producer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	conn, ch, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{cfg: cfg, conn: conn, ch: ch}, nil
}

// Publish routes one pair to its partition queue.
func (p *Producer) Publish(ctx context.Context, pair reduce.Pair) error {
	part := shuffle.PartitionForKey(pair.Key, p.cfg.Partitions)
	return p.ch.PublishWithContext(ctx, "", p.cfg.queue(part), false, false, amqp.Publishing{
		ContentType: "text/plain",
		Body:        []byte(shuffle.EncodePair(pair)),
	})
}

// EndRun publishes the end-of-run marker to every partition queue.
// Consumers stop draining when they see it.
func (p *Producer) EndRun(ctx context.Context) error {
	for part := 0; part < p.cfg.Partitions; part++ {
		err := p.ch.PublishWithContext(ctx, "", p.cfg.queue(part), false, false, amqp.Publishing{
			Type: endOfRunType,
		})
		if err != nil {
			return fmt.Errorf("end-of-run marker for partition %d: %w", part, err)
		}
	}
	return nil
}

func (p *Producer) Close() error {
	if err := p.ch.Close(); err != nil {
		log.WithError(err).Warn("amqp channel close")
	}
	return p.conn.Close()
}

// Consumer drains one partition queue.
type Consumer struct {
	cfg  Config
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewConsumer connects to the broker and declares the partition
// queues.
func NewConsumer(cfg Config) (*Consumer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	conn, ch, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{cfg: cfg, conn: conn, ch: ch}, nil
}

// DrainPartition consumes one partition queue until the end-of-run
// marker, then returns the collected pairs sorted into key-contiguous
// runs. Undecodable bodies are skipped, mirroring the skip-on-malformed
// policy for input lines.
func (c *Consumer) DrainPartition(ctx context.Context, part int) ([]reduce.Pair, error) {
	if part < 0 || part >= c.cfg.Partitions {
		return nil, fmt.Errorf("partition %d out of range [0,%d)", part, c.cfg.Partitions)
	}
	queue := c.cfg.queue(part)
	deliveries, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}

	var pairs []reduce.Pair
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil, fmt.Errorf("delivery channel for %s closed before end-of-run", queue)
			}
			if d.Type == endOfRunType {
				if err := d.Ack(false); err != nil {
					return nil, err
				}
				shuffle.Sort(pairs)
				return pairs, nil
			}
			pair, derr := shuffle.DecodePair(string(d.Body))
			if derr != nil {
				log.WithError(derr).WithField("queue", queue).Debug("skipping undecodable pair")
			} else {
				pairs = append(pairs, pair)
			}
			if err := d.Ack(false); err != nil {
				return nil, err
			}
		}
	}
}

func (c *Consumer) Close() error {
	if err := c.ch.Close(); err != nil {
		log.WithError(err).Warn("amqp channel close")
	}
	return c.conn.Close()
}

func dial(cfg Config) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	for part := 0; part < cfg.Partitions; part++ {
		if _, err := ch.QueueDeclare(cfg.queue(part), false, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, nil, fmt.Errorf("declare queue %s: %w", cfg.queue(part), err)
		}
	}
	return conn, ch, nil
}
