package pipeline

import (
	"context"
	"io"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ridelab/ridefold/reduce"
	"github.com/ridelab/ridefold/shuffle/amqp_shuffle"
	"github.com/ridelab/ridefold/tasks"
)

// RunAMQP executes the pipeline with RabbitMQ as the shuffle: pairs
// are published to per-partition queues, then each partition is
// drained, sorted and folded by its own engine instance. Results reach
// the sink in partition order.
func RunAMQP(ctx context.Context, task tasks.Task, in io.Reader, sink Sink, cfg amqp_shuffle.Config) (Stats, error) {
	logger := runLogger(task)

	producer, err := amqp_shuffle.NewProducer(cfg)
	if err != nil {
		return Stats{}, err
	}
	stats, err := publishAll(ctx, logger, task, in, producer)
	closeErr := producer.Close()
	if err != nil {
		return stats, err
	}
	if closeErr != nil {
		return stats, closeErr
	}

	consumer, err := amqp_shuffle.NewConsumer(cfg)
	if err != nil {
		return stats, err
	}
	defer consumer.Close()

	resultsByPart := make([][]tasks.Result, cfg.Partitions)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Partitions; i++ {
		part := i
		g.Go(func() error {
			pairs, err := consumer.DrainPartition(gctx, part)
			if err != nil {
				return err
			}
			eng := reduce.New(task)
			return eng.Run(gctx, reduce.SlicePairs(pairs), func(res tasks.Result) error {
				resultsByPart[part] = append(resultsByPart[part], res)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	var results []tasks.Result
	for _, part := range resultsByPart {
		results = append(results, part...)
	}
	stats.Groups = int64(len(results))
	logger.WithFields(log.Fields{
		"lines":   stats.Lines,
		"skipped": stats.Skipped,
		"groups":  stats.Groups,
	}).Info("amqp pipeline done")

	return stats, sink.Write(ctx, task, results)
}

func publishAll(ctx context.Context, logger *log.Entry, task tasks.Task, in io.Reader, producer *amqp_shuffle.Producer) (Stats, error) {
	var stats Stats
	scanner := newLineScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		stats.Lines++
		p, ok := extractOne(logger, task, line)
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Pairs++
		if err := producer.Publish(ctx, p); err != nil {
			return stats, err
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, err
	}
	return stats, producer.EndRun(ctx)
}
