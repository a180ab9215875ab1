// Package missionqueue replays planner missions from a durable Redis-backed
// queue into the tracker. Unlike the pub/sub path channel, queued missions
// survive tracker restarts and are acknowledged once dispatched.
package missionqueue

import (
	"fmt"
	"time"

	"github.com/adjust/rmq/v3"
	"github.com/edaniels/golog"
	"github.com/go-redis/redis/v7"

	"github.com/ugvlab/pathtracker/msgs"
)

const (
	connectionTag = "pathtracker"
	consumerTag   = "pathtracker-mission-consumer"
	prefetchLimit = 10
	pollDuration  = time.Second
)

// Service owns the queue connection and its consumer.
type Service struct {
	queue  rmq.Queue
	errors chan error
	log    golog.Logger
}

// Start opens the queue on its own Redis database and begins consuming.
// Each delivery carries a path payload which is decoded and handed to
// dispatch; malformed deliveries are rejected.
func Start(addr string, password string, db int, queueName string, dispatch func(msgs.Path), log golog.Logger) (*Service, error) {
	errChan := make(chan error, 10)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	connection, err := rmq.OpenConnectionWithRedisClient(connectionTag, client, errChan)
	if err != nil {
		return nil, fmt.Errorf("opening mission queue connection: %w", err)
	}

	queue, err := connection.OpenQueue(queueName)
	if err != nil {
		return nil, fmt.Errorf("opening mission queue %q: %w", queueName, err)
	}

	if err := queue.StartConsuming(prefetchLimit, pollDuration); err != nil {
		return nil, fmt.Errorf("consuming mission queue %q: %w", queueName, err)
	}

	if _, err := queue.AddConsumer(consumerTag, &missionConsumer{dispatch: dispatch, log: log}); err != nil {
		return nil, fmt.Errorf("adding mission consumer: %w", err)
	}

	service := &Service{
		queue:  queue,
		errors: errChan,
		log:    log,
	}
	go service.drainErrors()

	return service, nil
}

// drainErrors surfaces background failures such as lost heartbeats which
// would otherwise block the queue library.
func (s *Service) drainErrors() {
	for err := range s.errors {
		s.log.Errorw("mission queue background error", "error", err)
	}
}

// Stop stops consuming and waits for in-flight deliveries to finish.
func (s *Service) Stop() {
	<-s.queue.StopConsuming()
}

type missionConsumer struct {
	dispatch func(msgs.Path)
	log      golog.Logger
}

func (c *missionConsumer) Consume(delivery rmq.Delivery) {
	path, err := msgs.DecodePath([]byte(delivery.Payload()))
	if err != nil {
		c.log.Warnf("rejecting malformed mission payload: %v", err)
		if err := delivery.Reject(); err != nil {
			c.log.Errorw("rejecting mission delivery", "error", err)
		}
		return
	}

	c.dispatch(path)

	if err := delivery.Ack(); err != nil {
		c.log.Errorw("acking mission delivery", "error", err)
	}
}
