// Package transport connects the tracker to the vehicle stack over Redis
// pub/sub: odometry and path updates are consumed from channels and velocity
// commands are published back.
package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/edaniels/golog"
	"github.com/go-redis/redis/v7"
	"go.uber.org/multierr"

	"github.com/ugvlab/pathtracker/msgs"
)

// Channels names the pub/sub channels the tracker consumes and produces.
type Channels struct {
	Odometry string
	Path     string
	Command  string
}

// Handlers receive decoded messages from the receive loop. Handlers run on
// the loop goroutine, so a slow handler delays subsequent messages.
type Handlers struct {
	OnOdometry func(msgs.Odometry)
	OnPath     func(msgs.Path)
}

// Redis is the pub/sub transport. Malformed payloads are dropped with a
// warning rather than stopping the loop.
type Redis struct {
	client   *redis.Client
	channels Channels
	log      golog.Logger

	pubsub      *redis.PubSub
	loopStarted bool
	loopWG      *sync.WaitGroup
}

// NewRedis connects and pings the broker so a bad address fails at startup
// rather than on the first message.
func NewRedis(addr string, password string, db int, channels Channels, log golog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := client.Ping().Result(); err != nil {
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}

	return &Redis{
		client:   client,
		channels: channels,
		log:      log,
	}, nil
}

// Start subscribes to the odometry and path channels and launches the
// receive loop.
func (r *Redis) Start(handlers Handlers) error {
	if r.loopStarted {
		return errors.New("transport receive loop already started")
	}

	r.pubsub = r.client.Subscribe(r.channels.Odometry, r.channels.Path)
	if _, err := r.pubsub.Receive(); err != nil {
		return fmt.Errorf("subscribing to %s and %s: %w", r.channels.Odometry, r.channels.Path, err)
	}

	r.loopWG = &sync.WaitGroup{}
	r.loopWG.Add(1)
	go func() {
		defer r.loopWG.Done()
		for message := range r.pubsub.Channel() {
			r.dispatch(message.Channel, []byte(message.Payload), handlers)
		}
	}()

	r.loopStarted = true
	return nil
}

func (r *Redis) dispatch(channel string, payload []byte, handlers Handlers) {
	switch channel {
	case r.channels.Odometry:
		odometry, err := msgs.DecodeOdometry(payload)
		if err != nil {
			r.log.Warnf("dropping odometry message: %v", err)
			return
		}
		handlers.OnOdometry(odometry)
	case r.channels.Path:
		path, err := msgs.DecodePath(payload)
		if err != nil {
			r.log.Warnf("dropping path message: %v", err)
			return
		}
		handlers.OnPath(path)
	}
}

// PublishCommand publishes a velocity command on the command channel.
func (r *Redis) PublishCommand(command msgs.Twist) error {
	payload, err := msgs.EncodeTwist(command)
	if err != nil {
		return err
	}
	if err := r.client.Publish(r.channels.Command, payload).Err(); err != nil {
		return fmt.Errorf("publishing command: %w", err)
	}
	return nil
}

// Close tears down the subscription, waits for the receive loop to drain
// and closes the client.
func (r *Redis) Close() error {
	var errs error
	if r.pubsub != nil {
		errs = multierr.Append(errs, r.pubsub.Close())
	}
	if r.loopWG != nil {
		r.loopWG.Wait()
	}
	return multierr.Append(errs, r.client.Close())
}
