package events

import (
	"encoding/json"
	"fmt"

	"regatta/pkg/util/config"
	"regatta/pkg/util/context"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

// Routing headers set on every published event.
const (
	headerRunID    = "x-run-id"
	headerInstance = "x-instance"
	headerType     = "x-type"
)

// AMQPConfig is configuration for the AMQP event sink.
type AMQPConfig struct {
	User     string `mapstructure:"user" env:"REGATTA_AMQP_USER"`
	Password string `mapstructure:"password" env:"REGATTA_AMQP_PASSWORD"`
	URI      string `mapstructure:"uri" env:"REGATTA_AMQP_URI"`
	Exchange string `mapstructure:"exchange" env:"REGATTA_AMQP_EXCHANGE" envDefault:"regatta.ex.events"`
}

type amqpSink struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPSink returns a Sink publishing events to an AMQP exchange.
func NewAMQPSink(ctx context.Context, conf AMQPConfig) (Sink, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s", conf.User, conf.Password, conf.URI)
	ctx.Logger().Infof("connecting to amqp broker at %s", conf.URI)
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot connect to amqp broker at %s", conf.URI)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "cannot open amqp channel")
	}
	if err := ch.ExchangeDeclare(conf.Exchange, "headers", true, false, false, false, nil); err != nil {
		return nil, errors.Wrapf(err, "cannot declare exchange %s", conf.Exchange)
	}
	return &amqpSink{conn: conn, ch: ch, exchange: conf.Exchange}, nil
}

// NewAMQPSinkFromConfig builds the sink from the "events.amqp" config section.
// It returns nil without error when no broker URI is configured.
func NewAMQPSinkFromConfig(ctx context.Context) (Sink, error) {
	var c AMQPConfig
	if err := config.Unmarshal("events.amqp", &c); err != nil {
		return nil, errors.Wrap(err, "cannot read events config")
	}
	if c.URI == "" {
		return nil, nil
	}
	return NewAMQPSink(ctx, c)
}

func (s *amqpSink) Publish(ctx context.Context, evt Event) error {
	ctx.Logger().Tracef("publishing event %s to exchange %s", evt, s.exchange)
	body, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrapf(err, "cannot marshal event %s", evt)
	}

	return s.ch.Publish(
		s.exchange, // exchange
		"",         // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Headers: amqp.Table{
				headerRunID:    evt.RunID,
				headerInstance: evt.Instance,
				headerType:     string(evt.Type),
			},
		})
}

func (s *amqpSink) Close() error {
	if err := s.ch.Close(); err != nil {
		return err
	}
	return s.conn.Close()
}
