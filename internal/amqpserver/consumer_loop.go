package amqpserver

import (
	"context"
	"log/slog"

	"amqpmock/internal/amqpframe"
)

// runConsumer is the per-consumer delivery task spawned by Basic.Consume. It
// pulls messages from the shared queue one at a time and writes them out as
// Deliver+Header+Body, until ctx is cancelled by Basic.Cancel, Channel.Close
// or connection teardown.
func (c *Connection) runConsumer(ctx context.Context, channelID uint16, cons *consumer, ch *channel) {
	defer close(cons.done)
	defer c.consumers.Done()

	for {
		msg, ok := c.hooks.Next(ctx, cons.queue)
		if !ok {
			return
		}

		tag := c.nextDeliveryTag()
		c.recordDelivery(tag, deliveryRef{queue: cons.queue, messageID: msg.ID})

		body, err := encodeMessageValue(msg.Value)
		if err != nil {
			slog.Debug("dropping undeliverable message", "component", "amqp", "queue", cons.queue, "error", err)
			continue
		}

		deliver := amqpframe.BasicDeliver{
			ConsumerTag: cons.tag,
			DeliveryTag: tag,
			Redelivered: false,
			Exchange:    msg.Exchange,
			RoutingKey:  msg.RoutingKey,
		}
		header := amqpframe.ContentHeader{
			BodySize:   uint64(len(body)),
			Properties: amqpframe.Table(msg.Properties),
		}

		if err := c.sendPublication(channelID, deliver, header, body); err != nil {
			return
		}
	}
}
