package taskqueue

import (
	"log"

	"github.com/streadway/amqp"
)

// AMQP is the production Queue backend, durable across worker restarts.
type AMQP struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

// NewAMQP dials url and declares the durable message-task queue.
func NewAMQP(url string) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	q, err := ch.QueueDeclare(messageTaskTopic, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQP{conn: conn, channel: ch, queue: q}, nil
}

func (a *AMQP) PublishMessageTask(task MessageTask) error {
	body, err := encodeTask(task)
	if err != nil {
		return err
	}
	return a.channel.Publish("", a.queue.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (a *AMQP) ConsumeMessageTasks(handler func(task MessageTask) error) error {
	deliveries, err := a.channel.Consume(a.queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	go func() {
		for d := range deliveries {
			task, err := decodeTask(d.Body)
			if err != nil {
				log.Printf("⚠️ taskqueue: malformed message task, dropping: %v", err)
				d.Nack(false, false)
				continue
			}
			if err := handler(task); err != nil {
				log.Printf("⚠️ taskqueue: message task %s failed, requeueing: %v", task.MessageID, err)
				d.Nack(false, true)
				continue
			}
			d.Ack(false)
		}
	}()
	return nil
}

func (a *AMQP) Close() error {
	if err := a.channel.Close(); err != nil {
		return err
	}
	return a.conn.Close()
}
