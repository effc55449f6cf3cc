// Package taskqueue implements the "message task" unit of work from
// spec.md §5: one task per in-flight message, consumed by pool of
// worker goroutines. Adapted from internal/queue/queue.go's
// Publish/Subscribe shape; the production backend additionally offers
// an AMQP transport via github.com/streadway/amqp so dispatch survives
// a worker process restart.
package taskqueue

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// MessageTask is the unit of work queued once per QUEUED message ready
// for pipeline processing.
type MessageTask struct {
	MessageID  string `json:"message_id"`
	CampaignID int    `json:"campaign_id"`
}

// Queue is the capability the orchestrator depends on to hand off
// per-message work to the worker pool, and the capability workers
// depend on to receive it.
type Queue interface {
	PublishMessageTask(task MessageTask) error
	ConsumeMessageTasks(handler func(task MessageTask) error) error
	Close() error
}

const messageTaskTopic = "message_tasks"

// InMemory is a single-process Queue for tests and single-process runs.
type InMemory struct {
	mu       sync.Mutex
	handlers []func(task MessageTask) error
}

// NewInMemory constructs an in-process Queue.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (q *InMemory) PublishMessageTask(task MessageTask) error {
	q.mu.Lock()
	handlers := append([]func(task MessageTask) error{}, q.handlers...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("taskqueue: no consumers registered for %s", messageTaskTopic)
	}
	for _, h := range handlers {
		go func(handler func(task MessageTask) error) {
			if err := handler(task); err != nil {
				log.Printf("⚠️ taskqueue: message task %s failed: %v", task.MessageID, err)
			}
		}(h)
	}
	return nil
}

func (q *InMemory) ConsumeMessageTasks(handler func(task MessageTask) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
	return nil
}

func (q *InMemory) Close() error { return nil }

func encodeTask(task MessageTask) ([]byte, error) {
	return json.Marshal(task)
}

func decodeTask(body []byte) (MessageTask, error) {
	var task MessageTask
	err := json.Unmarshal(body, &task)
	return task, err
}
