// Package pubsub publishes job postings to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/careerwatch/internal/crawler"
)

// Message is the JSON payload published for each posting.
type Message struct {
	crawler.JobPosting
	Text string `json:"text"`
}

// Publisher wraps a Pub/Sub topic.
type Publisher struct {
	topic *pubsub.Topic
}

// New creates a Publisher for the provided topic.
func New(topic *pubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// Notify marshals the posting to JSON and waits for the server to accept it.
func (p *Publisher) Notify(ctx context.Context, posting crawler.JobPosting, message string) error {
	if p.topic == nil {
		return crawler.NewError(crawler.KindNotifyFailure, "pubsub.notify", posting.ApplyLink,
			fmt.Errorf("pubsub topic is not configured"))
	}
	data, err := json.Marshal(Message{JobPosting: posting, Text: message})
	if err != nil {
		return crawler.NewError(crawler.KindNotifyFailure, "pubsub.notify", posting.ApplyLink,
			fmt.Errorf("marshal payload: %w", err))
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"company": posting.Company,
		},
	}
	if _, err := p.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return crawler.NewError(crawler.KindNotifyFailure, "pubsub.notify", posting.ApplyLink,
			fmt.Errorf("publish message: %w", err))
	}
	return nil
}

// Stop flushes pending messages.
func (p *Publisher) Stop() {
	if p.topic != nil {
		p.topic.Stop()
	}
}
