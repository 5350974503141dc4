// Package alert publishes operational events (provider outages, retry
// exhaustion) to an SNS topic so on-call can react.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type EventType string

const (
	EventProviderDown     EventType = "provider_down"
	EventProviderUp       EventType = "provider_up"
	EventRetriesExhausted EventType = "retries_exhausted"
	EventRateLimited      EventType = "rate_limited"
)

type Event struct {
	Type     EventType      `json:"type"`
	Provider string         `json:"provider,omitempty"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
}

type Notifier interface {
	Send(ctx context.Context, event Event) error
}

type SNSNotifier struct {
	client   *sns.Client
	topicArn string
}

func NewSNSNotifier(ctx context.Context, region, topicArn string) (*SNSNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SNSNotifier{
		client:   sns.NewFromConfig(cfg),
		topicArn: topicArn,
	}, nil
}

func NewSNSNotifierWithConfig(cfg aws.Config, topicArn string) *SNSNotifier {
	return &SNSNotifier{
		client:   sns.NewFromConfig(cfg),
		topicArn: topicArn,
	}
}

func (n *SNSNotifier) Send(ctx context.Context, event Event) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(n.topicArn),
		Message:  aws.String(string(message)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"Type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.Type)),
			},
		},
	}

	if event.Provider != "" {
		input.MessageAttributes["Provider"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(event.Provider),
		}
	}

	if _, err := n.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	slog.Info("alert sent",
		"type", event.Type,
		"provider", event.Provider,
	)

	return nil
}

type InMemoryNotifier struct {
	mu       sync.Mutex
	events   []Event
	handlers []func(Event)
}

func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{
		events:   make([]Event, 0),
		handlers: make([]func(Event), 0),
	}
}

func (n *InMemoryNotifier) Send(ctx context.Context, event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, event)

	for _, handler := range n.handlers {
		handler(event)
	}

	return nil
}

func (n *InMemoryNotifier) OnEvent(handler func(Event)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, handler)
}

func (n *InMemoryNotifier) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	result := make([]Event, len(n.events))
	copy(result, n.events)
	return result
}

func (n *InMemoryNotifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = n.events[:0]
}
