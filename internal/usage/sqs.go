package usage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSTracker publishes usage records to the analytics pipeline's queue
// instead of writing them directly.
type SQSTracker struct {
	client   *sqs.Client
	queueURL string
}

func NewSQSTracker(ctx context.Context, region, queueURL string) (*SQSTracker, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SQSTracker{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}, nil
}

func NewSQSTrackerWithConfig(cfg aws.Config, queueURL string) *SQSTracker {
	return &SQSTracker{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}
}

func (t *SQSTracker) Record(ctx context.Context, record Record) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal usage record: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(t.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"Operation": {
				DataType:    aws.String("String"),
				StringValue: aws.String(record.Operation),
			},
			"RequestID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(record.RequestID),
			},
		},
	}

	if _, err := t.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send usage record: %w", err)
	}

	return nil
}
