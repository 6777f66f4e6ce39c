package queue

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/imrishuroy/go-order-saga/internal/aws"
)

// SQSChannel long-polls an SQS queue.
type SQSChannel struct {
	client      aws.SQSAPI
	queueURL    string
	maxMessages int32
	waitSeconds int32
}

// NewSQSChannel returns a channel receiving up to 10 messages per 20s long poll.
func NewSQSChannel(client aws.SQSAPI, queueURL string) *SQSChannel {
	return &SQSChannel{
		client:      client,
		queueURL:    queueURL,
		maxMessages: 10,
		waitSeconds: 20,
	}
}

func (c *SQSChannel) Receive(ctx context.Context) ([]Message, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              sdkaws.String(c.queueURL),
		MaxNumberOfMessages:   c.maxMessages,
		WaitTimeSeconds:       c.waitSeconds,
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, Message{
			ID:         sdkaws.ToString(m.ReceiptHandle),
			Body:       []byte(sdkaws.ToString(m.Body)),
			Attributes: stringAttributes(m.MessageAttributes),
		})
	}
	return msgs, nil
}

func (c *SQSChannel) Ack(ctx context.Context, id string) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      sdkaws.String(c.queueURL),
		ReceiptHandle: sdkaws.String(id),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func stringAttributes(attrs map[string]sqstypes.MessageAttributeValue) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if v.StringValue != nil {
			out[k] = *v.StringValue
		}
	}
	return out
}
