package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type mockSQS struct {
	sent []*sqs.SendMessageInput
	err  error
}

func (m *mockSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, in)
	return &sqs.SendMessageOutput{}, nil
}

func (m *mockSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (m *mockSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	return &sqs.DeleteMessageOutput{}, nil
}

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestPublisher_Send(t *testing.T) {
	mock := &mockSQS{}
	p := NewPublisher(mock, "https://sqs.local/orders")

	err := p.Send(context.Background(), []byte(`{"order_id":"o1"}`), map[string]string{
		"order_id":       "o1",
		"correlation_id": "",
	})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if len(mock.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.sent))
	}
	in := mock.sent[0]
	if *in.QueueUrl != "https://sqs.local/orders" || *in.MessageBody != `{"order_id":"o1"}` {
		t.Fatalf("unexpected input: %+v", in)
	}
	if _, ok := in.MessageAttributes["correlation_id"]; ok {
		t.Fatalf("empty attribute should be skipped")
	}
	if v := in.MessageAttributes["order_id"]; *v.StringValue != "o1" {
		t.Fatalf("order_id attribute mismatch: %+v", v)
	}
}

func TestPublisher_SendError(t *testing.T) {
	p := NewPublisher(&mockSQS{err: errors.New("throttled")}, "q")
	if err := p.Send(context.Background(), []byte("{}"), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestMetricsRecorder_Record(t *testing.T) {
	mock := &mockCloudWatch{}
	m := NewMetricsRecorder(mock, "")

	if err := m.Record(context.Background(), "FULFILLED"); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if len(mock.inputs) != 1 {
		t.Fatalf("expected 1 call, got %d", len(mock.inputs))
	}
	in := mock.inputs[0]
	if *in.Namespace != DefaultMetricsNamespace {
		t.Fatalf("namespace = %s", *in.Namespace)
	}
	d := in.MetricData[0]
	if d.Unit != cwtypes.StandardUnitCount || *d.Value != 1 {
		t.Fatalf("unexpected datum: %+v", d)
	}
	if *d.Dimensions[0].Value != "FULFILLED" {
		t.Fatalf("outcome dimension = %s", *d.Dimensions[0].Value)
	}
}
