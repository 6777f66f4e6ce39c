package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// DefaultMetricsNamespace is the CloudWatch namespace saga outcomes are published under.
const DefaultMetricsNamespace = "OrderFulfillment"

// MetricsRecorder publishes one count datapoint per saga outcome.
type MetricsRecorder struct {
	client    CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewMetricsRecorder returns a recorder writing to namespace (DefaultMetricsNamespace when empty).
func NewMetricsRecorder(client CloudWatchAPI, namespace string) *MetricsRecorder {
	if namespace == "" {
		namespace = DefaultMetricsNamespace
	}
	return &MetricsRecorder{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// Record emits a single "Orders" count with an Outcome dimension.
func (m *MetricsRecorder) Record(ctx context.Context, outcome string) error {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: sdkaws.String("Orders"),
				Timestamp:  sdkaws.Time(m.nowFunc().UTC()),
				Unit:       cwtypes.StandardUnitCount,
				Value:      sdkaws.Float64(1),
				Dimensions: []cwtypes.Dimension{
					{Name: sdkaws.String("Outcome"), Value: sdkaws.String(outcome)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
