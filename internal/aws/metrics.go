package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// DefaultMetricsNamespace is the CloudWatch namespace for checkout business metrics.
const DefaultMetricsNamespace = "CheckoutOrderflow"

// Metrics publishes count metrics to CloudWatch.
type Metrics struct {
	cw        CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewMetrics returns a Metrics publisher. An empty namespace uses DefaultMetricsNamespace.
func NewMetrics(cw CloudWatchAPI, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultMetricsNamespace
	}
	return &Metrics{
		cw:        cw,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// Count records a single occurrence of the named metric.
func (m *Metrics) Count(ctx context.Context, name string, dimensions map[string]string) error {
	keys := make([]string, 0, len(dimensions))
	for k := range dimensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dims := make([]cwtypes.Dimension, 0, len(keys))
	for _, k := range keys {
		dims = append(dims, cwtypes.Dimension{
			Name:  sdkaws.String(k),
			Value: sdkaws.String(dimensions[k]),
		})
	}

	_, err := m.cw.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: sdkaws.String(name),
				Dimensions: dims,
				Timestamp:  sdkaws.Time(m.nowFunc()),
				Unit:       cwtypes.StandardUnitCount,
				Value:      sdkaws.Float64(1),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("put metric data %s: %w", name, err)
	}
	return nil
}
