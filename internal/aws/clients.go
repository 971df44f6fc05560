package aws

import (
	"context"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// DefaultMaxAttempts bounds SDK retries for DynamoDB and SQS calls.
const DefaultMaxAttempts = 3

// AWSClients holds the clients behind the idempotency table, the webhook queue and
// business metrics.
type AWSClients struct {
	Region     string
	DynamoDB   DynamoDBAPI
	SQS        SQSAPI
	CloudWatch CloudWatchAPI
}

// NewAWSClients builds the clients from the shared config. DynamoDB and SQS calls sit on the
// checkout request path and give up after maxAttempts tries.
func NewAWSClients(ctx context.Context, maxAttempts int) (*AWSClients, error) {
	cfg, err := LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	retryer := func() sdkaws.Retryer {
		return retry.AddWithMaxAttempts(retry.NewStandard(), maxAttempts)
	}

	return &AWSClients{
		Region: cfg.Region,
		DynamoDB: dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			o.Retryer = retryer()
		}),
		SQS: sqs.NewFromConfig(cfg, func(o *sqs.Options) {
			o.Retryer = retryer()
		}),
		CloudWatch: cloudwatch.NewFromConfig(cfg),
	}, nil
}
