package sms

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// AWSSNSSender delivers alert texts via SNS direct-to-phone publish.
// Emergency alerts are always sent as Transactional so carriers do not
// throttle them as promotional traffic.
type AWSSNSSender struct {
	client      *sns.Client
	region      string
	countryCode string
}

func NewAWSSNSSender(region, countryCode string) (*AWSSNSSender, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSNSSender{
		client:      sns.NewFromConfig(cfg),
		region:      region,
		countryCode: countryCode,
	}, nil
}

func (a *AWSSNSSender) Send(ctx context.Context, request *AlertRequest) (*AlertResult, error) {
	to := request.To
	if !strings.HasPrefix(to, "+") {
		to = a.countryCode + to
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(request.Body),
		MessageAttributes: map[string]snsTypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}

	resp, err := a.client.Publish(ctx, input)
	if err != nil {
		return &AlertResult{
			Status: "failed",
			Error:  err.Error(),
		}, err
	}

	return &AlertResult{
		MessageID: *resp.MessageId,
		Status:    "sent",
	}, nil
}

func (a *AWSSNSSender) Supported() bool {
	return true
}
