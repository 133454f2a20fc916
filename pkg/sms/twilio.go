package sms

import (
	"strings"

	"context"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSender sends alert texts through the Twilio Messages API. Contact
// numbers are stored as 10-digit local subscriber numbers, so the configured
// country code is prepended before dispatch.
type TwilioSender struct {
	client      *twilio.RestClient
	fromNumber  string
	countryCode string
}

func NewTwilioSender(accountSID, authToken, fromNumber, countryCode string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSender{
		client:      client,
		fromNumber:  fromNumber,
		countryCode: countryCode,
	}
}

func (t *TwilioSender) Send(ctx context.Context, request *AlertRequest) (*AlertResult, error) {
	params := &api.CreateMessageParams{}
	params.SetTo(t.toE164(request.To))
	params.SetFrom(t.fromOrDefault(request.From))
	params.SetBody(request.Body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return &AlertResult{
			Status: "failed",
			Error:  err.Error(),
		}, err
	}

	return &AlertResult{
		MessageID: *resp.Sid,
		Status:    string(*resp.Status),
	}, nil
}

func (t *TwilioSender) Supported() bool {
	return true
}

func (t *TwilioSender) toE164(number string) string {
	if strings.HasPrefix(number, "+") {
		return number
	}
	return t.countryCode + number
}

func (t *TwilioSender) fromOrDefault(from string) string {
	if from != "" {
		return from
	}
	return t.fromNumber
}
