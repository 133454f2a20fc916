package telephony

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioDialer bridges the user's phone to the emergency hotline through the
// Twilio Calls API. The TwiML URL tells Twilio what to play/connect once the
// hotline answers.
type TwilioDialer struct {
	client     *twilio.RestClient
	fromNumber string
	twimlURL   string
}

func NewTwilioDialer(accountSID, authToken, fromNumber, twimlURL string) *TwilioDialer {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioDialer{
		client:     client,
		fromNumber: fromNumber,
		twimlURL:   twimlURL,
	}
}

func (t *TwilioDialer) Dial(ctx context.Context, number string) error {
	params := &api.CreateCallParams{}
	params.SetTo(number)
	params.SetFrom(t.fromNumber)
	params.SetUrl(t.twimlURL)
	params.SetMethod("POST")
	params.SetTimeout(30)

	_, err := t.client.Api.CreateCall(params)
	if err != nil {
		return fmt.Errorf("failed to create hotline call: %w", err)
	}

	return nil
}
