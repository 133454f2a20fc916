package push

import (
	"context"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

type APNSProvider struct {
	client *apns2.Client
	topic  string
}

func NewAPNSProvider(keyFile, keyID, teamID, topic string, production bool) (*APNSProvider, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth key: %w", err)
	}

	tokenProvider := &token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	}

	client := apns2.NewTokenClient(tokenProvider)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSProvider{
		client: client,
		topic:  topic,
	}, nil
}

func (a *APNSProvider) SendPrompt(ctx context.Context, request *PromptRequest) (*PromptResponse, error) {
	p := payload.NewPayload().
		AlertTitle(request.Title).
		AlertBody(request.Body).
		Sound(soundOrDefault(request.Sound)).
		Custom("check_id", request.CheckID)
	for k, v := range request.Data {
		p = p.Custom(k, v)
	}

	notification := &apns2.Notification{
		DeviceToken: request.Token,
		Topic:       a.topic,
		Priority:    apns2.PriorityHigh,
		Payload:     p,
	}

	response, err := a.client.PushWithContext(ctx, notification)
	if err != nil {
		return &PromptResponse{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	if response.Sent() {
		return &PromptResponse{
			MessageID: response.ApnsID,
			Success:   true,
		}, nil
	}

	return &PromptResponse{
		Success: false,
		Error:   response.Reason,
	}, fmt.Errorf("APNS error: %s", response.Reason)
}
