package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FCMProvider struct {
	client *messaging.Client
}

func NewFCMProvider(credentialsFile string) (*FCMProvider, error) {
	ctx := context.Background()

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMProvider{client: client}, nil
}

func (f *FCMProvider) SendPrompt(ctx context.Context, request *PromptRequest) (*PromptResponse, error) {
	data := map[string]string{"check_id": request.CheckID}
	for k, v := range request.Data {
		data[k] = v
	}

	message := &messaging.Message{
		Token: request.Token,
		Notification: &messaging.Notification{
			Title: request.Title,
			Body:  request.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:    soundOrDefault(request.Sound),
				Priority: messaging.PriorityMax,
			},
		},
	}

	id, err := f.client.Send(ctx, message)
	if err != nil {
		return &PromptResponse{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	return &PromptResponse{
		MessageID: id,
		Success:   true,
	}, nil
}

func soundOrDefault(sound string) string {
	if sound != "" {
		return sound
	}
	return "default"
}
