package chatController

import (
	"context"
	"errors"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/services"
)

type chatHandler interface {
	HandleMessage(ctx context.Context, msg services.ChatMessage) (*services.ChatResult, error)
	Messages() []services.ChatMessage
}

type ChatController struct {
	chat chatHandler
}

type ChatControllerInterface interface {
	IngestMessage(ctx context.Context, msg services.ChatMessage) (*services.ChatResult, error)
	GetMessages() []services.ChatMessage
}

func New(services services.Service) ChatControllerInterface {
	return &ChatController{chat: services.Chat}
}

// IngestMessage accepts one relayed chat line. Validation failures are
// returned as services.ErrInvalidChatMessage for the handler to map.
func (cc *ChatController) IngestMessage(
	ctx context.Context,
	msg services.ChatMessage,
) (*services.ChatResult, error) {
	log := logger.NewWithContext(ctx, "chatController").Function("IngestMessage")

	result, err := cc.chat.HandleMessage(ctx, msg)
	if err != nil {
		if errors.Is(err, services.ErrInvalidChatMessage) {
			log.Debug("rejected chat message", "username", msg.Username)
			return nil, err
		}
		return nil, log.Err("failed to handle chat message", err)
	}

	return result, nil
}

func (cc *ChatController) GetMessages() []services.ChatMessage {
	return cc.chat.Messages()
}
