package controllers

import (
	"github.com/Larry-Schultz/FFTBViewerV3/internal/services"

	chatController "github.com/Larry-Schultz/FFTBViewerV3/internal/controllers/chat"
	playlistController "github.com/Larry-Schultz/FFTBViewerV3/internal/controllers/playlist"
)

type Controllers struct {
	Playlist playlistController.PlaylistControllerInterface
	Chat     chatController.ChatControllerInterface
}

func New(services services.Service) Controllers {
	return Controllers{
		Playlist: playlistController.New(services),
		Chat:     chatController.New(services),
	}
}
