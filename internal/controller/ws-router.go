package controller

import (
	"github.com/sharetube/watchsync/internal/protocol"
	"github.com/sharetube/watchsync/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter[*client] {
	mux := wsrouter.New[*client]()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())

	wsrouter.Handle(mux, protocol.TypePlayerState, c.handlePlayerState)
	wsrouter.Handle(mux, protocol.TypeChatMessage, c.handleChatMessage)

	return mux
}
