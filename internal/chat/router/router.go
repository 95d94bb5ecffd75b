package router

import (
	"context"

	"job_board_chat_service/internal/chat/app"
	"job_board_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册聊天相關路由
func RegisterRoutes(r *fiber.App, chatHTTP *app.ChatHTTPHandler, chatWebsocket *app.ChatWebsocketHandler) {
	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	chats := r.Group("/chats")
	chats.Post("/direct", chatHTTP.CreateDirect)
	chats.Post("/group", chatHTTP.CreateGroup)
	chats.Get("/", chatHTTP.ListChats)
	// unread要在/:id之前註冊,不然會被吃掉
	chats.Get("/unread", chatHTTP.UnreadCounts)
	chats.Get("/:id", chatHTTP.GetMessages)
	chats.Get("/:id/participants", chatHTTP.Participants)
	chats.Post("/:id/messages", chatHTTP.PostMessage)
	chats.Post("/:id/join", chatHTTP.JoinChat)
	chats.Post("/:id/leave", chatHTTP.LeaveChat)
	chats.Patch("/:id/read", chatHTTP.MarkRead)
	chats.Put("/messages/:id", chatHTTP.EditMessage)
	chats.Delete("/messages/:id", chatHTTP.DeleteMessage)
}
