package app

import (
	"errors"

	"job_board_chat_service/internal/chat/domain"
	"job_board_chat_service/internal/chat/repository"
	"job_board_chat_service/pkg/logger"
	"job_board_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHTTPHandler REST介面,auth由middleware處理,這裡只檢查membership
type ChatHTTPHandler struct {
	convUC      *ConversationUseCase
	msgUC       *MessageUseCase
	unreadUC    *UnreadUseCase
	attachments repository.AttachmentStore
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(
	convUC *ConversationUseCase,
	msgUC *MessageUseCase,
	unreadUC *UnreadUseCase,
	attachments repository.AttachmentStore,
) *ChatHTTPHandler {
	return &ChatHTTPHandler{
		convUC:      convUC,
		msgUC:       msgUC,
		unreadUC:    unreadUC,
		attachments: attachments,
	}
}

type createDirectRequest struct {
	ParticipantID string `json:"participant_id"`
}

type createGroupRequest struct {
	Kind      string   `json:"kind"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

type editMessageRequest struct {
	Content string `json:"content"`
}

// CreateDirect POST /chats/direct
func (h *ChatHTTPHandler) CreateDirect(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req createDirectRequest
	if err := c.BodyParser(&req); err != nil || req.ParticipantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "participant_id is required"})
	}

	conv, err := h.convUC.ResolveDirect(c.Context(), userID, req.ParticipantID)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(conv)
}

// CreateGroup POST /chats/group
func (h *ChatHTTPHandler) CreateGroup(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Kind == "" {
		req.Kind = string(domain.KindGroup)
	}

	conv, err := h.convUC.CreateGroup(c.Context(), userID, domain.ConversationKind(req.Kind), req.Name, req.MemberIDs)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

// JoinChat POST /chats/:id/join
func (h *ChatHTTPHandler) JoinChat(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if err := h.convUC.Join(c.Context(), c.Params("id"), userID); err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{})
}

// LeaveChat POST /chats/:id/leave
func (h *ChatHTTPHandler) LeaveChat(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if err := h.convUC.Leave(c.Context(), c.Params("id"), userID); err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{})
}

// ListChats GET /chats?page&limit,最後活動新到舊
func (h *ChatHTTPHandler) ListChats(c *fiber.Ctx) error {
	userID := currentUserID(c)
	convs, err := h.convUC.ListConversations(c.Context(), userID, c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(convs)
}

// GetMessages GET /chats/:id?page&limit,舊到新(scroll-back穩定)
func (h *ChatHTTPHandler) GetMessages(c *fiber.Ctx) error {
	userID := currentUserID(c)
	msgs, err := h.msgUC.History(c.Context(), c.Params("id"), userID, c.QueryInt("page", 1), c.QueryInt("limit", 50))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(msgs)
}

// PostMessage POST /chats/:id/messages,multipart可帶file
func (h *ChatHTTPHandler) PostMessage(c *fiber.Ctx) error {
	userID := currentUserID(c)
	content := c.FormValue("content")

	// 附件上傳交給object storage,pipeline只收url/filename
	var attachment *domain.Attachment
	if fh, err := c.FormFile("file"); err == nil && fh != nil {
		f, err := fh.Open()
		if err != nil {
			return sendError(c, err)
		}
		defer f.Close()

		attachment, err = h.attachments.Upload(c.Context(), fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
		if err != nil {
			logger.Log.Error("attachment upload failed",
				zap.String("filename", fh.Filename), zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "attachment upload failed"})
		}
	}

	msg, err := h.msgUC.Send(c.Context(), c.Params("id"), userID, content, attachment)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// EditMessage PUT /chats/messages/:id
func (h *ChatHTTPHandler) EditMessage(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req editMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	msg, err := h.msgUC.Edit(c.Context(), c.Params("id"), userID, req.Content)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(msg)
}

// DeleteMessage DELETE /chats/messages/:id
func (h *ChatHTTPHandler) DeleteMessage(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if err := h.msgUC.Delete(c.Context(), c.Params("id"), userID); err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{})
}

// MarkRead PATCH /chats/:id/read
func (h *ChatHTTPHandler) MarkRead(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if err := h.unreadUC.MarkRead(c.Context(), c.Params("id"), userID); err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{})
}

// Participants GET /chats/:id/participants
func (h *ChatHTTPHandler) Participants(c *fiber.Ctx) error {
	userID := currentUserID(c)
	participants, err := h.convUC.Participants(c.Context(), c.Params("id"), userID)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(participants)
}

// UnreadCounts GET /chats/unread,列表頁顯示用,cache miss會重算
func (h *ChatHTTPHandler) UnreadCounts(c *fiber.Ctx) error {
	userID := currentUserID(c)
	convs, err := h.convUC.ListConversations(c.Context(), userID, 1, 100)
	if err != nil {
		return sendError(c, err)
	}
	ids := make([]string, 0, len(convs))
	for _, conv := range convs {
		ids = append(ids, conv.ID)
	}
	infos, err := h.unreadUC.Counts(c.Context(), userID, ids)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(infos)
}

func currentUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	return userID
}

// sendError domain錯誤對應HTTP status
func sendError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrConversationNotFound),
		errors.Is(err, domain.ErrMessageNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrNotParticipant),
		errors.Is(err, domain.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrSameUser),
		errors.Is(err, domain.ErrNotGroup):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
