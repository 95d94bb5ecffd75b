package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"job_board_chat_service/internal/chat/domain"
	"job_board_chat_service/internal/chat/repository"
	"job_board_chat_service/pkg/logger"
	"job_board_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// userEvents 連線期間整條user channel都要收的事件
var userEvents = []domain.EventType{
	domain.EventNewMessageNotify,
	domain.EventConversationNew,
	domain.EventMemberJoined,
	domain.EventMemberLeft,
}

// conversationEvents 進入聊天室後才收的事件
var conversationEvents = []domain.EventType{
	domain.EventMessageNew,
	domain.EventMessageEdited,
	domain.EventMessageDeleted,
}

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	convUC   *ConversationUseCase
	msgUC    *MessageUseCase
	unreadUC *UnreadUseCase
	bus      repository.ChannelBus
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	convUC *ConversationUseCase,
	msgUC *MessageUseCase,
	unreadUC *UnreadUseCase,
	bus repository.ChannelBus,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		convUC:   convUC,
		msgUC:    msgUC,
		unreadUC: unreadUC,
		bus:      bus,
	}
}

// wsConn 單一連線的狀態,convSub一次最多一個
type wsConn struct {
	conn    *websocket.Conn
	userID  string
	writeMu sync.Mutex

	userSub repository.Subscription
	convSub repository.Subscription
	// convSub對應的conversation,推播payload要帶回去給前端分流
	activeConvID string
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenUser := conn.Locals(middlewares.TokenUserID)
	userID, ok := tokenUser.(string)
	if !ok || userID == "" {
		logger.Log.Error("websocket connection without user id")
		conn.Close()
		return
	}
	logger.Log.Info("websocket connected", zap.String("userID", userID))

	wc := &wsConn{conn: conn, userID: userID}
	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		logger.Log.Info("websocket close", zap.String("userID", userID))
		// 斷線時同步退訂,避免pump寫到已關閉的conn
		if wc.convSub != nil {
			wc.convSub.Close()
		}
		if wc.userSub != nil {
			wc.userSub.Close()
		}
		conn.Close()
		cancel()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Infof("Received PONG:", appData)
		return nil
	})

	//client發出ping
	conn.SetPingHandler(func(appData string) error {
		logger.Log.Infof("Received PING:", appData)
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	//啟用sub訂閱自己的user channel,通知/邀請類事件整條連線都收
	userSub, err := h.bus.Subscribe(ctxClose, domain.UserChannel(userID), userEvents, func(event domain.Event) {
		h.pushEvent(wc, "", event)
	})
	if err != nil {
		logger.Log.Error("subscribe user channel failed", zap.String("userID", userID), zap.Error(err))
		return
	}
	wc.userSub = userSub

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, []byte("ping message")); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
				logger.Log.Infof("%s Ping sent", userID)
			case <-ctxClose.Done():
				logger.Log.Infof("Ping goroutine cancelled for user:", userID)
				return
			}
		}
	}()

	for {
		// 1. 讀取前端訊息
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Errorf("Connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, ctxClose, wc, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx, ctxClose context.Context, wc *wsConn, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, ctxClose, wc, msg)
	default:
		h.sendError(wc, "unknown message type")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx, ctxClose context.Context, wc *wsConn, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Errorf("json unmarshal error:", err)
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch domain.Action(req.Action) {

	//進入聊天室,退掉上一間再訂新的,回傳最近的歷史訊息
	case domain.EnterConversation:
		history, err := h.msgUC.History(ctx, req.ConversationID, wc.userID, 1, 50)
		if err != nil {
			resp.Error = err.Error()
			break
		}

		// 舊的訂閱先收乾淨,Close會等pump結束才回來
		if wc.convSub != nil {
			wc.convSub.Close()
			wc.convSub = nil
			wc.activeConvID = ""
		}

		convID := req.ConversationID
		sub, err := h.bus.Subscribe(ctxClose, domain.ConversationChannel(convID), conversationEvents, func(event domain.Event) {
			h.pushEvent(wc, convID, event)
		})
		if err != nil {
			resp.Error = err.Error()
			break
		}
		wc.convSub = sub
		wc.activeConvID = convID

		resp.Success = true
		resp.Payload["conversation_id"] = convID
		resp.Payload["messages"] = history

	//離開聊天室,只退訂不動membership
	case domain.LeaveConversation:
		if wc.convSub != nil {
			wc.convSub.Close()
			wc.convSub = nil
		}
		resp.Success = true
		resp.Payload["conversation_id"] = wc.activeConvID
		wc.activeConvID = ""

	//傳送訊息,走跟REST同一條pipeline
	case domain.SendMessage:
		message, err := h.msgUC.Send(ctx, req.ConversationID, wc.userID, req.Content, nil)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["message"] = message
		}

	//將聊天室標為已讀
	case domain.MarkRead:
		if err := h.unreadUC.MarkRead(ctx, req.ConversationID, wc.userID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["conversation_id"] = req.ConversationID
		}

	//搜尋所有未讀數
	case domain.GetUnread:
		convs, err := h.convUC.ListConversations(ctx, wc.userID, 1, 100)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		ids := make([]string, 0, len(convs))
		for _, conv := range convs {
			ids = append(ids, conv.ID)
		}
		infos, err := h.unreadUC.Counts(ctx, wc.userID, ids)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		for _, info := range infos {
			resp.Payload[info.ConversationID] = info.UnreadCount
		}

	default:
		h.sendError(wc, "unknown action")
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err ",
			zap.String("UserID", wc.userID),
			zap.String("Action", req.Action),
			zap.String("err", resp.Error))
	}
	h.sendResponse(wc, resp)
}

// pushEvent bus事件轉成push action送給前端,payload保留原始event json
func (h *ChatWebsocketHandler) pushEvent(wc *wsConn, conversationID string, event domain.Event) {
	resp := domain.WSResponse{
		Action:  string(domain.PushEvent),
		Success: true,
		Payload: map[string]interface{}{
			"event":   string(event.Type),
			"payload": event.Payload,
		},
	}
	if conversationID != "" {
		resp.Payload["conversation_id"] = conversationID
	}
	h.sendResponse(wc, resp)
}

// sendResponse - 發送 JSON 給前端,pump goroutine與read loop共用conn故需要鎖
func (h *ChatWebsocketHandler) sendResponse(wc *wsConn, resp domain.WSResponse) {
	b, _ := json.Marshal(resp)
	wc.writeMu.Lock()
	defer wc.writeMu.Unlock()
	if err := wc.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

func (h *ChatWebsocketHandler) sendError(wc *wsConn, errorMsg string) {
	h.sendResponse(wc, domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	})
}
