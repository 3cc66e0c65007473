// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"net/http"

	"docqa-go/internal/model"
	"docqa-go/internal/service"
	"docqa-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 来源限制由 CORS 中间件负责
	},
}

// ChatHandler 负责提问与会话相关的请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatRequest 是一次提问的请求体。
type ChatRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// Chat 处理 POST /api/chat。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, model.ValidationError("bind chat request", err))
		return
	}
	resp, err := h.chatService.SubmitQuery(c.Request.Context(), req.Query, req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type clearSessionRequest struct {
	SessionID string `json:"session_id"`
}

// ClearSession 处理 POST /api/session/clear。
func (h *ChatHandler) ClearSession(c *gin.Context) {
	var req clearSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		writeError(c, model.ValidationError("clear session", errMissingSessionID))
		return
	}
	if !h.chatService.ClearSession(req.SessionID) {
		writeError(c, model.NewError(model.ErrSessionNotFound, "clear session "+req.SessionID, nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation cleared"})
}

// Websocket 处理 GET /api/chat/ws：每个文本帧 {query, session_id?} 得到一个 JSON 响应帧。
// 帧中未带 session_id 时沿用该连接上一次的会话。
func (h *ChatHandler) Websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("WebSocket 连接已建立, remote: %s", c.ClientIP())

	var sessionID string
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}

		var req ChatRequest
		if err := json.Unmarshal(message, &req); err != nil {
			h.writeFrame(conn, wsError(model.ValidationError("decode frame", err)))
			continue
		}
		if req.SessionID == "" {
			req.SessionID = sessionID
		}

		resp, err := h.chatService.SubmitQuery(c.Request.Context(), req.Query, req.SessionID)
		if err != nil {
			h.writeFrame(conn, wsError(err))
			continue
		}
		sessionID = resp.SessionID
		h.writeFrame(conn, resp)
	}
}

func wsError(err error) gin.H {
	return gin.H{"code": statusFor(err), "error": err.Error()}
}

func (h *ChatHandler) writeFrame(conn *websocket.Conn, v interface{}) {
	if err := conn.WriteJSON(v); err != nil {
		log.Warnf("写入 WebSocket 消息失败: %v", err)
	}
}
