package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"convoy_web/internal/service"
	"convoy_web/internal/utils"
)

// 定義 WebSocket 升級器
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 注意：在生產環境中，應該檢查 origin
	},
}

// WebSocketHandler 處理 WebSocket 連接
type WebSocketHandler struct {
	tracker *service.ConvoyTracker
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler 實例
func NewWebSocketHandler(tracker *service.ConvoyTracker) *WebSocketHandler {
	return &WebSocketHandler{tracker: tracker}
}

// HandleWebSocket 處理 WebSocket 連接請求
// token 作為查詢參數傳入，在接觸任何房間狀態之前完成驗證；
// 驗證失敗的連接以 policy violation (1008) 關閉，不會留下任何狀態
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	convoyID := c.Param("id")

	// 先驗證 token，再升級連接
	claims, authErr := parseWebSocketToken(c.Query("token"))

	// 升級 HTTP 連接為 WebSocket 連接
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "升級WebSocket失敗"})
		return
	}

	if authErr != nil {
		// 升級只是為了把關閉碼送達客戶端，驗證失敗的連接不會加入任何房間
		deadline := time.Now().Add(5 * time.Second)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"), deadline)
		conn.Close()
		return
	}

	// 創建客戶端並交給追蹤器處理，連接結束前此調用不會返回
	client := &service.Client{
		Conn:     conn,
		UserID:   strconv.FormatUint(uint64(claims.UserID), 10),
		Username: claims.Username,
		ConvoyID: convoyID,
	}
	h.tracker.HandleConnection(client)
}

// parseWebSocketToken 驗證連接參數中的 token
func parseWebSocketToken(token string) (*utils.Claims, error) {
	if token == "" {
		return nil, errors.New("missing token")
	}
	return utils.ParseToken(token)
}
