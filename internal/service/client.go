package service

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client 代表一個 WebSocket 客戶端連接
// 一個連接在其生命週期內只屬於一個車隊和一個用戶
type Client struct {
	Conn     *websocket.Conn // WebSocket 連接
	UserID   string          // 用戶 ID
	Username string          // 顯示名稱，來自 token
	ConvoyID string          // 車隊 ID
	SendChan chan []byte     // 消息發送通道，用於異步傳送消息

	leaveOnce sync.Once // 保證清理只執行一次，即使多條失敗路徑同時觸發
}

// locationMessage 是客戶端回報位置的消息格式
// 使用指針區分「缺少字段」和「值為零」
type locationMessage struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	ETA      *float64 `json:"eta"`
	Username *string  `json:"username"`
}

// HandleConnection 處理一個已通過驗證的 WebSocket 連接
// 加入房間、啟動讀寫循環，連接結束時清理資源
func (t *ConvoyTracker) HandleConnection(client *Client) {
	if client.SendChan == nil {
		client.SendChan = make(chan []byte, 256)
	}

	t.Join(client)

	// 確保連接關閉時清理資源
	// 讀取循環的任何退出路徑（正常斷線、異常）都會走到這裡
	defer func() {
		client.leaveOnce.Do(func() {
			t.Leave(client)
		})
		client.Conn.Close()
	}()

	go t.writePump(client)
	t.readPump(client)
}

// readPump 持續監聽並處理從客戶端接收的位置消息
func (t *ConvoyTracker) readPump(client *Client) {
	client.Conn.SetReadLimit(4096) // 設置最大消息大小為 4KB
	client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket unexpected close error: %v", err)
			}
			break
		}

		// 解析接收到的消息
		var msg locationMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("message parse error: %v", err)
			continue
		}

		// 缺少座標的消息直接忽略，不產生任何副作用
		if msg.Lat == nil || msg.Lon == nil {
			continue
		}

		username := client.Username
		if msg.Username != nil && *msg.Username != "" {
			username = *msg.Username
		}

		t.UpdateLocation(client.ConvoyID, client.UserID, username, *msg.Lat, *msg.Lon, msg.ETA)
	}
}

// writePump 處理向客戶端發送消息的邏輯
func (t *ConvoyTracker) writePump(client *Client) {
	// 設置心跳檢查計時器
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.SendChan:
			// 設置寫入超時
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// 通道已在離開房間時關閉
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				// 寫入失敗只影響這個連接，讀取循環會隨後發現斷線
				return
			}

		case <-ticker.C:
			// 發送心跳包
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
