package service

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"
)

// 單次距離查詢的超時上限，超過視為本輪查詢失敗
const distanceTimeout = 5 * time.Second

// DistanceOracle 計算兩點之間的行車距離（公尺）
// 由 routing.Client 實現；任何失敗都以 error 返回，不會中斷廣播流程
type DistanceOracle interface {
	DrivingDistance(ctx context.Context, fromLat, fromLon, toLat, toLon float64) (float64, error)
}

// DestinationResolver 查詢車隊的目的地座標
// ok 為 false 表示車隊尚未設置目的地
type DestinationResolver interface {
	Destination(convoyID string) (lat, lon float64, ok bool, err error)
}

// ParticipantState 保存一個成員在車隊中的即時狀態
// 在成員第一次回報位置時建立，成員的連接關閉時刪除
type ParticipantState struct {
	UserID   string
	Username string
	Lat      float64
	Lon      float64
	Distance *float64 // 到目的地的行車距離，距離查詢成功前為 nil
	Rank     int      // 1 = 距離目的地最近
	ETA      *float64 // 客戶端自行回報的預計到達時間，可能沒有
}

// MemberUpdate 是廣播給客戶端的單個成員快照
type MemberUpdate struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Rank     int      `json:"rank"`
	Distance *float64 `json:"distance"`
	ETA      *float64 `json:"eta"`
}

// ConvoyUpdateMessage 是目的地已知時的完整排名廣播
type ConvoyUpdateMessage struct {
	Type    string         `json:"type"` // "convoy_update"
	Members []MemberUpdate `json:"members"`
}

// LocationUpdateMessage 是目的地未知時的簡單廣播，只包含剛移動的成員
type LocationUpdateMessage struct {
	Type     string   `json:"type"` // "location_update"
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	ETA      *float64 `json:"eta"`
}

// trackerRoom 是一個車隊的即時狀態：連接集合、成員狀態與目的地
// mu 串行化同一車隊的所有操作；不同車隊之間互不阻塞
type trackerRoom struct {
	mu sync.Mutex

	clients map[*Client]bool
	members map[string]*ParticipantState
	order   []string // 成員的插入順序，距離相同時作為穩定的排序依據
	removed bool     // 房間已從註冊表移除，不可再加入

	// 目的地在第一次位置更新時解析一次，之後在房間的生命週期內不再查詢
	dest         *destination
	destResolved bool
}

type destination struct {
	lat, lon float64
}

// ConvoyTracker 管理所有車隊房間，是即時連接與廣播的核心
// 房間在第一個連接加入時建立，最後一個連接離開時刪除
type ConvoyTracker struct {
	mu    sync.RWMutex
	rooms map[string]*trackerRoom

	oracle   DistanceOracle
	resolver DestinationResolver
}

// NewConvoyTracker 創建並初始化車隊追蹤器
func NewConvoyTracker(oracle DistanceOracle, resolver DestinationResolver) *ConvoyTracker {
	return &ConvoyTracker{
		rooms:    make(map[string]*trackerRoom),
		oracle:   oracle,
		resolver: resolver,
	}
}

// Join 將連接註冊到車隊房間，房間不存在時建立
// 此時不建立成員狀態：從未回報位置的成員不會出現在排名中
//
// 註冊表鎖只用於 map 操作，絕不在持有它時等待房間鎖：
// 房間鎖可能被一次長達數秒的距離查詢佔用，
// 在註冊表鎖內等它會讓所有車隊一起停擺
func (t *ConvoyTracker) Join(client *Client) {
	for {
		t.mu.RLock()
		room := t.rooms[client.ConvoyID]
		t.mu.RUnlock()

		if room == nil {
			t.mu.Lock()
			room = t.rooms[client.ConvoyID]
			if room == nil {
				room = &trackerRoom{
					clients: make(map[*Client]bool),
					members: make(map[string]*ParticipantState),
				}
				t.rooms[client.ConvoyID] = room
			}
			t.mu.Unlock()
		}

		room.mu.Lock()
		if room.removed {
			// 房間在取得引用和加鎖之間被最後一個連接清空移除，重試
			room.mu.Unlock()
			continue
		}
		room.clients[client] = true
		room.mu.Unlock()
		return
	}
}

// Leave 將連接從房間移除並刪除該成員的狀態
// 房間因此變空時連同房間一起刪除，目的地快取也隨之丟棄
func (t *ConvoyTracker) Leave(client *Client) {
	t.mu.RLock()
	room := t.rooms[client.ConvoyID]
	t.mu.RUnlock()
	if room == nil {
		return
	}

	room.mu.Lock()
	if room.clients[client] {
		delete(room.clients, client)
		// 在房間鎖內關閉發送通道，廣播也在同一把鎖內入隊，
		// 因此不可能向已關閉的通道發送
		close(client.SendChan)
	}
	delete(room.members, client.UserID)
	for i, uid := range room.order {
		if uid == client.UserID {
			room.order = append(room.order[:i], room.order[i+1:]...)
			break
		}
	}
	if len(room.clients) == 0 && !room.removed {
		// 移除和清空在房間鎖內一起判定，與同車隊的併發 Join 互斥；
		// 這裡才短暫取註冊表鎖，鎖的順序固定為 房間 -> 註冊表
		room.removed = true
		t.mu.Lock()
		if t.rooms[client.ConvoyID] == room {
			delete(t.rooms, client.ConvoyID)
		}
		t.mu.Unlock()
	}
	room.mu.Unlock()
}

// UpdateLocation 處理一次位置回報：更新狀態、查詢距離、重算排名並廣播
// 整個序列是房間的臨界區，同一房間的併發更新不會交錯
func (t *ConvoyTracker) UpdateLocation(convoyID, userID, username string, lat, lon float64, eta *float64) {
	t.mu.RLock()
	room := t.rooms[convoyID]
	t.mu.RUnlock()
	if room == nil {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.removed {
		return
	}

	t.resolveDestination(convoyID, room)

	// 更新或建立成員狀態
	state := room.members[userID]
	if state == nil {
		state = &ParticipantState{UserID: userID}
		room.members[userID] = state
		room.order = append(room.order, userID)
	}
	state.Username = username
	state.Lat = lat
	state.Lon = lon
	state.ETA = eta

	if room.dest != nil {
		// 查詢失敗或超時就保留上一次的距離值，
		// 一次瞬時失敗不該讓成員從排名中消失
		ctx, cancel := context.WithTimeout(context.Background(), distanceTimeout)
		distance, err := t.oracle.DrivingDistance(ctx, lat, lon, room.dest.lat, room.dest.lon)
		cancel()
		if err != nil {
			log.Printf("distance lookup failed for convoy %s: %v", convoyID, err)
		} else {
			state.Distance = &distance
		}
	}

	var payload []byte
	var err error
	if room.dest == nil {
		// 目的地未知：只廣播剛移動的成員
		payload, err = json.Marshal(LocationUpdateMessage{
			Type:     "location_update",
			UserID:   userID,
			Username: username,
			Lat:      lat,
			Lon:      lon,
			ETA:      eta,
		})
	} else {
		payload, err = json.Marshal(ConvoyUpdateMessage{
			Type:    "convoy_update",
			Members: room.rank(),
		})
	}
	if err != nil {
		log.Printf("message encoding error: %v", err)
		return
	}

	// 向房間內所有連接廣播，包含觸發更新的連接本身
	// 入隊是非阻塞的：某個連接的隊列滿了就丟棄這一幀，
	// 由它自己的讀取循環去發現連接已經不健康
	for client := range room.clients {
		select {
		case client.SendChan <- payload:
		default:
		}
	}
}

// resolveDestination 在房間生命週期內最多查詢一次目的地
func (t *ConvoyTracker) resolveDestination(convoyID string, room *trackerRoom) {
	if room.destResolved {
		return
	}
	room.destResolved = true

	lat, lon, ok, err := t.resolver.Destination(convoyID)
	if err != nil {
		log.Printf("destination lookup failed for convoy %s: %v", convoyID, err)
		return
	}
	if ok {
		room.dest = &destination{lat: lat, lon: lon}
	}
}

// rank 按到目的地的距離升序重算所有成員的名次
// 距離未知的成員排在最後；距離相同或同為未知時按插入順序
func (room *trackerRoom) rank() []MemberUpdate {
	states := make([]*ParticipantState, 0, len(room.members))
	for _, uid := range room.order {
		if state, ok := room.members[uid]; ok {
			states = append(states, state)
		}
	}

	sort.SliceStable(states, func(i, j int) bool {
		a, b := states[i].Distance, states[j].Distance
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a < *b
	})

	ranked := make([]MemberUpdate, 0, len(states))
	for i, state := range states {
		state.Rank = i + 1
		ranked = append(ranked, MemberUpdate{
			UserID:   state.UserID,
			Username: state.Username,
			Lat:      state.Lat,
			Lon:      state.Lon,
			Rank:     state.Rank,
			Distance: state.Distance,
			ETA:      state.ETA,
		})
	}
	return ranked
}

// RoomCount 返回目前存在的房間數量
func (t *ConvoyTracker) RoomCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms)
}

// ClientCount 返回指定車隊的在線連接數量
func (t *ConvoyTracker) ClientCount(convoyID string) int {
	t.mu.RLock()
	room := t.rooms[convoyID]
	t.mu.RUnlock()
	if room == nil {
		return 0
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	return len(room.clients)
}
