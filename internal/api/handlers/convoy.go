package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"convoy_web/internal/routing"
	"convoy_web/internal/service"
)

// ConvoyHandler 處理與車隊相關的請求
type ConvoyHandler struct {
	convoyService *service.ConvoyService
	routingClient *routing.Client
}

// NewConvoyHandler 創建一個新的 ConvoyHandler 實例
func NewConvoyHandler(convoyService *service.ConvoyService, routingClient *routing.Client) *ConvoyHandler {
	return &ConvoyHandler{
		convoyService: convoyService,
		routingClient: routingClient,
	}
}

// CreateConvoy 處理創建新車隊的請求
func (h *ConvoyHandler) CreateConvoy(c *gin.Context) {
	var input struct {
		Name            string     `json:"name" binding:"required"`
		DestinationName string     `json:"destination_name"`
		DestinationLat  *float64   `json:"destination_lat"`
		DestinationLon  *float64   `json:"destination_lon"`
		StartTime       *time.Time `json:"start_time"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")

	convoy, err := h.convoyService.CreateConvoy(
		input.Name, input.DestinationName,
		input.DestinationLat, input.DestinationLon,
		input.StartTime, userID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "創建車隊失敗"})
		return
	}

	c.JSON(http.StatusCreated, convoy)
}

// JoinConvoy 處理通過邀請碼加入車隊的請求
func (h *ConvoyHandler) JoinConvoy(c *gin.Context) {
	var input struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")

	convoy, err := h.convoyService.JoinByInviteCode(input.InviteCode, userID.(uint))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, convoy)
}

// MyConvoys 處理查詢用戶參加的所有車隊的請求
func (h *ConvoyHandler) MyConvoys(c *gin.Context) {
	userID, _ := c.Get("userID")

	convoys, err := h.convoyService.MyConvoys(userID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "無法查詢車隊列表"})
		return
	}

	c.JSON(http.StatusOK, convoys)
}

// GetConvoy 處理獲取車隊訊息的請求
func (h *ConvoyHandler) GetConvoy(c *gin.Context) {
	convoyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不存在的車隊ID"})
		return
	}

	convoy, err := h.convoyService.GetConvoy(convoyID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "車隊不存在"})
		return
	}

	c.JSON(http.StatusOK, convoy)
}

// GetRoute 查詢從用戶當前位置到車隊目的地的路線
// 路線服務失敗時降級為空路線，不返回錯誤
func (h *ConvoyHandler) GetRoute(c *gin.Context) {
	convoyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不存在的車隊ID"})
		return
	}

	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	if latErr != nil || lonErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的座標"})
		return
	}

	convoy, err := h.convoyService.GetConvoy(convoyID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "車隊不存在"})
		return
	}

	// 目的地尚未設置時返回空路線
	if convoy.DestinationLat == nil || convoy.DestinationLon == nil {
		c.JSON(http.StatusOK, routing.RouteResult{Route: []routing.LatLng{}, Steps: []routing.RouteStep{}})
		return
	}

	result, err := h.routingClient.RouteGeometry(c.Request.Context(), lat, lon, *convoy.DestinationLat, *convoy.DestinationLon)
	if err != nil {
		// 路線服務不可用不算致命錯誤
		c.JSON(http.StatusOK, routing.RouteResult{Route: []routing.LatLng{}, Steps: []routing.RouteStep{}})
		return
	}

	c.JSON(http.StatusOK, result)
}
