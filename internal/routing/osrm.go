package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// 與 OSRM 公共 API 通訊時的超時上限
// 超過即視為本輪查詢失敗，不會中斷呼叫方的流程
const requestTimeout = 5 * time.Second

// Client 是 OSRM 路線服務的客戶端
// 所有失敗（網路錯誤、超時、無路線）都以 error 返回，不會向外拋出異常
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// osrmResponse 對應 OSRM route 端點的回應結構
type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64      `json:"distance"` // 公尺
	Duration float64      `json:"duration"` // 秒
	Geometry osrmGeometry `json:"geometry"`
	Legs     []osrmLeg    `json:"legs"`
}

type osrmGeometry struct {
	Coordinates [][]float64 `json:"coordinates"` // OSRM 使用 [lon, lat] 順序
}

type osrmLeg struct {
	Steps []osrmStep `json:"steps"`
}

type osrmStep struct {
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Name     string       `json:"name"`
	Maneuver osrmManeuver `json:"maneuver"`
}

type osrmManeuver struct {
	Instruction string    `json:"instruction"`
	Type        string    `json:"type"`
	Modifier    string    `json:"modifier"`
	Location    []float64 `json:"location"`
}

// DrivingDistance 計算兩點之間的行車距離，單位為公尺
func (c *Client) DrivingDistance(ctx context.Context, fromLat, fromLon, toLat, toLon float64) (float64, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		c.baseURL, fromLon, fromLat, toLon, toLat)

	resp, err := c.get(ctx, url)
	if err != nil {
		return 0, err
	}

	return resp.Routes[0].Distance, nil
}

// LatLng 是回傳給客戶端的座標格式
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RouteStep 是一段轉彎指示
type RouteStep struct {
	Instruction string  `json:"instruction"`
	Type        string  `json:"type"`
	Modifier    string  `json:"modifier"`
	Distance    float64 `json:"distance"`
	Duration    float64 `json:"duration"`
	Name        string  `json:"name"`
	Location    LatLng  `json:"location"`
}

// RouteResult 是完整的路線查詢結果：路徑、距離、時間與逐步指引
type RouteResult struct {
	Route    []LatLng    `json:"route"`
	Duration float64     `json:"duration"`
	Distance float64     `json:"distance"`
	Steps    []RouteStep `json:"steps"`
}

// RouteGeometry 查詢兩點之間的完整路線，包含路徑座標與轉彎指示
func (c *Client) RouteGeometry(ctx context.Context, fromLat, fromLon, toLat, toLon float64) (*RouteResult, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson&steps=true",
		c.baseURL, fromLon, fromLat, toLon, toLat)

	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	route := resp.Routes[0]
	result := &RouteResult{
		Duration: route.Duration,
		Distance: route.Distance,
		Route:    make([]LatLng, 0, len(route.Geometry.Coordinates)),
		Steps:    make([]RouteStep, 0),
	}

	// OSRM 的 GeoJSON 座標順序是 [lon, lat]
	for _, coord := range route.Geometry.Coordinates {
		if len(coord) < 2 {
			continue
		}
		result.Route = append(result.Route, LatLng{Latitude: coord[1], Longitude: coord[0]})
	}

	for _, leg := range route.Legs {
		for _, step := range leg.Steps {
			s := RouteStep{
				Instruction: step.Maneuver.Instruction,
				Type:        step.Maneuver.Type,
				Modifier:    step.Maneuver.Modifier,
				Distance:    step.Distance,
				Duration:    step.Duration,
				Name:        step.Name,
			}
			if len(step.Maneuver.Location) >= 2 {
				s.Location = LatLng{Latitude: step.Maneuver.Location[1], Longitude: step.Maneuver.Location[0]}
			}
			result.Steps = append(result.Steps, s)
		}
	}

	return result, nil
}

func (c *Client) get(ctx context.Context, url string) (*osrmResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("osrm returned status %d", resp.StatusCode)
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	if body.Code != "Ok" || len(body.Routes) == 0 {
		return nil, errors.New("osrm returned no routes")
	}

	return &body, nil
}
