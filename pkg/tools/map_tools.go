package tools

import (
	"context"
	"fmt"

	"github.com/tripflow/tripflow/pkg/agui"
	"github.com/tripflow/tripflow/pkg/domain"
	"github.com/tripflow/tripflow/pkg/mapclient"
)

// MapAPI is the map-provider surface the map tools need. *mapclient.Client
// satisfies it.
type MapAPI interface {
	Geocode(ctx context.Context, address string) (*domain.Coordinates, error)
	SearchPOI(ctx context.Context, query mapclient.SearchQuery) ([]domain.POI, error)
	CalculateRoute(ctx context.Context, origin, destination domain.Coordinates, mode string) (*domain.Route, error)
}

// cityCenters is the fallback center per city when geocoding a location hint
// fails. Unknown cities fall back to Beijing.
var cityCenters = map[string]domain.Coordinates{
	"北京": {Lat: 39.9042, Lng: 116.4074},
	"上海": {Lat: 31.2304, Lng: 121.4737},
	"广州": {Lat: 23.1291, Lng: 113.2644},
	"深圳": {Lat: 22.5431, Lng: 114.0579},
	"杭州": {Lat: 30.2741, Lng: 120.1551},
	"南京": {Lat: 32.0603, Lng: 118.7969},
	"成都": {Lat: 30.5728, Lng: 104.0668},
	"武汉": {Lat: 30.5928, Lng: 114.3055},
}

// CityCenter returns the fallback center coordinate for a city.
func CityCenter(city string) domain.Coordinates {
	if center, ok := cityCenters[city]; ok {
		return center
	}
	return cityCenters["北京"]
}

// SearchPOITool searches points of interest in a city, optionally around a
// location hint.
type SearchPOITool struct {
	maps MapAPI
}

// NewSearchPOITool creates the search_poi tool.
func NewSearchPOITool(maps MapAPI) *SearchPOITool {
	return &SearchPOITool{maps: maps}
}

func (t *SearchPOITool) Name() string { return "search_poi" }

func (t *SearchPOITool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "search_poi",
			Description: "搜索指定城市的景点、餐厅、酒店等POI信息",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"keyword": map[string]interface{}{
						"type":        "string",
						"description": "搜索关键词，如'故宫'、'天安门'、'颐和园'等",
					},
					"city": map[string]interface{}{
						"type":        "string",
						"description": "城市名称，如'北京'、'上海'等",
					},
					"category": map[string]interface{}{
						"type":        "string",
						"description": "POI分类",
						"enum":        []string{"attraction", "restaurant", "hotel", "shopping", "entertainment"},
						"default":     "attraction",
					},
					"location": map[string]interface{}{
						"type":        "string",
						"description": "搜索中心点的地点名称，限定结果在其周边",
					},
				},
				"required": []string{"keyword", "city"},
			},
		},
	}
}

func (t *SearchPOITool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	keyword := stringArg(args, "keyword", "景点")
	city := stringArg(args, "city", "北京")
	category := stringArg(args, "category", "attraction")

	query := mapclient.SearchQuery{
		Keyword:  keyword,
		City:     city,
		Category: category,
	}

	// A location hint narrows the search to a 5km circle. When the hint
	// cannot be geocoded the city center stands in for it.
	if location := stringArg(args, "location", ""); location != "" {
		coords, err := t.maps.Geocode(ctx, location)
		if err != nil {
			center := CityCenter(city)
			coords = &center
		}
		query.Location = coords
		query.Radius = 5000
	}

	pois, err := t.maps.SearchPOI(ctx, query)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("POI搜索失败: %v", err)}, nil
	}

	return &Result{
		Success: true,
		Data: map[string]interface{}{
			"pois":    pois,
			"total":   len(pois),
			"keyword": keyword,
			"city":    city,
		},
	}, nil
}

// CalculateRouteTool computes a route between two named places.
type CalculateRouteTool struct {
	maps MapAPI
}

// NewCalculateRouteTool creates the calculate_route tool.
func NewCalculateRouteTool(maps MapAPI) *CalculateRouteTool {
	return &CalculateRouteTool{maps: maps}
}

func (t *CalculateRouteTool) Name() string { return "calculate_route" }

func (t *CalculateRouteTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "calculate_route",
			Description: "计算两个地点之间的路线和距离",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"origin": map[string]interface{}{
						"type":        "string",
						"description": "起点，可以是地址或坐标",
					},
					"destination": map[string]interface{}{
						"type":        "string",
						"description": "终点，可以是地址或坐标",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"description": "交通方式",
						"enum":        []string{"driving", "walking", "transit", "riding"},
						"default":     "driving",
					},
				},
				"required": []string{"origin", "destination"},
			},
		},
	}
}

func (t *CalculateRouteTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	origin := stringArg(args, "origin", "")
	destination := stringArg(args, "destination", "")
	mode := stringArg(args, "mode", "driving")

	if origin == "" || destination == "" {
		return &Result{Success: false, Error: "起点和终点不能为空"}, nil
	}

	originCoords, err := t.maps.Geocode(ctx, origin)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("无法找到起点位置: %s", origin)}, nil
	}
	destCoords, err := t.maps.Geocode(ctx, destination)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("无法找到终点位置: %s", destination)}, nil
	}

	route, err := t.maps.CalculateRoute(ctx, *originCoords, *destCoords, mode)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("路线计算失败: %v", err)}, nil
	}

	return &Result{Success: true, Data: route}, nil
}

// MarkLocationTool geocodes a place and returns an ephemeral map marker.
// Markers live on the client map only; nothing is persisted.
type MarkLocationTool struct {
	maps MapAPI
}

// NewMarkLocationTool creates the mark_location tool.
func NewMarkLocationTool(maps MapAPI) *MarkLocationTool {
	return &MarkLocationTool{maps: maps}
}

func (t *MarkLocationTool) Name() string { return "mark_location" }

func (t *MarkLocationTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "mark_location",
			Description: "在地图上标记指定地点",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"location": map[string]interface{}{
						"type":        "string",
						"description": "要标记的地点名称或地址，如'故宫'、'天安门'、'北京站'等",
					},
					"label": map[string]interface{}{
						"type":        "string",
						"description": "标记的标签名称，如果不提供则使用地点名称",
						"default":     "",
					},
					"category": map[string]interface{}{
						"type":        "string",
						"description": "地点分类",
						"enum":        []string{"attraction", "restaurant", "hotel", "transport", "shopping", "entertainment"},
						"default":     "attraction",
					},
				},
				"required": []string{"location"},
			},
		},
	}
}

func (t *MarkLocationTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	location := stringArg(args, "location", "")
	if location == "" {
		return &Result{Success: false, Error: "地点不能为空"}, nil
	}
	label := stringArg(args, "label", location)
	category := stringArg(args, "category", "attraction")

	coords, err := t.maps.Geocode(ctx, location)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("无法找到地点: %s", location)}, nil
	}

	return &Result{
		Success: true,
		Data: map[string]interface{}{
			"marker_id":   agui.NewMarkerID(),
			"location":    location,
			"label":       label,
			"category":    category,
			"coordinates": coords,
			"message":     fmt.Sprintf("已在地图上标记: %s", label),
		},
	}, nil
}

// PlanTripTool arranges selected locations into time slots and adjacent-pair
// route stubs. The detailed schedule text is left to the model.
type PlanTripTool struct{}

// NewPlanTripTool creates the plan_trip tool.
func NewPlanTripTool() *PlanTripTool {
	return &PlanTripTool{}
}

func (t *PlanTripTool) Name() string { return "plan_trip" }

func (t *PlanTripTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "plan_trip",
			Description: "基于选中的地点规划完整行程",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"selected_locations": map[string]interface{}{
						"type":        "array",
						"description": "用户选中的地点ID列表",
						"items":       map[string]interface{}{"type": "string"},
					},
					"trip_duration": map[string]interface{}{
						"type":        "string",
						"description": "行程时长，如'1天'、'2天'、'半天'等",
						"default":     "1天",
					},
					"transport_mode": map[string]interface{}{
						"type":        "string",
						"description": "主要交通方式",
						"enum":        []string{"walking", "driving", "transit", "mixed"},
						"default":     "mixed",
					},
					"interests": map[string]interface{}{
						"type":        "array",
						"description": "用户兴趣偏好",
						"items":       map[string]interface{}{"type": "string"},
						"default":     []string{},
					},
				},
				"required": []string{"selected_locations"},
			},
		},
	}
}

// timeSlots maps a duration label onto the slots locations get assigned to.
func timeSlots(duration string) []string {
	switch duration {
	case "半天":
		return []string{"上午", "中午"}
	case "1天":
		return []string{"上午", "中午", "下午", "晚上"}
	case "2天":
		return []string{
			"第一天上午", "第一天中午", "第一天下午", "第一天晚上",
			"第二天上午", "第二天中午", "第二天下午",
		}
	default:
		return []string{"上午", "中午", "下午", "晚上"}
	}
}

func (t *PlanTripTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	selected := stringSliceArg(args, "selected_locations")
	if len(selected) == 0 {
		return &Result{Success: false, Error: "请先选择要规划的地点"}, nil
	}

	duration := stringArg(args, "trip_duration", "1天")
	transportMode := stringArg(args, "transport_mode", "mixed")
	interests := stringSliceArg(args, "interests")

	slots := timeSlots(duration)
	schedule := make([]map[string]interface{}, 0, len(selected))
	for i, location := range selected {
		if i >= len(slots) {
			break
		}
		schedule = append(schedule, map[string]interface{}{
			"time":     slots[i],
			"location": location,
			"activity": fmt.Sprintf("游览%s", location),
			"duration": "1-2小时",
		})
	}

	routes := make([]map[string]interface{}, 0)
	for i := 0; i+1 < len(selected); i++ {
		routes = append(routes, map[string]interface{}{
			"from":           selected[i],
			"to":             selected[i+1],
			"transport":      transportMode,
			"estimated_time": "15-30分钟",
		})
	}

	plan := map[string]interface{}{
		"title":          fmt.Sprintf("%s行程规划", duration),
		"duration":       duration,
		"transport_mode": transportMode,
		"interests":      interests,
		"locations":      selected,
		"schedule":       schedule,
		"routes":         routes,
		"tips": []string{
			"建议提前查看各景点的开放时间",
			"根据天气情况调整行程安排",
			"预留充足的交通时间",
			"携带必要的证件和物品",
		},
	}

	return &Result{
		Success: true,
		Data: map[string]interface{}{
			"trip_plan":          plan,
			"selected_locations": selected,
			"trip_duration":      duration,
			"transport_mode":     transportMode,
			"interests":          interests,
		},
		Message: "行程规划生成成功",
	}, nil
}
