package tools

import (
	"context"
	"fmt"

	"github.com/tripflow/tripflow/pkg/domain"
	"github.com/tripflow/tripflow/pkg/store"
)

// CreateTripTool persists a new trip for the acting user.
type CreateTripTool struct {
	store *store.Store
}

// NewCreateTripTool creates the create_trip tool.
func NewCreateTripTool(s *store.Store) *CreateTripTool {
	return &CreateTripTool{store: s}
}

func (t *CreateTripTool) Name() string { return "create_trip" }

func (t *CreateTripTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "create_trip",
			Description: "创建一个新的旅行行程",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title": map[string]interface{}{
						"type":        "string",
						"description": "行程标题，如'北京三日游'",
					},
					"destination": map[string]interface{}{
						"type":        "string",
						"description": "目的地城市",
					},
					"duration_days": map[string]interface{}{
						"type":        "integer",
						"description": "行程天数",
						"default":     1,
					},
					"budget": map[string]interface{}{
						"type":        "number",
						"description": "总预算（元）",
					},
					"traveler_count": map[string]interface{}{
						"type":        "integer",
						"description": "同行人数",
						"default":     1,
					},
				},
				"required": []string{"title"},
			},
		},
	}
}

func (t *CreateTripTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	userID := UserIDFromContext(ctx)
	if userID == "" {
		return &Result{Success: false, Error: "未登录"}, nil
	}

	trip := &store.Trip{
		UserID:        userID,
		Title:         stringArg(args, "title", ""),
		Destination:   stringArg(args, "destination", ""),
		DurationDays:  intArg(args, "duration_days", 1),
		TravelerCount: intArg(args, "traveler_count", 1),
	}
	if budget, ok := floatArg(args, "budget"); ok {
		trip.BudgetTotal = &budget
	}

	if err := t.store.CreateTrip(ctx, trip); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("创建行程失败: %v", err)}, nil
	}

	return &Result{
		Success: true,
		Data: map[string]interface{}{
			"trip_id":        trip.ID,
			"title":          trip.Title,
			"destination":    trip.Destination,
			"duration_days":  trip.DurationDays,
			"budget_total":   trip.BudgetTotal,
			"traveler_count": trip.TravelerCount,
		},
		Message: fmt.Sprintf("成功创建行程：%s", trip.Title),
	}, nil
}

// AddItineraryItemTool appends an activity to a trip day.
type AddItineraryItemTool struct {
	store *store.Store
}

// NewAddItineraryItemTool creates the add_itinerary_item tool.
func NewAddItineraryItemTool(s *store.Store) *AddItineraryItemTool {
	return &AddItineraryItemTool{store: s}
}

func (t *AddItineraryItemTool) Name() string { return "add_itinerary_item" }

func (t *AddItineraryItemTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "add_itinerary_item",
			Description: "向行程的某一天添加一个活动地点",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"trip_id": map[string]interface{}{
						"type":        "string",
						"description": "行程ID",
					},
					"day_number": map[string]interface{}{
						"type":        "integer",
						"description": "第几天（从1开始）",
					},
					"name": map[string]interface{}{
						"type":        "string",
						"description": "地点名称",
					},
					"category": map[string]interface{}{
						"type":        "string",
						"description": "地点分类",
						"enum":        []string{"attraction", "restaurant", "hotel", "transport", "shopping", "other"},
					},
					"address": map[string]interface{}{
						"type":        "string",
						"description": "地址",
					},
					"start_time": map[string]interface{}{
						"type":        "string",
						"description": "开始时间，HH:MM格式",
					},
					"estimated_duration": map[string]interface{}{
						"type":        "integer",
						"description": "预计停留时长（分钟）",
					},
					"estimated_cost": map[string]interface{}{
						"type":        "number",
						"description": "预计费用（元）",
					},
				},
				"required": []string{"trip_id", "day_number", "name"},
			},
		},
	}
}

func (t *AddItineraryItemTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	userID := UserIDFromContext(ctx)
	if userID == "" {
		return &Result{Success: false, Error: "未登录"}, nil
	}

	tripID := stringArg(args, "trip_id", "")
	dayNumber := intArg(args, "day_number", 0)

	if _, err := t.store.GetTrip(ctx, tripID, userID); err != nil {
		return &Result{Success: false, Error: "行程不存在"}, nil
	}

	itinerary, err := t.store.GetOrCreateItinerary(ctx, tripID, dayNumber)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("添加行程节点失败: %v", err)}, nil
	}

	item := &store.ItineraryItem{
		ItineraryID:       itinerary.ID,
		Name:              stringArg(args, "name", ""),
		Category:          stringArg(args, "category", ""),
		Address:           stringArg(args, "address", ""),
		StartTime:         stringArg(args, "start_time", ""),
		EstimatedDuration: intArg(args, "estimated_duration", 0),
	}
	if coords, ok := args["coordinates"].(map[string]interface{}); ok {
		lat, latOK := floatArg(coords, "lat")
		lng, lngOK := floatArg(coords, "lng")
		if latOK && lngOK {
			item.Coordinates = &domain.Coordinates{Lat: lat, Lng: lng}
		}
	}
	if cost, ok := floatArg(args, "estimated_cost"); ok {
		item.EstimatedCost = &cost
	}

	if err := t.store.AddItineraryItem(ctx, item); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("添加行程节点失败: %v", err)}, nil
	}

	return &Result{
		Success: true,
		Data: map[string]interface{}{
			"item_id":     item.ID,
			"trip_id":     tripID,
			"day_number":  dayNumber,
			"name":        item.Name,
			"category":    item.Category,
			"address":     item.Address,
			"coordinates": item.Coordinates,
		},
		Message: fmt.Sprintf("成功添加行程节点：%s", item.Name),
	}, nil
}

// ListTripsTool returns the acting user's trips.
type ListTripsTool struct {
	store *store.Store
}

// NewListTripsTool creates the list_trips tool.
func NewListTripsTool(s *store.Store) *ListTripsTool {
	return &ListTripsTool{store: s}
}

func (t *ListTripsTool) Name() string { return "list_trips" }

func (t *ListTripsTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "list_trips",
			Description: "列出用户的旅行行程",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"status": map[string]interface{}{
						"type":        "string",
						"description": "按状态过滤",
						"enum":        []string{"all", "draft", "planned", "active", "completed", "cancelled"},
						"default":     "all",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "返回数量限制",
						"default":     10,
					},
				},
			},
		},
	}
}

func (t *ListTripsTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	userID := UserIDFromContext(ctx)
	if userID == "" {
		return &Result{Success: false, Error: "未登录"}, nil
	}

	trips, err := t.store.ListTrips(ctx, userID, stringArg(args, "status", "all"), intArg(args, "limit", 10))
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("获取行程列表失败: %v", err)}, nil
	}

	list := make([]map[string]interface{}, 0, len(trips))
	for _, trip := range trips {
		list = append(list, map[string]interface{}{
			"id":            trip.ID,
			"title":         trip.Title,
			"destination":   trip.Destination,
			"duration_days": trip.DurationDays,
			"budget_total":  trip.BudgetTotal,
			"status":        trip.Status,
			"created_at":    trip.CreatedAt,
		})
	}

	return &Result{
		Success: true,
		Data: map[string]interface{}{
			"trips": list,
			"count": len(list),
		},
	}, nil
}
