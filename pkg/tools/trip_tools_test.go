package tools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripflow/tripflow/pkg/store"
)

func newToolTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "tools.db"))
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func newToolTestContext(t *testing.T, s *store.Store) context.Context {
	t.Helper()
	user, err := s.CreateUser(context.Background(), "traveler@example.com", "hashed-password", "旅行者")
	require.NoError(t, err)
	return WithUserID(context.Background(), user.ID)
}

func TestCreateTripTool(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	tool := NewCreateTripTool(s)

	result, err := tool.Execute(ctx, map[string]interface{}{
		"title":         "北京三日游",
		"destination":   "北京",
		"duration_days": float64(3),
		"budget":        float64(3000),
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "成功创建行程：北京三日游", result.Message)

	data := result.Data.(map[string]interface{})
	tripID := data["trip_id"].(string)
	require.NotEmpty(t, tripID)

	trip, err := s.GetTrip(ctx, tripID, UserIDFromContext(ctx))
	require.NoError(t, err)
	assert.Equal(t, "北京三日游", trip.Title)
	assert.Equal(t, 3, trip.DurationDays)
	require.NotNil(t, trip.BudgetTotal)
	assert.Equal(t, 3000.0, *trip.BudgetTotal)
}

func TestCreateTripToolRequiresUser(t *testing.T) {
	tool := NewCreateTripTool(newToolTestStore(t))

	result, err := tool.Execute(context.Background(), map[string]interface{}{"title": "匿名行程"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "未登录", result.Error)
}

func createToolTestTrip(t *testing.T, s *store.Store, ctx context.Context, budget float64) string {
	t.Helper()
	tool := NewCreateTripTool(s)
	args := map[string]interface{}{
		"title":       "杭州周末游",
		"destination": "杭州",
	}
	if budget > 0 {
		args["budget"] = budget
	}
	result, err := tool.Execute(ctx, args)
	require.NoError(t, err)
	require.True(t, result.Success)
	return result.Data.(map[string]interface{})["trip_id"].(string)
}

func TestAddItineraryItemTool(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	tripID := createToolTestTrip(t, s, ctx, 0)
	tool := NewAddItineraryItemTool(s)

	result, err := tool.Execute(ctx, map[string]interface{}{
		"trip_id":    tripID,
		"day_number": float64(1),
		"name":       "西湖",
		"category":   "attraction",
		"coordinates": map[string]interface{}{
			"lat": 30.2489,
			"lng": 120.1292,
		},
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "成功添加行程节点：西湖", result.Message)

	itineraries, err := s.ListItineraries(ctx, tripID)
	require.NoError(t, err)
	require.Len(t, itineraries, 1)
	require.Len(t, itineraries[0].Items, 1)
	item := itineraries[0].Items[0]
	assert.Equal(t, "西湖", item.Name)
	require.NotNil(t, item.Coordinates)
	assert.InDelta(t, 30.2489, item.Coordinates.Lat, 1e-6)
}

func TestAddItineraryItemToolUnknownTrip(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	tool := NewAddItineraryItemTool(s)

	result, err := tool.Execute(ctx, map[string]interface{}{
		"trip_id":    "no-such-trip",
		"day_number": float64(1),
		"name":       "西湖",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "行程不存在", result.Error)
}

func TestListTripsTool(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	createToolTestTrip(t, s, ctx, 0)
	createToolTestTrip(t, s, ctx, 2000)
	tool := NewListTripsTool(s)

	result, err := tool.Execute(ctx, map[string]interface{}{})
	require.NoError(t, err)
	require.True(t, result.Success)

	data := result.Data.(map[string]interface{})
	assert.Equal(t, 2, data["count"])
	trips := data["trips"].([]map[string]interface{})
	require.Len(t, trips, 2)
	assert.Equal(t, "杭州周末游", trips[0]["title"])
}

func TestListTripsToolEmpty(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	tool := NewListTripsTool(s)

	result, err := tool.Execute(ctx, map[string]interface{}{})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 0, result.Data.(map[string]interface{})["count"])
}
