package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"nutrition-engine/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProfileRoundTripAndUpsert(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrProfileNotFound)

	p := common.UserProfile{UserID: "u1", Age: 30, Gender: "female", CuisinePreferences: []string{"thai"}}
	require.NoError(t, s.UpsertProfile(ctx, p))

	p.Age = 31
	require.NoError(t, s.UpsertProfile(ctx, p))

	got, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 31, got.Age)
	assert.Equal(t, []string{"thai"}, got.CuisinePreferences)

	err = s.UpsertProfile(ctx, common.UserProfile{})
	assert.True(t, common.IsValidationError(err))
}

func TestPantryItems(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	expires := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	saved, err := s.AddPantryItems(ctx, "u1", []common.PantryItem{
		{Name: "chicken breast", Quantity: 2, Unit: "pcs", ExpirationDate: &expires},
		{Name: "rice", Quantity: 0, Unit: "kg"},
		{Name: "mystery", Category: common.CategorySpices, Quantity: 1, Unit: "jar",
			NutritionalInfo: &common.NutritionalInfo{Calories: 5}},
	})
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.NotEmpty(t, saved[0].ID)
	assert.Equal(t, common.CategoryProteins, saved[0].Category)

	_, err = s.AddPantryItems(ctx, "u2", []common.PantryItem{{Name: "apple", Quantity: 3}})
	require.NoError(t, err)

	items, err := s.ListPantryItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "chicken breast", items[0].Name)
	require.NotNil(t, items[0].ExpirationDate)
	assert.True(t, expires.Equal(*items[0].ExpirationDate))
	assert.Equal(t, common.CategorySpices, items[1].Category)
	require.NotNil(t, items[1].NutritionalInfo)
	assert.Equal(t, 5.0, items[1].NutritionalInfo.Calories)

	_, err = s.AddPantryItems(ctx, "u1", []common.PantryItem{{Quantity: 1}})
	assert.True(t, common.IsValidationError(err))
}

func TestPantryItemIDsAreScopedPerUser(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.AddPantryItems(ctx, "alice", []common.PantryItem{{ID: "1", Name: "Milk", Quantity: 3, Unit: "l"}})
	require.NoError(t, err)
	_, err = s.AddPantryItems(ctx, "bob", []common.PantryItem{{ID: "1", Name: "Bacon", Quantity: 0}})
	require.NoError(t, err)

	alice, err := s.ListPantryItems(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	assert.Equal(t, "Milk", alice[0].Name)
	assert.Equal(t, 3.0, alice[0].Quantity)

	bob, err := s.ListPantryItems(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bob)

	// 同一使用者重送相同 ID 則覆寫
	_, err = s.AddPantryItems(ctx, "alice", []common.PantryItem{{ID: "1", Name: "Milk", Quantity: 1, Unit: "l"}})
	require.NoError(t, err)
	alice, err = s.ListPantryItems(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	assert.Equal(t, 1.0, alice[0].Quantity)
}

func TestPlanUpsertByUserAndDate(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetPlan(ctx, "u1", "2026-01-01")
	assert.ErrorIs(t, err, common.ErrPlanNotFound)

	plan := common.MealPlan{UserID: "u1", Date: "2026-01-01", Source: "fallback",
		Meals: []common.Meal{{MealType: common.SlotBreakfast, Name: "Oats", Calories: 350}}}
	plan.RecomputeTotals()
	require.NoError(t, s.UpsertPlan(ctx, plan))

	plan.Meals = append(plan.Meals, common.Meal{MealType: common.SlotLunch, Name: "Salad", Calories: 450})
	plan.RecomputeTotals()
	require.NoError(t, s.UpsertPlan(ctx, plan))

	got, err := s.GetPlan(ctx, "u1", "2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, common.PlanID("u1", "2026-01-01"), got.ID)
	assert.Len(t, got.Meals, 2)
	assert.Equal(t, 800, got.TotalCalories)

	require.NoError(t, s.Ping(ctx))
}
