package planner

import (
	"context"
	"fmt"
	"time"

	"nutrition-engine/internal/core/nutrition"
	"nutrition-engine/internal/core/pantry"
	"nutrition-engine/internal/core/policy"
	"nutrition-engine/internal/pkg/common"

	"go.uber.org/zap"
)

// DateLayout 計畫日期格式
const DateLayout = "2006-01-02"

const (
	SourcePantry   = "pantry"
	SourceFallback = "fallback"
)

// ProfileStore 使用者資料來源（唯讀）
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (common.UserProfile, error)
}

// PantryStore 食材庫存來源，只回傳數量大於 0 的食材
type PantryStore interface {
	ListPantryItems(ctx context.Context, userID string) ([]common.PantryItem, error)
}

// PlanStore 餐食計畫儲存，以 {userId, date} 為鍵
type PlanStore interface {
	UpsertPlan(ctx context.Context, plan common.MealPlan) error
	GetPlan(ctx context.Context, userID, date string) (common.MealPlan, error)
}

// Recorder 規劃結果事件，供指標使用
type Recorder interface {
	PlanGenerated(source string)
	PlanFailed(stage string)
	PlanPersistFailed()
}

// PlanResult 規劃結果；失敗時 Success 為 false 並附上訊息
type PlanResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Plan    *common.MealPlan `json:"plan,omitempty"`
}

// 每個庫存餐點固定的匹配分數
var pantryMatchScores = map[common.MealSlot]int{
	common.SlotBreakfast: 85,
	common.SlotLunch:     80,
	common.SlotDinner:    75,
	common.SlotSnack:     90,
}

// Planner 智慧餐食規劃器
type Planner struct {
	profiles     ProfileStore
	pantry       PantryStore
	plans        PlanStore
	includeSnack bool
	now          func() time.Time
	recorder     Recorder
}

// Option Planner 設定
type Option func(*Planner)

// WithSnack 是否在計畫中包含點心
func WithSnack(include bool) Option {
	return func(p *Planner) { p.includeSnack = include }
}

// WithClock 注入時鐘
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRecorder 注入指標記錄器
func WithRecorder(r Recorder) Option {
	return func(p *Planner) { p.recorder = r }
}

// NewPlanner 創建規劃器
func NewPlanner(profiles ProfileStore, pantryStore PantryStore, plans PlanStore, opts ...Option) *Planner {
	p := &Planner{
		profiles:     profiles,
		pantry:       pantryStore,
		plans:        plans,
		includeSnack: true,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateSmartMealPlan 載入資料、分析庫存、組出計畫並儲存；所有錯誤都轉為 Success=false 的結果
func (p *Planner) GenerateSmartMealPlan(ctx context.Context, userID, date string) PlanResult {
	if date == "" {
		date = p.now().Format(DateLayout)
	}

	profile, err := p.profiles.GetProfile(ctx, userID)
	if err != nil {
		return p.fail("profile", userID, fmt.Errorf("failed to load profile: %w", err))
	}
	if profile.UserID == "" {
		profile.UserID = userID
	}

	items, err := p.pantry.ListPantryItems(ctx, userID)
	if err != nil {
		return p.fail("pantry", userID, fmt.Errorf("failed to load pantry: %w", err))
	}

	targets := nutrition.Calculate(profile)
	analysis := pantry.GenerateMealCombinations(items, profile.DietaryRestrictions, profile.DietaryPreferences)

	plan := common.MealPlan{
		ID:        common.PlanID(userID, date),
		UserID:    userID,
		Date:      date,
		Targets:   targets.Target,
		CreatedAt: p.now().UTC(),
	}
	if analysis.EnoughForPantryPlan() {
		plan.Source = SourcePantry
		plan.Meals = p.pantryMeals(profile, targets.Target, analysis)
	} else {
		plan.Source = SourceFallback
		plan.Meals = fallbackMeals(profile)
		common.LogInfo("庫存組合不足，使用備用計畫",
			zap.String("user_id", userID),
			zap.Int("combinations", analysis.TotalCombinations),
		)
	}
	plan.RecomputeTotals()
	if p.recorder != nil {
		p.recorder.PlanGenerated(plan.Source)
	}

	result := PlanResult{Success: true, Plan: &plan}
	if err := p.plans.UpsertPlan(ctx, plan); err != nil {
		common.LogError("餐食計畫儲存失敗",
			zap.String("user_id", userID),
			zap.String("date", date),
			zap.Error(err),
		)
		if p.recorder != nil {
			p.recorder.PlanPersistFailed()
		}
		result.Message = "plan generated but could not be saved"
		return result
	}

	common.LogInfo("餐食計畫已產生",
		zap.String("user_id", userID),
		zap.String("date", date),
		zap.String("source", plan.Source),
		zap.Int("meals", len(plan.Meals)),
	)
	return result
}

// GetPlan 讀取已儲存的計畫
func (p *Planner) GetPlan(ctx context.Context, userID, date string) (common.MealPlan, error) {
	return p.plans.GetPlan(ctx, userID, date)
}

func (p *Planner) fail(stage, userID string, err error) PlanResult {
	common.LogError("餐食計畫產生失敗",
		zap.String("stage", stage),
		zap.String("user_id", userID),
		zap.Error(err),
	)
	if p.recorder != nil {
		p.recorder.PlanFailed(stage)
	}
	return PlanResult{Success: false, Message: err.Error()}
}

func (p *Planner) pantryMeals(profile common.UserProfile, daily common.NutritionTarget, analysis pantry.Analysis) []common.Meal {
	split := policy.SplitTargetsPerMeal(daily, p.includeSnack)
	skill := common.NormalizeTag(profile.CookingSkillLevel)
	maxCook := policy.MaxCookTime(skill)
	cuisine := policy.PrimaryCuisine(profile)
	tags := common.NormalizeTags(profile.DietaryPreferences)

	var meals []common.Meal
	for _, slot := range policy.Slots(p.includeSnack) {
		combos := analysis.Combinations[slot]
		if len(combos) == 0 {
			continue
		}
		combo := combos[0]
		t := split(slot)
		meals = append(meals, common.Meal{
			MealType:         slot,
			Name:             combo.Name,
			Ingredients:      append([]string(nil), combo.Ingredients...),
			Instructions:     instructionsFor(combo),
			Calories:         t.Kcal,
			Protein:          t.Protein,
			Carbs:            t.Carbs,
			Fat:              t.Fat,
			PrepTime:         prepTime(slot),
			CookTime:         cookTime(slot, maxCook),
			Difficulty:       difficultyFor(skill),
			CuisineType:      cuisine,
			DietaryTags:      tags,
			PantryMatchScore: pantryMatchScores[slot],
		})
	}
	return meals
}

func instructionsFor(c pantry.Combination) []string {
	steps := []string{fmt.Sprintf("Prepare %s.", common.JoinList(c.Ingredients))}
	switch c.MealType {
	case common.SlotBreakfast, common.SlotSnack:
		steps = append(steps, "Combine and serve fresh.")
	default:
		steps = append(steps, "Cook the protein and vegetables until done.", "Season to taste and serve.")
	}
	return steps
}

func prepTime(slot common.MealSlot) int {
	switch slot {
	case common.SlotBreakfast, common.SlotSnack:
		return 5
	default:
		return 10
	}
}

func cookTime(slot common.MealSlot, limit int) int {
	var t int
	switch slot {
	case common.SlotSnack:
		return 0
	case common.SlotBreakfast:
		t = 5
	case common.SlotLunch:
		t = 20
	default:
		t = 30
	}
	if t > limit {
		return limit
	}
	return t
}

func difficultyFor(skill string) string {
	switch skill {
	case "beginner":
		return "easy"
	case "advanced":
		return "hard"
	default:
		return "medium"
	}
}

// fallbackMeals 庫存不足時的固定兩餐計畫；主餐避開飲食規範禁用的食材
func fallbackMeals(profile common.UserProfile) []common.Meal {
	diet := policy.CompileDietPolicy(profile.DietaryPreferences)

	breakfast := common.Meal{
		MealType:     common.SlotBreakfast,
		Name:         "Overnight Oats with Berries",
		Ingredients:  []string{"rolled oats", "mixed berries", "chia seeds", "oat milk"},
		Instructions: []string{"Combine oats, chia seeds and oat milk.", "Refrigerate overnight.", "Top with berries."},
		Calories:     350,
		Protein:      12,
		Carbs:        55,
		Fat:          9,
		PrepTime:     5,
		CookTime:     0,
		Difficulty:   "easy",
		CuisineType:  "american",
		DietaryTags:  []string{"vegan", "vegetarian"},
	}

	lunch := common.Meal{
		MealType:     common.SlotLunch,
		Name:         "Grilled Chicken Salad",
		Ingredients:  []string{"chicken breast", "mixed greens", "cherry tomatoes", "cucumber", "olive oil"},
		Instructions: []string{"Grill the chicken breast.", "Toss greens and vegetables with olive oil.", "Slice chicken over the salad."},
		Calories:     450,
		Protein:      38,
		Carbs:        15,
		Fat:          26,
		PrepTime:     10,
		CookTime:     15,
		Difficulty:   "easy",
		CuisineType:  "mediterranean",
		DietaryTags:  []string{"high_protein", "low_carb"},
	}
	if diet.Forbids(lunch.Ingredients[0]) {
		lunch = common.Meal{
			MealType:     common.SlotLunch,
			Name:         "Chickpea Quinoa Salad",
			Ingredients:  []string{"chickpeas", "quinoa", "mixed greens", "cucumber", "olive oil"},
			Instructions: []string{"Cook the quinoa.", "Toss with chickpeas, greens and cucumber.", "Dress with olive oil."},
			Calories:     460,
			Protein:      18,
			Carbs:        58,
			Fat:          17,
			PrepTime:     10,
			CookTime:     15,
			Difficulty:   "easy",
			CuisineType:  "mediterranean",
			DietaryTags:  []string{"vegan", "vegetarian"},
		}
	}
	return []common.Meal{breakfast, lunch}
}
