package common

import (
	"fmt"
	"strings"
	"time"
)

// ActivityLevel 活動量等級
type ActivityLevel string

const (
	ActivitySedentary        ActivityLevel = "sedentary"
	ActivityLightlyActive    ActivityLevel = "lightly_active"
	ActivityModeratelyActive ActivityLevel = "moderately_active"
	ActivityVeryActive       ActivityLevel = "very_active"
	ActivityExtraActive      ActivityLevel = "extra_active"
)

// 常用健康目標標籤
const (
	GoalWeightLoss        = "weight_loss"
	GoalMuscleGain        = "muscle_gain"
	GoalBloodSugarControl = "blood_sugar_control"
	GoalHeartHealth       = "heart_health"
	GoalMaintenance       = "maintenance"
)

// UserProfile 使用者資料，由外部資料來源提供，本服務只讀
type UserProfile struct {
	UserID              string        `json:"user_id,omitempty"`
	Age                 int           `json:"age"`
	Gender              string        `json:"gender"`
	HeightCM            float64       `json:"height_cm"`
	WeightKG            float64       `json:"weight_kg"`
	ActivityLevel       ActivityLevel `json:"activity_level"`
	HealthGoals         []string      `json:"health_goals"`
	DietaryRestrictions []string      `json:"dietary_restrictions"` // 過敏原
	DietaryPreferences  []string      `json:"dietary_preferences"`  // 飲食/宗教規範
	CuisinePreferences  []string      `json:"cuisine_preferences"`  // 依偏好排序
	CookingSkillLevel   string        `json:"cooking_skill_level"`
	Location            string        `json:"location,omitempty"`
	CulturalBackground  string        `json:"cultural_background,omitempty"`
	CulturalPreferences []string      `json:"cultural_preferences,omitempty"`
}

// HasGoal 是否包含指定健康目標（不分大小寫）
func (p UserProfile) HasGoal(goal string) bool {
	return ContainsFold(p.HealthGoals, goal)
}

// HasPreference 是否包含指定飲食偏好（不分大小寫）
func (p UserProfile) HasPreference(pref string) bool {
	return ContainsFold(p.DietaryPreferences, pref)
}

// NutritionTarget 營養目標
type NutritionTarget struct {
	Kcal    int `json:"kcal"`
	Protein int `json:"protein"`
	Carbs   int `json:"carbs"`
	Fat     int `json:"fat"`
}

// MealSlot 餐次
type MealSlot string

const (
	SlotBreakfast MealSlot = "breakfast"
	SlotLunch     MealSlot = "lunch"
	SlotDinner    MealSlot = "dinner"
	SlotSnack     MealSlot = "snack"
)

// MealSlots 固定的餐次順序
var MealSlots = []MealSlot{SlotBreakfast, SlotLunch, SlotDinner, SlotSnack}

// PantryCategory 食材分類
type PantryCategory string

const (
	CategoryProteins   PantryCategory = "proteins"
	CategoryVegetables PantryCategory = "vegetables"
	CategoryFruits     PantryCategory = "fruits"
	CategoryGrains     PantryCategory = "grains"
	CategoryDairy      PantryCategory = "dairy"
	CategorySpices     PantryCategory = "spices"
	CategoryOils       PantryCategory = "oils"
	CategoryOthers     PantryCategory = "others"
)

// PantryCategories 分類的比對順序（先命中者優先）
var PantryCategories = []PantryCategory{
	CategoryProteins,
	CategoryVegetables,
	CategoryFruits,
	CategoryGrains,
	CategoryDairy,
	CategorySpices,
	CategoryOils,
	CategoryOthers,
}

// Valid 是否為已知分類
func (c PantryCategory) Valid() bool {
	for _, known := range PantryCategories {
		if c == known {
			return true
		}
	}
	return false
}

// NutritionalInfo 每單位營養資訊
type NutritionalInfo struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// PantryItem 食材庫存
type PantryItem struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Category        PantryCategory   `json:"category,omitempty"`
	Quantity        float64          `json:"quantity"`
	Unit            string           `json:"unit"`
	ExpirationDate  *time.Time       `json:"expiration_date,omitempty"`
	NutritionalInfo *NutritionalInfo `json:"nutritional_info,omitempty"`
}

// Meal 單餐
type Meal struct {
	MealType         MealSlot `json:"meal_type"`
	Name             string   `json:"name"`
	Ingredients      []string `json:"ingredients"`
	Instructions     []string `json:"instructions"`
	Calories         int      `json:"calories"`
	Protein          int      `json:"protein"`
	Carbs            int      `json:"carbs"`
	Fat              int      `json:"fat"`
	PrepTime         int      `json:"prep_time"`
	CookTime         int      `json:"cook_time"`
	Difficulty       string   `json:"difficulty"`
	CuisineType      string   `json:"cuisine_type"`
	DietaryTags      []string `json:"dietary_tags"`
	PantryMatchScore int      `json:"pantry_match_score"`
}

// MealPlan 一日餐食計畫，以 {userId, date} 識別
type MealPlan struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Date          string          `json:"date"`
	Meals         []Meal          `json:"meals"`
	TotalCalories int             `json:"total_calories"`
	TotalProtein  int             `json:"total_protein"`
	TotalCarbs    int             `json:"total_carbs"`
	TotalFat      int             `json:"total_fat"`
	Source        string          `json:"source"` // "pantry" 或 "fallback"
	Targets       NutritionTarget `json:"targets"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PlanID 計畫主鍵
func PlanID(userID, date string) string {
	return fmt.Sprintf("plan_%s_%s", userID, date)
}

// RecomputeTotals 以餐點欄位重新加總營養素
func (p *MealPlan) RecomputeTotals() {
	p.TotalCalories, p.TotalProtein, p.TotalCarbs, p.TotalFat = 0, 0, 0, 0
	for _, m := range p.Meals {
		p.TotalCalories += m.Calories
		p.TotalProtein += m.Protein
		p.TotalCarbs += m.Carbs
		p.TotalFat += m.Fat
	}
}

// NormalizeTag 轉小寫並去除前後空白
func NormalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeTags 正規化並去除重複，保留第一次出現的順序
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// ContainsFold 切片中是否存在不分大小寫相等的字串
func ContainsFold(items []string, target string) bool {
	target = NormalizeTag(target)
	for _, it := range items {
		if NormalizeTag(it) == target {
			return true
		}
	}
	return false
}

// ContainsAny 字串是否包含任一關鍵字（不分大小寫的子字串比對）
func ContainsAny(s string, keywords []string) bool {
	s = strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
