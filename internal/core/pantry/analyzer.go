package pantry

import (
	"fmt"
	"time"

	"nutrition-engine/internal/pkg/common"
)

const (
	// ExpiringWithin 視為即將過期的天數
	ExpiringWithin = 3 * 24 * time.Hour
	// LowStockQuantity 視為庫存偏低的數量上限
	LowStockQuantity = 2.0
	// MinCombinationsForPantryPlan 少於此數量時改用備用計畫
	MinCombinationsForPantryPlan = 3
)

// Combination 由庫存食材組成的餐點模板
type Combination struct {
	MealType    common.MealSlot         `json:"meal_type"`
	Name        string                  `json:"name"`
	Ingredients []string                `json:"ingredients"`
	Categories  []common.PantryCategory `json:"categories"`
}

// Analysis 食材組合分析結果
type Analysis struct {
	Combinations      map[common.MealSlot][]Combination `json:"combinations"`
	Categorized       Categorized                       `json:"categorized"`
	TotalCombinations int                               `json:"total_combinations"`
}

// template 一個餐次的組合模板，requires 的分類必須都有食材
type template struct {
	requires []common.PantryCategory
	name     func(c Categorized) string
}

// 每個餐次依序嘗試的模板，最多採用一個
var slotTemplates = map[common.MealSlot][]template{
	common.SlotBreakfast: {
		{
			requires: []common.PantryCategory{common.CategoryDairy, common.CategoryFruits},
			name: func(c Categorized) string {
				return fmt.Sprintf("%s with %s", first(c, common.CategoryDairy), first(c, common.CategoryFruits))
			},
		},
		{
			requires: []common.PantryCategory{common.CategoryGrains, common.CategoryFruits},
			name: func(c Categorized) string {
				return fmt.Sprintf("%s bowl with %s", first(c, common.CategoryGrains), first(c, common.CategoryFruits))
			},
		},
	},
	common.SlotLunch: {
		{
			requires: []common.PantryCategory{common.CategoryProteins, common.CategoryVegetables},
			name: func(c Categorized) string {
				return fmt.Sprintf("%s and %s salad", first(c, common.CategoryProteins), first(c, common.CategoryVegetables))
			},
		},
		{
			requires: []common.PantryCategory{common.CategoryGrains, common.CategoryVegetables},
			name: func(c Categorized) string {
				return fmt.Sprintf("%s with sauteed %s", first(c, common.CategoryGrains), first(c, common.CategoryVegetables))
			},
		},
	},
	common.SlotDinner: {
		{
			requires: []common.PantryCategory{common.CategoryProteins, common.CategoryVegetables, common.CategoryGrains},
			name: func(c Categorized) string {
				return fmt.Sprintf("%s with %s and %s", first(c, common.CategoryProteins), first(c, common.CategoryVegetables), first(c, common.CategoryGrains))
			},
		},
		{
			requires: []common.PantryCategory{common.CategoryProteins, common.CategoryVegetables},
			name: func(c Categorized) string {
				return fmt.Sprintf("Roasted %s with %s", first(c, common.CategoryProteins), first(c, common.CategoryVegetables))
			},
		},
	},
	common.SlotSnack: {
		{
			requires: []common.PantryCategory{common.CategoryFruits},
			name: func(c Categorized) string {
				return fmt.Sprintf("Fresh %s", first(c, common.CategoryFruits))
			},
		},
		{
			requires: []common.PantryCategory{common.CategoryDairy},
			name: func(c Categorized) string {
				return fmt.Sprintf("%s snack", first(c, common.CategoryDairy))
			},
		},
	},
}

func first(c Categorized, cat common.PantryCategory) string {
	return c[cat][0].Name
}

// GenerateMealCombinations 過濾過敏原與飲食偏好後分類，每個餐次最多產生一個組合
func GenerateMealCombinations(items []common.PantryItem, allergies, preferences []string) Analysis {
	safe := FilterByDietaryPreferences(FilterByAllergies(items, allergies), preferences)
	categorized := CategorizePantryItems(safe)

	analysis := Analysis{
		Combinations: make(map[common.MealSlot][]Combination, len(common.MealSlots)),
		Categorized:  categorized,
	}
	for _, slot := range common.MealSlots {
		analysis.Combinations[slot] = []Combination{}
		for _, tpl := range slotTemplates[slot] {
			if !hasAll(categorized, tpl.requires) {
				continue
			}
			analysis.Combinations[slot] = append(analysis.Combinations[slot], Combination{
				MealType:    slot,
				Name:        tpl.name(categorized),
				Ingredients: ingredientsFor(categorized, tpl.requires),
				Categories:  append([]common.PantryCategory(nil), tpl.requires...),
			})
			analysis.TotalCombinations++
			break
		}
	}
	return analysis
}

// EnoughForPantryPlan 組合數是否足以產生庫存導向的計畫
func (a Analysis) EnoughForPantryPlan() bool {
	return a.TotalCombinations >= MinCombinationsForPantryPlan
}

func hasAll(c Categorized, cats []common.PantryCategory) bool {
	for _, cat := range cats {
		if !c.Has(cat) {
			return false
		}
	}
	return true
}

func ingredientsFor(c Categorized, cats []common.PantryCategory) []string {
	out := make([]string, 0, len(cats)+1)
	for _, cat := range cats {
		out = append(out, first(c, cat))
	}
	if c.Has(common.CategorySpices) {
		out = append(out, first(c, common.CategorySpices))
	}
	if c.Has(common.CategoryOils) {
		out = append(out, first(c, common.CategoryOils))
	}
	return out
}

// StockRecommendations 庫存建議
type StockRecommendations struct {
	ExpiringSoon []common.PantryItem `json:"expiring_soon"`
	LowStock     []common.PantryItem `json:"low_stock"`
	UseFirst     []common.PantryItem `json:"use_first"`
}

// GetStockBasedRecommendations 找出 3 天內過期與數量 ≤ 2 的食材，UseFirst 為兩者聯集（依 ID 或名稱去重）
func GetStockBasedRecommendations(items []common.PantryItem, now time.Time) StockRecommendations {
	recs := StockRecommendations{
		ExpiringSoon: []common.PantryItem{},
		LowStock:     []common.PantryItem{},
		UseFirst:     []common.PantryItem{},
	}
	deadline := now.Add(ExpiringWithin)
	seen := make(map[string]bool)
	add := func(item common.PantryItem) {
		key := item.ID
		if key == "" {
			key = "name:" + common.NormalizeTag(item.Name)
		}
		if seen[key] {
			return
		}
		seen[key] = true
		recs.UseFirst = append(recs.UseFirst, item)
	}

	for _, item := range items {
		if exp := item.ExpirationDate; exp != nil && !exp.Before(now) && !exp.After(deadline) {
			recs.ExpiringSoon = append(recs.ExpiringSoon, item)
			add(item)
		}
	}
	for _, item := range items {
		if item.Quantity <= LowStockQuantity {
			recs.LowStock = append(recs.LowStock, item)
			add(item)
		}
	}
	return recs
}
