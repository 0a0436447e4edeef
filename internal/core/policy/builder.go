package policy

import (
	"math"

	"nutrition-engine/internal/core/nutrition"
	"nutrition-engine/internal/pkg/common"
)

const (
	// PreferredCuisineShare 已選料理共享的權重，其餘留作探索
	PreferredCuisineShare = 0.8
	// KcalTolerance 熱量硬性上下限相對目標的比例
	KcalTolerance = 0.10
)

// 烹飪技巧對應的最長烹調時間（分鐘）
var maxCookTimeBySkill = map[string]int{
	"beginner":     30,
	"intermediate": 45,
	"advanced":     60,
}

const defaultMaxCookTime = 45

// KcalBounds 熱量硬性上下限
type KcalBounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// HardConstraints 不可違反的限制
type HardConstraints struct {
	Allergens []string   `json:"allergens"`
	DietRules []string   `json:"diet_rules"`
	Kcal      KcalBounds `json:"kcal"`
}

// SoftPreferences 排序用的偏好
type SoftPreferences struct {
	CuisineWeights  map[string]float64 `json:"cuisine_weights"`
	ExploreRate     float64            `json:"explore_rate"`
	VaryCookMethods bool               `json:"vary_cook_methods"`
	PantryFirst     bool               `json:"pantry_first"`
}

// UserConstraints 使用者能力限制
type UserConstraints struct {
	SkillLevel  string `json:"skill_level"`
	MaxCookTime int    `json:"max_cook_time"`
}

// MealPolicy 單次規劃請求使用的完整規則
type MealPolicy struct {
	Hard         HardConstraints                            `json:"hard"`
	Soft         SoftPreferences                            `json:"soft"`
	User         UserConstraints                            `json:"user"`
	Targets      common.NutritionTarget                     `json:"targets"`
	PerMeal      map[common.MealSlot]common.NutritionTarget `json:"per_meal"`
	Diet         *CompiledDiet                              `json:"compiled_diet,omitempty"`
	Cultural     *CulturalProfile                           `json:"cultural_profile,omitempty"`
	Hierarchical *HierarchicalConstraints                   `json:"hierarchical_constraints,omitempty"`
}

// BuildMealPolicy 由使用者資料組出 MealPolicy；相同輸入必定得到相同結果
func BuildMealPolicy(p common.UserProfile) MealPolicy {
	return BuildMealPolicyFor(p, PrimaryCuisine(p))
}

// BuildMealPolicyFor 同 BuildMealPolicy，但文化與層級限制以指定的主要料理為準
func BuildMealPolicyFor(p common.UserProfile, primaryCuisine string) MealPolicy {
	result := nutrition.Calculate(p)
	diet := CompileDietPolicy(p.DietaryPreferences)
	cultural := BuildCulturalProfileFor(p, primaryCuisine)
	hierarchy := BuildHierarchicalConstraints(p, cultural)
	weights, explore := CuisineWeights(p.CuisinePreferences)
	skill := normalizeSkill(p.CookingSkillLevel)

	return MealPolicy{
		Hard: HardConstraints{
			Allergens: common.NormalizeTags(p.DietaryRestrictions),
			DietRules: diet.Picked,
			Kcal:      KcalBoundsFor(result.Target.Kcal),
		},
		Soft: SoftPreferences{
			CuisineWeights:  weights,
			ExploreRate:     explore,
			VaryCookMethods: true,
			PantryFirst:     true,
		},
		User: UserConstraints{
			SkillLevel:  skill,
			MaxCookTime: MaxCookTime(skill),
		},
		Targets:      result.Target,
		PerMeal:      result.PerMeal,
		Diet:         &diet,
		Cultural:     &cultural,
		Hierarchical: &hierarchy,
	}
}

// CuisineWeights 將 PreferredCuisineShare 平均分給 N 個料理，回傳權重與探索比例；沒有偏好時全部留作探索
func CuisineWeights(cuisines []string) (map[string]float64, float64) {
	picked := common.NormalizeTags(cuisines)
	weights := make(map[string]float64, len(picked))
	if len(picked) == 0 {
		return weights, 1.0
	}
	each := PreferredCuisineShare / float64(len(picked))
	for _, c := range picked {
		weights[c] = each
	}
	return weights, 1 - PreferredCuisineShare
}

// KcalBoundsFor 目標熱量 ±10%
func KcalBoundsFor(kcal int) KcalBounds {
	k := float64(kcal)
	return KcalBounds{
		Min: int(math.Round(k * (1 - KcalTolerance))),
		Max: int(math.Round(k * (1 + KcalTolerance))),
	}
}

func normalizeSkill(skill string) string {
	s := common.NormalizeTag(skill)
	if _, ok := maxCookTimeBySkill[s]; ok {
		return s
	}
	return "intermediate"
}

// MaxCookTime 依烹飪技巧取得最長烹調時間
func MaxCookTime(skill string) int {
	if t, ok := maxCookTimeBySkill[common.NormalizeTag(skill)]; ok {
		return t
	}
	return defaultMaxCookTime
}

var (
	slotWeightsWithSnack = map[common.MealSlot]float64{
		common.SlotBreakfast: 0.25, common.SlotLunch: 0.35, common.SlotDinner: 0.35, common.SlotSnack: 0.05,
	}
	slotWeightsNoSnack = map[common.MealSlot]float64{
		common.SlotBreakfast: 0.30, common.SlotLunch: 0.35, common.SlotDinner: 0.35,
	}
)

// SplitTargetsPerMeal 回傳餐次到營養目標的函式；未列入權重表的餐次得到零值
func SplitTargetsPerMeal(targets common.NutritionTarget, includeSnack bool) func(common.MealSlot) common.NutritionTarget {
	weights := slotWeightsNoSnack
	if includeSnack {
		weights = slotWeightsWithSnack
	}
	return func(slot common.MealSlot) common.NutritionTarget {
		w, ok := weights[slot]
		if !ok {
			return common.NutritionTarget{}
		}
		return nutrition.Scale(targets, w)
	}
}

// Slots 依是否包含點心回傳餐次
func Slots(includeSnack bool) []common.MealSlot {
	if includeSnack {
		return append([]common.MealSlot(nil), common.MealSlots...)
	}
	return []common.MealSlot{common.SlotBreakfast, common.SlotLunch, common.SlotDinner}
}
