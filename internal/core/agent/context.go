package agent

import (
	"context"

	"nutrition-engine/internal/core/nutrition"
	"nutrition-engine/internal/core/policy"
	"nutrition-engine/internal/pkg/common"
)

// 辣度
const (
	SpiceMild   = "mild"
	SpiceMedium = "medium"
	SpiceHot    = "hot"
)

// 道地程度
const (
	AuthenticityAuthentic = "authentic"
	AuthenticityModerate  = "moderate"
	AuthenticityFlexible  = "flexible"
)

var (
	spicyCuisines = []string{"thai", "indian", "mexican", "korean", "sichuan", "szechuan", "ethiopian", "cajun", "jamaican", "peruvian", "malaysian", "indonesian"}
	mildCuisines  = []string{"japanese", "french", "british", "german", "scandinavian", "nordic", "american"}
)

// goalPriorities 健康目標對應的重點與應避免的食材類型
var goalPriorities = map[string]struct {
	focus []string
	avoid []string
}{
	common.GoalBloodSugarControl: {focus: []string{"low_glycemic", "high_fiber"}, avoid: []string{"high_sugar", "refined_carbs"}},
	common.GoalHeartHealth:       {focus: []string{"heart_healthy", "omega_3"}, avoid: []string{"high_sodium", "trans_fat", "processed_meat"}},
	common.GoalWeightLoss:        {focus: []string{"calorie_deficit", "high_satiety"}, avoid: []string{"fried_food", "sugary_drinks"}},
	common.GoalMuscleGain:        {focus: []string{"high_protein", "post_workout_carbs"}, avoid: []string{}},
}

// UserContext 產生提示詞用的使用者分析結果
type UserContext struct {
	UserID            string                 `json:"user_id,omitempty"`
	BMR               float64                `json:"bmr"`
	TDEE              float64                `json:"tdee"`
	DailyTarget       common.NutritionTarget `json:"daily_target"`
	HealthPriorities  []string               `json:"health_priorities"`
	AvoidTypes        []string               `json:"avoid_types"`
	RiskFactors       []string               `json:"risk_factors"`
	PrimaryCuisine    string                 `json:"primary_cuisine"`
	PreferredCuisines []string               `json:"preferred_cuisines"`
	SpiceLevel        string                 `json:"spice_level"`
	AuthenticityLevel string                 `json:"authenticity_level"`
	SkillLevel        string                 `json:"skill_level"`
	MaxCookTime       int                    `json:"max_cook_time"`
	Adventurousness   string                 `json:"adventurousness"`
}

// ContextAnalyzer 使用者情境分析器
type ContextAnalyzer struct {
	cultural CulturalIntelligence
}

// NewContextAnalyzer 創建分析器；ci 為 nil 時使用規則式實作
func NewContextAnalyzer(ci CulturalIntelligence) *ContextAnalyzer {
	if ci == nil {
		ci = RuleBasedCulturalIntelligence{}
	}
	return &ContextAnalyzer{cultural: ci}
}

// Analyze 分析使用者資料；熱量計算與 nutrition 套件共用同一組公式
func (a *ContextAnalyzer) Analyze(ctx context.Context, p common.UserProfile) UserContext {
	calc := nutrition.Calculate(p)
	priorities, avoid := HealthPriorities(p.HealthGoals)
	skill := common.NormalizeTag(p.CookingSkillLevel)
	if skill == "" {
		skill = "intermediate"
	}

	return UserContext{
		UserID:            p.UserID,
		BMR:               calc.BMR,
		TDEE:              calc.TDEE,
		DailyTarget:       calc.Target,
		HealthPriorities:  priorities,
		AvoidTypes:        avoid,
		RiskFactors:       RiskFactors(p),
		PrimaryCuisine:    a.cultural.IdentifyPrimaryCuisine(ctx, p),
		PreferredCuisines: common.NormalizeTags(p.CuisinePreferences),
		SpiceLevel:        SpiceLevel(p.CuisinePreferences),
		AuthenticityLevel: a.cultural.DetectAuthenticity(ctx, p),
		SkillLevel:        skill,
		MaxCookTime:       policy.MaxCookTime(skill),
		Adventurousness:   Adventurousness(p.CuisinePreferences),
	}
}

// HealthPriorities 依健康目標整理重點與應避免的類型
func HealthPriorities(goals []string) (focus, avoid []string) {
	focus, avoid = []string{}, []string{}
	for _, g := range common.NormalizeTags(goals) {
		entry, ok := goalPriorities[g]
		if !ok {
			continue
		}
		focus = appendUnique(focus, entry.focus...)
		avoid = appendUnique(avoid, entry.avoid...)
	}
	return focus, avoid
}

// RiskFactors 由生理資料推斷的風險因子
func RiskFactors(p common.UserProfile) []string {
	risks := []string{}
	if p.HeightCM > 0 && p.WeightKG > 0 {
		m := p.HeightCM / 100
		bmi := p.WeightKG / (m * m)
		switch {
		case bmi >= 30:
			risks = append(risks, "obesity")
		case bmi >= 25:
			risks = append(risks, "overweight")
		case bmi < 18.5:
			risks = append(risks, "underweight")
		}
	}
	if p.Age >= 65 {
		risks = append(risks, "senior")
	}
	if p.HasGoal(common.GoalBloodSugarControl) {
		risks = append(risks, "glycemic_sensitivity")
	}
	if p.HasGoal(common.GoalHeartHealth) {
		risks = append(risks, "cardiovascular")
	}
	return risks
}

// SpiceLevel 以偏好料理中的辛辣/溫和料理數量推斷辣度
func SpiceLevel(cuisines []string) string {
	spicy, mild := 0, 0
	for _, c := range common.NormalizeTags(cuisines) {
		switch {
		case common.ContainsFold(spicyCuisines, c):
			spicy++
		case common.ContainsFold(mildCuisines, c):
			mild++
		}
	}
	switch {
	case spicy >= 2 && spicy > mild:
		return SpiceHot
	case spicy >= 1:
		return SpiceMedium
	default:
		return SpiceMild
	}
}

// AuthenticityFromCount 偏好料理越少越講究道地
func AuthenticityFromCount(n int) string {
	switch {
	case n == 1:
		return AuthenticityAuthentic
	case n == 2 || n == 3:
		return AuthenticityModerate
	default:
		return AuthenticityFlexible
	}
}

// Adventurousness 偏好料理越多越願意嘗試
func Adventurousness(cuisines []string) string {
	switch n := len(common.NormalizeTags(cuisines)); {
	case n >= 4:
		return "high"
	case n >= 2:
		return "medium"
	default:
		return "low"
	}
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		if !common.ContainsFold(dst, it) {
			dst = append(dst, it)
		}
	}
	return dst
}
