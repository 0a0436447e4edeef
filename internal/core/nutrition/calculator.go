package nutrition

import (
	"math"

	"nutrition-engine/internal/pkg/common"
)

const (
	// DefaultBMR 生物資料缺漏時使用的基礎代謝率
	DefaultBMR = 1800.0
	// DefaultActivityMultiplier 未知活動量時使用的係數
	DefaultActivityMultiplier = 1.4

	MinTargetKcal = 1200
	MaxTargetKcal = 4000

	KcalPerGramProtein = 4
	KcalPerGramCarbs   = 4
	KcalPerGramFat     = 9
)

// activityMultipliers 唯一的活動量係數表，所有計算路徑共用
var activityMultipliers = map[common.ActivityLevel]float64{
	common.ActivitySedentary:        1.2,
	common.ActivityLightlyActive:    1.375,
	common.ActivityModeratelyActive: 1.55,
	common.ActivityVeryActive:       1.725,
	common.ActivityExtraActive:      1.9,
}

// MacroRatio 以熱量比例表示的三大營養素分配
type MacroRatio struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

var (
	defaultRatio    = MacroRatio{Protein: 0.20, Carbs: 0.50, Fat: 0.30}
	muscleGainRatio = MacroRatio{Protein: 0.30, Carbs: 0.45, Fat: 0.25}
	weightLossRatio = MacroRatio{Protein: 0.30, Carbs: 0.40, Fat: 0.30}
	ketoRatio       = MacroRatio{Protein: 0.25, Carbs: 0.05, Fat: 0.70}
)

// Distribution 每個餐次佔全日熱量的比例
type Distribution map[common.MealSlot]float64

var (
	defaultDistribution = Distribution{
		common.SlotBreakfast: 0.25, common.SlotLunch: 0.35, common.SlotDinner: 0.35, common.SlotSnack: 0.05,
	}
	weightLossDistribution = Distribution{
		common.SlotBreakfast: 0.30, common.SlotLunch: 0.40, common.SlotDinner: 0.25, common.SlotSnack: 0.05,
	}
	activeDistribution = Distribution{
		common.SlotBreakfast: 0.25, common.SlotLunch: 0.30, common.SlotDinner: 0.35, common.SlotSnack: 0.10,
	}
)

// Result 營養計算結果
type Result struct {
	BMR          float64                                    `json:"bmr"`
	TDEE         float64                                    `json:"tdee"`
	AdjustedKcal float64                                    `json:"adjusted_kcal"`
	Target       common.NutritionTarget                     `json:"target"`
	Ratio        MacroRatio                                 `json:"ratio"`
	Distribution Distribution                               `json:"distribution"`
	PerMeal      map[common.MealSlot]common.NutritionTarget `json:"per_meal"`
}

// Calculate 由使用者資料計算完整的營養目標
func Calculate(p common.UserProfile) Result {
	bmr := CalculateBMR(p.Age, p.Gender, p.HeightCM, p.WeightKG)
	tdee := CalculateTDEE(bmr, p.ActivityLevel)
	adjusted := tdee * GoalFactor(p.HealthGoals)
	kcal := RoundKcal(adjusted)
	ratio := MacroRatios(p.HealthGoals, p.DietaryPreferences)
	target := MacroGrams(kcal, ratio)
	dist := DistributionFor(p.HealthGoals, p.ActivityLevel)

	return Result{
		BMR:          bmr,
		TDEE:         tdee,
		AdjustedKcal: adjusted,
		Target:       target,
		Ratio:        ratio,
		Distribution: dist,
		PerMeal:      dist.Split(target),
	}
}

// CalculateBMR 以 Mifflin-St Jeor 公式計算基礎代謝率，資料不足（含未填性別）時回傳 DefaultBMR
func CalculateBMR(age int, gender string, heightCM, weightKG float64) float64 {
	if age <= 0 || heightCM <= 0 || weightKG <= 0 || common.NormalizeTag(gender) == "" {
		return DefaultBMR
	}
	base := 10*weightKG + 6.25*heightCM - 5*float64(age)
	if isMale(gender) {
		return base + 5
	}
	return base - 161
}

func isMale(gender string) bool {
	switch common.NormalizeTag(gender) {
	case "male", "m", "man":
		return true
	}
	return false
}

// ActivityMultiplier 取得活動量係數
func ActivityMultiplier(level common.ActivityLevel) float64 {
	if m, ok := activityMultipliers[common.ActivityLevel(common.NormalizeTag(string(level)))]; ok {
		return m
	}
	return DefaultActivityMultiplier
}

// CalculateTDEE 每日總消耗
func CalculateTDEE(bmr float64, level common.ActivityLevel) float64 {
	return bmr * ActivityMultiplier(level)
}

// GoalFactor 依健康目標調整熱量：只減重 0.85，只增肌 1.10，其餘 1.0
func GoalFactor(goals []string) float64 {
	loss := common.ContainsFold(goals, common.GoalWeightLoss)
	gain := common.ContainsFold(goals, common.GoalMuscleGain)
	switch {
	case loss && !gain:
		return 0.85
	case gain && !loss:
		return 1.10
	default:
		return 1.0
	}
}

// RoundKcal 四捨五入到 10 的倍數並限制在 [MinTargetKcal, MaxTargetKcal]
func RoundKcal(kcal float64) int {
	rounded := int(math.Round(kcal/10) * 10)
	if rounded < MinTargetKcal {
		return MinTargetKcal
	}
	if rounded > MaxTargetKcal {
		return MaxTargetKcal
	}
	return rounded
}

// MacroRatios 依目標與飲食偏好選擇營養素比例，keto 優先
func MacroRatios(goals, preferences []string) MacroRatio {
	if common.ContainsFold(preferences, "keto") || common.ContainsFold(preferences, "ketogenic") {
		return ketoRatio
	}
	loss := common.ContainsFold(goals, common.GoalWeightLoss)
	gain := common.ContainsFold(goals, common.GoalMuscleGain)
	switch {
	case loss:
		return weightLossRatio
	case gain:
		return muscleGainRatio
	default:
		return defaultRatio
	}
}

// MacroGrams 將熱量依比例換算為克數
func MacroGrams(kcal int, ratio MacroRatio) common.NutritionTarget {
	k := float64(kcal)
	return common.NutritionTarget{
		Kcal:    kcal,
		Protein: int(math.Round(k * ratio.Protein / KcalPerGramProtein)),
		Carbs:   int(math.Round(k * ratio.Carbs / KcalPerGramCarbs)),
		Fat:     int(math.Round(k * ratio.Fat / KcalPerGramFat)),
	}
}

// MacroKcal 由克數反推熱量
func MacroKcal(t common.NutritionTarget) int {
	return t.Protein*KcalPerGramProtein + t.Carbs*KcalPerGramCarbs + t.Fat*KcalPerGramFat
}

// DistributionFor 選擇餐次分配表；減重優先於高活動量
func DistributionFor(goals []string, level common.ActivityLevel) Distribution {
	if common.ContainsFold(goals, common.GoalWeightLoss) {
		return weightLossDistribution.clone()
	}
	switch common.ActivityLevel(common.NormalizeTag(string(level))) {
	case common.ActivityVeryActive, common.ActivityExtraActive:
		return activeDistribution.clone()
	}
	return defaultDistribution.clone()
}

func (d Distribution) clone() Distribution {
	out := make(Distribution, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Split 依比例拆分每日目標
func (d Distribution) Split(daily common.NutritionTarget) map[common.MealSlot]common.NutritionTarget {
	out := make(map[common.MealSlot]common.NutritionTarget, len(d))
	for slot, w := range d {
		out[slot] = Scale(daily, w)
	}
	return out
}

// Scale 依權重縮放營養目標
func Scale(t common.NutritionTarget, weight float64) common.NutritionTarget {
	return common.NutritionTarget{
		Kcal:    int(math.Round(float64(t.Kcal) * weight)),
		Protein: int(math.Round(float64(t.Protein) * weight)),
		Carbs:   int(math.Round(float64(t.Carbs) * weight)),
		Fat:     int(math.Round(float64(t.Fat) * weight)),
	}
}
