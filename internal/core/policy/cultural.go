package policy

import (
	"strings"

	"nutrition-engine/internal/pkg/common"
)

// DefaultCuisine 沒有任何線索時的主要料理
const DefaultCuisine = "mediterranean"

// Region 地區類型
type Region string

const (
	RegionCoastal Region = "coastal"
	RegionInland  Region = "inland"
	RegionUrban   Region = "urban"
	RegionRural   Region = "rural"
)

var (
	coastalKeywords = []string{"coast", "beach", "bay", "harbor", "harbour", "port", "island", "seaside", "shore"}
	inlandKeywords  = []string{"inland", "mountain", "valley", "plateau", "desert"}
	ruralKeywords   = []string{"rural", "farm", "village", "countryside", "ranch", "town"}

	// 宗教規範
	religiousRules = []struct {
		keywords     []string
		restrictions []string
	}{
		{[]string{"halal", "muslim", "islam"}, []string{"no_pork", "halal_meat_only", "no_alcohol"}},
		{[]string{"kosher", "jewish", "judaism"}, []string{"no_pork", "no_shellfish", "kosher_certified"}},
		{[]string{"hindu"}, []string{"no_beef", "vegetarian_preferred"}},
	}

	// 料理家族對應的用餐時間習慣
	mealTimingHints = []struct {
		cuisines []string
		hints    []string
	}{
		{[]string{"mediterranean", "spanish", "italian", "greek", "portuguese", "lebanese"}, []string{"late_dinner", "light_breakfast"}},
		{[]string{"japanese", "korean", "chinese", "vietnamese", "thai"}, []string{"rice_centered_meals", "early_dinner"}},
		{[]string{"mexican", "latin", "colombian", "peruvian"}, []string{"large_lunch", "light_dinner"}},
		{[]string{"indian", "pakistani", "bangladeshi", "sri_lankan"}, []string{"spiced_breakfast", "late_dinner"}},
		{[]string{"american", "british", "german"}, []string{"hearty_breakfast", "early_dinner"}},
	}

	// 各料理的傳統早餐食材
	breakfastPatterns = map[string][]string{
		"mediterranean": {"bread", "olive oil", "tomato", "feta", "olives"},
		"greek":         {"yogurt", "honey", "bread", "feta", "olives"},
		"italian":       {"espresso", "bread", "ricotta", "fruit"},
		"spanish":       {"bread", "tomato", "olive oil", "jamon"},
		"japanese":      {"rice", "miso", "grilled fish", "egg", "pickles"},
		"chinese":       {"congee", "soy milk", "steamed buns", "eggs"},
		"korean":        {"rice", "kimchi", "soup", "egg"},
		"mexican":       {"tortilla", "eggs", "beans", "salsa", "avocado"},
		"indian":        {"roti", "lentils", "yogurt", "potatoes", "chai spices"},
		"american":      {"eggs", "oats", "toast", "berries"},
		"middle_eastern": {"pita", "hummus", "labneh", "cucumber", "za'atar"},
	}

	// 地區 + 料理的海鮮使用模式
	seafoodPatterns = map[string][]string{
		"coastal:mediterranean": {"sardines", "anchovies", "octopus", "mussels"},
		"coastal:greek":         {"octopus", "sea bream", "squid"},
		"coastal:italian":       {"clams", "anchovies", "sea bass"},
		"coastal:spanish":       {"prawns", "cod", "squid"},
		"coastal:japanese":      {"salmon", "mackerel", "seaweed", "tuna"},
		"coastal:korean":        {"seaweed", "anchovies", "squid"},
		"coastal:chinese":       {"shrimp", "steamed fish"},
		"coastal:mexican":       {"shrimp", "snapper", "ceviche fish"},
		"coastal:american":      {"salmon", "crab", "cod"},
		"urban:japanese":        {"salmon", "tuna"},
		"inland:indian":         {"river fish"},
	}
)

// CulturalProfile 推斷出的文化資料
type CulturalProfile struct {
	PrimaryCuisine        string   `json:"primary_cuisine"`
	Region                Region   `json:"region"`
	ReligiousRestrictions []string `json:"religious_restrictions"`
	CulturalPreferences   []string `json:"cultural_preferences"`
}

// HierarchicalConstraints 依優先順序排列的四層限制；本身不解決層級間的衝突
type HierarchicalConstraints struct {
	Religious []string `json:"religious"`
	Cultural  []string `json:"cultural"`
	Regional  []string `json:"regional"`
	Personal  []string `json:"personal"`
}

// Levels 依優先順序回傳各層
func (h HierarchicalConstraints) Levels() [][]string {
	return [][]string{h.Religious, h.Cultural, h.Regional, h.Personal}
}

// BuildCulturalProfile 由使用者資料推斷文化資料
func BuildCulturalProfile(p common.UserProfile) CulturalProfile {
	return BuildCulturalProfileFor(p, PrimaryCuisine(p))
}

// BuildCulturalProfileFor 以外部決定的主要料理建立文化資料；空字串時退回 PrimaryCuisine
func BuildCulturalProfileFor(p common.UserProfile, cuisine string) CulturalProfile {
	if cuisine = CuisineKey(cuisine); cuisine == "" {
		cuisine = PrimaryCuisine(p)
	}
	return CulturalProfile{
		PrimaryCuisine:        cuisine,
		Region:                DetectRegion(p.Location),
		ReligiousRestrictions: ReligiousRestrictions(p),
		CulturalPreferences:   culturalPreferences(p.CulturalPreferences, cuisine),
	}
}

// PrimaryCuisine 文化背景優先，其次第一個料理偏好，最後使用 DefaultCuisine
func PrimaryCuisine(p common.UserProfile) string {
	if bg := CuisineKey(p.CulturalBackground); bg != "" {
		return bg
	}
	for _, c := range p.CuisinePreferences {
		if key := CuisineKey(c); key != "" {
			return key
		}
	}
	return DefaultCuisine
}

// CuisineKey 正規化料理名稱："Middle Eastern" -> "middle_eastern"
func CuisineKey(s string) string {
	return strings.Join(strings.Fields(common.NormalizeTag(s)), "_")
}

// IsKnownCuisine 是否為規則表中出現過的料理
func IsKnownCuisine(key string) bool {
	if key == DefaultCuisine {
		return true
	}
	if _, ok := breakfastPatterns[key]; ok {
		return true
	}
	for _, family := range mealTimingHints {
		if common.ContainsFold(family.cuisines, key) {
			return true
		}
	}
	return false
}

// DetectRegion 以地點關鍵字判斷地區，預設為 urban
func DetectRegion(location string) Region {
	switch {
	case location == "":
		return RegionUrban
	case common.ContainsAny(location, coastalKeywords):
		return RegionCoastal
	case common.ContainsAny(location, ruralKeywords):
		return RegionRural
	case common.ContainsAny(location, inlandKeywords):
		return RegionInland
	default:
		return RegionUrban
	}
}

// ReligiousRestrictions 由飲食偏好與文化背景推斷宗教規範
func ReligiousRestrictions(p common.UserProfile) []string {
	signals := append([]string{p.CulturalBackground}, p.DietaryPreferences...)
	out := []string{}
	seen := make(map[string]bool)
	for _, rule := range religiousRules {
		matched := false
		for _, s := range signals {
			if common.ContainsAny(s, rule.keywords) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, r := range rule.restrictions {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	return out
}

func culturalPreferences(explicit []string, cuisine string) []string {
	out := common.NormalizeTags(explicit)
	for _, family := range mealTimingHints {
		if !common.ContainsFold(family.cuisines, cuisine) {
			continue
		}
		for _, h := range family.hints {
			if !common.ContainsFold(out, h) {
				out = append(out, h)
			}
		}
	}
	return out
}

// BuildHierarchicalConstraints 組合四層限制：宗教 > 文化早餐 > 地區食材 > 個人偏好
func BuildHierarchicalConstraints(p common.UserProfile, cp CulturalProfile) HierarchicalConstraints {
	return HierarchicalConstraints{
		Religious: append([]string{}, cp.ReligiousRestrictions...),
		Cultural:  append([]string{}, breakfastPatterns[cp.PrimaryCuisine]...),
		Regional:  append([]string{}, seafoodPatterns[string(cp.Region)+":"+cp.PrimaryCuisine]...),
		Personal:  common.NormalizeTags(p.CuisinePreferences),
	}
}
