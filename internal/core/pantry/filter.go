package pantry

import (
	"nutrition-engine/internal/pkg/common"
)

// allergenKeywords 過敏原對應的食材關鍵字
var allergenKeywords = map[string][]string{
	"gluten":    {"wheat", "bread", "pasta", "flour", "barley", "rye", "couscous", "noodle"},
	"dairy":     {"milk", "cheese", "yogurt", "butter", "cream"},
	"nuts":      {"almond", "walnut", "pecan", "cashew", "peanut", "hazelnut", "pistachio"},
	"eggs":      {"egg"},
	"soy":       {"soy", "tofu", "tempeh", "edamame", "miso"},
	"fish":      {"fish", "salmon", "tuna", "cod", "sardine", "anchovy", "mackerel"},
	"shellfish": {"shrimp", "crab", "lobster", "clam", "mussel", "oyster", "scallop", "prawn"},
}

var (
	meatKeywords = []string{
		"chicken", "beef", "pork", "lamb", "turkey", "bacon", "ham", "sausage",
		"fish", "salmon", "tuna", "shrimp", "crab", "lobster", "meat",
	}
	animalProductKeywords = append(append([]string{}, meatKeywords...),
		"egg", "milk", "cheese", "yogurt", "butter", "cream", "honey", "gelatin", "whey",
	)
	highCarbKeywords = []string{
		"rice", "pasta", "bread", "potato", "sugar", "flour", "cereal", "oat", "noodle",
		"tortilla", "banana", "corn",
	}
	paleoExcludedKeywords = []string{
		"rice", "pasta", "bread", "flour", "oat", "cereal", "bean", "lentil", "chickpea",
		"peanut", "soy", "tofu", "milk", "cheese", "yogurt", "sugar", "corn",
	}
)

// preferenceFilters 每個可辨識的飲食偏好對應的排除關鍵字
var preferenceFilters = map[string][]string{
	"vegetarian": meatKeywords,
	"vegan":      animalProductKeywords,
	"keto":       highCarbKeywords,
	"ketogenic":  highCarbKeywords,
	"paleo":      paleoExcludedKeywords,
	"low-carb":   highCarbKeywords,
	"low_carb":   highCarbKeywords,
	"low carb":   highCarbKeywords,
}

// AllergenKeywords 取得過敏原的關鍵字副本，未知過敏原回傳 nil
func AllergenKeywords(allergen string) []string {
	kws, ok := allergenKeywords[common.NormalizeTag(allergen)]
	if !ok {
		return nil
	}
	return append([]string(nil), kws...)
}

// FilterByAllergies 移除名稱命中任一過敏原關鍵字的食材；未知過敏原不影響結果
func FilterByAllergies(items []common.PantryItem, allergies []string) []common.PantryItem {
	var keywords []string
	for _, a := range common.NormalizeTags(allergies) {
		keywords = append(keywords, allergenKeywords[a]...)
	}
	return exclude(items, keywords)
}

// FilterByDietaryPreferences 依序套用每個可辨識偏好的排除條件
func FilterByDietaryPreferences(items []common.PantryItem, preferences []string) []common.PantryItem {
	out := items
	for _, pref := range common.NormalizeTags(preferences) {
		kws, ok := preferenceFilters[pref]
		if !ok {
			continue
		}
		out = exclude(out, kws)
	}
	if out == nil {
		return []common.PantryItem{}
	}
	return out
}

func exclude(items []common.PantryItem, keywords []string) []common.PantryItem {
	out := make([]common.PantryItem, 0, len(items))
	for _, item := range items {
		if len(keywords) > 0 && common.ContainsAny(item.Name, keywords) {
			continue
		}
		out = append(out, item)
	}
	return out
}
