package pantry

import (
	"nutrition-engine/internal/pkg/common"
)

// categoryKeywords 各分類的關鍵字，依 common.PantryCategories 的順序比對
var categoryKeywords = map[common.PantryCategory][]string{
	common.CategoryProteins: {
		"chicken", "beef", "pork", "fish", "salmon", "tuna", "shrimp", "turkey", "lamb",
		"tofu", "tempeh", "egg", "beans", "lentil", "chickpea", "bacon", "ham", "sausage",
	},
	common.CategoryVegetables: {
		"broccoli", "spinach", "carrot", "onion", "garlic", "tomato", "pepper", "lettuce",
		"kale", "cabbage", "zucchini", "cucumber", "mushroom", "celery", "potato", "cauliflower",
	},
	common.CategoryFruits: {
		"apple", "banana", "orange", "berry", "berries", "grape", "lemon", "lime",
		"mango", "pear", "peach", "pineapple", "avocado", "kiwi", "melon",
	},
	common.CategoryGrains: {
		"rice", "pasta", "bread", "oat", "quinoa", "flour", "noodle", "cereal",
		"barley", "tortilla", "couscous", "bulgur",
	},
	common.CategoryDairy: {
		"milk", "cheese", "yogurt", "butter", "cream", "kefir",
	},
	common.CategorySpices: {
		"salt", "cumin", "paprika", "oregano", "basil", "thyme", "cinnamon", "turmeric",
		"ginger", "chili", "rosemary", "curry",
	},
	common.CategoryOils: {
		"oil", "ghee", "lard", "shortening",
	},
}

// Classify 以關鍵字推斷食材分類，第一個命中的分類勝出，皆未命中時回傳 others
func Classify(name string) common.PantryCategory {
	for _, cat := range common.PantryCategories {
		if common.ContainsAny(name, categoryKeywords[cat]) {
			return cat
		}
	}
	return common.CategoryOthers
}

// CategoryOf 已有合法分類時保留，否則以 Classify 推斷
func CategoryOf(item common.PantryItem) common.PantryCategory {
	if item.Category.Valid() {
		return item.Category
	}
	return Classify(item.Name)
}

// Categorized 依分類分組的食材
type Categorized map[common.PantryCategory][]common.PantryItem

// CategorizePantryItems 將食材分到各分類；每個分類都會出現在結果中
func CategorizePantryItems(items []common.PantryItem) Categorized {
	out := make(Categorized, len(common.PantryCategories))
	for _, cat := range common.PantryCategories {
		out[cat] = []common.PantryItem{}
	}
	for _, item := range items {
		cat := CategoryOf(item)
		item.Category = cat
		out[cat] = append(out[cat], item)
	}
	return out
}

// Has 分類是否有食材
func (c Categorized) Has(cat common.PantryCategory) bool {
	return len(c[cat]) > 0
}

// Names 分類內的食材名稱
func (c Categorized) Names(cat common.PantryCategory) []string {
	names := make([]string, 0, len(c[cat]))
	for _, item := range c[cat] {
		names = append(names, item.Name)
	}
	return names
}
