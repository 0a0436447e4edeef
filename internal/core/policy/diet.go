package policy

import (
	"nutrition-engine/internal/pkg/common"
)

// dietTokens 每種飲食規範對應的禁用食材詞彙
var dietTokens = map[string][]string{
	"vegetarian": {
		"meat", "beef", "pork", "chicken", "turkey", "lamb", "bacon", "ham",
		"fish", "seafood", "shellfish", "gelatin",
	},
	"vegan": {
		"meat", "beef", "pork", "chicken", "turkey", "lamb", "bacon", "ham",
		"fish", "seafood", "shellfish", "gelatin",
		"egg", "milk", "cheese", "butter", "cream", "yogurt", "honey", "whey",
	},
	"pescatarian": {
		"meat", "beef", "pork", "chicken", "turkey", "lamb", "bacon", "ham",
	},
	"halal": {
		"pork", "bacon", "ham", "lard", "gelatin", "alcohol", "wine", "beer",
	},
	"kosher": {
		"pork", "bacon", "ham", "lard", "shellfish", "shrimp", "lobster", "crab",
	},
}

// CompiledDiet 編譯後的飲食規範
type CompiledDiet struct {
	Picked       []string            `json:"picked"`
	Tokens       []string            `json:"tokens"`
	Restrictions map[string][]string `json:"restrictions"`
}

// KnownDiets 回傳可辨識的飲食規範名稱
func KnownDiets() []string {
	return []string{"vegan", "vegetarian", "pescatarian", "halal", "kosher"}
}

// DietTokens 取得單一飲食規範的詞彙表副本，未知名稱回傳 nil
func DietTokens(name string) []string {
	tokens, ok := dietTokens[common.NormalizeTag(name)]
	if !ok {
		return nil
	}
	return append([]string(nil), tokens...)
}

// CompileDietPolicy 將飲食規範名稱編譯為去重後的禁用詞彙集合；未知名稱保留在 Picked 但不貢獻詞彙
func CompileDietPolicy(rules []string) CompiledDiet {
	picked := common.NormalizeTags(rules)
	compiled := CompiledDiet{
		Picked:       picked,
		Tokens:       []string{},
		Restrictions: make(map[string][]string),
	}

	seen := make(map[string]bool)
	for _, name := range picked {
		tokens, ok := dietTokens[name]
		if !ok {
			continue
		}
		compiled.Restrictions[name] = append([]string(nil), tokens...)
		for _, tok := range tokens {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			compiled.Tokens = append(compiled.Tokens, tok)
		}
	}
	return compiled
}

// Forbids 食材名稱是否命中任一禁用詞彙
func (c CompiledDiet) Forbids(ingredient string) bool {
	return common.ContainsAny(ingredient, c.Tokens)
}
