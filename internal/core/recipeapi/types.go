package recipeapi

import (
	"context"
)

// Client 外部食譜資料來源的統一介面，各供應商以轉接器實作
type Client interface {
	// Provider 供應商名稱，也是快取命名空間的前綴
	Provider() string
	SearchRecipes(ctx context.Context, params SearchParams) (SearchResult, error)
	GetRecipeByID(ctx context.Context, id string) (Recipe, error)
	GetRandomRecipes(ctx context.Context, params RandomParams) ([]Recipe, error)
}

// SearchParams 搜尋參數
type SearchParams struct {
	Query        string   `json:"query,omitempty" form:"query"`
	Cuisine      string   `json:"cuisine,omitempty" form:"cuisine"`
	Diet         string   `json:"diet,omitempty" form:"diet"`
	Intolerances []string `json:"intolerances,omitempty" form:"intolerances"`
	MaxReadyTime int      `json:"maxReadyTime,omitempty" form:"max_ready_time"`
	Number       int      `json:"number,omitempty" form:"number"`
	Offset       int      `json:"offset,omitempty" form:"offset"`
}

// RandomParams 隨機食譜參數
type RandomParams struct {
	Tags   []string `json:"tags,omitempty" form:"tags"`
	Number int      `json:"number,omitempty" form:"number"`
}

// SearchResult 搜尋結果
type SearchResult struct {
	Results      []Recipe `json:"results"`
	Offset       int      `json:"offset"`
	Number       int      `json:"number"`
	TotalResults int      `json:"totalResults"`
}

// Recipe 正規化後的食譜
type Recipe struct {
	ID                   int           `json:"id"`
	Title                string        `json:"title"`
	Image                string        `json:"image,omitempty"`
	Servings             int           `json:"servings"`
	ReadyInMinutes       int           `json:"readyInMinutes"`
	SourceURL            string        `json:"sourceUrl,omitempty"`
	Summary              string        `json:"summary,omitempty"`
	Cuisines             []string      `json:"cuisines"`
	Diets                []string      `json:"diets"`
	DishTypes            []string      `json:"dishTypes,omitempty"`
	Vegetarian           bool          `json:"vegetarian"`
	Vegan                bool          `json:"vegan"`
	GlutenFree           bool          `json:"glutenFree"`
	DairyFree            bool          `json:"dairyFree"`
	ExtendedIngredients  []Ingredient  `json:"extendedIngredients"`
	AnalyzedInstructions []Instruction `json:"analyzedInstructions"`
	APISource            string        `json:"apiSource"`
}

// Ingredient 食材
type Ingredient struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Original string  `json:"original"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Aisle    string  `json:"aisle,omitempty"`
}

// Instruction 一組步驟
type Instruction struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Step 單一步驟
type Step struct {
	Number int    `json:"number"`
	Step   string `json:"step"`
}
