package recipeapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ProviderSpoonacular Spoonacular 供應商名稱
const ProviderSpoonacular = "spoonacular"

const (
	defaultNumber = 10
	maxNumber     = 100
)

// Spoonacular Spoonacular API 轉接器
type Spoonacular struct {
	client *resty.Client
}

// NewSpoonacular 創建 Spoonacular 轉接器
func NewSpoonacular(cfg config.RecipeAPIConfig) *Spoonacular {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetQueryParam("apiKey", cfg.APIKey)
	return &Spoonacular{client: client}
}

// Provider 供應商名稱
func (s *Spoonacular) Provider() string {
	return ProviderSpoonacular
}

// SearchRecipes 以 complexSearch 搜尋
func (s *Spoonacular) SearchRecipes(ctx context.Context, params SearchParams) (SearchResult, error) {
	query := map[string]string{
		"addRecipeInformation": "true",
		"fillIngredients":      "true",
		"number":               strconv.Itoa(clampNumber(params.Number)),
		"offset":               strconv.Itoa(params.Offset),
	}
	if params.Query != "" {
		query["query"] = params.Query
	}
	if params.Cuisine != "" {
		query["cuisine"] = params.Cuisine
	}
	if params.Diet != "" {
		query["diet"] = params.Diet
	}
	if len(params.Intolerances) > 0 {
		query["intolerances"] = strings.Join(params.Intolerances, ",")
	}
	if params.MaxReadyTime > 0 {
		query["maxReadyTime"] = strconv.Itoa(params.MaxReadyTime)
	}

	var result SearchResult
	if err := s.get(ctx, "/recipes/complexSearch", query, &result); err != nil {
		return SearchResult{}, err
	}
	for i := range result.Results {
		result.Results[i].APISource = ProviderSpoonacular
	}
	return result, nil
}

// GetRecipeByID 取得單一食譜
func (s *Spoonacular) GetRecipeByID(ctx context.Context, id string) (Recipe, error) {
	if _, err := strconv.Atoi(id); err != nil {
		return Recipe{}, common.NewValidationError(fmt.Sprintf("invalid recipe id %q", id))
	}
	var recipe Recipe
	if err := s.get(ctx, "/recipes/"+id+"/information", nil, &recipe); err != nil {
		return Recipe{}, err
	}
	recipe.APISource = ProviderSpoonacular
	return recipe, nil
}

// GetRandomRecipes 取得隨機食譜
func (s *Spoonacular) GetRandomRecipes(ctx context.Context, params RandomParams) ([]Recipe, error) {
	query := map[string]string{"number": strconv.Itoa(clampNumber(params.Number))}
	if len(params.Tags) > 0 {
		query["tags"] = strings.Join(params.Tags, ",")
	}

	var payload struct {
		Recipes []Recipe `json:"recipes"`
	}
	if err := s.get(ctx, "/recipes/random", query, &payload); err != nil {
		return nil, err
	}
	for i := range payload.Recipes {
		payload.Recipes[i].APISource = ProviderSpoonacular
	}
	return payload.Recipes, nil
}

func (s *Spoonacular) get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return common.ErrUpstreamAPI.Wrap(fmt.Errorf("spoonacular request failed: %w", err))
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return common.ErrRecipeNotFound.Wrap(fmt.Errorf("spoonacular %s", path))
	case resp.IsError():
		common.LogWarn("Spoonacular 回傳錯誤",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
		)
		return common.ErrUpstreamAPI.Wrap(fmt.Errorf("spoonacular returned status %d", resp.StatusCode()))
	}

	if err := common.ParseJSONBytes(resp.Body(), out); err != nil {
		return common.ErrUpstreamAPI.Wrap(fmt.Errorf("failed to parse spoonacular response: %w", err))
	}
	return nil
}

func clampNumber(n int) int {
	switch {
	case n <= 0:
		return defaultNumber
	case n > maxNumber:
		return maxNumber
	default:
		return n
	}
}
