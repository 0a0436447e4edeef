package recipeapi

import (
	"context"
	"fmt"

	"nutrition-engine/internal/core/cache"
)

// 快取命名空間中的操作名稱
const (
	OpSearchRecipes    = "searchRecipes"
	OpGetRecipeByID    = "getRecipeById"
	OpGetRandomRecipes = "getRandomRecipes"
)

type idParams struct {
	ID string `json:"id"`
}

// CachedClient 以快取包裝所有方法的 Client
type CachedClient struct {
	inner  Client
	search func(context.Context, SearchParams) (SearchResult, error)
	byID   func(context.Context, idParams) (Recipe, error)
	random func(context.Context, RandomParams) ([]Recipe, error)
}

// Namespace 快取命名空間，格式為 "{provider}:{operation}"
func Namespace(provider, operation string) string {
	return fmt.Sprintf("%s:%s", provider, operation)
}

// NewCachedClient 包裝 inner；store 為 nil 時等同直接呼叫 inner
func NewCachedClient(inner Client, store cache.Store, opts cache.Options) *CachedClient {
	p := inner.Provider()
	return &CachedClient{
		inner: inner,
		search: cache.WithCache(store, Namespace(p, OpSearchRecipes), inner.SearchRecipes, opts),
		byID: cache.WithCache(store, Namespace(p, OpGetRecipeByID), func(ctx context.Context, params idParams) (Recipe, error) {
			return inner.GetRecipeByID(ctx, params.ID)
		}, opts),
		random: cache.WithCache(store, Namespace(p, OpGetRandomRecipes), inner.GetRandomRecipes, opts),
	}
}

// Provider 供應商名稱
func (c *CachedClient) Provider() string {
	return c.inner.Provider()
}

// Namespaces 此客戶端使用的所有快取命名空間
func (c *CachedClient) Namespaces() []string {
	p := c.inner.Provider()
	return []string{
		Namespace(p, OpSearchRecipes),
		Namespace(p, OpGetRecipeByID),
		Namespace(p, OpGetRandomRecipes),
	}
}

// SearchRecipes 帶快取的搜尋
func (c *CachedClient) SearchRecipes(ctx context.Context, params SearchParams) (SearchResult, error) {
	return c.search(ctx, params)
}

// GetRecipeByID 帶快取的單一食譜
func (c *CachedClient) GetRecipeByID(ctx context.Context, id string) (Recipe, error) {
	return c.byID(ctx, idParams{ID: id})
}

// GetRandomRecipes 帶快取的隨機食譜
func (c *CachedClient) GetRandomRecipes(ctx context.Context, params RandomParams) ([]Recipe, error) {
	return c.random(ctx, params)
}
