package recipe

import (
	"net/http"
	"strings"

	"nutrition-engine/internal/core/cache"
	"nutrition-engine/internal/core/recipeapi"
	"nutrition-engine/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 外部食譜搜尋與快取管理端點
type Handler struct {
	client recipeapi.Client
	store  cache.Store
}

// NewHandler 創建食譜處理器；client 為 nil 代表未設定外部 API，store 為 nil 代表快取停用
func NewHandler(client recipeapi.Client, store cache.Store) *Handler {
	return &Handler{client: client, store: store}
}

// HandleSearch GET /recipes/search
func (h *Handler) HandleSearch(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var params recipeapi.SearchParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	params.Intolerances = splitList(params.Intolerances)

	result, err := h.client.SearchRecipes(c.Request.Context(), params)
	if err != nil {
		common.LogError("食譜搜尋失敗", zap.String("query", params.Query), zap.Error(err))
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleRandom GET /recipes/random
func (h *Handler) HandleRandom(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var params recipeapi.RandomParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	params.Tags = splitList(params.Tags)

	recipes, err := h.client.GetRandomRecipes(c.Request.Context(), params)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// HandleGetByID GET /recipes/:id
func (h *Handler) HandleGetByID(c *gin.Context) {
	if !h.available(c) {
		return
	}
	r, err := h.client.GetRecipeByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// HandleInvalidate DELETE /cache/:namespace
func (h *Handler) HandleInvalidate(c *gin.Context) {
	if h.store == nil {
		common.WriteError(c, common.ErrCacheDisabled)
		return
	}
	namespace := c.Param("namespace")
	removed, err := h.store.InvalidateNamespace(c.Request.Context(), namespace)
	if err != nil {
		common.LogError("快取清除失敗", zap.String("namespace", namespace), zap.Error(err))
		common.WriteError(c, err)
		return
	}
	common.LogInfo("快取命名空間已清除", zap.String("namespace", namespace), zap.Int("removed", removed))
	c.JSON(http.StatusOK, gin.H{"namespace": namespace, "removed": removed})
}

func (h *Handler) available(c *gin.Context) bool {
	if h.client == nil {
		common.WriteError(c, common.ErrServiceUnavailable)
		return false
	}
	return true
}

// splitList 同時接受 ?tags=a,b 與 ?tags=a&tags=b
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
