package meal

import (
	"context"
	"net/http"

	"nutrition-engine/internal/core/agent"
	"nutrition-engine/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Agent 提示詞與餐點生成
type Agent interface {
	BuildPrompt(ctx context.Context, req agent.MealRequest) (string, error)
	GenerateMeal(ctx context.Context, req agent.MealRequest) (*agent.Generation, error)
}

// Handler 餐點生成端點
type Handler struct {
	agent Agent
}

// NewHandler 創建餐點處理器
func NewHandler(a Agent) *Handler {
	return &Handler{agent: a}
}

// HandlePrompt POST /meals/prompt，只回傳提示詞
func (h *Handler) HandlePrompt(c *gin.Context) {
	var req agent.MealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	prompt, err := h.agent.BuildPrompt(c.Request.Context(), req)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meal_type": req.MealType, "prompt": prompt})
}

// HandleGenerate POST /meals/generate，組提示詞並呼叫模型
func (h *Handler) HandleGenerate(c *gin.Context) {
	var req agent.MealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	common.LogInfo("開始處理餐點生成請求",
		zap.String("request_id", requestid.Get(c)),
		zap.String("meal_type", string(req.MealType)),
	)

	gen, err := h.agent.GenerateMeal(c.Request.Context(), req)
	if err != nil {
		common.LogError("餐點生成失敗", zap.String("request_id", requestid.Get(c)), zap.Error(err))
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gen)
}
