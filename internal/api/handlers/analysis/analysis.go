package analysis

import (
	"net/http"
	"time"

	"nutrition-engine/internal/core/nutrition"
	"nutrition-engine/internal/core/pantry"
	"nutrition-engine/internal/core/policy"
	"nutrition-engine/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PantryAnalyzeRequest 庫存組合分析請求
type PantryAnalyzeRequest struct {
	Items       []common.PantryItem `json:"items"`
	Allergies   []string            `json:"allergies,omitempty"`
	Preferences []string            `json:"preferences,omitempty"`
}

// PantryStockRequest 庫存建議請求
type PantryStockRequest struct {
	Items []common.PantryItem `json:"items"`
}

// Handler 無狀態的營養、規則與庫存分析端點
type Handler struct {
	now func() time.Time
}

// NewHandler 創建分析處理器
func NewHandler() *Handler {
	return &Handler{now: time.Now}
}

// HandleTargets POST /nutrition/targets
func (h *Handler) HandleTargets(c *gin.Context) {
	var profile common.UserProfile
	if !bind(c, &profile) {
		return
	}
	c.JSON(http.StatusOK, nutrition.Calculate(profile))
}

// HandlePolicy POST /policy
func (h *Handler) HandlePolicy(c *gin.Context) {
	var profile common.UserProfile
	if !bind(c, &profile) {
		return
	}
	c.JSON(http.StatusOK, policy.BuildMealPolicy(profile))
}

// HandlePantryAnalyze POST /pantry/analyze
func (h *Handler) HandlePantryAnalyze(c *gin.Context) {
	var req PantryAnalyzeRequest
	if !bind(c, &req) {
		return
	}
	analysis := pantry.GenerateMealCombinations(req.Items, req.Allergies, req.Preferences)
	c.JSON(http.StatusOK, gin.H{
		"analysis":               analysis,
		"enough_for_pantry_plan": analysis.EnoughForPantryPlan(),
	})
}

// HandlePantryStock POST /pantry/stock
func (h *Handler) HandlePantryStock(c *gin.Context) {
	var req PantryStockRequest
	if !bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, pantry.GetStockBasedRecommendations(req.Items, h.now()))
}

func bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		common.LogWarn("請求格式無效", zap.String("path", c.Request.URL.Path), zap.Error(err))
		common.WriteError(c, common.ErrInvalidRequest.Wrap(err))
		return false
	}
	return true
}
