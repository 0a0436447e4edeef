package user

import (
	"context"
	"net/http"
	"time"

	"nutrition-engine/internal/core/planner"
	"nutrition-engine/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProfileRepository 使用者資料讀寫
type ProfileRepository interface {
	UpsertProfile(ctx context.Context, profile common.UserProfile) error
	GetProfile(ctx context.Context, userID string) (common.UserProfile, error)
}

// PantryRepository 食材庫存讀寫
type PantryRepository interface {
	AddPantryItems(ctx context.Context, userID string, items []common.PantryItem) ([]common.PantryItem, error)
	ListPantryItems(ctx context.Context, userID string) ([]common.PantryItem, error)
}

// PlanService 餐食規劃
type PlanService interface {
	GenerateSmartMealPlan(ctx context.Context, userID, date string) planner.PlanResult
	GetPlan(ctx context.Context, userID, date string) (common.MealPlan, error)
}

// AddPantryRequest 新增食材請求
type AddPantryRequest struct {
	Items []common.PantryItem `json:"items" binding:"required,min=1"`
}

// Handler 使用者資料、庫存與計畫端點
type Handler struct {
	profiles ProfileRepository
	pantry   PantryRepository
	plans    PlanService
	now      func() time.Time
}

// NewHandler 創建使用者處理器
func NewHandler(profiles ProfileRepository, pantry PantryRepository, plans PlanService) *Handler {
	return &Handler{profiles: profiles, pantry: pantry, plans: plans, now: time.Now}
}

// HandlePutProfile PUT /users/:userId/profile
func (h *Handler) HandlePutProfile(c *gin.Context) {
	var profile common.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	profile.UserID = c.Param("userId")

	if err := h.profiles.UpsertProfile(c.Request.Context(), profile); err != nil {
		common.LogError("使用者資料儲存失敗", zap.String("user_id", profile.UserID), zap.Error(err))
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// HandleGetProfile GET /users/:userId/profile
func (h *Handler) HandleGetProfile(c *gin.Context) {
	profile, err := h.profiles.GetProfile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// HandleAddPantry POST /users/:userId/pantry
func (h *Handler) HandleAddPantry(c *gin.Context) {
	var req AddPantryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	userID := c.Param("userId")
	saved, err := h.pantry.AddPantryItems(c.Request.Context(), userID, req.Items)
	if err != nil {
		common.LogError("食材儲存失敗", zap.String("user_id", userID), zap.Error(err))
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"items": saved})
}

// HandleListPantry GET /users/:userId/pantry
func (h *Handler) HandleListPantry(c *gin.Context) {
	items, err := h.pantry.ListPantryItems(c.Request.Context(), c.Param("userId"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// HandleGeneratePlan POST /users/:userId/plans?date=YYYY-MM-DD
func (h *Handler) HandleGeneratePlan(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}

	result := h.plans.GenerateSmartMealPlan(c.Request.Context(), c.Param("userId"), date)
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleGetPlan GET /users/:userId/plans?date=YYYY-MM-DD
func (h *Handler) HandleGetPlan(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}

	plan, err := h.plans.GetPlan(c.Request.Context(), c.Param("userId"), date)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// dateParam 未指定日期時使用今天
func (h *Handler) dateParam(c *gin.Context) (string, bool) {
	date := c.Query("date")
	if date == "" {
		return h.now().Format(planner.DateLayout), true
	}
	if _, err := time.Parse(planner.DateLayout, date); err != nil {
		common.WriteError(c, common.NewValidationError("date must be YYYY-MM-DD"))
		return "", false
	}
	return date, true
}
