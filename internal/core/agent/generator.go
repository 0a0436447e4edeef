package agent

import (
	"context"
	"fmt"
	"time"

	"nutrition-engine/internal/core/ai/provider"
	"nutrition-engine/internal/core/policy"
	"nutrition-engine/internal/pkg/common"

	"go.uber.org/zap"
)

const systemPrompt = "You are a nutrition-aware chef. Follow every hard rule and answer with JSON only."

// GeneratedMeal 模型回覆的餐點結構
type GeneratedMeal struct {
	Name         string   `json:"name"`
	Ingredients  []string `json:"ingredients"`
	Calories     float64  `json:"calories"`
	Protein      float64  `json:"protein"`
	Carbs        float64  `json:"carbs"`
	Fat          float64  `json:"fat"`
	Fiber        float64  `json:"fiber"`
	Instructions []string `json:"instructions"`
	Tags         []string `json:"tags"`
}

// MealRequest 單餐生成請求
type MealRequest struct {
	Profile    common.UserProfile  `json:"profile"`
	MealType   common.MealSlot     `json:"meal_type"`
	Pantry     []common.PantryItem `json:"pantry"`
	PriorMeals []common.Meal       `json:"prior_meals"`
}

// Generation 生成結果；Meal 為 nil 代表回覆無法解析，Raw 一律保留
type Generation struct {
	Prompt string         `json:"prompt"`
	Raw    string         `json:"raw,omitempty"`
	Meal   *GeneratedMeal `json:"meal,omitempty"`
	Model  string         `json:"model,omitempty"`
}

// MealAgent 組提示詞並呼叫 AI 提供者
type MealAgent struct {
	analyzer    *ContextAnalyzer
	provider    provider.Provider
	maxTokens   int
	temperature float64
}

// Option MealAgent 選項
type Option func(*MealAgent)

// WithSampling 設定 max tokens 與 temperature
func WithSampling(maxTokens int, temperature float64) Option {
	return func(a *MealAgent) {
		a.maxTokens = maxTokens
		a.temperature = temperature
	}
}

// NewMealAgent 創建 MealAgent；p 可為 nil，此時只能產生提示詞
func NewMealAgent(analyzer *ContextAnalyzer, p provider.Provider, opts ...Option) *MealAgent {
	if analyzer == nil {
		analyzer = NewContextAnalyzer(nil)
	}
	a := &MealAgent{analyzer: analyzer, provider: p, maxTokens: 1500, temperature: 0.7}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildPrompt 分析使用者並組出提示詞
func (a *MealAgent) BuildPrompt(ctx context.Context, req MealRequest) (string, error) {
	if !validSlot(req.MealType) {
		return "", common.NewValidationError(fmt.Sprintf("unknown meal type %q", req.MealType))
	}
	uc := a.analyzer.Analyze(ctx, req.Profile)
	return BuildMealPrompt(PromptInput{
		MealType:   req.MealType,
		Context:    uc,
		Policy:     policy.BuildMealPolicyFor(req.Profile, uc.PrimaryCuisine),
		Pantry:     req.Pantry,
		PriorMeals: req.PriorMeals,
	}), nil
}

// GenerateMeal 組提示詞並呼叫模型；解析失敗不視為錯誤
func (a *MealAgent) GenerateMeal(ctx context.Context, req MealRequest) (*Generation, error) {
	prompt, err := a.BuildPrompt(ctx, req)
	if err != nil {
		return nil, err
	}
	if a.provider == nil {
		return nil, common.ErrAIDisabled
	}

	aiReq := provider.SystemAndUser(systemPrompt, prompt)
	aiReq.MaxTokens = a.maxTokens
	aiReq.Temperature = a.temperature

	start := time.Now()
	resp, err := a.provider.Generate(ctx, aiReq)
	if err != nil {
		common.LogError("餐點生成失敗",
			zap.String("meal_type", string(req.MealType)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	gen := &Generation{Prompt: prompt, Raw: resp.Content, Model: resp.Model}
	gen.Meal = ParseGeneratedMeal(resp.Content)
	if gen.Meal == nil {
		common.LogWarn("無法解析餐點回覆", zap.String("meal_type", string(req.MealType)))
	}
	return gen, nil
}

// ParseGeneratedMeal 取第一個 JSON 物件解析，鍵名未加引號時補上再試一次
func ParseGeneratedMeal(content string) *GeneratedMeal {
	raw, ok := common.ExtractJSONObject(content)
	if !ok {
		return nil
	}
	common.LogDebug("提取的 JSON 內容", zap.String("json", raw))

	var meal GeneratedMeal
	if err := common.ParseJSON(raw, &meal); err != nil {
		meal = GeneratedMeal{}
		if err := common.ParseJSON(common.QuoteJSONKeys(raw), &meal); err != nil {
			return nil
		}
	}
	if meal.Name == "" {
		return nil
	}
	return &meal
}

func validSlot(slot common.MealSlot) bool {
	for _, s := range common.MealSlots {
		if s == slot {
			return true
		}
	}
	return false
}
