package agent

import (
	"context"
	"fmt"
	"strings"

	"nutrition-engine/internal/core/ai/provider"
	"nutrition-engine/internal/core/policy"
	"nutrition-engine/internal/pkg/common"

	"go.uber.org/zap"
)

// CulturalIntelligence 推斷料理文化資訊的策略
type CulturalIntelligence interface {
	IdentifyPrimaryCuisine(ctx context.Context, p common.UserProfile) string
	DetectAuthenticity(ctx context.Context, p common.UserProfile) string
}

// RuleBasedCulturalIntelligence 以固定規則推斷，為預設實作
type RuleBasedCulturalIntelligence struct{}

// IdentifyPrimaryCuisine 文化背景 > 第一個料理偏好 > mediterranean
func (RuleBasedCulturalIntelligence) IdentifyPrimaryCuisine(_ context.Context, p common.UserProfile) string {
	return policy.PrimaryCuisine(p)
}

// DetectAuthenticity 以偏好料理數量判斷
func (RuleBasedCulturalIntelligence) DetectAuthenticity(_ context.Context, p common.UserProfile) string {
	return AuthenticityFromCount(len(common.NormalizeTags(p.CuisinePreferences)))
}

// LLMCulturalIntelligence 透過 AI 提供者推斷，失敗或回覆無法辨識時退回規則式結果
type LLMCulturalIntelligence struct {
	provider provider.Provider
	fallback RuleBasedCulturalIntelligence
}

// NewLLMCulturalIntelligence 創建 LLM 實作
func NewLLMCulturalIntelligence(p provider.Provider) *LLMCulturalIntelligence {
	return &LLMCulturalIntelligence{provider: p}
}

// IdentifyPrimaryCuisine 要求模型回覆單一料理名稱
func (l *LLMCulturalIntelligence) IdentifyPrimaryCuisine(ctx context.Context, p common.UserProfile) string {
	prompt := fmt.Sprintf(`Identify the single primary cuisine for this person.
Cultural background: %s
Location: %s
Cuisine preferences (ordered): %s
Answer with one lowercase word, for example "japanese". No punctuation.`,
		orNone(p.CulturalBackground), orNone(p.Location), common.JoinList(p.CuisinePreferences))

	answer, ok := l.ask(ctx, prompt)
	if key := policy.CuisineKey(answer); ok && acceptableCuisine(key, p) {
		return key
	}
	if ok {
		common.LogWarn("模型回覆的料理不在已知清單，改用規則", zap.String("answer", answer))
	}
	return l.fallback.IdentifyPrimaryCuisine(ctx, p)
}

// acceptableCuisine 只接受已知料理，或使用者自己填寫的料理與文化背景
func acceptableCuisine(key string, p common.UserProfile) bool {
	if policy.IsKnownCuisine(key) || key == policy.CuisineKey(p.CulturalBackground) {
		return true
	}
	for _, c := range p.CuisinePreferences {
		if key == policy.CuisineKey(c) {
			return true
		}
	}
	return false
}

// DetectAuthenticity 要求模型回覆 authentic / moderate / flexible
func (l *LLMCulturalIntelligence) DetectAuthenticity(ctx context.Context, p common.UserProfile) string {
	prompt := fmt.Sprintf(`How authentic should recipes be for a person with these cuisine preferences: %s?
Cultural background: %s
Answer with exactly one word: authentic, moderate or flexible.`,
		common.JoinList(p.CuisinePreferences), orNone(p.CulturalBackground))

	answer, ok := l.ask(ctx, prompt)
	switch answer {
	case AuthenticityAuthentic, AuthenticityModerate, AuthenticityFlexible:
		if ok {
			return answer
		}
	}
	return l.fallback.DetectAuthenticity(ctx, p)
}

func (l *LLMCulturalIntelligence) ask(ctx context.Context, prompt string) (string, bool) {
	if l.provider == nil {
		return "", false
	}
	resp, err := l.provider.Generate(ctx, &provider.Request{
		Messages:  []provider.Message{{Role: "user", Content: prompt}},
		MaxTokens: 10,
	})
	if err != nil {
		common.LogWarn("文化推斷失敗，改用規則", zap.Error(err))
		return "", false
	}
	answer := common.NormalizeTag(strings.Trim(strings.TrimSpace(resp.Content), `."'`))
	if answer == "" || strings.ContainsAny(answer, "\n{}") || len(strings.Fields(answer)) > 2 {
		common.LogWarn("文化推斷回覆無法辨識，改用規則", zap.String("answer", resp.Content))
		return "", false
	}
	return answer, true
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
