package agent

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"nutrition-engine/internal/core/ai/provider"
	"nutrition-engine/internal/core/nutrition"
	"nutrition-engine/internal/core/policy"
	"nutrition-engine/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply string
	err   error
	last  *provider.Request
	calls int
}

func (f *fakeProvider) Generate(_ context.Context, req *provider.Request) (*provider.Response, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Content: f.reply, Model: "test-model"}, nil
}

func (f *fakeProvider) GetModel() string          { return "test-model" }
func (f *fakeProvider) GetTimeout() time.Duration { return time.Second }
func (f *fakeProvider) Close() error              { return nil }

func sampleProfile() common.UserProfile {
	return common.UserProfile{
		UserID:              "u1",
		Age:                 30,
		Gender:              "male",
		HeightCM:            180,
		WeightKG:            80,
		ActivityLevel:       common.ActivityModeratelyActive,
		HealthGoals:         []string{"blood_sugar_control"},
		DietaryRestrictions: []string{"peanut"},
		DietaryPreferences:  []string{"vegetarian"},
		CuisinePreferences:  []string{"Thai", "Indian"},
		CookingSkillLevel:   "beginner",
	}
}

func TestAnalyze_UsesSharedFormulas(t *testing.T) {
	p := sampleProfile()
	uc := NewContextAnalyzer(nil).Analyze(context.Background(), p)
	calc := nutrition.Calculate(p)

	assert.Equal(t, calc.BMR, uc.BMR)
	assert.Equal(t, calc.TDEE, uc.TDEE)
	assert.Equal(t, calc.Target, uc.DailyTarget)
	assert.Equal(t, []string{"low_glycemic", "high_fiber"}, uc.HealthPriorities)
	assert.Equal(t, []string{"high_sugar", "refined_carbs"}, uc.AvoidTypes)
	assert.Equal(t, "thai", uc.PrimaryCuisine)
	assert.Equal(t, SpiceHot, uc.SpiceLevel)
	assert.Equal(t, AuthenticityModerate, uc.AuthenticityLevel)
	assert.Equal(t, "beginner", uc.SkillLevel)
	assert.Equal(t, 30, uc.MaxCookTime)
	assert.Equal(t, "medium", uc.Adventurousness)
}

func TestAnalyze_EmptyProfile(t *testing.T) {
	uc := NewContextAnalyzer(nil).Analyze(context.Background(), common.UserProfile{})
	assert.Equal(t, "mediterranean", uc.PrimaryCuisine)
	assert.Equal(t, SpiceMild, uc.SpiceLevel)
	assert.Equal(t, AuthenticityFlexible, uc.AuthenticityLevel)
	assert.Equal(t, "intermediate", uc.SkillLevel)
	assert.Equal(t, 45, uc.MaxCookTime)
	assert.Equal(t, "low", uc.Adventurousness)
	assert.Empty(t, uc.RiskFactors)
}

func TestRiskFactors(t *testing.T) {
	p := common.UserProfile{Age: 70, HeightCM: 160, WeightKG: 90, HealthGoals: []string{"heart_health"}}
	assert.Equal(t, []string{"obesity", "senior", "cardiovascular"}, RiskFactors(p))
}

func TestSpiceAndAuthenticity(t *testing.T) {
	assert.Equal(t, SpiceMedium, SpiceLevel([]string{"thai", "japanese"}))
	assert.Equal(t, SpiceMild, SpiceLevel([]string{"japanese", "french"}))
	assert.Equal(t, AuthenticityAuthentic, AuthenticityFromCount(1))
	assert.Equal(t, AuthenticityModerate, AuthenticityFromCount(3))
	assert.Equal(t, AuthenticityFlexible, AuthenticityFromCount(0))
	assert.Equal(t, AuthenticityFlexible, AuthenticityFromCount(4))
	assert.Equal(t, "high", Adventurousness([]string{"a", "b", "c", "d"}))
}

func TestLLMCulturalIntelligence(t *testing.T) {
	p := sampleProfile()
	ctx := context.Background()

	ok := &fakeProvider{reply: " Indian.\n"}
	ci := NewLLMCulturalIntelligence(ok)
	assert.Equal(t, "indian", ci.IdentifyPrimaryCuisine(ctx, p))

	failing := NewLLMCulturalIntelligence(&fakeProvider{err: errors.New("boom")})
	assert.Equal(t, "thai", failing.IdentifyPrimaryCuisine(ctx, p))
	assert.Equal(t, AuthenticityModerate, failing.DetectAuthenticity(ctx, p))

	garbage := NewLLMCulturalIntelligence(&fakeProvider{reply: "I think it is probably very authentic"})
	assert.Equal(t, AuthenticityModerate, garbage.DetectAuthenticity(ctx, p))

	auth := NewLLMCulturalIntelligence(&fakeProvider{reply: "authentic"})
	assert.Equal(t, AuthenticityAuthentic, auth.DetectAuthenticity(ctx, p))
}

func TestLLMCulturalIntelligence_RejectsUnknownCuisine(t *testing.T) {
	p := sampleProfile()
	ctx := context.Background()

	for _, reply := range []string{"not sure", "thai food", "cuisine"} {
		ci := NewLLMCulturalIntelligence(&fakeProvider{reply: reply})
		assert.Equal(t, "thai", ci.IdentifyPrimaryCuisine(ctx, p), reply)
	}

	// 使用者自己填的料理即使不在規則表中也接受
	p.CuisinePreferences = []string{"Ethiopian"}
	ci := NewLLMCulturalIntelligence(&fakeProvider{reply: "Ethiopian"})
	assert.Equal(t, "ethiopian", ci.IdentifyPrimaryCuisine(ctx, p))

	ci = NewLLMCulturalIntelligence(&fakeProvider{reply: "Middle Eastern"})
	assert.Equal(t, "middle_eastern", ci.IdentifyPrimaryCuisine(ctx, p))
}

func TestMealAgent_PromptUsesOnePrimaryCuisine(t *testing.T) {
	ci := NewLLMCulturalIntelligence(&fakeProvider{reply: "japanese"})
	a := NewMealAgent(NewContextAnalyzer(ci), nil)

	prompt, err := a.BuildPrompt(context.Background(), MealRequest{Profile: sampleProfile(), MealType: common.SlotBreakfast})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Target cuisine: japanese.")
	assert.Contains(t, prompt, "- Cultural staples: rice, miso, grilled fish, egg, pickles\n")
	assert.Contains(t, prompt, "- Regional ingredients: salmon, tuna\n")

	rules, err := NewMealAgent(nil, nil).BuildPrompt(context.Background(), MealRequest{Profile: sampleProfile(), MealType: common.SlotBreakfast})
	require.NoError(t, err)
	assert.Contains(t, rules, "Target cuisine: thai.")
	assert.NotContains(t, rules, "Cultural staples")
}

func TestBuildMealPrompt_Sections(t *testing.T) {
	p := sampleProfile()
	pol := policy.BuildMealPolicy(p)
	uc := NewContextAnalyzer(nil).Analyze(context.Background(), p)

	prompt := BuildMealPrompt(PromptInput{
		MealType: common.SlotLunch,
		Context:  uc,
		Policy:   pol,
		Pantry: []common.PantryItem{
			{Name: "tofu", Quantity: 2, Unit: "blocks"},
			{Name: "rice", Quantity: 500, Unit: "g"},
		},
		PriorMeals: []common.Meal{
			{Name: "Tofu Scramble", Ingredients: []string{"tofu", "spinach", "salt"}},
		},
	})

	lunch := pol.PerMeal[common.SlotLunch]
	assert.Contains(t, prompt, "Create one lunch recipe")
	assert.Contains(t, prompt, "1. Calories about ")
	assert.Contains(t, prompt, "protein "+strconv.Itoa(lunch.Protein)+"g")
	assert.Contains(t, prompt, "Target cuisine: thai.")
	assert.Contains(t, prompt, "Diet rules: vegetarian.")
	assert.Contains(t, prompt, "Never use these allergens: peanut.")
	assert.Contains(t, prompt, "Forbidden ingredients: ")
	assert.Contains(t, prompt, "Avoid: high_sugar, refined_carbs.")
	assert.Contains(t, prompt, "- Spice level: hot")
	assert.Contains(t, prompt, "at most 30 minutes")
	assert.Contains(t, prompt, "Do not repeat these meals: Tofu Scramble")
	assert.Contains(t, prompt, "Avoid leading with: tofu, spinach\n")
	assert.Contains(t, prompt, "PANTRY (prefer these): tofu 2blocks, rice 500g")
	assert.Contains(t, prompt, `"fiber": 0`)
	assert.True(t, strings.HasSuffix(prompt, "}"))
}

func TestBuildMealPrompt_EmptyInputsUseNone(t *testing.T) {
	pol := policy.BuildMealPolicy(common.UserProfile{})
	uc := NewContextAnalyzer(nil).Analyze(context.Background(), common.UserProfile{})
	prompt := BuildMealPrompt(PromptInput{MealType: common.SlotDinner, Context: uc, Policy: pol})

	assert.Contains(t, prompt, "Never use these allergens: none.")
	assert.Contains(t, prompt, "Do not repeat these meals: none")
	assert.Contains(t, prompt, "PANTRY (prefer these): none")
	assert.Equal(t, prompt, BuildMealPrompt(PromptInput{MealType: common.SlotDinner, Context: uc, Policy: pol}))
}

func TestParseGeneratedMeal(t *testing.T) {
	fenced := "```json\n{\"name\": \"Dal\", \"ingredients\": [\"lentils\"], \"calories\": 520, \"fiber\": 12}\n```"
	m := ParseGeneratedMeal(fenced)
	require.NotNil(t, m)
	assert.Equal(t, "Dal", m.Name)
	assert.Equal(t, 520.0, m.Calories)
	assert.Equal(t, 12.0, m.Fiber)

	unquoted := `{name: "Curry", calories: 400, tags: ["spicy"]}`
	m = ParseGeneratedMeal(unquoted)
	require.NotNil(t, m)
	assert.Equal(t, "Curry", m.Name)
	assert.Equal(t, []string{"spicy"}, m.Tags)

	assert.Nil(t, ParseGeneratedMeal("no json here"))
	assert.Nil(t, ParseGeneratedMeal(`{"calories": 10}`))
}

func TestMealAgent_GenerateMeal(t *testing.T) {
	fp := &fakeProvider{reply: `Here you go: {"name": "Green Curry", "calories": 600}`}
	a := NewMealAgent(nil, fp, WithSampling(800, 0.2))

	gen, err := a.GenerateMeal(context.Background(), MealRequest{Profile: sampleProfile(), MealType: common.SlotDinner})
	require.NoError(t, err)
	require.NotNil(t, gen.Meal)
	assert.Equal(t, "Green Curry", gen.Meal.Name)
	assert.Equal(t, "test-model", gen.Model)
	assert.Contains(t, gen.Raw, "Here you go")
	assert.Equal(t, 800, fp.last.MaxTokens)
	assert.Equal(t, 0.2, fp.last.Temperature)
	require.Len(t, fp.last.Messages, 2)
	assert.Equal(t, gen.Prompt, fp.last.Messages[1].Content)
}

func TestMealAgent_UnparseableReplyKeepsRaw(t *testing.T) {
	a := NewMealAgent(nil, &fakeProvider{reply: "sorry, cannot help"})
	gen, err := a.GenerateMeal(context.Background(), MealRequest{Profile: sampleProfile(), MealType: common.SlotSnack})
	require.NoError(t, err)
	assert.Nil(t, gen.Meal)
	assert.Equal(t, "sorry, cannot help", gen.Raw)
}

func TestMealAgent_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewMealAgent(nil, nil).GenerateMeal(ctx, MealRequest{MealType: common.SlotLunch})
	assert.ErrorIs(t, err, common.ErrAIDisabled)

	fp := &fakeProvider{}
	_, err = NewMealAgent(nil, fp).BuildPrompt(ctx, MealRequest{MealType: "brunch"})
	assert.True(t, common.IsValidationError(err))
	assert.Zero(t, fp.calls)

	upstream := common.ErrAIServiceError.Wrap(errors.New("down"))
	_, err = NewMealAgent(nil, &fakeProvider{err: upstream}).GenerateMeal(ctx, MealRequest{MealType: common.SlotLunch})
	assert.ErrorIs(t, err, common.ErrAIServiceError)
}
