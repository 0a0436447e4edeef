package agent

import (
	"fmt"
	"strings"

	"nutrition-engine/internal/core/policy"
	"nutrition-engine/internal/pkg/common"
)

// 變化性約束中每道先前餐點列出的主要食材數
const leadingIngredients = 2

// PromptInput 建立單餐提示詞所需的資料
type PromptInput struct {
	MealType   common.MealSlot
	Context    UserContext
	Policy     policy.MealPolicy
	Pantry     []common.PantryItem
	PriorMeals []common.Meal
}

// BuildMealPrompt 組出單餐生成提示詞；純字串組裝，不呼叫任何模型
func BuildMealPrompt(in PromptInput) string {
	target := in.Policy.PerMeal[in.MealType]
	if target.Kcal == 0 {
		target = policy.SplitTargetsPerMeal(in.Policy.Targets, true)(in.MealType)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create one %s recipe for a single person.\n\n", in.MealType)

	b.WriteString("HARD RULES (must follow):\n")
	rules := []string{
		fmt.Sprintf("Calories about %d kcal; protein %dg, carbs %dg, fat %dg.", target.Kcal, target.Protein, target.Carbs, target.Fat),
		fmt.Sprintf("Target cuisine: %s.", in.Context.PrimaryCuisine),
		fmt.Sprintf("Diet rules: %s.", common.JoinList(in.Policy.Hard.DietRules)),
		fmt.Sprintf("Never use these allergens: %s.", common.JoinList(in.Policy.Hard.Allergens)),
	}
	if in.Policy.Diet != nil && len(in.Policy.Diet.Tokens) > 0 {
		rules = append(rules, fmt.Sprintf("Forbidden ingredients: %s.", common.JoinList(in.Policy.Diet.Tokens)))
	}
	if len(in.Context.AvoidTypes) > 0 {
		rules = append(rules, fmt.Sprintf("Avoid: %s.", common.JoinList(in.Context.AvoidTypes)))
	}
	if h := in.Policy.Hierarchical; h != nil {
		if len(h.Religious) > 0 {
			rules = append(rules, fmt.Sprintf("Religious requirements (highest priority): %s.", common.JoinList(h.Religious)))
		}
	}
	for i, r := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}

	b.WriteString("\nSTYLE:\n")
	fmt.Fprintf(&b, "- Preferred cuisines: %s\n", common.JoinList(in.Context.PreferredCuisines))
	fmt.Fprintf(&b, "- Spice level: %s\n", in.Context.SpiceLevel)
	fmt.Fprintf(&b, "- Authenticity: %s\n", in.Context.AuthenticityLevel)
	fmt.Fprintf(&b, "- Skill: %s, at most %d minutes\n", in.Context.SkillLevel, in.Context.MaxCookTime)
	if len(in.Context.HealthPriorities) > 0 {
		fmt.Fprintf(&b, "- Focus: %s\n", common.JoinList(in.Context.HealthPriorities))
	}
	if h := in.Policy.Hierarchical; h != nil {
		if len(h.Cultural) > 0 {
			fmt.Fprintf(&b, "- Cultural staples: %s\n", common.JoinList(h.Cultural))
		}
		if len(h.Regional) > 0 {
			fmt.Fprintf(&b, "- Regional ingredients: %s\n", common.JoinList(h.Regional))
		}
		if len(h.Personal) > 0 {
			fmt.Fprintf(&b, "- Personal preferences: %s\n", common.JoinList(h.Personal))
		}
	}

	names, leading := priorSummary(in.PriorMeals)
	b.WriteString("\nVARIETY:\n")
	fmt.Fprintf(&b, "- Do not repeat these meals: %s\n", common.JoinList(names))
	fmt.Fprintf(&b, "- Avoid leading with: %s\n", common.JoinList(leading))

	fmt.Fprintf(&b, "\nPANTRY (prefer these): %s\n", PantryString(in.Pantry))

	b.WriteString(`
Respond with JSON only, exactly in this shape:
{
  "name": "meal name",
  "ingredients": ["ingredient 1", "ingredient 2"],
  "calories": 0,
  "protein": 0,
  "carbs": 0,
  "fat": 0,
  "fiber": 0,
  "instructions": ["step 1", "step 2"],
  "tags": ["tag1"]
}`)
	return b.String()
}

// PantryString 以 "名稱 數量單位" 格式攤平庫存
func PantryString(items []common.PantryItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(fmt.Sprintf("%s %g%s", it.Name, it.Quantity, it.Unit)))
	}
	return common.JoinList(parts)
}

func priorSummary(meals []common.Meal) (names, leading []string) {
	for _, m := range meals {
		if m.Name != "" {
			names = append(names, m.Name)
		}
		for i := 0; i < len(m.Ingredients) && i < leadingIngredients; i++ {
			if !common.ContainsFold(leading, m.Ingredients[i]) {
				leading = append(leading, m.Ingredients[i])
			}
		}
	}
	return names, leading
}
