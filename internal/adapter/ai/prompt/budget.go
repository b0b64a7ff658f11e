package prompt

import "github.com/testgenius/backend/internal/domain/testgen"

// Output token budgets. Edge-case generations are empirically the longest and
// the most prone to truncation, so that category gets the largest budget;
// other test-case categories sit in the middle; everything else (story
// review) needs the least.
const (
	MaxTokensEdgeCase = int32(16384)
	MaxTokensTestCase = int32(8192)
	MaxTokensDefault  = int32(4096)
)

// TokenBudgetFor selects the output budget tier for one category's generation
// call.
func TokenBudgetFor(category testgen.Category) int32 {
	if category == testgen.CategoryEdgeCase {
		return MaxTokensEdgeCase
	}
	return MaxTokensTestCase
}
