package tokens

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"quill/internal/models"
)

// fixedCounter reads the cost encoded in the text itself, so window
// tests control turn costs directly.
type fixedCounter struct{}

func (fixedCounter) Count(text string) int {
	n, _ := strconv.Atoi(text)
	return n
}

func turn(questionCost, answerCost int) models.ChatTurn {
	return models.ChatTurn{
		Question: strconv.Itoa(questionCost),
		Answer:   strconv.Itoa(answerCost),
	}
}

func TestLimitStopsAtFirstOverflow(t *testing.T) {
	turns := []models.ChatTurn{turn(50, 0), turn(50, 0), turn(50, 0)}

	kept := Limit(fixedCounter{}, turns, 120)

	assert.Len(t, kept, 2)
	assert.Equal(t, turns[0], kept[0])
	assert.Equal(t, turns[1], kept[1])
}

func TestLimitExcludesEverythingAfterOverflow(t *testing.T) {
	// The third turn would fit on its own, but the walk has already
	// stopped at the second.
	turns := []models.ChatTurn{turn(10, 10), turn(500, 0), turn(1, 1)}

	kept := Limit(fixedCounter{}, turns, 100)

	assert.Len(t, kept, 1)
	assert.Equal(t, turns[0], kept[0])
}

func TestLimitNeverExceedsBudget(t *testing.T) {
	turns := []models.ChatTurn{turn(30, 30), turn(20, 20), turn(40, 0), turn(5, 5)}

	for _, budget := range []int{0, 10, 60, 100, 110, 1000} {
		kept := Limit(fixedCounter{}, turns, budget)
		total := 0
		for _, k := range kept {
			total += TurnCost(fixedCounter{}, k)
		}
		assert.LessOrEqual(t, total, budget, "budget %d", budget)
	}
}

func TestLimitEmpty(t *testing.T) {
	assert.Empty(t, Limit(fixedCounter{}, nil, 100))
}

func TestBudgetFor(t *testing.T) {
	assert.Equal(t, 128_000, BudgetFor("gpt-4o"))
	assert.Equal(t, 8_192, BudgetFor("gpt-4"))
	assert.Equal(t, DefaultBudget, BudgetFor("some-unknown-model"))
}

func TestHeuristicCount(t *testing.T) {
	assert.Equal(t, 0, heuristicCount(""))
	assert.Equal(t, 100, heuristicCount("one two three"))
	assert.Equal(t, 100, heuristicCount(strings.Repeat("word ", 75)))
	assert.Equal(t, 200, heuristicCount(strings.Repeat("word ", 76)))
}

func TestEstimatorFallsBackWithoutEncoding(t *testing.T) {
	est := &Estimator{}
	assert.Equal(t, 100, est.Count("hello there"))
	assert.Equal(t, 0, est.Count(""))
}
