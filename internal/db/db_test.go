package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "quill.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSeedOnFirstOpen(t *testing.T) {
	conn := openTestDB(t)

	actions, err := ListActions(conn)
	require.NoError(t, err)
	require.NotEmpty(t, actions)

	defaults := 0
	for _, a := range actions {
		if a.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)

	configs, err := ListModelConfigs(conn)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, models.DefaultModelID, configs[0].ID)
}

func TestUpsertActionUpdatesInPlace(t *testing.T) {
	conn := openTestDB(t)

	a := models.Action{ID: "act-1", Title: "Shorten", Prompt: "Shorten: {{select}}", ModelID: models.DefaultModelID}
	require.NoError(t, UpsertAction(conn, a))

	a.Title = "Shorten Text"
	require.NoError(t, UpsertAction(conn, a))

	actions, err := ListActions(conn)
	require.NoError(t, err)
	found := false
	for _, got := range actions {
		if got.ID == "act-1" {
			found = true
			assert.Equal(t, "Shorten Text", got.Title)
		}
	}
	assert.True(t, found)
}

func TestSetDefaultActionIsExclusive(t *testing.T) {
	conn := openTestDB(t)

	require.NoError(t, UpsertAction(conn, models.Action{ID: "act-1", Title: "A", Prompt: "{{select}}", ModelID: models.DefaultModelID}))
	require.NoError(t, UpsertAction(conn, models.Action{ID: "act-2", Title: "B", Prompt: "{{select}}", ModelID: models.DefaultModelID}))

	require.NoError(t, SetDefaultAction(conn, "act-1"))
	require.NoError(t, SetDefaultAction(conn, "act-2"))

	actions, err := ListActions(conn)
	require.NoError(t, err)
	for _, a := range actions {
		if a.ID == "act-2" {
			assert.True(t, a.IsDefault)
		} else {
			assert.False(t, a.IsDefault, "action %s should not keep the default flag", a.ID)
		}
	}
}

func TestSetDefaultActionMissing(t *testing.T) {
	conn := openTestDB(t)
	err := SetDefaultAction(conn, "no-such-id")
	require.Error(t, err)
}

func TestDeleteModelConfigResetsReservedID(t *testing.T) {
	conn := openTestDB(t)

	custom := models.DefaultModelConfig()
	custom.Name = "Tuned"
	custom.Temperature = 0.2
	require.NoError(t, UpsertModelConfig(conn, custom))

	require.NoError(t, DeleteModelConfig(conn, models.DefaultModelID))

	got, err := GetModelConfig(conn, models.DefaultModelID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultModelConfig().Name, got.Name)
	assert.Equal(t, models.DefaultModelConfig().Temperature, got.Temperature)
}

func TestModelConfigToolsRoundTrip(t *testing.T) {
	conn := openTestDB(t)

	mc := models.ModelConfig{
		ID:           "web",
		Name:         "Web",
		Option:       "gpt-4o",
		Temperature:  1,
		Vision:       true,
		EnabledTools: []string{"search", "website"},
	}
	require.NoError(t, UpsertModelConfig(conn, mc))

	got, err := GetModelConfig(conn, "web")
	require.NoError(t, err)
	assert.Equal(t, []string{"search", "website"}, got.EnabledTools)
	assert.True(t, got.Vision)
}

func TestRecentTurnsNewestFirst(t *testing.T) {
	conn := openTestDB(t)

	base := time.Now().Add(-time.Hour)
	for i, q := range []string{"first", "second", "third"} {
		turn := models.ChatTurn{
			ID:        q,
			Question:  q,
			Answer:    "a",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, InsertTurn(conn, turn))
	}

	count, turns, err := RecentTurns(conn, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, turns, 2)
	assert.Equal(t, "third", turns[0].Question)
	assert.Equal(t, "second", turns[1].Question)

	ordered, err := AllTurns(conn)
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	assert.Equal(t, "first", ordered[0].Question)
}

func TestClearTurns(t *testing.T) {
	conn := openTestDB(t)

	for _, q := range []string{"one", "two"} {
		turn := models.ChatTurn{ID: q, Question: q, Answer: "a", CreatedAt: time.Now()}
		require.NoError(t, InsertTurn(conn, turn))
	}

	require.NoError(t, ClearTurns(conn))

	count, turns, err := RecentTurns(conn, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, turns)
}

func TestTurnTraceRoundTrip(t *testing.T) {
	conn := openTestDB(t)

	turn := models.ChatTurn{
		ID:       "t1",
		Question: "what is the weather",
		Answer:   "sunny",
		ToolTrace: []models.ToolTrace{
			{Name: "get_current_weather", Detail: "Checking the weather in Oslo"},
		},
		CreatedAt: time.Now(),
	}
	require.NoError(t, InsertTurn(conn, turn))

	_, turns, err := RecentTurns(conn, 10, 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Len(t, turns[0].ToolTrace, 1)
	assert.Equal(t, "get_current_weather", turns[0].ToolTrace[0].Name)

	require.NoError(t, DeleteTurn(conn, "t1"))
	count, _, err := RecentTurns(conn, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, count)
}
