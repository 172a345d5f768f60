package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"quill/internal/config"
	"quill/internal/models"

	_ "modernc.org/sqlite"
)

// OpenQuillDB opens (and migrates) the sqlite store under the quill
// config directory, seeding starter actions and the default model
// profile on first launch.
func OpenQuillDB() (*sql.DB, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	return Open(filepath.Join(dir, "quill.db"))
}

// Open opens and migrates the store at an explicit path.
func Open(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = conn.Close()
		return nil, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			prompt TEXT NOT NULL,
			model_id TEXT NOT NULL,
			is_default INTEGER NOT NULL DEFAULT 0,
			show_diff INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS model_configs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			prompt TEXT NOT NULL DEFAULT '',
			option TEXT NOT NULL,
			temperature REAL NOT NULL DEFAULT 1,
			pinned INTEGER NOT NULL DEFAULT 0,
			vision INTEGER NOT NULL DEFAULT 0,
			enabled_tools TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			files TEXT NOT NULL DEFAULT '[]',
			tool_trace TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_created_at ON turns(created_at DESC);`,
	}

	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	if err := seed(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

func seed(conn *sql.DB) error {
	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM model_configs").Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		if err := UpsertModelConfig(conn, models.DefaultModelConfig()); err != nil {
			return err
		}
	}

	if err := conn.QueryRow("SELECT COUNT(*) FROM actions").Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		for _, a := range models.StarterActions() {
			if err := UpsertAction(conn, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func ListActions(conn *sql.DB) ([]models.Action, error) {
	rows, err := conn.Query(
		"SELECT id, title, description, icon, prompt, model_id, is_default, show_diff, created_at, updated_at FROM actions ORDER BY is_default DESC, title ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []models.Action
	for rows.Next() {
		var a models.Action
		var createdAt, updatedAt int64
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Icon, &a.Prompt, &a.ModelID, &a.IsDefault, &a.ShowDiff, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		a.CreatedAt = time.Unix(createdAt, 0)
		a.UpdatedAt = time.Unix(updatedAt, 0)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func UpsertAction(conn *sql.DB, a models.Action) error {
	now := time.Now().Unix()
	_, err := conn.Exec(
		`INSERT INTO actions(id, title, description, icon, prompt, model_id, is_default, show_diff, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			icon = excluded.icon,
			prompt = excluded.prompt,
			model_id = excluded.model_id,
			is_default = excluded.is_default,
			show_diff = excluded.show_diff,
			updated_at = excluded.updated_at`,
		a.ID, a.Title, a.Description, a.Icon, a.Prompt, a.ModelID, a.IsDefault, a.ShowDiff, now, now,
	)
	return err
}

func DeleteAction(conn *sql.DB, id string) error {
	_, err := conn.Exec("DELETE FROM actions WHERE id = ?", id)
	return err
}

// SetDefaultAction makes the given action the default and unsets every
// other action in the same transaction, so at most one row ever holds
// the flag.
func SetDefaultAction(conn *sql.DB, id string) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE actions SET is_default = 0 WHERE is_default = 1"); err != nil {
		return err
	}
	res, err := tx.Exec("UPDATE actions SET is_default = 1, updated_at = ? WHERE id = ?", time.Now().Unix(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("action %q not found", id)
	}
	return tx.Commit()
}

func ListModelConfigs(conn *sql.DB) ([]models.ModelConfig, error) {
	rows, err := conn.Query(
		"SELECT id, name, prompt, option, temperature, pinned, vision, enabled_tools, created_at, updated_at FROM model_configs ORDER BY pinned DESC, name ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []models.ModelConfig
	for rows.Next() {
		var m models.ModelConfig
		var tools string
		var createdAt, updatedAt int64
		if err := rows.Scan(&m.ID, &m.Name, &m.Prompt, &m.Option, &m.Temperature, &m.Pinned, &m.Vision, &tools, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tools), &m.EnabledTools); err != nil {
			return nil, err
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		m.UpdatedAt = time.Unix(updatedAt, 0)
		configs = append(configs, m)
	}
	return configs, rows.Err()
}

func GetModelConfig(conn *sql.DB, id string) (models.ModelConfig, error) {
	var m models.ModelConfig
	var tools string
	var createdAt, updatedAt int64
	err := conn.QueryRow(
		"SELECT id, name, prompt, option, temperature, pinned, vision, enabled_tools, created_at, updated_at FROM model_configs WHERE id = ?",
		id,
	).Scan(&m.ID, &m.Name, &m.Prompt, &m.Option, &m.Temperature, &m.Pinned, &m.Vision, &tools, &createdAt, &updatedAt)
	if err != nil {
		return models.ModelConfig{}, err
	}
	if err := json.Unmarshal([]byte(tools), &m.EnabledTools); err != nil {
		return models.ModelConfig{}, err
	}
	m.CreatedAt = time.Unix(createdAt, 0)
	m.UpdatedAt = time.Unix(updatedAt, 0)
	return m, nil
}

func UpsertModelConfig(conn *sql.DB, m models.ModelConfig) error {
	tools := m.EnabledTools
	if tools == nil {
		tools = []string{}
	}
	data, err := json.Marshal(tools)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	_, err = conn.Exec(
		`INSERT INTO model_configs(id, name, prompt, option, temperature, pinned, vision, enabled_tools, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			prompt = excluded.prompt,
			option = excluded.option,
			temperature = excluded.temperature,
			pinned = excluded.pinned,
			vision = excluded.vision,
			enabled_tools = excluded.enabled_tools,
			updated_at = excluded.updated_at`,
		m.ID, m.Name, m.Prompt, m.Option, m.Temperature, m.Pinned, m.Vision, string(data), now, now,
	)
	return err
}

// DeleteModelConfig removes a model profile. The reserved default id is
// reset to the built-in configuration instead of being removed.
func DeleteModelConfig(conn *sql.DB, id string) error {
	if id == models.DefaultModelID {
		return UpsertModelConfig(conn, models.DefaultModelConfig())
	}
	_, err := conn.Exec("DELETE FROM model_configs WHERE id = ?", id)
	return err
}

func InsertTurn(conn *sql.DB, t models.ChatTurn) error {
	files := t.Files
	if files == nil {
		files = []string{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return err
	}
	trace := t.ToolTrace
	if trace == nil {
		trace = []models.ToolTrace{}
	}
	traceJSON, err := json.Marshal(trace)
	if err != nil {
		return err
	}
	_, err = conn.Exec(
		"INSERT INTO turns(id, question, answer, files, tool_trace, created_at) VALUES(?, ?, ?, ?, ?, ?)",
		t.ID, t.Question, t.Answer, string(filesJSON), string(traceJSON), t.CreatedAt.Unix(),
	)
	return err
}

// RecentTurns returns the total turn count plus one page of history,
// newest first.
func RecentTurns(conn *sql.DB, limit, offset int) (int, []models.ChatTurn, error) {
	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM turns").Scan(&count); err != nil {
		return 0, nil, err
	}

	rows, err := conn.Query(
		"SELECT id, question, answer, files, tool_trace, created_at FROM turns ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	turns := make([]models.ChatTurn, 0, limit)
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return 0, nil, err
		}
		turns = append(turns, t)
	}
	return count, turns, rows.Err()
}

// AllTurns returns every persisted turn oldest first, the order the
// budget window expects.
func AllTurns(conn *sql.DB) ([]models.ChatTurn, error) {
	rows, err := conn.Query(
		"SELECT id, question, answer, files, tool_trace, created_at FROM turns ORDER BY created_at ASC, id ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []models.ChatTurn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func DeleteTurn(conn *sql.DB, id string) error {
	_, err := conn.Exec("DELETE FROM turns WHERE id = ?", id)
	return err
}

func ClearTurns(conn *sql.DB) error {
	_, err := conn.Exec("DELETE FROM turns")
	return err
}

func scanTurn(rows *sql.Rows) (models.ChatTurn, error) {
	var t models.ChatTurn
	var files, trace string
	var createdAt int64
	if err := rows.Scan(&t.ID, &t.Question, &t.Answer, &files, &trace, &createdAt); err != nil {
		return models.ChatTurn{}, err
	}
	if err := json.Unmarshal([]byte(files), &t.Files); err != nil {
		return models.ChatTurn{}, err
	}
	if err := json.Unmarshal([]byte(trace), &t.ToolTrace); err != nil {
		return models.ChatTurn{}, err
	}
	t.CreatedAt = time.Unix(createdAt, 0)
	return t, nil
}
