package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nutrition-engine/internal/core/pantry"
	"nutrition-engine/internal/pkg/common"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStorage 使用者資料、食材庫存與餐食計畫的 SQLite 儲存
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage 開啟資料庫並建立資料表
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite 同時只允許一個寫入者
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	common.LogInfo("SQLite 儲存已初始化", zap.String("path", dbPath))
	return s, nil
}

// Close 關閉資料庫
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping 檢查資料庫連線，供 readiness 使用
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS profiles (
        user_id TEXT PRIMARY KEY,
        data TEXT NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS pantry_items (
        id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        name TEXT NOT NULL,
        category TEXT NOT NULL,
        quantity REAL NOT NULL,
        unit TEXT NOT NULL,
        expiration_date DATETIME,
        nutritional_info TEXT,
        created_at DATETIME NOT NULL,
        PRIMARY KEY (user_id, id)
    );

    CREATE TABLE IF NOT EXISTS meal_plans (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        date TEXT NOT NULL,
        data TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        UNIQUE (user_id, date)
    );

    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// UpsertProfile 新增或覆寫使用者資料
func (s *SQLiteStorage) UpsertProfile(ctx context.Context, profile common.UserProfile) error {
	if profile.UserID == "" {
		return common.NewValidationError("user_id is required")
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	query := `
        INSERT INTO profiles (user_id, data, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
    `
	if _, err := s.db.ExecContext(ctx, query, profile.UserID, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// GetProfile 取得使用者資料
func (s *SQLiteStorage) GetProfile(ctx context.Context, userID string) (common.UserProfile, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return common.UserProfile{}, common.ErrProfileNotFound
	}
	if err != nil {
		return common.UserProfile{}, fmt.Errorf("failed to query profile: %w", err)
	}

	var profile common.UserProfile
	if err := common.ParseJSON(data, &profile); err != nil {
		return common.UserProfile{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	profile.UserID = userID
	return profile, nil
}

// AddPantryItems 新增食材；缺少 ID 時產生 UUID，未給分類時自動分類。
// ID 只在同一使用者內唯一，相同 ID 會覆寫該使用者自己的項目
func (s *SQLiteStorage) AddPantryItems(ctx context.Context, userID string, items []common.PantryItem) ([]common.PantryItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO pantry_items (id, user_id, name, category, quantity, unit, expiration_date, nutritional_info, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(user_id, id) DO UPDATE SET
            name = excluded.name, category = excluded.category, quantity = excluded.quantity,
            unit = excluded.unit, expiration_date = excluded.expiration_date,
            nutritional_info = excluded.nutritional_info
    `
	now := time.Now().UTC()
	saved := make([]common.PantryItem, 0, len(items))
	for _, item := range items {
		if item.Name == "" {
			return nil, common.NewValidationError("pantry item name is required")
		}
		if item.ID == "" {
			item.ID = common.GenerateUUID()
		}
		item.Category = pantry.CategoryOf(item)

		var nutrition sql.NullString
		if item.NutritionalInfo != nil {
			raw, err := json.Marshal(item.NutritionalInfo)
			if err != nil {
				return nil, fmt.Errorf("failed to encode nutritional info: %w", err)
			}
			nutrition = sql.NullString{String: string(raw), Valid: true}
		}
		var expires sql.NullTime
		if item.ExpirationDate != nil {
			expires = sql.NullTime{Time: item.ExpirationDate.UTC(), Valid: true}
		}

		if _, err := tx.ExecContext(ctx, query,
			item.ID, userID, item.Name, string(item.Category), item.Quantity, item.Unit,
			expires, nutrition, now); err != nil {
			return nil, fmt.Errorf("failed to insert pantry item: %w", err)
		}
		saved = append(saved, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pantry items: %w", err)
	}
	return saved, nil
}

// ListPantryItems 列出數量大於 0 的食材
func (s *SQLiteStorage) ListPantryItems(ctx context.Context, userID string) ([]common.PantryItem, error) {
	query := `
        SELECT id, name, category, quantity, unit, expiration_date, nutritional_info
        FROM pantry_items
        WHERE user_id = ? AND quantity > 0
        ORDER BY rowid
    `
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pantry items: %w", err)
	}
	defer rows.Close()

	items := []common.PantryItem{}
	for rows.Next() {
		var (
			item      common.PantryItem
			category  string
			expires   sql.NullTime
			nutrition sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Name, &category, &item.Quantity, &item.Unit, &expires, &nutrition); err != nil {
			return nil, fmt.Errorf("failed to scan pantry item: %w", err)
		}
		item.Category = common.PantryCategory(category)
		if expires.Valid {
			t := expires.Time
			item.ExpirationDate = &t
		}
		if nutrition.Valid {
			var info common.NutritionalInfo
			if err := common.ParseJSON(nutrition.String, &info); err == nil {
				item.NutritionalInfo = &info
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpsertPlan 以 {userId, date} 覆寫計畫
func (s *SQLiteStorage) UpsertPlan(ctx context.Context, plan common.MealPlan) error {
	if plan.ID == "" {
		plan.ID = common.PlanID(plan.UserID, plan.Date)
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	query := `
        INSERT INTO meal_plans (id, user_id, date, data, created_at) VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(user_id, date) DO UPDATE SET id = excluded.id, data = excluded.data, created_at = excluded.created_at
    `
	if _, err := s.db.ExecContext(ctx, query, plan.ID, plan.UserID, plan.Date, string(data), plan.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}
	return nil
}

// GetPlan 取得指定日期的計畫
func (s *SQLiteStorage) GetPlan(ctx context.Context, userID, date string) (common.MealPlan, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM meal_plans WHERE user_id = ? AND date = ?`, userID, date).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return common.MealPlan{}, common.ErrPlanNotFound
	}
	if err != nil {
		return common.MealPlan{}, fmt.Errorf("failed to query plan: %w", err)
	}

	var plan common.MealPlan
	if err := common.ParseJSON(data, &plan); err != nil {
		return common.MealPlan{}, fmt.Errorf("failed to decode plan: %w", err)
	}
	return plan, nil
}
