package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MariaStore хранит сущности регионов в таблице region_entities MariaDB/MySQL.
// Одна строка на сущность, снимок региона заменяется в транзакции.
type MariaStore struct {
	db *sql.DB
}

// NewMariaStore подключается к базе и создаёт таблицу, если её нет.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
func NewMariaStore(dsn string) (*MariaStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	store := &MariaStore{db: db}
	if err := store.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}
	return store, nil
}

func (s *MariaStore) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS region_entities (
			entity_id  BIGINT UNSIGNED PRIMARY KEY,
			rx         INT         NOT NULL,
			ry         INT         NOT NULL,
			kind       VARCHAR(32) NOT NULL,
			x          DOUBLE      NOT NULL,
			y          DOUBLE      NOT NULL,
			height     DOUBLE      NOT NULL,
			payload    JSON        NULL,
			saved_at   TIMESTAMP   NOT NULL,
			INDEX idx_region (rx, ry)
		) ENGINE=InnoDB
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы region_entities: %w", err)
	}
	return nil
}

// Save заменяет сущности региона в одной транзакции
func (s *MariaStore) Save(ctx context.Context, snap *RegionSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback() // Откат в случае ошибки

	if _, err := tx.ExecContext(ctx, `DELETE FROM region_entities WHERE rx = ? AND ry = ?`, snap.X, snap.Y); err != nil {
		return fmt.Errorf("ошибка очистки региона (%d, %d): %w", snap.X, snap.Y, err)
	}

	if len(snap.Entities) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO region_entities (entity_id, rx, ry, kind, x, y, height, payload, saved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				rx = VALUES(rx), ry = VALUES(ry), kind = VALUES(kind),
				x = VALUES(x), y = VALUES(y), height = VALUES(height),
				payload = VALUES(payload), saved_at = VALUES(saved_at)
		`)
		if err != nil {
			return fmt.Errorf("ошибка подготовки запроса: %w", err)
		}
		defer stmt.Close()

		savedAt := snap.SavedAt
		if savedAt.IsZero() {
			savedAt = time.Now()
		}
		for _, rec := range snap.Entities {
			payload, err := json.Marshal(rec.Payload)
			if err != nil {
				return fmt.Errorf("ошибка сериализации сущности %d: %w", rec.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, rec.ID, snap.X, snap.Y, rec.Type, rec.X, rec.Y, rec.Height, payload, savedAt.UTC()); err != nil {
				return fmt.Errorf("ошибка сохранения сущности %d: %w", rec.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Load читает сущности региона. Регион без строк считается не сохранённым.
func (s *MariaStore) Load(ctx context.Context, x, y int) (*RegionSnapshot, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, kind, x, y, height, payload FROM region_entities WHERE rx = ? AND ry = ? ORDER BY entity_id`, x, y)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка загрузки региона (%d, %d): %w", x, y, err)
	}
	defer rows.Close()

	snap := &RegionSnapshot{X: x, Y: y}
	for rows.Next() {
		var (
			rec     EntityRecord
			payload []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.X, &rec.Y, &rec.Height, &payload); err != nil {
			return nil, false, fmt.Errorf("ошибка чтения строки: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &rec.Payload); err != nil {
				return nil, false, fmt.Errorf("ошибка десериализации сущности %d: %w", rec.ID, err)
			}
		}
		snap.Entities = append(snap.Entities, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	if len(snap.Entities) == 0 {
		return nil, false, nil
	}
	return snap, true, nil
}

func (s *MariaStore) Delete(ctx context.Context, x, y int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM region_entities WHERE rx = ? AND ry = ?`, x, y); err != nil {
		return fmt.Errorf("ошибка удаления региона (%d, %d): %w", x, y, err)
	}
	return nil
}

// Close закрывает соединение с базой данных.
func (s *MariaStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
