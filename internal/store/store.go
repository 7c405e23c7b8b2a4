package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	pkgerrors "github.com/pkg/errors"

	"github.com/iurnickita/orderwatch/internal/store/config"
)

// Store - долговременное хранилище ключ-значение для состояния уведомлений.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var (
	ErrNoRows = errors.New("no rows")
	ErrNoDsn  = errors.New("database dsn is not set")
)

// NewStore открывает долговременное хранилище. Без строки подключения
// сервис не запускается: состояние в памяти теряется при перезапуске.
func NewStore(cfg config.Config) (Store, error) {
	if cfg.DBDsn == "" {
		return nil, ErrNoDsn
	}
	return NewPostgresStore(cfg)
}

type pgStore struct {
	database *sql.DB
}

func NewPostgresStore(cfg config.Config) (Store, error) {
	db, err := sql.Open("pgx", cfg.DBDsn)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open database")
	}

	// Таблица состояния. Одна строка на ключ, значение - JSON документ.
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS kv_state (" +
			" key VARCHAR (64) PRIMARY KEY," +
			" value BYTEA NOT NULL," +
			" updated_at TIMESTAMP NOT NULL DEFAULT NOW()" +
			" );")
	if err != nil {
		db.Close()
		return nil, pkgerrors.Wrap(err, "create kv_state table")
	}

	return &pgStore{
		database: db,
	}, nil
}

func (store *pgStore) Get(ctx context.Context, key string) ([]byte, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT value FROM kv_state"+
			" WHERE key = $1",
		key)
	var value []byte
	err := row.Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, pkgerrors.Wrapf(err, "get %s", key)
	}
	return value, nil
}

func (store *pgStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO kv_state (key, value, updated_at)"+
			" VALUES ($1, $2, NOW())"+
			" ON CONFLICT (key) DO UPDATE"+
			" SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at",
		key,
		value)
	if err != nil {
		return pkgerrors.Wrapf(err, "put %s", key)
	}
	return nil
}

func (store *pgStore) Delete(ctx context.Context, key string) error {
	_, err := store.database.ExecContext(ctx,
		"DELETE FROM kv_state"+
			" WHERE key = $1",
		key)
	if err != nil {
		return pkgerrors.Wrapf(err, "delete %s", key)
	}
	return nil
}

func (store *pgStore) Close() error {
	return store.database.Close()
}

// memStore - хранилище в памяти для тестов.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemStore() Store {
	return &memStore{data: make(map[string][]byte)}
}

func (store *memStore) Get(_ context.Context, key string) ([]byte, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	value, ok := store.data[key]
	if !ok {
		return nil, ErrNoRows
	}
	return append([]byte(nil), value...), nil
}

func (store *memStore) Put(_ context.Context, key string, value []byte) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.data[key] = append([]byte(nil), value...)
	return nil
}

func (store *memStore) Delete(_ context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.data, key)
	return nil
}

func (store *memStore) Close() error {
	return nil
}
