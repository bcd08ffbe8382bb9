// Package sqlstore хранит снимки в таблице реляционной БД.
// Поддерживаются PostgreSQL (lib/pq) и Microsoft SQL Server (go-mssqldb).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	// Драйверы регистрируются в database/sql.
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/lib/pq"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/pkg/urlutil"
	"github.com/unentropy/unentropy-sub001/internal/storage"
)

// Name — имя провайдера в конфигурации.
const Name = "sql"

// DefaultTable — таблица снимков по умолчанию.
const DefaultTable = "unentropy_snapshots"

// Dialect — диалект SQL.
type Dialect string

// Поддерживаемые диалекты.
const (
	DialectPostgres  Dialect = "postgres"
	DialectSQLServer Dialect = "sqlserver"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Descriptor описывает провайдер для реестра storage.
var Descriptor = storage.Descriptor{
	Name:    Name,
	Options: []string{"driver", "dsn", "table", "migrate"},
	Open:    open,
}

// ParseDialect разбирает имя драйвера. "mssql" — синоним sqlserver.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql":
		return DialectPostgres, nil
	case "sqlserver", "mssql":
		return DialectSQLServer, nil
	default:
		return "", fmt.Errorf("неподдерживаемый драйвер %q, допустимы: postgres, sqlserver", s)
	}
}

// Store — провайдер поверх database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
	logger  logging.Logger

	selectQuery string
	upsertQuery string
}

func open(ctx context.Context, opts storage.Options, deps storage.Deps) (storage.Provider, error) {
	driver, err := opts.RequiredString("driver")
	if err != nil {
		return nil, err
	}
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, &storage.OptionError{Key: "driver", Msg: err.Error()}
	}
	dsn, err := opts.RequiredString("dsn")
	if err != nil {
		return nil, err
	}
	table, err := opts.String("table", DefaultTable)
	if err != nil {
		return nil, err
	}
	if !tableNamePattern.MatchString(table) {
		return nil, &storage.OptionError{Key: "table", Msg: fmt.Sprintf("некорректное имя таблицы %q", table)}
	}
	migrate, err := opts.Bool("migrate", false)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open(%s): %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("подключение к БД (%s, %s): %w", dialect, urlutil.MaskDSN(dsn), err)
	}

	st := NewWithDB(db, dialect, table, deps.Logger)
	st.logger.Debug("Подключение к базе снимков", "dialect", string(dialect), "dsn", urlutil.MaskDSN(dsn))
	if migrate {
		if err := st.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return st, nil
}

// NewWithDB создаёт провайдер поверх открытого соединения. Имя таблицы должно быть проверено.
func NewWithDB(db *sql.DB, dialect Dialect, table string, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	st := &Store{db: db, dialect: dialect, table: table, logger: logger}
	switch dialect {
	case DialectSQLServer:
		st.selectQuery = fmt.Sprintf("SELECT snapshot FROM %s WHERE snapshot_key = @p1", table)
		st.upsertQuery = fmt.Sprintf(`MERGE INTO %s WITH (HOLDLOCK) AS target
USING (SELECT @p1 AS snapshot_key) AS source ON target.snapshot_key = source.snapshot_key
WHEN MATCHED THEN UPDATE SET revision = @p2, snapshot = @p3, updated_at = @p4
WHEN NOT MATCHED THEN INSERT (snapshot_key, revision, snapshot, updated_at) VALUES (@p1, @p2, @p3, @p4);`, table)
	default:
		st.selectQuery = fmt.Sprintf("SELECT snapshot FROM %s WHERE snapshot_key = $1", table)
		st.upsertQuery = fmt.Sprintf(`INSERT INTO %s (snapshot_key, revision, snapshot, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (snapshot_key) DO UPDATE SET revision = EXCLUDED.revision, snapshot = EXCLUDED.snapshot, updated_at = EXCLUDED.updated_at`, table)
	}
	return st
}

// Migrate создаёт таблицу снимков, если её нет.
func (s *Store) Migrate(ctx context.Context) error {
	var ddl string
	switch s.dialect {
	case DialectSQLServer:
		ddl = fmt.Sprintf(`IF OBJECT_ID(N'%[1]s', N'U') IS NULL
CREATE TABLE %[1]s (
	snapshot_key NVARCHAR(512) NOT NULL PRIMARY KEY,
	revision NVARCHAR(128) NOT NULL,
	snapshot NVARCHAR(MAX) NOT NULL,
	updated_at DATETIME2 NOT NULL
)`, s.table)
	default:
		ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	snapshot_key VARCHAR(512) PRIMARY KEY,
	revision VARCHAR(128) NOT NULL,
	snapshot TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, s.table)
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("создание таблицы %s: %w", s.table, err)
	}
	s.logger.Debug("Таблица снимков готова", "table", s.table, "dialect", string(s.dialect))
	return nil
}

// Fetch читает снимок по ключу.
func (s *Store) Fetch(ctx context.Context, key string) (*metric.Snapshot, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, s.selectQuery, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("чтение снимка %q из %s: %w", key, s.table, err)
	}
	return metric.Decode([]byte(raw))
}

// Store вставляет или обновляет снимок одним запросом.
func (s *Store) Store(ctx context.Context, key string, snap *metric.Snapshot) error {
	data, err := metric.Encode(snap)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.upsertQuery, key, snap.Revision, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("запись снимка %q в %s: %w", key, s.table, err)
	}
	return nil
}

// Close закрывает соединение с БД.
func (s *Store) Close() error {
	return s.db.Close()
}
