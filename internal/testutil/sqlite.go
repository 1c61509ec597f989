package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// schema mirrors pkg/migrate/migrations in SQLite dialect. Times are stored in UTC.
const schema = `
CREATE TABLE companies (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  registration_number TEXT,
  registered_address TEXT,
  last_voucher_number INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE shareholders (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
  name TEXT,
  address TEXT,
  created_at DATETIME
);
CREATE TABLE recurring_dividends (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
  shareholder_id TEXT NOT NULL REFERENCES shareholders(id) ON DELETE CASCADE,
  share_class TEXT NOT NULL,
  number_of_shares INTEGER NOT NULL,
  amount_per_share TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  frequency TEXT NOT NULL CHECK (frequency IN ('monthly', 'quarterly', 'annually')),
  day_of_month INTEGER NOT NULL CHECK (day_of_month BETWEEN 1 AND 28),
  start_date DATETIME NOT NULL,
  end_date DATETIME,
  email_recipients TEXT NOT NULL DEFAULT '[]',
  include_board_minutes BOOLEAN NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  is_paused BOOLEAN NOT NULL DEFAULT 0,
  last_run_at DATETIME,
  next_run_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE dividends (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  company_id TEXT NOT NULL,
  shareholder_id TEXT NOT NULL,
  shareholder_name TEXT NOT NULL,
  share_class TEXT NOT NULL,
  number_of_shares INTEGER NOT NULL,
  amount_per_share TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  payment_date DATETIME NOT NULL,
  voucher_number INTEGER NOT NULL,
  file_path TEXT NOT NULL,
  form_data TEXT,
  linked_minutes_id TEXT,
  created_at DATETIME
);
CREATE UNIQUE INDEX ux_dividends_company_voucher ON dividends (company_id, voucher_number);
CREATE TABLE board_minutes (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  company_id TEXT NOT NULL,
  meeting_date DATETIME NOT NULL,
  attendees TEXT,
  share_class TEXT NOT NULL,
  amount_per_share TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  file_path TEXT NOT NULL,
  form_data TEXT,
  linked_dividend_id TEXT,
  created_at DATETIME
);
CREATE TABLE scheduled_dividend_runs (
  id TEXT PRIMARY KEY,
  schedule_id TEXT NOT NULL REFERENCES recurring_dividends(id) ON DELETE CASCADE,
  scheduled_for DATETIME NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('processing', 'completed', 'failed')),
  dividend_id TEXT,
  minutes_id TEXT,
  email_sent BOOLEAN NOT NULL DEFAULT 0,
  email_sent_at DATETIME,
  error_message TEXT,
  executed_at DATETIME,
  created_at DATETIME
);
CREATE TABLE usage_counters (
  user_id TEXT NOT NULL,
  period TEXT NOT NULL,
  dividends_count INTEGER NOT NULL DEFAULT 0,
  minutes_count INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME,
  PRIMARY KEY (user_id, period)
);
CREATE TABLE activity_logs (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  company_id TEXT,
  action TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`

// NewDB opens an isolated in-memory SQLite database with the full schema applied.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}
