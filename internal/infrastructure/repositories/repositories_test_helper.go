package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createUserTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE,
		admin BOOLEAN NOT NULL DEFAULT 0,
		referral_code TEXT UNIQUE,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
}

func createWalletTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE wallets (
		id TEXT PRIMARY KEY,
		owner_id TEXT UNIQUE,
		address TEXT NOT NULL UNIQUE,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createTransactionTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE transactions (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		destination_id TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		token TEXT NOT NULL,
		chain_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		type TEXT NOT NULL,
		remarks TEXT DEFAULT '{}',
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createChainTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE chains (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		provider_url TEXT NOT NULL,
		block_process_range INTEGER NOT NULL DEFAULT 100,
		max_process_range INTEGER NOT NULL DEFAULT 1000,
		accepted_block_state TEXT NOT NULL DEFAULT 'finalized',
		last_processed_block INTEGER,
		created_at DATETIME,
		updated_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE contracts (
		id TEXT PRIMARY KEY,
		chain_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		address TEXT NOT NULL,
		decimals INTEGER,
		created_at DATETIME,
		UNIQUE (chain_id, token)
	);`)
}

func createBlockTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE blocks (
		id TEXT PRIMARY KEY,
		chain_id INTEGER NOT NULL,
		number INTEGER NOT NULL,
		hash TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (chain_id, number)
	);`)
	mustExec(t, db, `CREATE TABLE blockchain_logs (
		id TEXT PRIMARY KEY,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL,
		token TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		chain_id INTEGER NOT NULL,
		trx_hash TEXT NOT NULL,
		trx_index INTEGER NOT NULL,
		block_id TEXT,
		nonce INTEGER,
		gas_price TEXT,
		gas_used INTEGER,
		successful BOOLEAN NOT NULL DEFAULT 1,
		transaction_id TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (chain_id, trx_hash, trx_index)
	);`)
}

func createDreamMineTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE dream_mine_games (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		initial_bet NUMERIC NOT NULL,
		token TEXT NOT NULL,
		chain_id INTEGER NOT NULL,
		mode TEXT NOT NULL,
		rows_count INTEGER NOT NULL,
		current_row INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		stake NUMERIC NOT NULL,
		last_choice INTEGER,
		nulls TEXT DEFAULT '[]',
		created_at DATETIME,
		finished_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE dream_mine_rules (
		id TEXT PRIMARY KEY,
		rows_count INTEGER NOT NULL UNIQUE,
		multipliers TEXT NOT NULL,
		probabilities TEXT NOT NULL,
		difficulty_multipliers TEXT NOT NULL,
		min_bet_amount NUMERIC NOT NULL DEFAULT 0,
		max_bet_amount NUMERIC NOT NULL,
		created_at DATETIME
	);`)
}

func createPlinkoTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE plinko_games (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		initial_bet NUMERIC NOT NULL,
		token TEXT NOT NULL,
		chain_id INTEGER NOT NULL,
		mode TEXT NOT NULL,
		rows_count INTEGER NOT NULL,
		balls_count INTEGER NOT NULL,
		status TEXT NOT NULL,
		prize NUMERIC NOT NULL DEFAULT 0,
		created_at DATETIME,
		finished_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE plinko_balls (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		bucket_index INTEGER NOT NULL,
		scored_multiplier REAL NOT NULL,
		drop_specs TEXT NOT NULL,
		created_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE plinko_rules (
		id TEXT PRIMARY KEY,
		rows_count INTEGER NOT NULL UNIQUE,
		multipliers TEXT NOT NULL,
		probabilities TEXT NOT NULL,
		difficulty_multipliers TEXT NOT NULL,
		gravity REAL NOT NULL,
		friction REAL NOT NULL,
		horizontal_speed_factor REAL NOT NULL,
		vertical_speed_factor REAL NOT NULL,
		min_bet_amount NUMERIC NOT NULL DEFAULT 0,
		max_bet_amount NUMERIC NOT NULL,
		created_at DATETIME
	);`)
}

func createAllTables(t *testing.T, db *gorm.DB) {
	createUserTable(t, db)
	createWalletTable(t, db)
	createTransactionTable(t, db)
	createChainTables(t, db)
	createBlockTables(t, db)
	createDreamMineTables(t, db)
	createPlinkoTables(t, db)
}
