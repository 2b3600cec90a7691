// ABOUTME: SQLite database schema for agent state storage
// ABOUTME: Creates all tables and indexes for decisions, tokens, counters, and the breaker
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Pending/terminal decisions (the approval state machine)
CREATE TABLE IF NOT EXISTS decisions (
    decision_id TEXT PRIMARY KEY,
    candidate_id TEXT NOT NULL UNIQUE,
    post_id TEXT NOT NULL,
    subreddit TEXT NOT NULL,
    priority TEXT NOT NULL,
    draft TEXT NOT NULL,
    risk_score REAL NOT NULL DEFAULT 0,
    quality_score REAL NOT NULL DEFAULT 0,
    exploration INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'PENDING',
    reason TEXT,
    context_url TEXT,
    comment_id TEXT,
    created_at DATETIME NOT NULL,
    approved_at DATETIME,
    published_at DATETIME
);

-- Approval tokens, indexed by hash; the raw token is never stored
CREATE TABLE IF NOT EXISTS approval_tokens (
    token_hash TEXT PRIMARY KEY,
    decision_id TEXT NOT NULL REFERENCES decisions(decision_id) ON DELETE CASCADE,
    issued_at DATETIME NOT NULL,
    expires_at DATETIME NOT NULL,
    consumed_at DATETIME,
    notified INTEGER NOT NULL DEFAULT 0
);

-- Idempotency records keyed by external candidate id
CREATE TABLE IF NOT EXISTS replay_guard (
    candidate_id TEXT PRIMARY KEY,
    subreddit TEXT NOT NULL,
    priority TEXT NOT NULL,
    disposition TEXT NOT NULL,
    last_attempt DATETIME NOT NULL
);

-- Daily publish counters keyed by UTC date
CREATE TABLE IF NOT EXISTS daily_stats (
    day TEXT PRIMARY KEY,
    published INTEGER NOT NULL DEFAULT 0
);

-- Per-subreddit daily publish counters
CREATE TABLE IF NOT EXISTS subreddit_stats (
    day TEXT NOT NULL,
    subreddit TEXT NOT NULL,
    published INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (day, subreddit)
);

-- Posts replied to per UTC day (per-post single-reply rule)
CREATE TABLE IF NOT EXISTS post_replies (
    day TEXT NOT NULL,
    post_id TEXT NOT NULL,
    PRIMARY KEY (day, post_id)
);

-- Circuit breaker singleton row
CREATE TABLE IF NOT EXISTS breaker_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    open INTEGER NOT NULL DEFAULT 0,
    opened_at DATETIME,
    reason TEXT,
    consecutive_failures INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME
);

-- Append-only error log; never contains raw tokens or credentials
CREATE TABLE IF NOT EXISTS error_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id TEXT,
    error_type TEXT NOT NULL,
    message TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

-- Indexes for efficient querying
CREATE INDEX IF NOT EXISTS idx_decisions_status ON decisions(status);
CREATE INDEX IF NOT EXISTS idx_decisions_subreddit ON decisions(subreddit);
CREATE INDEX IF NOT EXISTS idx_tokens_decision ON approval_tokens(decision_id);
CREATE INDEX IF NOT EXISTS idx_tokens_expires ON approval_tokens(expires_at);
CREATE INDEX IF NOT EXISTS idx_replay_attempt ON replay_guard(last_attempt);
CREATE INDEX IF NOT EXISTS idx_errors_created ON error_log(created_at);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
