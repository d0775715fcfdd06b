package store

const schema = `
CREATE TABLE IF NOT EXISTS templates (
	id                  TEXT PRIMARY KEY,
	shop_id             TEXT NOT NULL UNIQUE,
	name                TEXT NOT NULL,
	issue_pattern       TEXT NOT NULL,
	max_stamps          INTEGER NOT NULL DEFAULT 1,
	threshold           INTEGER NOT NULL DEFAULT 0,
	time_period_days    INTEGER,
	period_start        TIMESTAMP,
	period_end          TIMESTAMP,
	reward_description  TEXT NOT NULL DEFAULT '',
	image_id            TEXT,
	status              TEXT NOT NULL DEFAULT 'active',
	created_at          TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS issued_tokens (
	id                    TEXT PRIMARY KEY,
	template_id           TEXT NOT NULL,
	recipient_address     TEXT NOT NULL,
	current_stamps        INTEGER NOT NULL DEFAULT 0,
	max_stamps            INTEGER NOT NULL DEFAULT 1,
	status                TEXT NOT NULL DEFAULT 'active',
	mint_status           TEXT NOT NULL DEFAULT 'pending',
	fail_reason           TEXT,
	mint_error            TEXT,
	needs_metadata_repair INTEGER NOT NULL DEFAULT 0,
	tx_hash               TEXT,
	token_id              INTEGER,
	chain_id              INTEGER,
	source_payment_id     TEXT,
	issued_at             TIMESTAMP NOT NULL,
	updated_at            TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_issued_tokens_recipient
	ON issued_tokens (recipient_address);

CREATE TABLE IF NOT EXISTS images (
	id          TEXT PRIMARY KEY,
	template_id TEXT,
	content     BLOB NOT NULL,
	mime_type   TEXT NOT NULL,
	size_bytes  INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_events (
	id                TEXT PRIMARY KEY,
	recipient_address TEXT NOT NULL,
	template_id       TEXT NOT NULL,
	source            TEXT NOT NULL DEFAULT 'manual',
	occurred_at       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payment_events_pair
	ON payment_events (recipient_address, template_id);

CREATE TABLE IF NOT EXISTS mirror (
	mkey       TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`
