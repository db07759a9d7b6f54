package store

// Schema is the complete concurrence schema.
const Schema = `
-- Tracked products (user-entered, one per project)
CREATE TABLE IF NOT EXISTS products (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    website     TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

-- Projects group a product with the competitors it is compared against
CREATE TABLE IF NOT EXISTS projects (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    product_id  TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

-- Competitors: immutable identity, mutable metadata
CREATE TABLE IF NOT EXISTS competitors (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    website     TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

-- Many-to-many: a competitor can be tracked by several projects
CREATE TABLE IF NOT EXISTS project_competitors (
    project_id    TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    competitor_id TEXT NOT NULL REFERENCES competitors(id) ON DELETE CASCADE,
    created_at    INTEGER NOT NULL,
    PRIMARY KEY (project_id, competitor_id)
);
CREATE INDEX IF NOT EXISTS idx_project_competitors_comp ON project_competitors(competitor_id);

-- Snapshots: append-only content history per owner (product or competitor).
-- The active snapshot is the most recent by created_at.
CREATE TABLE IF NOT EXISTS snapshots (
    id              TEXT PRIMARY KEY,
    owner_id        TEXT NOT NULL,
    owner_type      TEXT NOT NULL CHECK (owner_type IN ('product', 'competitor')),
    url             TEXT NOT NULL DEFAULT '',
    title           TEXT NOT NULL DEFAULT '',
    description     TEXT NOT NULL DEFAULT '',
    html            TEXT NOT NULL DEFAULT '',
    text            TEXT NOT NULL DEFAULT '',
    markdown        TEXT NOT NULL DEFAULT '',
    content_hash    TEXT NOT NULL DEFAULT '',
    content_length  INTEGER NOT NULL DEFAULT 0,
    scraping_method TEXT NOT NULL DEFAULT '',
    scraped_at      INTEGER NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_owner ON snapshots(owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_type ON snapshots(owner_type, created_at DESC);

-- Scrape log: one row per priority attempt (observability)
CREATE TABLE IF NOT EXISTS scrape_log (
    id            TEXT PRIMARY KEY,
    competitor_id TEXT NOT NULL,
    priority      TEXT NOT NULL,
    status        TEXT NOT NULL,
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    scraped_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scrape_log_comp ON scrape_log(competitor_id, scraped_at DESC);
`
