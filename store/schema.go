package store

// Schema is the DDL of the run catalog. One row per successful analysis;
// result_json holds the canonical record, the score columns are copies for
// listing and sorting.
const Schema = `
CREATE TABLE IF NOT EXISTS analyses (
    id           TEXT PRIMARY KEY,
    url          TEXT NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL,
    total        INTEGER NOT NULL,
    typography   INTEGER NOT NULL,
    color        INTEGER NOT NULL,
    layout       INTEGER NOT NULL,
    result_path  TEXT NOT NULL,
    result_json  TEXT NOT NULL,
    html_path    TEXT NOT NULL DEFAULT '',
    pdf_path     TEXT NOT NULL DEFAULT '',
    md_path      TEXT NOT NULL DEFAULT '',
    report_error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_url ON analyses(url);
`
