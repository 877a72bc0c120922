package db

import "fmt"

// SchemaSQL returns the schema initialization SQL for the given embedding dimension.
// Every statement is idempotent so it runs on each connect.
func SchemaSQL(dimension int) string {
	return fmt.Sprintf(`
    -- ==========================================================================
    -- STORY TABLE (Story Memory)
    -- ==========================================================================
    -- One record per distinct URL; record key is md5(url).
    DEFINE TABLE IF NOT EXISTS story SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS source_id ON story TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON story TYPE string;
    DEFINE FIELD IF NOT EXISTS url ON story TYPE string;
    DEFINE FIELD IF NOT EXISTS published_at ON story TYPE datetime;
    DEFINE FIELD IF NOT EXISTS content ON story TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON story TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created ON story TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS story_url ON story FIELDS url UNIQUE;
    DEFINE INDEX IF NOT EXISTS story_created ON story FIELDS created;
    DEFINE INDEX IF NOT EXISTS story_embedding ON story FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;

    -- ==========================================================================
    -- RUN TABLE (pipeline run history)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS run SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS mode ON run TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON run TYPE string;
    DEFINE FIELD IF NOT EXISTS ingested ON run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS unique_count ON run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS duplicates ON run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS segments ON run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS feed_url ON run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS error ON run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS started ON run TYPE datetime;
    DEFINE FIELD IF NOT EXISTS finished ON run TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS run_started ON run FIELDS started;
`, dimension)
}
