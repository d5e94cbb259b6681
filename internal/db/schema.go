package db

// SchemaSQL contains the database schema initialization SQL.
// Uniqueness lives in the database, not in application checks: article.url,
// keyword.keyword and crawl_target.url carry UNIQUE indexes so concurrent
// writers cannot race a duplicate past a read-then-write check.
const SchemaSQL = `
    -- ==========================================================================
    -- ARTICLE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS article SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS url ON article TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON article TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON article TYPE string;
    DEFINE FIELD IF NOT EXISTS author ON article TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS published_at ON article TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS extracted_at ON article TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS image_url ON article TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS relevance_score ON article TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS keyword_tags ON article TYPE option<array<string>>;
    DEFINE FIELD IF NOT EXISTS tags ON article TYPE option<array<string>>;
    DEFINE FIELD IF NOT EXISTS status ON article TYPE string DEFAULT 'RAW';
    DEFINE FIELD IF NOT EXISTS crawl_job_id ON article TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON article TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON article TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS article_url ON article FIELDS url UNIQUE;
    DEFINE INDEX IF NOT EXISTS article_status ON article FIELDS status;
    DEFINE INDEX IF NOT EXISTS article_job ON article FIELDS crawl_job_id;

    -- ==========================================================================
    -- CRAWL_JOB TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS crawl_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS target_id ON crawl_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS status ON crawl_job TYPE string DEFAULT 'PENDING';
    DEFINE FIELD IF NOT EXISTS total_items ON crawl_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS processed_items ON crawl_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS started_at ON crawl_job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS completed_at ON crawl_job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS error_message ON crawl_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON crawl_job TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS crawl_job_status ON crawl_job FIELDS status;

    -- ==========================================================================
    -- CRAWL_TARGET TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS crawl_target SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON crawl_target TYPE string;
    DEFINE FIELD IF NOT EXISTS url ON crawl_target TYPE string;
    DEFINE FIELD IF NOT EXISTS type ON crawl_target TYPE string DEFAULT 'news';
    DEFINE FIELD IF NOT EXISTS category ON crawl_target TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS enabled ON crawl_target TYPE bool DEFAULT true;
    DEFINE FIELD IF NOT EXISTS last_crawl ON crawl_target TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS items_collected ON crawl_target TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS success_rate ON crawl_target TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS created_at ON crawl_target TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS crawl_target_url ON crawl_target FIELDS url UNIQUE;

    -- ==========================================================================
    -- KEYWORD TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS keyword SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS keyword ON keyword TYPE string;
    DEFINE FIELD IF NOT EXISTS use_count ON keyword TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS is_favorite ON keyword TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS category ON keyword TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS description ON keyword TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON keyword TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON keyword TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS keyword_keyword ON keyword FIELDS keyword UNIQUE;

    -- ==========================================================================
    -- SEARCH_HISTORY TABLE
    -- ==========================================================================
    -- Append-only audit log. Filters are stored serialized, not as columns.
    DEFINE TABLE IF NOT EXISTS search_history SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS search_query ON search_history TYPE string;
    DEFINE FIELD IF NOT EXISTS keyword_id ON search_history TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS result_count ON search_history TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS search_time ON search_history TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS status ON search_history TYPE string;
    DEFINE FIELD IF NOT EXISTS filters ON search_history TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS error_message ON search_history TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON search_history TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS search_history_created ON search_history FIELDS created_at;

    -- ==========================================================================
    -- SUMMARY TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS summary SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS article_id ON summary TYPE string;
    DEFINE FIELD IF NOT EXISTS type ON summary TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON summary TYPE string;
    DEFINE FIELD IF NOT EXISTS quality ON summary TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS version ON summary TYPE int DEFAULT 1;
    DEFINE FIELD IF NOT EXISTS model ON summary TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON summary TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS summary_article ON summary FIELDS article_id;

    -- ==========================================================================
    -- AI_ANALYSIS_JOB TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS ai_analysis_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS type ON ai_analysis_job TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON ai_analysis_job TYPE string DEFAULT 'PENDING';
    DEFINE FIELD IF NOT EXISTS article_id ON ai_analysis_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS input_content ON ai_analysis_job TYPE string;
    DEFINE FIELD IF NOT EXISTS result ON ai_analysis_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS model ON ai_analysis_job TYPE string;
    DEFINE FIELD IF NOT EXISTS priority ON ai_analysis_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS retry_count ON ai_analysis_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS max_retries ON ai_analysis_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS error_message ON ai_analysis_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS token_usage ON ai_analysis_job TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS started_at ON ai_analysis_job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS completed_at ON ai_analysis_job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS created_at ON ai_analysis_job TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS ai_job_status ON ai_analysis_job FIELDS status;

    -- ==========================================================================
    -- AI_USAGE_LOG TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS ai_usage_log SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS operation ON ai_usage_log TYPE string;
    DEFINE FIELD IF NOT EXISTS model ON ai_usage_log TYPE string;
    DEFINE FIELD IF NOT EXISTS prompt_tokens ON ai_usage_log TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS completion_tokens ON ai_usage_log TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS total_tokens ON ai_usage_log TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS cost ON ai_usage_log TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS status ON ai_usage_log TYPE string DEFAULT 'success';
    DEFINE FIELD IF NOT EXISTS error_message ON ai_usage_log TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON ai_usage_log TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS ai_usage_created ON ai_usage_log FIELDS created_at;
    DEFINE INDEX IF NOT EXISTS ai_usage_model ON ai_usage_log FIELDS model;
`
