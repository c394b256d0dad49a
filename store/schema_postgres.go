package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS customers (
    id                   BIGSERIAL PRIMARY KEY,
    name                 VARCHAR(255) NOT NULL,
    country_name         VARCHAR(255),
    country_code         VARCHAR(2),
    company              VARCHAR(255),
    representative_name  VARCHAR(255),
    representative_image VARCHAR(255),
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS products (
    id               BIGSERIAL PRIMARY KEY,
    code             VARCHAR(100) NOT NULL UNIQUE,
    name             VARCHAR(255) NOT NULL,
    description      TEXT,
    image            VARCHAR(255),
    price            DECIMAL(10, 2),
    category         VARCHAR(100),
    quantity         INTEGER DEFAULT 0,
    inventory_status VARCHAR(50),
    rating           INTEGER,
    shift            VARCHAR(10),
    location         TEXT,
    latitude         TEXT,
    longitude        TEXT,
    address          TEXT,
    operating_hours  TEXT,
    machine_type     TEXT,
    payment_methods  TEXT,
    last_maintenance TEXT,
    status           TEXT,
    parent_id        BIGINT REFERENCES products(id) ON DELETE CASCADE,
    power_mode       VARCHAR(10),
    images           JSONB,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS outbox (
    id          BIGSERIAL PRIMARY KEY,
    topic       TEXT NOT NULL,
    payload     BYTEA NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    station_id  TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sent_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at);

CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id   BIGINT NOT NULL,
    action      TEXT NOT NULL,
    old_value   TEXT NOT NULL DEFAULT '',
    new_value   TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);
`
