package database

import "database/sql"

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            SERIAL PRIMARY KEY,
    username      VARCHAR(50) UNIQUE NOT NULL,
    email         VARCHAR(255) UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    full_name     TEXT NOT NULL DEFAULT '',
    role          VARCHAR(20) NOT NULL CHECK (role IN ('admin', 'admin_regional', 'teknisi')),
    area          VARCHAR(100),
    region        VARCHAR(20),
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_username ON users (username);
CREATE INDEX IF NOT EXISTS idx_users_role_area ON users (role, area);

CREATE TABLE IF NOT EXISTS work_orders (
    id              SERIAL PRIMARY KEY,
    customer_id     VARCHAR(100) NOT NULL,
    wo_id_xl        VARCHAR(100) UNIQUE NOT NULL,
    city_simplified VARCHAR(100) NOT NULL,
    product_name    TEXT,
    status_wo       VARCHAR(50),
    vendor          VARCHAR(100),
    region          VARCHAR(20),
    foto_rumah      TEXT,
    foto_fat        TEXT,
    foto_cabut_port TEXT,
    foto_ont        TEXT,
    foto_adapter    TEXT,
    foto_kabel_lan  TEXT,
    foto_customer   TEXT,
    foto_sn         TEXT,
    sn_ocr_result   TEXT,
    approval_status VARCHAR(20) CHECK (approval_status IN ('pending', 'approved', 'rejected')),
    approval_by     VARCHAR(50),
    approval_date   TIMESTAMPTZ,
    approval_notes  TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_by      VARCHAR(50)
);
CREATE INDEX IF NOT EXISTS idx_work_orders_city ON work_orders (city_simplified);
CREATE INDEX IF NOT EXISTS idx_work_orders_status ON work_orders (status_wo);

CREATE TABLE IF NOT EXISTS chat_rooms (
    id                      SERIAL PRIMARY KEY,
    teknisi_username        VARCHAR(50) NOT NULL,
    admin_regional_username VARCHAR(50) NOT NULL,
    region                  VARCHAR(20) NOT NULL,
    last_message            TEXT,
    last_message_at         TIMESTAMPTZ,
    unread_count_teknisi    INTEGER NOT NULL DEFAULT 0,
    unread_count_admin      INTEGER NOT NULL DEFAULT 0,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (teknisi_username, admin_regional_username)
);
CREATE INDEX IF NOT EXISTS idx_chat_rooms_teknisi ON chat_rooms (teknisi_username);
CREATE INDEX IF NOT EXISTS idx_chat_rooms_admin ON chat_rooms (admin_regional_username);

CREATE TABLE IF NOT EXISTS chat_messages (
    id              SERIAL PRIMARY KEY,
    room_id         INTEGER NOT NULL REFERENCES chat_rooms(id) ON DELETE CASCADE,
    sender_username VARCHAR(50) NOT NULL,
    sender_role     VARCHAR(20) NOT NULL CHECK (sender_role IN ('teknisi', 'admin_regional')),
    message         TEXT NOT NULL,
    message_type    VARCHAR(20) NOT NULL DEFAULT 'text' CHECK (message_type IN ('text', 'image', 'wo_link')),
    attachment_url  TEXT,
    is_read         BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_room_created ON chat_messages (room_id, created_at);
`

func RunMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
