package store

import migrate "github.com/rubenv/sql-migrate"

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_initial",
			Up: []string{
				`CREATE TABLE IF NOT EXISTS conversations (
					id TEXT PRIMARY KEY,
					title TEXT NOT NULL,
					agent_type TEXT NOT NULL,
					model TEXT,
					created_at INTEGER NOT NULL,
					updated_at INTEGER NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS messages (
					id TEXT PRIMARY KEY,
					conversation_id TEXT NOT NULL,
					role TEXT NOT NULL,
					content TEXT NOT NULL,
					image_url TEXT,
					created_at INTEGER NOT NULL,
					FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
				)`,
				`CREATE TABLE IF NOT EXISTS api_keys (
					id TEXT PRIMARY KEY,
					agent_type TEXT NOT NULL,
					key_name TEXT NOT NULL,
					api_key TEXT NOT NULL,
					is_active INTEGER DEFAULT 1,
					created_at INTEGER NOT NULL,
					UNIQUE(agent_type, key_name)
				)`,
				`CREATE TABLE IF NOT EXISTS file_operations (
					id TEXT PRIMARY KEY,
					operation_type TEXT NOT NULL,
					file_path TEXT NOT NULL,
					result TEXT,
					created_at INTEGER NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS agent_models (
					id TEXT PRIMARY KEY,
					agent_type TEXT NOT NULL,
					model_value TEXT NOT NULL,
					model_label TEXT NOT NULL,
					is_default INTEGER DEFAULT 0,
					is_active INTEGER DEFAULT 1,
					display_order INTEGER DEFAULT 0,
					created_at INTEGER NOT NULL,
					UNIQUE(agent_type, model_value)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id)`,
				`CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at)`,
				`CREATE INDEX IF NOT EXISTS idx_api_keys_agent_type ON api_keys(agent_type)`,
				`CREATE INDEX IF NOT EXISTS idx_agent_models_agent_type ON agent_models(agent_type)`,
			},
			Down: []string{
				`DROP TABLE IF EXISTS agent_models`,
				`DROP TABLE IF EXISTS file_operations`,
				`DROP TABLE IF EXISTS api_keys`,
				`DROP TABLE IF EXISTS messages`,
				`DROP TABLE IF EXISTS conversations`,
			},
		},
	},
}
