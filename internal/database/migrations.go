package database

// Migration is one versioned schema change.
type Migration struct {
	Version string
	Up      string
}

var migrations = []Migration{
	{
		Version: "001_create_backups",
		Up: `
			CREATE TABLE IF NOT EXISTS backups (
				id TEXT PRIMARY KEY,
				instance TEXT NOT NULL,
				filename TEXT NOT NULL,
				size_bytes INTEGER NOT NULL DEFAULT 0,
				file_count INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				destination_type TEXT NOT NULL DEFAULT 'local',
				destination_path TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				error_message TEXT,
				created_by TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_backups_instance ON backups(instance);
			CREATE INDEX IF NOT EXISTS idx_backups_created_at ON backups(created_at);
		`,
	},
	{
		Version: "002_create_backup_schedules",
		Up: `
			CREATE TABLE IF NOT EXISTS backup_schedules (
				id TEXT PRIMARY KEY,
				instance TEXT NOT NULL,
				schedule TEXT NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT 1,
				include_log BOOLEAN NOT NULL DEFAULT 0,
				retention_count INTEGER NOT NULL DEFAULT 0,
				destination_type TEXT NOT NULL DEFAULT 'local',
				destination_path TEXT NOT NULL DEFAULT '',
				last_run DATETIME,
				next_run DATETIME,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_backup_schedules_instance ON backup_schedules(instance);
			CREATE INDEX IF NOT EXISTS idx_backup_schedules_next_run ON backup_schedules(next_run);
		`,
	},
}
