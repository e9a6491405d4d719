package sqlite

// schema is the SQL schema used to store instances.
const schema = `
CREATE TABLE IF NOT EXISTS instance (
	definition_id TEXT NOT NULL,
	instance_id   TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT '',
	data          BLOB NOT NULL,

	PRIMARY KEY (definition_id, instance_id)
)`
