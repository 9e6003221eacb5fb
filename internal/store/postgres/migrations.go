package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations. Versions are
// sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT,
	name          TEXT NOT NULL,
	role          TEXT NOT NULL CHECK (role IN ('ADMIN', 'ATTORNEY', 'PARALEGAL', 'SUPPORT_STAFF', 'CLIENT_DEPT')),
	department_id UUID,
	slack_user_id TEXT,
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE cases (
	id                    UUID PRIMARY KEY,
	case_number           TEXT NOT NULL UNIQUE,
	title                 TEXT NOT NULL,
	status                TEXT NOT NULL DEFAULT 'OPEN',
	owner_id              UUID NOT NULL REFERENCES users(id),
	assigned_attorney_id  UUID REFERENCES users(id),
	assigned_paralegal_id UUID REFERENCES users(id),
	client_department_id  UUID,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE legal_requests (
	id             UUID PRIMARY KEY,
	title          TEXT NOT NULL,
	type           TEXT NOT NULL CHECK (type IN ('LEGAL_SERVICE', 'FOIL')),
	status         TEXT NOT NULL DEFAULT 'SUBMITTED',
	department_id  UUID NOT NULL,
	requester_id   UUID NOT NULL REFERENCES users(id),
	assigned_to_id UUID REFERENCES users(id),
	due_date       TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE task_templates (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	description   TEXT,
	category      TEXT NOT NULL,
	visibility    TEXT NOT NULL CHECK (visibility IN ('PUBLIC', 'DEPARTMENT', 'PRIVATE')),
	department_id UUID,
	created_by_id UUID NOT NULL REFERENCES users(id),
	tasks         JSONB NOT NULL DEFAULT '[]',
	use_count     INTEGER NOT NULL DEFAULT 0,
	last_used     TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE tasks (
	id               UUID PRIMARY KEY,
	title            VARCHAR(200) NOT NULL,
	description      TEXT,
	status           TEXT NOT NULL CHECK (status IN ('PENDING', 'IN_PROGRESS', 'COMPLETED', 'CANCELLED', 'ON_HOLD')),
	priority         TEXT NOT NULL CHECK (priority IN ('LOW', 'MEDIUM', 'HIGH', 'URGENT')),
	category         TEXT,
	tags             TEXT[] NOT NULL DEFAULT '{}',
	metadata         JSONB,
	due_date         TIMESTAMPTZ,
	start_date       TIMESTAMPTZ,
	completed_date   TIMESTAMPTZ,
	estimated_hours  DOUBLE PRECISION CHECK (estimated_hours BETWEEN 0 AND 1000),
	actual_hours     DOUBLE PRECISION CHECK (actual_hours BETWEEN 0 AND 1000),
	progress_percent INTEGER NOT NULL DEFAULT 0 CHECK (progress_percent BETWEEN 0 AND 100),
	assigned_to_id   UUID REFERENCES users(id),
	created_by_id    UUID NOT NULL REFERENCES users(id),
	case_id          UUID REFERENCES cases(id),
	request_id       UUID REFERENCES legal_requests(id),
	template_id      UUID REFERENCES task_templates(id) ON DELETE SET NULL,
	parent_task_id   UUID REFERENCES tasks(id) ON DELETE SET NULL,
	version          INTEGER NOT NULL DEFAULT 1,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX idx_tasks_assigned_to ON tasks(assigned_to_id);
CREATE INDEX idx_tasks_created_by ON tasks(created_by_id);
CREATE INDEX idx_tasks_case ON tasks(case_id);
CREATE INDEX idx_tasks_request ON tasks(request_id);
CREATE INDEX idx_tasks_parent ON tasks(parent_task_id);
CREATE INDEX idx_tasks_status_due ON tasks(status, due_date);

CREATE TABLE task_dependencies (
	id                   UUID PRIMARY KEY,
	dependent_task_id    UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	prerequisite_task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	dependency_type      TEXT NOT NULL CHECK (dependency_type IN ('FINISH_TO_START', 'START_TO_START', 'FINISH_TO_FINISH', 'START_TO_FINISH')),
	delay_days           INTEGER NOT NULL DEFAULT 0 CHECK (delay_days BETWEEN 0 AND 365),
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (dependent_task_id, prerequisite_task_id),
	CHECK (dependent_task_id <> prerequisite_task_id)
);

CREATE INDEX idx_task_dependencies_prerequisite ON task_dependencies(prerequisite_task_id);

CREATE TABLE activity_log (
	id          UUID PRIMARY KEY,
	user_id     UUID NOT NULL,
	action      TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id   UUID NOT NULL,
	details     JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX idx_activity_log_entity ON activity_log(entity_type, entity_id, created_at DESC);

CREATE TABLE notifications (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL,
	message    TEXT NOT NULL,
	task_id    UUID REFERENCES tasks(id) ON DELETE SET NULL,
	read       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX idx_notifications_user ON notifications(user_id, read, created_at DESC);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX idx_tasks_tags ON tasks USING GIN (tags);
CREATE INDEX idx_users_role_active ON users(role, created_at) WHERE active;
`,
	},
	{
		// Rows owned by the comment, document and reminder features. Task
		// deletion removes them through the foreign keys.
		version: 3,
		sql: `
CREATE TABLE task_comments (
	id         UUID PRIMARY KEY,
	task_id    UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	author_id  UUID NOT NULL REFERENCES users(id),
	body       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX idx_task_comments_task ON task_comments(task_id, created_at);

CREATE TABLE task_attachments (
	id             UUID PRIMARY KEY,
	task_id        UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	uploaded_by_id UUID NOT NULL REFERENCES users(id),
	file_name      TEXT NOT NULL,
	content_type   TEXT NOT NULL,
	size_bytes     BIGINT NOT NULL CHECK (size_bytes >= 0),
	storage_key    TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX idx_task_attachments_task ON task_attachments(task_id);

CREATE TABLE task_reminders (
	id         UUID PRIMARY KEY,
	task_id    UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	remind_at  TIMESTAMPTZ NOT NULL,
	sent_at    TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX idx_task_reminders_due ON task_reminders(remind_at) WHERE sent_at IS NULL;
`,
	},
}

// advisory lock key shared by every docket instance running migrations.
const migrationLockKey = 0x646f636b6574

// Migrate applies every migration newer than the recorded schema version.
// Each migration runs in its own transaction together with its version row.
func (s *Store) Migrate(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("postgres.Migrate: acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockKey); err != nil {
		return fmt.Errorf("postgres.Migrate: lock: %w", err)
	}
	defer func() {
		if _, err := conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockKey); err != nil {
			log.Warn().Err(err).Msg("postgres: advisory unlock failed")
		}
	}()

	if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("postgres.Migrate: schema_version: %w", err)
	}

	var current int
	if err := conn.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("postgres.Migrate: read version: %w", err)
	}

	for _, m := range pending(current) {
		err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.sql); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, m.version)
			return err
		})
		if err != nil {
			return fmt.Errorf("postgres.Migrate: apply v%d: %w", m.version, err)
		}
		log.Info().Int("version", m.version).Msg("postgres: migration applied")
	}
	return nil
}

// pending returns the migrations newer than current, in order.
func pending(current int) []migration {
	var out []migration
	for _, m := range migrations {
		if m.version > current {
			out = append(out, m)
		}
	}
	return out
}
