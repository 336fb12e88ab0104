package postgresql

// migrations returns the ordered schema migration set for PostgreSQL.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS journeys (
				id UUID PRIMARY KEY,
				client_id TEXT NOT NULL,
				name TEXT NOT NULL,
				status TEXT NOT NULL,
				version BIGINT NOT NULL DEFAULT 1,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_journeys_client_id ON journeys (client_id);
			CREATE INDEX IF NOT EXISTS idx_journeys_status ON journeys (status);

			CREATE TABLE IF NOT EXISTS touchpoints (
				id UUID PRIMARY KEY,
				journey_id UUID NOT NULL REFERENCES journeys (id) ON DELETE CASCADE,
				type TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				order_index INTEGER NOT NULL,
				content JSONB,
				config JSONB,
				remote_template_id TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'draft',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				CONSTRAINT uq_touchpoints_journey_order UNIQUE (journey_id, order_index)
					DEFERRABLE INITIALLY DEFERRED
			);

			CREATE INDEX IF NOT EXISTS idx_touchpoints_journey_id ON touchpoints (journey_id);

			CREATE TABLE IF NOT EXISTS journey_version_snapshots (
				id UUID PRIMARY KEY,
				journey_id UUID NOT NULL,
				version BIGINT NOT NULL,
				snapshot JSONB NOT NULL,
				change_log TEXT NOT NULL DEFAULT '',
				created_by TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				CONSTRAINT uq_snapshots_journey_version UNIQUE (journey_id, version)
			);

			CREATE TABLE IF NOT EXISTS publish_state (
				touchpoint_id UUID PRIMARY KEY,
				content_hash TEXT NOT NULL,
				remote_template_id TEXT NOT NULL DEFAULT '',
				template_kind TEXT NOT NULL DEFAULT '',
				published_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS sync_runs (
				id UUID PRIMARY KEY,
				scope JSONB NOT NULL,
				dry_run BOOLEAN NOT NULL DEFAULT FALSE,
				force BOOLEAN NOT NULL DEFAULT FALSE,
				status TEXT NOT NULL,
				summary JSONB NOT NULL,
				items JSONB,
				error TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE TABLE IF NOT EXISTS conflicts (
				id UUID PRIMARY KEY,
				journey_id UUID NOT NULL,
				touchpoint_id TEXT NOT NULL DEFAULT '',
				kind TEXT NOT NULL,
				local_value TEXT NOT NULL DEFAULT '',
				remote_value TEXT NOT NULL DEFAULT '',
				detail TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'open',
				resolution TEXT NOT NULL DEFAULT '',
				detected_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				resolved_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_conflicts_status ON conflicts (status);
		`,
	}
}
