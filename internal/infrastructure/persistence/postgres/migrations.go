package postgres

// GetMigrations returns all database migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_subjects",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_categories",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_category_edges",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_problems",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
		{
			Version: 5,
			Name:    "create_problem_edges",
			UpSQL:   migration005Up,
			DownSQL: migration005Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS subjects (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL CHECK (kind IN ('user', 'team')),
	name TEXT NOT NULL DEFAULT '',
	judge_handles JSONB NOT NULL DEFAULT '{}',
	skill_value DOUBLE PRECISION NOT NULL DEFAULT 0,
	skill_level DOUBLE PRECISION NOT NULL DEFAULT 0,
	skill_title TEXT NOT NULL DEFAULT '',
	solve_count INTEGER NOT NULL DEFAULT 0,
	next_target DOUBLE PRECISION NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	last_synced_at TIMESTAMP WITH TIME ZONE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS subject_members (
	team_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
	member_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
	PRIMARY KEY (team_id, member_id)
);

CREATE INDEX IF NOT EXISTS idx_subjects_active ON subjects(active) WHERE active;
`

const migration001Down = `
DROP TABLE IF EXISTS subject_members;
DROP TABLE IF EXISTS subjects;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	is_root BOOLEAN NOT NULL DEFAULT FALSE,
	root_id TEXT NOT NULL,
	score_percentage DOUBLE PRECISION NOT NULL DEFAULT 0
		CHECK (score_percentage >= 0 AND score_percentage <= 100),
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS category_dependencies (
	from_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	to_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	factor DOUBLE PRECISION NOT NULL CHECK (factor > 0),
	percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (from_id, to_id),
	CHECK (from_id <> to_id)
);

CREATE INDEX IF NOT EXISTS idx_categories_root_id ON categories(root_id);
CREATE INDEX IF NOT EXISTS idx_category_dependencies_to_id ON category_dependencies(to_id);
`

const migration002Down = `
DROP TABLE IF EXISTS category_dependencies;
DROP TABLE IF EXISTS categories;
`

// category_edges carries no UNIQUE(subject_id, category_id) constraint on
// purpose. Uniqueness is a domain invariant checked on read so that a
// violation surfaces as a data-integrity error instead of silently blocking
// writes.
const migration003Up = `
CREATE TABLE IF NOT EXISTS category_edges (
	id TEXT PRIMARY KEY,
	subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
	category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	root_id TEXT NOT NULL DEFAULT '',
	skill_value DOUBLE PRECISION NOT NULL DEFAULT 0,
	skill_level DOUBLE PRECISION NOT NULL DEFAULT 0,
	skill_title TEXT NOT NULL DEFAULT '',
	relevant_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	solve_count INTEGER NOT NULL DEFAULT 0,
	skill_value_by_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
	solved_by_difficulty INTEGER[] NOT NULL DEFAULT '{0,0,0,0,0,0,0,0,0,0,0}',
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_category_edges_pair ON category_edges(subject_id, category_id);
CREATE INDEX IF NOT EXISTS idx_category_edges_subject_root ON category_edges(subject_id, root_id);
`

const migration003Down = `
DROP TABLE IF EXISTS category_edges;
`

const migration004Up = `
CREATE TABLE IF NOT EXISTS problems (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	oj_name TEXT NOT NULL DEFAULT '',
	difficulty DOUBLE PRECISION NOT NULL DEFAULT 0
		CHECK (difficulty >= 0 AND difficulty <= 10),
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS problem_categories (
	problem_id TEXT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
	category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	factor DOUBLE PRECISION NOT NULL DEFAULT 1 CHECK (factor > 0),
	PRIMARY KEY (problem_id, category_id)
);

CREATE INDEX IF NOT EXISTS idx_problems_difficulty ON problems(difficulty);
CREATE INDEX IF NOT EXISTS idx_problem_categories_category ON problem_categories(category_id);
`

const migration004Down = `
DROP TABLE IF EXISTS problem_categories;
DROP TABLE IF EXISTS problems;
`

const migration005Up = `
CREATE TABLE IF NOT EXISTS problem_edges (
	id TEXT PRIMARY KEY,
	subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
	problem_id TEXT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
	status TEXT NOT NULL DEFAULT 'UNSOLVED'
		CHECK (status IN ('UNSOLVED', 'SOLVED', 'SOLVE_LATER', 'SKIP', 'FLAGGED')),
	relevant_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	submissions JSONB NOT NULL DEFAULT '[]',
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	UNIQUE (subject_id, problem_id)
);

CREATE INDEX IF NOT EXISTS idx_problem_edges_subject_status ON problem_edges(subject_id, status);
`

const migration005Down = `
DROP TABLE IF EXISTS problem_edges;
`
