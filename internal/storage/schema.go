// internal/storage/schema.go
package storage

// schema is shared by SQLite and Postgres: ids are uuid TEXT, timestamps are
// RFC 3339 TEXT and days are YYYY-MM-DD TEXT so both dialects compare them the
// same way. Storage-level constraints back the plan invariants:
// one active training plan per user, one nutrition plan per user and day,
// unique sort positions per parent.
const schema = `
CREATE TABLE IF NOT EXISTS exercises (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    category TEXT NOT NULL DEFAULT '',
    equipment TEXT NOT NULL DEFAULT '',
    joint_load TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS training_plans (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    week_number INTEGER NOT NULL,
    active BOOLEAN NOT NULL,
    deload BOOLEAN NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_training_plans_one_active ON training_plans(user_id) WHERE active;
CREATE INDEX IF NOT EXISTS idx_training_plans_user ON training_plans(user_id, created_at);

CREATE TABLE IF NOT EXISTS einheiten (
    id TEXT PRIMARY KEY,
    plan_id TEXT NOT NULL REFERENCES training_plans(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    wochentag INTEGER NOT NULL CHECK (wochentag BETWEEN 0 AND 6),
    typ TEXT NOT NULL,
    aufwaermen TEXT NOT NULL,
    cooldown TEXT NOT NULL,
    sort_index INTEGER NOT NULL,
    UNIQUE (plan_id, sort_index)
);

CREATE TABLE IF NOT EXISTS plan_exercises (
    id TEXT PRIMARY KEY,
    einheit_id TEXT NOT NULL REFERENCES einheiten(id) ON DELETE CASCADE,
    exercise_id TEXT NOT NULL REFERENCES exercises(id),
    saetze INTEGER NOT NULL CHECK (saetze >= 1),
    wiederholungen TEXT NOT NULL,
    gewicht DOUBLE PRECISION,
    rir INTEGER NOT NULL,
    pause_sekunden INTEGER NOT NULL,
    tempo TEXT NOT NULL,
    notizen TEXT,
    sort_index INTEGER NOT NULL,
    UNIQUE (einheit_id, sort_index)
);

CREATE TABLE IF NOT EXISTS nutrition_plans (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    plan_date TEXT NOT NULL,
    kalorien DOUBLE PRECISION NOT NULL,
    protein_g DOUBLE PRECISION NOT NULL,
    kohlenhydrate_g DOUBLE PRECISION NOT NULL,
    fett_g DOUBLE PRECISION NOT NULL,
    leucin_g DOUBLE PRECISION NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (user_id, plan_date)
);

CREATE TABLE IF NOT EXISTS meals (
    id TEXT PRIMARY KEY,
    plan_id TEXT NOT NULL REFERENCES nutrition_plans(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    uhrzeit TEXT NOT NULL,
    kalorien DOUBLE PRECISION NOT NULL,
    protein_g DOUBLE PRECISION NOT NULL,
    kohlenhydrate_g DOUBLE PRECISION NOT NULL,
    fett_g DOUBLE PRECISION NOT NULL,
    leucin_g DOUBLE PRECISION,
    rezept TEXT,
    ist_post_workout BOOLEAN NOT NULL,
    sort_index INTEGER NOT NULL,
    UNIQUE (plan_id, sort_index)
);

CREATE INDEX IF NOT EXISTS idx_einheiten_plan ON einheiten(plan_id);
CREATE INDEX IF NOT EXISTS idx_plan_exercises_einheit ON plan_exercises(einheit_id);
CREATE INDEX IF NOT EXISTS idx_meals_plan ON meals(plan_id);
CREATE INDEX IF NOT EXISTS idx_nutrition_plans_date ON nutrition_plans(plan_date);
`
