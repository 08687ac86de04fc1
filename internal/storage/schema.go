package storage

const schema = `
-- The 'cards' table holds each flashcard together with its Leitner
-- scheduling state.
CREATE TABLE IF NOT EXISTS cards (
    hash TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    answer TEXT NOT NULL DEFAULT '',
    context TEXT NOT NULL DEFAULT '',
    subject TEXT NOT NULL,
    topic TEXT NOT NULL DEFAULT '',
    box INTEGER NOT NULL DEFAULT 1,
    next_review DATETIME NOT NULL,
    in_study_bank INTEGER NOT NULL DEFAULT 1,
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- The 'subjects' table marks which subjects the user currently
-- studies. Cards of inactive subjects never appear in due counts or
-- sessions.
CREATE TABLE IF NOT EXISTS subjects (
    name TEXT PRIMARY KEY,
    active INTEGER NOT NULL DEFAULT 1
);

-- The 'sources' table tracks where cards come from, either a local
-- directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);
`
