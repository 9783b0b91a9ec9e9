package models

// Database schema overview:
// 1. users - email/password and Google accounts
// 2. refresh_tokens - SHA-256 hashes of issued refresh tokens
// 3. journals - one row per spoken entry, owns the stored audio file
// 4. journal_moods - detected moods with confidence
// 5. journal_topics - detected topics with relevance
//
// Deletes are hard deletes; journals cascade to moods and topics, users to journals and tokens.

// All returns every model for AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&Journal{},
		&JournalMood{},
		&JournalTopic{},
	}
}
