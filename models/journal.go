package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Journal is a single spoken diary entry after transcription and polishing
type Journal struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"` // polished text
	RawText   string    `gorm:"type:text" json:"raw_text"`         // transcript as spoken
	AudioPath string    `gorm:"size:500" json:"audio_path"`
	AudioMIME string    `gorm:"column:audio_mime;size:100" json:"audio_mime"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Moods  []JournalMood  `gorm:"foreignKey:JournalID;constraint:OnDelete:CASCADE" json:"moods"`
	Topics []JournalTopic `gorm:"foreignKey:JournalID;constraint:OnDelete:CASCADE" json:"topics"`
}

func (j *Journal) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

// JournalMood is an emotional tone detected in a journal, confidence in [0,1]
type JournalMood struct {
	ID         string   `gorm:"type:uuid;primaryKey" json:"id"`
	JournalID  string   `gorm:"type:uuid;not null;index" json:"-"`
	Mood       string   `gorm:"size:50;not null" json:"mood"`
	Confidence *float64 `json:"confidence"`
}

func (m *JournalMood) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// JournalTopic is a subject discussed in a journal, relevance in [0,1]
type JournalTopic struct {
	ID        string   `gorm:"type:uuid;primaryKey" json:"id"`
	JournalID string   `gorm:"type:uuid;not null;index" json:"-"`
	Topic     string   `gorm:"size:100;not null" json:"topic"`
	Relevance *float64 `json:"relevance"`
}

func (t *JournalTopic) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// JournalPage is one page of a user's journals, newest first
type JournalPage struct {
	Journals    []Journal `json:"journals"`
	Total       int64     `json:"total"`
	Pages       int       `json:"pages"`
	CurrentPage int       `json:"current_page"`
}
