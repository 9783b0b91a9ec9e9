package repository

import (
	"context"
	"testing"
	"time"

	"github.com/krshsl/mumble/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TestContext holds a migrated in-memory database and both repositories
type TestContext struct {
	DB          *gorm.DB
	Repo        *GORMRepository
	JournalRepo *JournalRepository
}

// SetupTestDB opens an in-memory sqlite database with automatic cleanup
func SetupTestDB(t *testing.T) *TestContext {
	t.Helper()

	db, err := Open(context.Background(), Options{Driver: DriverSQLite, URL: ":memory:"})
	require.NoError(t, err, "Failed to create database connection")

	t.Cleanup(func() {
		_ = Close(db)
	})

	repo := NewGORMRepository(db)
	require.NoError(t, repo.AutoMigrate(), "Failed to migrate schema")

	return &TestContext{
		DB:          db,
		Repo:        repo,
		JournalRepo: NewJournalRepository(db),
	}
}

func createTestUser(t *testing.T, tc *TestContext, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
		IsActive: true,
	}
	require.NoError(t, tc.Repo.CreateUser(context.Background(), user))
	return user
}

func createTestJournal(t *testing.T, tc *TestContext, userID, title string, createdAt time.Time) *models.Journal {
	t.Helper()

	confidence := 0.5
	journal := &models.Journal{
		UserID:    userID,
		Title:     title,
		Content:   "polished " + title,
		RawText:   "raw " + title,
		AudioPath: "/uploads/" + title + ".wav",
		CreatedAt: createdAt,
		Moods:     []models.JournalMood{{Mood: "happy", Confidence: &confidence}},
		Topics:    []models.JournalTopic{{Topic: "work", Relevance: &confidence}},
	}
	require.NoError(t, tc.JournalRepo.CreateJournal(context.Background(), journal))
	return journal
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestOpen_PostgresRequiresURL(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: DriverPostgres})
	require.Error(t, err)
}

func TestUserLookups(t *testing.T) {
	tc := SetupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, tc, "alice")

	t.Run("by email", func(t *testing.T) {
		found, err := tc.Repo.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("by username", func(t *testing.T) {
		found, err := tc.Repo.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "alice@example.com", found.Email)
	})

	t.Run("missing user returns nil", func(t *testing.T) {
		found, err := tc.Repo.GetUserByID(ctx, "00000000-0000-0000-0000-000000000000")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("oauth id wins over email", func(t *testing.T) {
		oauthID := "google-123"
		linked := &models.User{Username: "bob", Email: "bob@example.com", OAuthID: &oauthID, IsActive: true}
		require.NoError(t, tc.Repo.CreateUser(ctx, linked))

		found, err := tc.Repo.GetUserByOAuthIDOrEmail(ctx, oauthID, "alice@example.com")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, linked.ID, found.ID)

		found, err = tc.Repo.GetUserByOAuthIDOrEmail(ctx, "unknown", "alice@example.com")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, user.ID, found.ID)
	})
}

func TestCreateUser_DuplicateEmailFails(t *testing.T) {
	tc := SetupTestDB(t)
	createTestUser(t, tc, "alice")

	dup := &models.User{Username: "other", Email: "alice@example.com", IsActive: true}
	assert.Error(t, tc.Repo.CreateUser(context.Background(), dup))
}

func TestListUsers(t *testing.T) {
	tc := SetupTestDB(t)
	createTestUser(t, tc, "alice")
	createTestUser(t, tc, "bob")

	users, err := tc.Repo.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)

	names := []string{users[0].Username, users[1].Username}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)
}

func TestRefreshTokens(t *testing.T) {
	tc := SetupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, tc, "alice")
	now := time.Now().UTC()

	live := &models.RefreshToken{UserID: user.ID, Token: "live", ExpiresAt: now.Add(time.Hour)}
	expired := &models.RefreshToken{UserID: user.ID, Token: "expired", ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, tc.Repo.CreateRefreshToken(ctx, live))
	require.NoError(t, tc.Repo.CreateRefreshToken(ctx, expired))

	found, err := tc.Repo.GetRefreshToken(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.UserID)

	found, err = tc.Repo.GetRefreshToken(ctx, "expired")
	require.NoError(t, err)
	assert.Nil(t, found, "expired tokens are not returned")

	removed, err := tc.Repo.DeleteExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	require.NoError(t, tc.Repo.DeleteUserRefreshTokens(ctx, user.ID))
	found, err = tc.Repo.GetRefreshToken(ctx, "live")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestListJournals_PagingAndOrder(t *testing.T) {
	tc := SetupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, tc, "alice")
	other := createTestUser(t, tc, "bob")

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"one", "two", "three"} {
		createTestJournal(t, tc, user.ID, title, base.Add(time.Duration(i)*time.Hour))
	}
	createTestJournal(t, tc, other.ID, "foreign", base)

	journals, total, err := tc.JournalRepo.ListJournals(ctx, JournalFilter{UserID: user.ID, Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, journals, 2)
	assert.Equal(t, "three", journals[0].Title, "newest first")
	assert.Equal(t, "two", journals[1].Title)
	require.Len(t, journals[0].Moods, 1)
	assert.Equal(t, "happy", journals[0].Moods[0].Mood)
	require.Len(t, journals[0].Topics, 1)

	journals, total, err = tc.JournalRepo.ListJournals(ctx, JournalFilter{UserID: user.ID, Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, journals, 1)
	assert.Equal(t, "one", journals[0].Title)

	journals, total, err = tc.JournalRepo.ListJournals(ctx, JournalFilter{UserID: user.ID, Page: 5, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.NotNil(t, journals)
	assert.Empty(t, journals)
}

func TestListJournals_DateRange(t *testing.T) {
	tc := SetupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, tc, "alice")

	createTestJournal(t, tc, user.ID, "march", time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	createTestJournal(t, tc, user.ID, "april", time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC))
	createTestJournal(t, tc, user.ID, "may", time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC))

	journals, total, err := tc.JournalRepo.ListJournals(ctx, JournalFilter{
		UserID:  user.ID,
		Page:    1,
		PerPage: 10,
		From:    time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, journals, 1)
	assert.Equal(t, "april", journals[0].Title)
}

func TestGetJournal_ScopedToOwner(t *testing.T) {
	tc := SetupTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, tc, "alice")
	stranger := createTestUser(t, tc, "bob")
	journal := createTestJournal(t, tc, owner.ID, "mine", time.Now().UTC())

	found, err := tc.JournalRepo.GetJournal(ctx, owner.ID, journal.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "mine", found.Title)
	assert.Len(t, found.Moods, 1)

	found, err = tc.JournalRepo.GetJournal(ctx, stranger.ID, journal.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestDeleteJournal_RemovesChildren(t *testing.T) {
	tc := SetupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, tc, "alice")
	journal := createTestJournal(t, tc, user.ID, "gone", time.Now().UTC())

	require.NoError(t, tc.JournalRepo.DeleteJournal(ctx, journal.ID))

	var moods, topics int64
	require.NoError(t, tc.DB.Model(&models.JournalMood{}).Count(&moods).Error)
	require.NoError(t, tc.DB.Model(&models.JournalTopic{}).Count(&topics).Error)
	assert.Zero(t, moods)
	assert.Zero(t, topics)

	count, err := tc.JournalRepo.CountJournals(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAudioPaths(t *testing.T) {
	tc := SetupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, tc, "alice")
	journal := createTestJournal(t, tc, user.ID, "clip", time.Now().UTC())

	paths, err := tc.JournalRepo.ListJournalAudioPaths(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{journal.AudioPath}, paths)

	inUse, err := tc.JournalRepo.AudioPathInUse(ctx, journal.AudioPath)
	require.NoError(t, err)
	assert.True(t, inUse)

	inUse, err = tc.JournalRepo.AudioPathInUse(ctx, "/uploads/nobody.wav")
	require.NoError(t, err)
	assert.False(t, inUse)
}

func TestDeleteUser_Cascades(t *testing.T) {
	tc := SetupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, tc, "alice")
	keep := createTestUser(t, tc, "bob")

	createTestJournal(t, tc, user.ID, "a", time.Now().UTC())
	createTestJournal(t, tc, user.ID, "b", time.Now().UTC())
	kept := createTestJournal(t, tc, keep.ID, "c", time.Now().UTC())
	require.NoError(t, tc.Repo.CreateRefreshToken(ctx, &models.RefreshToken{
		UserID: user.ID, Token: "t1", ExpiresAt: time.Now().UTC().Add(time.Hour),
	}))

	require.NoError(t, tc.Repo.DeleteUser(ctx, user.ID))

	found, err := tc.Repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	count, err := tc.JournalRepo.CountJournals(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	var tokens int64
	require.NoError(t, tc.DB.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Count(&tokens).Error)
	assert.Zero(t, tokens)

	var moods int64
	require.NoError(t, tc.DB.Model(&models.JournalMood{}).Count(&moods).Error)
	assert.Equal(t, int64(1), moods, "other users' moods survive")

	stillThere, err := tc.JournalRepo.GetJournal(ctx, keep.ID, kept.ID)
	require.NoError(t, err)
	assert.NotNil(t, stillThere)
}

func TestDeleteUser_WithoutJournals(t *testing.T) {
	tc := SetupTestDB(t)
	user := createTestUser(t, tc, "alice")

	require.NoError(t, tc.Repo.DeleteUser(context.Background(), user.ID))

	found, err := tc.Repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestPing(t *testing.T) {
	tc := SetupTestDB(t)
	assert.NoError(t, tc.Repo.Ping(context.Background()))
}
