package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDatabase_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seeder := NewDatabaseSeeder(env.repo, env.server.journalRepo)

	require.NoError(t, seeder.SeedDatabase(ctx))
	require.NoError(t, seeder.SeedDatabase(ctx))

	users, err := env.repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, DemoUsername, users[0].Username)

	count, err := env.server.journalRepo.CountJournals(ctx, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    DemoEmail,
		"password": DemoPassword,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	token := decodeBody(t, rec)["token"].(string)
	rec = env.do(t, http.MethodGet, "/api/journals", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	journals := decodeBody(t, rec)["journals"].([]interface{})
	require.Len(t, journals, 1)
	sample := journals[0].(map[string]interface{})
	assert.Equal(t, "First entry", sample["title"])
	assert.NotEmpty(t, sample["moods"])
	assert.NotEmpty(t, sample["topics"])
}

func TestDemoPasswordMeetsPolicy(t *testing.T) {
	assert.NoError(t, ValidatePassword(DemoPassword))
}
