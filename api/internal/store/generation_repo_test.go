package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeDSNSummary(t *testing.T) {
	assert.Equal(t, "host=db port=5432 db=seoproxy user=app",
		SafeDSNSummary("postgres://app:secret@db:5432/seoproxy?sslmode=disable"))
	assert.Equal(t, "host=db db=seoproxy user=app", SafeDSNSummary("postgres://app:secret@db/seoproxy"))
	assert.NotContains(t, SafeDSNSummary("postgres://app:secret@db/seoproxy"), "secret")
}

func TestGenerationRepo_Postgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewGenerationRepo(db)
	require.NoError(t, repo.EnsureSchema(ctx))
	// idempotent
	require.NoError(t, repo.EnsureSchema(ctx))

	since := time.Now().Add(-time.Minute)
	before, err := repo.OutcomeCounts(ctx, since)
	require.NoError(t, err)

	for _, outcome := range []string{OutcomeOK, OutcomeOK, OutcomeUnexpectedShape} {
		require.NoError(t, repo.Insert(ctx, GenerationLog{
			RequestID:  uuid.NewString(),
			Operation:  "titles_only",
			Engine:     "gpt",
			Model:      "gpt-5.2",
			Outcome:    outcome,
			DurationMs: 42,
		}))
	}

	after, err := repo.OutcomeCounts(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, before[OutcomeOK]+2, after[OutcomeOK])
	assert.Equal(t, before[OutcomeUnexpectedShape]+1, after[OutcomeUnexpectedShape])
}
