package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/music-dna/internal/buddy"
)

var base = time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func profile(id string, personaID int, city string, created time.Time) *buddy.Profile {
	return &buddy.Profile{
		ID:             id,
		PersonaID:      personaID,
		PersonaName:    "Persona",
		Traits:         []string{"Curious", "Loyal"},
		VibeTags:       []string{"curious", "loyal"},
		Nickname:       "nick-" + id,
		City:           city,
		Email:          id + "@example.com",
		IsDiscoverable: true,
		AccessToken:    "bt_token_" + id,
		CreatedAt:      created,
		ExpiresAt:      created.Add(buddy.Retention),
	}
}

func TestInsertAndFind(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p := profile("one", 2, "Halifax", base)
	p.LinkedInURL = "https://linkedin.example/one"
	p.ShowContactsPublicly = true
	require.NoError(t, s.Insert(ctx, p))

	byID, err := s.FindByID(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, p, byID)

	byToken, err := s.FindByToken(ctx, "bt_token_one")
	require.NoError(t, err)
	assert.Equal(t, "one", byToken.ID)

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindByToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertNilSlices(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p := profile("bare", 0, "", base)
	p.Traits = nil
	p.VibeTags = nil
	require.NoError(t, s.Insert(ctx, p))

	got, err := s.FindByID(ctx, "bare")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Traits)
	assert.Equal(t, []string{}, got.VibeTags)
}

func TestInsertDuplicateToken(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, profile("one", 1, "", base)))
	dup := profile("two", 1, "", base)
	dup.AccessToken = "bt_token_one"
	assert.Error(t, s.Insert(ctx, dup))
}

func TestList(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := base.Add(48 * time.Hour)

	hidden := profile("hidden", 1, "Toronto", base.Add(3*time.Hour))
	hidden.IsDiscoverable = false
	expired := profile("expired", 1, "Toronto", base.Add(-buddy.Retention))

	for _, p := range []*buddy.Profile{
		profile("oldest", 1, "Toronto", base),
		profile("middle", 2, "Toronto", base.Add(time.Hour)),
		profile("twin-a", 1, "Ottawa", base.Add(2*time.Hour)),
		profile("twin-b", 1, "Toronto", base.Add(2*time.Hour)),
		hidden,
		expired,
	} {
		require.NoError(t, s.Insert(ctx, p))
	}

	all, err := s.List(ctx, Query{Now: now})
	require.NoError(t, err)
	assert.Equal(t, []string{"twin-b", "twin-a", "middle", "oldest"}, all.IDs())

	limited, err := s.List(ctx, Query{Now: now, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"twin-b", "twin-a"}, limited.IDs())

	personaID := 1
	byPersona, err := s.List(ctx, Query{Now: now, PersonaID: &personaID, City: "Toronto"})
	require.NoError(t, err)
	assert.Equal(t, []string{"twin-b", "oldest"}, byPersona.IDs())

	none, err := s.List(ctx, Query{Now: now, City: "toronto"})
	require.NoError(t, err)
	assert.Equal(t, 0, none.Len())
	assert.NotNil(t, none.Items)
}

func TestUpdateByToken(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, profile("one", 1, "Toronto", base)))

	p, err := s.FindByToken(ctx, "bt_token_one")
	require.NoError(t, err)

	p.Nickname = "renamed"
	p.City = "Victoria"
	p.Email = ""
	p.IsDiscoverable = false
	p.ShowContactsPublicly = true
	p.PersonaID = 4
	require.NoError(t, s.UpdateByToken(ctx, "bt_token_one", p))

	got, err := s.FindByID(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Nickname)
	assert.Equal(t, "Victoria", got.City)
	assert.Empty(t, got.Email)
	assert.False(t, got.IsDiscoverable)
	assert.True(t, got.ShowContactsPublicly)
	assert.Equal(t, 1, got.PersonaID, "persona is not owner-editable")

	assert.ErrorIs(t, s.UpdateByToken(ctx, "missing", p), ErrNotFound)
}

func TestDeleteByToken(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, profile("one", 1, "", base)))

	require.NoError(t, s.DeleteByToken(ctx, "bt_token_one"))
	_, err := s.FindByID(ctx, "one")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteByToken(ctx, "bt_token_one"), ErrNotFound)
}

func TestDeleteExpired(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, profile("old", 1, "", base)))
	require.NoError(t, s.Insert(ctx, profile("new", 1, "", base.Add(24*time.Hour))))

	n, err := s.DeleteExpired(ctx, base.Add(buddy.Retention))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.FindByID(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindByID(ctx, "new")
	assert.NoError(t, err)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "music-dna.db")
	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	require.NoError(t, s.Insert(context.Background(), profile("one", 1, "", base)))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.FindByID(context.Background(), "one")
	assert.NoError(t, err)

	_, err = Open("  ")
	assert.Error(t, err)
}
