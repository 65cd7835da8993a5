package store

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()

	s, err := NewCredentialStore(fs, "/data")
	require.NoError(t, err)

	creds := Credentials{
		AccessToken:  "A1",
		RefreshToken: "R1",
		User:         json.RawMessage(`{"id":"u1","email":"a@b.com"}`),
	}
	require.NoError(t, s.Save(creds))

	// A second store over the same filesystem sees the persisted state.
	reopened, err := NewCredentialStore(fs, "/data")
	require.NoError(t, err)

	loaded := reopened.Load()
	assert.Equal(t, "A1", loaded.AccessToken)
	assert.Equal(t, "R1", loaded.RefreshToken)
	assert.JSONEq(t, `{"id":"u1","email":"a@b.com"}`, string(loaded.User))
	assert.True(t, loaded.HasSession())
}

func TestHasSession(t *testing.T) {
	user := json.RawMessage(`{"id":"u1"}`)
	cases := []struct {
		name  string
		creds Credentials
		want  bool
	}{
		{"empty", Credentials{}, false},
		{"token only", Credentials{AccessToken: "A1"}, false},
		{"user only", Credentials{User: user}, false},
		{"token and user", Credentials{AccessToken: "A1", User: user}, true},
		{"no refresh token still restorable", Credentials{AccessToken: "A1", User: user, RefreshToken: ""}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.creds.HasSession())
		})
	}
}

func TestMissingDirRejected(t *testing.T) {
	_, err := NewCredentialStore(afero.NewMemMapFs(), "  ")
	assert.ErrorIs(t, err, ErrStorageDirRequired)
}

func TestMalformedFileDiscarded(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data", 0o700))
	require.NoError(t, afero.WriteFile(fs, "/data/session.json", []byte("{not json"), 0o600))

	s, err := NewCredentialStore(fs, "/data")
	require.NoError(t, err)
	assert.False(t, s.Load().HasSession())

	exists, err := afero.Exists(fs, "/data/session.json")
	require.NoError(t, err)
	assert.False(t, exists, "malformed file should be removed")
}

func TestSetAccessTokenKeepsRest(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := NewCredentialStore(fs, "/data")
	require.NoError(t, err)

	require.NoError(t, s.Save(Credentials{
		AccessToken:  "A1",
		RefreshToken: "R1",
		User:         json.RawMessage(`{"id":"u1"}`),
	}))
	require.NoError(t, s.SetAccessToken("A2"))

	assert.Equal(t, "A2", s.AccessToken())
	assert.Equal(t, "R1", s.RefreshToken())
	assert.NotEmpty(t, s.Load().User)

	// Rotation is written through, not just cached.
	reopened, err := NewCredentialStore(fs, "/data")
	require.NoError(t, err)
	assert.Equal(t, "A2", reopened.AccessToken())
}

func TestClear(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := NewCredentialStore(fs, "/data")
	require.NoError(t, err)

	require.NoError(t, s.Save(Credentials{AccessToken: "A1", User: json.RawMessage(`{"id":"u1"}`)}))
	require.NoError(t, s.Clear())

	assert.False(t, s.Load().HasSession())
	exists, err := afero.Exists(fs, "/data/session.json")
	require.NoError(t, err)
	assert.False(t, exists)

	// Clearing an already-clean store is not an error.
	require.NoError(t, s.Clear())
}
