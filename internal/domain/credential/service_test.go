package credential

import (
	"context"
	"strings"
	"testing"

	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/repository"
	"github.com/loomhq/loom/internal/secret"
	"github.com/stretchr/testify/require"
)

type stubRepository struct {
	stored map[source.Source]*Credential
}

func newStubRepository() *stubRepository {
	return &stubRepository{stored: map[source.Source]*Credential{}}
}

func (r *stubRepository) Get(_ context.Context, _ string, src source.Source) (*Credential, error) {
	cred, ok := r.stored[src]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *cred
	return &copied, nil
}

func (r *stubRepository) Put(_ context.Context, _ string, cred *Credential) error {
	copied := *cred
	r.stored[cred.Source] = &copied
	return nil
}

func (r *stubRepository) Revoke(_ context.Context, _ string, src source.Source) error {
	cred, ok := r.stored[src]
	if !ok {
		return repository.ErrNotFound
	}
	cred.Active = false
	return nil
}

func (r *stubRepository) Delete(_ context.Context, _ string, src source.Source) error {
	delete(r.stored, src)
	return nil
}

func newTestCipher(t *testing.T) secret.Cipher {
	t.Helper()
	cipher, err := secret.NewAEADCipher(strings.Repeat("ab", 32))
	require.NoError(t, err)
	return cipher
}

func TestPutSealsToken(t *testing.T) {
	repo := newStubRepository()
	svc := NewService(repo, newTestCipher(t), nil)

	cred, err := svc.Put(context.Background(), "tenant1", PutRequest{
		Source:      source.Chat,
		Token:       "xoxb-secret",
		WorkspaceID: "W1",
	})
	require.NoError(t, err)
	require.True(t, cred.Active)
	require.NotEqual(t, "xoxb-secret", cred.SealedToken)
	require.NotContains(t, repo.stored[source.Chat].SealedToken, "xoxb-secret")
}

func TestGetOpensToken(t *testing.T) {
	repo := newStubRepository()
	svc := NewService(repo, newTestCipher(t), nil)

	_, err := svc.Put(context.Background(), "tenant1", PutRequest{Source: source.Tracker, Token: "lin_api_1"})
	require.NoError(t, err)

	cred, err := svc.Get(context.Background(), "tenant1", source.Tracker)
	require.NoError(t, err)
	require.Equal(t, "lin_api_1", cred.Token)
}

func TestGetNotConnected(t *testing.T) {
	svc := NewService(newStubRepository(), newTestCipher(t), nil)

	_, err := svc.Get(context.Background(), "tenant1", source.Chat)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestGetRevokedNotConnected(t *testing.T) {
	repo := newStubRepository()
	svc := NewService(repo, newTestCipher(t), nil)

	_, err := svc.Put(context.Background(), "tenant1", PutRequest{Source: source.Chat, Token: "tok"})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), "tenant1", source.Chat))

	_, err = svc.Get(context.Background(), "tenant1", source.Chat)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestPutValidation(t *testing.T) {
	svc := NewService(newStubRepository(), newTestCipher(t), nil)

	_, err := svc.Put(context.Background(), "", PutRequest{Source: source.Chat, Token: "tok"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Put(context.Background(), "tenant1", PutRequest{Source: "fax", Token: "tok"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Put(context.Background(), "tenant1", PutRequest{Source: source.Chat})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRevokeMissing(t *testing.T) {
	svc := NewService(newStubRepository(), newTestCipher(t), nil)

	err := svc.Revoke(context.Background(), "tenant1", source.CodeHost)
	require.ErrorIs(t, err, ErrNotConnected)
}
