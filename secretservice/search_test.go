package secretservice

import (
	"testing"

	"github.com/ruteri/secret-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchItemsPartition(t *testing.T) {
	svc, _ := setupTestService(t)
	require.NoError(t, svc.AddDeleteFixtures())

	queries := []map[string]string{
		nil,
		{"number": "1"},
		{"parity": "odd"},
		{"parity": "odd", "string": "three"},
		{"even": "false"},
		{"number": "4"},
		{"number": "1", "parity": "even"},
	}

	for _, query := range queries {
		unlocked, locked := svc.SearchItems(query)

		seen := make(map[interfaces.ObjectPath]bool)
		for _, path := range unlocked {
			assert.False(t, seen[path], "duplicate %s", path)
			seen[path] = true
		}
		for _, path := range locked {
			assert.False(t, seen[path], "%s in both lists", path)
			seen[path] = true
		}

		var expected []interfaces.ObjectPath
		for _, c := range svc.Collections() {
			for _, item := range c.Items {
				if matches(item.Attributes, query) {
					expected = append(expected, item.Path)
				}
			}
		}
		assert.Len(t, seen, len(expected), "query %v", query)
		for _, path := range expected {
			assert.True(t, seen[path], "query %v missing %s", query, path)
		}

		// Stable across calls.
		again, againLocked := svc.SearchItems(query)
		assert.Equal(t, unlocked, again)
		assert.Equal(t, locked, againLocked)
	}
}

func matches(attributes, query map[string]string) bool {
	for k, v := range query {
		if got, ok := attributes[k]; !ok || got != v {
			return false
		}
	}
	return true
}

func TestSearchItemsSupersetMatch(t *testing.T) {
	svc, _ := setupTestService(t)

	unlocked, locked := svc.SearchItems(map[string]string{"parity": "odd"})
	assert.Equal(t, []interfaces.ObjectPath{
		"/org/freedesktop/secrets/collection/collection/item_one",
		"/org/freedesktop/secrets/collection/collection/item_three",
	}, unlocked)
	assert.Equal(t, []interfaces.ObjectPath{
		"/org/freedesktop/secrets/collection/second/item_one",
		"/org/freedesktop/secrets/collection/second/item_three",
	}, locked)

	unlocked, locked = svc.SearchItems(map[string]string{"number": "1", "missing": ""})
	assert.Empty(t, unlocked)
	assert.Empty(t, locked)
}

// The item lock flag is captured at creation: relocking a collection moves its
// items in search results but does not stop GetSecret, and unlocking a locked
// collection does not make its items readable.
func TestItemLockFlagIsCapturedAtCreation(t *testing.T) {
	svc, _ := setupTestService(t)
	session := openPlain(t, svc, alice)

	require.NoError(t, svc.SetCollectionLocked("collection", true))
	require.NoError(t, svc.SetCollectionLocked("second", false))

	unlocked, locked := svc.SearchItems(map[string]string{"number": "1"})
	assert.Equal(t, []interfaces.ObjectPath{"/org/freedesktop/secrets/collection/second/item_one"}, unlocked)
	assert.Equal(t, []interfaces.ObjectPath{"/org/freedesktop/secrets/collection/collection/item_one"}, locked)

	secret, err := svc.GetSecret(alice, "/org/freedesktop/secrets/collection/collection/item_one", session)
	require.NoError(t, err)
	assert.Equal(t, []byte("uno"), secret.Value)

	_, err = svc.GetSecret(alice, "/org/freedesktop/secrets/collection/second/item_one", session)
	assert.ErrorIs(t, err, interfaces.ErrIsLocked)

	// Items added after the change capture the new state.
	c, ok := svc.Collection("second")
	require.True(t, ok)
	item, err := c.AddItem(interfaces.ItemSpec{ID: "item_four", Secret: "cuatro"})
	require.NoError(t, err)
	assert.False(t, item.Locked())

	secret, err = item.GetSecret(alice, session)
	require.NoError(t, err)
	assert.Equal(t, []byte("cuatro"), secret.Value)
}

func TestGetSecretsOmitsMissingAndLocked(t *testing.T) {
	svc, _ := setupTestService(t)
	session := openPlain(t, svc, alice)

	paths := []interfaces.ObjectPath{
		"/org/freedesktop/secrets/collection/collection/item_one",
		"/org/freedesktop/secrets/collection/collection/item_two",
		"/org/freedesktop/secrets/collection/second/item_one",
		"/org/freedesktop/secrets/collection/collection/missing",
		"/org/freedesktop/secrets/collection/collection",
		session,
	}

	secrets, err := svc.GetSecrets(alice, paths, session)
	require.NoError(t, err)
	require.Len(t, secrets, 2)
	assert.Equal(t, []byte("uno"), secrets[paths[0]].Value)
	assert.Equal(t, []byte("dos"), secrets[paths[1]].Value)

	empty, err := svc.GetSecrets(alice, nil, session)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetSecretsInvalidSession(t *testing.T) {
	svc, _ := setupTestService(t)
	session := openPlain(t, svc, bob)

	_, err := svc.GetSecrets(alice, []interfaces.ObjectPath{"/org/freedesktop/secrets/collection/collection/item_one"}, session)
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgs)

	_, err = svc.GetSecrets(alice, nil, "/")
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgs)
}
