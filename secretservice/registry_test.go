package secretservice

import (
	"testing"

	"github.com/ruteri/secret-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	session := &Session{path: "/org/freedesktop/secrets/sessions/1"}
	prompt := &Prompt{path: "/org/freedesktop/secrets/prompts/p2"}

	require.NoError(t, r.Register(session))
	require.NoError(t, r.Register(prompt))
	assert.Equal(t, 2, r.Len())

	err := r.Register(&Session{path: session.path})
	assert.ErrorIs(t, err, ErrDuplicatePath)

	got, ok := r.Session(session.path)
	require.True(t, ok)
	assert.Same(t, session, got)

	// Typed lookups do not cross kinds.
	_, ok = r.Prompt(session.path)
	assert.False(t, ok)
	_, ok = r.Item(prompt.path)
	assert.False(t, ok)

	assert.True(t, r.Remove(session.path))
	assert.False(t, r.Remove(session.path))
	_, ok = r.Lookup(session.path)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestAddCollectionValidation(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.AddCollection(interfaces.CollectionSpec{ID: "collection"})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)

	_, err = svc.AddCollection(interfaces.CollectionSpec{ID: "bad/id"})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = svc.AddCollection(interfaces.CollectionSpec{
		ID:    "dupes",
		Items: []interfaces.ItemSpec{{ID: "a"}, {ID: "a"}},
	})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)
	_, ok := svc.Collection("dupes")
	assert.False(t, ok, "a rejected collection must not be registered")

	c, err := svc.AddCollection(interfaces.CollectionSpec{ID: "third"})
	require.NoError(t, err)
	assert.Equal(t, "Collection", c.Label())
	assert.Equal(t, interfaces.ObjectPath("/org/freedesktop/secrets/collection/third"), c.Path())

	item, err := c.AddItem(interfaces.ItemSpec{ID: "extra", Secret: "cuatro"})
	require.NoError(t, err)
	assert.Equal(t, "Item", item.Label())
	assert.Equal(t, "text/plain", item.ContentType())
	assert.Equal(t, interfaces.ObjectPath("/org/freedesktop/secrets/collection/third/extra"), item.Path())

	_, err = c.AddItem(interfaces.ItemSpec{ID: "extra"})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)

	assert.ErrorIs(t, svc.SetCollectionLocked("nope", true), ErrCollectionNotFound)
}

func TestImportCollectionsIsAllOrNothing(t *testing.T) {
	svc := New(testLogger(), nil)

	err := svc.ImportCollections([]interfaces.CollectionSpec{
		{ID: "first", Items: []interfaces.ItemSpec{{ID: "a", Secret: "one"}}},
		{ID: "bad id"},
	})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	assert.Empty(t, svc.Collections())
	assert.Equal(t, 0, svc.ObjectCount())
	assert.False(t, svc.HasObject("/org/freedesktop/secrets/collection/first"))

	err = svc.ImportCollections([]interfaces.CollectionSpec{
		{ID: "first"},
		{ID: "second", Items: []interfaces.ItemSpec{{ID: "a"}, {ID: "a"}}},
	})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)
	assert.Equal(t, 0, svc.ObjectCount())

	err = svc.ImportCollections([]interfaces.CollectionSpec{{ID: "first"}, {ID: "first"}})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)
	assert.Equal(t, 0, svc.ObjectCount())

	// A corrected batch can be retried.
	require.NoError(t, svc.ImportCollections([]interfaces.CollectionSpec{
		{ID: "first", Items: []interfaces.ItemSpec{{ID: "a", Secret: "one"}}},
		{ID: "second"},
	}))
	assert.Len(t, svc.Collections(), 2)
	assert.True(t, svc.HasObject("/org/freedesktop/secrets/collection/first/a"))
}

func TestCollectionsSnapshot(t *testing.T) {
	svc, _ := setupTestService(t)

	infos := svc.Collections()
	require.Len(t, infos, 2)
	assert.Equal(t, "collection", infos[0].ID)
	assert.False(t, infos[0].Locked)
	assert.Equal(t, "second", infos[1].ID)
	assert.True(t, infos[1].Locked)

	require.Len(t, infos[0].Items, 3)
	assert.Equal(t, []string{"item_one", "item_three", "item_two"},
		[]string{infos[0].Items[0].ID, infos[0].Items[1].ID, infos[0].Items[2].ID})
	assert.Equal(t, map[string]string{"number": "1", "string": "one", "parity": "odd"}, infos[0].Items[0].Attributes)
}

func TestIdentifiers(t *testing.T) {
	assert.True(t, ValidIdentifier("item_one"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("a-b"))
	assert.Equal(t, "a_b_c", SanitizeIdentifier("a-b.c"))
	assert.Equal(t, "_", SanitizeIdentifier(""))
}
