package secretservice

import (
	"github.com/ruteri/secret-service/interfaces"
)

func numberedItems(withSecrets bool) []interfaces.ItemSpec {
	items := []interfaces.ItemSpec{
		{ID: "item_one", Attributes: map[string]string{"number": "1", "string": "one", "parity": "odd"}, Secret: "uno"},
		{ID: "item_two", Attributes: map[string]string{"number": "2", "string": "two", "parity": "even"}, Secret: "dos"},
		{ID: "item_three", Attributes: map[string]string{"number": "3", "string": "three", "parity": "odd"}, Secret: "tres"},
	}
	if !withSecrets {
		for i := range items {
			items[i].Secret = ""
		}
	}
	return items
}

// StandardCollections is the standard test data set: an unlocked "collection"
// and a locked "second", each holding item_one, item_two and item_three.
func StandardCollections() []interfaces.CollectionSpec {
	return []interfaces.CollectionSpec{
		{ID: "collection", Items: numberedItems(true)},
		{ID: "second", Locked: true, Items: numberedItems(false)},
	}
}

// DeleteCollections is the data set for deletion tests. "todelete" holds an
// item deleted directly and one that needs confirmation, "twodelete" is locked.
func DeleteCollections() []interfaces.CollectionSpec {
	return []interfaces.CollectionSpec{
		{
			ID: "todelete",
			Items: []interfaces.ItemSpec{
				{ID: "item", Attributes: map[string]string{"number": "1", "string": "one", "even": "false"}, Secret: "uno"},
				{ID: "confirm", Attributes: map[string]string{"number": "2", "string": "two", "even": "true"}, Secret: "dos", ConfirmOnDelete: true},
			},
		},
		{
			ID:     "twodelete",
			Locked: true,
			Items: []interfaces.ItemSpec{
				{ID: "locked", Attributes: map[string]string{"number": "3", "string": "three", "even": "false"}, Secret: "tres"},
			},
		},
	}
}

// AddStandardObjects imports StandardCollections.
func (s *Service) AddStandardObjects() error {
	return s.ImportCollections(StandardCollections())
}

// AddDeleteFixtures imports DeleteCollections.
func (s *Service) AddDeleteFixtures() error {
	return s.ImportCollections(DeleteCollections())
}
