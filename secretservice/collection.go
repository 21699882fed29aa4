package secretservice

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ruteri/secret-service/interfaces"
)

const (
	defaultCollectionLabel = "Collection"
	defaultItemLabel       = "Item"
	defaultContentType     = "text/plain"
)

var (
	// ErrInvalidIdentifier is returned for collection or item identifiers that are
	// not valid object path elements.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrDuplicateIdentifier is returned when a collection or item identifier is taken.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")

	// ErrCollectionNotFound is returned by administrative calls naming an unknown collection.
	ErrCollectionNotFound = errors.New("collection not found")
)

// Collection is a named container of items sharing a lock state. Collections
// are created administratively and live as long as the service.
type Collection struct {
	svc   *Service
	id    string
	label string
	path  interfaces.ObjectPath

	locked bool
	items  map[string]*Item
}

// CollectionInfo is a point-in-time view of a collection.
type CollectionInfo struct {
	Path   interfaces.ObjectPath `json:"path"`
	ID     string                `json:"id"`
	Label  string                `json:"label"`
	Locked bool                  `json:"locked"`
	Items  []ItemInfo            `json:"items"`
}

// AddCollection creates a collection and its initial items.
func (s *Service) AddCollection(spec interfaces.CollectionSpec) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addCollectionLocked(spec)
}

// ImportCollections adds every collection in specs. The batch is validated as a
// whole first, so on error no collection of it has been added.
func (s *Service) ImportCollections(specs []interfaces.CollectionSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if err := s.validateCollectionLocked(spec); err != nil {
			return fmt.Errorf("failed to import collection %q: %w", spec.ID, err)
		}
		if batch[spec.ID] {
			return fmt.Errorf("failed to import collection %q: %w: collection %q", spec.ID, ErrDuplicateIdentifier, spec.ID)
		}
		batch[spec.ID] = true
	}

	for _, spec := range specs {
		if _, err := s.addCollectionLocked(spec); err != nil {
			return fmt.Errorf("failed to import collection %q: %w", spec.ID, err)
		}
	}
	return nil
}

func (s *Service) validateCollectionLocked(spec interfaces.CollectionSpec) error {
	if !ValidIdentifier(spec.ID) {
		return fmt.Errorf("%w: collection %q", ErrInvalidIdentifier, spec.ID)
	}
	if _, exists := s.collections[spec.ID]; exists {
		return fmt.Errorf("%w: collection %q", ErrDuplicateIdentifier, spec.ID)
	}
	seen := make(map[string]bool, len(spec.Items))
	for _, item := range spec.Items {
		if !ValidIdentifier(item.ID) {
			return fmt.Errorf("%w: item %q", ErrInvalidIdentifier, item.ID)
		}
		if seen[item.ID] {
			return fmt.Errorf("%w: item %q", ErrDuplicateIdentifier, item.ID)
		}
		seen[item.ID] = true
	}
	return nil
}

func (s *Service) addCollectionLocked(spec interfaces.CollectionSpec) (*Collection, error) {
	if err := s.validateCollectionLocked(spec); err != nil {
		return nil, err
	}

	label := spec.Label
	if label == "" {
		label = defaultCollectionLabel
	}
	c := &Collection{
		svc:    s,
		id:     spec.ID,
		label:  label,
		path:   collectionPath(spec.ID),
		locked: spec.Locked,
		items:  make(map[string]*Item),
	}
	if err := s.registry.Register(c); err != nil {
		return nil, err
	}
	s.collections[c.id] = c

	for _, itemSpec := range spec.Items {
		if _, err := c.addItemLocked(itemSpec); err != nil {
			return nil, err
		}
	}

	s.log.Debug("Added collection", "path", c.path, "locked", c.locked, "items", len(c.items))
	return c, nil
}

// Collection returns the collection with the given identifier.
func (s *Service) Collection(id string) (*Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[id]
	return c, ok
}

// SetCollectionLocked changes the lock state of the collection with identifier id.
func (s *Service) SetCollectionLocked(id string, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
	}
	c.locked = locked
	return nil
}

// Collections returns a snapshot of all collections and their items, ordered by
// identifier.
func (s *Service) Collections() []CollectionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]CollectionInfo, 0, len(s.collections))
	for _, c := range s.sortedCollectionsLocked() {
		info := CollectionInfo{
			Path:   c.path,
			ID:     c.id,
			Label:  c.label,
			Locked: c.locked,
			Items:  make([]ItemInfo, 0, len(c.items)),
		}
		for _, item := range c.sortedItemsLocked() {
			info.Items = append(info.Items, item.info())
		}
		infos = append(infos, info)
	}
	return infos
}

func (s *Service) sortedCollectionsLocked() []*Collection {
	collections := make([]*Collection, 0, len(s.collections))
	for _, c := range s.collections {
		collections = append(collections, c)
	}
	sort.Slice(collections, func(i, j int) bool { return collections[i].id < collections[j].id })
	return collections
}

// Path returns the collection's object path.
func (c *Collection) Path() interfaces.ObjectPath { return c.path }

// ID returns the collection identifier.
func (c *Collection) ID() string { return c.id }

// Label returns the display label.
func (c *Collection) Label() string { return c.label }

// Locked returns the collection's current lock state.
func (c *Collection) Locked() bool {
	c.svc.mu.Lock()
	defer c.svc.mu.Unlock()
	return c.locked
}

// SetLocked changes the collection's lock state. Items already in the
// collection keep the lock flag they were created with.
func (c *Collection) SetLocked(locked bool) {
	c.svc.mu.Lock()
	defer c.svc.mu.Unlock()
	c.locked = locked
}

// AddItem creates an item in the collection. The item captures the
// collection's lock state at this moment.
func (c *Collection) AddItem(spec interfaces.ItemSpec) (*Item, error) {
	c.svc.mu.Lock()
	defer c.svc.mu.Unlock()

	if !ValidIdentifier(spec.ID) {
		return nil, fmt.Errorf("%w: item %q", ErrInvalidIdentifier, spec.ID)
	}
	return c.addItemLocked(spec)
}

// Item returns the live item with the given identifier.
func (c *Collection) Item(id string) (*Item, bool) {
	c.svc.mu.Lock()
	defer c.svc.mu.Unlock()
	item, ok := c.items[id]
	return item, ok
}

// Items returns the live items ordered by identifier.
func (c *Collection) Items() []*Item {
	c.svc.mu.Lock()
	defer c.svc.mu.Unlock()
	return c.sortedItemsLocked()
}

func (c *Collection) addItemLocked(spec interfaces.ItemSpec) (*Item, error) {
	if _, exists := c.items[spec.ID]; exists {
		return nil, fmt.Errorf("%w: item %q in collection %q", ErrDuplicateIdentifier, spec.ID, c.id)
	}

	label := spec.Label
	if label == "" {
		label = defaultItemLabel
	}
	contentType := spec.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	attributes := make(map[string]string, len(spec.Attributes))
	for k, v := range spec.Attributes {
		attributes[k] = v
	}

	item := &Item{
		collection:      c,
		id:              spec.ID,
		label:           label,
		path:            itemPath(c.path, spec.ID),
		attributes:      attributes,
		secret:          []byte(spec.Secret),
		contentType:     contentType,
		locked:          c.locked,
		confirmOnDelete: spec.ConfirmOnDelete,
	}
	if err := c.svc.registry.Register(item); err != nil {
		return nil, err
	}
	c.items[item.id] = item
	return item, nil
}

func (c *Collection) sortedItemsLocked() []*Item {
	items := make([]*Item, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].id < items[j].id })
	return items
}
