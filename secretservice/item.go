package secretservice

import (
	"github.com/ruteri/secret-service/interfaces"
)

// Item is one secret record owned by a collection.
//
// The lock flag is captured from the collection when the item is created and
// does not follow later changes to the collection. GetSecret and GetSecrets
// honor the item's flag while SearchItems partitions by the collection's
// current state.
type Item struct {
	collection      *Collection
	id              string
	label           string
	path            interfaces.ObjectPath
	attributes      map[string]string
	secret          []byte
	contentType     string
	locked          bool
	confirmOnDelete bool

	deleted bool
}

// ItemInfo is a point-in-time view of an item. It never includes the secret.
type ItemInfo struct {
	Path            interfaces.ObjectPath `json:"path"`
	ID              string                `json:"id"`
	Label           string                `json:"label"`
	Attributes      map[string]string     `json:"attributes"`
	ContentType     string                `json:"content_type"`
	Locked          bool                  `json:"locked"`
	ConfirmOnDelete bool                  `json:"confirm_on_delete"`
}

func (i *Item) Path() interfaces.ObjectPath { return i.path }
func (i *Item) ID() string                  { return i.id }
func (i *Item) Label() string               { return i.label }
func (i *Item) ContentType() string         { return i.contentType }
func (i *Item) Collection() *Collection     { return i.collection }

// Locked returns the lock flag captured at creation.
func (i *Item) Locked() bool { return i.locked }

// ConfirmOnDelete reports whether Delete goes through a prompt.
func (i *Item) ConfirmOnDelete() bool { return i.confirmOnDelete }

// Attributes returns a copy of the item's search attributes.
func (i *Item) Attributes() map[string]string {
	attributes := make(map[string]string, len(i.attributes))
	for k, v := range i.attributes {
		attributes[k] = v
	}
	return attributes
}

// Matches reports whether every queried attribute is present with an equal value.
func (i *Item) Matches(query map[string]string) bool {
	for k, v := range query {
		if got, ok := i.attributes[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// GetSecret returns the item's secret encoded for session. The session must be
// live and owned by caller (InvalidArgs) and the item must not be locked (IsLocked).
func (i *Item) GetSecret(caller interfaces.Caller, session interfaces.ObjectPath) (interfaces.Secret, error) {
	svc := i.collection.svc
	svc.mu.Lock()
	defer svc.mu.Unlock()

	secret, err := i.getSecretLocked(caller, session)
	return secret, svc.fault(err)
}

// Delete removes the item right away and returns the null path, or, for items
// that require confirmation, returns the path of a prompt whose completion
// removes it.
func (i *Item) Delete(caller interfaces.Caller) (interfaces.ObjectPath, error) {
	svc := i.collection.svc
	svc.mu.Lock()
	defer svc.mu.Unlock()

	path, err := i.deleteLocked(caller)
	return path, svc.fault(err)
}

func (i *Item) getSecretLocked(caller interfaces.Caller, sessionPath interfaces.ObjectPath) (interfaces.Secret, error) {
	svc := i.collection.svc
	session, err := svc.resolveSessionLocked(caller, sessionPath)
	if err != nil {
		return interfaces.Secret{}, err
	}
	if i.deleted {
		return interfaces.Secret{}, interfaces.InvalidArgs("item deleted: %s", i.path)
	}
	if i.locked {
		return interfaces.Secret{}, interfaces.IsLocked("secret is locked: %s", i.path)
	}

	secret, err := session.EncodeSecret(i.secret, i.contentType)
	if err != nil {
		return interfaces.Secret{}, err
	}
	svc.metrics.SecretsServed.Inc()
	return secret, nil
}

func (i *Item) deleteLocked(caller interfaces.Caller) (interfaces.ObjectPath, error) {
	if i.deleted {
		return "", interfaces.InvalidArgs("item deleted: %s", i.path)
	}

	if i.confirmOnDelete {
		prompt, err := i.collection.svc.newPromptLocked(caller, PromptAction{Kind: ActionDeleteItem, Item: i.path})
		if err != nil {
			return "", err
		}
		return prompt.path, nil
	}

	i.removeLocked()
	return interfaces.NullPath, nil
}

func (i *Item) removeLocked() {
	if i.deleted {
		return
	}
	i.deleted = true
	delete(i.collection.items, i.id)
	i.collection.svc.registry.Remove(i.path)
	i.collection.svc.log.Debug("Deleted item", "path", i.path)
}

func (i *Item) info() ItemInfo {
	return ItemInfo{
		Path:            i.path,
		ID:              i.id,
		Label:           i.label,
		Attributes:      i.Attributes(),
		ContentType:     i.contentType,
		Locked:          i.locked,
		ConfirmOnDelete: i.confirmOnDelete,
	}
}
