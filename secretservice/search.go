package secretservice

import (
	"github.com/ruteri/secret-service/interfaces"
)

// SearchItems returns the paths of all items whose attributes contain query,
// split by the owning collection's current lock state. Collections and items
// are visited in identifier order.
func (s *Service) SearchItems(query map[string]string) (unlocked, locked []interfaces.ObjectPath) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlocked = []interfaces.ObjectPath{}
	locked = []interfaces.ObjectPath{}
	for _, c := range s.sortedCollectionsLocked() {
		for _, item := range c.sortedItemsLocked() {
			if !item.Matches(query) {
				continue
			}
			if c.locked {
				locked = append(locked, item.path)
			} else {
				unlocked = append(unlocked, item.path)
			}
		}
	}
	return unlocked, locked
}

// GetSecrets returns the secrets of the given items encoded for session. The
// session is validated as in GetSecret; paths that are not live items, or that
// are locked, are left out of the result.
func (s *Service) GetSecrets(caller interfaces.Caller, items []interfaces.ObjectPath, session interfaces.ObjectPath) (map[interfaces.ObjectPath]interfaces.Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.resolveSessionLocked(caller, session); err != nil {
		return nil, s.fault(err)
	}

	results := make(map[interfaces.ObjectPath]interfaces.Secret, len(items))
	for _, path := range items {
		item, ok := s.registry.Item(path)
		if !ok || item.locked {
			continue
		}
		secret, err := item.getSecretLocked(caller, session)
		if err != nil {
			return nil, s.fault(err)
		}
		results[path] = secret
	}
	return results, nil
}
