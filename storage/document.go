package storage

import (
	"fmt"

	"github.com/ruteri/secret-service/interfaces"
	"github.com/ruteri/secret-service/secretservice"
	"gopkg.in/yaml.v3"
)

// ParseCollections decodes a YAML (or JSON) collections document.
//
//	collections:
//	  - id: login
//	    locked: false
//	    items:
//	      - id: github
//	        attributes: {service: github.com, user: octocat}
//	        secret: hunter2
func ParseCollections(data []byte) ([]interfaces.CollectionSpec, error) {
	var doc interfaces.CollectionsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse collections document: %w", err)
	}
	return doc.Collections, nil
}

// itemIDs hands out item identifiers for external keys. A key whose sanitized
// form is taken gets the first free "_<n>" suffix, n from 2.
type itemIDs map[string]bool

func (ids itemIDs) next(key string) string {
	base := secretservice.SanitizeIdentifier(key)
	id := base
	for n := 2; ids[id]; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	ids[id] = true
	return id
}

// MarshalCollections encodes specs as a YAML collections document.
func MarshalCollections(specs []interfaces.CollectionSpec) ([]byte, error) {
	return yaml.Marshal(interfaces.CollectionsDocument{Collections: specs})
}
