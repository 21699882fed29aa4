// Package storage loads the collections a secret service starts with from
// pluggable sources.
//
// Collections are never created through the RPC surface. Instead they are read
// from one or more sources at startup and imported into the service:
//
//   - File: a YAML collections document on local disk
//   - S3: the same document stored in an S3-compatible bucket
//   - Vault: a HashiCorp Vault KV v2 secret, one item per key
//   - Keyring: an OS or file keyring, one item per entry
//
// # Source URI Format
//
// Sources are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Examples:
//
//   - file:///etc/secretd/collections.yaml
//   - s3://fixtures/collections.yaml?region=eu-west-1
//   - vault://vault.example.com:8200/secret/apps/login?collection=login
//   - keyring://secretd?backend=file&dir=/var/lib/secretd/keyring&password_env=KEYRING_PASSWORD
//
// # Document Format
//
//	collections:
//	  - id: collection
//	    label: Default
//	    locked: false
//	    items:
//	      - id: item_one
//	        attributes: {number: "1", string: one}
//	        secret: uno
//	        content_type: text/plain
//	        confirm_on_delete: false
//
// # Multiple Sources
//
// MultiSource merges several sources in order. Unavailable sources are skipped
// and the first source to define a collection identifier wins. LoadInto loads a
// set of sources and imports the result into a service.
package storage
