package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Schema versions:
// 1 - JSON workspace snapshots under s:
const CurrentSchemaVersion = 1

const schemaKey = prefixMeta + "__schema__"

// ErrSchemaTooNew is returned when the database was written by a newer triage.
var ErrSchemaTooNew = errors.New("session store schema is newer than this build")

// Schema holds database schema information.
type Schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetSchema returns the stored schema, or nil if not set.
func (s *Store) GetSchema() *Schema {
	var schema *Schema

	_ = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			schema = &Schema{}
			return json.Unmarshal(val, schema)
		})
	})

	return schema
}

// SetSchema stores the schema version.
func (s *Store) SetSchema(schema *Schema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaKey), data)
	})
}

// ensureSchema stamps a fresh database and refuses one from a newer build.
func (s *Store) ensureSchema() error {
	schema := s.GetSchema()
	switch {
	case schema == nil:
		return s.SetSchema(&Schema{Version: CurrentSchemaVersion, UpdatedAt: time.Now().UTC()})
	case schema.Version > CurrentSchemaVersion:
		return fmt.Errorf("%w: version %d, supported %d", ErrSchemaTooNew, schema.Version, CurrentSchemaVersion)
	default:
		return nil
	}
}
