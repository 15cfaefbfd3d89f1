// Package memorystorage is the JSON storage without a backing file. It is
// the default when neither a database DSN nor a file path is configured,
// and the storage most tests run against.
package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/rango/internal/db/jsondb"
)

type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.NewCache(),
		},
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
