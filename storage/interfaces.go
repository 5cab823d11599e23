package storage

import "metro-housing/models"

// TableWriter is the interface any SQL mirror of the merged dataset satisfies.
type TableWriter interface {
	Write(table string, t *models.Table) error
	Close() error
}

// TableReader reads a previously written table back.
type TableReader interface {
	FetchAll(table string) (*models.Table, error)
}
