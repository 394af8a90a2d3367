// Package storage groups the document store drivers. Each driver implements the
// store interfaces declared by ledger, participants, broadcast, bot and seed.
package storage

// Drivers selectable through storage.driver.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)
