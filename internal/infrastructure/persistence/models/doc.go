// Package models contains GORM-specific persistence models for the local ledger.
// These models are separate from the collection domain types to keep the domain
// layer free from ORM concerns.
//
// Key Principles:
// 1. Domain types carry no GORM tags
// 2. Persistence models contain all GORM annotations and table mappings
// 3. ToDomain / FromDomain mappers convert between the two
// 4. The local ledger only reads and writes persistence models
//
// Structure:
// - base.go: shared timestamp fields and the migration list
// - sale.go: sales with their paid amount
// - collection.go: collection records, settlement entries and instrument amounts
package models
