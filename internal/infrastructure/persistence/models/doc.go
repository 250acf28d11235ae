// Package models contains the GORM persistence models for the sync engine.
// Models carry the composite unique indexes that back the idempotent-upsert
// discipline and convert to/from domain entities.
package models
