// Package models holds the GORM table mappings for the receivables schema.
// Domain entities stay free of ORM tags; each model carries the column
// definitions and converts to and from its domain counterpart, and the
// repositories only ever touch the database through these models.
package models
