// Package models contains GORM persistence models for the purchase order
// aggregate. They are kept apart from the domain types so the domain stays
// free of ORM tags.
//
// Each model converts in both directions:
//   - ToDomain builds the domain value from the row
//   - FromDomain / ...ModelFromDomain build the row from the domain value
//
// Owned records (line items, goods receipts, returns, payments) live in child
// tables keyed by order_id and carry a position so they load back in the
// order they were added.
package models
