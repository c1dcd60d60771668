// Package domain defines the persistence models for the offline transaction
// queue and the local catalog cache. These types are mapped with GORM and form
// the core data layer of the field gateway.
package domain

import (
	"time"
)

// QueueEntry is a durably persisted business transaction awaiting delivery to
// the backend. Entries are inserted when an immediate send fails (or the
// device is offline) and deleted once the backend confirms acceptance; they
// are never updated in place except for the in-flight claim used to serialize
// concurrent flushes.
//
// Fields:
//   - ID: auto-incremented local identifier, assigned once on insert.
//   - Kind: transaction discriminator (sale, payment, damage, ...).
//   - ClientTxnID: client-generated idempotency token; unique per Kind so the
//     same logical transaction cannot be queued twice.
//   - Payload: JSON-encoded named parameters for the backend procedure.
//   - InFlight: claim marker owned by a running flush; reset on startup.
//   - CreatedAt: enqueue time (UTC), drives oldest-first replay order.
type QueueEntry struct {
	ID          uint      `json:"id"            gorm:"primaryKey;autoIncrement"`
	Kind        TxnKind   `json:"kind"          gorm:"type:varchar(32);not null;uniqueIndex:ux_queue_kind_txn,priority:1"`
	ClientTxnID string    `json:"client_txn_id" gorm:"type:char(36);not null;uniqueIndex:ux_queue_kind_txn,priority:2"`
	Payload     []byte    `json:"payload"       gorm:"type:blob;not null"`
	InFlight    bool      `json:"-"             gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"    gorm:"index:idx_queue_created"`
}

// TableName returns the database table name for QueueEntry.
func (QueueEntry) TableName() string { return "queue_entries" }

// DeadLetter records a queued transaction the backend rejected
// deterministically (bad shop id, insufficient stock). Such entries are taken
// off the retry path but kept for operator review: a sale record must never
// be silently discarded.
type DeadLetter struct {
	ID          uint      `json:"id"            gorm:"primaryKey;autoIncrement"`
	Kind        TxnKind   `json:"kind"          gorm:"type:varchar(32);not null;index"`
	ClientTxnID string    `json:"client_txn_id" gorm:"type:char(36);not null"`
	Payload     []byte    `json:"payload"       gorm:"type:blob;not null"`
	Reason      string    `json:"reason"        gorm:"type:text;not null"`
	QueuedAt    time.Time `json:"queued_at"`
	FailedAt    time.Time `json:"failed_at"     gorm:"index"`
}

// TableName returns the database table name for DeadLetter.
func (DeadLetter) TableName() string { return "dead_letters" }

// Product is a locally cached row of the backend product catalog, refreshed
// while online and served from the cache when the device is not. Prices are
// kept in paise (integer) to avoid float drift in the POS cart.
type Product struct {
	ID         int64     `json:"id"          gorm:"primaryKey"`
	Name       string    `json:"name"        gorm:"type:varchar(255);not null"`
	Unit       string    `json:"unit"        gorm:"type:varchar(32);not null"`
	PricePaise int64     `json:"price_paise" gorm:"not null"`
	Active     bool      `json:"active"      gorm:"not null;default:true"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Shop is a locally cached row of the backend shop registry. BalancePaise is
// the credit balance as of the last catalog refresh; it is display-only and
// the backend remains authoritative.
type Shop struct {
	ID           int64     `json:"id"            gorm:"primaryKey"`
	Name         string    `json:"name"          gorm:"type:varchar(255);not null"`
	RouteID      int64     `json:"route_id"      gorm:"index"`
	Phone        string    `json:"phone"         gorm:"type:varchar(32)"`
	BalancePaise int64     `json:"balance_paise"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for Shop.
func (Shop) TableName() string { return "shops" }

// FlushReport summarizes one drain of the pending queue.
type FlushReport struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// DeadLettered counts entries moved off the retry path because the
	// backend rejected them deterministically; they are a subset of neither
	// Succeeded nor Failed.
	DeadLettered int `json:"dead_lettered"`
}
