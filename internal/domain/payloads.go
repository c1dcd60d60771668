// Transaction payloads and their mapping onto backend stored procedures.
//
// Every business operation the gateway forwards is expressed as a named
// procedure call with a fixed set of p_* parameters, mirroring the backend's
// PostgREST-style RPC convention. Each payload type knows its procedure name,
// validates itself, and renders its named-parameter map; the queue stores the
// payload as JSON and reconstructs it by kind on replay.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TxnKind discriminates the payload shape of a queued transaction.
type TxnKind string

// Supported transaction kinds.
const (
	KindSale      TxnKind = "sale"
	KindPayment   TxnKind = "payment"
	KindDamage    TxnKind = "damage"
	KindExpense   TxnKind = "expense"
	KindReturn    TxnKind = "sales_return"
	KindArrival   TxnKind = "arrival"
	KindReconcile TxnKind = "reconcile"
)

// Valid reports whether k is a known transaction kind.
func (k TxnKind) Valid() bool {
	switch k {
	case KindSale, KindPayment, KindDamage, KindExpense, KindReturn, KindArrival, KindReconcile:
		return true
	}
	return false
}

// Validation errors shared by the payload types.
var (
	ErrMissingTxnID    = errors.New("client transaction id is required")
	ErrInvalidShop     = errors.New("shop id must be positive")
	ErrInvalidProduct  = errors.New("product id must be positive")
	ErrInvalidQty      = errors.New("quantity must be positive")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrNoItems         = errors.New("sale must contain at least one item")
	ErrInvalidCategory = errors.New("unknown expense category")
	ErrUnknownKind     = errors.New("unknown transaction kind")
)

// Payload is a replayable business transaction. Params must include the
// client idempotency token so the backend can suppress duplicate processing
// of a retried submission.
type Payload interface {
	Kind() TxnKind
	Procedure() string
	TxnID() string
	Params() map[string]any
	Validate() error
}

// SaleItem is one cart line of a point-of-sale transaction. CustomPrice, when
// set, overrides the catalog price in paise for this line only.
type SaleItem struct {
	ProductID   int64  `json:"product_id"`
	Qty         int    `json:"qty"`
	CustomPrice *int64 `json:"custom_price,omitempty"`
}

// SalePayload maps onto process_sale_transaction.
type SalePayload struct {
	ShopID        int64      `json:"shop_id"`
	StorehouseID  int64      `json:"storehouse_id"`
	TripID        *int64     `json:"trip_id,omitempty"`
	Items         []SaleItem `json:"items"`
	CashCollected int64      `json:"cash_collected"`
	ClientTxnID   string     `json:"client_txn_id"`
}

func (SalePayload) Kind() TxnKind     { return KindSale }
func (SalePayload) Procedure() string { return "process_sale_transaction" }
func (p SalePayload) TxnID() string   { return p.ClientTxnID }

func (p SalePayload) Params() map[string]any {
	var trip any
	if p.TripID != nil {
		trip = *p.TripID
	}
	return map[string]any{
		"p_shop_id":        p.ShopID,
		"p_storehouse_id":  p.StorehouseID,
		"p_trip_id":        trip,
		"p_items":          p.Items,
		"p_cash_collected": p.CashCollected,
		"p_client_txn_id":  p.ClientTxnID,
	}
}

func (p SalePayload) Validate() error {
	if p.ClientTxnID == "" {
		return ErrMissingTxnID
	}
	if p.ShopID <= 0 {
		return ErrInvalidShop
	}
	if len(p.Items) == 0 {
		return ErrNoItems
	}
	for _, it := range p.Items {
		if it.ProductID <= 0 {
			return ErrInvalidProduct
		}
		if it.Qty <= 0 {
			return ErrInvalidQty
		}
	}
	if p.CashCollected < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// PaymentPayload maps onto collect_payment (credit settlement at a shop).
type PaymentPayload struct {
	ShopID      int64  `json:"shop_id"`
	AmountPaise int64  `json:"amount_paise"`
	Notes       string `json:"notes,omitempty"`
	ClientTxnID string `json:"client_txn_id"`
}

func (PaymentPayload) Kind() TxnKind     { return KindPayment }
func (PaymentPayload) Procedure() string { return "collect_payment" }
func (p PaymentPayload) TxnID() string   { return p.ClientTxnID }

func (p PaymentPayload) Params() map[string]any {
	var notes any
	if p.Notes != "" {
		notes = p.Notes
	}
	return map[string]any{
		"p_shop_id":       p.ShopID,
		"p_amount":        p.AmountPaise,
		"p_notes":         notes,
		"p_client_txn_id": p.ClientTxnID,
	}
}

func (p PaymentPayload) Validate() error {
	if p.ClientTxnID == "" {
		return ErrMissingTxnID
	}
	if p.ShopID <= 0 {
		return ErrInvalidShop
	}
	if p.AmountPaise <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// DamagePayload maps onto report_damage. Type distinguishes where the loss
// occurred (e.g. "transit", "storehouse", "expired").
type DamagePayload struct {
	StorehouseID int64  `json:"storehouse_id"`
	ProductID    int64  `json:"product_id"`
	Qty          int    `json:"qty"`
	Reason       string `json:"reason"`
	Type         string `json:"type"`
	ClientTxnID  string `json:"client_txn_id"`
}

func (DamagePayload) Kind() TxnKind     { return KindDamage }
func (DamagePayload) Procedure() string { return "report_damage" }
func (p DamagePayload) TxnID() string   { return p.ClientTxnID }

func (p DamagePayload) Params() map[string]any {
	return map[string]any{
		"p_storehouse_id": p.StorehouseID,
		"p_product_id":    p.ProductID,
		"p_qty":           p.Qty,
		"p_reason":        p.Reason,
		"p_type":          p.Type,
		"p_client_txn_id": p.ClientTxnID,
	}
}

func (p DamagePayload) Validate() error {
	if p.ClientTxnID == "" {
		return ErrMissingTxnID
	}
	if p.ProductID <= 0 {
		return ErrInvalidProduct
	}
	if p.Qty <= 0 {
		return ErrInvalidQty
	}
	return nil
}

// expenseCategories matches the category set offered by the field app.
var expenseCategories = map[string]struct{}{
	"fuel": {}, "meals": {}, "vehicle": {}, "transport": {}, "misc": {},
}

// ExpensePayload maps onto record_expense (salesman trip expense).
type ExpensePayload struct {
	Category    string `json:"category"`
	AmountPaise int64  `json:"amount_paise"`
	Notes       string `json:"notes,omitempty"`
	ClientTxnID string `json:"client_txn_id"`
}

func (ExpensePayload) Kind() TxnKind     { return KindExpense }
func (ExpensePayload) Procedure() string { return "record_expense" }
func (p ExpensePayload) TxnID() string   { return p.ClientTxnID }

func (p ExpensePayload) Params() map[string]any {
	var notes any
	if p.Notes != "" {
		notes = p.Notes
	}
	return map[string]any{
		"p_category":      p.Category,
		"p_amount":        p.AmountPaise,
		"p_notes":         notes,
		"p_client_txn_id": p.ClientTxnID,
	}
}

func (p ExpensePayload) Validate() error {
	if p.ClientTxnID == "" {
		return ErrMissingTxnID
	}
	if _, ok := expenseCategories[p.Category]; !ok {
		return ErrInvalidCategory
	}
	if p.AmountPaise <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ReturnPayload maps onto process_sales_return. Condition is "sellable" or
// "damaged" and decides whether stock is restored.
type ReturnPayload struct {
	ShopID       int64  `json:"shop_id"`
	ProductID    int64  `json:"product_id"`
	Qty          int    `json:"qty"`
	Condition    string `json:"condition"`
	StorehouseID int64  `json:"storehouse_id"`
	RefundPaise  int64  `json:"refund_paise"`
	ClientTxnID  string `json:"client_txn_id"`
}

func (ReturnPayload) Kind() TxnKind     { return KindReturn }
func (ReturnPayload) Procedure() string { return "process_sales_return" }
func (p ReturnPayload) TxnID() string   { return p.ClientTxnID }

func (p ReturnPayload) Params() map[string]any {
	return map[string]any{
		"p_shop_id":          p.ShopID,
		"p_product_id":       p.ProductID,
		"p_qty":              p.Qty,
		"p_return_condition": p.Condition,
		"p_storehouse_id":    p.StorehouseID,
		"p_refund_amount":    p.RefundPaise,
		"p_client_txn_id":    p.ClientTxnID,
	}
}

func (p ReturnPayload) Validate() error {
	if p.ClientTxnID == "" {
		return ErrMissingTxnID
	}
	if p.ShopID <= 0 {
		return ErrInvalidShop
	}
	if p.ProductID <= 0 {
		return ErrInvalidProduct
	}
	if p.Qty <= 0 {
		return ErrInvalidQty
	}
	if p.RefundPaise < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ArrivalPayload maps onto process_daily_arrival: the morning intake of stock
// split between the two storehouses (GVM and Vengannor).
type ArrivalPayload struct {
	ProductID      int64  `json:"product_id"`
	TotalIncoming  int    `json:"total_incoming"`
	ArrivalDamaged int    `json:"arrival_damaged"`
	SplitGVM       int    `json:"split_gvm"`
	SplitVen       int    `json:"split_ven"`
	ClientTxnID    string `json:"client_txn_id"`
}

func (ArrivalPayload) Kind() TxnKind     { return KindArrival }
func (ArrivalPayload) Procedure() string { return "process_daily_arrival" }
func (p ArrivalPayload) TxnID() string   { return p.ClientTxnID }

func (p ArrivalPayload) Params() map[string]any {
	return map[string]any{
		"p_product_id":      p.ProductID,
		"p_total_incoming":  p.TotalIncoming,
		"p_arrival_damaged": p.ArrivalDamaged,
		"p_split_gvm":       p.SplitGVM,
		"p_split_ven":       p.SplitVen,
		"p_client_txn_id":   p.ClientTxnID,
	}
}

func (p ArrivalPayload) Validate() error {
	if p.ClientTxnID == "" {
		return ErrMissingTxnID
	}
	if p.ProductID <= 0 {
		return ErrInvalidProduct
	}
	if p.TotalIncoming <= 0 {
		return ErrInvalidQty
	}
	if p.ArrivalDamaged < 0 || p.SplitGVM < 0 || p.SplitVen < 0 {
		return ErrInvalidQty
	}
	if p.SplitGVM+p.SplitVen+p.ArrivalDamaged != p.TotalIncoming {
		return fmt.Errorf("splits (%d gvm + %d ven + %d damaged) must sum to total incoming %d",
			p.SplitGVM, p.SplitVen, p.ArrivalDamaged, p.TotalIncoming)
	}
	return nil
}

// ReconcilePayload maps onto admin_reconcile_stock: an adjustment closing the
// gap between system and physical count.
type ReconcilePayload struct {
	ProductID    int64  `json:"product_id"`
	StorehouseID int64  `json:"storehouse_id"`
	Adjustment   int    `json:"adjustment_quantity"`
	Reason       string `json:"reason"`
	ClientTxnID  string `json:"client_txn_id"`
}

func (ReconcilePayload) Kind() TxnKind     { return KindReconcile }
func (ReconcilePayload) Procedure() string { return "admin_reconcile_stock" }
func (p ReconcilePayload) TxnID() string   { return p.ClientTxnID }

func (p ReconcilePayload) Params() map[string]any {
	return map[string]any{
		"p_product_id":          p.ProductID,
		"p_storehouse_id":       p.StorehouseID,
		"p_adjustment_quantity": p.Adjustment,
		"p_reason":              p.Reason,
		"p_client_txn_id":       p.ClientTxnID,
	}
}

func (p ReconcilePayload) Validate() error {
	if p.ClientTxnID == "" {
		return ErrMissingTxnID
	}
	if p.ProductID <= 0 {
		return ErrInvalidProduct
	}
	if p.Adjustment == 0 {
		return errors.New("adjustment quantity must be non-zero")
	}
	return nil
}

// DecodePayload reconstructs a typed payload from its stored JSON form. The
// queue persists payloads opaquely; replay needs the concrete type back to
// render procedure parameters.
func DecodePayload(kind TxnKind, raw []byte) (Payload, error) {
	decode := func(v Payload, target any) (Payload, error) {
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return v, nil
	}
	switch kind {
	case KindSale:
		v := &SalePayload{}
		return decode(v, v)
	case KindPayment:
		v := &PaymentPayload{}
		return decode(v, v)
	case KindDamage:
		v := &DamagePayload{}
		return decode(v, v)
	case KindExpense:
		v := &ExpensePayload{}
		return decode(v, v)
	case KindReturn:
		v := &ReturnPayload{}
		return decode(v, v)
	case KindArrival:
		v := &ArrivalPayload{}
		return decode(v, v)
	case KindReconcile:
		v := &ReconcilePayload{}
		return decode(v, v)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
