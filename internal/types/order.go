package types

import (
	"time"

	"github.com/aerucodes/emacross/pkg/errors"
	"github.com/go-playground/validator/v10"
)

type PurchaseType string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderReasonGoldenCross string = "golden_cross"
	OrderReasonDeathCross  string = "death_cross"
)

// OrderIntent is a market order routed to an order sink. Quantity is a whole
// number of units (fixed stake sizing, no fractional fills).
type OrderIntent struct {
	ID             string       `yaml:"id" json:"id" csv:"id" validate:"required,uuid"`
	Symbol         string       `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side           PurchaseType `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	Quantity       int64        `yaml:"quantity" json:"quantity" csv:"quantity" validate:"required,gt=0"`
	ReferencePrice float64      `yaml:"reference_price" json:"reference_price" csv:"reference_price" validate:"required,gt=0"`
	Timestamp      time.Time    `yaml:"timestamp" json:"timestamp" csv:"timestamp" validate:"required"`
	// Reason records which crossover produced the order
	Reason string `yaml:"reason" json:"reason" csv:"reason" validate:"required"`
}

// Fill is the order sink's response to an OrderIntent.
type Fill struct {
	OrderID  string `yaml:"order_id" json:"order_id" csv:"order_id"`
	Accepted bool   `yaml:"accepted" json:"accepted" csv:"accepted"`
	// FillPrice is only meaningful when Accepted is true
	FillPrice float64 `yaml:"fill_price" json:"fill_price" csv:"fill_price"`
	// ErrorReason is only meaningful when Accepted is false
	ErrorReason string `yaml:"error_reason" json:"error_reason" csv:"error_reason"`
}

// Validate validates the OrderIntent struct.
func (o *OrderIntent) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order intent", err)
	}

	return nil
}
