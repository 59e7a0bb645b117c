// Package errors provides the error kinds raised by the point-of-sale core.
package errors

import (
	"errors"
	"fmt"
)

var ErrDuplicateBarcode = errors.New("product with this barcode already exists")
var ErrProductNotFound = errors.New("product not found")
var ErrInvalidProduct = errors.New("invalid product")
var ErrInvalidAmount = errors.New("refill amount must not be negative")
var ErrInsufficientStock = errors.New("insufficient stock")
var ErrNoOpenSale = errors.New("no open sale")
var ErrSaleInProgress = errors.New("a sale is already in progress")
var ErrInvalidClient = errors.New("client id is required")
var ErrInvalidQuantity = errors.New("item quantity must be positive")
var ErrInvalidPrice = errors.New("unit price must not be negative")
var ErrIndexOutOfRange = errors.New("sale item index out of range")
var ErrInvalidRange = errors.New("invalid date range")

// ErrStorage marks failures of the underlying storage (I/O, connectivity, constraint).
var ErrStorage = errors.New("storage failure")

// Storage wraps a driver error so that it matches ErrStorage while keeping the cause.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
