package services

import "errors"

var (
	// ErrInvalidInput indicates the caller supplied malformed input.
	ErrInvalidInput = errors.New("services: invalid input")
	// ErrEmptyCart indicates checkout was attempted with no line items.
	ErrEmptyCart = errors.New("services: empty cart")
	// ErrNoValidProducts indicates no cart line resolved to a sellable product.
	ErrNoValidProducts = errors.New("services: no valid products")
	// ErrInsufficientStock indicates at least one line exceeds available stock.
	ErrInsufficientStock = errors.New("services: insufficient stock")
	// ErrPaymentFailed indicates the PSP session could not be created.
	ErrPaymentFailed = errors.New("services: payment session failed")
	// ErrPromotionInvalid indicates the promo code is unknown or outside its window.
	ErrPromotionInvalid = errors.New("services: invalid or expired promo code")
	// ErrPromotionExhausted indicates the promo code reached its usage cap.
	ErrPromotionExhausted = errors.New("services: promo usage limit reached")
	// ErrInvalidPhone indicates the phone number fails the local mobile pattern.
	ErrInvalidPhone = errors.New("services: invalid phone number")
	// ErrCODLimitExceeded indicates the total is above the cash-on-delivery ceiling.
	ErrCODLimitExceeded = errors.New("services: cod limit exceeded")
	// ErrOrderNotFound indicates the referenced order does not exist.
	ErrOrderNotFound = errors.New("services: order not found")
	// ErrMissingOrderRef indicates a webhook event without an order reference.
	ErrMissingOrderRef = errors.New("services: missing order reference")
	// ErrShipmentFailed indicates the courier booking step failed.
	ErrShipmentFailed = errors.New("services: shipment booking failed")
	// ErrEmailFailed indicates the email step failed; it is safe to retry.
	ErrEmailFailed = errors.New("services: order email failed")
	// ErrUnavailable indicates a dependency is temporarily unavailable.
	ErrUnavailable = errors.New("services: unavailable")
)
