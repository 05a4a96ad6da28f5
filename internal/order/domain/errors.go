package domain

import "errors"

var (
	ErrOrderNotFound     = errors.New("order_not_found")
	ErrItemNotFound      = errors.New("order_item_not_found")
	ErrSplitBillNotFound = errors.New("split_bill_not_found")

	ErrOrderClosed             = errors.New("order_closed")
	ErrAlreadySettled          = errors.New("split_bill_already_settled")
	ErrDiscountExceedsSubtotal = errors.New("discount_exceeds_subtotal")
	ErrOrderNotSettled         = errors.New("order_not_settled")
	ErrOrderHasPayments        = errors.New("order_has_payments")

	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidDiscountType  = errors.New("invalid_discount_type")
	ErrInvalidDiscountValue = errors.New("invalid_discount_value")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidTip           = errors.New("invalid_tip")
	ErrInvalidPaymentMethod = errors.New("invalid_payment_method")
	ErrInvalidSplit         = errors.New("invalid_split")
	ErrInvalidActor         = errors.New("invalid_actor")
	ErrInvalidTable         = errors.New("invalid_table")
	ErrApprovalRequired     = errors.New("discount_approval_required")
)
