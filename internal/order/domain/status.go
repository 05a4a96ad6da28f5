package domain

// OrderStatus is the lifecycle state of a dine-in order.
type OrderStatus string

const (
	OrderStatusOpen          OrderStatus = "OPEN"
	OrderStatusPartiallyPaid OrderStatus = "PARTIALLY_PAID"
	OrderStatusPaid          OrderStatus = "PAID"
	OrderStatusClosed        OrderStatus = "CLOSED"
	OrderStatusVoid          OrderStatus = "VOID"
)

// Terminal reports whether the order accepts no further mutation.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusClosed, OrderStatusVoid:
		return true
	case OrderStatusOpen, OrderStatusPartiallyPaid, OrderStatusPaid:
		return false
	default:
		return false
	}
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusOpen, OrderStatusPartiallyPaid, OrderStatusPaid, OrderStatusClosed, OrderStatusVoid:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentStatusNone      PaymentStatus = "NONE"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
)

// ItemStatus tracks an order item through the kitchen.
type ItemStatus string

const (
	ItemStatusNew          ItemStatus = "NEW"
	ItemStatusSent         ItemStatus = "SENT"
	ItemStatusAcknowledged ItemStatus = "ACKNOWLEDGED"
	ItemStatusPreparing    ItemStatus = "PREPARING"
	ItemStatusReady        ItemStatus = "READY"
	ItemStatusServed       ItemStatus = "SERVED"
	ItemStatusVoid         ItemStatus = "VOID"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusNew, ItemStatusSent, ItemStatusAcknowledged, ItemStatusPreparing,
		ItemStatusReady, ItemStatusServed, ItemStatusVoid:
		return true
	default:
		return false
	}
}

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeFlat       DiscountType = "FLAT"
)

func ParseDiscountType(value string) (DiscountType, bool) {
	switch t := DiscountType(value); t {
	case DiscountTypePercentage, DiscountTypeFlat:
		return t, true
	default:
		return "", false
	}
}

// PaymentRecordStatus is the state of a single payment row.
type PaymentRecordStatus string

const (
	PaymentRecordPending   PaymentRecordStatus = "PENDING"
	PaymentRecordCompleted PaymentRecordStatus = "COMPLETED"
	PaymentRecordFailed    PaymentRecordStatus = "FAILED"
)

type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "CASH"
	PaymentMethodCard    PaymentMethod = "CARD"
	PaymentMethodQRIS    PaymentMethod = "QRIS"
	PaymentMethodEWallet PaymentMethod = "EWALLET"
	PaymentMethodVoucher PaymentMethod = "VOUCHER"
)

func ParsePaymentMethod(value string) (PaymentMethod, bool) {
	switch m := PaymentMethod(value); m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodQRIS, PaymentMethodEWallet, PaymentMethodVoucher:
		return m, true
	default:
		return "", false
	}
}
