package service

import "github.com/ikkim/cartsync/internal/app/model"

// Subtotal sums unit price times quantity over the cart. Pure; the
// engine recomputes totals on every read instead of caching them.
func Subtotal(items []model.LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// FinalTotal applies the coupon discount, clamped at zero. A discount
// larger than the subtotal never produces a negative total.
func FinalTotal(items []model.LineItem, coupon *model.Coupon) int64 {
	subtotal := Subtotal(items)
	if coupon == nil {
		return subtotal
	}
	total := subtotal - coupon.DiscountAmount
	if total < 0 {
		return 0
	}
	return total
}
