package model

// Coupon is an already-validated discount. Validation happens in an
// external collaborator; the cart only ever receives the result.
// DiscountAmount is in minor currency units and never negative.
type Coupon struct {
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discount_amount"`
}
