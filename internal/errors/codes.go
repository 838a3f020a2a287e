package errors

// Error code constants, CATEGORY_SPECIFIC_DETAIL. Clients map these
// codes to their own messages.

const (
	// Authentication (AUTH_)
	AuthUnauthorized = "AUTH_UNAUTHORIZED"
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid = "AUTH_TOKEN_INVALID"

	// Validation (VALIDATION_)
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationInvalidRange = "VALIDATION_INVALID_RANGE"

	// Cart (CART_)
	CartItemNotFound   = "CART_ITEM_NOT_FOUND"
	CartInvalidPayload = "CART_INVALID_PAYLOAD"

	// Internal (INTERNAL_)
	InternalServerError = "INTERNAL_SERVER_ERROR"
)
