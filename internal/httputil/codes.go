package httputil

// Machine readable error codes returned next to the human readable message
const (
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"

	CodeMissingAuth        = "MISSING_AUTH"
	CodeInvalidAuthHeader  = "INVALID_AUTH_HEADER"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidTokenUserID = "INVALID_TOKEN_USER_ID"
	CodeAdminRequired      = "ADMIN_REQUIRED"

	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"

	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeProtectedAccount  = "PROTECTED_ACCOUNT"
	CodeInvalidResetToken = "INVALID_RESET_TOKEN"
	CodeSeedDisabled      = "SEED_DISABLED"
)
