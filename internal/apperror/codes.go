package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Wallet session error codes
const (
	// Connection lifecycle
	CodeWalletUnavailable   Code = "WALLET_UNAVAILABLE"
	CodeUserRejected        Code = "USER_REJECTED"
	CodeWalletLocked        Code = "WALLET_LOCKED"
	CodeTooManyAttempts     Code = "TOO_MANY_ATTEMPTS"
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"

	// Network reconciliation
	CodeUnknownChain         Code = "UNKNOWN_CHAIN"
	CodeNetworkSwitchTimeout Code = "NETWORK_SWITCH_TIMEOUT"
	CodeNetworkAddRejected   Code = "NETWORK_ADD_REJECTED"

	// Input shape, rejected before any provider call
	CodeInvalidAddress Code = "INVALID_ADDRESS"
	CodeInvalidHash    Code = "INVALID_HASH"
)

// Transaction lifecycle error codes
const (
	CodeUnpredictableGas    Code = "UNPREDICTABLE_GAS"
	CodeConfirmationTimeout Code = "CONFIRMATION_TIMEOUT"
	CodeTransactionReverted Code = "TRANSACTION_REVERTED"
	CodeTransactionNotFound Code = "TRANSACTION_NOT_FOUND"
	CodeAlreadyConfirmed    Code = "ALREADY_CONFIRMED"
)

// Infrastructure error codes
const (
	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketReconnecting    Code = "WEBSOCKET_RECONNECTING"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Chain read boundary
	CodeChainRPCError Code = "CHAIN_RPC_ERROR"
	CodeBlockNotFound Code = "BLOCK_NOT_FOUND"

	// Governance contract boundary
	CodeContractCallFailed Code = "CONTRACT_CALL_FAILED"
	CodeEventDecodeFailed  Code = "EVENT_DECODE_FAILED"
)
