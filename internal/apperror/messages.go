package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Connection lifecycle
	CodeWalletUnavailable:   "No wallet provider is available",
	CodeUserRejected:        "User rejected the request",
	CodeWalletLocked:        "Wallet is locked, a request is already pending",
	CodeTooManyAttempts:     "Too many connection attempts, retry after cooldown",
	CodeProviderUnavailable: "Wallet provider request failed",

	// Network reconciliation
	CodeUnknownChain:         "Wallet does not know the requested chain",
	CodeNetworkSwitchTimeout: "Network switch was not observed in time",
	CodeNetworkAddRejected:   "Wallet refused to add the network",

	// Input shape
	CodeInvalidAddress: "Invalid address",
	CodeInvalidHash:    "Invalid transaction hash",

	// Transaction lifecycle
	CodeUnpredictableGas:    "Cannot estimate gas, transaction may fail or parameters may be wrong",
	CodeConfirmationTimeout: "Transaction confirmation timed out",
	CodeTransactionReverted: "Transaction was reverted on chain",
	CodeTransactionNotFound: "Transaction not found",
	CodeAlreadyConfirmed:    "Transaction is already confirmed",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketReconnecting:    "WebSocket reconnecting",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Chain read boundary
	CodeChainRPCError: "Chain RPC call failed",
	CodeBlockNotFound: "Block not found",

	// Governance contract boundary
	CodeContractCallFailed: "Smart contract call failed",
	CodeEventDecodeFailed:  "Failed to decode contract event",
}
