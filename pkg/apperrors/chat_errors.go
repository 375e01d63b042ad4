package apperrors

var (
	// Domain errors — used in services/handlers
	ErrProfileMissing       = FailedPrecondition("no profile found; complete onboarding before chatting")
	ErrEmptyMessage         = InvalidArg("message cannot be empty")
	ErrSenderMismatch       = Forbidden("sender does not match connection identity")
	ErrMissingIdentity      = Unauthorized("connection handshake is missing a user identity")
	ErrUnknownEvent         = InvalidArg("unknown event type")
	ErrConversationNotFound = NotFound("conversation not found")
)

func ErrUpstreamUnavailable(cause error) error {
	return Wrap(CodeUnavailable, "completion service unavailable", cause)
}

func ErrUpstreamRejected(cause error) error {
	return Wrap(CodeInvalidArgument, "completion request rejected", cause)
}

func ErrTurnCommitFailed(cause error) error {
	return Wrap(CodeInternal, "failed to record turn; conversation may be partially written", cause)
}
