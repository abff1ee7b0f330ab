package chatlink

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"matchlink/backend/internal/config"
	"matchlink/backend/internal/ledger"
)

// ErrorKind categorizes workflow failures.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindInactiveMatch ErrorKind = "INACTIVE_MATCH"
	KindUnauthorized  ErrorKind = "UNAUTHORIZED"
	KindContractAbort ErrorKind = "CONTRACT_ABORT"
	KindNetwork       ErrorKind = "NETWORK_ERROR"
	KindInvalidInput  ErrorKind = "INVALID_INPUT"
	KindInternal      ErrorKind = "INTERNAL"
)

// Message keys understood by the localization package.
const (
	MsgChatExists     = "chat_exists"
	MsgMatchInactive  = "match_inactive"
	MsgNotParticipant = "not_participant"
	MsgContractAbort  = "contract_abort"
	MsgNotFound       = "not_found"
	MsgNetwork        = "network_error"
	MsgInvalidInput   = "invalid_input"
	MsgInternal       = "internal_error"
)

// Error is the structured error surfaced by the resolver, builder,
// reconciler and workflow service.
type Error struct {
	Kind    ErrorKind
	Message string
	// MessageKey selects the user-facing text.
	MessageKey string
	MatchID    string
	// AbortCode is set for errors parsed from a Move abort, otherwise -1.
	AbortCode int
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.MatchID != "" {
		msg += fmt.Sprintf(" (match=%s)", e.MatchID)
	}
	if e.AbortCode >= 0 {
		msg += fmt.Sprintf(" (abort=%d)", e.AbortCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, key, matchID, message string) *Error {
	return &Error{Kind: kind, MessageKey: key, MatchID: matchID, Message: message, AbortCode: -1}
}

func NewNotFoundError(matchID, message string) *Error {
	return newError(KindNotFound, MsgNotFound, matchID, message)
}

func NewInactiveMatchError(matchID string, status fmt.Stringer) *Error {
	return newError(KindInactiveMatch, MsgMatchInactive, matchID,
		fmt.Sprintf("match is %s, chat creation requires an active match", status))
}

func NewUnauthorizedError(matchID, caller string) *Error {
	return newError(KindUnauthorized, MsgNotParticipant, matchID,
		fmt.Sprintf("caller %q is not a match participant", caller))
}

func NewInvalidInputError(matchID, message string) *Error {
	return newError(KindInvalidInput, MsgInvalidInput, matchID, message)
}

var (
	moveAbortPattern = regexp.MustCompile(`MoveAbort\(.*,\s*(\d+)\)`)
	abortCodePattern = regexp.MustCompile(`(?i)abort code:?\s*(\d+)`)
	modulePattern    = regexp.MustCompile(`name:\s*Identifier\("(\w+)"\)`)
)

// TranslateAbort is the one place contract abort text is parsed. It returns
// false when text carries no recognizable abort code.
func TranslateAbort(text string) (*Error, bool) {
	m := moveAbortPattern.FindStringSubmatch(text)
	if m == nil {
		m = abortCodePattern.FindStringSubmatch(text)
	}
	if m == nil {
		return nil, false
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, false
	}

	module := "contract"
	if mm := modulePattern.FindStringSubmatch(text); mm != nil {
		module = mm[1]
	}

	var e *Error
	switch code {
	case config.AbortChatExists:
		e = newError(KindContractAbort, MsgChatExists, "", "a chat already exists for this match")
	case config.AbortMatchInactive:
		e = newError(KindInactiveMatch, MsgMatchInactive, "", "match is not active")
	case config.AbortNotParticipant:
		e = newError(KindUnauthorized, MsgNotParticipant, "", "sender is not a match participant")
	default:
		e = newError(KindContractAbort, MsgContractAbort, "", fmt.Sprintf("%s aborted", module))
	}
	e.AbortCode = code
	e.Err = errors.New(text)
	return e, true
}

// KindOf classifies any error returned by this package or the ledger client.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if ledger.IsTransport(err) {
		return KindNetwork
	}
	if ledger.IsObjectNotFound(err) {
		return KindNotFound
	}
	var rpcErr *ledger.RPCError
	if errors.As(err, &rpcErr) {
		if abort, ok := TranslateAbort(rpcErr.Message); ok {
			return abort.Kind
		}
		return KindContractAbort
	}
	return KindInternal
}

// Describe returns the structured form of err, translating ledger errors
// that did not originate in this package.
func Describe(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var rpcErr *ledger.RPCError
	if errors.As(err, &rpcErr) {
		if abort, ok := TranslateAbort(rpcErr.Message); ok {
			return abort
		}
	}
	switch KindOf(err) {
	case KindNetwork:
		return &Error{Kind: KindNetwork, MessageKey: MsgNetwork, Message: "ledger unreachable", AbortCode: -1, Err: err}
	case KindNotFound:
		return &Error{Kind: KindNotFound, MessageKey: MsgNotFound, Message: "object not found", AbortCode: -1, Err: err}
	case KindContractAbort:
		return &Error{Kind: KindContractAbort, MessageKey: MsgContractAbort, Message: "ledger rejected the request", AbortCode: -1, Err: err}
	default:
		return &Error{Kind: KindInternal, MessageKey: MsgInternal, Message: "internal error", AbortCode: -1, Err: err}
	}
}

func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }
func IsInactiveMatch(err error) bool { return KindOf(err) == KindInactiveMatch }
func IsUnauthorized(err error) bool  { return KindOf(err) == KindUnauthorized }
