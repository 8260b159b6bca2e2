package lottery

import "fmt"

// Code identifies a class of rejected transition
type Code string

const (
	CodeLotteryInactive       Code = "LOTTERY_INACTIVE"
	CodeInsufficientValue     Code = "INSUFFICIENT_VALUE"
	CodeDrawTooEarly          Code = "DRAW_TOO_EARLY"
	CodeNotEnoughParticipants Code = "NOT_ENOUGH_PARTICIPANTS"
	CodeNoWinners             Code = "NO_WINNERS"
	CodePayoutNotAllowed      Code = "PAYOUT_NOT_ALLOWED"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeInvalidConfig         Code = "INVALID_CONFIG"
)

// Error is returned by every rejected operation. A rejected operation never
// mutates state.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Code so that detailed errors still compare equal to the
// sentinel values with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrLotteryInactive       = &Error{Code: CodeLotteryInactive, Message: "lottery is not active"}
	ErrInsufficientValue     = &Error{Code: CodeInsufficientValue, Message: "contribution is below the minimum ticket value"}
	ErrDrawTooEarly          = &Error{Code: CodeDrawTooEarly, Message: "draw interval has not elapsed"}
	ErrNotEnoughParticipants = &Error{Code: CodeNotEnoughParticipants, Message: "not enough participants for a draw"}
	ErrNoWinners             = &Error{Code: CodeNoWinners, Message: "no winners to pay out"}
	ErrPayoutNotAllowed      = &Error{Code: CodePayoutNotAllowed, Message: "payout only allowed when the ball count is odd"}
	ErrUnauthorized          = &Error{Code: CodeUnauthorized, Message: "caller is not the lottery admin"}
	ErrInvalidConfig         = &Error{Code: CodeInvalidConfig, Message: "invalid configuration"}
)

func invalidConfigf(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidConfig, Message: fmt.Sprintf(format, args...)}
}

func drawTooEarlyf(format string, args ...interface{}) *Error {
	return &Error{Code: CodeDrawTooEarly, Message: fmt.Sprintf(format, args...)}
}
