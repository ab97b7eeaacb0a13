package entity

import "strings"

// Channel is the transport a code is delivered over, derived from the shape
// of the identifier at issuance time.
type Channel int16

const (
	ChannelUnknown Channel = 0
	ChannelEmail   Channel = 1
	ChannelSMS     Channel = 2
)

func (c Channel) String() string {
	switch c {
	case ChannelEmail:
		return "EMAIL"
	case ChannelSMS:
		return "SMS"
	default:
		return "Unknown"
	}
}

// ChannelOf derives the delivery channel from an identifier. Anything with an
// '@' is treated as an email address, everything else as a phone number.
func ChannelOf(identifier string) Channel {
	if identifier == "" {
		return ChannelUnknown
	}
	if strings.Contains(identifier, "@") {
		return ChannelEmail
	}
	return ChannelSMS
}

// Purpose records why a code was issued.
type Purpose int16

const (
	PurposeUnknown  Purpose = 0
	PurposeLogin    Purpose = 1
	PurposeReset    Purpose = 2
	PurposeRegister Purpose = 3
)

func (p Purpose) String() string {
	switch p {
	case PurposeLogin:
		return "Login"
	case PurposeReset:
		return "Reset"
	case PurposeRegister:
		return "Register"
	default:
		return "Unknown"
	}
}

func PurposeFromString(str string) Purpose {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "login":
		return PurposeLogin
	case "reset":
		return PurposeReset
	case "register":
		return PurposeRegister
	default:
		return PurposeUnknown
	}
}

// Reason classifies why a verification attempt did not succeed.
type Reason int16

const (
	ReasonNone Reason = 0

	// ReasonNoActiveCode means no record exists for the identifier.
	ReasonNoActiveCode Reason = 1

	// ReasonInvalidCode means the submitted code matches no live record.
	ReasonInvalidCode Reason = 2

	// ReasonCodeExpired means the matched record is past its TTL.
	ReasonCodeExpired Reason = 3

	// ReasonBlocked means the attempt ceiling was reached for the record.
	ReasonBlocked Reason = 4

	// ReasonRateLimited means the backoff window is still open.
	ReasonRateLimited Reason = 5
)

func (r Reason) String() string {
	switch r {
	case ReasonNoActiveCode:
		return "NoActiveCode"
	case ReasonInvalidCode:
		return "InvalidCode"
	case ReasonCodeExpired:
		return "CodeExpired"
	case ReasonBlocked:
		return "Blocked"
	case ReasonRateLimited:
		return "RateLimited"
	default:
		return ""
	}
}
