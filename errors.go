package novackauth

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by Engine operations. The message text of the
// credential-facing errors is part of the caller contract: "invalid
// credentials" is returned for both unknown identifiers and wrong passwords
// so responses never reveal whether an account exists.
var (
	// ErrInvalidCredentials covers unknown identifier and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a lockout deadline is in the future.
	// Errors wrapping it carry the remaining minutes; see [LockoutError].
	ErrAccountLocked = errors.New("account locked")
	// ErrTooManyAttempts is returned by the attempt that triggers the lockout.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrEmailNotVerified rejects logins before the email flow has completed.
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrNoOTPPending means no SMS code is stored for the requested purpose.
	ErrNoOTPPending = errors.New("no OTP pending")
	// ErrOTPExpired means the stored code outlived its deadline; the code is
	// cleared as a side effect, so a retry reports ErrNoOTPPending.
	ErrOTPExpired = errors.New("OTP expired")
	// ErrOTPInvalid means the submitted code did not match. The stored code
	// stays usable until it matches or expires.
	ErrOTPInvalid = errors.New("invalid OTP")

	// ErrTOTPInvalid means the time-based code failed validation.
	ErrTOTPInvalid = errors.New("invalid token")
	// ErrTOTPNotConfigured means no secret was generated before enabling.
	ErrTOTPNotConfigured = errors.New("totp not configured")
	// ErrTOTPNotEnabled guards operations that require the TOTP factor.
	ErrTOTPNotEnabled = errors.New("two-factor authentication not enabled")
	// ErrTOTPIncomplete signals the enabled-but-no-secret invariant break.
	ErrTOTPIncomplete = errors.New("incomplete 2FA configuration")

	// ErrBackupCodesNotConfigured means the account has no recovery codes.
	ErrBackupCodesNotConfigured = errors.New("backup codes not configured")

	// ErrPhoneNumberMissing signals broken state: SMS 2FA is on and the phone
	// is verified, yet no number is on file.
	ErrPhoneNumberMissing = errors.New("phone number missing")
	// ErrPhoneNotVerified guards SMS 2FA enrollment.
	ErrPhoneNotVerified = errors.New("phone number not verified")

	// ErrAccountNotFound is returned where the caller already asserted the
	// account's identity, and by [CredentialStore] implementations.
	ErrAccountNotFound = errors.New("account not found")

	// ErrRefreshInvalid covers unknown, expired, and revoked refresh tokens.
	ErrRefreshInvalid = errors.New("invalid refresh token")

	// ErrSMSGatewayUnavailable wraps transport failures from the SMS gateway.
	ErrSMSGatewayUnavailable = errors.New("sms gateway unavailable")
	// ErrStoreUnavailable wraps credential-store failures other than not-found.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrEngineNotReady is returned when a required collaborator is absent.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrorKind buckets engine errors for transport adapters.
type ErrorKind uint8

const (
	// KindUnknown is returned for errors the engine did not produce.
	KindUnknown ErrorKind = iota
	// KindUnauthorized covers credential, lockout, and challenge failures.
	KindUnauthorized
	// KindBadRequest covers malformed enrollment state.
	KindBadRequest
	// KindNotFound covers absent accounts where identity was assumed valid.
	KindNotFound
	// KindInternal covers invariant violations and collaborator outages.
	KindInternal
)

// Kind classifies err into the engine's error taxonomy. Wrapped errors are
// unwrapped with errors.Is, so a [LockoutError] classifies as unauthorized.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountLocked),
		errors.Is(err, ErrTooManyAttempts),
		errors.Is(err, ErrEmailNotVerified),
		errors.Is(err, ErrNoOTPPending),
		errors.Is(err, ErrOTPExpired),
		errors.Is(err, ErrOTPInvalid),
		errors.Is(err, ErrRefreshInvalid):
		return KindUnauthorized
	case errors.Is(err, ErrTOTPInvalid),
		errors.Is(err, ErrTOTPNotConfigured),
		errors.Is(err, ErrTOTPNotEnabled),
		errors.Is(err, ErrTOTPIncomplete),
		errors.Is(err, ErrBackupCodesNotConfigured),
		errors.Is(err, ErrPhoneNotVerified):
		return KindBadRequest
	case errors.Is(err, ErrAccountNotFound):
		return KindNotFound
	case errors.Is(err, ErrPhoneNumberMissing),
		errors.Is(err, ErrSMSGatewayUnavailable),
		errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrEngineNotReady):
		return KindInternal
	default:
		return KindUnknown
	}
}

// LockoutError reports an active lockout together with the minutes left on
// the deadline. Remaining minutes are deliberately caller-visible while the
// existence of the identifier is not; the asymmetry is part of the contract.
type LockoutError struct {
	Until     time.Time
	Remaining time.Duration
}

// Error implements the error interface.
func (e *LockoutError) Error() string {
	return fmt.Sprintf("%s: try again in %d minute(s)", ErrAccountLocked, e.RemainingMinutes())
}

// Unwrap lets errors.Is(err, ErrAccountLocked) match.
func (e *LockoutError) Unwrap() error {
	return ErrAccountLocked
}

// RemainingMinutes rounds the remaining lockout window up to whole minutes,
// never reporting zero while the lock is still active.
func (e *LockoutError) RemainingMinutes() int {
	m := int((e.Remaining + time.Minute - 1) / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}
