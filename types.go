package novackauth

import (
	"context"
	"time"
)

// OTPPurpose tags a pending SMS code with the flow that issued it. The
// credentials record holds a single code slot, so at most one purpose can be
// pending per account; issuing a code for one purpose overwrites the other.
type OTPPurpose uint8

const (
	// OTPPurposeNone means no SMS code is pending.
	OTPPurposeNone OTPPurpose = iota
	// OTPPurposeLogin is the second factor challenge issued during login.
	OTPPurposeLogin
	// OTPPurposePhoneVerification proves phone ownership during 2FA enrollment.
	OTPPurposePhoneVerification
)

// String returns the audit-stable name of the purpose.
func (p OTPPurpose) String() string {
	switch p {
	case OTPPurposeLogin:
		return "login"
	case OTPPurposePhoneVerification:
		return "phone_verification"
	default:
		return "none"
	}
}

// BackupCode is one entry of the account's recovery-code list. Codes are
// consumable exactly once; Used entries are kept for audit history.
type BackupCode struct {
	Code      string
	CreatedAt time.Time
	Used      bool
	UsedAt    *time.Time
}

// Credentials is the 1:1 security record of an Account. It is created
// alongside the account at registration and mutated exclusively through
// Engine operations.
//
// Invariants: SMSTwoFactorEnabled implies PhoneVerified; TOTPEnabled implies
// a non-empty TOTPSecret; at most one unexpired SMS code exists at a time.
type Credentials struct {
	PasswordHash        string
	LoginAttempts       int
	LockedUntil         *time.Time
	EmailVerified       bool
	PhoneVerified       bool
	SMSTwoFactorEnabled bool
	SMSOTPCode          string
	SMSOTPPurpose       OTPPurpose
	SMSOTPExpiresAt     *time.Time
	TOTPEnabled         bool
	TOTPSecret          string
	BackupCodes         []BackupCode
	LastLogin           *time.Time
}

// Account is the identity record the engine authenticates. Phone is empty
// when no number is on file. Email lookups are case-insensitive; stores must
// normalize before matching.
type Account struct {
	ID          string
	Email       string
	DisplayName string
	Phone       string
	OrgUnitID   string
	Credentials Credentials
}

// Profile is the safe projection of an Account returned to callers after a
// successful login. It never carries credential material.
type Profile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Phone       string     `json:"phone,omitempty"`
	OrgUnitID   string     `json:"org_unit_id,omitempty"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// Profile builds the caller-safe projection of the account.
func (a *Account) Profile() Profile {
	return Profile{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Phone:       a.Phone,
		OrgUnitID:   a.OrgUnitID,
		LastLogin:   a.Credentials.LastLogin,
	}
}

// RequestContext carries per-request transport metadata handed through to the
// token issuer. The engine never interprets it.
type RequestContext struct {
	IP        string
	UserAgent string
}

// TokenSet is the session credential pair produced by a [TokenIssuer].
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// LoginResult is returned by [Engine.Login] and [Engine.VerifySMSOTPAndLogin].
// Either Tokens is set, or SMSOTPRequired is true and the caller must complete
// the SMS challenge for AccountID before tokens are issued.
type LoginResult struct {
	Tokens         *TokenSet
	Profile        *Profile
	SMSOTPRequired bool
	AccountID      string
}

// TOTPSetup holds the base32 secret and otpauth:// provisioning URI returned
// by [Engine.GenerateTOTPSecret]. QR rendering is the caller's concern.
type TOTPSetup struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// CredentialStore is the persistence collaborator. Implementations must
// return [ErrAccountNotFound] when no record matches, and every mutation
// method must update only the named fields (no full-entity round-trips).
//
// The store is the right layer to close the login_attempts lost-update race
// noted on [Engine.Login]: an implementation backed by a database can make
// UpdateLoginAttempts a conditional write without changing this contract.
type CredentialStore interface {
	// GetAccountByIdentifier resolves an account by email, matched
	// case-insensitively.
	GetAccountByIdentifier(ctx context.Context, identifier string) (*Account, error)
	GetAccountByID(ctx context.Context, accountID string) (*Account, error)

	// UpdateLoginAttempts persists the failed-attempt counter and the lockout
	// deadline in one write. A nil lockedUntil clears the deadline.
	UpdateLoginAttempts(ctx context.Context, accountID string, attempts int, lockedUntil *time.Time) error
	// RecordLogin sets last_login.
	RecordLogin(ctx context.Context, accountID string, at time.Time) error

	// SetSMSOTP stores a pending challenge code, overwriting any previous one
	// regardless of purpose.
	SetSMSOTP(ctx context.Context, accountID, code string, purpose OTPPurpose, expiresAt time.Time) error
	// ClearSMSOTP removes the pending code, its purpose tag, and its expiry.
	ClearSMSOTP(ctx context.Context, accountID string) error

	SetPhoneVerified(ctx context.Context, accountID string, verified bool) error
	SetSMSTwoFactor(ctx context.Context, accountID string, enabled bool) error

	// SetTOTPSecret stores a generated secret without enabling the factor.
	SetTOTPSecret(ctx context.Context, accountID, secret string) error
	// SetTOTPEnabled flips the TOTP flag; disabling passes an empty secret to
	// clear the stored one.
	SetTOTPEnabled(ctx context.Context, accountID string, enabled bool, secret string) error

	// ReplaceBackupCodes persists the full recovery-code list.
	ReplaceBackupCodes(ctx context.Context, accountID string, codes []BackupCode) error
}

// SMSGateway delivers a challenge message to a phone number in E.164 form.
// Transport errors are mapped to [ErrSMSGatewayUnavailable] by the engine.
type SMSGateway interface {
	SendOTP(ctx context.Context, phoneE164, message string) error
}

// EmailGateway delivers verification links. The engine itself never invokes
// it; the sibling email-verification flow that sets the email_verified flag
// implements against this interface.
type EmailGateway interface {
	SendVerificationLink(ctx context.Context, email, link string) error
}

// TokenIssuer produces, refreshes, and revokes session credentials for a
// verified account. The wire format of issued tokens is opaque to the engine.
// See the jwt subpackage for the provided implementation.
type TokenIssuer interface {
	Issue(ctx context.Context, account *Account, rc RequestContext) (*TokenSet, error)
	Refresh(ctx context.Context, refreshToken string, rc RequestContext) (*TokenSet, error)
	Revoke(ctx context.Context, refreshToken string) (bool, error)
}
