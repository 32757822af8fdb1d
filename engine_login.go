package novackauth

import (
	"context"
	"errors"
	"fmt"
)

// Login authenticates an identifier/password pair and either issues tokens or
// returns an SMS challenge receipt, following the account's factor
// configuration.
//
// The returned error never distinguishes an unknown identifier from a wrong
// password. Lockout state is enforced before the password is checked, and the
// failed-attempt counter is persisted through a read-modify-write: two
// concurrent failures against the same account can under-count by one. A
// [CredentialStore] backed by conditional updates closes that race without
// any change here.
func (e *Engine) Login(ctx context.Context, identifier, password string, rc RequestContext) (*LoginResult, error) {
	if e == nil || e.store == nil || e.issuer == nil || e.password == nil {
		return nil, ErrEngineNotReady
	}
	ctx = WithRequestContext(ctx, rc)

	account, err := e.store.GetAccountByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, e.storeFailure(err)
	}
	creds := account.Credentials

	if creds.LockedUntil != nil {
		now := e.now()
		if creds.LockedUntil.After(now) {
			lockErr := &LockoutError{
				Until:     *creds.LockedUntil,
				Remaining: creds.LockedUntil.Sub(now),
			}
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, lockErr, nil)
			return nil, lockErr
		}
	}

	ok, err := e.password.Verify(password, creds.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return nil, e.recordFailedAttempt(ctx, account)
	}

	if creds.LoginAttempts > 0 {
		if err := e.store.UpdateLoginAttempts(ctx, account.ID, 0, nil); err != nil {
			return nil, e.storeFailure(err)
		}
	}
	if err := e.store.RecordLogin(ctx, account.ID, e.now()); err != nil {
		return nil, e.storeFailure(err)
	}

	if !creds.EmailVerified {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, ErrEmailNotVerified, nil)
		return nil, ErrEmailNotVerified
	}

	if creds.SMSTwoFactorEnabled && creds.PhoneVerified {
		// Both flags set with no number on file means the enrollment
		// invariant broke upstream; surface it loudly instead of skipping
		// the factor.
		if account.Phone == "" {
			e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, ErrPhoneNumberMissing, nil)
			return nil, ErrPhoneNumberMissing
		}
		if err := e.issueSMSOTP(ctx, account, OTPPurposeLogin); err != nil {
			return nil, err
		}
		e.emitAudit(ctx, auditEventSMSOTPIssued, true, account.ID, nil, map[string]string{
			"purpose": OTPPurposeLogin.String(),
		})
		return &LoginResult{SMSOTPRequired: true, AccountID: account.ID}, nil
	}

	tokens, err := e.issuer.Issue(ctx, account, rc)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, nil, nil)
	profile := account.Profile()
	return &LoginResult{Tokens: tokens, Profile: &profile}, nil
}

// recordFailedAttempt bumps the counter, arming the lockout when the
// configured maximum is reached.
func (e *Engine) recordFailedAttempt(ctx context.Context, account *Account) error {
	attempts := account.Credentials.LoginAttempts + 1

	if attempts >= e.config.Login.MaxAttempts {
		lockedUntil := e.now().Add(e.config.Login.LockDuration)
		if err := e.store.UpdateLoginAttempts(ctx, account.ID, attempts, &lockedUntil); err != nil {
			return e.storeFailure(err)
		}
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricAccountLocked)
		e.emitAudit(ctx, auditEventAccountLocked, false, account.ID, ErrTooManyAttempts, map[string]string{
			"attempts": fmt.Sprintf("%d", attempts),
		})
		return ErrTooManyAttempts
	}

	if err := e.store.UpdateLoginAttempts(ctx, account.ID, attempts, account.Credentials.LockedUntil); err != nil {
		return e.storeFailure(err)
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, ErrInvalidCredentials, nil)
	return ErrInvalidCredentials
}

// VerifySMSOTPAndLogin completes a login that was answered with an SMS
// challenge receipt. On success the pending code is cleared, last_login is
// updated, and tokens are issued. Challenge failures surface unchanged; see
// the OTP error ladder on [Engine.ConfirmPhoneVerification]'s counterpart in
// engine_sms_otp.go.
func (e *Engine) VerifySMSOTPAndLogin(ctx context.Context, accountID, code string, rc RequestContext) (*LoginResult, error) {
	if e == nil || e.store == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}
	ctx = WithRequestContext(ctx, rc)

	account, err := e.store.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, e.storeFailure(err)
	}

	if err := e.verifySMSOTP(ctx, account, OTPPurposeLogin, code); err != nil {
		return nil, err
	}

	if err := e.store.RecordLogin(ctx, account.ID, e.now()); err != nil {
		return nil, e.storeFailure(err)
	}

	tokens, err := e.issuer.Issue(ctx, account, rc)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, nil, map[string]string{
		"factor": "sms_otp",
	})
	profile := account.Profile()
	return &LoginResult{Tokens: tokens, Profile: &profile}, nil
}

// RefreshToken exchanges a refresh token for a new token set. Pure
// pass-through to the token issuer; the engine owns no refresh state.
func (e *Engine) RefreshToken(ctx context.Context, refreshToken string, rc RequestContext) (*TokenSet, error) {
	if e == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}
	ctx = WithRequestContext(ctx, rc)

	tokens, err := e.issuer.Refresh(ctx, refreshToken, rc)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, "", nil, nil)
	return tokens, nil
}

// Logout revokes a refresh token. It reports whether the token was live.
func (e *Engine) Logout(ctx context.Context, refreshToken string) (bool, error) {
	if e == nil || e.issuer == nil {
		return false, ErrEngineNotReady
	}

	revoked, err := e.issuer.Revoke(ctx, refreshToken)
	if err != nil {
		return false, err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, revoked, "", nil, nil)
	return revoked, nil
}

// storeFailure wraps non-not-found persistence errors into the internal
// taxonomy while preserving the cause for errors.Is inspection.
func (e *Engine) storeFailure(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
