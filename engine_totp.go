package novackauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/pquerna/otp/totp"
)

// GenerateTOTPSecret creates a fresh shared secret and provisioning URI for
// the account. The secret is persisted immediately, replacing any prior one,
// but the factor stays disabled until [Engine.EnableTOTP] confirms the
// authenticator can produce valid codes. QR rendering of the URI is the
// caller's concern.
func (e *Engine) GenerateTOTPSecret(ctx context.Context, accountID string) (*TOTPSetup, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.store.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, e.storeFailure(err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.config.TOTP.Issuer,
		AccountName: account.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.store.SetTOTPSecret(ctx, account.ID, key.Secret()); err != nil {
		return nil, e.storeFailure(err)
	}

	e.metricInc(MetricTOTPSetupRequested)
	e.emitAudit(ctx, auditEventTOTPSetup, true, account.ID, nil, nil)
	return &TOTPSetup{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// EnableTOTP verifies a code from the user's authenticator against the
// previously generated secret and, on success, turns the factor on. The
// 30-second step and the library's default one-step clock-skew tolerance
// apply. A failed code leaves state untouched.
func (e *Engine) EnableTOTP(ctx context.Context, accountID, code string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	account, err := e.store.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return e.storeFailure(err)
	}
	secret := account.Credentials.TOTPSecret
	if secret == "" {
		return ErrTOTPNotConfigured
	}

	if !totp.Validate(code, secret) {
		e.metricInc(MetricTOTPFailure)
		e.emitAudit(ctx, auditEventTOTPFailure, false, account.ID, ErrTOTPInvalid, nil)
		return ErrTOTPInvalid
	}

	if err := e.store.SetTOTPEnabled(ctx, account.ID, true, secret); err != nil {
		return e.storeFailure(err)
	}

	e.metricInc(MetricTOTPEnabled)
	e.emitAudit(ctx, auditEventTOTPEnabled, true, account.ID, nil, nil)
	return nil
}

// DisableTOTP verifies a code against the current secret and, on success,
// turns the factor off and clears the secret. A failed code leaves state
// unchanged.
func (e *Engine) DisableTOTP(ctx context.Context, accountID, code string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	account, err := e.store.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return e.storeFailure(err)
	}
	creds := account.Credentials
	if !creds.TOTPEnabled {
		return ErrTOTPNotEnabled
	}
	if creds.TOTPSecret == "" {
		return ErrTOTPIncomplete
	}

	if !totp.Validate(code, creds.TOTPSecret) {
		e.metricInc(MetricTOTPFailure)
		e.emitAudit(ctx, auditEventTOTPFailure, false, account.ID, ErrTOTPInvalid, nil)
		return ErrTOTPInvalid
	}

	if err := e.store.SetTOTPEnabled(ctx, account.ID, false, ""); err != nil {
		return e.storeFailure(err)
	}

	e.metricInc(MetricTOTPDisabled)
	e.emitAudit(ctx, auditEventTOTPDisabled, true, account.ID, nil, nil)
	return nil
}

// ValidateTOTPForLogin checks a login-time TOTP code. When the factor is
// disabled it reports true unconditionally; the factor is a no-op for
// accounts that never enrolled. An enabled factor with no stored secret is an
// invariant violation and returns [ErrTOTPIncomplete].
func (e *Engine) ValidateTOTPForLogin(ctx context.Context, accountID, code string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrEngineNotReady
	}

	account, err := e.store.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return false, ErrAccountNotFound
		}
		return false, e.storeFailure(err)
	}
	creds := account.Credentials

	if !creds.TOTPEnabled {
		return true, nil
	}
	if creds.TOTPSecret == "" {
		return false, ErrTOTPIncomplete
	}

	valid := totp.Validate(code, creds.TOTPSecret)
	if valid {
		e.metricInc(MetricTOTPSuccess)
		e.emitAudit(ctx, auditEventTOTPSuccess, true, account.ID, nil, nil)
	} else {
		e.metricInc(MetricTOTPFailure)
		e.emitAudit(ctx, auditEventTOTPFailure, false, account.ID, ErrTOTPInvalid, nil)
	}
	return valid, nil
}
