package novackauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/Novack-secure/novack-auth/internal"
)

// SMS message templates. Template language is a presentation rule keyed on
// the phone's country calling code, not a security property.
const (
	smsTemplateEnglish = "Your %s verification code is %s. It expires in %d minutes."
	smsTemplateSpanish = "Tu código de verificación de %s es %s. Expira en %d minutos."
)

// issueSMSOTP generates a challenge code, persists it with its purpose and
// expiry, and dispatches it to the account's phone. Any previously pending
// code of either purpose is overwritten: the credentials record holds a
// single code slot.
func (e *Engine) issueSMSOTP(ctx context.Context, account *Account, purpose OTPPurpose) error {
	if e.sms == nil {
		return ErrEngineNotReady
	}

	code, err := internal.NewOTP(e.config.SMSOTP.Digits)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSMSGatewayUnavailable, err)
	}

	expiresAt := e.now().Add(e.config.SMSOTP.TTL)
	if err := e.store.SetSMSOTP(ctx, account.ID, code, purpose, expiresAt); err != nil {
		return e.storeFailure(err)
	}

	message := e.smsMessage(account.Phone, code)
	if err := e.sms.SendOTP(ctx, account.Phone, message); err != nil {
		return fmt.Errorf("%w: %v", ErrSMSGatewayUnavailable, err)
	}

	e.metricInc(MetricSMSOTPIssued)
	return nil
}

// smsMessage renders the challenge text, choosing English for numbers whose
// calling code is on the configured allow-list and Spanish for everything
// else.
func (e *Engine) smsMessage(phoneE164, code string) string {
	minutes := int(e.config.SMSOTP.TTL.Minutes())
	if phoneHasCallingCode(phoneE164, e.config.SMSOTP.EnglishCallingCodes) {
		return fmt.Sprintf(smsTemplateEnglish, e.config.TOTP.Issuer, code, minutes)
	}
	return fmt.Sprintf(smsTemplateSpanish, e.config.TOTP.Issuer, code, minutes)
}

func phoneHasCallingCode(phoneE164 string, codes []string) bool {
	digits := strings.TrimPrefix(phoneE164, "+")
	for _, cc := range codes {
		if strings.HasPrefix(digits, cc) {
			return true
		}
	}
	return false
}

// verifySMSOTP checks a submitted code against the pending challenge for the
// given purpose. Failure ladder, in order:
//
//   - no code stored (or a code pending for a different purpose) →
//     [ErrNoOTPPending], clearing any stale expiry left behind;
//   - deadline passed → [ErrOTPExpired], clearing code and expiry so a retry
//     reports ErrNoOTPPending;
//   - mismatch → [ErrOTPInvalid] with the stored code left intact.
//
// On a match both fields are cleared and, for the phone-verification purpose,
// the phone is marked verified. There is deliberately no attempt counter on
// code submission.
func (e *Engine) verifySMSOTP(ctx context.Context, account *Account, purpose OTPPurpose, code string) error {
	creds := account.Credentials

	if creds.SMSOTPCode == "" || creds.SMSOTPPurpose != purpose {
		if creds.SMSOTPCode == "" && creds.SMSOTPExpiresAt != nil {
			if err := e.store.ClearSMSOTP(ctx, account.ID); err != nil {
				return e.storeFailure(err)
			}
		}
		e.metricInc(MetricSMSOTPFailure)
		e.emitAudit(ctx, auditEventSMSOTPFailure, false, account.ID, ErrNoOTPPending, nil)
		return ErrNoOTPPending
	}

	if creds.SMSOTPExpiresAt == nil || e.now().After(*creds.SMSOTPExpiresAt) {
		if err := e.store.ClearSMSOTP(ctx, account.ID); err != nil {
			return e.storeFailure(err)
		}
		e.metricInc(MetricSMSOTPFailure)
		e.emitAudit(ctx, auditEventSMSOTPFailure, false, account.ID, ErrOTPExpired, nil)
		return ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(creds.SMSOTPCode), []byte(code)) != 1 {
		e.metricInc(MetricSMSOTPFailure)
		e.emitAudit(ctx, auditEventSMSOTPFailure, false, account.ID, ErrOTPInvalid, nil)
		return ErrOTPInvalid
	}

	if err := e.store.ClearSMSOTP(ctx, account.ID); err != nil {
		return e.storeFailure(err)
	}
	if purpose == OTPPurposePhoneVerification {
		if err := e.store.SetPhoneVerified(ctx, account.ID, true); err != nil {
			return e.storeFailure(err)
		}
		e.metricInc(MetricPhoneVerified)
		e.emitAudit(ctx, auditEventPhoneVerified, true, account.ID, nil, nil)
	}

	e.metricInc(MetricSMSOTPSuccess)
	e.emitAudit(ctx, auditEventSMSOTPVerified, true, account.ID, nil, map[string]string{
		"purpose": purpose.String(),
	})
	return nil
}

// RequestPhoneVerification issues a phone-ownership challenge to the
// account's number as the first half of SMS two-factor enrollment. A pending
// login challenge, if any, is overwritten.
func (e *Engine) RequestPhoneVerification(ctx context.Context, accountID string) error {
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
	if account.Phone == "" {
		return ErrPhoneNumberMissing
	}

	if err := e.issueSMSOTP(ctx, account, OTPPurposePhoneVerification); err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventSMSOTPIssued, true, account.ID, nil, map[string]string{
		"purpose": OTPPurposePhoneVerification.String(),
	})
	return nil
}

// ConfirmPhoneVerification validates a phone-ownership challenge and marks
// the number verified on success.
func (e *Engine) ConfirmPhoneVerification(ctx context.Context, accountID, code string) error {
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

	return e.verifySMSOTP(ctx, account, OTPPurposePhoneVerification, code)
}

// EnableSMSTwoFactor turns on the SMS second factor. The phone must already
// be verified, which keeps the enabled-implies-verified invariant intact.
func (e *Engine) EnableSMSTwoFactor(ctx context.Context, accountID string) error {
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
	if account.Phone == "" || !account.Credentials.PhoneVerified {
		return ErrPhoneNotVerified
	}

	if err := e.store.SetSMSTwoFactor(ctx, account.ID, true); err != nil {
		return e.storeFailure(err)
	}
	e.emitAudit(ctx, auditEventSMS2FAEnabled, true, account.ID, nil, nil)
	return nil
}

// DisableSMSTwoFactor turns off the SMS second factor.
func (e *Engine) DisableSMSTwoFactor(ctx context.Context, accountID string) error {
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

	if err := e.store.SetSMSTwoFactor(ctx, account.ID, false); err != nil {
		return e.storeFailure(err)
	}
	e.emitAudit(ctx, auditEventSMS2FADisabled, true, account.ID, nil, nil)
	return nil
}
