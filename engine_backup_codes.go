package novackauth

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/Novack-secure/novack-auth/internal"
)

// GenerateBackupCode mints one single-use recovery code and appends it to the
// account's vault. The TOTP factor must be enabled first; recovery codes
// exist to substitute for it. The full list is persisted on every call.
//
// The list grows without bound unless Config.BackupCodes.MaxStored caps it,
// in which case the oldest consumed entries are evicted first.
func (e *Engine) GenerateBackupCode(ctx context.Context, accountID string) (string, error) {
	if e == nil || e.store == nil {
		return "", ErrEngineNotReady
	}

	account, err := e.store.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", ErrAccountNotFound
		}
		return "", e.storeFailure(err)
	}
	if !account.Credentials.TOTPEnabled {
		return "", ErrTOTPNotEnabled
	}

	code, err := internal.NewBackupCode(e.config.BackupCodes.Length)
	if err != nil {
		return "", e.storeFailure(err)
	}

	codes := append(append([]BackupCode(nil), account.Credentials.BackupCodes...), BackupCode{
		Code:      code,
		CreatedAt: e.now(),
	})
	codes = e.pruneBackupCodes(codes)

	if err := e.store.ReplaceBackupCodes(ctx, account.ID, codes); err != nil {
		return "", e.storeFailure(err)
	}

	e.metricInc(MetricBackupCodeGenerated)
	e.emitAudit(ctx, auditEventBackupCodeCreated, true, account.ID, nil, nil)
	return code, nil
}

// pruneBackupCodes enforces the optional MaxStored cap by dropping the oldest
// used entries first; unused codes are never evicted.
func (e *Engine) pruneBackupCodes(codes []BackupCode) []BackupCode {
	max := e.config.BackupCodes.MaxStored
	if max <= 0 || len(codes) <= max {
		return codes
	}
	pruned := codes[:0]
	excess := len(codes) - max
	for _, c := range codes {
		if excess > 0 && c.Used {
			excess--
			continue
		}
		pruned = append(pruned, c)
	}
	return pruned
}

// VerifyBackupCode consumes a recovery code. A code matches at most once:
// the matching entry is marked used with a timestamp and the whole list is
// persisted before reporting true. A miss mutates nothing and reports false.
// An account with no codes at all is a misconfigured vault, not a miss.
func (e *Engine) VerifyBackupCode(ctx context.Context, accountID, code string) (bool, error) {
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
	stored := account.Credentials.BackupCodes
	if len(stored) == 0 {
		return false, ErrBackupCodesNotConfigured
	}

	match := -1
	for i := range stored {
		if stored[i].Used {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(stored[i].Code), []byte(code)) == 1 {
			match = i
			break
		}
	}
	if match < 0 {
		e.metricInc(MetricBackupCodeFailed)
		e.emitAudit(ctx, auditEventBackupCodeFailed, false, account.ID, nil, nil)
		return false, nil
	}

	codes := append([]BackupCode(nil), stored...)
	usedAt := e.now()
	codes[match].Used = true
	codes[match].UsedAt = &usedAt

	if err := e.store.ReplaceBackupCodes(ctx, account.ID, codes); err != nil {
		return false, e.storeFailure(err)
	}

	e.metricInc(MetricBackupCodeUsed)
	e.emitAudit(ctx, auditEventBackupCodeUsed, true, account.ID, nil, nil)
	return true, nil
}
