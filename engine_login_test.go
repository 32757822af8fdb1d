package novackauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginSuccessIssuesTokens(t *testing.T) {
	env := newTestEngine(t)
	env.seedAccount(t, "u1", "user@example.com", "", "pass-phrase-1")

	result, err := env.engine.Login(context.Background(), "user@example.com", "pass-phrase-1", RequestContext{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.Tokens == nil || result.Tokens.AccessToken == "" {
		t.Fatal("expected a token set")
	}
	if result.SMSOTPRequired {
		t.Fatal("no second factor configured, challenge not expected")
	}

	stored := env.store.get("u1")
	if stored.Credentials.LastLogin == nil || !stored.Credentials.LastLogin.Equal(env.clock.Now()) {
		t.Fatalf("last login not recorded: %v", stored.Credentials.LastLogin)
	}
}

func TestLoginUniformFailureMessage(t *testing.T) {
	env := newTestEngine(t)
	env.seedAccount(t, "u1", "user@example.com", "", "pass-phrase-1")

	_, unknownErr := env.engine.Login(context.Background(), "nobody@example.com", "whatever", RequestContext{})
	_, wrongErr := env.engine.Login(context.Background(), "user@example.com", "wrong", RequestContext{})

	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("error text differs between unknown account and wrong password: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLoginWrongPasswordIncrementsAttempts(t *testing.T) {
	env := newTestEngine(t)
	env.seedAccount(t, "u1", "user@example.com", "", "pass-phrase-1")

	for i := 1; i <= 3; i++ {
		_, err := env.engine.Login(context.Background(), "user@example.com", "wrong", RequestContext{})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v", i, err)
		}
		if got := env.store.get("u1").Credentials.LoginAttempts; got != i {
			t.Fatalf("attempt %d: counter = %d", i, got)
		}
	}
}

func TestLoginLockoutAfterMaxAttempts(t *testing.T) {
	env := newTestEngine(t)
	env.seedAccount(t, "u1", "user@example.com", "", "pass-phrase-1")

	ctx := context.Background()
	max := env.engine.config.Login.MaxAttempts

	for i := 1; i < max; i++ {
		if _, err := env.engine.Login(ctx, "user@example.com", "wrong", RequestContext{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v", i, err)
		}
	}

	_, err := env.engine.Login(ctx, "user@example.com", "wrong", RequestContext{})
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("attempt %d: expected ErrTooManyAttempts, got %v", max, err)
	}

	stored := env.store.get("u1")
	if stored.Credentials.LockedUntil == nil {
		t.Fatal("lockout deadline not armed")
	}
	wantUntil := env.clock.Now().Add(env.engine.config.Login.LockDuration)
	if !stored.Credentials.LockedUntil.Equal(wantUntil) {
		t.Fatalf("lockout until %v, want %v", stored.Credentials.LockedUntil, wantUntil)
	}

	// Correct password during the lockout window is still rejected, and the
	// error reports the remaining time.
	_, err = env.engine.Login(ctx, "user@example.com", "pass-phrase-1", RequestContext{})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked during window, got %v", err)
	}
	var lockErr *LockoutError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected *LockoutError, got %T", err)
	}
	if lockErr.RemainingMinutes() != 15 {
		t.Fatalf("remaining minutes = %d, want 15", lockErr.RemainingMinutes())
	}

	// Past the deadline the correct password succeeds and resets the counter.
	env.clock.Advance(env.engine.config.Login.LockDuration + time.Second)
	result, err := env.engine.Login(ctx, "user@example.com", "pass-phrase-1", RequestContext{})
	if err != nil {
		t.Fatalf("post-lockout login failed: %v", err)
	}
	if result.Tokens == nil {
		t.Fatal("expected tokens after lockout expiry")
	}

	stored = env.store.get("u1")
	if stored.Credentials.LoginAttempts != 0 || stored.Credentials.LockedUntil != nil {
		t.Fatalf("counter not reset: attempts=%d locked=%v", stored.Credentials.LoginAttempts, stored.Credentials.LockedUntil)
	}
}

func TestLoginSuccessBelowThresholdResetsCounter(t *testing.T) {
	env := newTestEngine(t)
	env.seedAccount(t, "u1", "user@example.com", "", "pass-phrase-1")

	ctx := context.Background()
	for i := 1; i <= env.engine.config.Login.MaxAttempts-1; i++ {
		env.engine.Login(ctx, "user@example.com", "wrong", RequestContext{})
	}
	if got := env.store.get("u1").Credentials.LoginAttempts; got != 9 {
		t.Fatalf("precondition: attempts = %d, want 9", got)
	}

	if _, err := env.engine.Login(ctx, "user@example.com", "pass-phrase-1", RequestContext{}); err != nil {
		t.Fatalf("login at attempts=9 failed: %v", err)
	}
	if got := env.store.get("u1").Credentials.LoginAttempts; got != 0 {
		t.Fatalf("attempts not reset, got %d", got)
	}
}

func TestLoginEmailUnverified(t *testing.T) {
	env := newTestEngine(t)
	account := env.seedAccount(t, "u1", "user@example.com", "", "pass-phrase-1")
	account.Credentials.EmailVerified = false
	env.store.put(account)

	_, err := env.engine.Login(context.Background(), "user@example.com", "pass-phrase-1", RequestContext{})
	if !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
	if Kind(err) != KindUnauthorized {
		t.Fatalf("expected unauthorized kind, got %d", Kind(err))
	}
	// The password was correct, so the gate must not burn an attempt.
	if got := env.store.get("u1").Credentials.LoginAttempts; got != 0 {
		t.Fatalf("attempts = %d after unverified-email rejection", got)
	}
}

func TestLoginSMSTwoFactorIssuesChallenge(t *testing.T) {
	env := newTestEngine(t)
	account := env.seedAccount(t, "u1", "user@example.com", "+14155550100", "pass-phrase-1")
	account.Credentials.SMSTwoFactorEnabled = true
	account.Credentials.PhoneVerified = true
	env.store.put(account)

	result, err := env.engine.Login(context.Background(), "user@example.com", "pass-phrase-1", RequestContext{})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !result.SMSOTPRequired || result.AccountID != "u1" {
		t.Fatalf("expected challenge receipt, got %+v", result)
	}
	if result.Tokens != nil {
		t.Fatal("tokens must not be issued before the second factor")
	}

	stored := env.store.get("u1")
	if stored.Credentials.SMSOTPCode == "" || stored.Credentials.SMSOTPPurpose != OTPPurposeLogin {
		t.Fatalf("challenge not persisted: %+v", stored.Credentials)
	}
	wantExpiry := env.clock.Now().Add(env.engine.config.SMSOTP.TTL)
	if !stored.Credentials.SMSOTPExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expiry %v, want %v", stored.Credentials.SMSOTPExpiresAt, wantExpiry)
	}

	msg, ok := env.sms.last()
	if !ok {
		t.Fatal("no SMS dispatched")
	}
	if msg.phone != "+14155550100" {
		t.Fatalf("sent to %s", msg.phone)
	}
	if len(stored.Credentials.SMSOTPCode) != 6 {
		t.Fatalf("code %q is not 6 digits", stored.Credentials.SMSOTPCode)
	}
}

func TestLoginSMSTwoFactorWithoutPhoneIsInternal(t *testing.T) {
	env := newTestEngine(t)
	account := env.seedAccount(t, "u1", "user@example.com", "", "pass-phrase-1")
	account.Credentials.SMSTwoFactorEnabled = true
	account.Credentials.PhoneVerified = true
	env.store.put(account)

	_, err := env.engine.Login(context.Background(), "user@example.com", "pass-phrase-1", RequestContext{})
	if !errors.Is(err, ErrPhoneNumberMissing) {
		t.Fatalf("expected ErrPhoneNumberMissing, got %v", err)
	}
	if Kind(err) != KindInternal {
		t.Fatalf("broken enrollment must classify internal, got %d", Kind(err))
	}
}

func TestLoginSMSTwoFactorSkippedWhenPhoneUnverified(t *testing.T) {
	env := newTestEngine(t)
	account := env.seedAccount(t, "u1", "user@example.com", "+14155550100", "pass-phrase-1")
	account.Credentials.SMSTwoFactorEnabled = true
	account.Credentials.PhoneVerified = false
	env.store.put(account)

	result, err := env.engine.Login(context.Background(), "user@example.com", "pass-phrase-1", RequestContext{})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.SMSOTPRequired || result.Tokens == nil {
		t.Fatalf("unverified phone must skip the factor, got %+v", result)
	}
}

func TestVerifySMSOTPAndLogin(t *testing.T) {
	env := newTestEngine(t)
	account := env.seedAccount(t, "u1", "user@example.com", "+14155550100", "pass-phrase-1")
	account.Credentials.SMSTwoFactorEnabled = true
	account.Credentials.PhoneVerified = true
	env.store.put(account)

	ctx := context.Background()
	result, err := env.engine.Login(ctx, "user@example.com", "pass-phrase-1", RequestContext{})
	if err != nil || !result.SMSOTPRequired {
		t.Fatalf("challenge setup failed: %v %+v", err, result)
	}

	code := env.store.get("u1").Credentials.SMSOTPCode
	completed, err := env.engine.VerifySMSOTPAndLogin(ctx, "u1", code, RequestContext{})
	if err != nil {
		t.Fatalf("challenge completion failed: %v", err)
	}
	if completed.Tokens == nil || completed.Profile == nil {
		t.Fatalf("expected tokens and profile, got %+v", completed)
	}

	// The code is single-use.
	if _, err := env.engine.VerifySMSOTPAndLogin(ctx, "u1", code, RequestContext{}); !errors.Is(err, ErrNoOTPPending) {
		t.Fatalf("replayed code: expected ErrNoOTPPending, got %v", err)
	}
}

func TestVerifySMSOTPAndLoginUnknownAccount(t *testing.T) {
	env := newTestEngine(t)

	_, err := env.engine.VerifySMSOTPAndLogin(context.Background(), "missing", "123456", RequestContext{})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	env := newTestEngine(t)
	env.seedAccount(t, "u1", "user@example.com", "", "pass-phrase-1")

	ctx := context.Background()
	result, err := env.engine.Login(ctx, "user@example.com", "pass-phrase-1", RequestContext{})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	rotated, err := env.engine.RefreshToken(ctx, result.Tokens.RefreshToken, RequestContext{})
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if rotated.RefreshToken == result.Tokens.RefreshToken {
		t.Fatal("refresh token not rotated")
	}

	if _, err := env.engine.RefreshToken(ctx, "garbage", RequestContext{}); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}

	revoked, err := env.engine.Logout(ctx, rotated.RefreshToken)
	if err != nil || !revoked {
		t.Fatalf("Logout = %v, %v", revoked, err)
	}
	revoked, err = env.engine.Logout(ctx, rotated.RefreshToken)
	if err != nil || revoked {
		t.Fatalf("second Logout = %v, %v; want false, nil", revoked, err)
	}
}

func TestLoginStoreFailureIsInternal(t *testing.T) {
	env := newTestEngine(t)
	env.seedAccount(t, "u1", "user@example.com", "", "pass-phrase-1")
	env.store.failNext = errors.New("connection reset")

	_, err := env.engine.Login(context.Background(), "user@example.com", "pass-phrase-1", RequestContext{})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if Kind(err) != KindInternal {
		t.Fatalf("expected internal kind, got %d", Kind(err))
	}
}
