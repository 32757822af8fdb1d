package novackauth

import (
	"errors"
	"time"
)

// Config groups the tunable behavior of the engine. Zero values are filled
// with defaults by [Builder.Build]; explicit invalid values fail the build.
type Config struct {
	Login       LoginConfig
	Password    PasswordConfig
	SMSOTP      SMSOTPConfig
	TOTP        TOTPConfig
	BackupCodes BackupCodeConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

// PasswordConfig holds Argon2id cost parameters for the constant-time
// password verification primitive.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// LoginConfig controls password-failure lockout.
type LoginConfig struct {
	// MaxAttempts is the consecutive-failure count that triggers a lockout.
	MaxAttempts int
	// LockDuration is how long the account stays locked.
	LockDuration time.Duration
}

// SMSOTPConfig controls SMS challenge codes.
type SMSOTPConfig struct {
	// Digits is the code length. Codes are zero-padded strings, never
	// integers, so leading zeros survive.
	Digits int
	// TTL is the validity window of an issued code.
	TTL time.Duration
	// EnglishCallingCodes selects the English message template by phone
	// country calling code. Every other prefix receives the Spanish template.
	EnglishCallingCodes []string
}

// TOTPConfig controls authenticator-app enrollment.
type TOTPConfig struct {
	// Issuer is the application label embedded in provisioning URIs.
	Issuer string
}

// BackupCodeConfig controls the recovery-code vault.
type BackupCodeConfig struct {
	// Length is the number of characters in a generated code.
	Length int
	// MaxStored caps the stored list, evicting the oldest used entries first
	// when exceeded. Zero keeps the list unbounded.
	MaxStored int
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking when the buffer is full.
	DropIfFull bool
}

// MetricsConfig controls the in-process counter registry.
type MetricsConfig struct {
	Enabled bool
}

const (
	defaultMaxLoginAttempts = 10
	defaultLockDuration     = 15 * time.Minute
	defaultOTPDigits        = 6
	defaultOTPTTL           = 10 * time.Minute
	defaultTOTPIssuer       = "Novack"
	defaultBackupCodeLength = 10
	defaultAuditBuffer      = 256
)

// defaultEnglishCallingCodes is the fixed allow-list of English-speaking
// country calling codes used to pick the SMS template language.
var defaultEnglishCallingCodes = []string{"1", "44", "61", "64", "353"}

func defaultConfig() Config {
	return Config{
		Login: LoginConfig{
			MaxAttempts:  defaultMaxLoginAttempts,
			LockDuration: defaultLockDuration,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		SMSOTP: SMSOTPConfig{
			Digits:              defaultOTPDigits,
			TTL:                 defaultOTPTTL,
			EnglishCallingCodes: append([]string(nil), defaultEnglishCallingCodes...),
		},
		TOTP: TOTPConfig{
			Issuer: defaultTOTPIssuer,
		},
		BackupCodes: BackupCodeConfig{
			Length: defaultBackupCodeLength,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: defaultAuditBuffer,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.SMSOTP.EnglishCallingCodes = append([]string(nil), cfg.SMSOTP.EnglishCallingCodes...)
	return out
}

// fillDefaults replaces zero values with defaults so partial configs stay
// usable; validate rejects values that are explicitly out of range.
func fillDefaults(cfg Config) Config {
	d := defaultConfig()
	if cfg.Login.MaxAttempts == 0 {
		cfg.Login.MaxAttempts = d.Login.MaxAttempts
	}
	if cfg.Login.LockDuration == 0 {
		cfg.Login.LockDuration = d.Login.LockDuration
	}
	if cfg.Password == (PasswordConfig{}) {
		cfg.Password = d.Password
	}
	if cfg.SMSOTP.Digits == 0 {
		cfg.SMSOTP.Digits = d.SMSOTP.Digits
	}
	if cfg.SMSOTP.TTL == 0 {
		cfg.SMSOTP.TTL = d.SMSOTP.TTL
	}
	if cfg.SMSOTP.EnglishCallingCodes == nil {
		cfg.SMSOTP.EnglishCallingCodes = d.SMSOTP.EnglishCallingCodes
	}
	if cfg.TOTP.Issuer == "" {
		cfg.TOTP.Issuer = d.TOTP.Issuer
	}
	if cfg.BackupCodes.Length == 0 {
		cfg.BackupCodes.Length = d.BackupCodes.Length
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = d.Audit.BufferSize
	}
	return cfg
}

func validateConfig(cfg Config) error {
	if cfg.Login.MaxAttempts < 1 {
		return errors.New("login max attempts must be positive")
	}
	if cfg.Login.LockDuration < time.Minute {
		return errors.New("lock duration must be at least one minute")
	}
	if cfg.SMSOTP.Digits < 4 || cfg.SMSOTP.Digits > 10 {
		return errors.New("sms otp digits must be between 4 and 10")
	}
	if cfg.SMSOTP.TTL < time.Minute {
		return errors.New("sms otp ttl must be at least one minute")
	}
	if cfg.TOTP.Issuer == "" {
		return errors.New("totp issuer label required")
	}
	if cfg.BackupCodes.Length < 8 {
		return errors.New("backup code length must be at least 8")
	}
	if cfg.BackupCodes.MaxStored < 0 {
		return errors.New("backup code max stored must not be negative")
	}
	return nil
}
