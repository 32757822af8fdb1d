package novackauth

const (
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventAccountLocked     = "account_locked"
	auditEventSMSOTPIssued      = "sms_otp_issued"
	auditEventSMSOTPVerified    = "sms_otp_verified"
	auditEventSMSOTPFailure     = "sms_otp_failure"
	auditEventPhoneVerified     = "phone_verified"
	auditEventSMS2FAEnabled     = "sms_2fa_enabled"
	auditEventSMS2FADisabled    = "sms_2fa_disabled"
	auditEventTOTPSetup         = "totp_setup_requested"
	auditEventTOTPEnabled       = "totp_enabled"
	auditEventTOTPDisabled      = "totp_disabled"
	auditEventTOTPFailure       = "totp_failure"
	auditEventTOTPSuccess       = "totp_success"
	auditEventBackupCodeCreated = "backup_code_generated"
	auditEventBackupCodeUsed    = "backup_code_used"
	auditEventBackupCodeFailed  = "backup_code_failed"
	auditEventRefreshSuccess    = "refresh_success"
	auditEventRefreshInvalid    = "refresh_invalid"
	auditEventLogout            = "logout"
)
