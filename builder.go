package novackauth

import (
	"errors"
	"time"

	"github.com/Novack-secure/novack-auth/password"
)

// Builder assembles an [Engine] from a config and its collaborators.
// Construction is allocation-only; no collaborator is called until the first
// Engine method.
type Builder struct {
	config Config
	store  CredentialStore
	sms    SMSGateway
	email  EmailGateway
	issuer TokenIssuer
	sink   AuditSink

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the full configuration. Zero-valued fields are filled
// with defaults during Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentialStore sets the persistence collaborator. Required.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithSMSGateway sets the SMS delivery collaborator. Required when SMS
// two-factor or phone verification is used.
func (b *Builder) WithSMSGateway(gw SMSGateway) *Builder {
	b.sms = gw
	return b
}

// WithEmailGateway records the email collaborator for completeness of the
// integration surface. The engine itself never invokes it.
func (b *Builder) WithEmailGateway(gw EmailGateway) *Builder {
	b.email = gw
	return b
}

// WithTokenIssuer sets the session-credential collaborator. Required.
func (b *Builder) WithTokenIssuer(issuer TokenIssuer) *Builder {
	b.issuer = issuer
	return b
}

// WithAuditSink enables audit dispatch to the given sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithMetricsEnabled toggles the in-process counter registry.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and collaborator set and returns the
// engine. A Builder can build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := fillDefaults(cloneConfig(b.config))
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}
	if b.issuer == nil {
		return nil, errors.New("token issuer required")
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		sms:      b.sms,
		issuer:   b.issuer,
		password: hasher,
		audit:    newAuditDispatcher(cfg.Audit, b.sink),
		metrics:  newMetrics(cfg.Metrics),
		now:      time.Now,
	}

	b.built = true
	return engine, nil
}
