package channel

import (
	"go.uber.org/zap"

	"github.com/unisonhq/unison-comms/internal/channel/mail"
	"github.com/unisonhq/unison-comms/internal/channel/stub"
	"github.com/unisonhq/unison-comms/internal/channel/unison"
	"github.com/unisonhq/unison-comms/internal/config"
)

// Registry resolves channel names to adapters. Adapters are constructed
// once at startup; a remote provider that cannot be constructed is
// replaced by the stub for the lifetime of the process.
type Registry struct {
	unison *unison.Adapter
	remote Adapter

	remoteProvider string
	watchable      *mail.Adapter
}

// NewRegistry builds the adapter set from configuration. The unison
// store adapter always exists. The remote side is the mail adapter when
// a real provider is configured with credentials, otherwise the stub.
func NewRegistry(cfg *config.Config, log *zap.SugaredLogger) *Registry {
	r := &Registry{
		unison: unison.New(cfg.UnisonStorePath, cfg.UnisonKeyBase64, log),
	}

	switch cfg.Provider {
	case "gmail":
		adapter, err := mail.New(mail.Options{
			Provider:    cfg.Provider,
			Username:    cfg.GmailUser,
			Password:    cfg.GmailAppPassword,
			IMAPAddr:    cfg.IMAPHost,
			SMTPAddr:    cfg.SMTPHost,
			SelfAddress: cfg.GmailUser,
		}, log)
		if err != nil {
			log.Warnw("remote mail provider unavailable, falling back to stub",
				"provider", cfg.Provider, "error", err)
			break
		}
		r.remote = adapter
		r.remoteProvider = adapter.Provider()
		r.watchable = adapter
	case "stub", "":
		// Explicitly requested stub; nothing to report.
	default:
		log.Warnw("unknown remote provider, falling back to stub", "provider", cfg.Provider)
	}

	if r.remote == nil {
		r.remote = stub.New()
		r.remoteProvider = stub.ProviderName
	}

	return r
}

// Resolve returns the adapter serving the named channel. The unison
// channel maps to the local store; every other channel goes to the
// remote-capable adapter.
func (r *Registry) Resolve(channelName string) Adapter {
	if channelName == Unison {
		return r.unison
	}
	return r.remote
}

// RemoteProvider reports which provider actually backs non-unison
// channels, letting callers observe a stub fallback.
func (r *Registry) RemoteProvider() string {
	return r.remoteProvider
}

// Unison returns the local store adapter directly, for callers that
// need its sequence accessors rather than the channel interface.
func (r *Registry) Unison() *unison.Adapter {
	return r.unison
}

// Watchable returns the mail adapter when one is active, for mailbox
// watching. It is nil when the stub backs the remote side.
func (r *Registry) Watchable() *mail.Adapter {
	return r.watchable
}
