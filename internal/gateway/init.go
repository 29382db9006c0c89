package gateway

import (
	"dev.c0redev.rpctun/internal/auth"
)

// Settings: gateway endpoint and credentials for the tunnel.
type Settings struct {
	// Addr is the host:port the transport dials.
	Addr string
	// Hostname names the gateway for the Host header and the auth SPN.
	Hostname string
	// URI is the RPC proxy resource, e.g. "/rpc/rpcproxy.dll?target:3388".
	URI string
	// Gateway credentials; empty Username selects anonymous negotiation.
	Username string
	Domain   string
	Password string
}

// SPN is the target service principal for the security package.
func (s *Settings) SPN() string {
	if s.Hostname == "" {
		return ""
	}
	return "HTTP/" + s.Hostname
}

// DecideFunc resolves the surrounding session's gateway-auth decision
// (interactive prompt, cached policy, ...). nil means DecisionProceed.
type DecideFunc func() auth.Decision

// PackageFactory builds the security package for one channel, bound to
// identity (nil = anonymous), target SPN and TLS channel-binding data.
type PackageFactory func(identity *auth.Identity, spn string, bindings []byte) auth.Package

// AuthInit constructs the channel's security context. Cancelled and failed
// decisions propagate as auth.ErrCancelled / auth.ErrRejected and leave no
// context on the channel.
func AuthInit(ch *Channel, settings *Settings, decide DecideFunc, newPackage PackageFactory, bindings []byte) error {
	if ch == nil || settings == nil || newPackage == nil {
		return ErrInvalidArgument
	}
	decision := auth.DecisionProceed
	if decide != nil {
		decision = decide()
	}
	switch decision {
	case auth.DecisionProceed:
	case auth.DecisionNoCredentials:
	case auth.DecisionCancelled:
		return auth.ErrCancelled
	default:
		return auth.ErrRejected
	}
	var identity *auth.Identity
	if decision == auth.DecisionProceed && settings.Username != "" {
		identity = &auth.Identity{
			User:     settings.Username,
			Domain:   settings.Domain,
			Password: settings.Password,
		}
	}
	ctx := auth.NewContext(newPackage(identity, settings.SPN(), bindings))
	ctx.SetFlags(auth.FlagConfidentiality)
	ch.Auth = ctx
	return nil
}

// AuthUninit releases the channel's security context; no-op when already
// released.
func AuthUninit(ch *Channel) {
	if ch == nil {
		return
	}
	ch.Auth = nil
}
