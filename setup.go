package agenthub

import (
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/freelancing-solutions/agenthub/completion"
	"github.com/freelancing-solutions/agenthub/completion/anthropic"
	"github.com/freelancing-solutions/agenthub/completion/openai"
	"github.com/freelancing-solutions/agenthub/config"
	"github.com/freelancing-solutions/agenthub/session"
)

// NewFromConfig builds a Runtime from a declarative configuration: providers
// by name ("openai", "anthropic", or "mock" for local development), the
// configured fallback order, and a SQLite-backed session store when
// session.sqlite_path is set. Overrides supplied via optFns win over the
// configuration.
func NewFromConfig(cfg *config.Config, optFns ...func(o *Options)) (*Runtime, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}
	completions := completion.NewService(providers, func(o *completion.Options) {
		o.DefaultProvider = cfg.DefaultProvider
		o.FallbackOrder = cfg.FallbackOrder
		if opts.Logger != nil {
			o.Logger = opts.Logger
		}
	})

	if opts.Sessions == nil {
		var kv session.KV
		if cfg.Session.SQLitePath != "" {
			kv, err = session.NewSQLiteKV(cfg.Session.SQLitePath)
			if err != nil {
				return nil, fmt.Errorf("open session database: %w", err)
			}
		}
		opts.Sessions = session.NewStore(func(o *session.Options) {
			if kv != nil {
				o.KV = kv
			}
			o.TTL = cfg.Session.TTL
			o.MaxHistory = cfg.Session.MaxHistory
			if opts.Logger != nil {
				o.Logger = opts.Logger
			}
		})
	}

	return New(completions, func(o *Options) {
		for _, fn := range optFns {
			fn(o)
		}
		o.Sessions = opts.Sessions
	}), nil
}

func buildProviders(cfg *config.Config) ([]completion.Provider, error) {
	providers := make([]completion.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		switch pc.Name {
		case "openai":
			providers = append(providers, openai.New(func(o *openai.Options) {
				if pc.DefaultModel != "" {
					o.Model = pc.DefaultModel
				}
				if len(pc.FallbackModels) > 0 {
					o.FallbackModels = pc.FallbackModels
				}
				o.APIKey = pc.APIKey()
			}))
		case "anthropic":
			providers = append(providers, anthropic.New(func(o *anthropic.Options) {
				if pc.DefaultModel != "" {
					o.Model = anthropicsdk.Model(pc.DefaultModel)
				}
				if len(pc.FallbackModels) > 0 {
					fallbacks := make([]anthropicsdk.Model, len(pc.FallbackModels))
					for i, m := range pc.FallbackModels {
						fallbacks[i] = anthropicsdk.Model(m)
					}
					o.FallbackModels = fallbacks
				}
				o.APIKey = pc.APIKey()
			}))
		case "mock":
			providers = append(providers, completion.NewMockProvider(pc.Name, completion.ProviderModels{
				Default:   pc.DefaultModel,
				Fallbacks: pc.FallbackModels,
			}))
		default:
			return nil, fmt.Errorf("unknown provider %q in configuration", pc.Name)
		}
	}
	return providers, nil
}
