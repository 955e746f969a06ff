package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aika-bot/aika/pkg/affection"
	"github.com/aika-bot/aika/pkg/agent"
	"github.com/aika-bot/aika/pkg/config"
	"github.com/aika-bot/aika/pkg/knowledge"
	"github.com/aika-bot/aika/pkg/logger"
	"github.com/aika-bot/aika/pkg/memory"
	"github.com/aika-bot/aika/pkg/persona"
	"github.com/aika-bot/aika/pkg/providers"
	"github.com/aika-bot/aika/pkg/vectorstore"
)

// app bundles the wired subsystems behind one lifecycle.
type app struct {
	cfg       *config.Config
	store     *vectorstore.SQLiteStore
	affection *affection.System
	memory    *memory.System
	knowledge *knowledge.System
	persona   *persona.Loader
	provider  providers.LLMProvider
	generator *agent.Generator
}

// buildRuntime loads config and wires every subsystem. With
// needProvider false the generation provider is optional and pipelines
// degrade to their heuristic-only paths.
func buildRuntime(configPath string, needProvider bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log.Dir, cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var provider providers.LLMProvider
	if err := providers.ValidateProviderConfig(cfg); err != nil {
		if needProvider {
			return nil, err
		}
		logger.WarnCF("runtime", "provider unavailable, running heuristics only", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		provider, err = providers.CreateProvider(cfg)
		if err != nil {
			return nil, err
		}
	}

	if err := persona.EnsureDefault(cfg.Agent.PersonaPath); err != nil {
		return nil, fmt.Errorf("seed persona config: %w", err)
	}
	personaLoader, err := persona.NewLoader(cfg.Agent.PersonaPath)
	if err != nil {
		return nil, err
	}

	var policy *affection.Policy
	policyPath := filepath.Join(cfg.Agent.DataDir, "affection_policy.json")
	if _, statErr := os.Stat(policyPath); statErr == nil {
		policy, err = affection.LoadPolicy(policyPath)
		if err != nil {
			return nil, err
		}
	}
	affectionSys, err := affection.NewSystem(cfg.Agent.DataDir, policy)
	if err != nil {
		return nil, err
	}

	store, err := vectorstore.NewSQLiteStore(filepath.Join(cfg.Agent.DataDir, "vectors.db"))
	if err != nil {
		return nil, err
	}

	var extractor memory.Extractor = memory.NewHeuristicExtractor()
	if provider != nil {
		extractor = memory.NewAssistedExtractor(provider)
	}
	memorySys, err := memory.NewSystem(store, extractor, cfg.Memory.ShortTermLimit, cfg.Memory.RetrievalK)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	knowledgeSys, err := knowledge.NewSystem(store, provider, cfg.Knowledge.BaseDir, cfg.Agent.PersonaPath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var generator *agent.Generator
	if provider != nil {
		generator = agent.NewGenerator(provider, personaLoader, affectionSys, memorySys, knowledgeSys, nil, providers.GenerateOptions{
			Model:       cfg.Agent.Model,
			Temperature: cfg.Agent.Temperature,
			MaxTokens:   cfg.Agent.MaxTokens,
		})
	}

	return &app{
		cfg:       cfg,
		store:     store,
		affection: affectionSys,
		memory:    memorySys,
		knowledge: knowledgeSys,
		persona:   personaLoader,
		provider:  provider,
		generator: generator,
	}, nil
}

func (r *app) Close() {
	if r.store != nil {
		_ = r.store.Close()
	}
}
