/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"newsbrief/internal/activity"
	"newsbrief/internal/briefing"
	"newsbrief/internal/cache"
	"newsbrief/internal/clustering"
	"newsbrief/internal/config"
	"newsbrief/internal/llm"
	"newsbrief/internal/logger"
	"newsbrief/internal/scoring"
	"newsbrief/internal/store"
	"newsbrief/internal/summary"
	"newsbrief/internal/usage"
)

// app holds the wired application dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	store    *store.Store
	cache    *cache.Client
	usage    *usage.Recorder
	clusters *clustering.Storage
	engine   *clustering.Engine
	worker   *briefing.Worker
}

// newApp wires the full dependency graph from loaded configuration:
// Redis, SQLite, the clustering engine, the scorer, the LLM providers,
// and the briefing worker.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Get()
	logger.InitWithLevel(cfg.Logging.Level)

	c, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	s, err := store.NewStore(filepath.Dir(cfg.Database.Path))
	if err != nil {
		c.Close()
		return nil, err
	}

	recorder := usage.NewRecorder(c)
	storage := clustering.NewStorage(c)

	var searcher clustering.StorySearcher
	if cfg.Clustering.SemanticEnabled && cfg.Clustering.SearchURL != "" {
		timeout, perr := time.ParseDuration(cfg.Clustering.SearchTimeout)
		if perr != nil {
			timeout = 10 * time.Second
		}
		searcher = clustering.NewMoreLikeThisClient(cfg.Clustering.SearchURL, timeout)
	}
	engine := clustering.NewEngine(s, storage, recorder, searcher, cfg.Clustering.SemanticEnabled)

	scorer := scoring.NewScorer(s, c, storage)
	providers := llm.NewProviders(cfg.AI)
	generator := summary.NewGenerator(s, providers, recorder)
	embedder := summary.NewEmbedder(cfg.Briefing.SiteURL, cfg.Briefing.IconsDir)
	tracker := activity.NewTracker(c)
	worker := briefing.NewWorker(s, c, scorer, generator, embedder, tracker)

	return &app{
		cfg:      cfg,
		store:    s,
		cache:    c,
		usage:    recorder,
		clusters: storage,
		engine:   engine,
		worker:   worker,
	}, nil
}

// Close releases the store and cache connections.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("store close failed", "error", err.Error())
	}
	if err := a.cache.Close(); err != nil {
		logger.Warn("cache close failed", "error", err.Error())
	}
}
