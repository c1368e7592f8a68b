package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/hrygo/timextag/internal/profile"
	"github.com/hrygo/timextag/plugin/corenlp"
	"github.com/hrygo/timextag/plugin/textextract"
	"github.com/hrygo/timextag/server/service/tagger"
	"github.com/hrygo/timextag/store"
	"github.com/hrygo/timextag/store/db"
)

// app holds what every command that touches documents needs.
type app struct {
	profile *profile.Profile
	store   *store.Store
	tagger  tagger.Service
}

// newApp opens and migrates the store. The tagger is only built when withTagger is set.
func newApp(ctx context.Context, v *viper.Viper, withTagger bool) (*app, error) {
	p, err := loadProfile(v)
	if err != nil {
		return nil, err
	}

	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	st := store.New(dbDriver, p)
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}

	a := &app{profile: p, store: st}
	if !withTagger {
		return a, nil
	}

	nlpConfig := corenlp.ConfigFromEnv()
	nlpConfig.ServerURL = p.CoreNLPURL
	nlpConfig.Timeout = p.ExtractTimeout
	extractor := corenlp.NewClient(nlpConfig)
	if !extractor.IsAvailable(ctx) {
		slog.Warn("CoreNLP server is not reachable", slog.String("url", p.CoreNLPURL))
	}

	tikaConfig := textextract.ConfigFromEnv()
	tikaConfig.TikaServerURL = p.TikaServerURL
	loader := textextract.NewClient(tikaConfig)
	checkTika(ctx, loader)

	tagService, err := tagger.NewService(p, st, extractor, tagger.WithLoader(loader))
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	a.tagger = tagService
	return a, nil
}

// checkTika warns about an unusable Tika server. Plain text documents are still tagged without it.
func checkTika(ctx context.Context, loader *textextract.Client) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := loader.CheckServerVersion(ctx); err != nil {
		slog.Warn("rich document formats are unavailable", slog.String("error", err.Error()))
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}
}
