package main

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/argoclaw/Clawtter-Argo/ai/chain"
	"github.com/argoclaw/Clawtter-Argo/ai/configloader"
	"github.com/argoclaw/Clawtter-Argo/ai/core/llm"
	"github.com/argoclaw/Clawtter-Argo/ai/feed"
	"github.com/argoclaw/Clawtter-Argo/ai/filter"
	"github.com/argoclaw/Clawtter-Argo/ai/interest"
	"github.com/argoclaw/Clawtter-Argo/ai/metrics"
	"github.com/argoclaw/Clawtter-Argo/ai/mood"
	"github.com/argoclaw/Clawtter-Argo/ai/prompt"
	"github.com/argoclaw/Clawtter-Argo/ai/saturation"
	"github.com/argoclaw/Clawtter-Argo/ai/signals"
	"github.com/argoclaw/Clawtter-Argo/ai/strategy"
	"github.com/argoclaw/Clawtter-Argo/ai/summary"
	"github.com/argoclaw/Clawtter-Argo/ai/validate"
	"github.com/argoclaw/Clawtter-Argo/internal/profile"
	"github.com/argoclaw/Clawtter-Argo/plugin/deploy"
	"github.com/argoclaw/Clawtter-Argo/server/service/schedule"
	"github.com/argoclaw/Clawtter-Argo/store"
)

// Feed pool weights.
const (
	weightHackerNews = 2
	weightSocial     = 2
	weightCommunity  = 1
	weightRSS        = 1

	interestTopN = 8
)

// app holds every component built from one profile.
type app struct {
	profile  *profile.Profile
	loc      *time.Location
	now      func() time.Time
	rng      *rand.Rand
	persona  *prompt.Persona
	registry *chain.Registry
	guard    *filter.Guard
	masker   *filter.Masker
	store    *store.Store
	moodFile *mood.FileStore
	records  *schedule.RecordStore
	lock     *schedule.Lock
	deployer *deploy.Deployer
	metrics  *metrics.PrometheusExporter
}

func newApp(p *profile.Profile) (*app, error) {
	persona, err := prompt.LoadPersona(p.PersonaConfig)
	if err != nil {
		return nil, err
	}
	registry := &chain.Registry{}
	if _, err := configloader.NewLoader("", true).LoadOptional(p.ProviderConfig, registry); err != nil {
		return nil, errors.Wrap(err, "failed to load provider registry")
	}

	loc := p.Location()
	clock := func() time.Time { return time.Now().In(loc) }
	seed := uint64(time.Now().UnixNano())
	guard := filter.NewGuard(nil)
	posts := store.New(p.PostsDir, loc, guard, clock)

	return &app{
		profile:  p,
		loc:      loc,
		now:      clock,
		rng:      rand.New(rand.NewPCG(seed, uint64(os.Getpid()))),
		persona:  persona,
		registry: registry,
		guard:    guard,
		masker:   filter.NewMasker(),
		store:    posts,
		moodFile: mood.NewFileStore(p.MoodFile),
		records:  schedule.NewRecordStore(p.ScheduleFile, loc),
		lock:     schedule.NewLock(p.LockFile, p.LockMaxAge, nil),
		deployer: deploy.New(posts, deploy.Config{
			SiteDir:    p.SiteDir,
			PushScript: p.PushScript,
			Title:      persona.Name,
			BaseURL:    p.SiteURL,
			Author:     persona.Name,
		}),
		metrics: metrics.NewPrometheusExporter(metrics.DefaultConfig()),
	}, nil
}

// pipeline is one cycle's wiring. The waterfall and validator are kept
// alongside the scheduler so their clock can be inspected.
type pipeline struct {
	waterfall *strategy.Waterfall
	validator *validate.Validator
	scheduler *schedule.Scheduler
}

// scheduler wires the full cycle.
func (a *app) scheduler(ctx context.Context) *schedule.Scheduler {
	return a.pipeline(ctx).scheduler
}

// pipeline builds every cycle component on the profile's clock.
func (a *app) pipeline(ctx context.Context) *pipeline {
	p := a.profile
	relay := &mood.Relay{}

	report, err := chain.LoadHealthReport(p.HealthReport)
	if err != nil {
		slog.WarnContext(ctx, "Chain: ignoring unreadable health report", "path", p.HealthReport, "error", err)
	}
	gen := chain.New(a.registry, chain.NewEndpointFactory(ctx, a.registry), a.rng,
		chain.WithHealthReport(report),
		chain.WithObserver(relay),
		chain.WithRecorder(a.metrics),
		chain.WithLastResort(chain.NewLastResort(a.registry, p.LastResortAPIKey)),
	)

	memory := signals.NewMemory(p.MemoryDir, a.loc, a.now, a.rng, a.masker.Mask)
	drift := interest.NewDrift(p.InterestFile, a.persona.Interests, a.now)
	interests := func() []string {
		if top := interest.Top(drift.Load().Weights, interestTopN); len(top) > 0 {
			return top
		}
		return a.persona.Interests
	}

	social := feed.NewSocialReader(feed.SocialConfig{
		Binary:      p.SocialCLI,
		Owner:       a.persona.Social.Handle,
		KeyAccounts: a.persona.Social.KeyAccounts,
	}, a.rng)

	agg := feed.NewAggregator(a.rng)
	agg.Register(feed.NewHackerNewsSource(a.rng), weightHackerNews)
	if _, err := exec.LookPath(p.SocialCLI); err == nil {
		agg.Register(social, weightSocial)
	}
	if p.TwitterDigest != "" {
		agg.Register(feed.NewDigestSource(p.TwitterDigest, a.rng), weightSocial)
	}
	if p.CommunityFeed != "" {
		agg.Register(feed.NewCommunitySource(p.CommunityFeed, a.rng), weightCommunity)
	}
	if len(a.persona.Feeds) > 0 {
		agg.Register(feed.NewRSSSource("RSS", a.persona.Feeds, feed.TypeBlog, 5, a.rng), weightRSS)
	}

	var neighbors []feed.Source
	for _, n := range a.persona.Neighbors {
		neighbors = append(neighbors, feed.NewRSSSource(n.Name, []string{n.Feed}, feed.TypeBlog, 3, a.rng))
	}

	var blog strategy.BlogReader
	if p.BlogDir != "" {
		blog = signals.NewBlog(p.BlogDir, a.persona.BlogURL, a.rng)
	}

	waterfall := strategy.New(strategy.Config{
		Generator:      gen,
		Persona:        a.persona,
		Tracker:        saturation.NewTracker(a.store),
		Archive:        a.store,
		Feed:           agg,
		Timeline:       social,
		Blog:           blog,
		Memory:         memory,
		Neighbors:      neighbors,
		Load:           mood.HostLoad{},
		Interests:      interests,
		ProjectDirs:    p.ProjectDirs,
		ActivityWindow: p.ActivityWindow,
		RNG:            a.rng,
		Now:            a.now,
	})

	var checker llm.Endpoint
	if local, ok := gen.LocalEndpoint(); ok {
		checker = local
	}

	validator := validate.New(checker, p.RejectionLog, a.now)
	scheduler := schedule.New(schedule.Config{
		Records:   a.records,
		Lock:      a.lock,
		Mood:      a.moodFile,
		Relay:     relay,
		Evolver:   mood.NewEvolver(a.rng, mood.WithLoadSampler(mood.HostLoad{})),
		Composer:  waterfall,
		Validator: validator,
		Store:     a.store,
		Rollups: summary.New(summary.Config{
			Generator: gen,
			Sink:      a.store,
			Memory:    memory,
			Persona:   a.persona,
			Guard:     a.guard,
			Masker:    a.masker,
			Location:  a.loc,
			Now:       a.now,
		}),
		Deployer:    a.deployer,
		Metrics:     a.metrics,
		MetricsFile: p.MetricsFile,
		Interests:   drift,
		Memory:      memory,
		Commits: func(ctx context.Context) []string {
			return signals.Subjects(signals.RecentCommits(ctx, p.ProjectDirs, signals.CodeWindow))
		},
		Location: a.loc,
		RNG:      a.rng,
		Now:      a.now,
	})
	return &pipeline{waterfall: waterfall, validator: validator, scheduler: scheduler}
}
