package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type sessionState struct {
	token string
	owner string
	hits  int
	mu    sync.Mutex
}

func main() {
	var (
		sessions    = flag.Int("sessions", 100000, "number of sessions to seed")
		owners      = flag.Int("owners", 1000, "number of distinct owners the sessions are spread over")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (open + update)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		configPath  = flag.String("config", "", "optional TOML config file")
		keyspace    = flag.String("keyspace", "lt", "session key prefix; owner keys are <keyspace>:<owner>:<id>")
	)
	flag.Parse()

	if *sessions <= 0 || *owners <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, owners, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	ctx := context.Background()

	cfg := goSession.DefaultConfig()
	if *configPath != "" {
		loaded, err := goSession.LoadConfigFile(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load config")
		}
		cfg = loaded
	} else {
		cfg.Token.Secret = []byte("loadtest-secret-not-for-production-use")
		cfg.Store.Keyspace = *keyspace
		cfg.Store.KeyScheme = "owner"
	}
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			logger.Fatal().Err(err).Msg("start miniredis")
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		logger.Info().Str("addr", addr).Msg("using miniredis")
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		logger.Info().Str("addr", addr).Msg("using redis")
	}
	defer cleanup()

	engine, err := goSession.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(logger.Level(zerolog.WarnLevel)).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("build engine")
	}
	defer engine.Close()

	states := make([]sessionState, *sessions)
	logger.Info().Int("sessions", *sessions).Msg("seeding")
	startSeed := time.Now()
	for i := 0; i < *sessions; i++ {
		owner := fmt.Sprintf("owner-%d", i%*owners)
		s, token, err := engine.Create(ctx, owner, map[string]any{"seq": i})
		if err != nil {
			logger.Fatal().Err(err).Msg("seed session")
		}
		s.Set("visits", 0)
		if err := s.Update(ctx); err != nil {
			logger.Fatal().Err(err).Msg("seed data")
		}
		states[i].token = token
		states[i].owner = owner
	}
	logger.Info().Dur("elapsed", time.Since(startSeed).Round(time.Millisecond)).Msg("seeded")

	openStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand, _ int) error {
		_, err := engine.Open(ctx, states[r.Intn(len(states))].token)
		return err
	})
	updateStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand, _ int) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()
		s, err := engine.Open(ctx, state.token)
		if err != nil {
			return err
		}
		state.hits++
		s.Set("visits", state.hits)
		return s.Update(ctx)
	})
	countStats := runPhase(*owners, min(*concurrency, 16), 104729, func(_ *rand.Rand, i int) error {
		_, err := engine.CountForOwner(ctx, fmt.Sprintf("owner-%d", i))
		return err
	})

	fmt.Println("---- results ----")
	printStats("open", openStats)
	printStats("open+update", updateStats)
	printStats("count", countStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: loaded=%d updated=%d storage_failures=%d load_latency_sum=%.3fs\n",
		snap.Counters[goSession.MetricSessionLoaded],
		snap.Counters[goSession.MetricSessionUpdated],
		snap.Counters[goSession.MetricStorageFailure],
		snap.HistogramSums[goSession.MetricLoadLatency],
	)
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
