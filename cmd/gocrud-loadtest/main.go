package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goCrud "github.com/MrEthical07/goCrud"
	"github.com/MrEthical07/goCrud/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		users       = flag.Int("users", 2000, "number of users to seed")
		contenders  = flag.Int("contenders", 8, "concurrent creators per email in the create phase")
		emails      = flag.Int("emails", 200, "distinct emails raced in the create phase")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations in the read phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gocrud-loadtest", "store key prefix")
		codec       = flag.String("codec", "json", "record codec (json or cbor)")
	)
	flag.Parse()

	if *users <= 0 || *contenders <= 0 || *emails <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, contenders, emails, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

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
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := buildEngine(client, *prefix, *codec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	createStats, winners, violations := runCreatePhase(ctx, engine, *emails, *contenders, *concurrency)

	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	nids := make([]string, 0, *users)
	for i := 0; i < *users; i++ {
		view, err := engine.CreateUser(ctx, goCrud.UserCreate{
			Nickname: fmt.Sprintf("seed-%d", i),
			Email:    fmt.Sprintf("seed-%d@loadtest.local", i),
			Password: "loadtest-password",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		nids = append(nids, view.Nid)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	readStats := runReadPhase(ctx, engine, nids, *ops, *concurrency)
	memberStats, conflicts, members, err := runMemberPhase(ctx, engine, nids, *concurrency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "member phase failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("---- results ----")
	printStats("create", createStats)
	printStats("read", readStats)
	printStats("member", memberStats)
	fmt.Printf("create: winners=%d/%d uniqueness violations=%d\n", winners, *emails, violations)
	fmt.Printf("member: members=%d/%d cas conflicts retried=%d\n", members, len(nids)+1, conflicts)

	if violations > 0 || winners != int64(*emails) || members != len(nids)+1 {
		fmt.Fprintln(os.Stderr, "invariant violated")
		os.Exit(1)
	}
}

func buildEngine(client redis.UniversalClient, prefix, codec string) (*goCrud.Engine, error) {
	cfg := goCrud.DefaultConfig()
	cfg.Store.Prefix = prefix
	cfg.Store.Codec = codec
	cfg.Session.SigningKey = randomKey()
	cfg.Session.CSRFKey = randomKey()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.UpgradeOnLogin = false

	return goCrud.New().
		WithConfig(cfg).
		WithRedis(client).
		WithMetricsEnabled(true).
		Build()
}

func randomKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}

// runCreatePhase races contenders creators per email. Exactly one creator
// per email must win; every other one must see ErrExists.
func runCreatePhase(ctx context.Context, engine *goCrud.Engine, emails, contenders, concurrency int) (phaseStats, int64, int64) {
	type job struct{ email, contender int }

	var (
		wg         sync.WaitGroup
		failures   int64
		winners    int64
		violations int64
		latencies  = make([]time.Duration, 0, emails*contenders)
		mu         sync.Mutex
		wins       = make([]int64, emails)
		jobs       = make(chan job)
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				t0 := time.Now()
				_, err := engine.CreateUser(ctx, goCrud.UserCreate{
					Nickname: fmt.Sprintf("c%d-%d", j.email, j.contender),
					Email:    fmt.Sprintf("race-%d@loadtest.local", j.email),
					Password: "loadtest-password",
				})
				d := time.Since(t0)
				switch {
				case err == nil:
					atomic.AddInt64(&winners, 1)
					if atomic.AddInt64(&wins[j.email], 1) > 1 {
						atomic.AddInt64(&violations, 1)
					}
				case errors.Is(err, goCrud.ErrExists):
				default:
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	for e := 0; e < emails; e++ {
		for c := 0; c < contenders; c++ {
			jobs <- job{email: e, contender: c}
		}
	}
	close(jobs)
	wg.Wait()

	return computeStats(time.Since(start), latencies, failures), winners, violations
}

func runReadPhase(ctx context.Context, engine *goCrud.Engine, nids []string, ops, concurrency int) phaseStats {
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
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				nid := nids[r.Intn(len(nids))]
				t0 := time.Now()
				_, err := engine.GetUser(ctx, goCrud.UserQuery{Nid: nid})
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
	return computeStats(time.Since(start), latencies, failures)
}

// runMemberPhase adds every seeded user to a single group from concurrent
// workers, retrying CAS conflicts. No addition may be lost.
func runMemberPhase(ctx context.Context, engine *goCrud.Engine, nids []string, concurrency int) (phaseStats, int64, int, error) {
	owner := nids[0]
	group, err := engine.CreateGroup(ctx, session.Session{Identity: owner}, goCrud.GroupCreate{Name: "loadtest"})
	if err != nil {
		return phaseStats{}, 0, 0, err
	}

	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		conflicts int64
		latencies = make([]time.Duration, 0, len(nids))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1))
				if i >= len(nids) {
					return
				}
				t0 := time.Now()
				for {
					_, err := engine.AddMember(ctx, goCrud.GroupMember{GroupNid: group.Nid, UserNid: nids[i]})
					if errors.Is(err, goCrud.ErrConflict) {
						atomic.AddInt64(&conflicts, 1)
						continue
					}
					if err != nil {
						atomic.AddInt64(&failures, 1)
					}
					break
				}
				d := time.Since(t0)
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)

	final, err := engine.GetGroup(ctx, group.Nid)
	if err != nil {
		return phaseStats{}, 0, 0, err
	}
	return computeStats(total, latencies, failures), conflicts, len(final.Members), nil
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
