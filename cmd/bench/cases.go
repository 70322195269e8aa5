// README: Bench cases: environment, migration, claim races and nearby-search load.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"farmhaul/internal/events"
	"farmhaul/internal/modules/booking"
	"farmhaul/internal/modules/geo"
	"farmhaul/internal/modules/pricing"
	"farmhaul/internal/types"
)

var (
	lucknow = types.Point{Lat: 26.8467, Lng: 80.9462}
	delhi   = types.Point{Lat: 28.6139, Lng: 77.2090}
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
	runID string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
		runID: strings.ToUpper(uuid.NewString()[:8]),
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		start := time.Now()
		res := tc.Run(ctx, r)
		if res.Latency == 0 {
			res.Latency = time.Since(start)
		}
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s (%s)", res.Status, tc.Name, res.Latency.Round(time.Microsecond))
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: "SKIP", Note: "dsn not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.db.Ping(ctx); err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			return Result{Status: "PASS"}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: "SKIP", Note: "redis not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			return Result{Status: "PASS"}
		}},
		{Name: "Migration: apply (optional)", Run: applyMigration},
		{Name: "Migration: tables exist", Run: tablesExist},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			if r.cfg.BaseURL == "" {
				return Result{Status: "SKIP", Note: "base-url not configured"}
			}
			start := time.Now()
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"/health", nil)
			resp, err := r.httpc.Do(req)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", resp.StatusCode)}
			}
			return Result{Status: "PASS", Latency: time.Since(start)}
		}},
		{Name: "Pricing: reference fare", Run: referenceFare},
		{Name: "Race: concurrent accept (memory)", Run: func(ctx context.Context, r *Runner) Result {
			return concurrentAccept(ctx, r, booking.NewMemoryStore(), geo.NewMemoryIndex())
		}},
		{Name: "Race: concurrent accept (postgres)", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: "SKIP", Note: "dsn not configured"}
			}
			return concurrentAccept(ctx, r, booking.NewPostgresStore(r.db), geo.NewMemoryIndex())
		}},
		{Name: "Load: nearby vehicles (memory index)", Run: func(ctx context.Context, r *Runner) Result {
			return nearbyLoad(ctx, r, geo.NewMemoryIndex())
		}},
		{Name: "Load: nearby vehicles (redis index)", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: "SKIP", Note: "redis not configured"}
			}
			return nearbyLoad(ctx, r, geo.NewRedisIndex(r.redis))
		}},
	}
}

func applyMigration(ctx context.Context, r *Runner) Result {
	if !r.cfg.ApplyMigration {
		return Result{Status: "SKIP", Note: "apply-migration=false"}
	}
	if r.db == nil {
		return Result{Status: "FAIL", Note: "db not configured"}
	}
	sql, err := os.ReadFile(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	for _, s := range splitSQL(string(sql)) {
		if _, err := r.db.Exec(ctx, s); err != nil {
			return Result{Status: "FAIL", Note: err.Error()}
		}
	}
	return Result{Status: "PASS"}
}

func tablesExist(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: "SKIP", Note: "dsn not configured"}
	}
	tables, err := extractTables(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
			t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: "FAIL", Note: err.Error()}
		}
		if !exists {
			return Result{Status: "FAIL", Note: "missing table: " + t}
		}
	}
	return Result{Status: "PASS", Note: fmt.Sprintf("tables=%d", len(tables))}
}

func referenceFare(_ context.Context, _ *Runner) Result {
	svc := pricing.NewService("INR")
	d := geo.DistanceKm(lucknow, delhi)
	quote, err := svc.Estimate(pricing.PricingRequest{DistanceKm: d, RatePerKm: types.NewMoney(1500, "INR")})
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	if quote.TotalAmount.Amount != quote.BaseAmount.Amount {
		return Result{Status: "FAIL", Note: "total differs from base without charges"}
	}
	return Result{Status: "PASS", Note: fmt.Sprintf("%.2fkm -> %s", geo.RoundKm(d), quote.TotalAmount)}
}

// concurrentAccept races cfg.Concurrency carriers, each with its own vehicle,
// to accept one booking. Exactly one must win and every loser must see
// ErrAlreadyAccepted.
func concurrentAccept(ctx context.Context, r *Runner, repo booking.Repository, index geo.Index) Result {
	svc := booking.NewService(repo, index, events.NewMemorySink(), booking.Options{Currency: "INR"})
	n := r.cfg.Concurrency
	prefix := "bench-" + r.runID + "-" + fmt.Sprint(time.Now().UnixNano())

	carriers := make([]types.Actor, n)
	for i := range carriers {
		carriers[i] = types.Actor{ID: types.ID(fmt.Sprintf("%s-car-%d", prefix, i)), Role: types.RoleCarrier}
		at := lucknow
		_, err := svc.RegisterVehicle(ctx, booking.RegisterVehicleCommand{
			Carrier: carriers[i], ID: types.ID(fmt.Sprintf("%s-veh-%d", prefix, i)),
			Type: booking.VehicleTruck, CapacityKg: 5000, RatePerKm: types.NewMoney(1500, "INR"), Location: &at,
		})
		if err != nil {
			return Result{Status: "FAIL", Note: "register vehicle: " + err.Error()}
		}
	}
	p, d := lucknow, delhi
	b, err := svc.CreateBooking(ctx, booking.CreateCommand{
		Requester: types.Actor{ID: types.ID(prefix + "-req"), Role: types.RoleRequester},
		Cargo: booking.Cargo{
			Category: booking.CargoGrains,
			Items:    []booking.Item{{Name: "wheat", Quantity: 20, Unit: booking.UnitQuintal}},
			WeightKg: 2000,
		},
		Pickup:    booking.Location{Address: "Lucknow", Point: &p},
		Dropoff:   booking.Location{Address: "Delhi", Point: &d},
		VehicleID: types.ID(prefix + "-veh-0"),
		Window:    booking.Window{Date: time.Now().AddDate(0, 0, 1), Slot: booking.SlotMorning},
	})
	if err != nil {
		return Result{Status: "FAIL", Note: "create booking: " + err.Error()}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	start := make(chan struct{})
	wins, lost := 0, 0
	var other error
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := svc.RespondToBooking(ctx, booking.RespondCommand{
				Ref: b.Ref, Carrier: carriers[i], Decision: booking.DecisionAccept,
				VehicleID: types.ID(fmt.Sprintf("%s-veh-%d", prefix, i)),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, booking.ErrAlreadyAccepted):
				lost++
			default:
				other = err
			}
		}(i)
	}
	began := time.Now()
	close(start)
	wg.Wait()
	took := time.Since(began)

	note := fmt.Sprintf("carriers=%d wins=%d already_accepted=%d", n, wins, lost)
	if other != nil {
		return Result{Status: "FAIL", Latency: took, Note: note + " unexpected: " + other.Error()}
	}
	if wins != 1 || lost != n-1 {
		return Result{Status: "FAIL", Latency: took, Note: note}
	}
	return Result{Status: "PASS", Latency: took, Note: note}
}

// nearbyLoad seeds synthetic vehicles around Lucknow and runs radius queries
// from cfg.Concurrency workers for cfg.Duration.
func nearbyLoad(ctx context.Context, r *Runner, index geo.Index) Result {
	rng := rand.New(rand.NewSource(7))
	ids := make([]types.ID, r.cfg.Vehicles)
	for i := range ids {
		ids[i] = types.ID(fmt.Sprintf("bench-%s-veh-%d", r.runID, i))
		p := types.Point{Lat: lucknow.Lat + (rng.Float64()-0.5)*2, Lng: lucknow.Lng + (rng.Float64()-0.5)*2}
		if err := index.Upsert(ctx, geo.KindVehicle, ids[i], p); err != nil {
			return Result{Status: "FAIL", Note: "seed: " + err.Error()}
		}
	}
	defer func() {
		for _, id := range ids {
			_ = index.Remove(context.Background(), geo.KindVehicle, id)
		}
	}()

	end := time.Now().Add(r.cfg.Duration)
	var mu sync.Mutex
	var latencies []time.Duration
	var errCount int
	var wg sync.WaitGroup
	for w := 0; w < r.cfg.Concurrency; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			local := rand.New(rand.NewSource(seed))
			var mine []time.Duration
			var failed int
			for time.Now().Before(end) && ctx.Err() == nil {
				c := types.Point{Lat: lucknow.Lat + (local.Float64() - 0.5), Lng: lucknow.Lng + (local.Float64() - 0.5)}
				start := time.Now()
				if _, err := index.Nearby(ctx, geo.KindVehicle, c, 25, 20); err != nil {
					failed++
					continue
				}
				mine = append(mine, time.Since(start))
			}
			mu.Lock()
			latencies = append(latencies, mine...)
			errCount += failed
			mu.Unlock()
		}(int64(w))
	}
	wg.Wait()

	if len(latencies) == 0 {
		return Result{Status: "FAIL", Note: fmt.Sprintf("no queries completed errors=%d", errCount)}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p50 := latencies[len(latencies)/2]
	p95 := latencies[len(latencies)*95/100]
	qps := float64(len(latencies)) / r.cfg.Duration.Seconds()
	note := fmt.Sprintf("vehicles=%d qps=%.0f p50=%s p95=%s errors=%d", r.cfg.Vehicles, qps, p50, p95, errCount)
	if errCount > 0 {
		return Result{Status: "FAIL", Note: note}
	}
	return Result{Status: "PASS", Latency: p95, Note: note}
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
