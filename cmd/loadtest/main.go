package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcsvc "github.com/vladislavdragonenkov/dairy-oms/internal/service/grpc"
)

const (
	scenarioMetric = "scenario"
	categoryDairy  = "LACTEOS"
)

type loadMode string

const (
	modePlace            loadMode = "place"
	modePlaceConfirm     loadMode = "place-confirm"
	modePlaceEditConfirm loadMode = "place-edit-confirm"
)

type config struct {
	addr        string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	cancelRate  int
	currency    string
	unitPrice   string
	outputPath  string
}

// orderingCaller описывает часть grpcsvc.OrderingClient, нужную сценариям.
type orderingCaller interface {
	Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// catalog хранит данные, заведённые перед прогоном.
type catalog struct {
	pointOfSalePhone string
	distributorPhone string
	mainProduct      string
	extraProduct     string
	address          map[string]any
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time               `json:"started_at"`
	DurationSeconds   float64                 `json:"duration_seconds"`
	TotalScenarios    int64                   `json:"total_scenarios"`
	SuccessScenarios  int64                   `json:"success_scenarios"`
	FailedScenarios   int64                   `json:"failed_scenarios"`
	ErrorRate         float64                 `json:"error_rate"`
	RPS               float64                 `json:"rps"`
	ScenarioLatencyMs latencySummary          `json:"scenario_latency_ms"`
	Methods           map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

func (s *methodStats) report() methodReport {
	return methodReport{
		Calls:     s.calls,
		Success:   s.success,
		Failed:    s.failed,
		ErrorRate: ratio(s.failed, s.calls),
		Codes:     lo.Assign(s.codes),
		LatencyMs: buildLatencySummary(s.latencies),
	}
}

type collector struct {
	mu      sync.Mutex
	methods map[string]*methodStats
}

func newCollector() *collector {
	return &collector{methods: make(map[string]*methodStats)}
}

func (c *collector) record(method string, latency time.Duration, code codes.Code) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.methods[method]
	if !ok {
		stats = &methodStats{codes: make(map[string]int64)}
		c.methods[method] = stats
	}

	stats.calls++
	if code == codes.OK {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[code.String()]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Methods:         make(map[string]methodReport, len(c.methods)),
	}
	for name, stats := range c.methods {
		result.Methods[name] = stats.report()
	}

	if scenario, ok := result.Methods[scenarioMetric]; ok {
		result.TotalScenarios = scenario.Calls
		result.SuccessScenarios = scenario.Success
		result.FailedScenarios = scenario.Failed
		result.ErrorRate = scenario.ErrorRate
		result.ScenarioLatencyMs = scenario.LatencyMs
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}
	return result
}

func parseConfig(args []string) (config, error) {
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)

	var cfg config
	var modeValue string

	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 20, "number of gRPC client connections")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-RPC timeout")
	fs.StringVar(&modeValue, "mode", string(modePlace), "load mode: place | place-confirm | place-edit-confirm")
	fs.IntVar(&cfg.cancelRate, "cancel-rate", 0, "percent of orders canceled instead of confirmed (0..100)")
	fs.StringVar(&cfg.currency, "currency", "UYU", "order currency")
	fs.StringVar(&cfg.unitPrice, "unit-price", "45.50", "unit price of seeded products")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	var errs []error
	if cfg.duration < 0 {
		errs = append(errs, errors.New("duration must be >= 0"))
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		errs = append(errs, errors.New("total must be > 0 when duration is not set"))
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		errs = append(errs, errors.New("total must be > 0 when explicitly set with duration"))
	}
	if cfg.concurrency <= 0 {
		errs = append(errs, errors.New("concurrency must be > 0"))
	}
	if cfg.connections <= 0 {
		errs = append(errs, errors.New("connections must be > 0"))
	}
	if cfg.timeout <= 0 {
		errs = append(errs, errors.New("timeout must be > 0"))
	}
	if cfg.cancelRate < 0 || cfg.cancelRate > 100 {
		errs = append(errs, errors.New("cancel-rate must be between 0 and 100"))
	}
	if strings.TrimSpace(cfg.currency) == "" {
		errs = append(errs, errors.New("currency is required"))
	}
	if strings.TrimSpace(cfg.unitPrice) == "" {
		errs = append(errs, errors.New("unit-price is required"))
	}
	return cfg, errors.Join(errs...)
}

func parseMode(value string) (loadMode, error) {
	mode := loadMode(strings.TrimSpace(value))
	if !slices.Contains([]loadMode{modePlace, modePlaceConfirm, modePlaceEditConfirm}, mode) {
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
	return mode, nil
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	clients := make([]orderingCaller, 0, cfg.connections)
	for range cfg.connections {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create grpc client connection: %v\n", dialErr)
			os.Exit(1)
		}
		conns = append(conns, conn)
		clients = append(clients, grpcsvc.NewOrderingClient(conn))
	}
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	result, err := run(cfg, clients)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}

	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// run заводит каталог и гоняет сценарии заказа на всех воркерах.
func run(cfg config, clients []orderingCaller) (report, error) {
	if len(clients) == 0 {
		return report{}, errors.New("at least one client is required")
	}

	startedAt := time.Now()
	runID := fmt.Sprintf("%d%d", startedAt.Unix()%1_000_000, os.Getpid()%1000)
	col := newCollector()

	cat, err := seedCatalog(clients[0], cfg, runID, col)
	if err != nil {
		return report{}, fmt.Errorf("seed catalog: %w", err)
	}

	jobs := make(chan int, cfg.concurrency*2)
	var failures atomic.Int64
	var wg sync.WaitGroup

	for workerID := range cfg.concurrency {
		wg.Add(1)
		client := clients[workerID%len(clients)]
		go func() {
			defer wg.Done()
			for id := range jobs {
				if runErr := runScenario(client, cfg, cat, id, col); runErr != nil {
					failures.Add(1)
				}
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	result := col.buildReport(startedAt, time.Since(startedAt))
	if result.FailedScenarios == 0 && failures.Load() > 0 {
		result.FailedScenarios = failures.Load()
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}
	return result, nil
}

func seedCatalog(client orderingCaller, cfg config, runID string, col *collector) (catalog, error) {
	address := map[string]any{"city": "Montevideo", "street": "Rambla " + runID, "zip_code": "11300"}
	cat := catalog{
		pointOfSalePhone: "+5982" + runID,
		distributorPhone: "+5989" + runID,
		mainProduct:      "LOAD-MILK-" + runID,
		extraProduct:     "LOAD-CHEESE-" + runID,
		address:          address,
	}

	pointOfSale, err := invoke(client, cfg.timeout, col, grpcsvc.MethodRegisterPointOfSale, map[string]any{
		"name": "Load POS " + runID, "phone_number": cat.pointOfSalePhone, "address": address,
	})
	if err != nil {
		return catalog{}, err
	}
	distributor, err := invoke(client, cfg.timeout, col, grpcsvc.MethodRegisterDistributor, map[string]any{
		"name": "Load Distributor " + runID, "phone_number": cat.distributorPhone, "address": address,
		"categories": []any{categoryDairy},
	})
	if err != nil {
		return catalog{}, err
	}

	if _, err := invoke(client, cfg.timeout, col, grpcsvc.MethodAssignDistributor, map[string]any{
		"point_of_sale_id": idOf(pointOfSale, "point_of_sale"),
		"distributor_id":   idOf(distributor, "distributor"),
		"category":         categoryDairy,
	}); err != nil {
		return catalog{}, err
	}

	for _, externalID := range []string{cat.mainProduct, cat.extraProduct} {
		if _, err := invoke(client, cfg.timeout, col, grpcsvc.MethodCreateProduct, map[string]any{
			"external_product_id": externalID,
			"name":                externalID,
			"unit_price":          cfg.unitPrice,
			"currency":            cfg.currency,
			"category":            categoryDairy,
		}); err != nil {
			return catalog{}, err
		}
	}
	return cat, nil
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := range cfg.total {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

func runScenario(client orderingCaller, cfg config, cat catalog, index int, col *collector) (err error) {
	scenarioStart := time.Now()
	defer func() {
		col.record(scenarioMetric, time.Since(scenarioStart), grpcCode(err))
	}()

	created, err := invoke(client, cfg.timeout, col, grpcsvc.MethodCreateOrder, map[string]any{
		"point_of_sale_phone_number": cat.pointOfSalePhone,
		"distributor_phone_number":   cat.distributorPhone,
		"currency":                   cfg.currency,
		"delivery_address":           cat.address,
		"lines": []any{
			map[string]any{"external_product_id": cat.mainProduct, "quantity": 1 + index%5},
		},
	})
	if err != nil {
		return err
	}
	orderID := idOf(created, "order")
	if orderID == "" {
		return status.Error(codes.Internal, "create response returned empty order id")
	}

	if cfg.mode == modePlace {
		return nil
	}

	if cfg.mode == modePlaceEditConfirm {
		added, err := invoke(client, cfg.timeout, col, grpcsvc.MethodAddOrderLine, map[string]any{
			"order_id": orderID, "external_product_id": cat.extraProduct, "quantity": 2,
		})
		if err != nil {
			return err
		}
		if _, err := invoke(client, cfg.timeout, col, grpcsvc.MethodUpdateOrderLineQuantity, map[string]any{
			"order_id": orderID, "line_id": idOf(added, "line"), "quantity": 3,
		}); err != nil {
			return err
		}
	}

	finalStatus := "confirmed"
	if shouldCancelScenario(index, cfg.cancelRate) {
		finalStatus = "canceled"
	}
	_, err = invoke(client, cfg.timeout, col, grpcsvc.MethodUpdateOrderStatus, map[string]any{
		"order_id": orderID, "status": finalStatus,
	})
	return err
}

// invoke вызывает метод и записывает его латентность и код ответа.
func invoke(client orderingCaller, timeout time.Duration, col *collector, method string, req map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "build %s request: %v", method, err)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := client.Call(ctx, method, in)
	col.record(method, time.Since(start), grpcCode(err))
	if err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func idOf(resp map[string]any, key string) string {
	nested, _ := resp[key].(map[string]any)
	id, _ := nested["id"].(string)
	return id
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}

func shouldCancelScenario(index, cancelRate int) bool {
	if cancelRate <= 0 {
		return false
	}
	if cancelRate >= 100 {
		return true
	}
	return index%100 < cancelRate
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- путь к отчёту задаётся явно флагом CLI.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(w io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintln(w, "Load test summary")
	_, _ = fmt.Fprintf(w, "mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode, runTarget(cfg), result.TotalScenarios, result.SuccessScenarios, result.FailedScenarios, result.ErrorRate)
	_, _ = fmt.Fprintf(w, "duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	l := result.ScenarioLatencyMs
	_, _ = fmt.Fprintf(w, "scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		l.Min, l.Avg, l.P50, l.P95, l.P99, l.Max)

	names := lo.Without(lo.Keys(result.Methods), scenarioMetric)
	slices.Sort(names)
	for _, name := range names {
		stats := result.Methods[name]
		_, _ = fmt.Fprintf(w, "%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name, stats.Calls, stats.Success, stats.Failed, stats.ErrorRate, stats.LatencyMs.P95)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: lo.Sum(sorted) / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

// percentile интерполирует линейно между соседними рангами.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
