package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/marketflow/lob/pkg/book"
	"github.com/marketflow/lob/pkg/otel"
	"github.com/nikolaydubina/fpdecimal"
)

// loadConfig holds the load test parameters, read from environment
// variables with LOB_ prefixes
type loadConfig struct {
	NumWorkers      int
	OrdersPerWorker int
	MaxRate         int
	PriceMin        float64
	PriceMax        float64
	MarketRatio     float64
	OtelCollector   string
}

func loadTestConfig() (*loadConfig, error) {
	v := viper.New()

	v.SetDefault("LOB_NUM_WORKERS", 8)
	v.SetDefault("LOB_ORDERS_PER_WORKER", 100000)
	v.SetDefault("LOB_MAX_RATE", 500000)
	v.SetDefault("LOB_PRICE_MIN", 95.0)
	v.SetDefault("LOB_PRICE_MAX", 105.0)
	v.SetDefault("LOB_MARKET_RATIO", 0.1)
	v.SetDefault("LOB_OTEL_COLLECTOR", "")

	v.AutomaticEnv()

	cfg := &loadConfig{
		NumWorkers:      v.GetInt("LOB_NUM_WORKERS"),
		OrdersPerWorker: v.GetInt("LOB_ORDERS_PER_WORKER"),
		MaxRate:         v.GetInt("LOB_MAX_RATE"),
		PriceMin:        v.GetFloat64("LOB_PRICE_MIN"),
		PriceMax:        v.GetFloat64("LOB_PRICE_MAX"),
		MarketRatio:     v.GetFloat64("LOB_MARKET_RATIO"),
		OtelCollector:   v.GetString("LOB_OTEL_COLLECTOR"),
	}

	if cfg.NumWorkers <= 0 {
		return nil, fmt.Errorf("LOB_NUM_WORKERS must be positive")
	}
	if cfg.OrdersPerWorker <= 0 {
		return nil, fmt.Errorf("LOB_ORDERS_PER_WORKER must be positive")
	}
	if cfg.PriceMin <= 0 || cfg.PriceMax <= cfg.PriceMin {
		return nil, fmt.Errorf("price range [%v, %v] is invalid", cfg.PriceMin, cfg.PriceMax)
	}
	if cfg.MarketRatio < 0 || cfg.MarketRatio > 1 {
		return nil, fmt.Errorf("LOB_MARKET_RATIO must be within [0, 1]")
	}

	return cfg, nil
}

func main() {
	cfg, err := loadTestConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	cleanup, err := otel.Init(otel.Config{
		Endpoint:         cfg.OtelCollector,
		CollectorEnabled: cfg.OtelCollector != "",
	})
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer cleanup()

	ob := book.NewOrderBook()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Println("Received interrupt signal, cleaning up...")
		cancel()
	}()

	limiter := rate.NewLimiter(rate.Limit(cfg.MaxRate), cfg.MaxRate)
	var wg sync.WaitGroup

	// One latency histogram per worker, merged after the run; a shared
	// histogram would need a lock on the hot path
	histograms := make([]*hdrhistogram.Histogram, cfg.NumWorkers)
	errCounts := make([]int, cfg.NumWorkers)

	totalOrders := cfg.NumWorkers * cfg.OrdersPerWorker
	start := time.Now()
	log.Printf("Starting %d workers, %d orders per worker...", cfg.NumWorkers, cfg.OrdersPerWorker)

	for i := 0; i < cfg.NumWorkers; i++ {
		wg.Add(1)
		// Latency range 1ns to 10s at 3 significant figures
		histograms[i] = hdrhistogram.New(1, 10_000_000_000, 3)

		go func(workerID int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
			hist := histograms[workerID]

			for j := 0; j < cfg.OrdersPerWorker; j++ {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				order := generateRandomOrder(cfg, r, workerID*cfg.OrdersPerWorker+j)
				began := time.Now()
				_, err := ob.Process(ctx, order)
				elapsed := time.Since(began).Nanoseconds()

				if err != nil {
					// Market orders against an empty side are expected
					// early in the run
					errCounts[workerID]++
					continue
				}
				_ = hist.RecordValue(elapsed)
			}
		}(i)
	}

	wg.Wait()
	duration := time.Since(start)

	merged := hdrhistogram.New(1, 10_000_000_000, 3)
	errors := 0
	for i := 0; i < cfg.NumWorkers; i++ {
		merged.Merge(histograms[i])
		errors += errCounts[i]
	}

	log.Printf("Load test completed in %v", duration)
	log.Printf("Total orders attempted: %d", totalOrders)
	log.Printf("Throughput: %.0f orders/sec", float64(totalOrders)/duration.Seconds())
	log.Printf("Rejected orders: %d", errors)
	log.Printf("Resting orders at end: %d", ob.CountAll())
	log.Printf("Latency p50: %v", time.Duration(merged.ValueAtQuantile(50)))
	log.Printf("Latency p99: %v", time.Duration(merged.ValueAtQuantile(99)))
	log.Printf("Latency p99.9: %v", time.Duration(merged.ValueAtQuantile(99.9)))
	log.Printf("Latency max: %v", time.Duration(merged.Max()))
}

func generateRandomOrder(cfg *loadConfig, r *rand.Rand, orderNum int) *book.Order {
	side := book.Buy
	if r.Float64() < 0.5 {
		side = book.Sell
	}

	quantity := fpdecimal.FromFloat(1.0 + r.Float64()*9.0)

	if r.Float64() < cfg.MarketRatio {
		order, _ := book.NewMarketOrder(fmt.Sprintf("mkt-%d", orderNum), side, quantity)
		return order
	}

	price := cfg.PriceMin + r.Float64()*(cfg.PriceMax-cfg.PriceMin)
	order, _ := book.NewLimitOrder(fmt.Sprintf("order-%d", orderNum), side, quantity, fpdecimal.FromFloat(price))
	return order
}
