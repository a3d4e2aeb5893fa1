package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"github.com/marketflow/lob/config"
	"github.com/marketflow/lob/pkg/book"
	"github.com/marketflow/lob/pkg/db/queue"
	"github.com/marketflow/lob/pkg/logging"
	"github.com/marketflow/lob/pkg/messaging/kafka"
	"github.com/marketflow/lob/pkg/otel"
	"github.com/marketflow/lob/pkg/snapshot"
	"github.com/nikolaydubina/fpdecimal"
)

var (
	snapshotFile  = flag.String("snapshot", "", "Path to a snapshot JSON file to load")
	instrument    = flag.String("instrument", "BTC-USD", "Instrument name for Redis snapshot keys")
	fromRedis     = flag.Bool("from-redis", false, "Load the snapshot from Redis instead of a file")
	saveRedis     = flag.Bool("save-redis", false, "Save the resulting book state back to Redis")
	ordersFile    = flag.String("orders", "", "Path to a newline-delimited order file to replay")
	publisher     = flag.String("publisher", "", "Publish execution results to Kafka: queue (pooled sarama) or kafka (direct writer)")
	consume       = flag.Bool("consume", false, "Start a Kafka consumer echoing execution results")
	otelCollector = flag.String("otel-collector", "", "OTLP collector endpoint, e.g. localhost:4317 (empty disables tracing)")
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  cfg.Engine.LogLevel,
		Pretty: cfg.Engine.LogFormat == "pretty",
	})

	cleanup, err := otel.Init(otel.Config{
		Endpoint:         *otelCollector,
		CollectorEnabled: *otelCollector != "",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize OpenTelemetry")
	}
	defer cleanup()

	ctx := context.Background()
	ob := book.NewOrderBook()

	switch *publisher {
	case "":
	case "queue":
		sender, err := queue.NewQueueMessageSender()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Kafka producer")
		}
		defer sender.Close()
		ob.SetMessageSender(sender)
		log.Info().Str("broker", cfg.Kafka.BrokerAddr).Str("topic", cfg.Kafka.Topic).Msg("Publishing execution results via sarama")
	case "kafka":
		sender := kafka.NewSender(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic)
		defer sender.Close()
		ob.SetMessageSender(sender)
		log.Info().Str("broker", cfg.Kafka.BrokerAddr).Str("topic", cfg.Kafka.Topic).Msg("Publishing execution results via kafka-go")
	default:
		log.Fatal().Str("publisher", *publisher).Msg("Unknown publisher, expected queue or kafka")
	}

	if *consume {
		consumer, err := kafka.SetupConsumer(ctx, log.Logger)
		if err == nil && consumer != nil {
			defer consumer.Close()
		}
	}

	switch {
	case *fromRedis:
		client := snapshot.GetRedisClient()
		defer client.Close()

		store := snapshot.NewStore(client, "lob", 0, nil)
		snap, err := store.Load(ctx, *instrument)
		if err != nil {
			log.Fatal().Err(err).Str("instrument", *instrument).Msg("Failed to load snapshot from Redis")
		}
		if err := snap.Apply(ob); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply snapshot")
		}
		log.Info().Str("instrument", *instrument).Int("orders", ob.CountAll()).Msg("Loaded snapshot from Redis")

	case *snapshotFile != "":
		data, err := os.ReadFile(*snapshotFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", *snapshotFile).Msg("Failed to read snapshot file")
		}
		snap, err := snapshot.Parse(data)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to parse snapshot")
		}
		if err := snap.Apply(ob); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply snapshot")
		}
		log.Info().Str("file", *snapshotFile).Int("orders", ob.CountAll()).Msg("Loaded snapshot from file")
	}

	if *ordersFile != "" {
		if err := replayOrders(ctx, ob, *ordersFile); err != nil {
			log.Fatal().Err(err).Msg("Order replay failed")
		}
	}

	if err := renderBook(ob, cfg.Engine.DepthLevels); err != nil {
		log.Fatal().Err(err).Msg("Failed to render book")
	}

	if *saveRedis {
		client := snapshot.GetRedisClient()
		defer client.Close()

		store := snapshot.NewStore(client, "lob", 24*time.Hour, nil)
		snap := snapshot.Capture(ob, 0)
		if err := store.Save(ctx, *instrument, snap); err != nil {
			log.Fatal().Err(err).Msg("Failed to save snapshot to Redis")
		}
		log.Info().Str("instrument", *instrument).Msg("Saved book state to Redis")
	}
}

// replayOrders feeds orders from a text file through the match loop.
// Lines have the form:
//
//	LIMIT <id> BUY|SELL <quantity> <price>
//	MARKET <id> BUY|SELL <quantity>
//	CANCEL <id>
//
// Blank lines and lines starting with '#' are skipped.
func replayOrders(ctx context.Context, ob *book.OrderBook, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read order file: %w", err)
	}

	for lineNo, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if err := applyLine(ctx, ob, fields); err != nil {
			log.Warn().Err(err).Int("line", lineNo+1).Str("input", line).Msg("Skipping order")
		}
	}
	return nil
}

func applyLine(ctx context.Context, ob *book.OrderBook, fields []string) error {
	switch strings.ToUpper(fields[0]) {
	case "CANCEL":
		if len(fields) != 2 {
			return fmt.Errorf("CANCEL takes an order ID")
		}
		_, err := ob.Cancel(fields[1])
		return err

	case "LIMIT":
		if len(fields) != 5 {
			return fmt.Errorf("LIMIT takes id, side, quantity, price")
		}
		side, err := parseSide(fields[2])
		if err != nil {
			return err
		}
		qty, err := fpdecimal.FromString(fields[3])
		if err != nil {
			return fmt.Errorf("invalid quantity %q: %w", fields[3], err)
		}
		price, err := fpdecimal.FromString(fields[4])
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", fields[4], err)
		}
		order, err := book.NewLimitOrder(fields[1], side, qty, price)
		if err != nil {
			return err
		}
		done, err := ob.Process(ctx, order)
		if err != nil {
			return err
		}
		logDone(done)
		return nil

	case "MARKET":
		if len(fields) != 4 {
			return fmt.Errorf("MARKET takes id, side, quantity")
		}
		side, err := parseSide(fields[2])
		if err != nil {
			return err
		}
		qty, err := fpdecimal.FromString(fields[3])
		if err != nil {
			return fmt.Errorf("invalid quantity %q: %w", fields[3], err)
		}
		order, err := book.NewMarketOrder(fields[1], side, qty)
		if err != nil {
			return err
		}
		done, err := ob.Process(ctx, order)
		if err != nil {
			return err
		}
		logDone(done)
		return nil

	default:
		return fmt.Errorf("unknown action %q", fields[0])
	}
}

func parseSide(s string) (book.Side, error) {
	switch strings.ToUpper(s) {
	case "BUY":
		return book.Buy, nil
	case "SELL":
		return book.Sell, nil
	default:
		return book.Buy, fmt.Errorf("unknown side %q", s)
	}
}

func logDone(done *book.Done) {
	log.Info().
		Str("order_id", done.Order.ID()).
		Str("processed", done.Processed.String()).
		Str("left", done.Left.String()).
		Bool("stored", done.Stored).
		Int("trades", len(done.Trades)).
		Msg("Processed order")
}

// renderBook prints the book's depth, asks above bids, best prices at
// the middle of the table.
func renderBook(ob *book.OrderBook, depthLevels int) error {
	color.NoColor = false
	cyan := color.New(color.FgCyan).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()

	depth := ob.Depth(depthLevels)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)

	fmt.Fprintf(w, "%15s|%15s|%15s|%s\n",
		cyan("Price"),
		cyan("Quantity"),
		cyan("Orders"),
		cyan("Side"))

	separator := func() {
		fmt.Fprintf(w, "%15s|%15s|%15s|%s\n",
			"---------------",
			"---------------",
			"---------------",
			"----")
	}

	separator()

	// Asks print worst-first so the best ask sits next to the best bid
	for i := len(depth.Asks) - 1; i >= 0; i-- {
		level := depth.Asks[i]
		fmt.Fprintf(w, "%15.3f|%15.3f|%15d|%s\n",
			parseFloat(level.Price.String()),
			parseFloat(level.Volume.String()),
			level.Orders,
			red("ASK"))
	}

	separator()

	for _, level := range depth.Bids {
		fmt.Fprintf(w, "%15.3f|%15.3f|%15d|%s\n",
			parseFloat(level.Price.String()),
			parseFloat(level.Volume.String()),
			level.Orders,
			green("BID"))
	}

	if err := w.Flush(); err != nil {
		return err
	}

	printSummary(ob)
	return nil
}

func printSummary(ob *book.OrderBook) {
	if bid, err := ob.BestBid(); err == nil {
		fmt.Printf("Best bid: %s\n", bid.String())
	}
	if ask, err := ob.BestAsk(); err == nil {
		fmt.Printf("Best ask: %s\n", ask.String())
	}
	if spread, err := ob.Spread(); err == nil {
		bid, _ := ob.BestBid()
		ask, _ := ob.BestAsk()
		mid := (parseFloat(bid.String()) + parseFloat(ask.String())) / 2
		fmt.Printf("Spread: %s  Mid: %.3f\n", spread.String(), mid)
	}
	fmt.Printf("Resting orders: %d (bids %d / asks %d)\n",
		ob.CountAll(), ob.Count(book.Buy), ob.Count(book.Sell))
}

// Helper function to parse float strings safely
func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
