package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"placetap/internal/engine/codec"
	"placetap/internal/engine/fetch"
	"placetap/internal/engine/places"
	"placetap/internal/engine/storage"
	"placetap/internal/model"
	"placetap/internal/tui"
)

// currentWorker hands the in-flight worker to the signal handler. One
// handler goroutine lives for the whole session; the pointer is swapped
// each page so a stop always reaches the active invocation.
type currentWorker struct {
	mu      sync.Mutex
	worker  *fetch.Worker
	stopped bool
}

func (c *currentWorker) set(w *fetch.Worker) {
	c.mu.Lock()
	c.worker = w
	c.mu.Unlock()
}

func (c *currentWorker) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.worker != nil {
		c.worker.Stop()
	}
}

func (c *currentWorker) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func runFetch(args []string) error {
	var query, output, input, dbPath, lang, key string
	var count int

	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	fs.StringVar(&query, "query", "", "Search query (required)")
	fs.IntVar(&count, "count", 10, "Total number of listings to collect")
	fs.StringVar(&output, "output", "", "Output file: .json, .csv or .xlsx (required)")
	fs.StringVar(&input, "input", "", "Existing data file to seed deduplication (new listings are appended to it)")
	fs.StringVar(&dbPath, "db", "", "Also archive accepted listings into this sqlite db")
	fs.StringVar(&lang, "lang", "en", "Result language")
	fs.StringVar(&key, "key", "", "Places API key (default: PLACES_API_KEY)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: placetap fetch [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  placetap fetch -query \"restaurants in Madrid\" -count 40 -output madrid.json\n")
		fmt.Fprintf(os.Stderr, "  placetap fetch -query cafes -input cafes.csv -output cafes.csv\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Validation
	if key == "" {
		key = os.Getenv("PLACES_API_KEY")
	}
	if err := places.ValidateAPIKey(key); err != nil {
		return fmt.Errorf("invalid api key: %w", err)
	}
	if err := places.ValidateQuery(query); err != nil {
		return err
	}
	if output == "" {
		return fmt.Errorf("-output is required")
	}
	if _, err := codec.DetectFormat(output); err != nil {
		return err
	}

	// Seed session state from the input file, if any
	var records []model.BusinessRecord
	seen := make(map[string]struct{})
	if input != "" {
		var err error
		var urls map[string]struct{}
		records, urls, err = codec.Load(input)
		if err != nil {
			return err
		}
		seen = urls
		fmt.Fprintf(os.Stderr, "Seeded %d existing listings from %s\n", len(records), input)
	}

	// Session log next to the output file
	logPath := strings.TrimSuffix(output, filepath.Ext(output)) + ".log"
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logFile.Close()
	logger := log.New(logFile, "", log.LstdFlags)
	logger.Printf("=== Session start: query=%q count=%d input=%q output=%q ===", query, count, input, output)

	var store *storage.Store
	if dbPath != "" {
		store, err = storage.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		defer store.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := places.NewClient(key, lang)

	// One signal watcher for the whole loop. The stop is cooperative:
	// the active worker finishes its current entry, then the loop exits.
	cur := &currentWorker{}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for {
			select {
			case <-sigCh:
				fmt.Fprintln(os.Stderr, "\nStopping after current entry...")
				cur.stop()
			case <-ctx.Done():
				return
			}
		}
	}()

	pageToken := ""
	for {
		if cur.isStopped() {
			break
		}
		var fetchErr error
		var hasMore bool

		worker := fetch.New(client, fetch.Params{
			Query:     query,
			Target:    count,
			PageToken: pageToken,
		}, seen, records, logger, fetch.Callbacks{
			OnBatch: func(batch []model.BusinessRecord) {
				records = append(records, batch...)
				for _, r := range batch {
					seen[r.GMapsURL] = struct{}{}
				}
				if store != nil {
					if _, err := store.InsertBatch(batch); err != nil {
						logger.Printf("ARCHIVE_ERROR err=%v", err)
					}
				}
				if input != "" {
					if err := codec.Append(batch, input); err != nil {
						logger.Printf("APPEND_ERROR file=%s err=%v", input, err)
					}
				}
			},
			OnProgress: func(label string, _ int) {
				fmt.Fprintf(os.Stderr, "\r%s", label)
			},
			OnError: func(msg string) {
				fetchErr = fmt.Errorf("%s", msg)
			},
			OnDone: func(more, success bool) {
				hasMore = more
				if !success && fetchErr == nil {
					fetchErr = fmt.Errorf("fetch failed")
				}
			},
		})

		cur.set(worker)
		worker.Run(ctx)
		cur.set(nil)

		if fetchErr != nil {
			logger.Printf("ERROR %v", fetchErr)
			return fetchErr
		}
		if !hasMore || len(records) >= count {
			break
		}
		pageToken = worker.NextPageToken()
	}
	fmt.Fprintln(os.Stderr)

	if err := codec.Save(records, output); err != nil {
		return err
	}

	logger.Printf("Done: collected=%d output=%s", len(records), output)

	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Fetch Complete\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Query:      %s\n", query)
	fmt.Fprintf(os.Stderr, "  Collected:  %d\n", len(records))
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", output)
	if dbPath != "" {
		fmt.Fprintf(os.Stderr, "  Archive:    %s\n", dbPath)
	}
	fmt.Fprintf(os.Stderr, "  Log:        %s\n", logPath)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")

	tui.SaveRecent(output)

	return nil
}
