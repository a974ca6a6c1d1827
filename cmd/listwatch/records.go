package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/pevans/listwatch/record"
	"github.com/pevans/listwatch/scoring"
	"github.com/pevans/listwatch/store"
)

func handleRecordsCommand(action, configPath string, args []string) {
	if action == "help" || action == "--help" || action == "-h" {
		printRecordsUsage()
		return
	}

	cfg := loadConfig(configPath)

	// Initialize record store
	ctx := context.Background()
	recordStore, err := openStore(ctx, cfg, log.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer recordStore.Close()

	threshold := cfg.Scoring.Threshold

	switch action {
	case "list":
		handleRecordsList(recordStore, threshold, args)
	case "show":
		handleRecordsShow(recordStore, threshold, args)
	case "delete":
		handleRecordsDelete(ctx, recordStore, args)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown records command: %s\n\n", action)
		printRecordsUsage()
		recordStore.Close()
		os.Exit(1)
	}
}

func handleRecordsList(recordStore *store.Store, threshold float64, args []string) {
	// Parse flags for list command
	fs := flag.NewFlagSet("records list", flag.ExitOnError)
	qualified := fs.Bool("qualified", false, "Show only qualifying records")
	minScore := fs.Float64("min-score", 0, "Show only records scoring at least this much")
	sortBy := fs.String("sort", "score", "Sort by: score, first-seen, id")
	limit := fs.Int("limit", 20, "Maximum number of records to display")
	offset := fs.Int("offset", 0, "Number of records to skip")
	format := fs.String("format", "table", "Output format: table, json")
	fs.Parse(args)

	// Apply filters
	var filtered []record.Record
	for _, r := range recordStore.List() {
		if *qualified && !scoring.Qualifies(r.Score, threshold) {
			continue
		}
		if r.Score < *minScore {
			continue
		}
		filtered = append(filtered, r)
	}

	// Sort records; List is already ordered by id
	switch *sortBy {
	case "score":
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Score > filtered[j].Score
		})
	case "first-seen":
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].FirstSeen.After(filtered[j].FirstSeen)
		})
	case "id":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid sort field: %s\n", *sortBy)
		os.Exit(1)
	}

	total := len(filtered)

	// Apply pagination
	start := min(max(*offset, 0), total)
	end := total
	if *limit > 0 {
		end = min(start+*limit, total)
	}
	page := filtered[start:end]

	switch *format {
	case "json":
		printRecordsJSON(page, total, start)
	default:
		printRecordsTable(page, threshold, total, start)
	}
}

func handleRecordsShow(recordStore *store.Store, threshold float64, args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: record ID is required\n")
		fmt.Fprintf(os.Stderr, "Usage: listwatch records show <record-id>\n")
		os.Exit(1)
	}

	r, ok := recordStore.Get(args[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: record not found: %s\n", args[0])
		os.Exit(1)
	}

	printRecordDetail(r, threshold)
}

func handleRecordsDelete(ctx context.Context, recordStore *store.Store, args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: record ID is required\n")
		fmt.Fprintf(os.Stderr, "Usage: listwatch records delete <record-id>\n")
		os.Exit(1)
	}

	recordID := args[0]

	if !recordStore.Delete(recordID) {
		fmt.Fprintf(os.Stderr, "Error: record not found: %s\n", recordID)
		os.Exit(1)
	}

	if err := recordStore.Save(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to delete record: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Deleted record: %s\n", recordID)
}
