package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pevans/listwatch/collector"
	"github.com/pevans/listwatch/notify"
	"github.com/pevans/listwatch/record"
	"github.com/pevans/listwatch/scoring"
)

// printRecordsTable prints records in human-readable table format
func printRecordsTable(records []record.Record, threshold float64, total, offset int) {
	if len(records) == 0 {
		fmt.Println("No records to display.")
		return
	}

	fmt.Printf("Showing %d-%d of %d records\n\n", offset+1, offset+len(records), total)

	// Print table header
	fmt.Printf("%-12s %-6s %-3s %-16s %s\n", "ID", "SCORE", "Q", "FIRST SEEN", "NAME")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, r := range records {
		marker := " "
		if scoring.Qualifies(r.Score, threshold) {
			marker = "*"
		}

		name := r.NameLocation
		if len([]rune(name)) > 40 {
			name = string([]rune(name)[:37]) + "..."
		}

		fmt.Printf("%-12s %6.2f %-3s %-16s %s\n",
			r.ID,
			r.Score,
			marker,
			r.FirstSeen.Format("2006-01-02 15:04"),
			name,
		)
	}
}

// printRecordsJSON prints records in JSON format
func printRecordsJSON(records []record.Record, total, offset int) {
	if records == nil {
		records = []record.Record{}
	}
	printJSON(map[string]any{
		"records": records,
		"total":   total,
		"offset":  offset,
	})
}

// printRecordDetail prints every field of one record
func printRecordDetail(r record.Record, threshold float64) {
	fmt.Println(notify.Summary(r))
	fmt.Println()
	fmt.Printf("ID:          %s\n", r.ID)
	fmt.Printf("Name:        %s\n", r.NameLocation)
	if r.Status != "" {
		fmt.Printf("Status:      %s\n", r.Status)
	}
	fmt.Printf("Profile:     %s\n", r.ProfileURL)
	fmt.Printf("Photo:       %s\n", r.PhotoURL)
	if r.AdditionalPhotos != "" {
		fmt.Printf("More photos: %s\n", r.AdditionalPhotos)
	}
	fmt.Printf("First seen:  %s\n", r.FirstSeen.Format("2006-01-02 15:04:05"))
	fmt.Printf("Score:       %.2f (qualifies: %t)\n", r.Score, scoring.Qualifies(r.Score, threshold))

	if len(r.Data) > 0 {
		fmt.Println()
		fmt.Println("Data:")
		keys := make([]string, 0, len(r.Data))
		for key := range r.Data {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Printf("  %-12s %s\n", key+":", r.Data[key])
		}
	}

	if len(r.Goals) > 0 {
		fmt.Println()
		fmt.Printf("Goals: %s\n", strings.Join(r.Goals, ", "))
	}

	if r.About != nil {
		fmt.Println()
		fmt.Println("About:")
		fmt.Println(*r.About)
	}
}

// printCycleJSON prints a cycle result in JSON format
func printCycleJSON(result *collector.CycleResult) {
	if result == nil {
		return
	}
	printJSON(result)
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}
