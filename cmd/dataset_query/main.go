package main

import (
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// dataset_query runs the triage query against a snapshot database: HIGH
// severity records whose patch availability is confirmed false. Records with
// unknown patch state do not match; the query asks for confirmed-unpatched,
// not not-confirmed-patched.
func main() {
	dbPath := flag.String("db", "./cvefuse.db", "Path to snapshot database")
	outPath := flag.String("out", "high_unpatched.csv", "Path to output CSV")
	limit := flag.Int("limit", 0, "Maximum rows to export (0 for all)")
	flag.Parse()

	log.Println("=== High Unpatched Query ===")
	log.Printf("Database: %s", *dbPath)
	log.Printf("Output: %s", *outPath)

	db, err := sql.Open("sqlite3", *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	query := `SELECT cve_id, description, severity, exploited, patch_available
		FROM vulnerability_models
		WHERE severity = 'HIGH' AND patch_available = 'false'
		ORDER BY cve_id`
	args := []any{}
	if *limit > 0 {
		query += " LIMIT ?"
		args = append(args, *limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer out.Close()

	writer := csv.NewWriter(out)
	if err := writer.Write([]string{"CVE ID", "Description", "Severity", "Exploited", "Patch Available"}); err != nil {
		log.Fatalf("Failed to write header: %v", err)
	}

	count := 0
	for rows.Next() {
		var cveID, description, severity, exploited, patch string
		if err := rows.Scan(&cveID, &description, &severity, &exploited, &patch); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		if err := writer.Write([]string{cveID, description, severity, exploited, patch}); err != nil {
			log.Fatalf("Failed to write row: %v", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Row iteration failed: %v", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Fatalf("Failed to flush output: %v", err)
	}

	log.Printf("✓ Exported %d high-severity unpatched records", count)
}
