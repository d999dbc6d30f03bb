package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"voucher-market/internal/config"
)

const staleCodesFilter = `expires_at < $1 OR (used = true AND created_at < $2)`

// One-shot housekeeping for deployments that do not run the in-process cleanup job
func main() {
	usedRetention := flag.Duration("used-retention", 24*time.Hour, "keep consumed codes for this long")
	dryRun := flag.Bool("dry-run", false, "only count the codes that would be deleted")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	fmt.Println("✅ Connected to database")

	now := time.Now().UTC()
	usedBefore := now.Add(-*usedRetention)

	if *dryRun {
		var count int64
		err := db.QueryRow(`SELECT COUNT(*) FROM otp_tokens WHERE `+staleCodesFilter, now, usedBefore).Scan(&count)
		if err != nil {
			log.Fatalf("Failed to count stale codes: %v", err)
		}
		fmt.Printf("🔎 %d login codes would be deleted\n", count)
		return
	}

	result, err := db.Exec(`DELETE FROM otp_tokens WHERE `+staleCodesFilter, now, usedBefore)
	if err != nil {
		log.Fatalf("Failed to delete stale codes: %v", err)
	}
	rows, _ := result.RowsAffected()
	fmt.Printf("🗑️  Deleted %d login codes\n", rows)
}
