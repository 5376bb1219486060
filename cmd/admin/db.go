package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"holoui.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	observerID := fs.String("observer", "", "observer id (history, forget)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "last"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "sessions.sqlite")
	}
	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "last":
		db := openDB(path)
		defer db.Close()
		rows, err := db.Query(`SELECT observer_id, menu_id, updated_at FROM last_sessions ORDER BY updated_at DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				ObserverID string `json:"observer_id"`
				MenuID     string `json:"menu_id"`
				UpdatedAt  string `json:"updated_at"`
			}
			if err := rows.Scan(&r.ObserverID, &r.MenuID, &r.UpdatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}

	case "menus":
		db := openDB(path)
		defer db.Close()
		rows, err := db.Query(`SELECT menu_id, digest, updated_at FROM menus ORDER BY menu_id LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				MenuID    string `json:"menu_id"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.MenuID, &r.Digest, &r.UpdatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}

	case "history":
		if *observerID == "" {
			fmt.Fprintln(os.Stderr, "missing -observer")
			os.Exit(2)
		}
		store := openStore(path)
		defer store.Close()
		evs, err := store.History(context.Background(), *observerID, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, ev := range evs {
			printJSON(ev)
		}

	case "forget":
		if *observerID == "" {
			fmt.Fprintln(os.Stderr, "missing -observer")
			os.Exit(2)
		}
		store := openStore(path)
		store.SaveLast(*observerID, "")
		if err := store.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "close:", err)
			os.Exit(1)
		}
		fmt.Printf("forgot last session of %s\n", *observerID)

	default:
		fmt.Fprintf(os.Stderr, "unknown query %q (last, menus, history, forget)\n", q)
		os.Exit(2)
	}
}

func openDB(path string) *sql.DB {
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return db
}

func openStore(path string) *indexdb.SQLiteStore {
	store, err := indexdb.OpenSQLite(path, zerolog.Nop())
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return store
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
