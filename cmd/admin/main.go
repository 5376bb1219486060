package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"holoui.ai/internal/menu"
	"holoui.ai/internal/menu/def"
	persistlog "holoui.ai/internal/persistence/log"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "validate":
			validateCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "history":
			historyCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the audit log files in the data directory.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	files, err := persistlog.AuditFiles(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, f := range files {
		fmt.Println(filepath.Base(f))
	}
}

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	menusDir := fs.String("menus", "./configs/menus", "menu definition directory")
	_ = fs.Parse(args)

	set, err := def.LoadDir(*menusDir)
	if set == nil && err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	ids := set.IDs()
	sort.Strings(ids)
	for _, id := range ids {
		m, _ := set.Get(id)
		fmt.Printf("ok   %-24s components=%d digest=%s\n", id, len(m.Components), shortDigest(m.Digest))
	}
	if err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Printf("FAIL %s\n", line)
		}
		os.Exit(1)
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	observerID := fs.String("observer", "", "observer id filter (optional)")
	menuID := fs.String("menu", "", "menu id filter (optional)")
	since := fs.String("since", "", "only entries at or after this RFC3339 time (optional)")
	asJSON := fs.Bool("json", false, "print raw JSON lines")
	_ = fs.Parse(args)

	var sinceT time.Time
	if s := strings.TrimSpace(*since); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -since:", err)
			os.Exit(2)
		}
		sinceT = t
	}

	files, err := persistlog.AuditFiles(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	n := 0
	for _, path := range files {
		_, err := persistlog.ReadAudit(path, func(ev menu.SessionEvent) {
			if *observerID != "" && ev.ObserverID != *observerID {
				return
			}
			if *menuID != "" && !strings.EqualFold(ev.MenuID, *menuID) {
				return
			}
			if !sinceT.IsZero() && ev.At.Before(sinceT) {
				return
			}
			n++
			if *asJSON {
				b, _ := json.Marshal(ev)
				fmt.Println(string(b))
				return
			}
			remember := ""
			if ev.Remember {
				remember = " (remembered)"
			}
			fmt.Printf("%s %-14s %-20s %s%s\n", ev.At.UTC().Format(time.RFC3339), ev.Kind, ev.ObserverID, ev.MenuID, remember)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(path), err)
		}
	}
	if !*asJSON {
		fmt.Printf("%d entries\n", n)
	}
}
