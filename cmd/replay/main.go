package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"holoui.ai/internal/menu"
	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/persistence/indexdb"
	persistlog "holoui.ai/internal/persistence/log"
)

// main rebuilds the session index from the audit log. The result lands in
// a fresh database so a live server's index is never touched.
func main() {
	var (
		dataDir  = flag.String("data", "./data", "runtime data directory holding audit/")
		outPath  = flag.String("out", "", "output sqlite path (default <data>/index/sessions.rebuilt.sqlite)")
		menusDir = flag.String("menus", "", "menu definition directory to index digests from (optional)")
		observer = flag.String("observer", "", "print the rebuilt history of this observer (optional)")
	)
	flag.Parse()

	out := *outPath
	if out == "" {
		out = filepath.Join(*dataDir, "index", "sessions.rebuilt.sqlite")
	}
	if _, err := os.Stat(out); err == nil {
		fmt.Fprintf(os.Stderr, "%s exists; remove it or pick another -out\n", out)
		os.Exit(2)
	}

	files, err := persistlog.AuditFiles(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list audit:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no audit files under", filepath.Join(*dataDir, "audit"))
		os.Exit(1)
	}

	store, err := indexdb.OpenSQLite(out, zerolog.Nop())
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	r := newReplayer(store)
	for _, path := range files {
		skipped, err := persistlog.ReadAudit(path, r.apply)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
		}
		r.skipped += skipped
	}

	if *menusDir != "" {
		set, err := def.LoadDir(*menusDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "menus:", err)
		}
		store.UpsertMenus(set)
	}
	if err := store.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close:", err)
		os.Exit(1)
	}
	if st := store.Stats(); st.DropEventTotal+st.DropLastTotal+st.DropMenuTotal > 0 || st.WriteFailedTotal > 0 {
		fmt.Fprintf(os.Stderr, "incomplete rebuild: %+v\n", st)
		os.Exit(1)
	}

	fmt.Printf("files=%d events=%d skipped=%d observers=%d remembered=%d -> %s\n",
		len(files), r.events, r.skipped, len(r.seen), r.remembered(), out)

	if *observer != "" {
		verify, err := indexdb.OpenSQLite(out, zerolog.Nop())
		if err != nil {
			fmt.Fprintln(os.Stderr, "reopen:", err)
			os.Exit(1)
		}
		defer verify.Close()
		if id, ok := verify.LoadLast(*observer); ok {
			fmt.Printf("last: %s\n", id)
		}
		evs, err := verify.History(context.Background(), *observer, 50)
		if err != nil {
			fmt.Fprintln(os.Stderr, "history:", err)
			os.Exit(1)
		}
		for _, ev := range evs {
			fmt.Printf("%s %s %s\n", ev.At.Format(time.RFC3339), ev.Kind, ev.MenuID)
		}
	}
}

// replayer applies audited events the way the live manager does: every
// event is indexed, and a close decides the remembered menu.
type replayer struct {
	store   *indexdb.SQLiteStore
	events  int
	skipped int
	seen    map[string]string
}

func newReplayer(store *indexdb.SQLiteStore) *replayer {
	return &replayer{store: store, seen: map[string]string{}}
}

func (r *replayer) apply(ev menu.SessionEvent) {
	r.events++
	// The store never blocks and drops on a full queue; wait for the writer.
	for st := r.store.Stats(); st.QueueDepth > st.QueueCapacity/2; st = r.store.Stats() {
		time.Sleep(5 * time.Millisecond)
	}
	r.store.Record(ev)
	if _, ok := r.seen[ev.ObserverID]; !ok {
		r.seen[ev.ObserverID] = ""
	}
	if ev.Kind != menu.EventClose {
		return
	}
	if ev.Remember {
		r.seen[ev.ObserverID] = ev.MenuID
		r.store.SaveLast(ev.ObserverID, ev.MenuID)
	} else {
		r.seen[ev.ObserverID] = ""
		r.store.SaveLast(ev.ObserverID, "")
	}
}

func (r *replayer) remembered() int {
	n := 0
	for _, m := range r.seen {
		if m != "" {
			n++
		}
	}
	return n
}
