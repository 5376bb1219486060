package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	get(strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/menus")
}

func historyCmd(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	observerID := fs.String("observer", "", "observer id")
	_ = fs.Parse(args)

	if *observerID == "" {
		fmt.Fprintln(os.Stderr, "missing -observer")
		os.Exit(2)
	}
	get(strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/history?observer=" + url.QueryEscape(*observerID))
}

func get(u string) {
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
