package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/cheese-board/internal/httpapi"
)

func main() {
	baseURL := flag.String("url", envOr("BOARD_BASE_URL", "http://localhost:8080"), "board server base URL")
	mode := flag.String("mode", "pvp", "match mode to exercise (pvp or pvc)")
	difficulty := flag.String("difficulty", "", "computer difficulty for pvc")
	pngOut := flag.String("png", "", "write the final board image to this file")
	flag.Parse()

	client := httpapi.NewClient(*baseURL, httpapi.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	h, err := client.Health(ctx)
	if err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Printf("/healthz ok: matches=%d oracle=%t", h.Matches, h.Oracle)

	m, err := client.CreateMatch(ctx, *mode, *difficulty)
	if err != nil {
		log.Fatalf("create match error: %v", err)
	}
	log.Printf("match %s created: mode=%s difficulty=%q", m.ID, m.Mode, m.Difficulty)
	defer func() {
		if err := client.CloseMatch(context.Background(), m.ID); err != nil {
			log.Printf("close match error: %v", err)
		}
	}()

	for _, sq := range []string{"e2", "e4"} {
		if m, err = client.Click(ctx, m.ID, sq); err != nil {
			log.Printf("click %s error: %v", sq, err)
			return
		}
		log.Printf("click %s: %s", sq, m.Click.Outcome)
	}

	// Give the computer its scheduling delay and a frame or two to answer
	if m.Mode == "pvc" {
		deadline := time.Now().Add(10 * time.Second)
		for m.State == "cpu_pending" && time.Now().Before(deadline) {
			time.Sleep(250 * time.Millisecond)
			if m, err = client.GetMatch(ctx, m.ID); err != nil {
				log.Printf("poll error: %v", err)
				return
			}
		}
	}
	fmt.Printf("history: %s\nturn: %s  white %s  black %s\n", strings.Join(m.History, " "), m.Turn,
		time.Duration(m.WhiteClockMs)*time.Millisecond, time.Duration(m.BlackClockMs)*time.Millisecond)

	if *pngOut != "" {
		img, err := client.BoardPNG(ctx, m.ID)
		if err != nil {
			log.Printf("board image error: %v", err)
			return
		}
		if err := os.WriteFile(*pngOut, img, 0o644); err != nil {
			log.Printf("write %s: %v", *pngOut, err)
			return
		}
		log.Printf("board image written to %s (%d bytes)", *pngOut, len(img))
	}
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
