package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// etch-listen follows the state websocket of a running etch daemon and prints
// every stroke as it arrives.

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type message struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type stateInit struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type stroke struct {
	Points []point `json:"points"`
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3002/ws/state", "etch state websocket URL")
		raw   = flag.Bool("raw", false, "Print frames as received")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	var writeMu sync.Mutex

	// The daemon pings every 20s.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if messageType != websocket.TextMessage {
				continue
			}
			if *raw {
				fmt.Printf("%s\n", payload)
				continue
			}
			handleTextMessage(payload)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// handleTextMessage prints one frame.
func handleTextMessage(payload []byte) {
	var m message
	if err := json.Unmarshal(payload, &m); err != nil {
		fmt.Printf("[TEXT] %s\n", payload)
		return
	}

	switch m.Type {
	case "state_init":
		var s stateInit
		if err := json.Unmarshal(m.Data, &s); err != nil {
			break
		}
		fmt.Printf("[INIT] stylus at (%.1f, %.1f) on %.0fx%.0f\n", s.X, s.Y, s.Width, s.Height)
		return

	case "stroke":
		var s stroke
		if err := json.Unmarshal(m.Data, &s); err != nil || len(s.Points) == 0 {
			break
		}
		first, last := s.Points[0], s.Points[len(s.Points)-1]
		fmt.Printf("[STROKE] %d points (%.1f, %.1f) -> (%.1f, %.1f)\n",
			len(s.Points), first.X, first.Y, last.X, last.Y)
		return

	case "stylus_reset":
		var p point
		if err := json.Unmarshal(m.Data, &p); err != nil {
			break
		}
		fmt.Printf("[RESET] stylus at (%.1f, %.1f)\n", p.X, p.Y)
		return
	}

	fmt.Printf("[%s] %s\n", m.Type, m.Data)
}
