package main

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"go-elevator-bank/pkg/bank"

	"github.com/gorilla/websocket"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Message types

type ClientMessage struct {
	Action    string      `json:"action"`
	Config    *BankConfig `json:"config,omitempty"`
	Floor     int         `json:"floor,omitempty"`
	Car       int         `json:"car,omitempty"`
	Direction string      `json:"direction,omitempty"`
}

// BankConfig lets the client override simulation parameters on init.
// Zero fields keep the server-side configuration.
type BankConfig struct {
	ID     string `json:"id"`
	Floors int    `json:"floors"`
	Cars   int    `json:"cars"`
	TickMs int    `json:"tickMs"`
	DoorMs int    `json:"doorMs"`
}

type ServerMessage struct {
	Type      string      `json:"type"`
	EventType string      `json:"eventType,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
	State     *bank.State `json:"state,omitempty"`
}

// BankSession manages a WebSocket connection with a bank instance.
type BankSession struct {
	conn    *websocket.Conn
	baseCfg bank.Config
	bank    *bank.Bank
	mu      sync.Mutex
	done    chan struct{}
	cancel  context.CancelFunc
}

func NewBankSession(conn *websocket.Conn, baseCfg bank.Config) *BankSession {
	return &BankSession{
		conn:    conn,
		baseCfg: baseCfg,
		done:    make(chan struct{}),
	}
}

func (s *BankSession) HandleMessages() {
	slog.Info("Session started", "remote_addr", s.conn.RemoteAddr())
	defer func() {
		close(s.done)
		if s.cancel != nil {
			s.cancel()
		}
		_ = s.conn.Close()
		slog.Info("Session ended", "remote_addr", s.conn.RemoteAddr())
	}()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket read error", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Warn("Failed to parse message", "error", err)
			continue
		}

		s.handleAction(msg)
	}
}

func (s *BankSession) handleAction(msg ClientMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Debug("Action received", "action", msg.Action, "payload", msg)

	switch msg.Action {
	case "init":
		s.initBank(msg.Config)
	case "call":
		if s.bank != nil {
			s.bank.Call(msg.Floor, parseDirection(msg.Direction))
			s.sendState()
		}
	case "pressButton":
		if s.bank != nil {
			s.bank.PressCarButton(msg.Car, msg.Floor)
			s.sendState()
		}
	case "reset":
		if s.bank != nil {
			s.bank.Reset()
			s.sendState()
		}
	case "stop":
		if s.cancel != nil {
			s.cancel()
		}
		s.bank = nil
	case "getState":
		if s.bank != nil {
			s.sendState()
		}
	}
}

func (s *BankSession) initBank(cfg *BankConfig) {
	// Stop existing bank if any
	if s.cancel != nil {
		s.cancel()
	}

	config := s.baseCfg
	if cfg != nil {
		if cfg.ID != "" {
			config.ID = cfg.ID
		}
		if cfg.Floors != 0 {
			config.Floors = cfg.Floors
		}
		if cfg.Cars != 0 {
			config.Cars = cfg.Cars
		}
		if cfg.TickMs != 0 {
			config.TickInterval = time.Duration(cfg.TickMs) * time.Millisecond
		}
		if cfg.DoorMs != 0 {
			config.DoorOpenDuration = time.Duration(cfg.DoorMs) * time.Millisecond
		}
	}
	slog.Info("Bank config", "config", config)

	b, err := bank.New(config)
	if err != nil {
		slog.Error("Failed to initialize bank", "error", err)
		return
	}
	s.bank = b

	// Subscribe to engine events
	go s.eventListener()

	// Start the simulation clock
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		if err := b.Run(ctx); err != nil && err != context.Canceled {
			slog.Error("Bank run error", "error", err)
		}
	}()

	slog.Info("Bank initialized", "id", config.ID, "floors", config.Floors, "cars", config.Cars)

	// Send initial state
	s.sendState()
}

func (s *BankSession) eventListener() {
	eventCh := s.bank.Events()
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			s.sendEvent(event)
			s.sendState()
		}
	}
}

func (s *BankSession) sendState() {
	if s.bank == nil {
		return
	}

	state := s.bank.Snapshot()
	s.writeJSON(ServerMessage{
		Type:  "state",
		State: &state,
	})
}

func (s *BankSession) sendEvent(event bank.Event) {
	s.writeJSON(ServerMessage{
		Type:      "event",
		EventType: string(event.Type),
		Payload:   event.Payload,
		Timestamp: event.Timestamp.Format("15:04:05"),
	})
}

func (s *BankSession) writeJSON(msg ServerMessage) {
	if err := s.conn.WriteJSON(msg); err != nil {
		slog.Error("Failed to write JSON message", "error", err)
	}
}

func parseDirection(s string) bank.Direction {
	switch s {
	case "up":
		return bank.DirUp
	case "down":
		return bank.DirDown
	default:
		// The engine rejects anything else as a logged no-op.
		return bank.Direction(s)
	}
}

type AppConfig struct {
	Port       string
	ConfigPath string
}

func loadAppConfig() *AppConfig {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return &AppConfig{
		Port:       port,
		ConfigPath: os.Getenv("BANK_CONFIG"),
	}
}

func main() {
	appCfg := loadAppConfig()

	baseCfg := bank.DefaultConfig()
	if appCfg.ConfigPath != "" {
		cfg, err := bank.LoadConfig(appCfg.ConfigPath)
		if err != nil {
			log.Fatal(err)
		}
		baseCfg = cfg
	}

	// Serve static files from embedded filesystem
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatal(err)
	}

	http.Handle("/", http.FileServer(http.FS(staticFS)))
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("WebSocket upgrade failed", "error", err)
			return
		}
		NewBankSession(conn, baseCfg).HandleMessages()
	})

	addr := ":" + appCfg.Port
	slog.Info("Starting elevator bank server", "addr", addr)
	slog.Info("Open http://localhost:" + appCfg.Port + " in your browser")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}
