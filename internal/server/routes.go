package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/m16khb/liar-game-sub001/internal"
	"github.com/m16khb/liar-game-sub001/internal/game"
	"github.com/m16khb/liar-game-sub001/internal/utils"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	r.HandleFunc("/healthz", s.HealthHandler).Methods(http.MethodGet)

	r.HandleFunc("/rooms", s.ListRooms).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.CreateRoom).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/ws/{roomCode}", s.broker.HandleWebSocket)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// If it's a websocket upgrade, skip further CORS checks
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}

	jsonResp, err := json.Marshal(resp)
	if err != nil {
		log.Printf("error handling JSON marshal. Err: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(jsonResp)
}

// ListRooms returns the public rooms currently open for joining.
func (s *Server) ListRooms(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	rooms := s.registry.JoinableRooms()

	resp := internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data:          rooms,
	}
	s.writeResponse(w, resp)
}

// CreateRoom reserves a fresh room code. The room itself materializes when
// its first player connects, so an abandoned code costs nothing.
func (s *Server) CreateRoom(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	// Regenerate on the off chance the code is already live.
	code := utils.GenerateRoomCode()
	for i := 0; i < 5; i++ {
		if _, exists := s.registry.Get(code); !exists {
			break
		}
		code = utils.GenerateRoomCode()
	}

	resp := internal.Response{
		StatusCode:    http.StatusCreated,
		RespStartTime: startTime,
		Data:          map[string]string{"room_code": code},
	}
	s.writeResponse(w, resp)
}

func (s *Server) writeResponse(w http.ResponseWriter, resp internal.Response) {
	endTime := time.Now().UnixMilli()
	resp.RespEndTime = endTime
	resp.NetRespTime = endTime - resp.RespStartTime

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Error encoding response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Server wires the HTTP surface to the room registry and connection broker.
type Server struct {
	port     int
	registry *game.Registry
	broker   *game.Broker
}

func NewServer(port int, registry *game.Registry, broker *game.Broker) *http.Server {
	s := &Server{
		port:     port,
		registry: registry,
		broker:   broker,
	}

	return &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      s.RegisterRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // WebSocket connections are long-lived
		IdleTimeout:  time.Minute,
	}
}
