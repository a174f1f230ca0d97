package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/koyak/kombat_backend/internal/battle"
	"github.com/koyak/kombat_backend/internal/database"
	"github.com/koyak/kombat_backend/internal/fighter"
	"github.com/koyak/kombat_backend/internal/logging"
	"github.com/koyak/kombat_backend/internal/postmatch"
	"github.com/koyak/kombat_backend/internal/profile"
	"github.com/koyak/kombat_backend/internal/types"
)

// Server is the HTTP and WebSocket surface of the battle backend
type Server struct {
	router     *gin.Engine
	manager    *MatchManager
	profileSvc *profile.Service
	pipeline   *postmatch.Pipeline
	worker     *postmatch.VideoWorker
	stash      *SetupStash
	db         *database.Database
	config     Config

	audioCache map[string]audioEntry
	cacheMutex sync.RWMutex
}

type audioEntry struct {
	data      []byte
	timestamp time.Time
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
	EnableCompression: true,
}

// NewServer wires the full application: middleware, match manager, profile
// pipeline, video worker and all routes.
func NewServer(cfg Config, db *database.Database) (*Server, error) {
	router := gin.New()

	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware())
	router.Use(RecoveryMiddleware())
	router.Use(ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, Range")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, HEAD")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	server := &Server{
		router:     router,
		stash:      NewSetupStash(),
		db:         db,
		config:     cfg,
		audioCache: make(map[string]audioEntry),
	}

	profiler, err := profile.NewPersonaProfiler(cfg.OpenAIKey, cfg.ProfilerModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create persona profiler: %v", err)
	}
	server.profileSvc = profile.NewService(profile.NewScraper(cfg.SocialDataKey), profiler)

	server.worker = postmatch.NewVideoWorker(0, func(matchID, videoURL string) {
		if server.manager == nil {
			return
		}
		if session, ok := server.manager.GetSession(matchID); ok {
			session.Broadcast(gin.H{
				"type":     "arena_video",
				"videoUrl": videoURL,
			})
		}
	})
	server.worker.Start(context.Background())
	server.pipeline = postmatch.NewPipeline(server.worker)

	manager, err := NewMatchManager(db, cfg.OpenAIKey, cfg.JudgeModel, server, server.pipeline, cfg.MatchTimeout)
	if err != nil {
		return nil, err
	}
	server.manager = manager
	manager.StartPeriodicCleanup(5 * time.Minute)

	// Setup routes
	router.GET("/health", server.handleHealth)
	router.POST("/api/fighters/create", server.handleCreateFighter)
	router.POST("/api/match/start", server.handleStartMatch)
	router.GET("/api/match/:id", server.handleGetMatch)
	router.POST("/api/match/:id/abandon", server.handleAbandonMatch)
	router.POST("/api/match/:id/fatality", server.handleFatality)
	router.GET("/api/matches", server.handleListMatches)
	router.GET("/ws/match/:id", server.handleMatchWebSocket)
	router.GET("/api/audio/:id", server.handleAudioStream)
	router.PUT("/api/setup/:key", server.handleSetupPut)
	router.GET("/api/setup/:key", server.handleSetupGet)
	router.DELETE("/api/setup", server.handleSetupClear)

	return server, nil
}

// Run starts listening on the given address
func (s *Server) Run(addr string) error {
	logging.Info("Server starting", map[string]interface{}{"addr": addr})
	return s.router.Run(addr)
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Manager exposes the match manager for tests
func (s *Server) Manager() *MatchManager {
	return s.manager
}

func (s *Server) handleHealth(c *gin.Context) {
	missing := make([]string, 0)
	if s.config.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if s.config.SocialDataKey == "" {
		missing = append(missing, "SOCIALDATA_API_KEY")
	}

	status := "healthy"
	if len(missing) > 0 {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"missing_keys": missing,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

type createFighterRequest struct {
	URLs  []string `json:"urls" binding:"required"`
	Voice string   `json:"voice"`
}

// handleCreateFighter scrapes the submitted profile URLs and synthesizes a
// fighter persona. Scraper and profiler failures degrade to generic data,
// so this endpoint never fails on upstream trouble.
func (s *Server) handleCreateFighter(c *gin.Context) {
	var req createFighterRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	persona := s.profileSvc.CreatePersona(ctx, req.URLs)

	c.JSON(http.StatusOK, gin.H{
		"persona": persona,
		"fighter": FighterPayload{
			Name:          persona.Name,
			Gender:        persona.Gender,
			SystemPrompt:  persona.SystemPrompt,
			AttackVectors: persona.AttackVectors,
			Voice:         req.Voice,
		},
	})
}

type startMatchRequest struct {
	Fighter1 FighterPayload `json:"fighter1" binding:"required"`
	Fighter2 FighterPayload `json:"fighter2" binding:"required"`
}

func payloadToConfig(p FighterPayload) fighter.Config {
	voice, err := types.ParseVoice(p.Voice)
	if err != nil {
		voice = ""
	}
	return fighter.Config{
		Name:          p.Name,
		Gender:        types.ParseGender(p.Gender),
		SystemPrompt:  p.SystemPrompt,
		AttackVectors: p.AttackVectors,
		Model:         p.Model,
		Voice:         voice,
	}
}

func (s *Server) handleStartMatch(c *gin.Context) {
	var req startMatchRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	matchID, session, err := s.manager.CreateMatch(payloadToConfig(req.Fighter1), payloadToConfig(req.Fighter2))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// persona setup is consumed; a new match starts clean
	s.stash.Clear()

	c.JSON(http.StatusOK, gin.H{
		"match_id": matchID,
		"status":   string(session.Status()),
		"fighter1": session.Fighter1.Name(),
		"fighter2": session.Fighter2.Name(),
	})
}

func (s *Server) handleGetMatch(c *gin.Context) {
	matchID := c.Param("id")

	if session, ok := s.manager.GetSession(matchID); ok {
		c.JSON(http.StatusOK, session.Snapshot())
		return
	}

	// settled matches survive only in the database
	if s.db != nil {
		record, err := s.db.GetMatch(matchID)
		if err == nil {
			turns, _ := s.db.GetMatchTurns(matchID)
			c.JSON(http.StatusOK, gin.H{
				"match": record,
				"turns": turns,
			})
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
}

func (s *Server) handleAbandonMatch(c *gin.Context) {
	matchID := c.Param("id")
	if err := s.manager.AbandonMatch(matchID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"match_id": matchID, "status": "abandoned"})
}

func (s *Server) handleListMatches(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"matches": []interface{}{}})
		return
	}
	matches, err := s.db.ListRecentMatches(20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// handleFatality renders the finishing-move prompt from the viewer's sketch
func (s *Server) handleFatality(c *gin.Context) {
	matchID := c.Param("id")

	var req postmatch.FatalityRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	req.MatchID = matchID

	if session, ok := s.manager.GetSession(matchID); ok {
		snap := session.Snapshot()
		if req.WinnerName == "" {
			req.WinnerName = snap.Winner
		}
		if req.LoserName == "" && snap.Winner != "" {
			if snap.Winner == snap.Fighter1 {
				req.LoserName = snap.Fighter2
			} else {
				req.LoserName = snap.Fighter1
			}
		}
		if len(req.History) == 0 {
			req.History = session.HistoryEntries()
		}
	}

	result := s.pipeline.GenerateFatality(req)
	c.JSON(http.StatusOK, result)
}

// handleMatchWebSocket attaches a spectator to a match. The first client to
// join a waiting match starts the battle loop.
func (s *Server) handleMatchWebSocket(c *gin.Context) {
	matchID := c.Param("id")

	session, ok := s.manager.GetSession(matchID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn("Failed to upgrade connection", map[string]interface{}{
			"match_id": matchID,
			"error":    err.Error(),
		})
		return
	}
	defer ws.Close()

	clientID := uuid.New().String()
	session.AddClient(ws, clientID)
	defer session.RemoveClient(ws)

	if session.Status() == battle.StatusWaiting {
		s.manager.StartMatchLoop(session)
	}

	// spectators only listen; the read loop just detects disconnects
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.LogWebSocketEvent("read_error", matchID, clientID, map[string]interface{}{
					"error": err.Error(),
				})
			}
			break
		}
	}
}

// CacheAudio stores rendered audio and returns the URL it is served from
func (s *Server) CacheAudio(data []byte) string {
	audioID := fmt.Sprintf("%s_%d", uuid.New().String()[:8], time.Now().UnixNano())
	s.cacheMutex.Lock()
	s.audioCache[audioID] = audioEntry{data: data, timestamp: time.Now()}
	s.cacheMutex.Unlock()
	return fmt.Sprintf("/api/audio/%s", audioID)
}

// handleAudioStream streams cached audio data for a given ID
func (s *Server) handleAudioStream(c *gin.Context) {
	audioID := c.Param("id")

	s.cacheMutex.RLock()
	entry, exists := s.audioCache[audioID]
	s.cacheMutex.RUnlock()

	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audio not found"})
		return
	}

	c.Header("Cache-Control", "public, max-age=31536000")
	c.Data(http.StatusOK, "audio/mp3", entry.data)

	go s.cleanupCache()
}

// cleanupCache removes audio entries older than an hour
func (s *Server) cleanupCache() {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	threshold := time.Now().Add(-1 * time.Hour)
	for id, entry := range s.audioCache {
		if entry.timestamp.Before(threshold) {
			delete(s.audioCache, id)
		}
	}
}

type setupValue struct {
	Value string `json:"value" binding:"required"`
}

func (s *Server) handleSetupPut(c *gin.Context) {
	var body setupValue
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	s.stash.Put(c.Param("key"), body.Value)
	c.JSON(http.StatusOK, gin.H{"key": c.Param("key")})
}

func (s *Server) handleSetupGet(c *gin.Context) {
	value, ok := s.stash.Get(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": c.Param("key"), "value": value})
}

func (s *Server) handleSetupClear(c *gin.Context) {
	s.stash.Clear()
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
