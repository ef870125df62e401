package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dougsko/rigbridged/pkg/cat"
	"github.com/dougsko/rigbridged/pkg/config"
	"github.com/dougsko/rigbridged/pkg/logging"
	"github.com/dougsko/rigbridged/pkg/rig"
	"github.com/dougsko/rigbridged/pkg/state"
)

// commandSender is the manager's outbound write path; handlers hand it
// fully encoded protocol bytes.
type commandSender interface {
	Send(cmd []byte)
}

// Bridge wires the adapter, state, broadcaster, connection manager and
// control surface together for one radio.
type Bridge struct {
	config      *config.Config
	adapter     cat.Adapter
	state       *state.State
	broadcaster *state.Broadcaster
	link        commandSender
	manager     *rig.Manager
	webServer   *http.Server
	wg          sync.WaitGroup
}

// NewBridge creates a bridge instance from validated configuration.
func NewBridge(cfg *config.Config) (*Bridge, error) {
	adapter, err := cat.New(cfg)
	if err != nil {
		return nil, err
	}

	broadcaster := state.NewBroadcaster()
	st := state.New(broadcaster)
	manager := rig.NewManager(cfg, adapter, st)

	bridge := &Bridge{
		config:      cfg,
		adapter:     adapter,
		state:       st,
		broadcaster: broadcaster,
		link:        manager,
		manager:     manager,
	}

	bridge.setupWebServer()
	return bridge, nil
}

// Start brings up the radio link and the control API.
func (b *Bridge) Start() error {
	if err := b.manager.Start(); err != nil {
		return fmt.Errorf("failed to start connection manager: %w", err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		logging.Infof("web", "listening on %s", b.webServer.Addr)
		if err := b.webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("web", "server error: %v", err)
		}
	}()

	return nil
}

// Stop shuts everything down gracefully.
func (b *Bridge) Stop() error {
	if b.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.webServer.Shutdown(ctx); err != nil {
			logging.Errorf("web", "shutdown error: %v", err)
		}
	}

	if err := b.manager.Stop(); err != nil {
		logging.Errorf("rig", "shutdown error: %v", err)
	}

	b.wg.Wait()
	return nil
}

// setupWebServer initializes the router and routes.
func (b *Bridge) setupWebServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware())

	router.GET("/", b.handleRoot)
	router.GET("/status", b.handleStatus)
	router.GET("/stream", b.handleStream)
	router.POST("/freq", b.handleSetFrequency)
	router.POST("/mode", b.handleSetMode)
	router.POST("/ptt", b.handleSetPTT)

	addr := fmt.Sprintf("%s:%d", b.config.Web.BindAddress, b.config.Web.Port)
	b.webServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
}

// corsMiddleware answers permissively; the dashboard is served from a
// different origin than the bridge.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
