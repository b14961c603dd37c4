// Package server is the hosted sync backend: a JSON API plus a websocket
// change feed, serving every account from one local database. Auth is
// bearer-token; authorization happens in the gateway on every call.
package server

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tend-cli/internal/gateway"
	"tend-cli/internal/gateway/sqlite"
)

type Server struct {
	root   *sqlite.Gateway
	router *gin.Engine

	mu       sync.Mutex
	accounts map[string]string // token -> email
	emails   map[string]bool   // known emails (lowercased)
}

func New(root *sqlite.Gateway) *Server {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	s := &Server{
		root:     root,
		router:   router,
		accounts: map[string]string{},
		emails:   map[string]bool{},
	}

	v1 := router.Group("/v1", s.auth)
	{
		v1.GET("/lists", s.handleListLists)
		v1.POST("/lists", s.handleCreateList)
		v1.PATCH("/lists/:id", s.handleUpdateList)
		v1.DELETE("/lists/:id", s.handleDeleteList)

		v1.GET("/items", s.handleListItems)
		v1.POST("/items", s.handleCreateItem)
		v1.PATCH("/items/:id", s.handleUpdateItem)
		v1.DELETE("/items/:id", s.handleDeleteItem)

		v1.POST("/items/:id/notes", s.handleAddNote)
		v1.PATCH("/notes/:id", s.handleUpdateNote)
		v1.DELETE("/notes/:id", s.handleDeleteNote)

		v1.POST("/items/:id/attachments", s.handleAddAttachment)
		v1.DELETE("/attachments/:id", s.handleDeleteAttachment)

		v1.POST("/users/check", s.handleCheckUsers)
		v1.GET("/ws", s.handleWS)
	}

	return s
}

// RegisterAccount mints a bearer token for email. In a real deployment this
// sits behind a signup flow; here it doubles as the provisioning API for
// tests and single-operator servers.
func (s *Server) RegisterAccount(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	token := uuid.NewString()
	s.mu.Lock()
	s.accounts[token] = email
	s.emails[email] = true
	s.mu.Unlock()
	return token
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

const ctxEmail = "email"

// auth resolves the bearer token to an account email. Websocket clients
// can't set headers from every environment, so ?token= is accepted too.
func (s *Server) auth(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		token = c.Query("token")
	}
	s.mu.Lock()
	email, ok := s.accounts[strings.TrimSpace(token)]
	s.mu.Unlock()
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}
	c.Set(ctxEmail, email)
	c.Next()
}

// gw returns the caller's gateway view.
func (s *Server) gw(c *gin.Context) gateway.Gateway {
	return s.root.ForUser(c.GetString(ctxEmail))
}

// fail maps gateway errors onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var notFound gateway.NotFoundError
	var denied gateway.AccessDeniedError
	var invalid gateway.ValidationError
	var conflict gateway.ConflictError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &denied):
		status = http.StatusForbidden
	case errors.As(err, &invalid):
		status = http.StatusBadRequest
	case errors.As(err, &conflict):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
