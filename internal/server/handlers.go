package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tend-cli/internal/gateway"
	"tend-cli/internal/model"
)

const maxAttachmentMemory = 8 << 20 // multipart buffer before spilling to disk

func (s *Server) handleListLists(c *gin.Context) {
	lists, err := s.gw(c).ListLists(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if lists == nil {
		lists = []model.List{}
	}
	c.JSON(http.StatusOK, lists)
}

func (s *Server) handleCreateList(c *gin.Context) {
	var l model.List
	if err := c.ShouldBindJSON(&l); err != nil {
		fail(c, gateway.ValidationError{Msg: "malformed list body"})
		return
	}
	created, err := s.gw(c).CreateList(c.Request.Context(), l)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateList(c *gin.Context) {
	var patch model.ListPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, gateway.ValidationError{Msg: "malformed list patch"})
		return
	}
	updated, err := s.gw(c).UpdateList(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteList(c *gin.Context) {
	if err := s.gw(c).DeleteList(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListItems(c *gin.Context) {
	items, err := s.gw(c).ListItems(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) handleCreateItem(c *gin.Context) {
	var it model.Item
	if err := c.ShouldBindJSON(&it); err != nil {
		fail(c, gateway.ValidationError{Msg: "malformed item body"})
		return
	}
	created, err := s.gw(c).CreateItem(c.Request.Context(), it)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateItem(c *gin.Context) {
	var patch model.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, gateway.ValidationError{Msg: "malformed item patch"})
		return
	}
	updated, err := s.gw(c).UpdateItem(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteItem(c *gin.Context) {
	if err := s.gw(c).DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type noteBody struct {
	Content string `json:"content"`
}

func (s *Server) handleAddNote(c *gin.Context) {
	var body noteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, gateway.ValidationError{Msg: "malformed note body"})
		return
	}
	note, err := s.gw(c).AddNote(c.Request.Context(), c.Param("id"), body.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (s *Server) handleUpdateNote(c *gin.Context) {
	var body noteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, gateway.ValidationError{Msg: "malformed note body"})
		return
	}
	note, err := s.gw(c).UpdateNote(c.Request.Context(), c.Param("id"), body.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (s *Server) handleDeleteNote(c *gin.Context) {
	if err := s.gw(c).DeleteNote(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAddAttachment(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxAttachmentMemory); err != nil {
		fail(c, gateway.ValidationError{Msg: "malformed multipart body"})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, gateway.ValidationError{Msg: "missing file field"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	a, err := s.gw(c).AddAttachment(c.Request.Context(), c.Param("id"), fh.Filename, f, fh.Size)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) handleDeleteAttachment(c *gin.Context) {
	if err := s.gw(c).DeleteAttachment(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type checkUsersBody struct {
	Emails []string `json:"emails"`
}

// handleCheckUsers answers invite probes from the server's own account
// registry rather than the gateway: accounts are a server concern.
func (s *Server) handleCheckUsers(c *gin.Context) {
	var body checkUsersBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, gateway.ValidationError{Msg: "malformed body"})
		return
	}
	out := make([]gateway.UserCheck, len(body.Emails))
	s.mu.Lock()
	for i, e := range body.Emails {
		e = strings.ToLower(strings.TrimSpace(e))
		out[i] = gateway.UserCheck{Email: e, Exists: s.emails[e]}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}
