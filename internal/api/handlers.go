package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/dayplan/internal/applier"
	"github.com/julianstephens/dayplan/internal/engine"
	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/models"
)

var errBadRequest = errors.New("bad request")

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

type generateRequest struct {
	Date string `json:"date"`
}

type modifyRequest struct {
	Request string `json:"request" binding:"required"`
	Accept  bool   `json:"accept"`
}

type modifyResponse struct {
	Candidate models.ScheduleCandidate `json:"candidate"`
	Applied   *applier.Result          `json:"applied,omitempty"`
}

type completionRequest struct {
	Status            models.CompletionStatus `json:"status" binding:"required"`
	ActualDurationMin *int                    `json:"actual_duration_minutes"`
	RemainingMin      *int                    `json:"remaining_minutes"`
	Progress          *int                    `json:"progress"`
	Notes             string                  `json:"notes"`
	Reason            string                  `json:"reason"`
}

type actionResponse struct {
	Notification models.NotificationConfig `json:"notification"`
	Migrated     *models.IncompleteRecord  `json:"migrated,omitempty"`
}

// bindOptional decodes a JSON body when one was sent.
func bindOptional(c *gin.Context, v any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return badRequest(err)
	}
	return nil
}

func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if err := bindOptional(c, &req); err != nil {
		fail(c, err)
		return
	}
	cands, err := s.svc.Generate(c.Request.Context(), req.Date)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": cands})
}

func (s *Server) candidates(c *gin.Context) {
	cands, err := s.svc.Candidates(c.Request.Context(), c.Query("date"))
	if err != nil {
		fail(c, err)
		return
	}
	if cands == nil {
		cands = []models.ScheduleCandidate{}
	}
	c.JSON(http.StatusOK, gin.H{"candidates": cands})
}

func (s *Server) current(c *gin.Context) {
	p, ok := s.svc.Current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no schedule has been applied"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) apply(c *gin.Context) {
	res, err := s.svc.Apply(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) modify(c *gin.Context) {
	var req modifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequest(err))
		return
	}
	cand, err := s.svc.Modify(c.Request.Context(), req.Request)
	if err != nil {
		fail(c, err)
		return
	}
	resp := modifyResponse{Candidate: cand}
	if req.Accept {
		res, err := s.svc.Apply(c.Request.Context(), cand.ID)
		if err != nil {
			fail(c, err)
			return
		}
		resp.Applied = &res
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) complete(c *gin.Context) {
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequest(err))
		return
	}
	data := models.TaskCompletionData{
		TaskID:            c.Param("id"),
		Status:            req.Status,
		ActualDurationMin: req.ActualDurationMin,
		RemainingMin:      req.RemainingMin,
		Progress:          req.Progress,
		Notes:             req.Notes,
		Reason:            req.Reason,
	}
	if err := data.Validate(); err != nil {
		fail(c, badRequest(err))
		return
	}
	rec, err := s.svc.Complete(c.Request.Context(), data)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"migrated": rec})
}

func (s *Server) notifications(c *gin.Context) {
	pending := c.Query("pending") == "true"
	cfgs, err := s.svc.Notifications(c.Request.Context(), pending)
	if err != nil {
		fail(c, err)
		return
	}
	if cfgs == nil {
		cfgs = []models.NotificationConfig{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": cfgs})
}

func (s *Server) action(c *gin.Context) {
	var in engine.ActionInput
	if err := bindOptional(c, &in); err != nil {
		fail(c, err)
		return
	}
	cfg, rec, err := s.svc.NotificationAction(c.Request.Context(), c.Param("id"), c.Param("action"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, actionResponse{Notification: cfg, Migrated: rec})
}

// stream pushes every delivered notification as a server-sent event until the
// client goes away. A slow client drops events rather than stalling delivery.
func (s *Server) stream(c *gin.Context) {
	ch := make(chan models.NotificationConfig, 16)
	unsubscribe := s.svc.Subscribe(func(cfg models.NotificationConfig) {
		select {
		case ch <- cfg:
		default:
			logger.Warn("SSE client too slow, dropping notification", "id", cfg.ID)
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"sinks": s.svc.Sinks()})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case cfg := <-ch:
			c.SSEvent("notification", cfg)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
