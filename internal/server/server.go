package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/auth"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/resume"
)

const shutdownTimeout = 10 * time.Second

var errUpstream = errors.New("upstream model unavailable")

type Matcher interface {
	RunMatch(ctx context.Context, req matching.Request) (*matching.Outcome, error)
	ListHistory(ctx context.Context, userID string) ([]*matching.HistoryEntry, error)
}

type Store interface {
	matching.ResumeSource
	UpsertResume(ctx context.Context, rec *resume.Record) (*resume.Record, error)
	GetResumeByUser(ctx context.Context, userID string) (*resume.Record, error)
	GetHistory(ctx context.Context, id string) (*matching.HistoryEntry, error)
}

type Extractor interface {
	Extract(ctx context.Context, text string) (resume.Profile, error)
}

type Deps struct {
	Matcher Matcher
	Store   Store
	// Extractor is optional; résumé upload answers 503 without it.
	Extractor Extractor
	Logger    *zap.Logger
}

// Server exposes the matcher and résumé store over HTTP.
type Server struct {
	engine    *gin.Engine
	matcher   Matcher
	store     Store
	extractor Extractor
	logger    *zap.Logger
	now       func() time.Time
}

func New(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		engine:    gin.New(),
		matcher:   deps.Matcher,
		store:     deps.Store,
		extractor: deps.Extractor,
		logger:    log,
		now:       time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.Use(requestIDMiddleware(), loggerMiddleware(s.logger), recoverMiddleware())
	s.engine.GET("/health", s.health)

	api := s.engine.Group("/api", principalMiddleware())
	api.POST("/match", s.runMatch)
	api.GET("/match/history", s.listHistory)
	api.GET("/match/history/:id", s.getHistory)
	api.POST("/resume", s.uploadResume)
	api.GET("/resume/user", s.getUserResume)
	api.GET("/resumes", s.listResumes)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type matchRequest struct {
	JobDescription string `json:"jobDescription"`
	CollegeCode    string `json:"collegeCode"`
	TopN           *int   `json:"topN"`
}

type resumeRef struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	SuggestedRole string `json:"suggestedRole"`
}

type matchView struct {
	Resume     resumeRef `json:"resume"`
	Score      float64   `json:"score"`
	Highlights []string  `json:"highlights"`
	Status     string    `json:"status"`
}

type matchResponse struct {
	Matches   []matchView `json:"matches"`
	HistoryID string      `json:"historyId"`
}

func (s *Server) runMatch(c *gin.Context) {
	p := principalFrom(c)

	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", matching.ErrInvalidRequest, err))
		return
	}

	ns, err := p.ScopeNamespace(req.CollegeCode)
	if err != nil {
		respondError(c, err)
		return
	}

	out, err := s.matcher.RunMatch(c.Request.Context(), matching.Request{
		UserID:         p.UserID,
		JobDescription: req.JobDescription,
		Namespace:      ns,
		TopN:           req.TopN,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := matchResponse{Matches: make([]matchView, 0, len(out.Result)), HistoryID: out.Entry.ID}
	for _, m := range out.Result {
		resp.Matches = append(resp.Matches, matchView{
			Resume:     resumeRef{ID: m.ResumeID, Name: m.Name, Email: m.Email, SuggestedRole: m.SuggestedRole},
			Score:      m.Score,
			Highlights: m.Rationale,
			Status:     string(m.Status),
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listHistory(c *gin.Context) {
	p := principalFrom(c)
	if err := p.RequireRole(auth.RoleCompany); err != nil {
		respondError(c, err)
		return
	}

	entries, err := s.matcher.ListHistory(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) getHistory(c *gin.Context) {
	p := principalFrom(c)
	if err := p.RequireRole(auth.RoleCompany); err != nil {
		respondError(c, err)
		return
	}

	entry, err := s.store.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, storeError(err))
		return
	}
	// other users' entries are reported as missing
	if entry.UserID != p.UserID {
		respondError(c, fmt.Errorf("history entry %s: %w", c.Param("id"), matching.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, entry)
}

type uploadRequest struct {
	Text string `json:"text"`
}

func (s *Server) uploadResume(c *gin.Context) {
	p := principalFrom(c)
	if err := p.RequireRole(auth.RoleStudent); err != nil {
		respondError(c, err)
		return
	}

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		respondError(c, fmt.Errorf("%w: resume text is required", matching.ErrInvalidRequest))
		return
	}

	if s.extractor == nil {
		respondError(c, fmt.Errorf("%w: no extractor configured", errUpstream))
		return
	}

	profile, err := s.extractor.Extract(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, fmt.Errorf("%w: %v", errUpstream, err))
		return
	}

	rec, err := s.store.UpsertResume(c.Request.Context(), resume.NewRecord(p.UserID, p.Namespace, req.Text, profile, s.now()))
	if err != nil {
		respondError(c, storeError(err))
		return
	}

	loggerFrom(c).Info("resume stored", zap.String("resume_id", rec.ID))
	c.JSON(http.StatusOK, rec)
}

func (s *Server) getUserResume(c *gin.Context) {
	p := principalFrom(c)

	rec, err := s.store.GetResumeByUser(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, storeError(err))
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) listResumes(c *gin.Context) {
	p := principalFrom(c)

	ns, err := p.ScopeNamespace(c.Query("collegeCode"))
	if err != nil {
		respondError(c, err)
		return
	}

	records, err := s.store.ListResumesByNamespace(c.Request.Context(), ns)
	if err != nil {
		respondError(c, storeError(err))
		return
	}

	list := &resume.Records{Items: records}
	c.JSON(http.StatusOK, list.Summaries())
}

func storeError(err error) error {
	if errors.Is(err, matching.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", matching.ErrPersistence, err)
}
