package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spigell/insurance-advisor/internal/ai"
	"github.com/spigell/insurance-advisor/internal/catalog"
	"github.com/spigell/insurance-advisor/internal/claims"
	"github.com/spigell/insurance-advisor/internal/document"
	"github.com/spigell/insurance-advisor/internal/fraud"
	"github.com/spigell/insurance-advisor/internal/logger"
	"github.com/spigell/insurance-advisor/internal/profile"
	"github.com/spigell/insurance-advisor/internal/recommend"
	"github.com/spigell/insurance-advisor/internal/session"
)

type recommendationResponse struct {
	Tags    []string       `json:"tags"`
	Plans   []catalog.Plan `json:"plans"`
	Message string         `json:"message,omitempty"`
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer  string             `json:"answer"`
	History []session.Exchange `json:"history"`
}

type documentResponse struct {
	Document *document.Document `json:"document"`
	Length   int                `json:"length"`
}

type fraudResponse struct {
	Document *document.Document `json:"document"`
	Verdict  fraud.Verdict      `json:"verdict"`
}

type guideIndex struct {
	Types []string `json:"types"`
	Modes []string `json:"modes"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "healthy",
		"plans":  s.deps.Catalog.Len(),
	})
}

func (s *Server) listPlans(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Catalog.Plans())
}

func (s *Server) recommend(c echo.Context) error {
	var p profile.Profile
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid profile payload")
	}

	result, err := s.deps.Recommender.Recommend(c.Request().Context(), p)
	if err != nil {
		if errors.Is(err, recommend.ErrInvalidProfile) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}

	resp := recommendationResponse{Tags: result.Tags, Plans: result.Plans}
	if resp.Plans == nil {
		resp.Plans = []catalog.Plan{}
	}
	if result.Empty() {
		resp.Message = recommend.NoMatchesMessage
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) createSession(c echo.Context) error {
	state, err := s.deps.Sessions.Create(c.Request().Context())
	if err != nil {
		return err
	}
	logger.WithSession(s.logger, state.ID).Info("session created")
	return c.JSON(http.StatusCreated, state)
}

func (s *Server) getSession(c echo.Context) error {
	state, err := s.deps.Sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) clearHistory(c echo.Context) error {
	state, err := s.deps.Sessions.Clear(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) uploadDocument(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	if _, err := s.deps.Sessions.Get(ctx, id); err != nil {
		return sessionError(err)
	}

	doc, err := s.readDocument(c)
	if err != nil {
		return err
	}

	if _, err := s.deps.Sessions.SetDocument(ctx, id, doc.Name, doc.Text); err != nil {
		return sessionError(err)
	}

	logger.WithSession(s.logger, id).Info("document uploaded",
		zap.String("name", doc.Name),
		zap.String("kind", doc.Kind),
		zap.Int("pages", doc.Pages),
	)

	return c.JSON(http.StatusOK, documentResponse{Document: doc, Length: utf8.RuneCountInString(doc.Text)})
}

func (s *Server) summarize(c echo.Context) error {
	if s.deps.Assistant == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "assistant is not configured")
	}

	state, err := s.deps.Sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(err)
	}
	if !state.HasDocument() {
		return echo.NewHTTPError(http.StatusBadRequest, "no document uploaded to this session")
	}

	summary, err := ai.Summarize(c.Request().Context(), s.deps.Assistant, state.Document)
	if err != nil {
		return assistantError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid chat payload")
	}

	answer, state, err := s.ask(c.Request().Context(), c.Param("id"), req.Question)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chatResponse{Answer: answer, History: state.History})
}

// ask runs one chat turn and records it in the session history. Errors are
// *echo.HTTPError values ready to return to the client.
func (s *Server) ask(ctx context.Context, id, question string) (string, *session.State, error) {
	if s.deps.Assistant == nil {
		return "", nil, echo.NewHTTPError(http.StatusServiceUnavailable, "assistant is not configured")
	}
	if strings.TrimSpace(question) == "" {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "question must not be empty")
	}

	state, err := s.deps.Sessions.Get(ctx, id)
	if err != nil {
		return "", nil, sessionError(err)
	}

	answer, err := s.deps.Assistant.Ask(ctx, question, state.Document)
	if err != nil {
		return "", nil, assistantError(err)
	}

	state, err = s.deps.Sessions.Append(ctx, id, session.Exchange{Question: question, Answer: answer})
	if err != nil {
		return "", nil, sessionError(err)
	}

	logger.WithSession(s.logger, id).Debug("chat exchange recorded", zap.Int("history", len(state.History)))
	return answer, state, nil
}

func (s *Server) detectFraud(c echo.Context) error {
	if s.deps.Fraud == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "fraud model is not loaded")
	}

	doc, err := s.readDocument(c)
	if err != nil {
		return err
	}

	verdict := s.deps.Fraud.Classify(doc.Text)
	s.logger.Info("fraud check",
		zap.String("name", doc.Name),
		zap.String("label", verdict.Label),
		zap.Float64("score", verdict.Score),
	)

	return c.JSON(http.StatusOK, fraudResponse{Document: doc, Verdict: verdict})
}

func (s *Server) claimGuide(c echo.Context) error {
	insuranceType := c.QueryParam("type")
	if strings.TrimSpace(insuranceType) == "" {
		return c.JSON(http.StatusOK, guideIndex{Types: s.deps.Claims.Types(), Modes: claims.Modes()})
	}

	guide, err := s.deps.Claims.Lookup(insuranceType, c.QueryParam("mode"))
	switch {
	case errors.Is(err, claims.ErrUnknownType):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, claims.ErrUnknownMode):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, guide)
}

// readDocument extracts text from the multipart "file" field.
func (s *Server) readDocument(c echo.Context) (*document.Document, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.deps.Extractor.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	doc, err := s.deps.Extractor.Extract(header.Filename, header.Header.Get(echo.HeaderContentType), data)
	if err != nil {
		return nil, documentError(err)
	}
	return doc, nil
}

func sessionError(err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return err
}

func assistantError(err error) error {
	if errors.Is(err, ai.ErrOffTopic) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, ai.OffTopicMessage)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return echo.NewHTTPError(http.StatusBadGateway, "assistant request failed").SetInternal(err)
}

func documentError(err error) error {
	switch {
	case errors.Is(err, document.ErrTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, document.ErrUnsupportedType),
		errors.Is(err, document.ErrNoText),
		errors.Is(err, document.ErrInvalidText):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "could not read document").SetInternal(err)
	}
}
