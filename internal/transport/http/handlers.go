package http

import (
	"context"
	"errors"
	"net/http"

	"flashcard-challenge-service/internal/app"
	"flashcard-challenge-service/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChallengeTypeHeader selects the challenge mode on batch writes.
const ChallengeTypeHeader = "Challenge-Type"

// Handler serves the challenge REST API.
type Handler struct {
	service *app.ChallengeService
	streaks *app.StreakService
	log     *zap.Logger
}

func NewHandler(service *app.ChallengeService, streaks *app.StreakService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, streaks: streaks, log: log}
}

type generateRequest struct {
	Flashcards []domain.Flashcard `json:"flashcards"`
	Mode       string             `json:"mode"`
}

type batchRequest struct {
	Questions []domain.Question `json:"questions"`
}

type answerRequest struct {
	ID         string `json:"id"`
	UserAnswer string `json:"user_answer"`
}

type startRequest struct {
	Mode string `json:"mode"`
}

type finalizeRequest struct {
	ChallengeID   string `json:"challenge_id"`
	TimeTaken     int    `json:"time_taken"`
	AttemptNumber int    `json:"attempt_number"`
}

type attemptResponse struct {
	ChallengeID string            `json:"challenge_id"`
	Mode        domain.Mode       `json:"mode"`
	State       app.TimerState    `json:"state"`
	Remaining   int               `json:"remaining"`
	Questions   []domain.Question `json:"questions"`
}

// CreateChallenge creates a challenge, or overwrites the aggregate of an
// existing one when the body carries a non-initial status.
func (h *Handler) CreateChallenge(c *gin.Context) {
	var req domain.Challenge
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, &domain.ValidationError{Field: "body"})
		return
	}
	if caller, ok := callerID(c); ok {
		if req.UserID != "" && req.UserID != caller {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: "challenge belongs to another user"})
			return
		}
		req.UserID = caller
	}

	if req.Status == "" || req.Status == domain.ChallengeStarted {
		challenge, err := h.service.CreateChallenge(c.Request.Context(), req)
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		c.JSON(http.StatusCreated, challenge)
		return
	}
	challenge, err := h.service.UpsertChallenge(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// GenerateQuestions returns generated questions without storing them.
func (h *Handler) GenerateQuestions(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, &domain.ValidationError{Field: "body"})
		return
	}
	questions, err := h.service.GenerateQuestions(c.Request.Context(), req.Flashcards, requestMode(c, req.Mode))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// GenerateAndStore generates the question set of a challenge and stores it.
func (h *Handler) GenerateAndStore(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, &domain.ValidationError{Field: "body"})
		return
	}
	count, err := h.service.GenerateAndStoreQuestions(c.Request.Context(), c.Param("id"), req.Flashcards, requestMode(c, req.Mode))
	if err != nil {
		var partial *domain.PartialBatchError
		if errors.As(err, &partial) {
			h.log.Warn("generated questions partially stored", zap.String("challenge_id", c.Param("id")), zap.Int("stored", count))
		}
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"count": count})
}

// StoreQuestions writes a caller-built question batch.
func (h *Handler) StoreQuestions(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, &domain.ValidationError{Field: "questions"})
		return
	}
	mode := domain.ParseMode(c.GetHeader(ChallengeTypeHeader))
	if err := h.service.StoreQuestions(c.Request.Context(), req.Questions, mode); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Questions inserted successfully", "count": len(req.Questions)})
}

// Questions lists the question set of a challenge.
func (h *Handler) Questions(c *gin.Context) {
	questions, err := h.service.Questions(c.Request.Context(), c.Query("challenge_id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if questions == nil {
		questions = []domain.Question{}
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// RecordAnswer stores the caller's choice for one question.
func (h *Handler) RecordAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, &domain.ValidationError{Field: "body"})
		return
	}
	q, err := h.service.RecordAnswer(c.Request.Context(), req.ID, req.UserAnswer)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// StartAttempt begins an attempt; timed attempts start their countdown here.
func (h *Handler) StartAttempt(c *gin.Context) {
	var req startRequest
	// an empty body means standard mode
	_ = c.ShouldBindJSON(&req)

	questions, attempt, err := h.service.StartAttempt(c.Request.Context(), c.Param("id"), requestMode(c, req.Mode))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	state, remaining := attempt.State()
	c.JSON(http.StatusOK, attemptResponse{
		ChallengeID: attempt.ChallengeID(),
		Mode:        attempt.Mode(),
		State:       state,
		Remaining:   remaining,
		Questions:   questions,
	})
}

// CompleteAttempt finalizes an attempt through the last-answer path.
func (h *Handler) CompleteAttempt(c *gin.Context) {
	history, err := h.service.CompleteAttempt(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// FinalizeAttempt scores the stored question set of a challenge and records it.
func (h *Handler) FinalizeAttempt(c *gin.Context) {
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, &domain.ValidationError{Field: "body"})
		return
	}
	if req.AttemptNumber == 0 {
		req.AttemptNumber = 1
	}
	questions, err := h.service.Questions(c.Request.Context(), req.ChallengeID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	history, err := h.service.FinalizeAttempt(c.Request.Context(), app.FinalizeInput{
		ChallengeID:    req.ChallengeID,
		Questions:      questions,
		ElapsedSeconds: req.TimeTaken,
		AttemptNumber:  req.AttemptNumber,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, history)
}

// History lists the completed attempts of a user.
func (h *Handler) History(c *gin.Context) {
	userID := c.Query("user_id")
	if caller, ok := callerID(c); ok {
		if userID != "" && userID != caller {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: "history belongs to another user"})
			return
		}
		userID = caller
	}
	views, err := h.service.History(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if len(views) == 0 {
		c.JSON(http.StatusNotFound, errorResponse{Error: "No challenge history found for this user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": views})
}

// Suggest returns study advice for one history row. Nothing is stored.
func (h *Handler) Suggest(c *gin.Context) {
	var req domain.ChallengeHistory
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, &domain.ValidationError{Field: "body"})
		return
	}
	suggestion, err := h.service.Suggest(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion})
}

// TouchUser records a login for the streak without waiting for the write.
func (h *Handler) TouchUser(c *gin.Context) {
	userID := c.Param("id")
	if err := domain.Require("id", userID); err != nil {
		writeError(c, h.log, err)
		return
	}
	go h.streaks.TouchBestEffort(context.WithoutCancel(c.Request.Context()), userID)
	c.JSON(http.StatusAccepted, gin.H{"user_id": userID})
}

// requestMode reads the mode from the body, falling back to the Challenge-Type header.
func requestMode(c *gin.Context, bodyMode string) domain.Mode {
	if bodyMode != "" {
		return domain.ParseMode(bodyMode)
	}
	return domain.ParseMode(c.GetHeader(ChallengeTypeHeader))
}
