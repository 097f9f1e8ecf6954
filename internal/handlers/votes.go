package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/response"
	"github.com/emilythestrangee/stackit/backend/internal/services"
	"github.com/emilythestrangee/stackit/backend/internal/voting"
)

type VoteHandler struct {
	votes *services.VoteService
	log   *slog.Logger
}

var voteMessages = map[voting.Action]string{
	voting.ActionCreated: "Vote recorded",
	voting.ActionChanged: "Vote changed",
	voting.ActionRemoved: "Vote removed",
}

// CastVote creates, flips or withdraws the caller's vote
func (h *VoteHandler) CastVote(c *gin.Context) {
	var input services.CastVoteInput
	if !bindJSON(c, &input) {
		return
	}

	res, err := h.votes.Cast(c.Request.Context(), middleware.Actor(c), input)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, voteMessages[res.Action], res)
}

func (h *VoteHandler) QuestionVotes(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.counts(c, services.Target{QuestionID: &id})
}

func (h *VoteHandler) AnswerVotes(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.counts(c, services.Target{AnswerID: &id})
}

func (h *VoteHandler) counts(c *gin.Context, target services.Target) {
	counts, err := h.votes.Counts(c.Request.Context(), target)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "", counts)
}

// UserVote reports the caller's vote type on ?question_id= or ?answer_id=,
// with vote_type null when there is none
func (h *VoteHandler) UserVote(c *gin.Context) {
	var target services.Target
	if err := c.ShouldBindQuery(&target); err != nil {
		response.Fail(c, http.StatusBadRequest, "question_id and answer_id must be numeric")
		return
	}
	id, _ := middleware.CurrentUserID(c)

	vote, err := h.votes.UserVote(c.Request.Context(), id, target)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if vote == nil {
		response.OK(c, http.StatusOK, "", gin.H{"vote_type": nil})
		return
	}
	response.OK(c, http.StatusOK, "", gin.H{"vote_type": vote.VoteType, "created_at": vote.CreatedAt})
}

func (h *VoteHandler) Stats(c *gin.Context) {
	id, _ := middleware.CurrentUserID(c)
	stats, err := h.votes.Stats(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "", stats)
}
