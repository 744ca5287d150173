package services

import (
	"database/sql"
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"codearena/pkg/apperr"
	"codearena/pkg/broker"
	"codearena/pkg/cache"
	"codearena/pkg/envelope"
	"codearena/pkg/models"
	"codearena/pkg/ratelimit"
	"codearena/pkg/repository"
)

const defaultMaxSubmissionLength = 65536

type SubmissionService interface {
	Submit(userID int, problemID int, req models.SubmitRequest) (models.Submission, error)
	Get(id int, requesterID int, requesterAdmin bool) (models.Submission, error)
	List(f models.SubmissionFilter) ([]models.Submission, error)
	Limiter() *ratelimit.SlidingWindow
}

type submissionService struct {
	subs     repository.SubmissionRepository
	problems repository.ProblemRepository
	contests repository.ContestRepository
	judge    Judge
	xp       GamificationService
	limiter  *ratelimit.SlidingWindow
	broker   *broker.Broker
	cache    *cache.Redis
	maxLen   int
}

func NewSubmissionService(
	subs repository.SubmissionRepository,
	problems repository.ProblemRepository,
	contests repository.ContestRepository,
	judge Judge,
	xp GamificationService,
	limiter *ratelimit.SlidingWindow,
	b *broker.Broker,
	c *cache.Redis,
) SubmissionService {
	maxLen := defaultMaxSubmissionLength
	if v, err := strconv.Atoi(os.Getenv("MAX_SUBMISSION_LENGTH")); err == nil && v > 0 {
		maxLen = v
	}
	return &submissionService{
		subs:     subs,
		problems: problems,
		contests: contests,
		judge:    judge,
		xp:       xp,
		limiter:  limiter,
		broker:   b,
		cache:    c,
		maxLen:   maxLen,
	}
}

func (s *submissionService) Limiter() *ratelimit.SlidingWindow { return s.limiter }

// Submit validates, records and judges a submission synchronously, then
// applies the verdict. A first accepted solution awards XP, bumps the solver's
// streak and triggers achievement checks.
func (s *submissionService) Submit(userID int, problemID int, req models.SubmitRequest) (models.Submission, error) {
	if req.SourceCode == "" {
		return models.Submission{}, apperr.Validation("source code is required")
	}
	if len(req.SourceCode) > s.maxLen {
		return models.Submission{}, apperr.Validation("source code exceeds maximum length")
	}
	if !s.judge.Supports(req.Language) {
		return models.Submission{}, apperr.Validation("unsupported language: " + req.Language)
	}

	problem, err := s.problems.GetByID(problemID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Submission{}, apperr.NotFound("problem not found")
	}
	if err != nil {
		log.Printf("[SUBMIT] problem load %d failed: %v", problemID, err)
		return models.Submission{}, apperr.Internal()
	}
	// Drafts are invisible; answer exactly like a missing problem.
	if !problem.IsPublished {
		return models.Submission{}, apperr.NotFound("problem not found")
	}

	if req.ContestID != nil {
		if err := s.checkContest(*req.ContestID, userID); err != nil {
			return models.Submission{}, err
		}
	}

	if !s.limiter.Allow(userID) {
		return models.Submission{}, apperr.ErrRateLimited
	}

	cases, err := s.problems.TestCases(problemID)
	if err != nil {
		log.Printf("[SUBMIT] test cases for %d failed: %v", problemID, err)
		return models.Submission{}, apperr.Internal()
	}
	if len(cases) == 0 {
		return models.Submission{}, apperr.Validation("problem has no test cases")
	}

	sub, err := s.subs.Create(userID, problemID, req.ContestID, req.Language, req.SourceCode, len(cases))
	if err != nil {
		log.Printf("[SUBMIT] create failed: %v", err)
		return models.Submission{}, apperr.Internal()
	}

	solvedBefore, err := s.subs.HasAccepted(userID, problemID)
	if err != nil {
		log.Printf("[SUBMIT] accepted lookup failed: %v", err)
		solvedBefore = true
	}

	result, err := s.judge.Execute(req.SourceCode, req.Language, cases, problem.TimeLimitMS, problem.MemoryLimitMB)
	if err != nil {
		log.Printf("[SUBMIT] judge failed for submission %d: %v", sub.ID, err)
		if verr := s.subs.ApplyVerdict(sub.ID, models.StatusRuntimeErr, 0, 0, 0, len(cases), 0); verr != nil {
			log.Printf("[SUBMIT] verdict store failed for %d: %v", sub.ID, verr)
		}
		return models.Submission{}, apperr.Internal()
	}

	if err := s.subs.ApplyVerdict(sub.ID, result.Status, result.TimeMS, result.MemoryKB,
		result.Passed, result.Total, result.Score); err != nil {
		log.Printf("[SUBMIT] verdict store failed for %d: %v", sub.ID, err)
		return models.Submission{}, apperr.Internal()
	}

	sub.Status = result.Status
	sub.ExecutionTimeMS = result.TimeMS
	sub.MemoryUsedKB = result.MemoryKB
	sub.TestCasesPassed = result.Passed
	sub.TotalTestCases = result.Total
	sub.Score = result.Score

	if result.Status == models.StatusAccepted && !solvedBefore {
		s.onFirstAccept(userID, problem)
	}
	if result.Status == models.StatusAccepted && sub.ContestID != nil {
		s.cache.Del(cache.ContestLeaderboardKey(*sub.ContestID))
	}

	s.publish(sub)
	return sub, nil
}

func (s *submissionService) checkContest(contestID, userID int) error {
	contest, err := s.contests.GetByID(contestID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("contest not found")
	}
	if err != nil {
		log.Printf("[SUBMIT] contest load %d failed: %v", contestID, err)
		return apperr.Internal()
	}
	now := time.Now()
	if now.Before(contest.StartTime) {
		return apperr.ErrContestNotStarted
	}
	if now.After(contest.EndTime) {
		return apperr.ErrContestEnded
	}
	registered, err := s.contests.IsRegistered(contestID, userID)
	if err != nil {
		log.Printf("[SUBMIT] registration lookup failed: %v", err)
		return apperr.Internal()
	}
	if !registered {
		return apperr.ErrNotRegistered
	}
	return nil
}

func (s *submissionService) onFirstAccept(userID int, problem models.Problem) {
	solved, err := s.subs.IncrementSolved(userID)
	if err != nil {
		log.Printf("[SUBMIT] solved counter failed for user %d: %v", userID, err)
	} else if _, err := s.xp.CheckAchievements(userID, models.TriggerProblemsSolved, solved); err != nil {
		log.Printf("[SUBMIT] achievement check failed for user %d: %v", userID, err)
	}
	if _, err := s.xp.AwardForSolve(userID, problem.Difficulty); err != nil {
		log.Printf("[SUBMIT] xp award failed for user %d: %v", userID, err)
	}
	if _, err := s.xp.UpdateStreak(userID); err != nil {
		log.Printf("[SUBMIT] streak update failed for user %d: %v", userID, err)
	}

	s.cache.Del(cache.GlobalLeaderboardKey(), cache.XPLeaderboardKey())
}

func (s *submissionService) Get(id int, requesterID int, requesterAdmin bool) (models.Submission, error) {
	sub, err := s.subs.GetByID(id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Submission{}, apperr.NotFound("submission not found")
	}
	if err != nil {
		log.Printf("[SUBMIT] load %d failed: %v", id, err)
		return models.Submission{}, apperr.Internal()
	}
	if sub.UserID != requesterID && !requesterAdmin {
		sub.SourceCode = ""
	}
	return sub, nil
}

func (s *submissionService) List(f models.SubmissionFilter) ([]models.Submission, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	subs, err := s.subs.List(f)
	if err != nil {
		log.Printf("[SUBMIT] list failed: %v", err)
		return nil, apperr.Internal()
	}
	return subs, nil
}

// publish relays the verdict to connected clients. Contest submissions are
// scoped to the contest room, everything else goes to the solver only.
func (s *submissionService) publish(sub models.Submission) {
	if s.broker == nil {
		return
	}
	env, err := envelope.NewEvent("submission.verdict", "submissions", sub)
	if err != nil {
		log.Printf("[SUBMIT] event build failed: %v", err)
		return
	}
	env.UserID = sub.UserID
	if sub.ContestID != nil {
		env.ContestID = *sub.ContestID
	}
	if err := s.broker.Publish(env); err != nil {
		log.Printf("[SUBMIT] event publish failed: %v", err)
	}
}
