package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codearena/pkg/models"
)

func TestVerdictMapping(t *testing.T) {
	assert.Equal(t, models.StatusAccepted, verdictFor(3))
	assert.Equal(t, models.StatusWrongAns, verdictFor(4))
	assert.Equal(t, models.StatusTimeLimit, verdictFor(5))
	assert.Equal(t, models.StatusCompileErr, verdictFor(6))
	assert.Equal(t, models.StatusRuntimeErr, verdictFor(11))
}

func TestJudgeSupports(t *testing.T) {
	j := &judge0Client{}
	assert.True(t, j.Supports("python"))
	assert.True(t, j.Supports("Go"))
	assert.False(t, j.Supports("brainfuck"))
	assert.Contains(t, j.SupportedLanguages(), "rust")
}

func TestExecuteAggregatesCases(t *testing.T) {
	// First case passes, second gets wrong answer.
	statuses := []int{3, 4}
	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req judge0Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 71, req.LanguageID)

		resp := judge0Response{Time: "0.05", Memory: 1024}
		resp.Status.ID = statuses[call]
		call++
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	j := &judge0Client{baseURL: srv.URL, client: &http.Client{Timeout: time.Second}}
	cases := []models.TestCase{
		{Input: "1", ExpectedOutput: "1", Points: 40},
		{Input: "2", ExpectedOutput: "2", Points: 60},
	}

	result, err := j.Execute("print(input())", "python", cases, 1000, 256)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWrongAns, result.Status)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 40, result.Score)
	assert.Equal(t, 50, result.TimeMS)
	assert.Equal(t, 1024, result.MemoryKB)
}

func TestExecuteAllAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := judge0Response{Time: "0.01", Memory: 512}
		resp.Status.ID = 3
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	j := &judge0Client{baseURL: srv.URL, client: &http.Client{Timeout: time.Second}}
	result, err := j.Execute("x", "go", []models.TestCase{{Points: 100}}, 1000, 256)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, result.Status)
	assert.Equal(t, 100, result.Score)
}

func TestExecuteUnsupportedLanguage(t *testing.T) {
	j := &judge0Client{}
	_, err := j.Execute("x", "cobol", nil, 1000, 256)
	assert.Error(t, err)
}
