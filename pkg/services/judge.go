package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"codearena/pkg/models"
)

// ExecutionResult is the aggregate verdict over all test cases of a run.
type ExecutionResult struct {
	Status   string
	TimeMS   int
	MemoryKB int
	Passed   int
	Total    int
	Score    int
}

// Judge runs source code against test cases. The production implementation
// talks to a Judge0-compatible API; tests substitute a fake.
type Judge interface {
	Execute(sourceCode, language string, cases []models.TestCase, timeLimitMS, memoryLimitMB int) (ExecutionResult, error)
	Supports(language string) bool
	SupportedLanguages() []string
}

// Judge0 language ids.
var languageIDs = map[string]int{
	"python":     71,
	"python3":    71,
	"javascript": 63,
	"js":         63,
	"typescript": 74,
	"ts":         74,
	"java":       62,
	"cpp":        54,
	"c":          50,
	"csharp":     51,
	"go":         60,
	"rust":       73,
	"php":        68,
	"ruby":       72,
	"swift":      83,
	"kotlin":     78,
	"scala":      81,
	"r":          80,
	"haskell":    61,
	"lua":        64,
	"perl":       85,
	"bash":       46,
}

type judge0Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewJudge() Judge {
	baseURL := os.Getenv("JUDGE_URL")
	if baseURL == "" {
		baseURL = "https://judge0-ce.p.rapidapi.com"
	}
	return &judge0Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  os.Getenv("JUDGE_API_KEY"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (j *judge0Client) Supports(language string) bool {
	_, ok := languageIDs[strings.ToLower(language)]
	return ok
}

func (j *judge0Client) SupportedLanguages() []string {
	langs := make([]string, 0, len(languageIDs))
	for l := range languageIDs {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

type judge0Request struct {
	SourceCode     string  `json:"source_code"`
	LanguageID     int     `json:"language_id"`
	Stdin          string  `json:"stdin"`
	ExpectedOutput string  `json:"expected_output"`
	CPUTimeLimit   float64 `json:"cpu_time_limit"`
	MemoryLimit    int     `json:"memory_limit"`
}

type judge0Response struct {
	Status struct {
		ID int `json:"id"`
	} `json:"status"`
	Time   string `json:"time"`
	Memory int    `json:"memory"`
}

// Execute submits each test case synchronously (wait=true) and aggregates.
// The overall status is AC only when every case passes; otherwise it is the
// verdict of the first failing case.
func (j *judge0Client) Execute(sourceCode, language string, cases []models.TestCase, timeLimitMS, memoryLimitMB int) (ExecutionResult, error) {
	langID, ok := languageIDs[strings.ToLower(language)]
	if !ok {
		return ExecutionResult{}, fmt.Errorf("unsupported language: %s", language)
	}

	result := ExecutionResult{Status: models.StatusAccepted, Total: len(cases)}

	for _, tc := range cases {
		resp, err := j.run(judge0Request{
			SourceCode:     sourceCode,
			LanguageID:     langID,
			Stdin:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			CPUTimeLimit:   float64(timeLimitMS) / 1000,
			MemoryLimit:    memoryLimitMB * 1024,
		})
		if err != nil {
			return ExecutionResult{}, err
		}

		if ms, err := strconv.ParseFloat(resp.Time, 64); err == nil {
			if t := int(ms * 1000); t > result.TimeMS {
				result.TimeMS = t
			}
		}
		if resp.Memory > result.MemoryKB {
			result.MemoryKB = resp.Memory
		}

		if verdict := verdictFor(resp.Status.ID); verdict == models.StatusAccepted {
			result.Passed++
			result.Score += tc.Points
		} else if result.Status == models.StatusAccepted {
			result.Status = verdict
		}
	}

	return result, nil
}

func (j *judge0Client) run(req judge0Request) (judge0Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return judge0Response{}, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, j.baseURL+"/submissions?wait=true", bytes.NewReader(body))
	if err != nil {
		return judge0Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if j.apiKey != "" {
		httpReq.Header.Set("X-RapidAPI-Key", j.apiKey)
	}

	httpResp, err := j.client.Do(httpReq)
	if err != nil {
		return judge0Response{}, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return judge0Response{}, fmt.Errorf("judge returned %d", httpResp.StatusCode)
	}

	var resp judge0Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return judge0Response{}, err
	}
	return resp, nil
}

// Judge0 status ids: 3 accepted, 4 wrong answer, 5 time limit, 6 compile
// error, 7+ assorted runtime failures.
func verdictFor(statusID int) string {
	switch statusID {
	case 3:
		return models.StatusAccepted
	case 4:
		return models.StatusWrongAns
	case 5:
		return models.StatusTimeLimit
	case 6:
		return models.StatusCompileErr
	default:
		return models.StatusRuntimeErr
	}
}
