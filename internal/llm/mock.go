package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider is a deterministic Provider for tests and offline demos.
// It returns canned responses in FIFO order and records all requests.
// When the queue is empty it calls Fallback, if set.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
	Fallback  func(Request) MockResponse
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// NewDemoProvider returns a MockProvider that answers every request with
// a fixed question set or a fixed evaluation, depending on the schema.
func NewDemoProvider() *MockProvider {
	return &MockProvider{Fallback: demoResponse}
}

// Generate returns the next canned response, the fallback response, or
// ErrProviderUnavailable if neither exists.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	var resp MockResponse
	switch {
	case len(m.responses) > 0:
		resp = m.responses[0]
		m.responses = m.responses[1:]
	case m.Fallback != nil:
		resp = m.Fallback(req)
	default:
		return nil, &ErrProviderUnavailable{}
	}

	if resp.Err != nil {
		return nil, resp.Err
	}

	return &Response{Content: resp.Content, Usage: resp.Usage, Model: "mock"}, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

const demoQuestions = `{"questions": [
  {"type": "mcq", "question": "Which data structure offers O(1) average lookup by key?", "options": ["Linked list", "Hash table", "Binary heap", "Stack"], "correct_answer": "Hash table"},
  {"type": "mcq", "question": "What does an index on a table column usually speed up?", "options": ["Inserts", "Lookups", "Backups", "Schema changes"], "correct_answer": "Lookups"},
  {"type": "short_answer", "question": "Explain the difference between a process and a thread.", "options": [], "correct_answer": "Threads share the memory of their process; processes have separate address spaces."},
  {"type": "mcq", "question": "Which of these is a stable sorting algorithm?", "options": ["Quicksort", "Heapsort", "Merge sort", "Selection sort"], "correct_answer": "Merge sort"},
  {"type": "short_answer", "question": "What is a race condition?", "options": [], "correct_answer": "A bug where the outcome depends on the timing of concurrent operations on shared state."}
]}`

const demoEvaluation = `{
  "overall_score": 72,
  "question_wise_breakdown": [
    {"question_index": 0, "score": 100, "feedback": "Correct."},
    {"question_index": 1, "score": 100, "feedback": "Correct."},
    {"question_index": 2, "score": 60, "feedback": "Mentions shared memory but not scheduling."}
  ],
  "strengths": ["Core data structures"],
  "weaknesses": ["Concurrency vocabulary"],
  "study_recommendations": ["Review threads, processes and synchronization primitives"]
}`

func demoResponse(req Request) MockResponse {
	if req.Schema != nil && req.Schema.Name == EvaluationSchema.Name {
		return MockResponse{Content: json.RawMessage(demoEvaluation)}
	}
	return MockResponse{Content: json.RawMessage(demoQuestions)}
}
