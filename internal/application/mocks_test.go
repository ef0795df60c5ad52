package application_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
)

var errForge = errors.New("forge unavailable")

// --- Mock implementations ---

// mockForge records every call. Nil function fields return empty results.
type mockForge struct {
	mu sync.Mutex

	listOpen      func(ctx context.Context, repo string) ([]model.PullRequest, error)
	modifiedSince func(ctx context.Context, repo string, since time.Time) ([]model.PullRequest, error)
	listBranches  func(ctx context.Context, repo string) ([]model.Ref, error)
	listTags      func(ctx context.Context, repo string) ([]model.Ref, error)
	listComments  func(ctx context.Context, repo string, number int) ([]model.Comment, error)

	openCalls    int
	sinceCalls   []time.Time
	branchCalls  int
	tagCalls     int
	commentCalls []int
}

func (m *mockForge) ListOpenPullRequests(ctx context.Context, repo string) ([]model.PullRequest, error) {
	m.mu.Lock()
	m.openCalls++
	m.mu.Unlock()
	if m.listOpen == nil {
		return nil, nil
	}
	return m.listOpen(ctx, repo)
}

func (m *mockForge) ListPullRequestsModifiedSince(ctx context.Context, repo string, since time.Time) ([]model.PullRequest, error) {
	m.mu.Lock()
	m.sinceCalls = append(m.sinceCalls, since)
	m.mu.Unlock()
	if m.modifiedSince == nil {
		return nil, nil
	}
	return m.modifiedSince(ctx, repo, since)
}

func (m *mockForge) ListBranches(ctx context.Context, repo string) ([]model.Ref, error) {
	m.mu.Lock()
	m.branchCalls++
	m.mu.Unlock()
	if m.listBranches == nil {
		return nil, nil
	}
	return m.listBranches(ctx, repo)
}

func (m *mockForge) ListTags(ctx context.Context, repo string) ([]model.Ref, error) {
	m.mu.Lock()
	m.tagCalls++
	m.mu.Unlock()
	if m.listTags == nil {
		return nil, nil
	}
	return m.listTags(ctx, repo)
}

func (m *mockForge) ListComments(ctx context.Context, repo string, number int) ([]model.Comment, error) {
	m.mu.Lock()
	m.commentCalls = append(m.commentCalls, number)
	m.mu.Unlock()
	if m.listComments == nil {
		return nil, nil
	}
	return m.listComments(ctx, repo, number)
}

func (m *mockForge) sinceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sinceCalls)
}

func (m *mockForge) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openCalls + len(m.sinceCalls) + m.branchCalls + m.tagCalls + len(m.commentCalls)
}

type mockRefStore struct {
	mu      sync.Mutex
	refs    map[string][]model.Ref
	seeded  map[string]bool
	saves   [][]model.Ref
	listErr error
}

func newMockRefStore() *mockRefStore {
	return &mockRefStore{refs: make(map[string][]model.Ref), seeded: make(map[string]bool)}
}

func (m *mockRefStore) List(_ context.Context, repo string) ([]model.Ref, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, false, m.listErr
	}
	return append([]model.Ref(nil), m.refs[repo]...), m.seeded[repo], nil
}

func (m *mockRefStore) Save(_ context.Context, repo string, refs []model.Ref) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, refs)
	m.seeded[repo] = true
	for _, r := range refs {
		replaced := false
		for i, existing := range m.refs[repo] {
			if existing.Kind == r.Kind && existing.Name == r.Name {
				m.refs[repo][i] = r
				replaced = true
			}
		}
		if !replaced {
			m.refs[repo] = append(m.refs[repo], r)
		}
	}
	return nil
}

type mockStateStore struct {
	mu     sync.Mutex
	states map[int]model.PullRequestState
	puts   int
	getErr error
}

func newMockStateStore() *mockStateStore {
	return &mockStateStore{states: make(map[int]model.PullRequestState)}
}

func (m *mockStateStore) Get(_ context.Context, _ string, number int) (*model.PullRequestState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.states[number]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *mockStateStore) Put(_ context.Context, s model.PullRequestState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.states[s.Number] = s
	return nil
}

type mockSignatureStore struct {
	mu      sync.Mutex
	loaded  map[int]string
	loadErr error
	putErr  error
	puts    map[int]string
}

func (m *mockSignatureStore) Load(_ context.Context, _ string) (map[int]string, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.loaded, nil
}

func (m *mockSignatureStore) Put(_ context.Context, _ string, number int, sig string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.puts == nil {
		m.puts = make(map[int]string)
	}
	m.puts[number] = sig
	return m.putErr
}

type mockNotificationStore struct {
	mu     sync.Mutex
	added  []model.Notification
	addErr error
}

func (m *mockNotificationStore) Add(_ context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, n)
	return nil
}

func (m *mockNotificationStore) ListRecent(_ context.Context, _ string, _ int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.added, nil
}

// recordingListener implements both listener interfaces.
type recordingListener struct {
	mu          sync.Mutex
	err         error
	prChanges   []model.PullRequestChange
	repoChanges []model.RepositoryChange
}

func (l *recordingListener) Name() string { return "recording" }

func (l *recordingListener) OnPullRequestChange(_ context.Context, change model.PullRequestChange) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prChanges = append(l.prChanges, change)
	return l.err
}

func (l *recordingListener) OnRepositoryChange(_ context.Context, change model.RepositoryChange) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.repoChanges = append(l.repoChanges, change)
	return l.err
}

// --- Fixtures ---

const testRepo = "openjdk/jdk"

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newPR(number int, labels ...string) model.PullRequest {
	return model.PullRequest{
		Number:       number,
		RepoFullName: testRepo,
		Title:        "Fix the thing",
		Author:       "author",
		Status:       model.PRStatusOpen,
		HeadSHA:      "aaaa",
		Labels:       labels,
		UpdatedAt:    baseTime,
	}
}

// fakeClock is a settable clock for engine tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
