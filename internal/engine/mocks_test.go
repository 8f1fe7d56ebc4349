package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/model"
)

// mockUsageStore is an in-memory usage store that records every call for
// verification in tests.
type mockUsageStore struct {
	getErr    error
	incrErr   error
	counts    map[string]int
	mu        sync.Mutex
	getCalls  int
	incrCalls int
}

func newMockUsageStore() *mockUsageStore {
	return &mockUsageStore{counts: make(map[string]int)}
}

func usageCountKey(userID, feature, monthKey string) string {
	return userID + "|" + feature + "|" + monthKey
}

func (m *mockUsageStore) GetFeatureUsage(_ context.Context, userID, feature, monthKey string) (*model.FeatureUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &model.FeatureUsage{
		UserID:   userID,
		Feature:  feature,
		MonthKey: monthKey,
		Count:    m.counts[usageCountKey(userID, feature, monthKey)],
	}, nil
}

func (m *mockUsageStore) IncrementFeatureUsage(_ context.Context, userID, feature, monthKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incrCalls++
	if m.incrErr != nil {
		return m.incrErr
	}
	m.counts[usageCountKey(userID, feature, monthKey)]++
	return nil
}

func (m *mockUsageStore) setCount(userID, feature, monthKey string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[usageCountKey(userID, feature, monthKey)] = count
}

func (m *mockUsageStore) count(userID, feature, monthKey string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[usageCountKey(userID, feature, monthKey)]
}

// mockAtomicUsageStore adds atomic reservation on top of the plain mock.
type mockAtomicUsageStore struct {
	mockUsageStore
	reserveErr   error
	reserveCalls int
}

func newMockAtomicUsageStore() *mockAtomicUsageStore {
	return &mockAtomicUsageStore{
		mockUsageStore: mockUsageStore{counts: make(map[string]int)},
	}
}

func (m *mockAtomicUsageStore) ReserveFeatureUsage(_ context.Context, userID, feature, monthKey string, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserveCalls++
	if m.reserveErr != nil {
		return 0, m.reserveErr
	}
	key := usageCountKey(userID, feature, monthKey)
	next := m.counts[key] + 1
	if limit > 0 && next > limit {
		return 0, &common.QuotaExceededError{
			Feature:      feature,
			MonthKey:     monthKey,
			CurrentUsage: limit,
			Limit:        limit,
		}
	}
	m.counts[key] = next
	return next, nil
}

// mockExtractor returns a canned extraction and records every message it was
// handed.
type mockExtractor struct {
	result *model.Extraction
	err    error
	calls  []model.Message
	mu     sync.Mutex
}

func (m *mockExtractor) Extract(_ context.Context, msg model.Message) (*model.Extraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, msg)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		ext := *m.result
		return &ext, nil
	}
	return &model.Extraction{
		Category:   model.CategoryInquiry,
		RawText:    strings.TrimSpace(msg.Content),
		Language:   model.LanguageEnglish,
		Confidence: 0.3,
	}, nil
}

func (m *mockExtractor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type createOrderCall struct {
	userID       string
	extractionID string
	payload      model.OrderPayload
}

// mockOrderCreator records order creation requests and can be primed to
// fail.
type mockOrderCreator struct {
	err   error
	calls []createOrderCall
	mu    sync.Mutex
}

func (m *mockOrderCreator) CreateOrder(_ context.Context, userID string, payload model.OrderPayload, extractionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, createOrderCall{
		userID:       userID,
		extractionID: extractionID,
		payload:      payload,
	})
	if m.err != nil {
		return "", m.err
	}
	return fmt.Sprintf("order-%d", len(m.calls)), nil
}

func (m *mockOrderCreator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
