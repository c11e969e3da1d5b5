// MockSessionStore 与 MockNotifier 的测试模拟实现。
//
// 会话存储支持读写错误注入，通知器记录所有过渡消息。
package mocks

import (
	"context"
	"maps"
	"sync"
)

// MockSessionStore 是会话存储的内存模拟实现
type MockSessionStore struct {
	mu       sync.Mutex
	data     map[string]map[string]any
	getErr   error
	setErr   error
	getCalls int
	setCalls int
}

// NewMockSessionStore 创建新的 MockSessionStore
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{data: make(map[string]map[string]any)}
}

// WithGetError 设置读取错误
func (m *MockSessionStore) WithGetError(err error) *MockSessionStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
	return m
}

// WithSetError 设置写入错误
func (m *MockSessionStore) WithSetError(err error) *MockSessionStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
	return m
}

// GetData returns a copy of the session payload, nil when absent.
func (m *MockSessionStore) GetData(_ context.Context, sessionID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return maps.Clone(m.data[sessionID]), nil
}

// SetData stores one key.
func (m *MockSessionStore) SetData(_ context.Context, sessionID, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	if m.data[sessionID] == nil {
		m.data[sessionID] = make(map[string]any)
	}
	m.data[sessionID][key] = value
	return nil
}

// SetCalls 返回写入次数
func (m *MockSessionStore) SetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setCalls
}

// GetCalls 返回读取次数
func (m *MockSessionStore) GetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls
}

// Notification 记录一条过渡消息
type Notification struct {
	SessionID string
	Message   string
}

// MockNotifier 记录过渡消息
type MockNotifier struct {
	mu            sync.Mutex
	notifications []Notification
	err           error
}

// NewMockNotifier 创建新的 MockNotifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// WithError 设置通知错误
func (m *MockNotifier) WithError(err error) *MockNotifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Notify records the message.
func (m *MockNotifier) Notify(_ context.Context, sessionID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, Notification{SessionID: sessionID, Message: message})
	return m.err
}

// Notifications 返回所有已记录的消息
func (m *MockNotifier) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}
