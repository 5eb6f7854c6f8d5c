// Package testutil provides thread-safe in-memory gateways for tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/kylejryan/field-report-bot/internal/models"
	"github.com/kylejryan/field-report-bot/internal/report"
	"github.com/kylejryan/field-report-bot/internal/schema"
)

// MockRecordStore is an in-memory report.RecordStore.
type MockRecordStore struct {
	mu sync.Mutex

	Rows      []models.Report
	AppendErr error
	Calls     int
}

func NewMockRecordStore() *MockRecordStore {
	return &MockRecordStore{}
}

func (m *MockRecordStore) AppendRow(_ context.Context, r models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.Rows = append(m.Rows, r)
	return nil
}

// Snapshot returns a copy of the stored rows.
func (m *MockRecordStore) Snapshot() []models.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Report(nil), m.Rows...)
}

// GetCalls returns how many times AppendRow was called.
func (m *MockRecordStore) GetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// Upload is one call received by MockObjectStore.
type Upload struct {
	Filename    string
	Data        []byte
	ContentType string
}

// MockObjectStore is an in-memory report.ObjectStore.
type MockObjectStore struct {
	mu sync.Mutex

	Uploads   []Upload
	Locator   string
	UploadErr error
}

func NewMockObjectStore(locator string) *MockObjectStore {
	return &MockObjectStore{Locator: locator}
}

func (m *MockObjectStore) Upload(_ context.Context, filename string, data []byte, contentType string) (report.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Uploads = append(m.Uploads, Upload{Filename: filename, Data: data, ContentType: contentType})
	if m.UploadErr != nil {
		return report.UploadResult{}, m.UploadErr
	}
	return report.UploadResult{Locator: m.Locator}, nil
}

// GetUploads returns a copy of the received uploads.
func (m *MockObjectStore) GetUploads() []Upload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Upload(nil), m.Uploads...)
}

// MockNotifier records commit outcomes; it also satisfies report.Alerter.
type MockNotifier struct {
	mu sync.Mutex

	Committed []models.Report
	Failed    []models.Report
	Alerts    []models.Report
	Err       error
}

func (m *MockNotifier) ReportCommitted(_ context.Context, r models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Committed = append(m.Committed, r)
	return m.Err
}

func (m *MockNotifier) ReportFailed(_ context.Context, r models.Report, _ error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failed = append(m.Failed, r)
	return m.Err
}

func (m *MockNotifier) CommitFailed(_ context.Context, r models.Report, _ error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts = append(m.Alerts, r)
	return m.Err
}

// Reply is one outbound message captured by MockMessenger.
type Reply struct {
	SessionID string
	Text      string
	Choices   [][]string
	Prompt    bool
}

// MockMessenger captures outbound messages and serves attachment downloads.
type MockMessenger struct {
	mu sync.Mutex

	Replies     []Reply
	Files       map[string][]byte
	DownloadErr error
	SendErr     error
}

func NewMockMessenger() *MockMessenger {
	return &MockMessenger{Files: make(map[string][]byte)}
}

func (m *MockMessenger) SendPrompt(_ context.Context, sessionID, text string, choices [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replies = append(m.Replies, Reply{SessionID: sessionID, Text: text, Choices: choices, Prompt: true})
	return m.SendErr
}

func (m *MockMessenger) SendText(_ context.Context, sessionID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replies = append(m.Replies, Reply{SessionID: sessionID, Text: text})
	return m.SendErr
}

func (m *MockMessenger) Download(_ context.Context, ref schema.AttachmentRef) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DownloadErr != nil {
		return nil, m.DownloadErr
	}
	b, ok := m.Files[ref.FileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", ref.FileID)
	}
	return b, nil
}

// SetFile seeds a downloadable attachment.
func (m *MockMessenger) SetFile(fileID string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[fileID] = data
}

// GetReplies returns a copy of the captured messages.
func (m *MockMessenger) GetReplies() []Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Reply(nil), m.Replies...)
}

// Last returns the most recent message, or a zero Reply.
func (m *MockMessenger) Last() Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Replies) == 0 {
		return Reply{}
	}
	return m.Replies[len(m.Replies)-1]
}
