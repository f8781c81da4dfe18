package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/memorialboard/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMessageID = "0b5e6c0a-8c55-4a8e-9d44-54a1d1a1f001"
	testToken     = "ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12"
)

func TestModerationLinks(t *testing.T) {
	l := ModerationLinks("https://memorial.example/", testMessageID, testToken, "approver-1")

	approve, err := url.Parse(l.Approve)
	require.NoError(t, err)
	assert.Equal(t, "/api/approve", approve.Path)
	assert.Equal(t, testMessageID, approve.Query().Get("id"))
	assert.Equal(t, testToken, approve.Query().Get("token"))
	assert.Equal(t, "approver-1", approve.Query().Get("approver"))

	reject, err := url.Parse(l.Reject)
	require.NoError(t, err)
	assert.Equal(t, "/api/reject", reject.Path)
	assert.Equal(t, approve.RawQuery, reject.RawQuery)

	assert.Equal(t, "https://memorial.example/admin", l.Dashboard)

	noApprover := ModerationLinks("http://localhost:8080", testMessageID, testToken, "")
	assert.NotContains(t, noApprover.Approve, "approver=")
}

func sampleNotification() Notification {
	l := ModerationLinks("https://memorial.example", testMessageID, testToken, "")
	return Notification{
		To:           "family@example.com",
		MessageID:    testMessageID,
		Name:         "Jane <Doe>",
		Content:      "We'll miss you & your games.",
		CreatedAt:    time.Date(2025, 10, 21, 18, 30, 0, 0, time.UTC),
		ApproveURL:   l.Approve,
		RejectURL:    l.Reject,
		DashboardURL: l.Dashboard,
	}
}

func TestRender(t *testing.T) {
	subject, html, err := Render(sampleNotification())
	require.NoError(t, err)

	assert.Equal(t, "New memorial message from Jane <Doe>: awaiting approval", subject)
	assert.Contains(t, html, "Jane &lt;Doe&gt;")
	assert.Contains(t, html, "We&#39;ll miss you &amp; your games.")
	assert.Contains(t, html, "October 21, 2025 at 18:30 UTC")
	assert.Contains(t, html, "/api/approve?id="+testMessageID+"&amp;token="+testToken)
	assert.Contains(t, html, "/api/reject?id="+testMessageID+"&amp;token="+testToken)
	assert.Contains(t, html, "https://memorial.example/admin")
}

type sentEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func TestResendNotifier_Notify(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		got     sentEmail
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer srv.Close()

	n, err := NewResendNotifier(ResendOptions{
		APIKey:  "re_test_key",
		From:    "Memorial Board <notifications@example.com>",
		BaseURL: srv.URL,
	})
	require.NoError(t, err)
	require.NoError(t, n.Notify(context.Background(), sampleNotification()))

	assert.Equal(t, "/emails", gotPath)
	assert.Equal(t, "Bearer re_test_key", gotAuth)
	assert.Equal(t, "Memorial Board <notifications@example.com>", got.From)
	assert.Equal(t, []string{"family@example.com"}, got.To)
	assert.Contains(t, got.Subject, "Jane <Doe>")
	assert.Contains(t, got.HTML, "/api/approve?id="+testMessageID)
}

func TestResendNotifier_NotifyErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid from field"}`))
	}))
	defer srv.Close()

	n, err := NewResendNotifier(ResendOptions{APIKey: "re_test_key", From: "bad", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Error(t, n.Notify(context.Background(), sampleNotification()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Notify(ctx, sampleNotification()), context.Canceled)
}

func TestResendNotifier_StalledAPIRespectsDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	n, err := NewResendNotifier(ResendOptions{APIKey: "re_test_key", From: "notifications@example.com", BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.Notify(ctx, sampleNotification()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Notify did not return after its deadline")
	}
}

func TestNewResendNotifier_BadBaseURL(t *testing.T) {
	_, err := NewResendNotifier(ResendOptions{APIKey: "k", BaseURL: "://nope"})
	assert.Error(t, err)
}

func TestLogNotifier_DoesNotLogToken(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(logging.NewJSONLogger(&buf, "info"))

	require.NoError(t, n.Notify(context.Background(), sampleNotification()))

	out := buf.String()
	assert.Contains(t, out, testMessageID)
	assert.Contains(t, out, "family@example.com")
	assert.False(t, strings.Contains(out, testToken), "token leaked into log: %s", out)
}
