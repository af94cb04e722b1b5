package summarizer

import (
	"context"
	"errors"
	"testing"
)

type stubRefresher struct {
	failFor map[string]error
	calls   []string
}

func (r *stubRefresher) RefreshSummary(_ context.Context, userID string) error {
	r.calls = append(r.calls, userID)
	return r.failFor[userID]
}

type stubLister struct {
	ids []string
	err error
}

func (l *stubLister) ListUserIDs(context.Context) ([]string, error) {
	return l.ids, l.err
}

func TestRunOnceRefreshesAllUsers(t *testing.T) {
	refresher := &stubRefresher{}
	svc := New(refresher, &stubLister{ids: []string{"a", "b", "c"}})

	if got := svc.RunOnce(context.Background()); got != 3 {
		t.Fatalf("RunOnce() = %d, want 3", got)
	}
	if len(refresher.calls) != 3 {
		t.Fatalf("refreshed %v, want all three users", refresher.calls)
	}
}

func TestRunOnceSkipsFailingUser(t *testing.T) {
	refresher := &stubRefresher{failFor: map[string]error{"b": errors.New("backend down")}}
	svc := New(refresher, &stubLister{ids: []string{"a", "b", "c"}})

	if got := svc.RunOnce(context.Background()); got != 2 {
		t.Fatalf("RunOnce() = %d, want 2", got)
	}
	if len(refresher.calls) != 3 {
		t.Fatalf("refreshed %v, failing user should not stop the sweep", refresher.calls)
	}
}

func TestRunOnceListFault(t *testing.T) {
	refresher := &stubRefresher{}
	svc := New(refresher, &stubLister{err: errors.New("db unreachable")})

	if got := svc.RunOnce(context.Background()); got != 0 {
		t.Fatalf("RunOnce() = %d, want 0", got)
	}
	if len(refresher.calls) != 0 {
		t.Fatalf("refresher called %v times without a user list", refresher.calls)
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	svc := New(&stubRefresher{}, &stubLister{})
	if err := svc.Start("not a cron spec"); err == nil {
		t.Fatal("Start() accepted an invalid cron spec")
	}
}
