package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/soctools/lurelab/internal/domain"
)

type mockDownloadRepo struct {
	downloads []domain.DownloadEvent
	lastLimit int
	err       error
}

func (m *mockDownloadRepo) Append(ctx context.Context, ev domain.DownloadEvent) error {
	if m.err != nil {
		return m.err
	}
	m.downloads = append(m.downloads, ev)
	return nil
}

func (m *mockDownloadRepo) List(ctx context.Context, limit int) ([]domain.DownloadEvent, error) {
	m.lastLimit = limit
	return m.downloads, m.err
}

func TestRecordDownloadNormalizes(t *testing.T) {
	repo := &mockDownloadRepo{}
	uc := NewDownloadUsecase(repo)

	cctx := domain.ClientContext{UserAgent: "ua", SourceAddr: "10.0.0.1"}
	ev, err := uc.Record(context.Background(), " U@X.com ", cctx)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	if ev.Identity != "u@x.com" {
		t.Fatalf("identity not normalized: %q", ev.Identity)
	}
	if len(repo.downloads) != 1 {
		t.Fatalf("expected 1 download, got %d", len(repo.downloads))
	}
	if repo.downloads[0].Fingerprint == "" {
		t.Fatal("download has no fingerprint")
	}
}

func TestRecordDownloadInvalidIdentity(t *testing.T) {
	repo := &mockDownloadRepo{}
	uc := NewDownloadUsecase(repo)

	_, err := uc.Record(context.Background(), "not-an-email", domain.ClientContext{})
	if !errors.Is(err, domain.ErrInvalidIdentity) {
		t.Fatalf("got %v, want ErrInvalidIdentity", err)
	}
	if len(repo.downloads) != 0 {
		t.Fatalf("expected no writes, got %d", len(repo.downloads))
	}
}

func TestListDownloadsClampsLimit(t *testing.T) {
	repo := &mockDownloadRepo{}
	uc := NewDownloadUsecase(repo)
	ctx := context.Background()

	cases := []struct {
		requested int
		want      int
	}{
		{requested: 500, want: 200},
		{requested: 0, want: 200},
		{requested: 10, want: 10},
	}

	for _, tc := range cases {
		if _, err := uc.List(ctx, tc.requested); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if repo.lastLimit != tc.want {
			t.Fatalf("limit %d clamped to %d, want %d", tc.requested, repo.lastLimit, tc.want)
		}
	}
}
