package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockGeodataChecker struct {
	err error
}

func (m *mockGeodataChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockGeodataChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if r.Checks["geodata"] != CheckOK {
		t.Errorf("expected geodata %q, got %q", CheckOK, r.Checks["geodata"])
	}
}

func TestCheck_DBError(t *testing.T) {
	svc := New(&mockDBPinger{err: errors.New("conn refused")}, &mockGeodataChecker{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Errorf("expected database %q, got %q", CheckError, r.Checks["database"])
	}
	if r.Checks["geodata"] != CheckOK {
		t.Errorf("expected geodata %q, got %q", CheckOK, r.Checks["geodata"])
	}
}

func TestCheck_GeodataError(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockGeodataChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if r.Checks["geodata"] != CheckError {
		t.Errorf("expected geodata %q, got %q", CheckError, r.Checks["geodata"])
	}
}

func TestCheck_BothFail(t *testing.T) {
	svc := New(
		&mockDBPinger{err: errors.New("db down")},
		&mockGeodataChecker{err: errors.New("geodata down")},
	)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Error("expected database error")
	}
	if r.Checks["geodata"] != CheckError {
		t.Error("expected geodata error")
	}
}

func TestCheck_NoGeodata(t *testing.T) {
	svc := New(&mockDBPinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if _, ok := r.Checks["geodata"]; ok {
		t.Error("geodata check should be absent when geodata is nil")
	}
}

func TestCheck_NoGeodata_DBError(t *testing.T) {
	svc := New(&mockDBPinger{err: errors.New("fail")}, nil)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Error("expected database error")
	}
	if _, ok := r.Checks["geodata"]; ok {
		t.Error("geodata check should be absent when geodata is nil")
	}
}
