package config

import (
	"testing"
	"time"
)

func TestNewViperFromBytes(t *testing.T) {
	yaml := []byte(`
app:
  name: otc
  maintenance: true
  node: 3
modules:
  otc:
    code_ttl_minutes: 3
    resend_cooldown_seconds: 60
instrument:
  trace_sample_ratio: 0.25
  log_mask_fields: "code,password"
mail:
  headers: "X-Env:dev,X-Team:otc"
`)

	cfg, err := NewViperFromBytes("yaml", yaml)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cfg.Close()

	if got := cfg.GetString("app.name"); got != "otc" {
		t.Errorf("GetString = %q", got)
	}
	if !cfg.GetBool("app.maintenance") {
		t.Error("GetBool = false")
	}
	if got := cfg.GetInt64("app.node"); got != 3 {
		t.Errorf("GetInt64 = %d", got)
	}
	if got := cfg.GetMinute("modules.otc.code_ttl_minutes"); got != 3*time.Minute {
		t.Errorf("GetMinute = %s", got)
	}
	if got := cfg.GetSecond("modules.otc.resend_cooldown_seconds"); got != time.Minute {
		t.Errorf("GetSecond = %s", got)
	}
	if got := cfg.GetFloat64("instrument.trace_sample_ratio"); got != 0.25 {
		t.Errorf("GetFloat64 = %f", got)
	}

	fields := cfg.GetArray("instrument.log_mask_fields")
	if len(fields) != 2 || fields[0] != "code" || fields[1] != "password" {
		t.Errorf("GetArray = %v", fields)
	}

	headers := cfg.GetMap("mail.headers")
	if headers["X-Env"] != "dev" || headers["X-Team"] != "otc" {
		t.Errorf("GetMap = %v", headers)
	}
}

func TestNewViperFromBytes_MissingType(t *testing.T) {
	if _, err := NewViperFromBytes("", []byte("a: 1")); err != ErrConfigTypeRequired {
		t.Fatalf("expected ErrConfigTypeRequired, got %v", err)
	}
}

func TestViper_MissingKeysReturnZeroValues(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte("a: 1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cfg.Close()

	if got := cfg.GetString("missing"); got != "" {
		t.Errorf("GetString = %q", got)
	}
	if got := cfg.GetInt("missing"); got != 0 {
		t.Errorf("GetInt = %d", got)
	}
	if got := cfg.GetSecond("missing"); got != 0 {
		t.Errorf("GetSecond = %s", got)
	}
}
