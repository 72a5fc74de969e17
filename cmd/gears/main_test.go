package main

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/gears"
	"github.com/kbukum/gears/bootstrap"
	"github.com/kbukum/gears/config"
	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/engine/local"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/redis/testutil"
)

func newEngine(t *testing.T) *local.Engine {
	t.Helper()
	eng, err := local.New(local.Config{}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = eng.Close(context.Background()) })
	return eng
}

func TestParseInts(t *testing.T) {
	got, err := parseInts([]string{"1", " -1", "2"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, -1, 2}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if _, err := parseInts([]string{"x"}); err == nil {
		t.Error("expected error for non-integer")
	}
}

func TestSumDoubledPositives(t *testing.T) {
	res, err := sumDoubledPositives(context.Background(), newEngine(t), []int{1, -1, 2, 3}, gears.WithJSON(false))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{12}, res.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestCountKeysByType(t *testing.T) {
	client, mini := testutil.NewClient(t)
	mini.Set("user:1", "ada")
	mini.Set("user:2", "bob")
	mini.HSet("user:3", "name", "cy")
	mini.Set("order:1", "x")

	res, err := countKeysByType(context.Background(), newEngine(t), client, "user:*", gears.WithJSON(false))
	if err != nil {
		t.Fatal(err)
	}
	counts, err := gears.Values[TypeCount](res)
	if err != nil {
		t.Fatal(err)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Type < counts[j].Type })
	want := []TypeCount{{Type: "hash", Count: 1}, {Type: "string", Count: 2}}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestCountStreamFields(t *testing.T) {
	client, _ := testutil.NewClient(t)
	ctx := context.Background()
	for _, values := range []map[string]any{{"a": "1", "b": "2"}, {"a": "3"}} {
		if _, err := client.XAdd(ctx, "events", values); err != nil {
			t.Fatal(err)
		}
	}

	res, err := countStreamFields(ctx, newEngine(t), client, "events")
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		got = append(got, r.(string))
	}
	sort.Strings(got)
	want := []string{`{"field":"a","count":2}`, `{"field":"b","count":1}`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestAppConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*AppConfig) {}},
		{
			name:    "watch keys without redis",
			mutate:  func(c *AppConfig) { c.Watch.Keys = []string{"user:*"} },
			wantErr: "need redis.enabled",
		},
		{
			name:    "unknown watch mode",
			mutate:  func(c *AppConfig) { c.Watch.Mode = "eventually" },
			wantErr: "config.watch",
		},
		{
			name: "bad server timeout",
			mutate: func(c *AppConfig) {
				c.Server.Enabled = true
				c.Server.IdleTimeout = "forever"
			},
			wantErr: "config.server",
		},
		{
			name:    "bad batch timeout",
			mutate:  func(c *AppConfig) { c.Local.BatchTimeout = "soon" },
			wantErr: "config.local",
		},
		{
			name: "redis enabled without address",
			mutate: func(c *AppConfig) {
				c.Redis.Enabled = true
				c.Redis.Addr = ""
			},
			wantErr: "config.redis",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &AppConfig{}
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	cfg := &AppConfig{}
	cfg.ApplyDefaults()
	if cfg.Name != "gears" || cfg.Version == "" {
		t.Errorf("name=%q version=%q", cfg.Name, cfg.Version)
	}
	if cfg.Observability.ServiceName != "gears" || cfg.Observability.Environment != "development" {
		t.Errorf("observability not derived from service config: %+v", cfg.Observability)
	}
	if cfg.WatchMode() != engine.ModeAsync {
		t.Errorf("WatchMode() = %v", cfg.WatchMode())
	}
	cfg.Watch.Mode = "sync"
	if cfg.WatchMode() != engine.ModeSync {
		t.Errorf("WatchMode() = %v", cfg.WatchMode())
	}
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"version": "dev"`) {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestRunNumbersCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "numbers", "--json=false", "--", "1", "-1", "2", "3"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "12" {
		t.Errorf("output = %q, want 12", got)
	}
}

func TestRunNumbersCmd_BadArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "numbers", "one"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error")
	}
}

func TestEngineAdmin_NotStarted(t *testing.T) {
	admin := engineAdmin{c: local.NewComponent(local.Config{}, logger.Nop(), nil, nil)}
	if regs := admin.Registrations(); regs != nil {
		t.Errorf("expected no registrations, got %v", regs)
	}
	if _, ok := admin.Registration("x"); ok {
		t.Error("expected missing registration")
	}
	if err := admin.Unregister(context.Background(), "x"); !errors.Is(err, errors.ErrCodeServiceUnavailable) {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
	if _, err := admin.Execute(context.Background(), "PING"); !errors.Is(err, errors.ErrCodeServiceUnavailable) {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestServe_RegistersWatches(t *testing.T) {
	mini := miniredis.RunT(t)
	cfg := &AppConfig{ServiceConfig: config.ServiceConfig{Name: "gears-test"}}
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mini.Addr()
	cfg.Watch.Keys = []string{"user:*"}
	cfg.Watch.Streams = []string{"events"}
	cfg.Watch.Mode = "sync"

	var summary bytes.Buffer
	rt, err := newRuntime(cfg, bootstrap.WithLogger(logger.Nop()), bootstrap.WithSummaryOutput(&summary))
	if err != nil {
		t.Fatal(err)
	}
	if err := setupServe(context.Background(), rt); err != nil {
		t.Fatal(err)
	}

	err = rt.app.RunTask(context.Background(), func(ctx context.Context) error {
		regs := rt.engine.Engine().Registrations()
		if len(regs) != 2 {
			t.Fatalf("expected 2 registrations, got %+v", regs)
		}
		readers := []string{regs[0].Reader, regs[1].Reader}
		sort.Strings(readers)
		if diff := cmp.Diff([]string{"KeysReader", "StreamReader"}, readers); diff != "" {
			t.Errorf("readers mismatch (-want +got):\n%s", diff)
		}
		for _, r := range regs {
			if r.Mode != engine.ModeSync.String() {
				t.Errorf("mode = %q, want sync", r.Mode)
			}
		}

		reply, err := gears.Execute(ctx, rt.engine.Engine(), "PING")
		if err != nil {
			t.Fatal(err)
		}
		if reply != "PONG" {
			t.Errorf("PING reply = %v", reply)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(summary.String(), "Pipelines (2)") {
		t.Errorf("summary missing pipelines:\n%s", summary.String())
	}
	if n := len(rt.engine.Engine().Registrations()); n != 0 {
		t.Errorf("expected registrations to end on shutdown, got %d", n)
	}
}
