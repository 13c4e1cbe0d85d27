package modules

import (
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"trade_engine/internal/modules/config"
	"trade_engine/internal/runner"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestAppStartsAndStops(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Service.Host = "127.0.0.1"
	cfg.Service.PublicPort = freePort(t)
	cfg.Service.AdminPort = freePort(t)
	cfg.Log.Level = "error"

	var svc *runner.Service
	app := fxtest.New(t, App(cfg), fx.Populate(&svc))
	app.RequireStart()
	defer app.RequireStop()

	if svc == nil {
		t.Fatalf("runner not built")
	}

	client := &http.Client{Timeout: 2 * time.Second}
	for _, url := range []string{
		fmt.Sprintf("http://%s/health", cfg.PublicAddr()),
		fmt.Sprintf("http://%s/readyz", cfg.AdminAddr()),
	} {
		resp, err := client.Get(url)
		if err != nil {
			t.Fatalf("GET %s: %v", url, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s = %d", url, resp.StatusCode)
		}
	}
}
