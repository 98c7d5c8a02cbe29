// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestAdmin__live(t *testing.T) {
	cases := []struct {
		check  LivenessCheck
		status int
	}{
		{nil, http.StatusOK},
		{func(context.Context) error { return nil }, http.StatusOK},
		{func(context.Context) error { return errors.New("db down") }, http.StatusServiceUnavailable},
	}
	for i := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/live", nil)
		handler(cases[i].check).ServeHTTP(w, req)

		if w.Code != cases[i].status {
			t.Errorf("case #%d: got %d", i, w.Code)
		}
	}
}

func TestAdmin__metrics(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	handler(nil).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Errorf("missing go collector metrics")
	}
}

func TestAdmin__pprofProfileEnabled(t *testing.T) {
	key := "PPROF_HEAP"
	defer os.Unsetenv(key)

	cases := []struct {
		value    string
		zero     bool
		expected bool
	}{
		{"", true, true},
		{"", false, false},
		{"yes", false, true},
		{"YES", false, true},
		{"no", true, false},
		{"maybe", true, true},
	}
	for i := range cases {
		os.Setenv(key, cases[i].value)
		if v := pprofProfileEnabled("heap", cases[i].zero); v != cases[i].expected {
			t.Errorf("value=%q zero=%v: got %v", cases[i].value, cases[i].zero, v)
		}
	}
}

func TestAdmin__bindAddress(t *testing.T) {
	svc := SetupServer(":19090", nil)
	if v := svc.BindAddress(); v != ":19090" {
		t.Errorf("got %s", v)
	}
	svc.Shutdown(context.Background())
}
