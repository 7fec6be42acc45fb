package model

import (
	"errors"
	"strings"
	"testing"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"", 0, false},
		{"abc", 0, false},
		{"2500000", 2500000, true},
		{"1234567.89", 1234567.89, true},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFormatMarketCap(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "N/A"},
		{999.5, "$999.50"},
		{789_000, "$789.00K"},
		{1_234_567, "$1.23M"},
		{4_560_000_000, "$4.56B"},
	}
	for _, tt := range tests {
		if got := FormatMarketCap(tt.in); got != tt.want {
			t.Errorf("FormatMarketCap(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUpstreamHTTPError_TransportFailureUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := &UpstreamHTTPError{Service: "okx", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("transport cause should unwrap")
	}
	if !strings.Contains(err.Error(), "request failed") {
		t.Errorf("unexpected message %q", err.Error())
	}

	status := &UpstreamHTTPError{Service: "okx", Status: 429, Body: "slow down"}
	if !strings.Contains(status.Error(), "429") {
		t.Errorf("unexpected message %q", status.Error())
	}
}
