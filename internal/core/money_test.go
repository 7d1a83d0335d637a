package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"999999999999.99", 99999999999999, true},
		{"1000000000000", 0, false},
		{"99999999999999999999", 0, false},
		{"184467440737095516.16", 0, false},
		{"1e17", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	if got := (Money{Cents: 1250}).String(); got != "12.50" {
		t.Fatalf("expected 12.50, got %s", got)
	}
	if got := (Money{}).String(); got != "0.00" {
		t.Fatalf("expected 0.00, got %s", got)
	}
}

func TestMoneyJSONNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Money{Cents: 1250}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"amount":12.5}` {
		t.Fatalf("unexpected encoding %s", b)
	}

	var decoded struct {
		Amount Money `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount":"42.10"}`), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Amount.Cents != 4210 {
		t.Fatalf("expected 4210 cents, got %d", decoded.Amount.Cents)
	}
	if err := json.Unmarshal([]byte(`{"amount":"ten"}`), &decoded); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
}

func TestParseAmount_ErrorKinds(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"abc", ErrMalformedAmount},
		{"", ErrMalformedAmount},
		{"99999999999999999999", ErrAmountTooLarge},
	}
	for _, tc := range cases {
		_, err := ParseAmount(tc.in)
		if !errors.Is(err, tc.want) || !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected %v wrapped as ErrInvalidAmount, got %v", tc.in, tc.want, err)
		}
	}
	if _, err := ParseAmount("-1"); err != ErrInvalidAmount {
		t.Fatalf("negative amount should report ErrInvalidAmount, got %v", err)
	}
}

func TestMoneyUnmarshalJSON(t *testing.T) {
	cases := []struct {
		in      string
		cents   int64
		wantErr error
	}{
		{`"2,50"`, 250, nil},
		{`12.345`, 1235, nil},
		{`-3`, -300, nil},
		{`null`, 0, nil},
		{`1e17`, 0, ErrAmountTooLarge},
		{`"99999999999999999999"`, 0, ErrAmountTooLarge},
		{`"12,34,56"`, 0, ErrMalformedAmount},
	}
	for _, tc := range cases {
		var m Money
		err := json.Unmarshal([]byte(tc.in), &m)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("%s expected %v, got %v", tc.in, tc.wantErr, err)
			}
			continue
		}
		if err != nil || m.Cents != tc.cents {
			t.Fatalf("%s expected %d cents, got %d (err=%v)", tc.in, tc.cents, m.Cents, err)
		}
	}
}
